package changedet

import (
	"errors"
	"io"
	"testing"
)

// sliceSource yields a fixed set of batches then io.EOF
type sliceSource struct {
	batches []LabelBatch
	next    int
}

func (s *sliceSource) Next() (LabelBatch, error) {

	if s.next >= len(s.batches) {
		return LabelBatch{}, io.EOF
	}

	b := s.batches[s.next]
	s.next++

	return b, nil
}

// recordSink remembers every epoch it was notified of
type recordSink struct {
	epochs  []int
	results []EvaluationResult
}

func (r *recordSink) EpochEvaluated(epoch int, res EvaluationResult) error {
	r.epochs = append(r.epochs, epoch)
	r.results = append(r.results, res)
	return nil
}

func perfectBatches() []LabelBatch {

	return []LabelBatch{
		{Pred: []uint8{0, 0, 1, 1}, Truth: []uint8{0, 0, 1, 1}},
		{Pred: []uint8{1, 0}, Truth: []uint8{1, 0}},
	}
}

func TestEvaluatorRunEpoch(t *testing.T) {

	sink := &recordSink{}
	tracker := NewBestTracker(KeyMeanIoU)

	ev, err := NewEvaluator(EvaluatorParams{
		Config:  BinaryConfig(),
		Sink:    sink,
		Tracker: tracker,
	})

	if err != nil {
		t.Fatalf("error creating evaluator: %v", err)
	}

	res, saveBest, err := ev.RunEpoch(1, &sliceSource{batches: perfectBatches()}, "ckpt_1")

	if err != nil {
		t.Fatalf("run epoch failed: %v", err)
	}

	if res.OverallAccuracy != 1.0 || res.MeanIoU != 1.0 {
		t.Errorf("perfect agreement metrics wrong: %+v", res)
	}

	if !saveBest {
		t.Error("first epoch must be selected as best")
	}

	// the sink sees the epoch exactly once
	if len(sink.epochs) != 1 || sink.epochs[0] != 1 {
		t.Errorf("sink notified epochs %v, want [1]", sink.epochs)
	}

	best, ok := tracker.Best()

	if !ok || best.Checkpoint != "ckpt_1" {
		t.Errorf("tracker best = %+v ok=%v", best, ok)
	}
}

func TestEvaluatorParallelMatchesSerial(t *testing.T) {

	batches := perfectBatches()

	serialEv, _ := NewEvaluator(EvaluatorParams{Config: BinaryConfig()})
	parallelEv, _ := NewEvaluator(EvaluatorParams{Config: BinaryConfig(), Workers: 4})

	serialRes, _, err := serialEv.RunEpoch(1, &sliceSource{batches: batches}, "")

	if err != nil {
		t.Fatalf("serial run failed: %v", err)
	}

	parallelRes, _, err := parallelEv.RunEpoch(1, &sliceSource{batches: batches}, "")

	if err != nil {
		t.Fatalf("parallel run failed: %v", err)
	}

	if !resultsEqual(serialRes, parallelRes, 0) {
		t.Errorf("parallel result %+v differs from serial %+v",
			parallelRes, serialRes)
	}
}

// TestEvaluatorFailFast checks an accumulation error aborts the pass and
// neither the sink nor the tracker observe a partial epoch
func TestEvaluatorFailFast(t *testing.T) {

	sink := &recordSink{}
	tracker := NewBestTracker(KeyMeanIoU)

	ev, _ := NewEvaluator(EvaluatorParams{
		Config:  BinaryConfig(),
		Sink:    sink,
		Tracker: tracker,
	})

	src := &sliceSource{batches: []LabelBatch{
		{Pred: []uint8{0, 1}, Truth: []uint8{0, 1}},
		{Pred: []uint8{0}, Truth: []uint8{0, 1}},
	}}

	_, _, err := ev.RunEpoch(1, src, "ckpt_1")

	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}

	if len(sink.epochs) != 0 {
		t.Error("sink observed a failed epoch")
	}

	if _, ok := tracker.Best(); ok {
		t.Error("tracker observed a failed epoch")
	}
}
