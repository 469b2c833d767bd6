package changedet

import (
	"errors"
	"fmt"
	"io"
)

// BatchSource yields the label batches of one evaluation pass.  Next
// returns io.EOF once the pass is exhausted
type BatchSource interface {
	Next() (LabelBatch, error)
}

// EvaluatorParams configures an Evaluator
type EvaluatorParams struct {
	// Config for the confusion matrix
	Config Config
	// Workers is the number of parallel accumulation workers, values
	// below 2 accumulate serially
	Workers int
	// Sink receives each epochs result, may be nil
	Sink Sink
	// Tracker retains the best checkpoint across epochs, may be nil
	Tracker *BestTracker
}

// Evaluator runs complete evaluation passes, one per epoch: it drains the
// batch source through the accumulator, computes the metrics once every
// batch has been reduced, then notifies the sink and the best model
// tracker exactly once.  Accumulation errors abort the pass immediately,
// a shape or label range bug invalidates the whole epochs metrics
type Evaluator struct {
	params EvaluatorParams
}

// NewEvaluator returns an evaluator for the given parameters
func NewEvaluator(params EvaluatorParams) (*Evaluator, error) {

	if err := params.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Evaluator{params: params}, nil
}

// RunEpoch evaluates one epoch over the batch source.  checkpoint is the
// opaque identity the training driver stored this epochs weights under.
// The returned bool reports whether the tracker selected this epoch as the
// new best, meaning the checkpoint should be kept
func (e *Evaluator) RunEpoch(epoch int, src BatchSource, checkpoint string) (EvaluationResult, bool, error) {

	matrix, err := e.accumulate(src)

	if err != nil {
		return EvaluationResult{}, false, err
	}

	res := Compute(matrix)

	if e.params.Sink != nil {
		if err := e.params.Sink.EpochEvaluated(epoch, res); err != nil {
			return res, false, fmt.Errorf("epoch sink failed: %w", err)
		}
	}

	saveBest := false

	if e.params.Tracker != nil {
		saveBest = e.params.Tracker.Observe(epoch, res, checkpoint)
	}

	return res, saveBest, nil
}

// accumulate drains the source into a single reduced confusion matrix
func (e *Evaluator) accumulate(src BatchSource) (*ConfusionMatrix, error) {

	if e.params.Workers > 1 {
		return e.accumulateParallel(src)
	}

	matrix, err := NewConfusionMatrix(e.params.Config)

	if err != nil {
		return nil, err
	}

	for {
		batch, err := src.Next()

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("error reading batch: %w", err)
		}

		if _, err := matrix.Update(batch.Pred, batch.Truth); err != nil {
			return nil, err
		}
	}

	return matrix, nil
}

// accumulateParallel accumulates disjoint batches on a worker pool and
// merges the partial matrices
func (e *Evaluator) accumulateParallel(src BatchSource) (*ConfusionMatrix, error) {

	pool, err := NewAccumulatorPool(e.params.Workers, e.params.Config)

	if err != nil {
		return nil, err
	}

	for {
		batch, err := src.Next()

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			// release the workers before reporting the read error
			_, _ = pool.Reduce()
			return nil, fmt.Errorf("error reading batch: %w", err)
		}

		pool.Add(batch)
	}

	return pool.Reduce()
}
