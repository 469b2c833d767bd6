package changedet

import "math"

// MetricKey selects the scalar an evaluation run is ranked by.  All the
// provided keys are higher is better
type MetricKey func(EvaluationResult) float64

// KeyMeanIoU ranks runs by mean IoU, the conventional change detection
// selection metric
func KeyMeanIoU(r EvaluationResult) float64 {
	return r.MeanIoU
}

// KeyOverallAccuracy ranks runs by overall accuracy
func KeyOverallAccuracy(r EvaluationResult) float64 {
	return r.OverallAccuracy
}

// KeyKappa ranks runs by Cohen's kappa
func KeyKappa(r EvaluationResult) float64 {
	return r.Kappa
}

// KeyF1 ranks runs by the F1 score of the given class, for change
// detection class 1 is the changed class
func KeyF1(class int) MetricKey {
	return func(r EvaluationResult) float64 {

		if class < 0 || class >= len(r.F1) {
			return 0
		}

		return r.F1[class]
	}
}

// BestRecord identifies the best performing checkpoint seen so far
type BestRecord struct {
	// Epoch the best result was produced at
	Epoch int
	// Value of the ranking metric at that epoch
	Value float64
	// Checkpoint is the opaque checkpoint identity supplied by the
	// training driver, passed through untouched
	Checkpoint string
}

// BestTracker retains the identity of the best performing checkpoint
// across the epochs of a training run.  Each tracker is an independent
// caller owned instance so concurrent runs do not interfere.  It is not
// safe for concurrent use, observe each epoch strictly after its
// evaluation pass has been fully reduced
type BestTracker struct {
	key  MetricKey
	best BestRecord
	has  bool
}

// NewBestTracker returns a tracker ranking results under the given key.
// A nil key ranks by mean IoU
func NewBestTracker(key MetricKey) *BestTracker {

	if key == nil {
		key = KeyMeanIoU
	}

	return &BestTracker{key: key}
}

// Observe compares the epochs evaluation result against the best seen so
// far.  It returns true when the result strictly improves on the stored
// value and the epochs checkpoint should be saved as best, false when the
// existing best checkpoint must not be overwritten.  Ties leave the
// earlier epoch in place, so repeated identical inputs are idempotent
func (b *BestTracker) Observe(epoch int, r EvaluationResult, checkpoint string) bool {

	v := b.key(r)

	// a degenerate metric never ranks best
	if math.IsNaN(v) {
		return false
	}

	if b.has && v <= b.best.Value {
		return false
	}

	b.best = BestRecord{
		Epoch:      epoch,
		Value:      v,
		Checkpoint: checkpoint,
	}
	b.has = true

	return true
}

// Best returns the best record seen so far, false when no epoch has been
// observed yet
func (b *BestTracker) Best() (BestRecord, bool) {
	return b.best, b.has
}
