package history

import (
	changedet "github.com/terralab/go-changedet"
)

// RunSink forwards epoch metrics to the store under a fixed run.  It
// implements the evaluation Sink interface so a store can be chained
// next to log output
type RunSink struct {
	store *Store
	runID string
}

// Sink creates a metrics sink writing epochs to the given run
func (s *Store) Sink(runID string) *RunSink {
	return &RunSink{store: s, runID: runID}
}

// EpochEvaluated records the epochs metrics in the store
func (k *RunSink) EpochEvaluated(epoch int, r changedet.EvaluationResult) error {
	return k.store.RecordEpoch(k.runID, epoch, r)
}
