package changedet

import (
	"github.com/rs/zerolog"
)

// Sink receives the evaluation result of each completed epoch.  Logging
// and persistence side effects hang off this interface so metric
// computation itself stays pure
type Sink interface {
	EpochEvaluated(epoch int, r EvaluationResult) error
}

// ZerologSink writes one structured log line per epoch.  Field order is
// fixed, downstream comparison tooling parses these lines: overall
// accuracy, mean IoU, per class IoU, per class accuracy, kappa, per
// class F1
type ZerologSink struct {
	log zerolog.Logger
}

// NewZerologSink returns a sink logging epochs to the given logger
func NewZerologSink(log zerolog.Logger) *ZerologSink {
	return &ZerologSink{log: log}
}

// EpochEvaluated logs the epochs metrics
func (s *ZerologSink) EpochEvaluated(epoch int, r EvaluationResult) error {

	s.log.Info().
		Int("epoch", epoch).
		Float64("acc", r.OverallAccuracy).
		Float64("miou", r.MeanIoU).
		Floats64("class_iou", r.IoU).
		Floats64("class_acc", r.Accuracy).
		Float64("kappa", r.Kappa).
		Floats64("class_f1", r.F1).
		Int64("pixels", r.Pixels).
		Msg("epoch evaluated")

	return nil
}

// MultiSink fans an epoch result out to several sinks in order, stopping
// on the first error
type MultiSink []Sink

// EpochEvaluated notifies each sink in turn
func (m MultiSink) EpochEvaluated(epoch int, r EvaluationResult) error {

	for _, s := range m {
		if err := s.EpochEvaluated(epoch, r); err != nil {
			return err
		}
	}

	return nil
}
