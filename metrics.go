package changedet

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// EvaluationResult is an immutable snapshot of the metrics derived from one
// finalized confusion matrix.  It is created once per evaluation pass and
// consumed by the epoch sinks and the best model tracker
type EvaluationResult struct {
	// OverallAccuracy is the fraction of pixels classified correctly
	OverallAccuracy float64
	// MeanIoU is the mean over classes of the per class IoU
	MeanIoU float64
	// Kappa is Cohen's kappa, agreement corrected for chance.  It is NaN
	// for the degenerate case where chance agreement equals 1, such as a
	// single class evaluation batch
	Kappa float64
	// IoU holds the per class intersection over union
	IoU []float64
	// Accuracy holds the per class recall, diag / row sum
	Accuracy []float64
	// F1 holds the per class harmonic mean of precision and recall
	F1 []float64
	// Pixels is the number of pixels the matrix was accumulated over
	Pixels int64
}

// Compute derives an EvaluationResult from a finalized confusion matrix.
// It is a pure function, the input matrix is not mutated.  Every division
// by zero resolves to the 0 default so sparse validation batches where a
// class is absent never raise, and the degenerate kappa case resolves to
// NaN rather than an error
func Compute(m *ConfusionMatrix) EvaluationResult {

	n := m.numClasses

	diag := make([]float64, n)
	rowSum := make([]float64, n)
	colSum := make([]float64, n)
	total := float64(0)

	for t := 0; t < n; t++ {
		for p := 0; p < n; p++ {
			v := float64(m.counts[t*n+p])
			rowSum[t] += v
			colSum[p] += v
			total += v

			if t == p {
				diag[t] = v
			}
		}
	}

	res := EvaluationResult{
		IoU:      make([]float64, n),
		Accuracy: make([]float64, n),
		F1:       make([]float64, n),
		Pixels:   m.pixels,
	}

	diagSum := float64(0)

	for i := 0; i < n; i++ {

		diagSum += diag[i]

		// IoU denominator is the union of predicted and truth pixels of
		// class i
		union := rowSum[i] + colSum[i] - diag[i]

		if union > 0 {
			res.IoU[i] = diag[i] / union
		}

		if rowSum[i] > 0 {
			res.Accuracy[i] = diag[i] / rowSum[i]
		}

		// F1 from precision and recall, 0 when either denominator is 0
		if rowSum[i] > 0 && colSum[i] > 0 {
			precision := diag[i] / colSum[i]
			recall := diag[i] / rowSum[i]

			if precision+recall > 0 {
				res.F1[i] = 2 * precision * recall / (precision + recall)
			}
		}
	}

	res.MeanIoU = stat.Mean(res.IoU, nil)

	if total > 0 {
		res.OverallAccuracy = diagSum / total
	}

	res.Kappa = kappa(rowSum, colSum, total, res.OverallAccuracy)

	return res
}

// kappa computes Cohen's kappa from the marginal sums.  Chance agreement
// of exactly 1 makes the score undefined and yields NaN
func kappa(rowSum, colSum []float64, total, observed float64) float64 {

	if total == 0 {
		return math.NaN()
	}

	expected := float64(0)

	for i := range rowSum {
		expected += rowSum[i] * colSum[i] / (total * total)
	}

	if expected == 1 {
		return math.NaN()
	}

	return (observed - expected) / (1 - expected)
}
