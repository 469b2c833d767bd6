package changedet

import (
	"fmt"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// ConfusionMatrix accumulates per pixel (truth, predicted) class counts
// over the batches of one evaluation pass.  Cell additions are independent
// so the order batches arrive in does not affect the final matrix, and
// partial matrices built on disjoint batches can be combined with Merge
type ConfusionMatrix struct {
	// counts is the row major NumClasses x NumClasses cell store,
	// indexed [truth*numClasses + predicted]
	counts []int64
	// numClasses is the matrix dimension
	numClasses int
	// ignoreLabel is the sentinel excluded from accumulation, or
	// NoIgnoreLabel
	ignoreLabel int
	// pixels is the number of pixels accumulated so far, equal to the
	// sum over all cells
	pixels int64
}

// NewConfusionMatrix returns a zeroed confusion matrix for the given
// configuration
func NewConfusionMatrix(cfg Config) (*ConfusionMatrix, error) {

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &ConfusionMatrix{
		counts:      make([]int64, cfg.NumClasses*cfg.NumClasses),
		numClasses:  cfg.NumClasses,
		ignoreLabel: cfg.IgnoreLabel,
	}, nil
}

// Reset clears all cell counts to zero so the matrix can be reused for the
// next evaluation pass
func (c *ConfusionMatrix) Reset() {

	for i := range c.counts {
		c.counts[i] = 0
	}

	c.pixels = 0
}

// Update accumulates one batch of flat predicted and ground truth label
// maps.  Both slices must be the same length.  Pixels whose truth or
// predicted value equals the ignore label are skipped.  It returns the
// number of pixels accumulated for progress reporting
func (c *ConfusionMatrix) Update(pred, truth []uint8) (int, error) {

	if len(pred) != len(truth) {
		return 0, fmt.Errorf("%w: predicted %d pixels, truth %d pixels",
			ErrShapeMismatch, len(pred), len(truth))
	}

	done := 0

	for i := range truth {

		t := int(truth[i])
		p := int(pred[i])

		// skip ignored pixels
		if c.ignoreLabel != NoIgnoreLabel &&
			(t == c.ignoreLabel || p == c.ignoreLabel) {
			continue
		}

		if t >= c.numClasses || p >= c.numClasses {
			return done, fmt.Errorf("%w: truth=%d pred=%d at pixel %d, "+
				"num classes %d", ErrLabelRange, t, p, i, c.numClasses)
		}

		c.counts[t*c.numClasses+p]++
		done++
	}

	c.pixels += int64(done)

	return done, nil
}

// UpdateMat accumulates one batch given as single channel 8bit label map
// Mats.  Both Mats must have identical dimensions
func (c *ConfusionMatrix) UpdateMat(pred, truth gocv.Mat) (int, error) {

	if pred.Rows() != truth.Rows() || pred.Cols() != truth.Cols() {
		return 0, fmt.Errorf("%w: predicted %dx%d, truth %dx%d",
			ErrShapeMismatch, pred.Cols(), pred.Rows(),
			truth.Cols(), truth.Rows())
	}

	if pred.Type() != gocv.MatTypeCV8UC1 || truth.Type() != gocv.MatTypeCV8UC1 {
		return 0, fmt.Errorf("label maps must be CV8UC1 Mats")
	}

	// make mats continuous before taking data pointers
	if !pred.IsContinuous() {
		pred = pred.Clone()
		defer pred.Close()
	}

	if !truth.IsContinuous() {
		truth = truth.Clone()
		defer truth.Close()
	}

	predData, err := pred.DataPtrUint8()

	if err != nil {
		return 0, fmt.Errorf("error getting data pointer to predicted Mat: %w", err)
	}

	truthData, err := truth.DataPtrUint8()

	if err != nil {
		return 0, fmt.Errorf("error getting data pointer to truth Mat: %w", err)
	}

	return c.Update(predData, truthData)
}

// Merge adds the cell counts of other into c.  It is the reduction step
// when partial matrices have been accumulated in parallel over disjoint
// batches
func (c *ConfusionMatrix) Merge(other *ConfusionMatrix) error {

	if other.numClasses != c.numClasses {
		return fmt.Errorf("%w: merging %d class matrix into %d class matrix",
			ErrShapeMismatch, other.numClasses, c.numClasses)
	}

	for i, n := range other.counts {
		c.counts[i] += n
	}

	c.pixels += other.pixels

	return nil
}

// Clone returns an independent copy of the matrix
func (c *ConfusionMatrix) Clone() *ConfusionMatrix {

	dup := &ConfusionMatrix{
		counts:      make([]int64, len(c.counts)),
		numClasses:  c.numClasses,
		ignoreLabel: c.ignoreLabel,
		pixels:      c.pixels,
	}

	copy(dup.counts, c.counts)

	return dup
}

// NumClasses returns the matrix dimension
func (c *ConfusionMatrix) NumClasses() int {
	return c.numClasses
}

// At returns the count of pixels with ground truth class t that were
// predicted as class p
func (c *ConfusionMatrix) At(t, p int) int64 {
	return c.counts[t*c.numClasses+p]
}

// Total returns the number of pixels accumulated so far
func (c *ConfusionMatrix) Total() int64 {
	return c.pixels
}

// Counts returns a copy of the row major cell counts
func (c *ConfusionMatrix) Counts() []int64 {
	dup := make([]int64, len(c.counts))
	copy(dup, c.counts)
	return dup
}

// String renders the matrix for logging
func (c *ConfusionMatrix) String() string {

	vals := make([]float64, len(c.counts))

	for i, n := range c.counts {
		vals[i] = float64(n)
	}

	d := mat.NewDense(c.numClasses, c.numClasses, vals)

	return fmt.Sprintf("%v", mat.Formatted(d))
}
