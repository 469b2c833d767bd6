package changedet

import (
	"errors"
	"fmt"
)

// NoIgnoreLabel disables the ignore label so every pixel is accumulated
const NoIgnoreLabel = -1

var (
	// ErrShapeMismatch occurs when predicted and ground truth label maps
	// differ in shape.  It indicates a data pipeline bug so the whole
	// evaluation pass must be aborted
	ErrShapeMismatch = errors.New("predicted and truth label maps differ in shape")
	// ErrLabelRange occurs when an unignored label value falls outside
	// [0, NumClasses).  It indicates corrupted label data
	ErrLabelRange = errors.New("label value out of class range")
)

// Config defines the evaluation parameters shared by the confusion matrix
// accumulator and the metric computation
type Config struct {
	// NumClasses is the number of label classes, for binary change
	// detection this is 2 (unchanged, changed)
	NumClasses int
	// IgnoreLabel is a sentinel label value excluded from accumulation,
	// commonly 255 for unlabelled border pixels.  Set to NoIgnoreLabel
	// to accumulate every pixel
	IgnoreLabel int
}

// BinaryConfig returns the configuration used for 2 class change detection
// with the conventional 255 ignore sentinel
func BinaryConfig() Config {
	return Config{
		NumClasses:  2,
		IgnoreLabel: 255,
	}
}

// Validate checks the configuration values are usable
func (c Config) Validate() error {

	if c.NumClasses < 2 {
		return fmt.Errorf("num classes must be >= 2, got %d", c.NumClasses)
	}

	if c.IgnoreLabel != NoIgnoreLabel && c.IgnoreLabel < c.NumClasses {
		return fmt.Errorf("ignore label %d overlaps class range [0-%d)",
			c.IgnoreLabel, c.NumClasses)
	}

	return nil
}
