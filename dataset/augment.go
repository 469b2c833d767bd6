package dataset

import (
	"image"
	"math/rand"

	"gocv.io/x/gocv"
)

// image3x3 is the gaussian blur kernel size
var image3x3 = image.Pt(3, 3)

// AugmentParams configures the per sample augmentation probabilities and
// jitter strengths
type AugmentParams struct {
	// FlipProb is the probability of a horizontal and, independently, a
	// vertical flip
	FlipProb float64
	// RotateProb is the probability of a 90 degree rotation
	RotateProb float64
	// BrightnessJitter is the maximum additive brightness shift in pixel
	// values, drawn uniformly from [-j, j]
	BrightnessJitter float64
	// ContrastJitter is the maximum multiplicative contrast deviation,
	// the gain is drawn uniformly from [1-j, 1+j]
	ContrastJitter float64
	// BlurProb is the probability of a light gaussian blur
	BlurProb float64
}

// DefaultAugmentParams returns the augmentation used for change detection
// training
func DefaultAugmentParams() AugmentParams {
	return AugmentParams{
		FlipProb:         0.5,
		RotateProb:       0.25,
		BrightnessJitter: 20,
		ContrastJitter:   0.2,
		BlurProb:         0.1,
	}
}

// Augmenter applies geometric and radiometric augmentation to samples.
// Geometric transforms are applied identically to both images and the
// label so the triplet stays co-registered, radiometric jitter touches
// the images only and is drawn independently per image so the model sees
// acquisition condition differences
type Augmenter struct {
	params AugmentParams
	rng    *rand.Rand
}

// NewAugmenter returns an augmenter drawing from the given source
func NewAugmenter(params AugmentParams, rng *rand.Rand) *Augmenter {
	return &Augmenter{
		params: params,
		rng:    rng,
	}
}

// Apply augments the sample in place
func (a *Augmenter) Apply(s *Sample) {

	if a.rng.Float64() < a.params.FlipProb {
		flipAll(s, 1) // horizontal
	}

	if a.rng.Float64() < a.params.FlipProb {
		flipAll(s, 0) // vertical
	}

	if a.rng.Float64() < a.params.RotateProb {
		rotateAll(s)
	}

	a.jitter(&s.A)
	a.jitter(&s.B)

	if a.rng.Float64() < a.params.BlurProb {
		blur(&s.A)
	}

	if a.rng.Float64() < a.params.BlurProb {
		blur(&s.B)
	}
}

// flipAll flips images and label around the given axis
func flipAll(s *Sample, axis int) {
	gocv.Flip(s.A, &s.A, axis)
	gocv.Flip(s.B, &s.B, axis)
	gocv.Flip(s.Label, &s.Label, axis)
}

// rotateAll rotates images and label 90 degrees clockwise
func rotateAll(s *Sample) {
	gocv.Rotate(s.A, &s.A, gocv.Rotate90Clockwise)
	gocv.Rotate(s.B, &s.B, gocv.Rotate90Clockwise)
	gocv.Rotate(s.Label, &s.Label, gocv.Rotate90Clockwise)
}

// jitter applies random brightness and contrast to one image
func (a *Augmenter) jitter(img *gocv.Mat) {

	if a.params.BrightnessJitter == 0 && a.params.ContrastJitter == 0 {
		return
	}

	gain := 1 + a.params.ContrastJitter*(2*a.rng.Float64()-1)
	shift := a.params.BrightnessJitter * (2*a.rng.Float64() - 1)

	img.ConvertToWithParams(img, img.Type(), float32(gain), float32(shift))
}

// blur applies a light gaussian blur
func blur(img *gocv.Mat) {
	gocv.GaussianBlur(*img, img, image3x3, 0, 0, gocv.BorderDefault)
}
