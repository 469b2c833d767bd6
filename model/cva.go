package model

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"
)

// CVA is a change vector analysis baseline model.  Each band of each
// image is radiometrically normalized to zero mean and unit variance so
// illumination differences between acquisition dates cancel out, then the
// per pixel change score is the L2 magnitude of the band wise difference
// vector, min max scaled to [0,1]
type CVA struct {
	// normalize toggles per band radiometric normalization before
	// differencing
	normalize bool
}

// NewCVA returns a change vector analysis model with radiometric
// normalization enabled
func NewCVA() *CVA {
	return &CVA{normalize: true}
}

// SetNormalize toggles per band radiometric normalization
func (c *CVA) SetNormalize(on bool) {
	c.normalize = on
}

// Infer computes the change score map for the image pair
func (c *CVA) Infer(a, b gocv.Mat) (gocv.Mat, error) {

	if a.Rows() != b.Rows() || a.Cols() != b.Cols() ||
		a.Channels() != b.Channels() {
		return gocv.NewMat(), fmt.Errorf("image pair differs in shape: "+
			"%dx%dx%d vs %dx%dx%d", a.Cols(), a.Rows(), a.Channels(),
			b.Cols(), b.Rows(), b.Channels())
	}

	bandsA, err := imageBands(a)

	if err != nil {
		return gocv.NewMat(), fmt.Errorf("error reading first image: %w", err)
	}

	bandsB, err := imageBands(b)

	if err != nil {
		return gocv.NewMat(), fmt.Errorf("error reading second image: %w", err)
	}

	if c.normalize {
		for i := range bandsA {
			normalizeBand(bandsA[i])
			normalizeBand(bandsB[i])
		}
	}

	rows := a.Rows()
	cols := a.Cols()
	score := make([]float32, rows*cols)

	// change magnitude is the L2 norm of the band difference vector
	for px := range score {

		var sum float64

		for band := range bandsA {
			d := float64(bandsA[band][px] - bandsB[band][px])
			sum += d * d
		}

		score[px] = float32(math.Sqrt(sum))
	}

	minMaxScale(score)

	return ScoreMapFromFloat32(score, cols, rows)
}

// Close implements the Model interface, CVA holds no resources
func (c *CVA) Close() error {
	return nil
}

// imageBands converts an image Mat to per band float32 pixel slices
func imageBands(img gocv.Mat) ([][]float32, error) {

	// a fresh ConvertTo allocation is always continuous
	f32 := gocv.NewMat()
	defer f32.Close()

	img.ConvertTo(&f32, gocv.MatTypeCV32F)

	data, err := f32.DataPtrFloat32()

	if err != nil {
		return nil, fmt.Errorf("error getting data pointer to Mat: %w", err)
	}

	channels := img.Channels()
	pixels := img.Rows() * img.Cols()
	bands := make([][]float32, channels)

	for ch := range bands {
		bands[ch] = make([]float32, pixels)
	}

	// interleaved layout, every pixel carries all channels
	for px := 0; px < pixels; px++ {
		for ch := 0; ch < channels; ch++ {
			bands[ch][px] = data[px*channels+ch]
		}
	}

	return bands, nil
}

// normalizeBand scales a band to zero mean and unit variance in place.
// A constant band is left at zero mean
func normalizeBand(band []float32) {

	if len(band) == 0 {
		return
	}

	var sum float64

	for _, v := range band {
		sum += float64(v)
	}

	mean := sum / float64(len(band))

	var sq float64

	for _, v := range band {
		d := float64(v) - mean
		sq += d * d
	}

	std := math.Sqrt(sq / float64(len(band)))

	for i, v := range band {

		centered := float64(v) - mean

		if std > 0 {
			band[i] = float32(centered / std)
		} else {
			band[i] = float32(centered)
		}
	}
}

// minMaxScale rescales values to [0,1] in place.  A constant map scales
// to all zeros
func minMaxScale(vals []float32) {

	if len(vals) == 0 {
		return
	}

	min := vals[0]
	max := vals[0]

	for _, v := range vals {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	span := max - min

	if span == 0 {
		for i := range vals {
			vals[i] = 0
		}
		return
	}

	for i := range vals {
		vals[i] = (vals[i] - min) / span
	}
}
