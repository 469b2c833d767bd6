package model

import (
	"fmt"

	"github.com/x448/float16"
	"gocv.io/x/gocv"
)

var f16LookupTable [65536]float32

func init() {
	// precompute float16 lookup table for faster conversion to float32
	for i := range f16LookupTable {
		f16 := float16.Frombits(uint16(i))
		f16LookupTable[i] = f16.Float32()
	}
}

// ScoreMapFromFloat32 wraps a flat row major float32 score buffer of the
// given dimensions in a CV32F Mat.  The buffer is copied, the caller owns
// the returned Mat
func ScoreMapFromFloat32(buf []float32, width, height int) (gocv.Mat, error) {

	if len(buf) != width*height {
		return gocv.NewMat(), fmt.Errorf("score buffer holds %d values, "+
			"want %dx%d = %d", len(buf), width, height, width*height)
	}

	m := gocv.NewMatWithSize(height, width, gocv.MatTypeCV32F)

	data, err := m.DataPtrFloat32()

	if err != nil {
		m.Close()
		return gocv.NewMat(), fmt.Errorf("error getting data pointer to Mat: %w", err)
	}

	copy(data, buf)

	return m, nil
}

// ScoreMapFromFloat16 converts the raw float16 output buffer of an
// exported model into a score map Mat.  Go has no native FP16 support so
// values go through a precomputed conversion table
func ScoreMapFromFloat16(buf []uint16, width, height int) (gocv.Mat, error) {

	f32 := make([]float32, len(buf))

	for i, bits := range buf {
		f32[i] = f16LookupTable[bits]
	}

	return ScoreMapFromFloat32(f32, width, height)
}

// ScoreMapFromInt8 dequantizes the raw int8 output buffer of a quantized
// exported model using its affine zero point and scale and returns the
// score map Mat
func ScoreMapFromInt8(buf []int8, zp int32, scale float32, width, height int) (gocv.Mat, error) {

	f32 := make([]float32, len(buf))

	for i, q := range buf {
		f32[i] = (float32(q) - float32(zp)) * scale
	}

	return ScoreMapFromFloat32(f32, width, height)
}

// Binarize thresholds a CV32F score map into a CV8UC1 label map with
// values 0 (unchanged) and 1 (changed).  Scores >= thresh are changed.
// The caller owns the returned Mat
func Binarize(score gocv.Mat, thresh float32) (gocv.Mat, error) {

	if score.Type() != gocv.MatTypeCV32F {
		return gocv.NewMat(), fmt.Errorf("score map must be CV32F, got %d",
			score.Type())
	}

	data, err := score.DataPtrFloat32()

	if err != nil {
		return gocv.NewMat(), fmt.Errorf("error getting data pointer to Mat: %w", err)
	}

	mask := gocv.NewMatWithSize(score.Rows(), score.Cols(), gocv.MatTypeCV8UC1)

	out, err := mask.DataPtrUint8()

	if err != nil {
		mask.Close()
		return gocv.NewMat(), fmt.Errorf("error getting data pointer to mask: %w", err)
	}

	for i, v := range data {
		if v >= thresh {
			out[i] = 1
		} else {
			out[i] = 0
		}
	}

	return mask, nil
}
