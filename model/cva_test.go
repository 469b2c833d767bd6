package model

import (
	"testing"

	"gocv.io/x/gocv"
)

// grayMat builds a single channel 8bit Mat from flat pixel values
func grayMat(t *testing.T, vals []uint8, width, height int) gocv.Mat {

	t.Helper()

	m, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC1, vals)

	if err != nil {
		t.Fatalf("error creating Mat: %v", err)
	}

	return m
}

func TestCVAIdenticalImages(t *testing.T) {

	vals := []uint8{10, 20, 30, 40, 50, 60, 70, 80, 90}

	a := grayMat(t, vals, 3, 3)
	defer a.Close()

	b := grayMat(t, vals, 3, 3)
	defer b.Close()

	cva := NewCVA()

	score, err := cva.Infer(a, b)

	if err != nil {
		t.Fatalf("infer failed: %v", err)
	}

	defer score.Close()

	// identical inputs leave zero change magnitude everywhere
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if v := score.GetFloatAt(y, x); v != 0 {
				t.Errorf("pixel (%d,%d) score = %v, want 0", x, y, v)
			}
		}
	}
}

func TestCVALocalizedChange(t *testing.T) {

	before := make([]uint8, 64)
	after := make([]uint8, 64)

	for i := range before {
		before[i] = 100
		after[i] = 100
	}

	// strong change in one corner pixel
	after[0] = 255

	a := grayMat(t, before, 8, 8)
	defer a.Close()

	b := grayMat(t, after, 8, 8)
	defer b.Close()

	cva := NewCVA()
	// raw differencing, normalization would rescale the constant image
	cva.SetNormalize(false)

	score, err := cva.Infer(a, b)

	if err != nil {
		t.Fatalf("infer failed: %v", err)
	}

	defer score.Close()

	if v := score.GetFloatAt(0, 0); v != 1 {
		t.Errorf("changed pixel score = %v, want 1 after min max scaling", v)
	}

	if v := score.GetFloatAt(4, 4); v != 0 {
		t.Errorf("unchanged pixel score = %v, want 0", v)
	}
}

func TestCVAShapeMismatch(t *testing.T) {

	a := grayMat(t, make([]uint8, 9), 3, 3)
	defer a.Close()

	b := grayMat(t, make([]uint8, 16), 4, 4)
	defer b.Close()

	cva := NewCVA()

	if _, err := cva.Infer(a, b); err == nil {
		t.Error("expected error for mismatched image pair")
	}
}
