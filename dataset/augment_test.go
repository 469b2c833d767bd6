package dataset

import (
	"math/rand"
	"testing"

	"gocv.io/x/gocv"
)

// asymmetricSample builds a sample with one marked corner so geometric
// transforms are observable
func asymmetricSample(t *testing.T) Sample {

	t.Helper()

	a := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 10, 10, 0),
		4, 4, gocv.MatTypeCV8UC3)
	b := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(20, 20, 20, 0),
		4, 4, gocv.MatTypeCV8UC3)
	label := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0),
		4, 4, gocv.MatTypeCV8UC1)

	// top left corner marks
	a.SetUCharAt(0, 0, 200)
	label.SetUCharAt(0, 0, 1)

	return Sample{Name: "t.png", A: a, B: b, Label: label}
}

// TestAugmenterKeepsRegistration forces a horizontal flip and checks the
// label moved together with the image
func TestAugmenterKeepsRegistration(t *testing.T) {

	s := asymmetricSample(t)
	defer s.Close()

	aug := NewAugmenter(AugmentParams{FlipProb: 1}, rand.New(rand.NewSource(1)))

	// FlipProb 1 triggers both the horizontal and the vertical flip, the
	// corner mark ends up diagonally opposite
	aug.Apply(&s)

	if got := s.Label.GetUCharAt(3, 3); got != 1 {
		t.Errorf("label mark not at (3,3) after double flip, got %d", got)
	}

	if got := s.Label.GetUCharAt(0, 0); got != 0 {
		t.Errorf("label mark still at (0,0) after double flip")
	}

	// image channel 0 moved the same way
	if got := s.A.GetUCharAt(3, 3*3); got != 200 {
		t.Errorf("image mark not at (3,3) after double flip, got %d", got)
	}
}

// TestAugmenterJitterInRange checks radiometric jitter keeps the label
// untouched and the image type stable
func TestAugmenterJitterInRange(t *testing.T) {

	s := asymmetricSample(t)
	defer s.Close()

	aug := NewAugmenter(AugmentParams{
		BrightnessJitter: 20,
		ContrastJitter:   0.2,
	}, rand.New(rand.NewSource(2)))

	aug.Apply(&s)

	if s.A.Type() != gocv.MatTypeCV8UC3 {
		t.Errorf("jitter changed image type to %d", s.A.Type())
	}

	if got := s.Label.GetUCharAt(0, 0); got != 1 {
		t.Errorf("radiometric jitter touched the label")
	}
}

func TestAugmenterNoOp(t *testing.T) {

	s := asymmetricSample(t)
	defer s.Close()

	aug := NewAugmenter(AugmentParams{}, rand.New(rand.NewSource(3)))

	aug.Apply(&s)

	if got := s.A.GetUCharAt(0, 0); got != 200 {
		t.Errorf("zero probability augmenter modified the image, got %d", got)
	}
}
