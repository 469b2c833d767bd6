package tile

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestPositionsCoverAxis(t *testing.T) {

	cases := []struct {
		srcLen, tileLen int
		overlap         float32
	}{
		{1000, 256, 0.2},
		{512, 256, 0},
		{300, 256, 0.5},
		{256, 256, 0.2},
		{100, 256, 0.2},
	}

	for _, tc := range cases {

		pos := positions(tc.srcLen, tc.tileLen, tc.overlap)

		if len(pos) == 0 {
			t.Fatalf("srcLen %d: no positions", tc.srcLen)
		}

		if pos[0] != 0 {
			t.Errorf("srcLen %d: first position %d, want 0", tc.srcLen, pos[0])
		}

		last := pos[len(pos)-1]

		if tc.srcLen > tc.tileLen && last+tc.tileLen != tc.srcLen {
			t.Errorf("srcLen %d: last tile [%d,%d) does not reach the edge",
				tc.srcLen, last, last+tc.tileLen)
		}

		// consecutive tiles must overlap or touch
		for i := 1; i < len(pos); i++ {
			if pos[i] > pos[i-1]+tc.tileLen {
				t.Errorf("srcLen %d: gap between tiles %d and %d",
					tc.srcLen, pos[i-1], pos[i])
			}
		}
	}
}

func TestGridCoversScene(t *testing.T) {

	tiler, err := NewTiler(256, 256, 0.2)

	if err != nil {
		t.Fatalf("error creating tiler: %v", err)
	}

	tiles := tiler.Grid(1000, 600)

	covered := make([]bool, 1000*600)

	for _, tl := range tiles {
		for y := tl.Y; y < tl.Y2; y++ {
			for x := tl.X; x < tl.X2; x++ {
				covered[y*1000+x] = true
			}
		}
	}

	for i, c := range covered {
		if !c {
			t.Fatalf("pixel %d not covered by any tile", i)
		}
	}
}

func TestNewTilerValidation(t *testing.T) {

	if _, err := NewTiler(0, 256, 0.2); err == nil {
		t.Error("expected error for zero tile width")
	}

	if _, err := NewTiler(256, 256, 1.0); err == nil {
		t.Error("expected error for full overlap")
	}
}

func TestBlendMaxKeepsMaximum(t *testing.T) {

	dst := make([]float32, 16) // 4x4 scene

	blendMax(dst, 4, []float32{0.5, 0.5, 0.5, 0.5}, Tile{X: 0, Y: 0, X2: 2, Y2: 2})
	blendMax(dst, 4, []float32{0.9, 0.1, 0.1, 0.1}, Tile{X: 0, Y: 0, X2: 2, Y2: 2})

	if dst[0] != 0.9 {
		t.Errorf("overlap pixel = %v, want max 0.9", dst[0])
	}

	if dst[1] != 0.5 {
		t.Errorf("overlap pixel = %v, want max 0.5", dst[1])
	}

	if dst[3] != 0 {
		t.Errorf("pixel outside tile = %v, want 0", dst[3])
	}
}

// constModel scores every pixel with a fixed value
type constModel struct {
	value float32
}

func (c *constModel) Infer(a, b gocv.Mat) (gocv.Mat, error) {

	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(c.value), 0, 0, 0),
		a.Rows(), a.Cols(), gocv.MatTypeCV32F)

	return m, nil
}

func (c *constModel) Close() error {
	return nil
}

func TestTilerInferStitches(t *testing.T) {

	tiler, err := NewTiler(16, 16, 0.25)

	if err != nil {
		t.Fatalf("error creating tiler: %v", err)
	}

	a := gocv.NewMatWithSize(40, 40, gocv.MatTypeCV8UC3)
	defer a.Close()

	b := gocv.NewMatWithSize(40, 40, gocv.MatTypeCV8UC3)
	defer b.Close()

	score, err := tiler.Infer(&constModel{value: 0.75}, a, b)

	if err != nil {
		t.Fatalf("infer failed: %v", err)
	}

	defer score.Close()

	if score.Rows() != 40 || score.Cols() != 40 {
		t.Fatalf("score map is %dx%d, want 40x40", score.Cols(), score.Rows())
	}

	// every pixel was covered by some tile
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			if v := score.GetFloatAt(y, x); v != 0.75 {
				t.Fatalf("pixel (%d,%d) = %v, want 0.75", x, y, v)
			}
		}
	}
}

func TestTilerInferShapeMismatch(t *testing.T) {

	tiler, _ := NewTiler(16, 16, 0)

	a := gocv.NewMatWithSize(32, 32, gocv.MatTypeCV8UC3)
	defer a.Close()

	b := gocv.NewMatWithSize(16, 16, gocv.MatTypeCV8UC3)
	defer b.Close()

	if _, err := tiler.Infer(&constModel{value: 1}, a, b); err == nil {
		t.Error("expected error for mismatched scene pair")
	}
}
