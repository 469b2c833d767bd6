// Package tile runs change detection models over scenes larger than
// their input size.  The co-registered image pair is cut into an
// overlapping tile grid, the model scores each tile pair, and the tile
// score maps are stitched back with max blending in the overlaps so
// changes on tile seams are not lost.
package tile

import (
	"fmt"
	"image"
	"math"

	"github.com/terralab/go-changedet/model"
	"gocv.io/x/gocv"
)

// Tile is one cell of the tile grid in source image coordinates
type Tile struct {
	// X is the coordinate of the tiles left edge
	X int
	// Y is the coordinate of the tiles top edge
	Y int
	// X2 is the coordinate of the tiles right edge
	X2 int
	// Y2 is the coordinate of the tiles bottom edge
	Y2 int
}

// Rect returns the tile as an image.Rectangle for Mat cropping
func (t Tile) Rect() image.Rectangle {
	return image.Rect(t.X, t.Y, t.X2, t.Y2)
}

// Tiler slices scenes into overlapping tiles matching a models input size
type Tiler struct {
	// tileWidth is the model input width
	tileWidth int
	// tileHeight is the model input height
	tileHeight int
	// overlap is the ratio from 0.0 to 1.0 of each tile dimension shared
	// with its neighbour.  A value of 0.2 overlaps 20% of the pixels
	overlap float32
}

// NewTiler returns a tiler cutting scenes into tileWidth x tileHeight
// tiles with the given overlap ratio
func NewTiler(tileWidth, tileHeight int, overlap float32) (*Tiler, error) {

	if tileWidth < 1 || tileHeight < 1 {
		return nil, fmt.Errorf("tile size %dx%d invalid", tileWidth, tileHeight)
	}

	if overlap < 0 || overlap >= 1 {
		return nil, fmt.Errorf("overlap ratio %v outside [0,1)", overlap)
	}

	return &Tiler{
		tileWidth:  tileWidth,
		tileHeight: tileHeight,
		overlap:    overlap,
	}, nil
}

// Grid returns the tile grid covering a srcWidth x srcHeight scene.
// Scenes no larger than one tile yield a single tile
func (t *Tiler) Grid(srcWidth, srcHeight int) []Tile {

	xs := positions(srcWidth, t.tileWidth, t.overlap)
	ys := positions(srcHeight, t.tileHeight, t.overlap)

	tiles := make([]Tile, 0, len(xs)*len(ys))

	for _, y := range ys {
		for _, x := range xs {

			x2 := x + t.tileWidth
			y2 := y + t.tileHeight

			if x2 > srcWidth {
				x2 = srcWidth
			}

			if y2 > srcHeight {
				y2 = srcHeight
			}

			tiles = append(tiles, Tile{X: x, Y: y, X2: x2, Y2: y2})
		}
	}

	return tiles
}

// positions returns the 0 based tile start coordinates along one axis.
// The step between tiles keeps at least the requested overlap and the
// last tile is clamped so the axis is fully covered without stepping
// past the source
func positions(srcLen, tileLen int, overlap float32) []int {

	if srcLen <= tileLen {
		return []int{0}
	}

	step := tileLen - int(math.Ceil(float64(tileLen)*float64(overlap)))

	if step < 1 {
		step = 1
	}

	var pos []int

	for x := 0; ; x += step {

		if x+tileLen >= srcLen {
			// final tile flush with the far edge
			pos = append(pos, srcLen-tileLen)
			break
		}

		pos = append(pos, x)
	}

	return pos
}

// Infer scores a full scene pair by running the model on every tile and
// stitching the tile score maps with max blending.  The caller owns the
// returned CV32F score map and must Close it
func (t *Tiler) Infer(m model.Model, a, b gocv.Mat) (gocv.Mat, error) {

	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		return gocv.NewMat(), fmt.Errorf("scene pair differs in shape: "+
			"%dx%d vs %dx%d", a.Cols(), a.Rows(), b.Cols(), b.Rows())
	}

	srcWidth := a.Cols()
	srcHeight := a.Rows()

	stitched := make([]float32, srcWidth*srcHeight)

	for _, tl := range t.Grid(srcWidth, srcHeight) {

		score, err := t.inferTile(m, a, b, tl)

		if err != nil {
			return gocv.NewMat(), fmt.Errorf("error scoring tile at (%d,%d): %w",
				tl.X, tl.Y, err)
		}

		blendMax(stitched, srcWidth, score, tl)
	}

	return model.ScoreMapFromFloat32(stitched, srcWidth, srcHeight)
}

// inferTile crops one tile from both images and runs the model on it
func (t *Tiler) inferTile(m model.Model, a, b gocv.Mat, tl Tile) ([]float32, error) {

	regionA := a.Region(tl.Rect())
	defer regionA.Close()

	regionB := b.Region(tl.Rect())
	defer regionB.Close()

	// region headers share the scene memory, models need their own
	// continuous crops
	cropA := regionA.Clone()
	defer cropA.Close()

	cropB := regionB.Clone()
	defer cropB.Close()

	scoreMat, err := m.Infer(cropA, cropB)

	if err != nil {
		return nil, err
	}

	defer scoreMat.Close()

	data, err := scoreMat.DataPtrFloat32()

	if err != nil {
		return nil, fmt.Errorf("error getting data pointer to score map: %w", err)
	}

	dup := make([]float32, len(data))
	copy(dup, data)

	return dup, nil
}

// blendMax writes a tile score map into the stitched scene buffer keeping
// the maximum score where tiles overlap
func blendMax(dst []float32, dstWidth int, tile []float32, tl Tile) {

	tileWidth := tl.X2 - tl.X

	for y := tl.Y; y < tl.Y2; y++ {
		for x := tl.X; x < tl.X2; x++ {

			v := tile[(y-tl.Y)*tileWidth+(x-tl.X)]
			idx := y*dstWidth + x

			if v > dst[idx] {
				dst[idx] = v
			}
		}
	}
}
