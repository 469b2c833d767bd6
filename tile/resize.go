package tile

import (
	"image"

	"gocv.io/x/gocv"
)

// Resizer scales a co-registered image pair down to a model input size
// whilst maintaining image aspect.  No letterbox padding is applied as
// padded borders would enter the per pixel evaluation, the output
// dimensions follow the limiting axis instead
type Resizer struct {
	// srcWidth is the width of the source images
	srcWidth int
	// srcHeight is the height of the source images
	srcHeight int
	// maxWidth is the width limit to scale to
	maxWidth int
	// maxHeight is the height limit to scale to
	maxHeight int
	// scale factor applied to both axes
	scale float32
	// resize dimensions
	resizeW int
	resizeH int
}

// NewResizer returns a resizer scaling source dimensions down to fit the
// given limits.  Sources already inside the limits keep their size
func NewResizer(srcWidth, srcHeight, maxWidth, maxHeight int) *Resizer {

	r := &Resizer{
		srcWidth:  srcWidth,
		srcHeight: srcHeight,
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
	}

	// precalculate scaling dimensions
	r.preCalc()

	return r
}

// preCalc the scaling factor and destination dimensions
func (r *Resizer) preCalc() {

	scaleW := float32(r.maxWidth) / float32(r.srcWidth)
	scaleH := float32(r.maxHeight) / float32(r.srcHeight)

	r.scale = scaleW

	if scaleH < scaleW {
		r.scale = scaleH
	}

	if r.scale >= 1 {
		r.scale = 1
	}

	r.resizeW = int(float32(r.srcWidth) * r.scale)
	r.resizeH = int(float32(r.srcHeight) * r.scale)
}

// Scale returns the factor applied to both axes
func (r *Resizer) Scale() float32 {
	return r.scale
}

// Dims returns the scaled width and height
func (r *Resizer) Dims() (int, int) {
	return r.resizeW, r.resizeH
}

// ScalePair resizes both acquisitions with the same factor so they stay
// co-registered
func (r *Resizer) ScalePair(a, b gocv.Mat, destA, destB *gocv.Mat) {

	gocv.Resize(a, destA, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationArea)
	gocv.Resize(b, destB, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationArea)
}

// RestoreScore resizes a score map computed at the scaled dimensions back
// up to the source dimensions
func (r *Resizer) RestoreScore(score gocv.Mat, dest *gocv.Mat) {

	gocv.Resize(score, dest, image.Pt(r.srcWidth, r.srcHeight),
		0, 0, gocv.InterpolationLinear)
}
