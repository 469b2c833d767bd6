// Package regions vectorizes binary change masks into polygon regions.
// Regions can be filtered by area, expanded, and union merged, which
// also collapses the duplicate detections tiled inference produces along
// tile seams.
package regions

import (
	"fmt"
	"image"
	"math"

	clipper "github.com/ctessum/go.clipper"
	"gocv.io/x/gocv"
)

// Region is one connected changed area of the scene
type Region struct {
	// Polygon is the region outline in pixel coordinates
	Polygon []image.Point
	// BBox is the axis aligned bounding box of the polygon
	BBox image.Rectangle
	// Area is the polygon area in pixels
	Area float64
}

// ExtractorParams configures region extraction
type ExtractorParams struct {
	// MinArea drops regions smaller than this many pixels, speckle from
	// sensor noise rather than real change
	MinArea float64
	// ExpandRatio grows each polygon outline by area/perimeter times
	// this ratio so fragmented detections of one object join up during
	// the merge step.  0 disables expansion
	ExpandRatio float64
	// Merge union merges overlapping polygons after expansion
	Merge bool
}

// DefaultExtractorParams returns the extraction parameters used for
// building change inventories
func DefaultExtractorParams() ExtractorParams {
	return ExtractorParams{
		MinArea:     16,
		ExpandRatio: 0.1,
		Merge:       true,
	}
}

// Extract vectorizes a CV8UC1 binary change mask into regions
func Extract(mask gocv.Mat, params ExtractorParams) ([]Region, error) {

	if mask.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("change mask must be CV8UC1, got %d", mask.Type())
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal,
		gocv.ChainApproxSimple)
	defer contours.Close()

	var polys []clipper.Path

	for i := 0; i < contours.Size(); i++ {

		contour := contours.At(i)

		if gocv.ContourArea(contour) < params.MinArea {
			continue
		}

		poly := pathFromContour(contour)

		if params.ExpandRatio > 0 {
			poly = expand(poly, params.ExpandRatio)
		}

		if len(poly) >= 3 {
			polys = append(polys, poly)
		}
	}

	if params.Merge {
		polys = mergePaths(polys)
	}

	regions := make([]Region, 0, len(polys))

	for _, poly := range polys {

		r := regionFromPath(poly)

		if r.Area < params.MinArea {
			continue
		}

		regions = append(regions, r)
	}

	return regions, nil
}

// pathFromContour converts a gocv contour to a clipper path
func pathFromContour(contour gocv.PointVector) clipper.Path {

	path := make(clipper.Path, 0, contour.Size())

	for i := 0; i < contour.Size(); i++ {
		pt := contour.At(i)
		path = append(path, &clipper.IntPoint{
			X: clipper.CInt(pt.X),
			Y: clipper.CInt(pt.Y),
		})
	}

	return path
}

// expand offsets a polygon outwards by area/perimeter scaled with the
// expand ratio, the unclip distance used in detection post processing
func expand(poly clipper.Path, ratio float64) clipper.Path {

	area := math.Abs(pathArea(poly))
	perimeter := pathPerimeter(poly)

	if perimeter == 0 {
		return poly
	}

	distance := area * ratio / perimeter

	co := clipper.NewClipperOffset()
	co.AddPath(poly, clipper.JtRound, clipper.EtClosedPolygon)

	solution := co.Execute(distance)

	if len(solution) == 0 {
		return poly
	}

	// the offset of a single closed polygon yields one outer path first
	return solution[0]
}

// mergePaths union merges overlapping polygons
func mergePaths(polys []clipper.Path) []clipper.Path {

	if len(polys) < 2 {
		return polys
	}

	c := clipper.NewClipper(clipper.IoNone)
	c.AddPaths(polys, clipper.PtSubject, true)

	solution, ok := c.Execute1(clipper.CtUnion, clipper.PftNonZero,
		clipper.PftNonZero)

	if !ok {
		return polys
	}

	return solution
}

// regionFromPath builds a Region with its bounding box and area from a
// clipper path
func regionFromPath(path clipper.Path) Region {

	poly := make([]image.Point, 0, len(path))

	for _, pt := range path {
		poly = append(poly, image.Pt(int(pt.X), int(pt.Y)))
	}

	return Region{
		Polygon: poly,
		BBox:    boundingBox(poly),
		Area:    math.Abs(pathArea(path)),
	}
}

// pathArea is the signed shoelace area of a closed polygon
func pathArea(path clipper.Path) float64 {

	if len(path) < 3 {
		return 0
	}

	var sum float64

	for i := range path {
		j := (i + 1) % len(path)
		sum += float64(path[i].X)*float64(path[j].Y) -
			float64(path[j].X)*float64(path[i].Y)
	}

	return sum / 2
}

// pathPerimeter is the length of the closed polygon outline
func pathPerimeter(path clipper.Path) float64 {

	var sum float64

	for i := range path {
		j := (i + 1) % len(path)
		dx := float64(path[j].X - path[i].X)
		dy := float64(path[j].Y - path[i].Y)
		sum += math.Sqrt(dx*dx + dy*dy)
	}

	return sum
}

// boundingBox returns the axis aligned bounds of a polygon
func boundingBox(poly []image.Point) image.Rectangle {

	if len(poly) == 0 {
		return image.Rectangle{}
	}

	box := image.Rectangle{Min: poly[0], Max: poly[0]}

	for _, pt := range poly[1:] {

		if pt.X < box.Min.X {
			box.Min.X = pt.X
		}

		if pt.Y < box.Min.Y {
			box.Min.Y = pt.Y
		}

		if pt.X > box.Max.X {
			box.Max.X = pt.X
		}

		if pt.Y > box.Max.Y {
			box.Max.Y = pt.Y
		}
	}

	// image.Rectangle is exclusive of Max
	box.Max.X++
	box.Max.Y++

	return box
}

// TotalArea sums the area of all regions, the changed surface of the
// scene in pixels
func TotalArea(regions []Region) float64 {

	var sum float64

	for _, r := range regions {
		sum += r.Area
	}

	return sum
}
