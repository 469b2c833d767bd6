// Package render draws change detection results on images: alpha blended
// change mask overlays, region outlines and labelled bounding boxes.
package render

import (
	"fmt"
	"image"

	"github.com/terralab/go-changedet/regions"
	"gocv.io/x/gocv"
)

// ChangeMask renders the binary change mask as a transparent overlay on
// top of the whole image.  mask holds one value per pixel with non zero
// meaning changed
func ChangeMask(img *gocv.Mat, mask []uint8, alpha float32) error {

	width := img.Cols()
	height := img.Rows()

	if len(mask) != width*height {
		return fmt.Errorf("mask holds %d pixels, image is %dx%d",
			len(mask), width, height)
	}

	// it is too slow to manipulate pixel by pixel using GoCV due to
	// slowness over CGO.  So we copy the bytes from the source image and
	// manipulate the bytes directly before copying back to a Mat
	imgData := img.ToBytes()

	for j := 0; j < height; j++ {
		for k := 0; k < width; k++ {

			idx := j*width + k

			if mask[idx] == 0 {
				continue
			}

			// calculate position in the byte slice
			pixelPos := j*width*3 + k*3

			// get original pixel colors directly from the byte slice
			b, g, r := imgData[pixelPos+0], imgData[pixelPos+1], imgData[pixelPos+2]

			// blend the change color over the original pixel
			imgData[pixelPos+0] = uint8(float32(b)*(1-alpha) + float32(ChangeColor.B)*alpha)
			imgData[pixelPos+1] = uint8(float32(g)*(1-alpha) + float32(ChangeColor.G)*alpha)
			imgData[pixelPos+2] = uint8(float32(r)*(1-alpha) + float32(ChangeColor.R)*alpha)
		}
	}

	// copy back to the original mat
	tmpImg, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, imgData)

	if err != nil {
		return fmt.Errorf("error creating overlay Mat: %w", err)
	}

	defer tmpImg.Close()

	tmpImg.CopyTo(img)

	return nil
}

// RegionOutlines draws the polygon outline of each change region
func RegionOutlines(img *gocv.Mat, regs []regions.Region, lineThickness int) {

	for _, reg := range regs {

		if len(reg.Polygon) < 2 {
			continue
		}

		pts := gocv.NewPointsVectorFromPoints([][]image.Point{reg.Polygon})

		gocv.Polylines(img, pts, true, OutlineColor, lineThickness)

		pts.Close()
	}
}

// RegionBoxes draws a labelled bounding box around each change region.
// The label carries the region index and its area in pixels
func RegionBoxes(img *gocv.Mat, regs []regions.Region, font Font,
	lineThickness int) {

	// draw all boxes first so labels end up the top most layer
	for _, reg := range regs {
		gocv.Rectangle(img, reg.BBox, OutlineColor, lineThickness)
	}

	for i, reg := range regs {

		text := fmt.Sprintf("change %d: %.0fpx", i+1, reg.Area)
		textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

		labelPos := image.Pt(reg.BBox.Min.X+font.LeftPad,
			reg.BBox.Min.Y-font.BottomPad)

		// box the text gets written on
		bRect := image.Rect(reg.BBox.Min.X,
			reg.BBox.Min.Y-textSize.Y-font.TopPad-font.BottomPad,
			reg.BBox.Min.X+textSize.X+font.LeftPad+font.RightPad,
			reg.BBox.Min.Y)

		gocv.Rectangle(img, bRect, font.Background, -1)

		gocv.PutTextWithParams(img, text, labelPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}
