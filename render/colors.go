package render

import "image/color"

var (
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}

	// ChangeColor paints changed pixels in the mask overlay
	ChangeColor = color.RGBA{R: 255, G: 56, B: 56, A: 255} // #FF3838
	// OutlineColor draws region outlines and boxes
	OutlineColor = color.RGBA{R: 255, G: 178, B: 29, A: 255} // #FFB21D
)
