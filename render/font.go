package render

import (
	"gocv.io/x/gocv"
	"image/color"
)

// Font defines the parameters for rendering region labels on an image
// using GoCV
type Font struct {
	Face  gocv.HersheyFont
	Scale float64
	// Color the label text is written in
	Color color.RGBA
	// Background fills the box the label text is written on
	Background color.RGBA
	Thickness  int
	LineType   gocv.LineType
	// Padding to place around text
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
}

// DefaultFont returns font settings for region labels, white text on the
// outline color
func DefaultFont() Font {
	return Font{
		Face:       gocv.FontHersheySimplex,
		Scale:      0.5,
		Color:      White,
		Background: OutlineColor,
		Thickness:  1,
		LineType:   gocv.LineAA,
		LeftPad:    4,
		RightPad:   4,
		TopPad:     4,
		BottomPad:  6,
	}
}
