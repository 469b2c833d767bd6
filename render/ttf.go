package render

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// TTFWriter renders text labels with a TTF font for annotations the
// Hershey fonts cannot cover, such as localized map legends
type TTFWriter struct {
	face font.Face
}

// NewTTFWriter loads the TTF font at the given path and creates a face
// at the requested point size
func NewTTFWriter(fontPath string, size float64) (*TTFWriter, error) {

	// load font data
	fontBytes, err := os.ReadFile(fontPath)

	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	// parse the font
	f, err := opentype.Parse(fontBytes)

	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}

	return &TTFWriter{face: face}, nil
}

// Close releases the font face
func (w *TTFWriter) Close() error {
	return w.face.Close()
}

// DrawLabel renders the text at position (x, y) on the image
func (w *TTFWriter) DrawLabel(img *gocv.Mat, text string, x, y int) error {

	// draw the text on a transparent RGBA layer the size of the image
	rgba := image.NewRGBA(image.Rect(0, 0, img.Cols(), img.Rows()))

	dr := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(White),
		Face: w.face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(x * 64),
			Y: fixed.Int26_6(y * 64),
		},
	}

	dr.DrawString(text)

	// convert image.RGBA to gocv.Mat
	layer, err := gocv.NewMatFromBytes(rgba.Bounds().Dy(), rgba.Bounds().Dx(),
		gocv.MatTypeCV8UC4, rgba.Pix)

	if layer.Empty() || err != nil {
		return fmt.Errorf("error creating Mat from RGBA layer")
	}

	defer layer.Close()

	gocv.CvtColor(layer, &layer, gocv.ColorRGBAToBGR)
	gocv.AddWeighted(*img, 1.0, layer, 1.0, 0, img)

	return nil
}
