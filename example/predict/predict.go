package main

import (
	"flag"
	"log"

	"github.com/terralab/go-changedet/model"
	"github.com/terralab/go-changedet/regions"
	"github.com/terralab/go-changedet/render"
	"github.com/terralab/go-changedet/tile"
	"gocv.io/x/gocv"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	aFile := flag.String("a", "../data/before.png", "Image of the earlier acquisition")
	bFile := flag.String("b", "../data/after.png", "Image of the later acquisition")
	outFile := flag.String("o", "change.png", "Output image file")
	thresh := flag.Float64("t", -1, "Binarization threshold, negative selects Otsu")
	tileSize := flag.Int("ts", 512, "Tile size for large scenes")
	overlap := flag.Float64("ov", 0.1, "Tile overlap ratio")
	maxSize := flag.Int("max", 0, "Downscale scenes to fit this size before inference, 0 keeps full resolution")
	fontFile := flag.String("f", "", "Optional TTF font for the output banner")
	flag.Parse()

	// load both acquisitions
	imgA := gocv.IMRead(*aFile, gocv.IMReadColor)

	if imgA.Empty() {
		log.Fatal("Error reading image from: ", *aFile)
	}

	imgB := gocv.IMRead(*bFile, gocv.IMReadColor)

	if imgB.Empty() {
		log.Fatal("Error reading image from: ", *bFile)
	}

	defer imgA.Close()
	defer imgB.Close()

	cva := model.NewCVA()
	defer cva.Close()

	// optionally downscale the pair before inference, keeping both
	// acquisitions co-registered.  results are restored to and drawn at
	// the original resolution
	var resizer *tile.Resizer

	fullB := imgB

	if *maxSize > 0 {

		resizer = tile.NewResizer(imgA.Cols(), imgA.Rows(), *maxSize, *maxSize)

		scaledA := gocv.NewMat()
		scaledB := gocv.NewMat()

		resizer.ScalePair(imgA, imgB, &scaledA, &scaledB)

		defer scaledA.Close()
		defer scaledB.Close()

		imgA = scaledA
		imgB = scaledB
	}

	// tile large scenes, small ones go through the model whole
	var score gocv.Mat
	var err error

	if imgA.Cols() > *tileSize || imgA.Rows() > *tileSize {

		tiler, terr := tile.NewTiler(*tileSize, *tileSize, float32(*overlap))

		if terr != nil {
			log.Fatal("Error creating tiler: ", terr)
		}

		score, err = tiler.Infer(cva, imgA, imgB)

	} else {
		score, err = cva.Infer(imgA, imgB)
	}

	if err != nil {
		log.Fatal("Inference failed: ", err)
	}

	// bring the score map back up to the original resolution
	if resizer != nil {

		restored := gocv.NewMat()
		resizer.RestoreScore(score, &restored)

		score.Close()
		score = restored
	}

	defer score.Close()

	// binarize the score map
	t := float32(*thresh)

	if t < 0 {

		t, err = model.OtsuThreshold(score)

		if err != nil {
			log.Fatal("Otsu threshold failed: ", err)
		}

		log.Printf("otsu threshold: %.4f", t)
	}

	mask, err := model.Binarize(score, t)

	if err != nil {
		log.Fatal("Binarize failed: ", err)
	}

	defer mask.Close()

	// extract change regions from the mask
	regs, err := regions.Extract(mask, regions.DefaultExtractorParams())

	if err != nil {
		log.Fatal("Region extraction failed: ", err)
	}

	log.Printf("found %d change regions, %.0f pixels total",
		len(regs), regions.TotalArea(regs))

	// draw results on the later acquisition at original resolution
	out := fullB.Clone()
	defer out.Close()

	err = render.ChangeMask(&out, mask.ToBytes(), 0.4)

	if err != nil {
		log.Fatal("Error rendering change mask: ", err)
	}

	render.RegionOutlines(&out, regs, 1)
	render.RegionBoxes(&out, regs, render.DefaultFont(), 1)

	if *fontFile != "" {

		writer, werr := render.NewTTFWriter(*fontFile, 16)

		if werr != nil {
			log.Fatal("Error loading font: ", werr)
		}

		defer writer.Close()

		err = writer.DrawLabel(&out, "change detection", 8, 24)

		if err != nil {
			log.Fatal("Error drawing banner: ", err)
		}
	}

	if ok := gocv.IMWrite(*outFile, out); !ok {
		log.Fatal("Error writing output image to: ", *outFile)
	}

	log.Println("done")
}
