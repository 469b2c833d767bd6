package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	changedet "github.com/terralab/go-changedet"
	"github.com/terralab/go-changedet/dataset"
	"github.com/terralab/go-changedet/history"
	"github.com/terralab/go-changedet/model"
	"gocv.io/x/gocv"
)

// datasetSource feeds prediction and ground truth label pairs from a
// dataset split.  Predictions come from a change detection model, or when
// maskDir is set from pre-computed mask images stored under the sample name
type datasetSource struct {
	reader  *dataset.Reader
	model   model.Model
	thresh  float32
	maskDir string
}

func (d *datasetSource) Next() (changedet.LabelBatch, error) {

	sample, err := d.reader.Next()

	if err != nil {
		return changedet.LabelBatch{}, err
	}

	defer sample.Close()

	if d.maskDir != "" {
		return d.maskBatch(sample)
	}

	score, err := d.model.Infer(sample.A, sample.B)

	if err != nil {
		return changedet.LabelBatch{}, err
	}

	defer score.Close()

	thresh := d.thresh

	if thresh < 0 {
		thresh, err = model.OtsuThreshold(score)

		if err != nil {
			return changedet.LabelBatch{}, err
		}
	}

	pred, err := model.Binarize(score, thresh)

	if err != nil {
		return changedet.LabelBatch{}, err
	}

	defer pred.Close()

	return changedet.LabelBatch{
		Pred:  pred.ToBytes(),
		Truth: sample.Label.ToBytes(),
	}, nil
}

// maskBatch loads a pre-computed prediction mask for the sample and
// binarizes it the same way ground truth labels are
func (d *datasetSource) maskBatch(sample dataset.Sample) (changedet.LabelBatch, error) {

	maskFile := filepath.Join(d.maskDir, sample.Name)

	mask := gocv.IMRead(maskFile, gocv.IMReadGrayScale)

	if mask.Empty() {
		return changedet.LabelBatch{},
			fmt.Errorf("error reading mask from: %s", maskFile)
	}

	defer mask.Close()

	gocv.Threshold(mask, &mask, 127, 1, gocv.ThresholdBinary)

	return changedet.LabelBatch{
		Pred:  mask.ToBytes(),
		Truth: sample.Label.ToBytes(),
	}, nil
}

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	dataRoot := flag.String("d", "../data/levir-cd", "Dataset root directory")
	split := flag.String("s", "test", "Dataset split to evaluate")
	thresh := flag.Float64("t", -1, "Binarization threshold, negative selects Otsu per image")
	maskDir := flag.String("p", "", "Directory of pre-computed prediction masks, skips model inference")
	workers := flag.Int("w", 4, "Number of accumulator workers")
	dbFile := flag.String("db", "", "Optional SQLite file to record the run in")
	flag.Parse()

	reader, err := dataset.NewReader(dataset.ReaderParams{
		Root:  *dataRoot,
		Split: *split,
	})

	if err != nil {
		log.Fatal("Error opening dataset: ", err)
	}

	cva := model.NewCVA()
	defer cva.Close()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	sinks := changedet.MultiSink{changedet.NewZerologSink(logger)}

	// optionally record the run in a history database
	var store *history.Store
	var runID string

	if *dbFile != "" {

		store, err = history.Open(*dbFile)

		if err != nil {
			log.Fatal("Error opening history database: ", err)
		}

		defer store.Close()

		runID, err = store.StartRun(*split, changedet.BinaryConfig())

		if err != nil {
			log.Fatal("Error starting run: ", err)
		}

		sinks = append(sinks, store.Sink(runID))
	}

	tracker := changedet.NewBestTracker(changedet.KeyMeanIoU)

	eval, err := changedet.NewEvaluator(changedet.EvaluatorParams{
		Config:  changedet.BinaryConfig(),
		Workers: *workers,
		Sink:    sinks,
		Tracker: tracker,
	})

	if err != nil {
		log.Fatal("Error creating evaluator: ", err)
	}

	src := &datasetSource{
		reader:  reader,
		model:   cva,
		thresh:  float32(*thresh),
		maskDir: *maskDir,
	}

	result, saved, err := eval.RunEpoch(1, src, "cva")

	if err != nil {
		log.Fatal("Evaluation failed: ", err)
	}

	names := changedet.DefaultClassNames()

	log.Printf("evaluated %d samples, %d pixels", reader.Len(), result.Pixels)
	log.Printf("overall accuracy: %.4f  mean IoU: %.4f  kappa: %.4f",
		result.OverallAccuracy, result.MeanIoU, result.Kappa)

	for i, name := range names {
		log.Printf("%12s: IoU %.4f  acc %.4f  F1 %.4f",
			name, result.IoU[i], result.Accuracy[i], result.F1[i])
	}

	if saved && store != nil {

		best, _ := tracker.Best()

		err = store.RecordBest(runID, best)

		if err != nil {
			log.Fatal("Error recording best: ", err)
		}
	}

	log.Println("done")
}
