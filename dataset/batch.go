package dataset

import (
	"fmt"

	"gocv.io/x/gocv"
)

// PairBatch concatenates the two temporal images of a batch of samples
// into a pair of single NHWC float32 Mats for batched model input, and
// keeps the flat ground truth labels of each slot for evaluation
type PairBatch struct {
	// aMat and bMat are the NHWC concatenated batch Mats for the earlier
	// and later images
	aMat gocv.Mat
	bMat gocv.Mat
	// size of the batch
	size int
	// width is the model input width
	width int
	// height is the model input height
	height int
	// channels is the image channel count
	channels int
	// matCnt counts how many samples have been added with Add()
	matCnt int
	// imgSize is one images element count
	imgSize int
	// labels holds the flat ground truth labels per filled slot
	labels [][]uint8
	// names holds the sample name per filled slot
	names []string
}

// NewPairBatch creates a batch of concatenated image pairs for the given
// model input dimensions and batch size
func NewPairBatch(batchSize, height, width, channels int) *PairBatch {

	shape := []int{batchSize, height, width, channels}

	return &PairBatch{
		size:     batchSize,
		height:   height,
		width:    width,
		channels: channels,
		aMat:     gocv.NewMatWithSizes(shape, gocv.MatTypeCV32F),
		bMat:     gocv.NewMatWithSizes(shape, gocv.MatTypeCV32F),
		imgSize:  height * width * channels,
		labels:   make([][]uint8, 0, batchSize),
		names:    make([]string, 0, batchSize),
	}
}

// Add copies a samples image pair into the next batch slot and records
// its label pixels
func (p *PairBatch) Add(s Sample) error {

	if p.matCnt >= p.size {
		return fmt.Errorf("batch full")
	}

	if s.A.Rows() != p.height || s.A.Cols() != p.width ||
		s.A.Channels() != p.channels {
		return fmt.Errorf("sample %s does not match batch shape", s.Name)
	}

	if err := p.copyInto(&p.aMat, s.A); err != nil {
		return fmt.Errorf("error adding image A of %s: %w", s.Name, err)
	}

	if err := p.copyInto(&p.bMat, s.B); err != nil {
		return fmt.Errorf("error adding image B of %s: %w", s.Name, err)
	}

	label, err := flatLabel(s.Label)

	if err != nil {
		return fmt.Errorf("error reading label of %s: %w", s.Name, err)
	}

	p.labels = append(p.labels, label)
	p.names = append(p.names, s.Name)
	p.matCnt++

	return nil
}

// copyInto converts img to float32 and copies it into the current slot of
// the destination batch Mat
func (p *PairBatch) copyInto(dst *gocv.Mat, img gocv.Mat) error {

	f32 := gocv.NewMat()
	defer f32.Close()

	img.ConvertTo(&f32, gocv.MatTypeCV32F)

	src, err := f32.DataPtrFloat32()

	if err != nil {
		return fmt.Errorf("error getting float32 data from image: %w", err)
	}

	dstAll, err := dst.DataPtrFloat32()

	if err != nil {
		return fmt.Errorf("error accessing float32 batch memory: %w", err)
	}

	offset := p.matCnt * p.imgSize
	copy(dstAll[offset:], src)

	return nil
}

// flatLabel copies a CV8UC1 label Mat to a flat pixel slice
func flatLabel(label gocv.Mat) ([]uint8, error) {

	if !label.IsContinuous() {
		label = label.Clone()
		defer label.Close()
	}

	data, err := label.DataPtrUint8()

	if err != nil {
		return nil, fmt.Errorf("error getting data pointer to label Mat: %w", err)
	}

	dup := make([]uint8, len(data))
	copy(dup, data)

	return dup, nil
}

// Len returns how many samples the batch currently holds
func (p *PairBatch) Len() int {
	return p.matCnt
}

// Mats returns the two NHWC concatenated batch Mats
func (p *PairBatch) Mats() (a, b gocv.Mat) {
	return p.aMat, p.bMat
}

// Label returns the flat ground truth labels of the given slot
func (p *PairBatch) Label(idx int) ([]uint8, error) {

	if idx < 0 || idx >= p.matCnt {
		return nil, fmt.Errorf("index %d out of range [0-%d)", idx, p.matCnt)
	}

	return p.labels[idx], nil
}

// Name returns the sample name of the given slot
func (p *PairBatch) Name(idx int) (string, error) {

	if idx < 0 || idx >= p.matCnt {
		return "", fmt.Errorf("index %d out of range [0-%d)", idx, p.matCnt)
	}

	return p.names[idx], nil
}

// Clear the batch so it can be reused again.  The underlying batch Mats
// are not zeroed, Add() overwrites the slots with the new images
func (p *PairBatch) Clear() {
	p.matCnt = 0
	p.labels = p.labels[:0]
	p.names = p.names[:0]
}

// Close the batch and free allocated memory
func (p *PairBatch) Close() error {

	if err := p.aMat.Close(); err != nil {
		return err
	}

	return p.bMat.Close()
}
