// Package dataset reads bi-temporal change detection datasets laid out
// the LEVIR-CD way: an A directory with the earlier images, a B directory
// with the later images, a label directory with the ground truth change
// masks, and a list directory holding one name list per split.
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
)

// Sample is one image pair with its ground truth change mask
type Sample struct {
	// Name is the file name shared by the triplet
	Name string
	// A is the earlier image
	A gocv.Mat
	// B is the later image
	B gocv.Mat
	// Label is the CV8UC1 ground truth change mask with values 0 and 1
	Label gocv.Mat
}

// Close releases the sample Mats
func (s *Sample) Close() {
	s.A.Close()
	s.B.Close()
	s.Label.Close()
}

// ReaderParams configures a dataset reader
type ReaderParams struct {
	// Root is the dataset directory containing A, B, label and list
	Root string
	// Split selects the name list, eg "train", "val" or "test"
	Split string
	// Augmenter is applied to every sample when set
	Augmenter *Augmenter
}

// Reader iterates the image pair and label triplets of one dataset split
type Reader struct {
	params ReaderParams
	// names holds the triplet file names in list order
	names []string
	// next is the index of the next triplet to load
	next int
}

// NewReader opens the split name list and returns a reader over its
// triplets
func NewReader(params ReaderParams) (*Reader, error) {

	listFile := filepath.Join(params.Root, "list", params.Split+".txt")

	names, err := readNameList(listFile)

	if err != nil {
		return nil, fmt.Errorf("error reading split list: %w", err)
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("split list %s is empty", listFile)
	}

	return &Reader{
		params: params,
		names:  names,
	}, nil
}

// readNameList reads one triplet file name per line
func readNameList(file string) ([]string, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var names []string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		names = append(names, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return names, nil
}

// Len returns the number of triplets in the split
func (r *Reader) Len() int {
	return len(r.names)
}

// Reset rewinds the reader to the first triplet for the next epoch
func (r *Reader) Reset() {
	r.next = 0
}

// Shuffle permutes the triplet order in place, usually between epochs
func (r *Reader) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(r.names), func(i, j int) {
		r.names[i], r.names[j] = r.names[j], r.names[i]
	})
}

// Next loads the next triplet.  It returns io.EOF once the split is
// exhausted.  The caller owns the sample Mats and must Close them
func (r *Reader) Next() (Sample, error) {

	if r.next >= len(r.names) {
		return Sample{}, io.EOF
	}

	name := r.names[r.next]
	r.next++

	sample, err := r.load(name)

	if err != nil {
		return Sample{}, err
	}

	if r.params.Augmenter != nil {
		r.params.Augmenter.Apply(&sample)
	}

	return sample, nil
}

// load reads and validates one triplet from disk
func (r *Reader) load(name string) (Sample, error) {

	a := gocv.IMRead(filepath.Join(r.params.Root, "A", name), gocv.IMReadColor)

	if a.Empty() {
		return Sample{}, fmt.Errorf("error reading image A/%s", name)
	}

	b := gocv.IMRead(filepath.Join(r.params.Root, "B", name), gocv.IMReadColor)

	if b.Empty() {
		a.Close()
		return Sample{}, fmt.Errorf("error reading image B/%s", name)
	}

	label := gocv.IMRead(filepath.Join(r.params.Root, "label", name),
		gocv.IMReadGrayScale)

	if label.Empty() {
		a.Close()
		b.Close()
		return Sample{}, fmt.Errorf("error reading label/%s", name)
	}

	if a.Rows() != b.Rows() || a.Cols() != b.Cols() ||
		a.Rows() != label.Rows() || a.Cols() != label.Cols() {
		a.Close()
		b.Close()
		label.Close()
		return Sample{}, fmt.Errorf("triplet %s dimensions disagree", name)
	}

	binarizeLabel(&label)

	return Sample{
		Name:  name,
		A:     a,
		B:     b,
		Label: label,
	}, nil
}

// binarizeLabel maps the 0/255 masks the datasets ship to 0/1 class
// labels in place
func binarizeLabel(label *gocv.Mat) {
	gocv.Threshold(*label, label, 127, 1, gocv.ThresholdBinary)
}
