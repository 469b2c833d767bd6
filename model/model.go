// Package model defines how change detection models plug into the
// toolkit and ships a classical change vector analysis baseline.
//
// A Model maps two co-registered images to a per pixel change score map.
// Neural models exported from a training framework sit behind the same
// interface, the score map decode helpers convert their raw output
// buffers into the Mat form the rest of the pipeline consumes.
package model

import (
	"gocv.io/x/gocv"
)

// Model maps two co-registered images of the same area taken at different
// times to a single channel float32 change score map in [0,1], same
// dimensions as the inputs.  Higher scores mean more likely changed
type Model interface {
	// Infer runs the model on image pair a (earlier) and b (later).
	// The caller owns the returned Mat and must Close it
	Infer(a, b gocv.Mat) (gocv.Mat, error)
	// Close releases resources held by the model
	Close() error
}
