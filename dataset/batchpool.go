package dataset

import (
	"sync"
)

// BatchPool is a pool of reusable PairBatches so the concatenated batch
// Mats are allocated once and reused across workers and epochs
type BatchPool struct {
	// pool of batches
	batches chan *PairBatch
	// size of pool
	size  int
	close sync.Once
}

// NewBatchPool returns a pool of size PairBatches with the given batch
// dimensions
func NewBatchPool(size, batchSize, height, width, channels int) *BatchPool {

	p := &BatchPool{
		batches: make(chan *PairBatch, size),
		size:    size,
	}

	for i := 0; i < size; i++ {
		p.Return(NewPairBatch(batchSize, height, width, channels))
	}

	return p
}

// Get a batch from the pool, blocking until one is returned
func (p *BatchPool) Get() *PairBatch {
	return <-p.batches
}

// Return a cleared batch to the pool
func (p *BatchPool) Return(batch *PairBatch) {

	batch.Clear()

	select {
	case p.batches <- batch:
	default:
		// pool is full or closed
		_ = batch.Close()
	}
}

// Close the pool and free all batches in it
func (p *BatchPool) Close() {
	p.close.Do(func() {
		// close channel
		close(p.batches)

		// free all batches
		for next := range p.batches {
			_ = next.Close()
		}
	})
}
