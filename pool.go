package changedet

import (
	"sync"
	"sync/atomic"
)

// LabelBatch is one batch of flat predicted and ground truth label pixels
// queued for accumulation
type LabelBatch struct {
	Pred  []uint8
	Truth []uint8
}

// AccumulatorPool accumulates label batches into per worker partial
// confusion matrices in parallel.  Accumulation is pure addition into
// independent cells so disjoint batches can be processed in any order by
// any worker, the final matrix is the cell wise sum of the partials.
// This is the only safe parallelization point of an evaluation pass
type AccumulatorPool struct {
	// jobs is the batch queue drained by the workers
	jobs chan LabelBatch
	// partial holds one matrix per worker
	partial []*ConfusionMatrix
	// wg tracks running workers
	wg sync.WaitGroup
	// err records the first accumulation error, the pass fails fast and
	// later batches are discarded
	err     error
	errOnce sync.Once
	hasErr  atomic.Bool
	close   sync.Once
}

// NewAccumulatorPool starts size workers accumulating into private
// confusion matrices built from cfg
func NewAccumulatorPool(size int, cfg Config) (*AccumulatorPool, error) {

	if size < 1 {
		size = 1
	}

	p := &AccumulatorPool{
		jobs:    make(chan LabelBatch, size*2),
		partial: make([]*ConfusionMatrix, size),
	}

	for i := 0; i < size; i++ {

		m, err := NewConfusionMatrix(cfg)

		if err != nil {
			return nil, err
		}

		p.partial[i] = m
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	return p, nil
}

// worker drains the job queue into its private matrix
func (p *AccumulatorPool) worker(idx int) {

	defer p.wg.Done()

	for batch := range p.jobs {

		// after a failure remaining batches are drained and discarded
		if p.failed() {
			continue
		}

		_, err := p.partial[idx].Update(batch.Pred, batch.Truth)

		if err != nil {
			p.errOnce.Do(func() {
				p.err = err
				p.hasErr.Store(true)
			})
		}
	}
}

// failed reports whether an accumulation error has been recorded.  A stale
// false only means a worker accumulates one more batch into a matrix that
// will be discarded
func (p *AccumulatorPool) failed() bool {
	return p.hasErr.Load()
}

// Add queues one batch for accumulation.  It blocks when all workers are
// busy and the queue is full
func (p *AccumulatorPool) Add(batch LabelBatch) {
	p.jobs <- batch
}

// Reduce closes the queue, waits for the workers to finish and returns the
// cell wise sum of the partial matrices.  The first accumulation error is
// returned instead since a shape or label range bug invalidates the whole
// pass
func (p *AccumulatorPool) Reduce() (*ConfusionMatrix, error) {

	p.close.Do(func() {
		close(p.jobs)
	})

	p.wg.Wait()

	if p.err != nil {
		return nil, p.err
	}

	final := p.partial[0].Clone()

	for _, m := range p.partial[1:] {
		if err := final.Merge(m); err != nil {
			return nil, err
		}
	}

	return final, nil
}
