package receiver

import "golang.org/x/sync/errgroup"

// WorkerPool bounds how many batches are processed concurrently across all
// three signal handlers. Do blocks the calling RPC goroutine until a slot
// is free, runs fn, and returns its error — the pool itself never
// terminates, so one batch's error never cancels another's in flight.
type WorkerPool struct {
	g *errgroup.Group
}

// NewWorkerPool constructs a pool that runs at most size batches at once.
func NewWorkerPool(size int) *WorkerPool {
	g := new(errgroup.Group)
	g.SetLimit(size)
	return &WorkerPool{g: g}
}

// Do acquires a slot, runs fn, and returns its result. The caller's
// goroutine blocks on the slot acquisition, not on unrelated work.
func (p *WorkerPool) Do(fn func() error) error {
	done := make(chan error, 1)
	p.g.Go(func() error {
		done <- fn()
		return nil
	})
	return <-done
}
