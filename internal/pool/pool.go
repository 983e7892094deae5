// Package pool runs tasks with bounded concurrency.
package pool

import (
	"context"
	"sync"
	"sync/atomic"
)

// Stats counts the tasks a pool ran.
type Stats struct {
	Processed int64
	Failed    int64
}

// Pool runs at most Size tasks at the same time.
type Pool struct {
	sem chan struct{} // Semaphore for bounded concurrency
	wg  sync.WaitGroup

	processed atomic.Int64
	failed    atomic.Int64
}

// New returns a pool for size concurrent tasks. Sizes smaller than 1 are taken as 1.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Size returns the maximum number of concurrent tasks.
func (p *Pool) Size() int {
	return cap(p.sem)
}

// Submit runs task in a new goroutine as soon as there is a free slot.
// It blocks until then, or until ctx is done, in which case the task is
// not run and ctx.Err() is returned.
func (p *Pool) Submit(ctx context.Context, task func() error) error {
	// Checked first, as select picks randomly among ready cases.
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.sem <- struct{}{}:
		// Got a slot
	case <-ctx.Done():
		return ctx.Err()
	}

	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.sem // Release semaphore
			p.wg.Done()
		}()
		err := task()
		p.processed.Add(1)
		if err != nil {
			p.failed.Add(1)
		}
	}()
	return nil
}

// Wait waits for all submitted tasks to finish and returns the counts.
func (p *Pool) Wait() Stats {
	p.wg.Wait()
	return Stats{Processed: p.processed.Load(), Failed: p.failed.Load()}
}

// ForEach calls fn(i) for i from 0 to n-1, in order, with at most size
// calls running at the same time. Errors returned by fn are only counted.
// If ctx is done, no more calls are started, the running ones are waited
// for, and ctx.Err() is returned.
func ForEach(ctx context.Context, size, n int, fn func(i int) error) (Stats, error) {
	p := New(size)
	var err error
	for i := range n {
		if err = p.Submit(ctx, func() error { return fn(i) }); err != nil {
			break
		}
	}
	return p.Wait(), err
}
