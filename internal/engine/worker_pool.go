package engine

import (
	"context"
	"sync"
	"sync/atomic"
)

// workerPool is a fixed-size goroutine pool with a bounded input queue.
type workerPool[T, R any] struct {
	queue   chan T
	process func(ctx context.Context, t T) R
	wg      sync.WaitGroup
	busy    atomic.Int64

	mu     sync.RWMutex // guards closed against concurrent Submit
	closed bool
}

// newWorkerPool creates and starts a pool with n goroutines and queue capacity cap.
func newWorkerPool[T, R any](ctx context.Context, n, cap int, fn func(context.Context, T) R) *workerPool[T, R] {
	p := &workerPool[T, R]{
		queue:   make(chan T, cap),
		process: fn,
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
	return p
}

func (p *workerPool[T, R]) run(ctx context.Context) {
	for {
		select {
		case t, ok := <-p.queue:
			if !ok {
				return
			}
			p.busy.Add(1)
			p.process(ctx, t)
			p.busy.Add(-1)
		case <-ctx.Done():
			return
		}
	}
}

// Submit enqueues t without blocking. It returns false when the queue is full
// or the pool is draining.
func (p *workerPool[T, R]) Submit(t T) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.queue <- t:
		return true
	default:
		return false
	}
}

// Drain closes the queue and waits for all workers to finish. It is safe to
// call more than once.
func (p *workerPool[T, R]) Drain() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// QueueLen returns how many jobs are currently queued.
func (p *workerPool[T, R]) QueueLen() int {
	return len(p.queue)
}

// QueueCap returns the total queue capacity.
func (p *workerPool[T, R]) QueueCap() int {
	return cap(p.queue)
}

// Busy returns how many workers are processing a job.
func (p *workerPool[T, R]) Busy() int {
	return int(p.busy.Load())
}
