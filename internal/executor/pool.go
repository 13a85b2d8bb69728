// Package executor runs submitted work on a fixed set of worker goroutines,
// handing the result back to the submitter as a future.
package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ajramos/asyncprobe/internal/async"
	"github.com/ajramos/asyncprobe/internal/logging"
	"go.uber.org/zap"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 64
)

// ErrPoolClosed is returned when submitting to a pool that has been shut down
var ErrPoolClosed = errors.New("executor pool closed")

// Stats is a snapshot of pool activity
type Stats struct {
	Workers   int
	Submitted int64
	Completed int64
	Active    int32
	Queued    int
}

// Pool is a fixed-size worker pool fed from a bounded task queue
type Pool struct {
	logger  *zap.Logger
	workers int

	taskQueue chan func()
	quit      chan struct{}
	wg        sync.WaitGroup

	// mu orders registration in senders against the close of quit
	mu           sync.RWMutex
	closed       bool
	senders      sync.WaitGroup
	shutdownOnce sync.Once

	submitted atomic.Int64
	completed atomic.Int64
	active    atomic.Int32
}

// New creates a pool and starts its workers
func New(workers, queueSize int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	p := &Pool{
		logger:    logging.OrNop(logger).Named("executor"),
		workers:   workers,
		taskQueue: make(chan func(), queueSize),
		quit:      make(chan struct{}),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	p.logger.Debug("pool started", zap.Int("workers", workers), zap.Int("queue_size", queueSize))

	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case task := <-p.taskQueue:
			p.run(task)
		case <-p.quit:
			p.drain()
			p.logger.Debug("worker stopped", zap.Int("worker", id))
			return
		}
	}
}

// drain runs whatever is still queued once every in-flight send has settled
func (p *Pool) drain() {
	p.senders.Wait()
	for {
		select {
		case task := <-p.taskQueue:
			p.run(task)
		default:
			return
		}
	}
}

func (p *Pool) run(task func()) {
	p.active.Add(1)
	task()
	p.active.Add(-1)
	p.completed.Add(1)
}

// enqueue places task on the queue, blocking while the queue is full.
// The lock is held only to register the send, never across it.
func (p *Pool) enqueue(ctx context.Context, task func()) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	p.senders.Add(1)
	p.mu.RUnlock()
	defer p.senders.Done()

	select {
	case p.taskQueue <- task:
		p.submitted.Add(1)
		return nil
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit hands fn to a worker and returns a future for its result.
// fn receives ctx; a panic in fn is reported through the future.
func Submit[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (*async.Future[T], error) {
	f, resolve := async.Deferred[T]()
	err := p.enqueue(ctx, func() {
		resolve(async.Invoke(ctx, fn))
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Shutdown stops accepting work, lets queued tasks finish and waits for the
// workers until ctx ends. It is safe to call more than once.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.quit)
		p.mu.Unlock()
		p.logger.Debug("pool shutting down", zap.Int("queued", len(p.taskQueue)))
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current counters
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Active:    p.active.Load(),
		Queued:    len(p.taskQueue),
	}
}
