// Package goroutine runs background jobs on a bounded pool of workers.
//
// Jobs are queued and executed by a fixed number of workers. Submitting never
// blocks the caller: when the queue is full the job is rejected and logged.
package goroutine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/otpgate/internal/pkg/stacktrace"
	"go.uber.org/atomic"
)

const (
	// DefaultWorkers is used when NewPool receives a non-positive worker count.
	DefaultWorkers = 8
	// DefaultQueueSize is used when NewPool receives a non-positive queue size.
	DefaultQueueSize = 128

	maxRecordedErrors = 64
)

var (
	// ErrClosed is returned by Submit after Close has been called.
	ErrClosed = errors.New("goroutine: pool is closed")
	// ErrQueueFull is returned by Submit when no queue slot is available.
	ErrQueueFull = errors.New("goroutine: queue is full")
	// ErrNotEnoughWorkers is returned by Reserve when the pool has too few free workers.
	ErrNotEnoughWorkers = errors.New("goroutine: not enough workers")
)

// Job is a unit of background work.
type Job func(ctx context.Context) error

type task struct {
	ctx  context.Context
	name string
	job  Job
}

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	Submitted int64
	Rejected  int64
	Completed int64
	Failed    int64
	Panicked  int64
}

// Pool executes jobs on a fixed set of workers.
type Pool struct {
	queue   chan task
	wg      sync.WaitGroup
	workers int

	reserveMu sync.Mutex
	reserved  int

	stateMu sync.RWMutex
	closed  bool
	once    sync.Once

	errMu sync.Mutex
	errs  []error

	submitted atomic.Int64
	rejected  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	panicked  atomic.Int64
}

// NewPool starts workers goroutines reading from a queue of queueSize slots.
func NewPool(workers, queueSize int) *Pool {
	if workers < 1 {
		workers = DefaultWorkers
	}
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}

	p := &Pool{queue: make(chan task, queueSize), workers: workers}
	for range workers {
		p.wg.Go(p.work)
	}

	return p
}

// Submit queues job for execution and returns without waiting for it.
//
// The job receives ctx as given; callers that must outlive a request should
// detach it first with context.WithoutCancel.
func (p *Pool) Submit(ctx context.Context, name string, job Job) error {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()

	if p.closed {
		p.rejected.Inc()
		slog.WarnContext(ctx, "goroutine pool is closed, job rejected", "job", name)
		return ErrClosed
	}

	select {
	case p.queue <- task{ctx: ctx, name: name, job: job}:
		p.submitted.Inc()
		return nil
	default:
		p.rejected.Inc()
		slog.WarnContext(ctx, "goroutine pool queue is full, job rejected", "job", name)
		return ErrQueueFull
	}
}

// Reserve claims n workers for jobs that run until their context is done.
// Such jobs never free their worker, so submitting more of them than there are
// workers would leave the surplus queued forever.
func (p *Pool) Reserve(n int) error {
	p.reserveMu.Lock()
	defer p.reserveMu.Unlock()

	if p.reserved+n > p.workers {
		return fmt.Errorf("%w: %d requested, %d of %d already reserved", ErrNotEnoughWorkers, n, p.reserved, p.workers)
	}
	p.reserved += n
	return nil
}

// Workers returns the number of workers started by NewPool.
func (p *Pool) Workers() int { return p.workers }

// Stats returns the current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Rejected:  p.rejected.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Panicked:  p.panicked.Load(),
	}
}

// Close stops accepting jobs, drains the queue and returns the joined job errors.
// Calling Close more than once is safe.
func (p *Pool) Close() error {
	p.once.Do(func() {
		p.stateMu.Lock()
		p.closed = true
		close(p.queue)
		p.stateMu.Unlock()
	})

	p.wg.Wait()

	p.errMu.Lock()
	defer p.errMu.Unlock()
	return errors.Join(p.errs...)
}

func (p *Pool) work() {
	for t := range p.queue {
		p.run(t)
	}
}

func (p *Pool) run(t task) {
	defer func() {
		if rvr := recover(); rvr != nil {
			p.panicked.Inc()
			p.record(fmt.Errorf("goroutine: job %s panicked: %v", t.name, rvr))

			stack := debug.Stack()
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				slog.ErrorContext(t.ctx, "panic occurred in job", "job", t.name, "because", rvr, "stack", paths)
			} else {
				slog.ErrorContext(t.ctx, "panic occurred in job", "job", t.name, "because", rvr, "stack", string(stack))
			}
		}
	}()

	if err := t.job(t.ctx); err != nil {
		p.failed.Inc()
		p.record(err)
		slog.ErrorContext(t.ctx, "background job failed", "job", t.name, "error", err)
		return
	}

	p.completed.Inc()
}

// record keeps the first maxRecordedErrors job errors for Close; the rest are
// only logged and counted.
func (p *Pool) record(err error) {
	p.errMu.Lock()
	if len(p.errs) < maxRecordedErrors {
		p.errs = append(p.errs, err)
	}
	p.errMu.Unlock()
}
