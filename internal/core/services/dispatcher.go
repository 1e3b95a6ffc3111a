package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/logger"
)

// Task is one unit of work run by the dispatcher.
// A non-nil error is fatal for the whole run.
type Task func(ctx context.Context) error

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithShutdownTimeout sets how long Shutdown waits for in-flight work.
func WithShutdownTimeout(d time.Duration) DispatcherOption {
	return func(p *Dispatcher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// PoolSize returns the worker count for a requested thread count:
// min(requested, 2x cores), never less than one.
func PoolSize(requested int) int {
	n := requested
	if limit := 2 * runtime.NumCPU(); n > limit {
		n = limit
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Dispatcher is a fixed-size worker pool with a bounded queue.
// When the queue is full the submitting goroutine runs the task itself.
type Dispatcher struct {
	ctx     context.Context
	cancel  context.CancelCauseFunc
	group   *errgroup.Group
	queue   chan Task
	size    int
	timeout time.Duration

	mu     sync.RWMutex
	closed bool

	fatalMu sync.Mutex
	fatal   error
}

// NewDispatcher starts the workers. The pool lives until Shutdown or until
// ctx is cancelled.
func NewDispatcher(ctx context.Context, requested int, opts ...DispatcherOption) *Dispatcher {
	size := PoolSize(requested)
	runCtx, cancel := context.WithCancelCause(ctx)
	group, _ := errgroup.WithContext(runCtx)

	d := &Dispatcher{
		ctx:     runCtx,
		cancel:  cancel,
		group:   group,
		queue:   make(chan Task, size),
		size:    size,
		timeout: domain.DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}

	for i := 0; i < size; i++ {
		group.Go(d.work)
	}
	logger.Debug("dispatcher started with %d workers", size)
	return d
}

// Size returns the worker count.
func (d *Dispatcher) Size() int {
	return d.size
}

// Context returns the run context handed to every task.
func (d *Dispatcher) Context() context.Context {
	return d.ctx
}

func (d *Dispatcher) work() error {
	for task := range d.queue {
		d.run(task)
	}
	return nil
}

func (d *Dispatcher) run(task Task) error {
	if err := task(d.ctx); err != nil {
		d.fail(err)
		return err
	}
	return nil
}

// fail keeps the first fatal error and cancels the run with it.
func (d *Dispatcher) fail(err error) {
	d.fatalMu.Lock()
	defer d.fatalMu.Unlock()
	if d.fatal == nil {
		d.fatal = err
		d.cancel(err)
	}
}

func (d *Dispatcher) fatalErr() error {
	d.fatalMu.Lock()
	defer d.fatalMu.Unlock()
	return d.fatal
}

// Submit queues a task without blocking. A full queue runs the task on the
// caller. Submitting after Shutdown returns domain.ErrDispatcherClosed; a
// cancelled run returns an error wrapping domain.ErrInterrupted.
func (d *Dispatcher) Submit(task Task) error {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return domain.ErrDispatcherClosed
	}
	if d.ctx.Err() != nil {
		d.mu.RUnlock()
		return d.interrupted()
	}
	select {
	case d.queue <- task:
		d.mu.RUnlock()
		return nil
	default:
	}
	d.mu.RUnlock()

	// caller runs
	return d.run(task)
}

func (d *Dispatcher) interrupted() error {
	if err := d.fatalErr(); err != nil {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrInterrupted, context.Cause(d.ctx))
}

// Shutdown stops accepting work and waits for queued and in-flight tasks.
// After the shutdown timeout the run context is cancelled and an error
// wrapping domain.ErrInterrupted is returned. Cancelling ctx during the wait
// cancels the run the same way. Otherwise the first fatal task error, if any,
// is returned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	// 1. Stop accepting work
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	// 2. Wait for workers
	done := make(chan struct{})
	go func() {
		_ = d.group.Wait()
		close(done)
	}()

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		err := fmt.Errorf("%w: shutdown timed out after %s", domain.ErrInterrupted, d.timeout)
		logger.Warn("dispatcher: %v, cancelling remaining work", err)
		d.cancel(err)
		return err
	case <-ctx.Done():
		err := fmt.Errorf("%w: %w", domain.ErrInterrupted, context.Cause(ctx))
		d.cancel(err)
		return err
	}

	// 3. Report the outcome
	defer d.cancel(nil)
	if err := d.fatalErr(); err != nil {
		return err
	}
	if cause := context.Cause(d.ctx); cause != nil && !errors.Is(cause, domain.ErrInterrupted) {
		return fmt.Errorf("%w: %w", domain.ErrInterrupted, cause)
	} else if cause != nil {
		return cause
	}
	return nil
}
