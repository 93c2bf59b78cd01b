// Package threads provides a [readonly.Topology] backed by a fixed set of
// event loops, one per purpose-assigned engine thread.
//
// Each thread is an [eventloop.Loop], which runs one task at a time, on its
// own goroutine. Work hops between threads via [eventloop.Loop.Submit].
package threads

import (
	"context"
	"errors"
	"fmt"

	eventloop "github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/logiface"
	"golang.org/x/sync/errgroup"

	readonly "github.com/joeycumines/go-readonly"
)

// Pool is a fixed set of event loops. It implements [readonly.Topology].
//
// Create instances with New. The zero value is not usable.
type Pool struct {
	logger *logiface.Logger[logiface.Event]
	loops  []*eventloop.Loop
	admin  readonly.ThreadID
}

var _ readonly.Topology = (*Pool)(nil)

// New creates count event loops. The loops are not running until Run is
// called, though tasks may be submitted beforehand.
func New(count int, opts ...Option) (*Pool, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, fmt.Errorf("threads: count must be positive: %d", count)
	}
	if cfg.admin < 0 || int(cfg.admin) >= count {
		return nil, fmt.Errorf("threads: admin thread %d not in [0, %d)", cfg.admin, count)
	}

	x := &Pool{
		logger: cfg.logger,
		loops:  make([]*eventloop.Loop, 0, count),
		admin:  cfg.admin,
	}
	for i := range count {
		loop, err := eventloop.New()
		if err != nil {
			_ = x.Close()
			return nil, fmt.Errorf("threads: failed to create loop for thread %d: %w", i, err)
		}
		x.loops = append(x.loops, loop)
	}

	return x, nil
}

// ThreadCount implements [readonly.Topology].
func (x *Pool) ThreadCount() int {
	return len(x.loops)
}

// AdminThread implements [readonly.Topology].
func (x *Pool) AdminThread() readonly.ThreadID {
	return x.admin
}

// Loop implements [readonly.Topology]. It returns nil for an invalid thread.
func (x *Pool) Loop(thread readonly.ThreadID) readonly.Loop {
	if loop := x.EventLoop(thread); loop != nil {
		return loop
	}
	return nil
}

// EventLoop returns the underlying loop for thread, or nil if invalid.
func (x *Pool) EventLoop(thread readonly.ThreadID) *eventloop.Loop {
	if thread < 0 || int(thread) >= len(x.loops) {
		return nil
	}
	return x.loops[thread]
}

// Run runs every loop, blocking until all have stopped, e.g. after ctx is
// canceled, or Shutdown is called. If any loop fails, the rest are stopped,
// and the first error is returned.
func (x *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, loop := range x.loops {
		g.Go(func() error {
			x.logger.Debug().Int(`thread`, i).Log(`thread started`)
			err := loop.Run(ctx)
			b := x.logger.Debug().Int(`thread`, i)
			if err != nil {
				b = b.Err(err)
			}
			b.Log(`thread stopped`)
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, eventloop.ErrLoopTerminated) {
				return fmt.Errorf("threads: thread %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Shutdown gracefully stops every loop, waiting for queued tasks to run. The
// loops are stopped in reverse order, leaving the admin thread, and lower
// threads, to drain last.
func (x *Pool) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(x.loops) - 1; i >= 0; i-- {
		if err := x.loops[i].Shutdown(ctx); err != nil && !errors.Is(err, eventloop.ErrLoopTerminated) {
			errs = append(errs, fmt.Errorf("threads: thread %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Close immediately terminates every loop, without waiting for queued tasks.
func (x *Pool) Close() error {
	var errs []error
	for i, loop := range x.loops {
		if err := loop.Close(); err != nil && !errors.Is(err, eventloop.ErrLoopTerminated) {
			errs = append(errs, fmt.Errorf("threads: thread %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
