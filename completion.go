package readonly

import (
	"fmt"
	"sync/atomic"
)

type (
	// ThreadID identifies one of the engine's purpose-assigned threads.
	// Valid identifiers are in the range [0, Topology.ThreadCount()).
	ThreadID int

	// Loop is the interface required for scheduling work on a specific
	// thread. It is satisfied by *eventloop.Loop.
	Loop interface {
		// Submit schedules the task to run on the loop goroutine.
		// Returns an error if the loop has been shut down.
		Submit(func()) error
	}

	// Topology describes the engine's fixed set of threads.
	// It is read-only, from the perspective of this package.
	Topology interface {
		// ThreadCount returns the number of threads, which must be
		// positive.
		ThreadCount() int

		// AdminThread returns the administrative thread, the only thread
		// permitted to call the gate operations.
		AdminThread() ThreadID

		// Loop returns the loop for the given thread.
		Loop(thread ThreadID) Loop
	}

	// Completion is a single-use acknowledgement, bound to a Loop. The
	// callback always runs on that loop, never inline, when Complete is
	// called.
	//
	// Create instances with NewCompletion. The zero value is not usable.
	Completion struct {
		loop     Loop
		callback func(err error)
		done     atomic.Bool
	}
)

// NewCompletion returns a Completion that will run callback on loop.
// It panics if loop is nil. A nil callback is permitted.
func NewCompletion(loop Loop, callback func(err error)) *Completion {
	if loop == nil {
		panic("readonly: completion loop must not be nil")
	}
	return &Completion{
		loop:     loop,
		callback: callback,
	}
}

// Complete acknowledges the unit of work, scheduling the callback with err,
// on the completion's loop. It must be called exactly once, and panics with
// ErrCompletedTwice otherwise.
//
// The returned error is non-nil only if the callback could not be scheduled,
// e.g. because the loop was already terminated.
func (x *Completion) Complete(err error) error {
	if !x.done.CompareAndSwap(false, true) {
		panic(ErrCompletedTwice)
	}
	if submitErr := x.loop.Submit(func() {
		if x.callback != nil {
			x.callback(err)
		}
	}); submitErr != nil {
		return fmt.Errorf("readonly: failed to schedule completion: %w", submitErr)
	}
	return nil
}

// Completed reports whether Complete has been called.
func (x *Completion) Completed() bool {
	return x.done.Load()
}

// Loop returns the loop that the completion's callback runs on.
func (x *Completion) Loop() Loop {
	return x.loop
}
