package readonly

import (
	"fmt"
	"sync/atomic"
)

type (
	// Listener is notified, on the thread it was registered for, when the
	// engine enters read-only mode.
	Listener interface {
		// NotifyReadOnly must call done.Complete exactly once, possibly
		// after performing its own asynchronous work. The notification
		// sequence does not advance until it does. Any error passed to
		// Complete is logged, but does not stop the sequence.
		NotifyReadOnly(done *Completion)
	}

	// ListenerFunc adapts a function to implement Listener.
	ListenerFunc func(done *Completion)

	// registry holds the listeners for each thread, in registration order.
	// It is append-only, and not synchronized against notification.
	registry struct {
		threads [][]Listener
		count   atomic.Int64
	}
)

var _ Listener = ListenerFunc(nil)

// NotifyReadOnly calls x(done).
func (x ListenerFunc) NotifyReadOnly(done *Completion) { x(done) }

func newRegistry(threads int) *registry {
	return &registry{threads: make([][]Listener, threads)}
}

func (x *registry) add(thread ThreadID, listener Listener) error {
	if thread < 0 || int(thread) >= len(x.threads) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidThread, thread, len(x.threads))
	}
	x.threads[thread] = append(x.threads[thread], listener)
	x.count.Add(1)
	return nil
}

func (x *registry) listeners(thread ThreadID) []Listener {
	return x.threads[thread]
}

// next returns the first thread at or after from that has listeners.
func (x *registry) next(from ThreadID) (ThreadID, bool) {
	for thread := from; int(thread) < len(x.threads); thread++ {
		if len(x.threads[thread]) != 0 {
			return thread, true
		}
	}
	return 0, false
}

func (x *registry) len() int {
	return int(x.count.Load())
}

// Register adds a listener to be notified on thread, after any listeners
// already registered for that thread. Listeners cannot be removed.
//
// Register must only be called during setup: it is not safe to call once a
// request to enter read-only mode could have been made.
func (x *Notifier) Register(thread ThreadID, listener Listener) error {
	if x.closed.Load() {
		return ErrClosed
	}
	if listener == nil {
		return ErrNilListener
	}
	return x.registry.add(thread, listener)
}
