package readonly

import (
	"fmt"
)

// notification is the single in-flight notification sequence. Each step
// runs on exactly one loop, and schedules the next, so its fields are never
// accessed concurrently.
type notification struct {
	notifier *Notifier
	cause    error
	thread   ThreadID
	index    int
}

func (x *Notifier) startNotification(cause error) {
	n := &notification{
		notifier: x,
		cause:    cause,
	}
	n.hop(0)
}

// hop moves the sequence onto the first thread at or after from that has
// listeners, or on to the persist step, if there are none.
func (n *notification) hop(from ThreadID) {
	x := n.notifier
	thread, ok := x.registry.next(from)
	if !ok {
		n.persist()
		return
	}
	n.thread = thread
	n.index = 0
	x.logger.Debug().
		Int(`thread`, int(thread)).
		Int(`listeners`, len(x.registry.listeners(thread))).
		Log(`notifying thread of read-only mode`)
	if err := x.topology.Loop(thread).Submit(n.notifyNext); err != nil {
		x.logger.Err().
			Int(`thread`, int(thread)).
			Err(err).
			Log(`failed to notify thread of read-only mode, skipping`)
		n.hop(thread + 1)
	}
}

// notifyNext invokes the next listener on the current thread, or hops to
// the next thread. Runs on the current thread.
func (n *notification) notifyNext() {
	listeners := n.notifier.registry.listeners(n.thread)
	if n.index >= len(listeners) {
		n.hop(n.thread + 1)
		return
	}
	listener := listeners[n.index]
	n.index++
	done := NewCompletion(n.notifier.topology.Loop(n.thread), n.acknowledged)
	n.invoke(listener, done)
}

// invoke calls the listener, acknowledging on its behalf if it panics
// without having done so, as the sequence could never finish otherwise.
func (n *notification) invoke(listener Listener, done *Completion) {
	defer func() {
		if r := recover(); r != nil {
			if done.Completed() {
				panic(r)
			}
			_ = done.Complete(fmt.Errorf("readonly: listener panicked: %v", r))
		}
	}()
	listener.NotifyReadOnly(done)
}

// acknowledged runs on the current thread, once a listener completes.
func (n *notification) acknowledged(err error) {
	x := n.notifier
	x.notified.Add(1)
	if err != nil {
		x.logger.Warning().
			Int(`thread`, int(n.thread)).
			Int(`listener`, n.index-1).
			Err(err).
			Log(`read-only listener acknowledged with error`)
	}
	n.notifyNext()
}

// persist hops to the admin thread, and records the read-only mode.
func (n *notification) persist() {
	x := n.notifier
	if err := x.adminLoop.Submit(func() {
		x.logger.Debug().Log(`persisting read-only mode`)
		x.persister.Persist(true, n.cause, NewCompletion(x.adminLoop, n.finish))
	}); err != nil {
		err = fmt.Errorf("readonly: failed to schedule persist: %w", err)
		x.logger.Err().
			Err(err).
			Log(`read-only notification abandoned`)
		// the admin loop no longer runs tasks, so can't race on its fields
		n.release(err)
	}
}

// finish runs on the admin thread, once the persist step has completed.
// The engine remains read-only even if the persist failed.
func (n *notification) finish(err error) {
	x := n.notifier
	if err != nil {
		x.logger.Err().
			Err(err).
			Str(`cause`, n.cause.Error()).
			Log(`failed to persist read-only mode`)
	} else {
		x.logger.Info().
			Str(`cause`, n.cause.Error()).
			Log(`read-only mode persisted`)
	}
	n.release(err)
}

// release ends the notification with the outcome of the persist step. The
// gate is left closed if a waiter was recorded, and every recorded
// administrative completion receives err.
func (n *notification) release(err error) {
	x := n.notifier

	allowParent, waitParent := x.allowParent, x.waitParent
	x.allowParent, x.waitParent = nil, nil

	gate := gateOpen
	if waitParent != nil {
		gate = gateClosed
	}
	x.state.settle(gate)
	x.persistResult.Store(&persistResult{err: err})

	x.complete(allowParent, err)
	x.complete(waitParent, err)
}
