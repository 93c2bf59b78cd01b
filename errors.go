package readonly

import (
	"errors"
)

var (
	// ErrReadOnly is the recorded cause when the notifier was created
	// already read-only, or when EnterReadOnlyMode was called with a nil
	// cause.
	ErrReadOnly = errors.New("readonly: engine is in read-only mode")

	// ErrNilTopology is returned by New when no topology was provided.
	ErrNilTopology = errors.New("readonly: topology must not be nil")

	// ErrNilPersister is returned by New when no persister was provided.
	ErrNilPersister = errors.New("readonly: persister must not be nil")

	// ErrInvalidTopology is returned by New when the topology reports no
	// threads, an administrative thread outside of its range, or a nil loop.
	ErrInvalidTopology = errors.New("readonly: invalid topology")

	// ErrInvalidThread is returned by Register for a thread outside of the
	// topology.
	ErrInvalidThread = errors.New("readonly: invalid thread")

	// ErrNilListener is returned by Register for a nil listener.
	ErrNilListener = errors.New("readonly: listener must not be nil")

	// ErrClosed is returned by operations attempted after Close.
	ErrClosed = errors.New("readonly: notifier is closed")

	// ErrNotificationInFlight is returned by Close while a notification
	// sequence is still running.
	ErrNotificationInFlight = errors.New("readonly: notification in flight")

	// ErrGateClosed is passed to the parent completion of
	// WaitUntilNotEnteringReadOnlyMode, if the gate was already closed, or
	// another waiter was already recorded. It indicates a programming error.
	ErrGateClosed = errors.New("readonly: read-only mode entry already disallowed")

	// ErrCompletedTwice is the panic value when a Completion is completed
	// more than once.
	ErrCompletedTwice = errors.New("readonly: completion completed more than once")
)
