package readonly

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

type (
	// Persister durably records the read-only flag, e.g. in the engine's
	// super block.
	Persister interface {
		// Persist is called at most once per Notifier, on the
		// administrative thread, after every listener has acknowledged.
		// Implementations must call done.Complete exactly once, with the
		// outcome of the write, and may do so asynchronously.
		Persist(readOnly bool, cause error, done *Completion)
	}

	// Notifier propagates entry into read-only mode to every registered
	// listener, persists it, and gates entry during shutdown.
	//
	// Create instances with New. The zero value is not usable.
	Notifier struct {
		topology  Topology
		persister Persister
		logger    *logiface.Logger[logiface.Event]
		// limits logging of redundant entry attempts, per cause
		limiter   *catrate.Limiter
		state     *modeState
		registry  *registry
		adminLoop Loop

		// administrative completions recorded against the in-flight
		// notification, accessed only on the admin thread
		allowParent *Completion
		waitParent  *Completion

		persistResult atomic.Pointer[persistResult]
		notified      atomic.Uint64
		redundant     atomic.Uint64
		deferred      atomic.Uint64
		closed        atomic.Bool
	}

	// Stats is a point-in-time view of a Notifier's counters.
	Stats struct {
		// PersistErr is the outcome of the persist step, valid if
		// Persisted is true.
		PersistErr error
		// Listeners is the number of registered listeners.
		Listeners int
		// Notified is the number of listeners that have acknowledged.
		Notified uint64
		// Redundant counts EnterReadOnlyMode calls made after the mode
		// was already decided, or while a deferred request was held.
		Redundant uint64
		// Deferred counts requests deferred by a closed gate.
		Deferred uint64
		// Persisted is true once the persist step has finished.
		Persisted bool
	}

	persistResult struct {
		err error
	}
)

// New creates a Notifier for the given topology, which will use persister
// to record entry into read-only mode.
//
// An error is returned if the topology or persister is nil, if the topology
// is invalid, or if an option fails validation.
func New(topology Topology, persister Persister, opts ...Option) (*Notifier, error) {
	if topology == nil {
		return nil, ErrNilTopology
	}
	if persister == nil {
		return nil, ErrNilPersister
	}

	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	count := topology.ThreadCount()
	if count <= 0 {
		return nil, fmt.Errorf("%w: thread count %d", ErrInvalidTopology, count)
	}
	admin := topology.AdminThread()
	if admin < 0 || int(admin) >= count {
		return nil, fmt.Errorf("%w: admin thread %d out of range", ErrInvalidTopology, admin)
	}
	for thread := range ThreadID(count) {
		if topology.Loop(thread) == nil {
			return nil, fmt.Errorf("%w: nil loop for thread %d", ErrInvalidTopology, thread)
		}
	}

	var limiter *catrate.Limiter
	if cfg.redundantEntryRates != nil {
		limiter, err = newLimiter(cfg.redundantEntryRates)
		if err != nil {
			return nil, err
		}
	}

	var cause error
	if cfg.initiallyReadOnly {
		cause = ErrReadOnly
	}

	x := &Notifier{
		topology:  topology,
		persister: persister,
		logger:    cfg.logger,
		limiter:   limiter,
		state:     newModeState(cfg.initiallyReadOnly, cause),
		registry:  newRegistry(count),
		adminLoop: topology.Loop(admin),
	}

	x.logger.Debug().
		Int(`threads`, count).
		Int(`admin_thread`, int(admin)).
		Bool(`read_only`, cfg.initiallyReadOnly).
		Log(`read-only notifier created`)

	return x, nil
}

// newLimiter converts the panic from catrate.NewLimiter, on invalid rates,
// into an error.
func newLimiter(rates map[time.Duration]int) (limiter *catrate.Limiter, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("readonly: invalid redundant entry log rates: %v", r)
		}
	}()
	return catrate.NewLimiter(rates), nil
}

// Close tears down the notifier. It must not be called while a notification
// is in flight, and returns ErrNotificationInFlight (without closing) if it
// is. No listener is invoked by Close.
//
// After Close, Register returns ErrClosed, EnterReadOnlyMode is a no-op, and
// the gate operations complete their parent with ErrClosed.
func (x *Notifier) Close() error {
	if x.state.load().gate == gateNotifying {
		return ErrNotificationInFlight
	}
	if !x.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	x.logger.Debug().Log(`read-only notifier closed`)
	return nil
}

// IsReadOnly reports whether the engine is read-only. It becomes true at the
// moment a request wins the decision, before any listener is notified, and
// never reverts. Safe to call from any goroutine.
func (x *Notifier) IsReadOnly() bool {
	return x.state.isDecided()
}

// IsOrWillBeReadOnly reports whether the engine is read-only, or a request
// to become read-only is being held by a closed gate. It is intended for
// suppressing spurious error messages from work racing with the mode change.
// Safe to call from any goroutine.
func (x *Notifier) IsOrWillBeReadOnly() bool {
	return x.state.willBeDecided()
}

// ReadOnlyError returns the cause recorded by the winning request, or nil if
// the engine is not read-only.
func (x *Notifier) ReadOnlyError() error {
	if s := x.state.load(); s.decided {
		return s.cause
	}
	return nil
}

// Stats returns the notifier's counters. Safe to call from any goroutine.
func (x *Notifier) Stats() Stats {
	s := Stats{
		Listeners: x.registry.len(),
		Notified:  x.notified.Load(),
		Redundant: x.redundant.Load(),
		Deferred:  x.deferred.Load(),
	}
	if r := x.persistResult.Load(); r != nil {
		s.Persisted = true
		s.PersistErr = r.err
	}
	return s
}

// complete completes an administrative parent, logging if it could not be
// scheduled.
func (x *Notifier) complete(parent *Completion, err error) {
	if parent == nil {
		return
	}
	if submitErr := parent.Complete(err); submitErr != nil {
		x.logger.Err().
			Err(submitErr).
			Log(`failed to complete administrative parent`)
	}
}
