package readonly

import (
	"sync/atomic"
)

type (
	// gateState is the entry gate, see the package documentation.
	gateState uint8

	// modeSnapshot is an immutable view of the mode, swapped as a whole so
	// that the decision, the gate, and any deferred cause always change
	// together.
	modeSnapshot struct {
		// cause is the recorded error, valid if decided
		cause error
		// pending is the deferred error, valid if gate is gateClosedPending
		pending error
		decided bool
		gate    gateState
	}

	// modeState is the lock-free shared mode, readable from any goroutine.
	modeState struct {
		p atomic.Pointer[modeSnapshot]
	}
)

const (
	// gateOpen allows requests to proceed immediately.
	gateOpen gateState = iota
	// gateNotifying is an open gate with a notification sequence in flight.
	gateNotifying
	// gateClosed defers requests.
	gateClosed
	// gateClosedPending is a closed gate holding a deferred request.
	gateClosedPending
)

func (x gateState) String() string {
	switch x {
	case gateOpen:
		return `open`
	case gateNotifying:
		return `notifying`
	case gateClosed:
		return `closed`
	case gateClosedPending:
		return `closed-pending`
	default:
		return `unknown`
	}
}

func newModeState(decided bool, cause error) *modeState {
	var s modeState
	s.p.Store(&modeSnapshot{
		decided: decided,
		cause:   cause,
		gate:    gateOpen,
	})
	return &s
}

func (x *modeState) load() *modeSnapshot {
	return x.p.Load()
}

func (x *modeState) cas(old, new *modeSnapshot) bool {
	return x.p.CompareAndSwap(old, new)
}

// markDecided attempts the single false -> true transition of decided,
// recording cause, and marking a notification as in flight. It only
// succeeds while the gate is open, and reports whether the caller won.
func (x *modeState) markDecided(cause error) bool {
	for {
		s := x.load()
		if s.decided || s.gate != gateOpen {
			return false
		}
		if x.cas(s, &modeSnapshot{
			decided: true,
			cause:   cause,
			gate:    gateNotifying,
		}) {
			return true
		}
	}
}

// settle ends the in-flight notification, leaving the gate in the given
// state. The decision, and its cause, are kept.
func (x *modeState) settle(gate gateState) {
	for {
		s := x.load()
		if x.cas(s, &modeSnapshot{
			cause:   s.cause,
			decided: s.decided,
			gate:    gate,
		}) {
			return
		}
	}
}

func (x *modeState) isDecided() bool {
	return x.load().decided
}

// willBeDecided is true once decided, or while a deferred request is held
// by a closed gate.
func (x *modeState) willBeDecided() bool {
	s := x.load()
	return s.decided || s.gate == gateClosedPending
}
