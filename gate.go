package readonly

// EnterReadOnlyMode puts the engine into read-only mode, notifying every
// listener, then persisting the mode. It may be called from any goroutine,
// never blocks, and is a no-op if the engine is already read-only.
//
// If entry is currently disallowed (see WaitUntilNotEnteringReadOnlyMode),
// the request is deferred until AllowReadOnlyModeEntry. Only the first
// deferred cause is kept.
//
// A nil cause is recorded as ErrReadOnly.
func (x *Notifier) EnterReadOnlyMode(cause error) {
	if cause == nil {
		cause = ErrReadOnly
	}
	if x.closed.Load() {
		x.logLimited(cause, `ignoring read-only mode entry on closed notifier`)
		return
	}
	for {
		s := x.state.load()
		switch {
		case s.decided, s.gate == gateClosedPending:
			x.redundantEntry(cause)
			return

		case s.gate == gateOpen:
			if x.state.markDecided(cause) {
				x.logger.Notice().
					Err(cause).
					Log(`entering read-only mode`)
				x.startNotification(cause)
				return
			}
			// lost the race, or the gate closed, re-evaluate

		case s.gate == gateClosed:
			if x.state.cas(s, &modeSnapshot{
				pending: cause,
				gate:    gateClosedPending,
			}) {
				x.deferred.Add(1)
				x.logger.Info().
					Err(cause).
					Log(`read-only mode entry deferred until allowed`)
				return
			}
		}
	}
}

func (x *Notifier) redundantEntry(cause error) {
	x.redundant.Add(1)
	x.logLimited(cause, `ignoring redundant read-only mode entry`)
}

// logLimited logs an ignored entry at debug level, rate limited per message
// and cause, as these arrive in bursts, e.g. from every thread that hits the
// same failure.
func (x *Notifier) logLimited(cause error, msg string) {
	b := x.logger.Debug()
	if !b.Enabled() {
		return
	}
	if _, ok := x.limiter.Allow([2]string{msg, cause.Error()}); !ok {
		b.Release()
		return
	}
	b.Err(cause).Log(msg)
}

// WaitUntilNotEnteringReadOnlyMode waits until no notification is in
// flight, then disallows entry into read-only mode, until
// AllowReadOnlyModeEntry is called. The parent is completed once entry is
// disallowed: immediately if idle, otherwise once the in-flight notification
// has finished persisting, in which case it receives the outcome of the
// persist.
//
// It must only be called from the administrative thread. Calling it again,
// without an intervening AllowReadOnlyModeEntry, is a programming error,
// and completes the parent with ErrGateClosed.
func (x *Notifier) WaitUntilNotEnteringReadOnlyMode(parent *Completion) {
	if x.closed.Load() {
		x.complete(parent, ErrClosed)
		return
	}
	for {
		s := x.state.load()
		switch s.gate {
		case gateOpen:
			if x.state.cas(s, &modeSnapshot{
				cause:   s.cause,
				decided: s.decided,
				gate:    gateClosed,
			}) {
				x.logger.Info().Log(`read-only mode entry disallowed`)
				x.complete(parent, nil)
				return
			}

		case gateNotifying:
			// only the admin thread leaves gateNotifying, so this can't race
			if x.waitParent != nil {
				x.logger.Err().Log(`already waiting for read-only notification to finish`)
				x.complete(parent, ErrGateClosed)
				return
			}
			x.waitParent = parent
			x.logger.Info().Log(`waiting for read-only notification to finish`)
			return

		default:
			x.logger.Err().
				Stringer(`gate`, s.gate).
				Log(`read-only mode entry already disallowed`)
			x.complete(parent, ErrGateClosed)
			return
		}
	}
}

// AllowReadOnlyModeEntry reverses WaitUntilNotEnteringReadOnlyMode. If a
// request was deferred while entry was disallowed, it is started now, and
// the parent is completed (with the outcome of the persist) only once the
// engine has entered read-only mode, and the persist has been attempted.
// Otherwise, the parent is completed immediately.
//
// It must only be called from the administrative thread.
func (x *Notifier) AllowReadOnlyModeEntry(parent *Completion) {
	if x.closed.Load() {
		x.complete(parent, ErrClosed)
		return
	}
	for {
		s := x.state.load()
		switch s.gate {
		case gateClosed:
			if x.state.cas(s, &modeSnapshot{
				cause:   s.cause,
				decided: s.decided,
				gate:    gateOpen,
			}) {
				x.logger.Info().Log(`read-only mode entry allowed`)
				x.complete(parent, nil)
				return
			}

		case gateClosedPending:
			// reopening and deciding in one step, so the deferred request
			// can't lose to a concurrent one
			if x.state.cas(s, &modeSnapshot{
				cause:   s.pending,
				decided: true,
				gate:    gateNotifying,
			}) {
				x.allowParent = parent
				x.logger.Notice().
					Err(s.pending).
					Log(`entering deferred read-only mode`)
				x.startNotification(s.pending)
				return
			}

		default:
			x.complete(parent, nil)
			return
		}
	}
}
