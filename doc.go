// Package readonly coordinates entry into a permanent read-only mode, for a
// storage engine built from a fixed set of single-threaded event loops.
//
// When the engine hits an unrecoverable internal error, any goroutine may
// call [Notifier.EnterReadOnlyMode]. Exactly one such call wins. The winner
// starts a notification sequence, which hops onto each engine thread in
// ascending [ThreadID] order, and invokes every [Listener] registered for
// that thread, in registration order, waiting for each to acknowledge via
// its [Completion]. Once every listener has acknowledged, the [Persister] is
// asked to durably record the read-only flag, on the administrative thread.
//
// # Gating
//
// Shutdown code that is about to finalize the engine's persistent metadata
// must not race with a read-only persist. From the administrative thread it
// calls [Notifier.WaitUntilNotEnteringReadOnlyMode], which completes once no
// notification is in flight, and closes the gate. Requests made while the
// gate is closed are deferred (see [Notifier.IsOrWillBeReadOnly]), and run
// when [Notifier.AllowReadOnlyModeEntry] reopens it. In that case, the parent
// passed to AllowReadOnlyModeEntry is completed only after the deferred
// request's persist step has finished.
//
// # Thread Safety
//
//   - [Notifier.EnterReadOnlyMode], [Notifier.IsReadOnly],
//     [Notifier.IsOrWillBeReadOnly], [Notifier.ReadOnlyError] and
//     [Notifier.Stats] are safe to call from any goroutine
//   - the gate operations must be called from the administrative thread's
//     loop
//   - [Notifier.Register] must only be called during setup, before any
//     request could be made
//
// The only state shared between threads is a single atomically swapped
// snapshot of the mode, so none of the operations block.
//
// See the threads package for a [Topology] backed by event loops, and the
// superblock package for a file backed [Persister].
package readonly
