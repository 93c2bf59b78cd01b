package readonly_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	readonly "github.com/joeycumines/go-readonly"
	"github.com/joeycumines/go-readonly/threads"
)

const testTimeout = 5 * time.Second

var errSubmitRejected = errors.New("submit rejected")

type (
	// testLoop wraps a real loop, tracking whether a task is running on it.
	testLoop struct {
		readonly.Loop
		running atomic.Bool
		reject  atomic.Bool
	}

	testTopology struct {
		loops []*testLoop
		admin readonly.ThreadID
	}

	// persisterFunc adapts a function to implement readonly.Persister.
	persisterFunc func(readOnly bool, cause error, done *readonly.Completion)

	persistCall struct {
		cause    error
		readOnly bool
	}

	// recorder captures the order in which things happened.
	recorder struct {
		events []string
		mu     sync.Mutex
	}
)

func (x persisterFunc) Persist(readOnly bool, cause error, done *readonly.Completion) {
	x(readOnly, cause, done)
}

func (x *testLoop) Submit(fn func()) error {
	if x.reject.Load() {
		return errSubmitRejected
	}
	return x.Loop.Submit(func() {
		x.running.Store(true)
		defer x.running.Store(false)
		fn()
	})
}

func (x *testTopology) ThreadCount() int { return len(x.loops) }

func (x *testTopology) AdminThread() readonly.ThreadID { return x.admin }

func (x *testTopology) Loop(thread readonly.ThreadID) readonly.Loop {
	return x.loops[thread]
}

func (x *recorder) add(event string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.events = append(x.events, event)
}

func (x *recorder) get() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]string(nil), x.events...)
}

// newTestPool starts a pool of running loops, stopped on cleanup.
func newTestPool(t *testing.T, count int, opts ...threads.Option) *threads.Pool {
	t.Helper()
	pool, err := threads.New(count, opts...)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(testTimeout):
			t.Error("timed out stopping pool")
		}
	})
	return pool
}

func newTestTopology(t *testing.T, count int, admin readonly.ThreadID) *testTopology {
	t.Helper()
	pool := newTestPool(t, count)
	x := &testTopology{admin: admin}
	for thread := range readonly.ThreadID(count) {
		x.loops = append(x.loops, &testLoop{Loop: pool.Loop(thread)})
	}
	return x
}

// recordingPersister completes every persist with err, recording the calls.
type recordingPersister struct {
	err   error
	calls []persistCall
	mu    sync.Mutex
}

func (x *recordingPersister) Persist(readOnly bool, cause error, done *readonly.Completion) {
	x.mu.Lock()
	x.calls = append(x.calls, persistCall{readOnly: readOnly, cause: cause})
	x.mu.Unlock()
	_ = done.Complete(x.err)
}

func (x *recordingPersister) get() []persistCall {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]persistCall(nil), x.calls...)
}

// onLoop runs fn on loop, and waits for it.
func onLoop(t *testing.T, loop readonly.Loop, fn func()) {
	t.Helper()
	done := make(chan struct{})
	require.NoError(t, loop.Submit(func() {
		defer close(done)
		fn()
	}))
	waitFor(t, done)
}

// completionChan returns a completion bound to loop, and a channel that
// receives its error.
func completionChan(loop readonly.Loop) (*readonly.Completion, <-chan error) {
	ch := make(chan error, 1)
	return readonly.NewCompletion(loop, func(err error) { ch <- err }), ch
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(testTimeout):
		t.Fatal("timed out")
	}
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(testTimeout):
		t.Fatal("timed out")
		panic("unreachable")
	}
}

// waitPersisted waits for the notifier's persist step to finish.
func waitPersisted(t *testing.T, n *readonly.Notifier) readonly.Stats {
	t.Helper()
	require.Eventually(t, func() bool {
		return n.Stats().Persisted
	}, testTimeout, time.Millisecond)
	return n.Stats()
}

// settle round-trips every loop of the topology, twice, so that any
// already-scheduled work has run.
func settle(t *testing.T, topology readonly.Topology) {
	t.Helper()
	for range 2 {
		for thread := range readonly.ThreadID(topology.ThreadCount()) {
			onLoop(t, topology.Loop(thread), func() {})
		}
	}
}
