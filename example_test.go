package readonly_test

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"

	readonly "github.com/joeycumines/go-readonly"
	"github.com/joeycumines/go-readonly/threads"
)

func Example() {
	pool, err := threads.New(3, threads.WithAdminThread(0))
	if err != nil {
		panic(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = pool.Run(ctx) }()

	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(os.Stdout), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelNotice),
	).Logger()

	persister := persisterFunc(func(readOnly bool, cause error, done *readonly.Completion) {
		fmt.Printf("persist read_only=%v cause=%v\n", readOnly, cause)
		_ = done.Complete(nil)
	})

	notifier, err := readonly.New(pool, persister, readonly.WithLogger(logger))
	if err != nil {
		panic(err)
	}
	for _, thread := range []readonly.ThreadID{2, 1} {
		if err := notifier.Register(thread, readonly.ListenerFunc(func(done *readonly.Completion) {
			fmt.Printf("thread %d: read-only=%v\n", thread, notifier.IsReadOnly())
			_ = done.Complete(nil)
		})); err != nil {
			panic(err)
		}
	}

	notifier.EnterReadOnlyMode(errors.New("journal write failed"))

	// shutting down waits for the in-flight notification
	admin := pool.Loop(pool.AdminThread())
	stopped := make(chan error, 1)
	if err := admin.Submit(func() {
		notifier.WaitUntilNotEnteringReadOnlyMode(readonly.NewCompletion(admin, func(err error) {
			stopped <- err
		}))
	}); err != nil {
		panic(err)
	}
	fmt.Println("stopped:", <-stopped)
	fmt.Println("read-only:", notifier.ReadOnlyError())

	//output:
	//{"lvl":"notice","err":"journal write failed","msg":"entering read-only mode"}
	//thread 1: read-only=true
	//thread 2: read-only=true
	//persist read_only=true cause=journal write failed
	//stopped: <nil>
	//read-only: journal write failed
}
