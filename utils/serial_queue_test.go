package utils

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/cutout/logging"
)

func TestSerialQueueOrdering(t *testing.T) {
	q := NewSerialQueue("order", logging.NewTestLogger(t))
	defer q.Close()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		test.That(t, q.Async(func(context.Context) {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}), test.ShouldBeTrue)
	}
	test.That(t, q.Flush(context.Background()), test.ShouldBeNil)

	mu.Lock()
	defer mu.Unlock()
	test.That(t, got, test.ShouldHaveLength, 100)
	for i, v := range got {
		test.That(t, v, test.ShouldEqual, i)
	}
}

func TestSerialQueueOnQueue(t *testing.T) {
	q := NewSerialQueue("identity", logging.NewTestLogger(t))
	defer q.Close()
	other := NewSerialQueue("other", logging.NewTestLogger(t))
	defer other.Close()

	test.That(t, OnQueue(context.Background(), q), test.ShouldBeFalse)

	var onQ, onOther bool
	test.That(t, q.Sync(context.Background(), func(ctx context.Context) {
		onQ = OnQueue(ctx, q)
		onOther = OnQueue(ctx, other)
	}), test.ShouldBeNil)
	test.That(t, onQ, test.ShouldBeTrue)
	test.That(t, onOther, test.ShouldBeFalse)
}

func TestSerialQueueSyncFromQueueRunsInline(t *testing.T) {
	q := NewSerialQueue("inline", logging.NewTestLogger(t))
	defer q.Close()

	ran := false
	err := q.Sync(context.Background(), func(ctx context.Context) {
		test.That(t, q.Sync(ctx, func(context.Context) { ran = true }), test.ShouldBeNil)
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ran, test.ShouldBeTrue)
}

func TestSerialQueueSuspendResume(t *testing.T) {
	q := NewSerialQueue("suspend", logging.NewTestLogger(t))
	defer q.Close()

	q.Suspend()
	test.That(t, q.Suspended(), test.ShouldBeTrue)

	ran := make(chan struct{})
	q.Async(func(context.Context) { close(ran) })

	select {
	case <-ran:
		t.Fatal("function ran while the queue was suspended")
	case <-time.After(50 * time.Millisecond):
	}

	q.Resume()
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("function did not run after resume")
	}
	test.That(t, q.Suspended(), test.ShouldBeFalse)

	// an unbalanced resume is logged and ignored
	q.Resume()
	test.That(t, q.Suspended(), test.ShouldBeFalse)
}

func TestSerialQueueSurvivesPanic(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	q := NewSerialQueue("panics", logger)
	defer q.Close()

	q.Async(func(context.Context) { panic("boom") })
	ran := false
	test.That(t, q.Sync(context.Background(), func(context.Context) { ran = true }), test.ShouldBeNil)
	test.That(t, ran, test.ShouldBeTrue)
	test.That(t, logs.FilterMessage("panic in serial queue function").Len(), test.ShouldEqual, 1)
}

func TestSerialQueueClose(t *testing.T) {
	q := NewSerialQueue("close", logging.NewTestLogger(t))

	q.Suspend()
	var ran bool
	q.Async(func(context.Context) { ran = true })
	q.Close()
	// pending work is drained on close even when suspended
	test.That(t, ran, test.ShouldBeTrue)

	test.That(t, q.Async(func(context.Context) {}), test.ShouldBeFalse)
	test.That(t, q.Sync(context.Background(), func(context.Context) {}), test.ShouldEqual, ErrQueueClosed)
	// closing twice is fine
	q.Close()
}

func TestSerialQueueSyncContextCancel(t *testing.T) {
	q := NewSerialQueue("cancel", logging.NewTestLogger(t))
	defer func() {
		q.Resume()
		q.Close()
	}()
	q.Suspend()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Sync(ctx, func(context.Context) {})
	test.That(t, err, test.ShouldEqual, context.DeadlineExceeded)
}
