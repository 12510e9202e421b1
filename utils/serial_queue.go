package utils

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/cutout/logging"
)

// ErrQueueClosed is returned when work is submitted to a closed SerialQueue.
var ErrQueueClosed = errors.New("serial queue is closed")

type serialQueueKey struct{}

// SerialQueue executes submitted functions one at a time, in submission order, on a single
// background goroutine. Functions receive a context that identifies the queue, which callees can
// use to assert they are running on it (see OnQueue).
//
// A queue can be suspended. While suspended, the function currently executing (if any) runs to
// completion but no further functions are started until a matching Resume.
type SerialQueue struct {
	name   string
	logger logging.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	tasks     []func(context.Context)
	suspended int
	closed    bool

	taskCtx                 context.Context
	cancel                  func()
	activeBackgroundWorkers sync.WaitGroup
}

// NewSerialQueue returns a started queue.
func NewSerialQueue(name string, logger logging.Logger) *SerialQueue {
	cancelCtx, cancel := context.WithCancel(context.Background())
	q := &SerialQueue{
		name:   name,
		logger: logger,
		cancel: cancel,
	}
	q.cond = sync.NewCond(&q.mu)
	q.taskCtx = context.WithValue(cancelCtx, serialQueueKey{}, q)

	q.activeBackgroundWorkers.Add(1)
	goutils.ManagedGo(q.loop, q.activeBackgroundWorkers.Done)
	return q
}

// Name returns the queue's name.
func (q *SerialQueue) Name() string {
	return q.name
}

// OnQueue reports whether ctx was handed out by q to one of its functions.
func OnQueue(ctx context.Context, q *SerialQueue) bool {
	if ctx == nil || q == nil {
		return false
	}
	running, ok := ctx.Value(serialQueueKey{}).(*SerialQueue)
	return ok && running == q
}

// Async submits fn for execution and returns immediately. It returns false if the queue is closed.
func (q *SerialQueue) Async(fn func(ctx context.Context)) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, fn)
	q.cond.Broadcast()
	return true
}

// Dispatch submits fn for execution, dropping it if the queue is closed.
func (q *SerialQueue) Dispatch(fn func()) {
	if !q.Async(func(context.Context) { fn() }) {
		q.logger.Debugw("dropping dispatch to closed queue", "queue", q.name)
	}
}

// Sync submits fn and waits for it to finish. When called from a function already running on q,
// fn is executed inline.
func (q *SerialQueue) Sync(ctx context.Context, fn func(ctx context.Context)) error {
	if OnQueue(ctx, q) {
		fn(ctx)
		return nil
	}
	done := make(chan struct{})
	if !q.Async(func(taskCtx context.Context) {
		defer close(done)
		fn(taskCtx)
	}) {
		return ErrQueueClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush waits until every function submitted before the call has finished.
func (q *SerialQueue) Flush(ctx context.Context) error {
	return q.Sync(ctx, func(context.Context) {})
}

// Suspend prevents the queue from starting new functions until Resume is called.
// Calls nest: every Suspend must be balanced by a Resume.
func (q *SerialQueue) Suspend() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.suspended++
}

// Resume undoes one Suspend.
func (q *SerialQueue) Resume() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.suspended == 0 {
		q.logger.Warnw("unbalanced resume of serial queue", "queue", q.name)
		return
	}
	q.suspended--
	q.cond.Broadcast()
}

// Suspended reports whether the queue is currently suspended.
func (q *SerialQueue) Suspended() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.suspended > 0
}

// Close stops accepting work, runs whatever was already submitted (ignoring suspension) and
// waits for the worker to exit.
func (q *SerialQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()

	q.activeBackgroundWorkers.Wait()
	q.cancel()
}

func (q *SerialQueue) next() (func(context.Context), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.tasks) == 0 || (q.suspended > 0 && !q.closed) {
		if q.closed && len(q.tasks) == 0 {
			return nil, false
		}
		q.cond.Wait()
	}
	fn := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return fn, true
}

func (q *SerialQueue) loop() {
	for {
		fn, ok := q.next()
		if !ok {
			return
		}
		q.run(fn)
	}
}

func (q *SerialQueue) run(fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Errorw("panic in serial queue function", "queue", q.name, "error", r, "stack", string(debug.Stack()))
		}
	}()
	fn(q.taskCtx)
}
