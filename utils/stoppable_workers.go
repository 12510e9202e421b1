package utils

import (
	"context"
	"sync"

	"go.uber.org/atomic"
	goutils "go.viam.com/utils"
)

// StoppableWorkers runs background goroutines that share one context and can all be stopped
// together. The zero value is not usable; use NewStoppableWorkers.
type StoppableWorkers struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  func()
	wg      sync.WaitGroup
	stopped bool
	active  atomic.Int32
}

// NewStoppableWorkers returns workers running each of funcs.
func NewStoppableWorkers(funcs ...func(context.Context)) *StoppableWorkers {
	ctx, cancel := context.WithCancel(context.Background())
	sw := &StoppableWorkers{ctx: ctx, cancel: cancel}
	for _, f := range funcs {
		sw.Add(f)
	}
	return sw
}

// Add starts f on its own goroutine. It returns false without starting anything once Stop has
// been called, so callers can fail work that will never run.
func (sw *StoppableWorkers) Add(f func(context.Context)) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.stopped {
		return false
	}
	sw.wg.Add(1)
	sw.active.Inc()
	goutils.PanicCapturingGo(func() {
		defer sw.wg.Done()
		defer sw.active.Dec()
		f(sw.ctx)
	})
	return true
}

// Active is the number of workers that have not returned yet.
func (sw *StoppableWorkers) Active() int {
	return int(sw.active.Load())
}

// Stop cancels the workers' context and waits for every worker to return. It is idempotent.
func (sw *StoppableWorkers) Stop() {
	sw.mu.Lock()
	sw.stopped = true
	sw.cancel()
	sw.mu.Unlock()
	sw.wg.Wait()
}

// Context is the context every worker receives. It is done once Stop is called.
func (sw *StoppableWorkers) Context() context.Context {
	return sw.ctx
}
