package lua

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultQueueSize is the executor queue size used when none is given.
const DefaultQueueSize = 100

// job is one unit of Lua work.
type job struct {
	fn     func(L *lua.LState) error
	result chan error
}

// Executor serialises all work on a State through a single goroutine.
//
// Script loading and event dispatch both touch the LState; raising events
// from several goroutines is safe as long as every one of them goes through
// the same Executor.
//
//	exec := NewExecutor(state, 0)
//	go exec.Run(ctx)
//	defer exec.Close()
//
//	err := exec.Execute(ctx, func(L *lua.LState) error {
//	    handled = dispatcher.Dispatch(ctx, say)
//	    return nil
//	})
type Executor struct {
	state  *State
	queue  chan *job
	closed atomic.Bool
	done   chan struct{}

	closeOnce sync.Once
}

// NewExecutor creates an executor for state. A queueSize of zero or less
// uses DefaultQueueSize.
func NewExecutor(state *State, queueSize int) *Executor {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Executor{
		state: state,
		queue: make(chan *job, queueSize),
		done:  make(chan struct{}),
	}
}

// Run processes queued work until ctx is cancelled or Close is called.
// The goroutine calling Run owns the state.
func (e *Executor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			e.drainQueue(ctx.Err())
			return
		case <-e.done:
			e.drainQueue(ErrExecutorClosed)
			return
		case j := <-e.queue:
			j.result <- e.execute(j)
			close(j.result)
		}
	}
}

// execute runs one job with panic recovery.
func (e *Executor) execute(j *job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case error:
				err = v
			default:
				err = fmt.Errorf("lua panic: %v", v)
			}
		}
	}()
	if e.state.IsClosed() {
		return ErrStateClosed
	}
	return j.fn(e.state.LuaState())
}

// drainQueue fails every queued job with err.
func (e *Executor) drainQueue(err error) {
	for {
		select {
		case j := <-e.queue:
			j.result <- err
			close(j.result)
		default:
			return
		}
	}
}

// Execute queues fn and waits for it to complete or for ctx to end. If ctx
// ends after fn was queued, fn still runs but its result is discarded.
func (e *Executor) Execute(ctx context.Context, fn func(L *lua.LState) error) error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	j := &job{fn: fn, result: make(chan error, 1)}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrExecutorClosed
	case e.queue <- j:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err, ok := <-j.result:
		if !ok {
			return ErrExecutorClosed
		}
		return err
	}
}

// Close stops the executor. Queued work fails with ErrExecutorClosed.
func (e *Executor) Close() {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.done)
	})
}

// IsClosed returns true if the executor has been closed.
func (e *Executor) IsClosed() bool {
	return e.closed.Load()
}

// IsClosedErr reports whether err means the executor stopped.
func IsClosedErr(err error) bool {
	return errors.Is(err, ErrExecutorClosed) || errors.Is(err, ErrStateClosed)
}
