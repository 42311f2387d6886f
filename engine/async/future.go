// Package async provides single-assignment futures used for shader and texture resolution.
//
// A Future settles exactly once, either Ready with a value or Failed with an error. There is no
// cancellation: once work has been started it runs to completion and its result is retained.
package async

import (
	"errors"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// ErrNilTask is returned by futures created from a nil function.
var ErrNilTask = errors.New("async: nil task")

// State describes whether a future has settled.
type State int

const (
	// StatePending indicates the future has not settled yet.
	StatePending State = iota

	// StateReady indicates the future settled with a value.
	StateReady

	// StateFailed indicates the future settled with an error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Future is the eventual result of an asynchronous operation.
type Future[T any] struct {
	mu    sync.Mutex
	done  chan struct{}
	state State
	value T
	err   error
}

// New returns a pending future along with the function that settles it.
// Only the first call to settle has any effect.
//
// Returns:
//   - *Future[T]: the pending future
//   - func(T, error): settles the future; a non-nil error marks it Failed
func New[T any]() (*Future[T], func(T, error)) {
	f := &Future[T]{done: make(chan struct{})}
	return f, f.settle
}

// Ready returns a future that has already settled with v.
//
// Parameters:
//   - v: the value
//
// Returns:
//   - *Future[T]: the settled future
func Ready[T any](v T) *Future[T] {
	f, settle := New[T]()
	settle(v, nil)
	return f
}

// Failed returns a future that has already settled with err.
//
// Parameters:
//   - err: the failure reason; a nil err is replaced with ErrNilTask
//
// Returns:
//   - *Future[T]: the failed future
func Failed[T any](err error) *Future[T] {
	if err == nil {
		err = ErrNilTask
	}
	f, settle := New[T]()
	var zero T
	settle(zero, err)
	return f
}

// Go runs fn on a new goroutine and returns a future for its result.
//
// Parameters:
//   - fn: the work to run
//
// Returns:
//   - *Future[T]: the future for fn's result
func Go[T any](fn func() (T, error)) *Future[T] {
	if fn == nil {
		return Failed[T](ErrNilTask)
	}
	f, settle := New[T]()
	go func() {
		settle(fn())
	}()
	return f
}

// Submit queues fn on a worker pool and returns a future for its result.
// SubmitTask blocks while the pool queue is full.
//
// Parameters:
//   - pool: the worker pool that will run fn
//   - id: the task identifier reported to the pool
//   - fn: the work to run
//
// Returns:
//   - *Future[T]: the future for fn's result
func Submit[T any](pool worker.DynamicWorkerPool, id int, fn func() (T, error)) *Future[T] {
	if fn == nil {
		return Failed[T](ErrNilTask)
	}
	f, settle := New[T]()
	pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			v, err := fn()
			settle(v, err)
			return v, err
		},
	})
	return f
}

// Then derives a future that applies fn to the value of f once it is Ready.
// A failure of f propagates unchanged.
//
// Parameters:
//   - f: the source future
//   - fn: the transformation
//
// Returns:
//   - *Future[U]: the derived future
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	return Go(func() (U, error) {
		v, err := f.Await()
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(v)
	})
}

func (f *Future[T]) settle(v T, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StatePending {
		return
	}
	if err != nil {
		f.state = StateFailed
		f.err = err
	} else {
		f.state = StateReady
		f.value = v
	}
	close(f.done)
}

// Await blocks until the future settles and returns its outcome.
//
// Returns:
//   - T: the value when Ready, the zero value otherwise
//   - error: the failure reason when Failed, nil otherwise
func (f *Future[T]) Await() (T, error) {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

// Done returns a channel that is closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// State reports the current settlement state without blocking.
func (f *Future[T]) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}
