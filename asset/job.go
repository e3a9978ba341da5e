// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package asset

import (
	"context"
	"fmt"
	"sync"
)

// Job is a one-shot unit of work. Run is called exactly once, synchronously,
// on the worker that dequeued the job.
type Job interface {
	Handle() Handle
	Run()
}

// Task describes a job kind. The task value carries the job's parameters
// and Run produces its result. A returned error is handed to the loader
// that started the job, it never stops the worker.
type Task[R any] interface {
	Run() (R, error)
}

// JobKind returns a printable name for a task or job. Tasks may implement
// Kind() string to choose their own.
func JobKind(v interface{}) string {
	if k, ok := v.(interface{ Kind() string }); ok {
		return k.Kind()
	}
	return fmt.Sprintf("%T", v)
}

// Result is the outcome of a job or a load.
type Result[R any] struct {
	Value R
	Err   error
}

// Future is a result slot that is written once and read by whoever holds
// the future.
type Future[R any] struct {
	once   sync.Once
	done   chan struct{}
	result Result[R]
}

func newFuture[R any]() *Future[R] {
	return &Future[R]{done: make(chan struct{})}
}

// resolve stores the result. Only the first call has an effect.
func (f *Future[R]) resolve(value R, err error) {
	f.once.Do(func() {
		f.result = Result[R]{Value: value, Err: err}
		close(f.done)
	})
}

// Done returns a channel that is closed once the result is available.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the result is available.
func (f *Future[R]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the stored result without blocking. It returns
// ErrNotReady if the result has not been written yet.
func (f *Future[R]) Result() (R, error) {
	if !f.Ready() {
		var zero R
		return zero, ErrNotReady
	}
	return f.result.Value, f.result.Err
}

// Wait blocks until the result is available or ctx is done.
func (f *Future[R]) Wait(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.result.Value, f.result.Err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// job adapts a typed Task to the Job contract.
type job[R any] struct {
	handle Handle
	task   Task[R]
	future *Future[R]
}

func (j *job[R]) Handle() Handle {
	return j.handle
}

func (j *job[R]) Kind() string {
	return JobKind(j.task)
}

func (j *job[R]) Run() {
	defer func() {
		if r := recover(); r != nil {
			var zero R
			j.future.resolve(zero, &PanicError{Value: r})
		}
	}()
	value, err := j.task.Run()
	j.future.resolve(value, err)
}

func (j *job[R]) abandon() {
	var zero R
	j.future.resolve(zero, ErrStopped)
}
