// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package concurrent provides lock-guarded value boxes. Every access to
// the boxed value happens inside a callback that runs with the lock held,
// so the value can never be touched without synchronization.
//
// None of the methods may be called from inside a callback running on
// the same box. The lock is not reentrant and doing so deadlocks.
package concurrent

import "sync"

// NotifyType tells a WaitableData which waiters to wake after a callback.
type NotifyType int

// Notification directives returned from WaitableData callbacks.
const (
	NotifyNone NotifyType = iota
	NotifyOne
	NotifyAll
)

func (n NotifyType) String() string {
	switch n {
	case NotifyNone:
		return "none"
	case NotifyOne:
		return "one"
	case NotifyAll:
		return "all"
	default:
		return "unknown"
	}
}

// Data is a mutex guarded value. The zero value is ready to use.
type Data[T any] struct {
	mutex sync.Mutex
	value T
}

// NewData creates a Data holding value.
func NewData[T any](value T) *Data[T] {
	return &Data[T]{value: value}
}

// Modify runs fn with exclusive access to the value.
func (d *Data[T]) Modify(fn func(*T)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	fn(&d.value)
}

// View runs fn with exclusive access to a shallow copy of the value.
func (d *Data[T]) View(fn func(T)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	fn(d.value)
}

// WaitableData couples a guarded value with a condition variable on the
// same lock, so callers can block until the value satisfies a predicate.
// Create it with NewWaitableData.
type WaitableData[T any] struct {
	mutex sync.Mutex
	cond  *sync.Cond
	value T
}

// NewWaitableData creates a WaitableData holding value.
func NewWaitableData[T any](value T) *WaitableData[T] {
	d := &WaitableData[T]{value: value}
	d.cond = sync.NewCond(&d.mutex)
	return d
}

// Holder is handed to Hold callbacks. It is only valid for the duration
// of the callback.
type Holder[T any] struct {
	data *WaitableData[T]
}

// Value returns the guarded value.
func (h *Holder[T]) Value() *T {
	return &h.data.value
}

// Wait blocks on the condition variable until pred reports true. The lock
// is released while blocked and held again whenever pred is evaluated.
func (h *Holder[T]) Wait(pred func(*T) bool) {
	for !pred(&h.data.value) {
		h.data.cond.Wait()
	}
}

// Locker exposes the lock that is currently held.
func (h *Holder[T]) Locker() sync.Locker {
	return &h.data.mutex
}

// Cond exposes the condition variable bound to the lock.
func (h *Holder[T]) Cond() *sync.Cond {
	return h.data.cond
}

// Modify runs fn with exclusive access to the value and applies the
// returned notification once the lock is released.
func (d *WaitableData[T]) Modify(fn func(*T) NotifyType) {
	d.Notify(d.modify(fn))
}

func (d *WaitableData[T]) modify(fn func(*T) NotifyType) NotifyType {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return fn(&d.value)
}

// Hold runs fn with the lock held and access to the condition variable,
// then applies the returned notification once the lock is released.
func (d *WaitableData[T]) Hold(fn func(*Holder[T]) NotifyType) {
	d.Notify(d.hold(fn))
}

func (d *WaitableData[T]) hold(fn func(*Holder[T]) NotifyType) NotifyType {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return fn(&Holder[T]{data: d})
}

// View runs fn with exclusive access to a shallow copy of the value.
func (d *WaitableData[T]) View(fn func(T)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	fn(d.value)
}

// Notify wakes waiters according to n.
func (d *WaitableData[T]) Notify(n NotifyType) {
	switch n {
	case NotifyOne:
		d.cond.Signal()
	case NotifyAll:
		d.cond.Broadcast()
	}
}
