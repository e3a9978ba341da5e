// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package asset implements asynchronous asset loading on a fixed pool of
// worker goroutines.
//
// Two kinds of work are scheduled. Jobs are one-shot units (read a file,
// decode an image) that run to completion on whichever worker picks them
// up. Loaders are resumable state machines that produce an Asset; a loader
// starts jobs with Start, returns Context.Await to suspend, and is resumed
// by a possibly different worker once every job it waits on has completed.
// A suspended loader does not occupy a worker.
//
// Workers pick work by strict priority: queued jobs first, then loaders
// waiting to start, then suspended loaders whose dependencies are all
// complete. Each queue is FIFO.
package asset

import (
	"errors"
	"fmt"
)

// Asset is anything a Loader produces.
type Asset interface{}

// Releasable is implemented by assets that hold resources which need to be
// freed explicitly.
type Releasable interface {
	Release()
}

// Kind identifies an asset type. Each kind has exactly one registered
// Generator.
type Kind string

// Handle identifies a job or a started loader. Handles come from a single
// counter per AssetLoader and are never reused while it lives. The zero
// value is only "unset" by convention.
type Handle uint32

// State is the lifecycle state of a started loader.
type State int

// Loader states.
const (
	StateReady State = iota
	StateRunning
	StateAwaitingDependency
	StateDone
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateAwaitingDependency:
		return "awaiting-dependency"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// package errors
var (
	ErrStopped       = errors.New("asset: loader stopped")
	ErrDuplicateKind = errors.New("asset: kind already registered")
	ErrUnknownKind   = errors.New("asset: kind not registered")
	ErrNotReady      = errors.New("asset: result not ready")
	ErrNilLoader     = errors.New("asset: generator returned no loader")
)

// PanicError carries a value recovered from a panicking job or loader.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("asset: panic: %v", e.Value)
}

// Unwrap exposes the recovered value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
