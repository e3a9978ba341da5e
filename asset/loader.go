// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package asset

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/devblok/koruasset/util/concurrent"
)

// Loader is a resumable computation producing an Asset. Resume is called
// every time the loader is scheduled and must return quickly; a loader keeps
// its progress in its own fields between calls.
//
// A typical loader starts jobs, returns c.Await() and reads the job results
// on the next call:
//
//	func (l *blobLoader) Resume(c *asset.Context) asset.Step {
//		if l.read == nil {
//			l.read = asset.Start[[]byte](c, asset.ReadFile{Path: c.Path()})
//			return c.Await()
//		}
//		data, err := l.read.Result()
//		if err != nil {
//			return asset.Fail(err)
//		}
//		return asset.Done(data)
//	}
//
// A loader is never resumed by two workers at once.
type Loader interface {
	Resume(c *Context) Step
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(c *Context) Step

// Resume calls f.
func (f LoaderFunc) Resume(c *Context) Step {
	return f(c)
}

// Generator creates a fresh loader for path.
type Generator func(l *AssetLoader, path string) Loader

type stepKind int

const (
	stepAwait stepKind = iota
	stepYield
	stepDone
	stepFail
)

// Step is what a Loader returns from Resume. The zero Step is an Await.
type Step struct {
	kind  stepKind
	asset Asset
	err   error
}

// Done finishes the loader with a produced asset.
func Done(a Asset) Step {
	return Step{kind: stepDone, asset: a}
}

// Fail finishes the loader with an error.
func Fail(err error) Step {
	if err == nil {
		err = errors.New("asset: loader failed")
	}
	return Step{kind: stepFail, err: err}
}

// Yield gives the worker back. The loader is queued for continuation and
// becomes eligible again as soon as it has no outstanding jobs.
func Yield() Step {
	return Step{kind: stepYield}
}

// Context is handed to a loader while it runs. It identifies the loader to
// the scheduler and must not be kept past the Resume call.
type Context struct {
	loader     *AssetLoader
	entry      *loaderEntry
	log        *log.Entry
	suspending bool
}

// Handle returns the handle of the running loader.
func (c *Context) Handle() Handle {
	return c.entry.handle
}

// Kind returns the asset kind being loaded.
func (c *Context) Kind() Kind {
	return c.entry.kind
}

// Path returns the path passed to Load.
func (c *Context) Path() string {
	return c.entry.path
}

// AssetLoader returns the scheduler running the loader.
func (c *Context) AssetLoader() *AssetLoader {
	return c.loader
}

// Logger returns a logger carrying the loader's fields.
func (c *Context) Logger() log.FieldLogger {
	return c.log
}

// Await suspends the loader until every job it started has completed. If
// there is nothing to wait for the loader is resumed right away.
func (c *Context) Await() Step {
	return Step{kind: stepAwait}
}

// Awaitable is the loader's view of a job it started.
type Awaitable[R any] struct {
	loader *AssetLoader
	handle Handle
	future *Future[R]
}

// Start queues task as a job on behalf of the running loader and records
// that the loader depends on it. Both happen under one lock acquisition, so
// the job cannot complete before the dependency is visible. The loader is
// suspended as soon as Resume returns.
//
// Start panics when c does not belong to a running loader.
func Start[R any](c *Context, task Task[R]) *Awaitable[R] {
	if c == nil || c.entry == nil || c.entry.state != StateRunning {
		panic("asset: Start called outside of a running loader")
	}
	l := c.loader
	j := &job[R]{
		handle: l.nextHandle(),
		task:   task,
		future: newFuture[R](),
	}
	owner := c.entry.handle
	l.queues.Modify(func(q *workQueues) concurrent.NotifyType {
		q.jobs = append(q.jobs, scheduledJob{Job: j, owner: owner})
		q.deps.add(owner, j.handle)
		c.entry.started = append(c.entry.started, j.handle)
		return concurrent.NotifyOne
	})
	c.suspending = true
	c.log.WithFields(log.Fields{"job": j.handle, "job_kind": j.Kind()}).Debug("job queued")

	return &Awaitable[R]{loader: l, handle: j.handle, future: j.future}
}

// Handle returns the job's handle.
func (a *Awaitable[R]) Handle() Handle {
	return a.handle
}

// Ready reports whether the job has already completed.
func (a *Awaitable[R]) Ready() bool {
	return a.loader.HasCompletedJob(a.handle)
}

// Result returns the job's value or failure. Before the job completes it
// returns ErrNotReady.
func (a *Awaitable[R]) Result() (R, error) {
	return a.future.Result()
}
