// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package asset

import (
	"fmt"

	"github.com/devblok/koruasset/util/concurrent"
)

// startRequest is a queued Load call.
type startRequest struct {
	kind      Kind
	path      string
	generator Generator
	result    *Future[Asset]
}

// loaderEntry is the scheduler's record of a started loader. It is moved
// between the continuation queue and the worker running it, never shared.
type loaderEntry struct {
	handle Handle
	kind   Kind
	path   string
	body   Loader
	state  State
	result *Future[Asset]

	// started lists the jobs this loader created. Only the owning worker
	// appends to it.
	started []Handle
}

// scheduledJob is a queued job together with the loader that started it.
type scheduledJob struct {
	Job
	owner Handle
}

type workKind int

const (
	noWork workKind = iota
	jobWork
	startWork
	continueWork
)

// work is one unit picked by a worker.
type work struct {
	kind   workKind
	job    scheduledJob
	start  startRequest
	loader *loaderEntry
}

// workQueues is every piece of shared scheduler state. It lives behind the
// single coordination lock.
type workQueues struct {
	jobs          []scheduledJob
	starts        []startRequest
	continuations []*loaderEntry

	deps      dependencies
	completed map[Handle]struct{}
	loaders   map[Handle]*loaderEntry

	stopped bool
}

func newWorkQueues() workQueues {
	return workQueues{
		deps:      dependencies{},
		completed: map[Handle]struct{}{},
		loaders:   map[Handle]*loaderEntry{},
	}
}

// eligible returns the index of the first continuation that is not blocked,
// or -1.
func (q *workQueues) eligible() int {
	for i, e := range q.continuations {
		if !q.deps.blocked(e.handle) {
			return i
		}
	}
	return -1
}

// hasWork reports whether pick would return something.
func (q *workQueues) hasWork() bool {
	return len(q.jobs) > 0 || len(q.starts) > 0 || q.eligible() >= 0
}

// pick removes and returns the next unit of work: jobs first, then loader
// starts, then the first unblocked continuation in queue order.
func (q *workQueues) pick() work {
	if len(q.jobs) > 0 {
		j := q.jobs[0]
		q.jobs[0] = scheduledJob{}
		q.jobs = q.jobs[1:]
		return work{kind: jobWork, job: j}
	}
	if len(q.starts) > 0 {
		s := q.starts[0]
		q.starts[0] = startRequest{}
		q.starts = q.starts[1:]
		return work{kind: startWork, start: s}
	}
	if i := q.eligible(); i >= 0 {
		e := q.continuations[i]
		q.continuations = append(q.continuations[:i], q.continuations[i+1:]...)
		if e.state != StateAwaitingDependency {
			panic(fmt.Sprintf("asset: loader %d resumed while %s", e.handle, e.state))
		}
		e.state = StateRunning
		return work{kind: continueWork, loader: e}
	}
	return work{}
}

// markCompleted records job as finished and returns how many loaders it
// unblocked. Jobs whose loader is already gone are not remembered.
func (q *workQueues) markCompleted(j scheduledJob) int {
	h := j.Handle()
	if _, ok := q.completed[h]; ok {
		panic(fmt.Sprintf("asset: job %d completed twice", h))
	}
	if _, alive := q.loaders[j.owner]; alive {
		q.completed[h] = struct{}{}
	}
	return q.deps.complete(h)
}

// forget drops a finished loader and everything it left behind.
func (q *workQueues) forget(e *loaderEntry) {
	delete(q.loaders, e.handle)
	q.deps.remove(e.handle)
	for _, h := range e.started {
		delete(q.completed, h)
	}
}

// notifyFor wakes nobody, one worker or every worker depending on how
// many loaders a completed job unblocked.
func notifyFor(unblocked int) concurrent.NotifyType {
	switch {
	case unblocked == 0:
		return concurrent.NotifyNone
	case unblocked == 1:
		return concurrent.NotifyOne
	default:
		return concurrent.NotifyAll
	}
}
