// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package asset

import (
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/koruasset/util/concurrent"
)

type fakeJob Handle

func (f fakeJob) Handle() Handle { return Handle(f) }
func (f fakeJob) Run()           {}

func queuedJob(h, owner Handle) scheduledJob {
	return scheduledJob{Job: fakeJob(h), owner: owner}
}

func parked(h Handle) *loaderEntry {
	return &loaderEntry{handle: h, state: StateAwaitingDependency}
}

func TestHandlesAreUnique(t *testing.T) {
	c := qt.New(t)

	var l AssetLoader
	const perWorker = 1000
	handles := make(chan Handle, 8*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				handles <- l.nextHandle()
			}
		}()
	}
	wg.Wait()
	close(handles)

	seen := map[Handle]bool{}
	for h := range handles {
		c.Assert(seen[h], qt.IsFalse, qt.Commentf("handle %d allocated twice", h))
		seen[h] = true
	}
	c.Assert(seen, qt.HasLen, 8*perWorker)
	c.Assert(seen[0], qt.IsTrue)
}

func TestPickJobsBeforeStarts(t *testing.T) {
	c := qt.New(t)

	q := newWorkQueues()
	q.starts = append(q.starts, startRequest{kind: "mesh", path: "cube.dae"})
	q.jobs = append(q.jobs, queuedJob(1, 0))
	q.continuations = append(q.continuations, parked(0))

	w := q.pick()
	c.Assert(w.kind, qt.Equals, jobWork)
	c.Assert(w.job.Handle(), qt.Equals, Handle(1))

	w = q.pick()
	c.Assert(w.kind, qt.Equals, startWork)
	c.Assert(w.start.path, qt.Equals, "cube.dae")

	w = q.pick()
	c.Assert(w.kind, qt.Equals, continueWork)
	c.Assert(w.loader.handle, qt.Equals, Handle(0))
	c.Assert(w.loader.state, qt.Equals, StateRunning)

	c.Assert(q.pick().kind, qt.Equals, noWork)
	c.Assert(q.hasWork(), qt.IsFalse)
}

func TestPickIsFIFOWithinQueue(t *testing.T) {
	c := qt.New(t)

	q := newWorkQueues()
	for _, h := range []Handle{10, 11, 12} {
		q.jobs = append(q.jobs, queuedJob(h, 0))
	}
	for _, p := range []string{"a", "b", "c"} {
		q.starts = append(q.starts, startRequest{path: p})
	}

	var jobs []Handle
	var paths []string
	for q.hasWork() {
		w := q.pick()
		switch w.kind {
		case jobWork:
			jobs = append(jobs, w.job.Handle())
		case startWork:
			paths = append(paths, w.start.path)
		}
	}
	c.Assert(jobs, qt.DeepEquals, []Handle{10, 11, 12})
	c.Assert(paths, qt.DeepEquals, []string{"a", "b", "c"})
}

func TestPickSkipsBlockedContinuations(t *testing.T) {
	c := qt.New(t)

	q := newWorkQueues()
	blocked, free := parked(1), parked(2)
	q.loaders[1], q.loaders[2] = blocked, free
	q.continuations = append(q.continuations, blocked, free)
	q.deps.add(1, 7)

	w := q.pick()
	c.Assert(w.kind, qt.Equals, continueWork)
	c.Assert(w.loader, qt.Equals, free)

	c.Assert(q.hasWork(), qt.IsFalse)
	c.Assert(q.pick().kind, qt.Equals, noWork)

	unblocked := q.markCompleted(queuedJob(7, 1))
	c.Assert(unblocked, qt.Equals, 1)
	c.Assert(q.hasWork(), qt.IsTrue)

	w = q.pick()
	c.Assert(w.kind, qt.Equals, continueWork)
	c.Assert(w.loader, qt.Equals, blocked)
}

func TestPickKeepsContinuationOrder(t *testing.T) {
	c := qt.New(t)

	q := newWorkQueues()
	for _, h := range []Handle{3, 1, 2} {
		q.continuations = append(q.continuations, parked(h))
	}
	var order []Handle
	for q.hasWork() {
		order = append(order, q.pick().loader.handle)
	}
	c.Assert(order, qt.DeepEquals, []Handle{3, 1, 2})
}

func TestPickPanicsOnDoubleOwnership(t *testing.T) {
	c := qt.New(t)

	q := newWorkQueues()
	e := parked(4)
	e.state = StateRunning
	q.continuations = append(q.continuations, e)
	c.Assert(func() { q.pick() }, qt.PanicMatches, `asset: loader 4 resumed while running`)
}

func TestDependenciesComplete(t *testing.T) {
	c := qt.New(t)

	d := dependencies{}
	d.add(1, 10)
	d.add(1, 11)
	d.add(2, 10)
	d.add(3, 12)

	c.Assert(d.complete(10), qt.Equals, 1)
	c.Assert(d.blocked(1), qt.IsTrue)
	c.Assert(d.blocked(2), qt.IsFalse)
	c.Assert(d[1], qt.DeepEquals, []Handle{11})
	c.Assert(d.count(), qt.Equals, 2)

	c.Assert(d.complete(99), qt.Equals, 0)

	d.add(4, 12)
	c.Assert(d.complete(12), qt.Equals, 2)
	c.Assert(notifyFor(2), qt.Equals, concurrent.NotifyAll)
	c.Assert(notifyFor(1), qt.Equals, concurrent.NotifyOne)
	c.Assert(notifyFor(0), qt.Equals, concurrent.NotifyNone)

	d.remove(1)
	c.Assert(d.blocked(1), qt.IsFalse)
	c.Assert(d.count(), qt.Equals, 0)
}

func TestCompletedSetEviction(t *testing.T) {
	c := qt.New(t)

	q := newWorkQueues()
	e := &loaderEntry{handle: 1, state: StateRunning, started: []Handle{5, 6}}
	q.loaders[1] = e
	q.deps.add(1, 5)
	q.deps.add(1, 6)

	q.markCompleted(queuedJob(5, 1))
	c.Assert(q.completed, qt.HasLen, 1)
	c.Assert(func() { q.markCompleted(queuedJob(5, 1)) }, qt.PanicMatches, `asset: job 5 completed twice`)

	q.forget(e)
	c.Assert(q.completed, qt.HasLen, 0)
	c.Assert(q.loaders, qt.HasLen, 0)

	// The loader is gone, so its late job is not remembered.
	q.markCompleted(queuedJob(6, 1))
	c.Assert(q.completed, qt.HasLen, 0)
}
