// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package asset

import (
	log "github.com/sirupsen/logrus"

	"github.com/devblok/koruasset/util/concurrent"
)

// runWorker is the loop every worker runs until a stop is requested.
func (l *AssetLoader) runWorker(id int) {
	wlog := l.log.WithField("worker", id)
	for {
		w, ok := l.next()
		if !ok {
			wlog.Debug("worker exited")
			return
		}

		switch w.kind {
		case jobWork:
			l.runJob(wlog, w.job)
		case startWork:
			l.startLoader(wlog, w.start)
		case continueWork:
			l.drive(wlog, w.loader)
		}
	}
}

// next blocks until there is eligible work or a stop request. It returns
// false on stop.
func (l *AssetLoader) next() (work, bool) {
	var (
		w       work
		stopped bool
	)
	l.queues.Hold(func(h *concurrent.Holder[workQueues]) concurrent.NotifyType {
		h.Wait(func(q *workQueues) bool {
			return q.stopped || q.hasWork()
		})
		q := h.Value()
		if q.stopped {
			stopped = true
			return concurrent.NotifyNone
		}
		w = q.pick()
		return concurrent.NotifyNone
	})
	return w, !stopped
}

func (l *AssetLoader) runJob(wlog *log.Entry, j scheduledJob) {
	jlog := wlog.WithFields(log.Fields{
		"job":      j.Handle(),
		"job_kind": JobKind(j.Job),
		"loader":   j.owner,
	})
	jlog.Debug("running job")
	j.Run()

	l.queues.Modify(func(q *workQueues) concurrent.NotifyType {
		unblocked := q.markCompleted(j)
		if unblocked > 0 {
			jlog.WithField("unblocked", unblocked).Debug("job completed")
		}
		return notifyFor(unblocked)
	})
}

func (l *AssetLoader) startLoader(wlog *log.Entry, s startRequest) {
	e := &loaderEntry{
		kind:   s.kind,
		path:   s.path,
		state:  StateRunning,
		result: s.result,
	}
	body, err := generate(s.generator, l, s.path)
	e.handle = l.nextHandle()
	e.body = body

	l.queues.Modify(func(q *workQueues) concurrent.NotifyType {
		q.loaders[e.handle] = e
		return concurrent.NotifyNone
	})
	if err != nil {
		l.finish(wlog, e, nil, err)
		return
	}
	wlog.WithFields(log.Fields{
		"loader": e.handle,
		"kind":   e.kind,
		"path":   e.path,
	}).Debug("loader started")
	l.drive(wlog, e)
}

// drive resumes e until it finishes or suspends.
func (l *AssetLoader) drive(wlog *log.Entry, e *loaderEntry) {
	c := &Context{
		loader: l,
		entry:  e,
		log: wlog.WithFields(log.Fields{
			"loader": e.handle,
			"kind":   e.kind,
			"path":   e.path,
		}),
	}
	for {
		c.suspending = false
		step, err := resume(e.body, c)
		if err != nil {
			l.finish(wlog, e, nil, err)
			return
		}

		switch step.kind {
		case stepDone:
			l.finish(wlog, e, step.asset, nil)
			return
		case stepFail:
			l.finish(wlog, e, nil, step.err)
			return
		case stepYield:
			l.park(c)
			return
		default:
			if c.suspending {
				l.park(c)
				return
			}
		}
	}
}

// park queues a suspended loader for continuation. No worker is woken; the
// loader becomes eligible once its jobs complete, and completing jobs do
// the waking.
func (l *AssetLoader) park(c *Context) {
	e := c.entry
	l.queues.Modify(func(q *workQueues) concurrent.NotifyType {
		e.state = StateAwaitingDependency
		q.continuations = append(q.continuations, e)
		return concurrent.NotifyNone
	})
	c.log.Debug("loader suspended")
}

func (l *AssetLoader) finish(wlog *log.Entry, e *loaderEntry, a Asset, err error) {
	l.queues.Modify(func(q *workQueues) concurrent.NotifyType {
		e.state = StateDone
		q.forget(e)
		return concurrent.NotifyNone
	})
	flog := wlog.WithFields(log.Fields{
		"loader": e.handle,
		"kind":   e.kind,
		"path":   e.path,
	})
	if err != nil {
		flog.WithError(err).Warn("loader failed")
	} else {
		flog.Debug("loader finished")
	}
	e.result.resolve(a, err)
}

// resume calls the loader and turns a panic into an error so one broken
// loader cannot take its worker down.
func resume(body Loader, c *Context) (step Step, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return body.Resume(c), nil
}

func generate(g Generator, l *AssetLoader, path string) (body Loader, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	body = g(l, path)
	if body == nil {
		return nil, ErrNilLoader
	}
	return body, nil
}
