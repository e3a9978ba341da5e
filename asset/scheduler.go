// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package asset

import (
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/devblok/koruasset/util/concurrent"
)

// AssetLoader schedules loaders and jobs on a fixed pool of workers.
// It is created running; call StopRunning and Wait to shut it down.
type AssetLoader struct {
	workers int
	log     log.FieldLogger

	handleCounter atomic.Uint32

	queues *concurrent.WaitableData[workQueues]
	group  errgroup.Group

	registryMutex sync.RWMutex
	registry      map[Kind]Generator
}

// New creates an AssetLoader and starts its workers.
func New(cfg Configuration) *AssetLoader {
	cfg = cfg.withDefaults()
	l := &AssetLoader{
		workers:  cfg.Workers,
		log:      cfg.Logger,
		queues:   concurrent.NewWaitableData(newWorkQueues()),
		registry: map[Kind]Generator{},
	}
	for id := 0; id < l.workers; id++ {
		id := id
		l.group.Go(func() error {
			l.runWorker(id)
			return nil
		})
	}
	l.log.WithField("workers", l.workers).Info("asset loader started")
	return l
}

// Workers returns the size of the worker pool.
func (l *AssetLoader) Workers() int {
	return l.workers
}

func (l *AssetLoader) nextHandle() Handle {
	return Handle(l.handleCounter.Add(1) - 1)
}

// Register installs the generator for kind. It returns ErrDuplicateKind if
// kind already has one.
func (l *AssetLoader) Register(kind Kind, generator Generator) error {
	if generator == nil {
		return fmt.Errorf("asset: nil generator for kind %q", kind)
	}
	l.registryMutex.Lock()
	defer l.registryMutex.Unlock()
	if _, exists := l.registry[kind]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateKind, kind)
	}
	l.registry[kind] = generator
	return nil
}

// RegisterLoader installs the generator for kind and panics if kind is
// already registered. Registration is expected to happen before loading.
func (l *AssetLoader) RegisterLoader(kind Kind, generator Generator) {
	if err := l.Register(kind, generator); err != nil {
		panic(err)
	}
}

// Load queues a loader for path using the generator registered for kind and
// returns immediately. The returned future resolves with the produced asset
// or the loader's failure. Load panics if kind was never registered.
func (l *AssetLoader) Load(kind Kind, path string) *Future[Asset] {
	l.registryMutex.RLock()
	generator, ok := l.registry[kind]
	l.registryMutex.RUnlock()
	if !ok {
		panic(fmt.Errorf("%w: %q", ErrUnknownKind, kind))
	}

	result := newFuture[Asset]()
	stopped := false
	l.queues.Modify(func(q *workQueues) concurrent.NotifyType {
		if q.stopped {
			stopped = true
			return concurrent.NotifyNone
		}
		q.starts = append(q.starts, startRequest{
			kind:      kind,
			path:      path,
			generator: generator,
			result:    result,
		})
		return concurrent.NotifyOne
	})
	if stopped {
		result.resolve(nil, ErrStopped)
	}
	return result
}

// HasCompletedJob reports whether the job with handle h has completed and
// the loader that started it is still running.
func (l *AssetLoader) HasCompletedJob(h Handle) bool {
	var completed bool
	l.queues.View(func(q workQueues) {
		_, completed = q.completed[h]
	})
	return completed
}

// StopRunning asks every worker to stop and returns without waiting.
// Workers finish the unit of work in hand and leave queued work alone.
func (l *AssetLoader) StopRunning() {
	l.queues.Modify(func(q *workQueues) concurrent.NotifyType {
		q.stopped = true
		return concurrent.NotifyAll
	})
	l.log.Info("asset loader stopping")
}

// Wait blocks until every worker has returned. It does not stop the workers
// itself, see StopRunning. Once the workers are gone every load that never
// finished resolves with ErrStopped.
func (l *AssetLoader) Wait() {
	_ = l.group.Wait()

	var abandoned []*Future[Asset]
	var jobs []scheduledJob
	l.queues.Modify(func(q *workQueues) concurrent.NotifyType {
		for _, s := range q.starts {
			abandoned = append(abandoned, s.result)
		}
		for _, e := range q.continuations {
			abandoned = append(abandoned, e.result)
			q.forget(e)
		}
		jobs = q.jobs
		q.starts, q.continuations, q.jobs = nil, nil, nil
		return concurrent.NotifyNone
	})
	for _, j := range jobs {
		if a, ok := j.Job.(interface{ abandon() }); ok {
			a.abandon()
		}
	}
	for _, f := range abandoned {
		f.resolve(nil, ErrStopped)
	}
	if len(abandoned) > 0 || len(jobs) > 0 {
		l.log.WithFields(log.Fields{
			"loaders": len(abandoned),
			"jobs":    len(jobs),
		}).Warn("abandoned queued work")
	}
}

// QuickExit stops the workers without waiting for them or releasing
// anything that is still queued. Meant for process exit, where cleanup is
// wasted work.
func (l *AssetLoader) QuickExit() {
	l.StopRunning()
}

// Stats is a snapshot of the scheduler's queues.
type Stats struct {
	Jobs          int
	Starts        int
	Continuations int
	Blocked       int
	Completed     int
	Loaders       int
}

// Stats returns a snapshot of the scheduler's current state.
func (l *AssetLoader) Stats() Stats {
	var s Stats
	l.queues.View(func(q workQueues) {
		s = Stats{
			Jobs:          len(q.jobs),
			Starts:        len(q.starts),
			Continuations: len(q.continuations),
			Blocked:       q.deps.count(),
			Completed:     len(q.completed),
			Loaders:       len(q.loaders),
		}
	})
	return s
}
