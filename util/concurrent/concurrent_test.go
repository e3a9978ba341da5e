// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package concurrent_test

import (
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/koruasset/util/concurrent"
)

func TestDataModifyConcurrently(t *testing.T) {
	c := qt.New(t)

	var data concurrent.Data[int]
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				data.Modify(func(v *int) { *v++ })
			}
		}()
	}
	wg.Wait()

	data.View(func(v int) {
		c.Assert(v, qt.Equals, 5000)
	})
}

func TestDataReleasesLockOnPanic(t *testing.T) {
	c := qt.New(t)

	data := concurrent.NewData(map[string]int{})
	c.Assert(func() {
		data.Modify(func(m *map[string]int) {
			(*m)["a"] = 1
			panic("boom")
		})
	}, qt.PanicMatches, "boom")

	// Would deadlock if the panic left the mutex locked.
	data.Modify(func(m *map[string]int) { (*m)["b"] = 2 })
	data.View(func(m map[string]int) {
		c.Assert(m, qt.DeepEquals, map[string]int{"a": 1, "b": 2})
	})
}

func TestWaitableDataHoldWaitsForPredicate(t *testing.T) {
	c := qt.New(t)

	data := concurrent.NewWaitableData([]string{})
	got := make(chan string)
	go func() {
		data.Hold(func(h *concurrent.Holder[[]string]) concurrent.NotifyType {
			h.Wait(func(q *[]string) bool { return len(*q) > 0 })
			got <- (*h.Value())[0]
			*h.Value() = (*h.Value())[1:]
			return concurrent.NotifyNone
		})
	}()

	select {
	case <-got:
		c.Fatal("waiter returned before the value was produced")
	case <-time.After(20 * time.Millisecond):
	}

	data.Modify(func(q *[]string) concurrent.NotifyType {
		*q = append(*q, "texture.png")
		return concurrent.NotifyOne
	})

	select {
	case v := <-got:
		c.Assert(v, qt.Equals, "texture.png")
	case <-time.After(5 * time.Second):
		c.Fatal("waiter was never woken")
	}
}

func TestWaitableDataNotifyAllWakesEveryWaiter(t *testing.T) {
	c := qt.New(t)

	data := concurrent.NewWaitableData(false)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data.Hold(func(h *concurrent.Holder[bool]) concurrent.NotifyType {
				h.Wait(func(open *bool) bool { return *open })
				return concurrent.NotifyNone
			})
		}()
	}

	data.Modify(func(open *bool) concurrent.NotifyType {
		*open = true
		return concurrent.NotifyAll
	})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		c.Fatal("not every waiter was woken")
	}
}

func TestNotifyTypeString(t *testing.T) {
	c := qt.New(t)
	c.Assert(concurrent.NotifyNone.String(), qt.Equals, "none")
	c.Assert(concurrent.NotifyOne.String(), qt.Equals, "one")
	c.Assert(concurrent.NotifyAll.String(), qt.Equals, "all")
	c.Assert(concurrent.NotifyType(9).String(), qt.Equals, "unknown")
}
