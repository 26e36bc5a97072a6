// Package future provides wait points released by triggers, used to
// wait for session lifecycle events.
package future

import (
	"context"
	"sync"

	"github.com/mandelsoft/goutils/general"
)

// Future is a wait point.
type Future interface {
	// Wait waits for a trigger. It returns false if the context
	// is done before.
	Wait(ctx context.Context) bool
}

type Trigger interface {
	Future
	// Trigger releases the future. It reports whether the future
	// can be triggered again.
	Trigger() bool
}

// future is a one shot wait point: once triggered, all calls to Wait
// return immediately. A repeatable future counts the triggers not
// yet awaited, every call to Wait consumes one.
type future struct {
	lock       sync.Mutex
	repeatable bool
	pending    int
	waiters    int
	fired      chan struct{}
}

var _ Trigger = (*future)(nil)

func NewFuture(repeatable ...bool) *future {
	return &future{
		repeatable: general.Optional(repeatable...),
		fired:      make(chan struct{}),
	}
}

func (f *future) Wait(ctx context.Context) bool {
	f.lock.Lock()
	if f.pending > 0 {
		if f.repeatable {
			f.pending--
		}
		f.lock.Unlock()
		return true
	}
	fired := f.fired
	f.waiters++
	f.lock.Unlock()

	select {
	case <-fired:
		return true
	case <-ctx.Done():
		f.lock.Lock()
		if f.fired == fired {
			f.waiters--
		}
		f.lock.Unlock()
		return false
	}
}

func (f *future) Trigger() bool {
	f.lock.Lock()
	defer f.lock.Unlock()

	if !f.repeatable {
		if f.pending == 0 {
			f.pending = 1
			close(f.fired)
		}
		return false
	}
	if f.waiters > 0 {
		close(f.fired)
		f.fired = make(chan struct{})
		f.waiters = 0
	} else {
		f.pending++
	}
	return true
}
