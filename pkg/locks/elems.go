// Package locks provides exclusive locks for named elements, for
// example the topologies under edition. Waiters are served in order.
package locks

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

type lockState struct {
	waiting []block
}

type block chan struct{}

type ElementLocks[T comparable] struct {
	lock  sync.Mutex
	locks map[T]*lockState
}

func NewElementLocks[T comparable]() *ElementLocks[T] {
	return &ElementLocks[T]{locks: map[T]*lockState{}}
}

func (e *ElementLocks[T]) IsLocked(eid T) bool {
	e.lock.Lock()
	defer e.lock.Unlock()

	return e.locks[eid] != nil
}

func (e *ElementLocks[T]) HasWaiting(eid T) bool {
	e.lock.Lock()
	defer e.lock.Unlock()

	return e.locks[eid] != nil && len(e.locks[eid].waiting) > 0
}

func (e *ElementLocks[T]) TryLock(eid T) bool {
	e.lock.Lock()
	defer e.lock.Unlock()

	if locked := e.locks[eid]; locked != nil {
		return false
	}
	e.locks[eid] = &lockState{}
	return true
}

// Unlock passes the lock to the first waiter.
func (e *ElementLocks[T]) Unlock(eid T) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.unlock(eid)
}

func (e *ElementLocks[T]) unlock(eid T) {
	locked := e.locks[eid]
	if locked == nil {
		panic(fmt.Sprintf("unlocking unlocked element %v", eid))
	}
	if len(locked.waiting) > 0 {
		close(locked.waiting[0])
		locked.waiting = locked.waiting[1:]
	} else {
		delete(e.locks, eid)
	}
}

// Lock waits for the lock of an element. If the context is done
// before, the context error is returned and the lock is not held.
func (e *ElementLocks[T]) Lock(ctx context.Context, eid T) error {
	e.lock.Lock()

	locked := e.locks[eid]
	if locked == nil {
		e.locks[eid] = &lockState{}
		e.lock.Unlock()
		return nil
	}
	b := make(block)
	locked.waiting = append(locked.waiting, b)
	e.lock.Unlock()

	select {
	case <-b:
		return nil
	case <-ctx.Done():
		e.lock.Lock()
		defer e.lock.Unlock()
		if i := slices.Index(locked.waiting, b); i >= 0 {
			locked.waiting = slices.Delete(locked.waiting, i, i+1)
		} else {
			// handed over concurrently
			e.unlock(eid)
		}
		return ctx.Err()
	}
}

// Run executes the function while holding the lock of the element.
func (e *ElementLocks[T]) Run(ctx context.Context, eid T, f func() error) error {
	if err := e.Lock(ctx, eid); err != nil {
		return err
	}
	defer e.Unlock(eid)
	return f()
}
