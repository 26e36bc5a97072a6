package service

import (
	"context"
	"sync"

	"github.com/mandelsoft/goutils/errors"

	"github.com/mandelsoft/toscaeditor/pkg/future"
)

// Syncher waits for a phase of a service, like being ready or done.
type Syncher interface {
	SetError(err error)
	Wait() error
}

// errorHolder collects the errors reported for a syncher.
type errorHolder struct {
	lock sync.Mutex
	errs *errors.ErrorList
}

func (h *errorHolder) SetError(err error) {
	if err == nil {
		return
	}
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.errs == nil {
		h.errs = errors.ErrListf("service")
	}
	h.errs.Add(err)
}

func (h *errorHolder) result() error {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.errs == nil {
		return nil
	}
	return h.errs.Result()
}

// Sync provides a syncher done when the wait group is done.
func Sync(wg *sync.WaitGroup) Syncher {
	return &groupSyncher{wg: wg}
}

type groupSyncher struct {
	errorHolder
	wg *sync.WaitGroup
}

func (s *groupSyncher) Wait() error {
	s.wg.Wait()
	return s.result()
}

type Trigger interface {
	Syncher
	Trigger()
}

// SyncTrigger provides a syncher released by a trigger. Once
// triggered, Wait does not block anymore.
func SyncTrigger() Trigger {
	return &triggerSyncher{future: future.NewFuture()}
}

type triggerSyncher struct {
	errorHolder
	future future.Trigger
}

var _ Trigger = (*triggerSyncher)(nil)

func (t *triggerSyncher) Trigger() {
	t.future.Trigger()
}

func (t *triggerSyncher) Wait() error {
	t.future.Wait(context.Background())
	return t.result()
}
