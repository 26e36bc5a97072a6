// Package service starts and awaits long running parts of the
// editor, like the session manager and its eviction pool.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/mandelsoft/goutils/errors"
	"github.com/mandelsoft/logging"

	"github.com/mandelsoft/toscaeditor/pkg/ctxutil"
)

var REALM = logging.DefineRealm("toscaeditor/service", "service lifecycle")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)

// Service is started once. The done syncher is mandatory, the ready
// syncher is optional.
type Service interface {
	Start(ctx context.Context) (ready Syncher, done Syncher, err error)
	Wait() error
}

type Services interface {
	Add(s Service) error
	Start() error
	Wait() error
	Stop()
}

type services struct {
	lock     sync.Mutex
	ctx      context.Context
	services []Service
	started  bool
	wg       sync.WaitGroup
	errs     *errors.ErrorList
}

// New creates a service group. Cancelling the context stops all
// services.
func New(ctx context.Context) Services {
	return &services{
		ctx:  ctxutil.CancelContext(ctx),
		errs: errors.ErrListf("services"),
	}
}

// Add adds a service. Services added after Start are started
// immediately.
func (t *services) Add(s Service) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.services = append(t.services, s)
	if !t.started {
		return nil
	}
	return t.startServices(s)
}

func (t *services) Start() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.started {
		return nil
	}
	t.started = true
	return t.startServices(t.services...)
}

func (t *services) startServices(list ...Service) error {
	var ready []Syncher
	for _, s := range list {
		r, err := t.start(s)
		if err != nil {
			return err
		}
		if r != nil {
			ready = append(ready, r)
		}
	}
	for _, r := range ready {
		if err := r.Wait(); err != nil {
			ctxutil.Cancel(t.ctx)
			return err
		}
	}
	return nil
}

func (t *services) start(s Service) (Syncher, error) {
	ready, done, err := s.Start(t.ctx)
	if err == nil && done == nil {
		err = fmt.Errorf("no done syncher")
	}
	if err != nil {
		ctxutil.Cancel(t.ctx)
		return nil, errors.Wrapf(err, "service %T", s)
	}
	log.Debug("started service {{service}}", "service", fmt.Sprintf("%T", s))
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := done.Wait(); err != nil {
			t.lock.Lock()
			defer t.lock.Unlock()
			t.errs.Add(errors.Wrapf(err, "service %T", s))
		}
	}()
	return ready, nil
}

// Stop cancels the context of the services.
func (t *services) Stop() {
	ctxutil.Cancel(t.ctx)
}

// Wait waits for all started services to finish.
func (t *services) Wait() error {
	t.wg.Wait()
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.errs.Result()
}
