/*
 * SPDX-FileCopyrightText: 2019 SAP SE or an SAP affiliate company and Gardener contributors
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package pool

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mandelsoft/logging"
)

// worker is a single go routine processing requests from the
// workqueue of its pool.
type worker struct {
	logging.UnboundLogger
	dynlog logging.UnboundLogger
	pool   *pool
}

func newWorker(p *pool, number int) *worker {
	lgr := logging.DynamicLogger(p.lctx,
		logging.NewName(fmt.Sprintf("worker %d", number)),
		logging.NewAttribute("worker", strconv.Itoa(number)),
	)

	return &worker{
		UnboundLogger: lgr,
		dynlog:        lgr,
		pool:          p,
	}
}

func (w *worker) Run() {
	w.Debug("starting worker")
	for w.processNextWorkItem() {
	}
	w.Debug("exit worker")
}

func (w *worker) loggerForKey(key string) func() {
	w.UnboundLogger = w.dynlog.WithContext(logging.NewAttribute("resource-key", key), logging.NewName(key))
	return func() { w.UnboundLogger = w.dynlog }
}

// catch converts a panic with a Status into a regular result.
func catch(f func() Status) (result Status) {
	defer func() {
		if r := recover(); r != nil {
			if res, ok := r.(Status); ok {
				result = res
			} else {
				panic(r)
			}
		}
	}()
	return f()
}

func (w *worker) processNextWorkItem() bool {
	obj, shutdown := w.pool.workqueue.Get()
	if shutdown {
		return false
	}
	defer w.pool.workqueue.Done(obj)

	key, ok := obj.(string)
	if !ok {
		w.Error("unexpected workqueue entry", "entry", fmt.Sprintf("%#v", obj))
		w.pool.workqueue.Forget(obj)
		return true
	}
	defer w.loggerForKey(key)()

	reqlog := w.dynlog
	if w.pool.useKeyName {
		reqlog = w.UnboundLogger
	}

	cmd, okey, err := DecodeKey(key)
	if err != nil {
		w.Error("request key error", "error", err)
		w.pool.workqueue.Forget(obj)
		return true
	}

	var status []Status
	if cmd != "" {
		actions := w.pool.GetActions(cmd)
		if len(actions) == 0 {
			if cmd == tickCmd {
				w.pool.workqueue.AddAfter(obj, tick)
			} else {
				w.Error("no action found for command", "command", cmd)
			}
			return true
		}
		for _, a := range actions {
			status = append(status, catch(func() Status { return a.Command(w.pool, reqlog.AttributionContext(), cmd) }))
		}
	}
	if okey != nil {
		for _, a := range w.pool.GetActions(ObjectType(okey.Type)) {
			status = append(status, catch(func() Status { return a.Reconcile(w.pool, reqlog.AttributionContext(), *okey) }))
		}
	}
	w.schedule(obj, status)
	return true
}

// schedule requeues an entry according to the combined status of
// its actions.
func (w *worker) schedule(obj interface{}, status []Status) {
	ok := true
	var err error
	var reschedule time.Duration = -1
	for _, s := range status {
		if !s.Completed {
			ok = false
		}
		if s.Error != nil {
			err = s.Error
		}
		updateSchedule(&reschedule, s.Interval)
	}

	switch {
	case err != nil && ok && reschedule < 0:
		// not ready yet
		w.Warn("add rate limited because of problem", "key", obj, "problem", err)
		w.pool.workqueue.AddRateLimited(obj)
	case err != nil:
		if reschedule > 0 {
			w.Info("request reschedule", "key", obj, "delay", reschedule.String())
			w.pool.workqueue.AddAfter(obj, reschedule)
		} else {
			w.Info("wait for new change", "key", obj, "problem", err)
		}
	case ok:
		w.pool.workqueue.Forget(obj)
		if reschedule < 0 || (w.pool.Period() > 0 && w.pool.Period() < reschedule) {
			reschedule = w.pool.Period()
		}
		if reschedule > 0 {
			w.Debug("reschedule", "key", obj, "delay", reschedule.String())
			w.pool.workqueue.AddAfter(obj, reschedule)
		}
	default:
		w.Info("redo", "key", obj)
		w.pool.workqueue.Add(obj)
	}
}

func updateSchedule(reschedule *time.Duration, interval time.Duration) {
	if interval >= 0 && (*reschedule <= 0 || interval < *reschedule) {
		*reschedule = interval
	}
}
