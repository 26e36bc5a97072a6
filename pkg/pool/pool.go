// Package pool provides a worker pool processing commands and
// object keys from a rate limiting workqueue. The session manager
// uses it to evict idle sessions.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mandelsoft/goutils/general"
	"github.com/mandelsoft/logging"
	"k8s.io/client-go/util/workqueue"

	"github.com/mandelsoft/toscaeditor/pkg/ctxutil"
	"github.com/mandelsoft/toscaeditor/pkg/service"
)

var REALM = logging.DefineRealm("toscaeditor/pool", "worker pool")

type Pool interface {
	service.Service

	GetName() string
	Period() time.Duration

	AddAction(key ActionTargetSpec, a Action)
	GetActions(key ActionTargetSpec) []Action

	EnqueueCommand(cmd Command)
	EnqueueCommandRateLimited(cmd Command)
	EnqueueCommandAfter(cmd Command, duration time.Duration)

	EnqueueKey(key ObjectKey)
	EnqueueKeyRateLimited(key ObjectKey)
	EnqueueKeyAfter(key ObjectKey, duration time.Duration)

	QueueLength() int
}

type MessageContext = logging.AttributionContext

type pool struct {
	logging.UnboundLogger
	name       string
	size       int
	ctx        context.Context
	lctx       logging.AttributionContext
	period     time.Duration
	workqueue  workqueue.RateLimitingInterface
	lock       sync.RWMutex
	actions    *actionMapping
	useKeyName bool
	ready      service.Trigger
	syncher    service.Syncher
}

// NewPool creates a pool with size workers. With a period, object
// keys are reprocessed periodically.
func NewPool(lctxp logging.AttributionContextProvider, name string, size int, period time.Duration, useKeyName ...bool) Pool {
	lctx := lctxp.AttributionContext().WithContext(REALM, logging.NewAttribute("pool", name)).WithName(name)
	p := &pool{
		name:       name,
		size:       size,
		period:     period,
		lctx:       lctx.AttributionContext(),
		useKeyName: general.Optional(useKeyName...),
		workqueue: workqueue.NewRateLimitingQueueWithConfig(workqueue.DefaultControllerRateLimiter(), workqueue.RateLimitingQueueConfig{
			Name: name,
		}),
		actions: newActionMapping(),
	}
	p.UnboundLogger = logging.DynamicLogger(lctx, logging.NewAttribute("pool", name))

	if p.period != 0 {
		p.Info("created pool", "name", p.name, "size", p.size, "resync period", p.period.String())
	} else {
		p.Info("created pool", "name", p.name, "size", p.size)
	}
	return p
}

func (p *pool) AddAction(key ActionTargetSpec, a Action) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.Debug("adding action", "type", fmt.Sprintf("%T", a), "key", key.String())
	p.actions.addAction(key, a)
}

func (p *pool) GetActions(key ActionTargetSpec) []Action {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.actions.getAction(key)
}

func (p *pool) GetName() string {
	return p.name
}

func (p *pool) Period() time.Duration {
	return p.period
}

func (p *pool) QueueLength() int {
	return p.workqueue.Len()
}

func (p *pool) Wait() error {
	if p.syncher == nil {
		return nil
	}
	return p.syncher.Wait()
}

func (p *pool) Start(ctx context.Context) (service.Syncher, service.Syncher, error) {
	if p.syncher == nil {
		p.ctx = ctxutil.WaitGroupContext(ctx, fmt.Sprintf("pool %s", p.name))
		p.syncher = service.Sync(ctxutil.WaitGroupGet(p.ctx))
		p.ready = service.SyncTrigger()
		ctxutil.WaitGroupRun(p.ctx, p.run)
	}
	return p.ready, p.syncher, nil
}

func (p *pool) run() {
	p.Info("starting worker pool", "name", p.name, "workers", p.size)

	// the tick keeps the workers busy with an empty queue
	p.workqueue.AddAfter(EncodeCommandKey(tickCmd), tick)

	for i := 0; i < p.size; i++ {
		p.startWorker(i)
	}
	p.ready.Trigger()

	<-p.ctx.Done()
	p.workqueue.ShutDown()
	p.Info("waiting for pool workers to shutdown", "name", p.name)
}

func (p *pool) startWorker(number int) {
	ctxutil.WaitGroupRun(p.ctx, newWorker(p, number).Run)
}

func (p *pool) EnqueueCommand(cmd Command) {
	p.workqueue.Add(EncodeCommandKey(cmd))
}

func (p *pool) EnqueueCommandRateLimited(cmd Command) {
	p.workqueue.AddRateLimited(EncodeCommandKey(cmd))
}

func (p *pool) EnqueueCommandAfter(cmd Command, duration time.Duration) {
	p.workqueue.AddAfter(EncodeCommandKey(cmd), duration)
}

func (p *pool) EnqueueKey(key ObjectKey) {
	p.workqueue.Add(EncodeObjectKey(key))
}

func (p *pool) EnqueueKeyRateLimited(key ObjectKey) {
	p.workqueue.AddRateLimited(EncodeObjectKey(key))
}

func (p *pool) EnqueueKeyAfter(key ObjectKey, duration time.Duration) {
	p.workqueue.AddAfter(EncodeObjectKey(key), duration)
}
