package future

import (
	"context"
	"sync"

	"github.com/mandelsoft/goutils/general"
	"github.com/mandelsoft/logging"
)

type waiting[I comparable] map[I][]*future

// EventManager provides futures for events of type E concerning
// elements with id I.
type EventManager[I comparable, E comparable] interface {
	Trigger(log logging.Logger, e E, id I)
	Wait(ctx context.Context, e E, id I) bool

	Future(e E, id I, retrigger ...bool) Future
}

type eventManager[I comparable, E comparable] struct {
	lock  sync.Mutex
	types map[E]waiting[I]
}

func NewEventManager[I comparable, E comparable]() EventManager[I, E] {
	return &eventManager[I, E]{
		types: map[E]waiting[I]{},
	}
}

func (p *eventManager[I, E]) state(e E) waiting[I] {
	state := p.types[e]
	if state == nil {
		state = waiting[I]{}
		p.types[e] = state
	}
	return state
}

func (p *eventManager[I, E]) Trigger(log logging.Logger, e E, id I) {
	if log != nil {
		log.Debug("trigger event {{event}} for {{target}}", "event", e, "target", id)
	}
	p.lock.Lock()
	defer p.lock.Unlock()

	state := p.state(e)
	var n []*future
	for _, w := range state[id] {
		if w.Trigger() {
			n = append(n, w)
		}
	}
	if len(n) == 0 {
		delete(state, id)
	} else {
		state[id] = n
	}
}

// Future provides a future triggered by the next event. It must be
// created before the event is triggered.
func (p *eventManager[I, E]) Future(e E, id I, retrigger ...bool) Future {
	p.lock.Lock()
	defer p.lock.Unlock()

	f := NewFuture(general.Optional(retrigger...))
	state := p.state(e)
	state[id] = append(state[id], f)
	return f
}

func (p *eventManager[I, E]) Wait(ctx context.Context, e E, id I) bool {
	return p.Future(e, id).Wait(ctx)
}
