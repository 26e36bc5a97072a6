// Package events distributes topology lifecycle events to registered
// handlers. Handlers register for an event type and a workspace; the
// empty string matches all.
package events

import (
	"slices"
	"sync"
)

const (
	TopologyCreated = "topology-created"
	TopologySaved   = "topology-saved"
	TopologyDeleted = "topology-deleted"
	SessionEvicted  = "session-evicted"
)

// Id identifies the subject of an event.
type Id interface {
	GetType() string
	GetNamespace() string
}

// TopologyEvent is an event for a topology version of a workspace.
type TopologyEvent struct {
	Type      string
	Workspace string
	Topology  string
}

var _ Id = TopologyEvent{}

func (e TopologyEvent) GetType() string {
	return e.Type
}

func (e TopologyEvent) GetNamespace() string {
	return e.Workspace
}

type EventHandler[I Id] interface {
	HandleEvent(I)
}

// HandlerFunc adapts a function as EventHandler.
type HandlerFunc[I Id] func(I)

func (f *HandlerFunc[I]) HandleEvent(id I) {
	(*f)(id)
}

type HandlerRegistration[I Id] interface {
	RegisterHandler(h EventHandler[I], kind string, nss ...string)
	UnregisterHandler(h EventHandler[I], kind string, nss ...string)
}

type HandlerRegistry[I Id] interface {
	HandlerRegistration[I]
	EventHandler[I]

	TriggerEvent(I)
}

type eventhandlers[I Id] []EventHandler[I]
type namespaces[I Id] map[string]eventhandlers[I]

type registry[I Id] struct {
	lock  sync.Mutex
	types map[string]namespaces[I]
}

var _ HandlerRegistry[TopologyEvent] = (*registry[TopologyEvent])(nil)

func NewHandlerRegistry[I Id]() HandlerRegistry[I] {
	return &registry[I]{
		types: map[string]namespaces[I]{},
	}
}

func (r *registry[I]) HandleEvent(id I) {
	r.TriggerEvent(id)
}

func (r *registry[I]) RegisterHandler(h EventHandler[I], kind string, nss ...string) {
	if len(nss) == 0 {
		nss = []string{""}
	}
	r.lock.Lock()
	defer r.lock.Unlock()

	nsmap := r.types[kind]
	if nsmap == nil {
		nsmap = namespaces[I]{}
		r.types[kind] = nsmap
	}
	for _, ns := range nss {
		if !slices.Contains(nsmap[ns], h) {
			nsmap[ns] = append(nsmap[ns], h)
		}
	}
}

func (r *registry[I]) UnregisterHandler(h EventHandler[I], kind string, nss ...string) {
	if len(nss) == 0 {
		nss = []string{""}
	}
	r.lock.Lock()
	defer r.lock.Unlock()

	nsmap := r.types[kind]
	if nsmap == nil {
		return
	}
	for _, ns := range nss {
		handlers := slices.DeleteFunc(nsmap[ns], func(e EventHandler[I]) bool { return e == h })
		if len(handlers) > 0 {
			nsmap[ns] = handlers
		} else {
			delete(nsmap, ns)
		}
	}
	if len(nsmap) == 0 {
		delete(r.types, kind)
	}
}

func (r *registry[I]) getHandlers(id I) []EventHandler[I] {
	r.lock.Lock()
	defer r.lock.Unlock()

	var handlers []EventHandler[I]
	ns := id.GetNamespace()
	for _, kind := range []string{id.GetType(), ""} {
		nsmap := r.types[kind]
		if len(nsmap) == 0 {
			continue
		}
		if ns != "" {
			handlers = append(handlers, nsmap[ns]...)
		}
		handlers = append(handlers, nsmap[""]...)
	}
	return handlers
}

// TriggerEvent calls the matching handlers synchronously, specific
// registrations first.
func (r *registry[I]) TriggerEvent(id I) {
	for _, h := range r.getHandlers(id) {
		h.HandleEvent(id)
	}
}
