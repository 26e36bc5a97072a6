package events_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	me "github.com/mandelsoft/toscaeditor/pkg/events"
)

type recorder struct {
	events []me.TopologyEvent
}

func (r *recorder) HandleEvent(e me.TopologyEvent) {
	r.events = append(r.events, e)
}

var _ = Describe("events", func() {
	var reg me.HandlerRegistry[me.TopologyEvent]

	deleted := me.TopologyEvent{Type: me.TopologyDeleted, Workspace: "ws", Topology: "app:1.0"}
	saved := me.TopologyEvent{Type: me.TopologySaved, Workspace: "other", Topology: "app:1.0"}

	BeforeEach(func() {
		reg = me.NewHandlerRegistry[me.TopologyEvent]()
	})

	It("dispatches by type and workspace", func() {
		typed := &recorder{}
		scoped := &recorder{}
		all := &recorder{}
		reg.RegisterHandler(typed, me.TopologyDeleted)
		reg.RegisterHandler(scoped, me.TopologyDeleted, "other")
		reg.RegisterHandler(all, "")

		reg.TriggerEvent(deleted)
		reg.TriggerEvent(saved)

		Expect(typed.events).To(Equal([]me.TopologyEvent{deleted}))
		Expect(scoped.events).To(BeEmpty())
		Expect(all.events).To(Equal([]me.TopologyEvent{deleted, saved}))
	})

	It("registers handlers once", func() {
		r := &recorder{}
		reg.RegisterHandler(r, me.TopologyDeleted)
		reg.RegisterHandler(r, me.TopologyDeleted)
		reg.TriggerEvent(deleted)
		Expect(len(r.events)).To(Equal(1))
	})

	It("unregisters handlers", func() {
		r := &recorder{}
		reg.RegisterHandler(r, me.TopologyDeleted, "ws")
		reg.UnregisterHandler(r, me.TopologyDeleted, "ws")
		reg.TriggerEvent(deleted)
		Expect(r.events).To(BeEmpty())
	})

	It("accepts functions", func() {
		var got []string
		f := me.HandlerFunc[me.TopologyEvent](func(e me.TopologyEvent) { got = append(got, e.Topology) })
		reg.RegisterHandler(&f, me.TopologyDeleted)
		reg.TriggerEvent(deleted)
		Expect(got).To(Equal([]string{"app:1.0"}))
	})
})
