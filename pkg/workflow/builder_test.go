package workflow_test

import (
	"sort"

	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/go-test/deep"
	"github.com/tiendc/go-deepcopy"

	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/testutils"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"

	me "github.com/mandelsoft/toscaeditor/pkg/workflow"
)

func edges(w *model.Workflow) []string {
	var r []string
	for _, s := range w.Steps.List() {
		for _, n := range s.OnSuccess {
			r = append(r, s.Name+"->"+n)
		}
	}
	sort.Strings(r)
	return r
}

func chain(node string, phases ...string) []string {
	var r []string
	for _, p := range phases {
		switch p {
		case "create", "configure", "start", "stop", "delete":
			r = append(r, p+"_"+node)
		default:
			r = append(r, node+"_"+p)
		}
	}
	return r
}

var install = []string{"creating", "create", "created", "configuring", "configure", "configured", "starting", "start", "started"}
var uninstall = []string{"stopping", "stop", "stopped", "deleting", "delete", "deleted"}

var _ = Describe("workflow builder", func() {
	var f *testutils.TopologyFixture
	var topo *model.Topology
	var b *me.Builder

	BeforeEach(func() {
		f = Must(testutils.NewTopologyFixture("app", "1.0"))
		topo = f.Topology
		b = me.New()
		Must(f.AddNode("compute", "tosca.nodes.Compute"))
		Must(f.AddNode("web", "tosca.nodes.WebServer"))
		Must(f.AddNode("app", "tosca.nodes.WebApplication"))
		Must(f.AddRelationship("web", "host", "compute", "host"))
		Must(f.AddRelationship("app", "host", "web", "host"))
		MustBeSuccessful(b.InitWorkflows(f.Context, topo))
	})

	AfterEach(func() {
		f.Release()
	})

	// rebuilt returns the standard workflows derived from scratch.
	rebuilt := func() *model.Topology {
		var c *model.Topology
		MustBeSuccessful(deepcopy.Copy(&c, topo))
		MustBeSuccessful(b.InitWorkflows(f.Context, c))
		return c
	}

	expectDerived := func() {
		c := rebuilt()
		for _, name := range model.StandardWorkflows {
			w := Must(topo.GetWorkflow(name))
			o := Must(c.GetWorkflow(name))
			Expect(w.Steps.Names()).To(ConsistOf(o.Steps.Names()), name)
			Expect(edges(w)).To(Equal(edges(o)), name)
		}
	}

	Context("standard workflows", func() {
		It("builds install", func() {
			w := Must(topo.GetWorkflow(model.InstallWorkflow))
			Expect(w.Standard).To(BeTrue())
			Expect(w.Steps.Names()).To(Equal(append(append([]string{"compute_install"}, chain("web", install...)...), chain("app", install...)...)))

			Expect(w.Steps.Get("compute_install").Activity()).To(Equal(model.Activity{Type: model.ActivityDelegate, Value: model.InstallWorkflow}))
			Expect(w.Steps.Get("create_web").Activity()).To(Equal(model.Activity{Type: model.ActivityCallOperation, Value: "Standard.create"}))
			Expect(w.Steps.Get("web_creating").Precedings).To(Equal([]string{"compute_install"}))
			Expect(w.Steps.Get("app_creating").Precedings).To(Equal([]string{"web_started"}))
			Expect(w.Steps.Get("web_started").OnSuccess).To(Equal([]string{"app_creating"}))
		})

		It("keeps colliding step names apart", func() {
			for _, n := range []string{"create", "creating"} {
				Must(f.AddNode(n, "tosca.nodes.SoftwareComponent"))
				MustBeSuccessful(b.AddNode(f.Context, topo, n))
			}
			w := Must(topo.GetWorkflow(model.InstallWorkflow))

			state := w.Steps.Get("create_creating")
			Expect(state.Target).To(Equal("create"))
			Expect(state.Activity()).To(Equal(model.Activity{Type: model.ActivitySetState, Value: "creating"}))

			op := w.Steps.Get("create_creating_0")
			Expect(op.Target).To(Equal("creating"))
			Expect(op.Activity()).To(Equal(model.Activity{Type: model.ActivityCallOperation, Value: "Standard.create"}))
			Expect(op.Precedings).To(Equal([]string{"creating_creating"}))
			Expect(op.OnSuccess).To(Equal([]string{"creating_created"}))

			MustBeSuccessful(b.RemoveNode(f.Context, topo, "create"))
			Expect(w.Steps.Has("create_creating")).To(BeFalse())
			Expect(w.Steps.Get("create_creating_0").Target).To(Equal("creating"))
		})

		It("builds uninstall in reverse order", func() {
			w := Must(topo.GetWorkflow(model.UninstallWorkflow))
			Expect(w.Steps.Has("compute_uninstall")).To(BeTrue())
			Expect(w.Steps.Get("web_deleted").OnSuccess).To(Equal([]string{"compute_uninstall"}))
			Expect(w.Steps.Get("app_deleted").OnSuccess).To(Equal([]string{"web_stopping"}))
			Expect(w.Steps.Get("web_stopping").Precedings).To(Equal([]string{"app_deleted"}))
		})

		It("orders dependencies", func() {
			Must(f.AddNode("db", "tosca.nodes.Database"))
			MustBeSuccessful(b.AddNode(f.Context, topo, "db"))
			rel := Must(f.AddRelationship("app", "dependency", "db", "feature"))
			MustBeSuccessful(b.AddRelationship(f.Context, topo, "app", rel.Name))

			w := Must(topo.GetWorkflow(model.InstallWorkflow))
			Expect(w.Steps.Get("app_configuring").Precedings).To(ConsistOf("create_app", "db_started"))
			w = Must(topo.GetWorkflow(model.UninstallWorkflow))
			Expect(w.Steps.Get("db_stopping").Precedings).To(Equal([]string{"app_stopped"}))
			expectDerived()

			MustBeSuccessful(b.RemoveRelationship(f.Context, topo, "app", rel))
			Must(topo.GetNode("app")).Relationships.Delete(rel.Name)
			w = Must(topo.GetWorkflow(model.InstallWorkflow))
			Expect(w.Steps.Get("app_configuring").Precedings).To(Equal([]string{"create_app"}))
			expectDerived()
		})

		It("removes nodes", func() {
			before := Must(topo.GetWorkflow(model.InstallWorkflow))
			var saved *model.Workflow
			MustBeSuccessful(deepcopy.Copy(&saved, before))

			Must(f.AddNode("other", "tosca.nodes.WebServer"))
			MustBeSuccessful(b.AddNode(f.Context, topo, "other"))
			Expect(Must(topo.GetWorkflow(model.InstallWorkflow)).Steps.Has("other_creating")).To(BeTrue())

			MustBeSuccessful(b.RemoveNode(f.Context, topo, "other"))
			topo.NodeTemplates.Delete("other")
			Expect(deep.Equal(Must(topo.GetWorkflow(model.InstallWorkflow)), saved)).To(BeNil())
			expectDerived()
		})

		It("renames nodes", func() {
			MustBeSuccessful(b.RenameNode(f.Context, topo, "web", "server"))
			w := Must(topo.GetWorkflow(model.InstallWorkflow))
			Expect(w.Steps.Has("web_creating")).To(BeFalse())
			s := w.Steps.Get("server_creating")
			Expect(s.Target).To(Equal("server"))
			Expect(s.Precedings).To(Equal([]string{"compute_install"}))
			Expect(w.Steps.Get("create_server").Target).To(Equal("server"))
			Expect(w.Steps.Get("app_creating").Precedings).To(Equal([]string{"server_started"}))
			for _, wf := range topo.Workflows.List() {
				for _, st := range wf.Steps.List() {
					Expect(st.Target).NotTo(Equal("web"))
				}
			}
		})

		It("rejects reinitializing custom workflows", func() {
			Must(b.CreateWorkflow(topo, "custom"))
			err := b.ReinitWorkflow(f.Context, topo, "custom")
			Expect(errkind.Is(err, errkind.InvalidArgument)).To(BeTrue())
			MustBeSuccessful(b.ReinitWorkflow(f.Context, topo, model.InstallWorkflow))
		})

		It("does not add nodes to custom workflows", func() {
			Must(b.CreateWorkflow(topo, "custom"))
			Must(f.AddNode("other", "tosca.nodes.WebServer"))
			MustBeSuccessful(b.AddNode(f.Context, topo, "other"))
			Expect(Must(topo.GetWorkflow("custom")).Steps.Len()).To(Equal(0))
		})
	})

	Context("custom workflows", func() {
		var w *model.Workflow

		BeforeEach(func() {
			w = Must(b.CreateWorkflow(topo, "maintenance"))
		})

		add := func(related string, before bool, target, value string) string {
			return Must(b.AddActivity(f.Context, topo, w.Name, related, before, me.StepSpec{
				Target:   target,
				Activity: model.Activity{Type: model.ActivityCallOperation, Value: value},
			}))
		}

		It("validates names", func() {
			_, err := b.CreateWorkflow(topo, "maintenance")
			Expect(errkind.IsAlreadyExists(err)).To(BeTrue())
			_, err = b.CreateWorkflow(topo, "bad name")
			Expect(errkind.Is(err, errkind.InvalidName)).To(BeTrue())
			_, err = b.CreateWorkflow(topo, model.InstallWorkflow)
			Expect(errkind.Is(err, errkind.InvalidArgument)).To(BeTrue())
		})

		It("adds activities", func() {
			stop := add("", false, "web", "Standard.stop")
			start := add(stop, false, "web", "Standard.start")
			Expect([]string{stop, start}).To(Equal([]string{"stop_web", "start_web"}))
			Expect(w.Steps.Get(stop).OnSuccess).To(Equal([]string{start}))

			cfg := add(start, true, "web", "Standard.configure")
			Expect(w.Steps.Get(stop).OnSuccess).To(Equal([]string{cfg}))
			Expect(w.Steps.Get(cfg).OnSuccess).To(Equal([]string{start}))
			Expect(w.Steps.Get(start).Precedings).To(Equal([]string{cfg}))

			again := add("", false, "web", "Standard.stop")
			Expect(again).To(Equal("stop_web_0"))
		})

		It("validates activities", func() {
			_, err := b.AddActivity(f.Context, topo, w.Name, "", false, me.StepSpec{Target: "web", Activity: model.Activity{Type: model.ActivityCallOperation, Value: "Standard.unknown"}})
			Expect(errkind.IsNotFound(err)).To(BeTrue())
			_, err = b.AddActivity(f.Context, topo, w.Name, "", false, me.StepSpec{Target: "missing", Activity: model.Activity{Type: model.ActivitySetState, Value: "started"}})
			Expect(errkind.IsNotFound(err)).To(BeTrue())
			_, err = b.AddActivity(f.Context, topo, w.Name, "", false, me.StepSpec{Activity: model.Activity{Type: "unknown", Value: "x"}})
			Expect(errkind.Is(err, errkind.InvalidArgument)).To(BeTrue())
			_, err = b.AddActivity(f.Context, topo, w.Name, "", false, me.StepSpec{Activity: model.Activity{Type: model.ActivityInline, Value: w.Name}})
			Expect(errkind.Is(err, errkind.CyclicReference)).To(BeTrue())
			Expect(Must(b.AddActivity(f.Context, topo, w.Name, "", false, me.StepSpec{Activity: model.Activity{Type: model.ActivityInline, Value: model.InstallWorkflow}}))).To(Equal("inline_install"))
		})

		It("connects steps without cycles", func() {
			a := add("", false, "web", "Standard.stop")
			c := add("", false, "web", "Standard.start")
			d := add("", false, "app", "Standard.start")
			MustBeSuccessful(b.ConnectStepTo(topo, w.Name, a, []string{c}))
			MustBeSuccessful(b.ConnectStepFrom(topo, w.Name, d, []string{c}))
			Expect(edges(w)).To(Equal([]string{"start_web->start_app", "stop_web->start_web"}))

			err := b.ConnectStepFrom(topo, w.Name, a, []string{d})
			Expect(errkind.Is(err, errkind.CyclicReference)).To(BeTrue())
			err = b.ConnectStepTo(topo, w.Name, d, []string{"missing"})
			Expect(errkind.IsNotFound(err)).To(BeTrue())
			Expect(edges(w)).To(Equal([]string{"start_web->start_app", "stop_web->start_web"}))

			MustBeSuccessful(b.RemoveEdge(topo, w.Name, c, d))
			Expect(edges(w)).To(Equal([]string{"stop_web->start_web"}))
			Expect(errkind.IsNotFound(b.RemoveEdge(topo, w.Name, c, d))).To(BeTrue())
		})

		It("removes steps keeping the order", func() {
			a := add("", false, "web", "Standard.stop")
			c := add(a, false, "web", "Standard.configure")
			d := add(c, false, "web", "Standard.start")
			MustBeSuccessful(b.RemoveStep(topo, w.Name, c))
			Expect(w.Steps.Names()).To(Equal([]string{a, d}))
			Expect(edges(w)).To(Equal([]string{a + "->" + d}))
			Expect(w.Steps.Get(d).Precedings).To(Equal([]string{a}))
		})

		It("swaps steps", func() {
			a := add("", false, "web", "Standard.stop")
			c := add(a, false, "web", "Standard.configure")
			d := add(c, false, "web", "Standard.start")
			MustBeSuccessful(b.SwapSteps(topo, w.Name, a, c))
			Expect(edges(w)).To(ConsistOf(c+"->"+a, a+"->"+d))
			Expect(w.Steps.Names()).To(Equal([]string{c, a, d}))
			Expect(w.Steps.Get(c).Precedings).To(BeNil())
		})

		It("renames steps", func() {
			a := add("", false, "web", "Standard.stop")
			c := add(a, false, "web", "Standard.start")
			Expect(errkind.IsAlreadyExists(b.RenameStep(topo, w.Name, a, c))).To(BeTrue())
			MustBeSuccessful(b.RenameStep(topo, w.Name, a, "halt"))
			Expect(edges(w)).To(Equal([]string{"halt->" + c}))
			Expect(w.Steps.Get(c).Precedings).To(Equal([]string{"halt"}))
		})

		It("updates activities", func() {
			a := add("", false, "web", "Standard.stop")
			MustBeSuccessful(b.UpdateActivity(f.Context, topo, w.Name, a, model.Activity{Type: model.ActivitySetState, Value: "stopped"}))
			Expect(w.Steps.Get(a).Activity()).To(Equal(model.Activity{Type: model.ActivitySetState, Value: "stopped"}))
		})

		It("renames and removes workflows", func() {
			Must(b.CreateWorkflow(topo, "caller"))
			Must(b.AddActivity(f.Context, topo, "caller", "", false, me.StepSpec{Activity: model.Activity{Type: model.ActivityInline, Value: "maintenance"}}))
			MustBeSuccessful(b.RenameWorkflow(topo, "maintenance", "repair"))
			Expect(Must(topo.GetWorkflow("caller")).Steps.Get("inline_maintenance").Activity().Value).To(Equal("repair"))
			Expect(topo.Workflows.Has("maintenance")).To(BeFalse())

			Expect(errkind.Is(b.RemoveWorkflow(topo, model.InstallWorkflow), errkind.InvalidArgument)).To(BeTrue())
			Expect(errkind.Is(b.RenameWorkflow(topo, model.InstallWorkflow, "x"), errkind.InvalidArgument)).To(BeTrue())
			MustBeSuccessful(b.RemoveWorkflow(topo, "repair"))
			Expect(topo.Workflows.Has("repair")).To(BeFalse())
		})

		It("drops steps of removed relationships", func() {
			app := Must(topo.GetNode("app"))
			rel := app.Relationships.List()[0]
			name := Must(b.AddActivity(f.Context, topo, w.Name, "", false, me.StepSpec{
				Target:             "app",
				TargetRelationship: rel.Name,
				Activity:           model.Activity{Type: model.ActivityCallOperation, Value: "Configure.add_target"},
			}))
			MustBeSuccessful(b.RenameRelationship(f.Context, topo, "app", rel.Name, "onWeb"))
			Expect(w.Steps.Get(name).TargetRelationship).To(Equal("onWeb"))
			rel.Name = "onWeb"
			MustBeSuccessful(b.RemoveRelationship(f.Context, topo, "app", rel))
			Expect(w.Steps.Has(name)).To(BeFalse())
		})
	})
})
