package topology_test

import (
	"context"

	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/catalog"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/typectx"

	me "github.com/mandelsoft/toscaeditor/pkg/topology"
)

var base = model.CSARDependency{Name: "base", Version: "1.0"}
var extra = model.CSARDependency{Name: "extra", Version: "1.0"}

func types() (*catalog.Catalog, error) {
	cat, err := catalog.New("/catalog", memoryfs.New())
	if err != nil {
		return nil, err
	}
	root := model.NewArchiveRoot()
	root.Archive = model.Csar{Name: base.Name, Version: base.Version}
	root.SetType(&model.CapabilityType{
		TypeBase: model.TypeBase{ElementId: model.ContainerCapability},
		Properties: map[string]*model.PropertyDefinition{
			"num_cpus": {Type: "integer", Default: "1"},
		},
	})
	root.SetType(&model.RelationshipType{TypeBase: model.TypeBase{ElementId: model.HostedOnType}})
	root.SetType(&model.NodeType{
		TypeBase: model.TypeBase{ElementId: "tosca.nodes.Compute"},
		Properties: map[string]*model.PropertyDefinition{
			"port": {Type: "integer", Default: "80"},
			"name": {Type: "string"},
		},
		Capabilities: []*model.CapabilityDefinition{
			{Id: "host", Type: model.ContainerCapability, UpperBound: 1, Properties: map[string]interface{}{"num_cpus": "4"}},
		},
		Requirements: []*model.RequirementDefinition{
			{Id: "host", Type: model.ContainerCapability, RelationshipType: model.HostedOnType, LowerBound: 0, UpperBound: 1},
		},
	})
	if err := cat.Import(root); err != nil {
		return nil, err
	}
	root = model.NewArchiveRoot()
	root.Archive = model.Csar{Name: extra.Name, Version: extra.Version, Dependencies: []model.CSARDependency{base}}
	root.SetType(&model.NodeType{TypeBase: model.TypeBase{ElementId: "extra.nodes.Web", DerivedFrom: []string{"tosca.nodes.Compute"}}})
	root.SetType(&model.NodeType{
		TypeBase: model.TypeBase{ElementId: "extra.nodes.Cache"},
		Capabilities: []*model.CapabilityDefinition{
			{Id: "host", Type: model.ContainerCapability, UpperBound: 1},
		},
	})
	return cat, cat.Import(root)
}

var _ = Describe("topology", func() {
	var cat *catalog.Catalog
	var tc *typectx.Context
	var ctx context.Context
	var topo *model.Topology

	BeforeEach(func() {
		cat = Must(types())
		tc = typectx.New(cat, base)
		ctx = typectx.With(context.Background(), tc)
		topo = model.NewTopology("app", "1.0", "")
		topo.Dependencies = []model.CSARDependency{base}
	})

	AfterEach(func() {
		tc.Release()
	})

	add := func(name, typ string) *model.NodeTemplate {
		t := Must(typectx.Require[*model.NodeType](ctx, typ))
		n := me.BuildNodeTemplate(tc, t, name)
		topo.NodeTemplates.Set(name, n)
		return n
	}

	hostedOn := func(source, target string) *model.RelationshipTemplate {
		rt := Must(typectx.Require[*model.RelationshipType](ctx, model.HostedOnType))
		r := me.BuildRelationshipTemplate(tc, rt, me.RelationshipName(rt.ElementId, target), target, "host", model.ContainerCapability, "host")
		topo.NodeTemplates.Get(source).Relationships.Set(r.Name, r)
		return r
	}

	Context("building", func() {
		It("builds a node template with defaults", func() {
			n := add("compute", "tosca.nodes.Compute")
			Expect(n.Type).To(Equal("tosca.nodes.Compute"))
			Expect(n.Properties).To(HaveKey("name"))
			Expect(n.Properties["name"]).To(BeNil())
			Expect(n.Properties["port"]).To(Equal(model.NewScalarValue("80", "integer")))
			Expect(n.Capabilities["host"].Properties["num_cpus"]).To(Equal(model.NewScalarValue("4", "integer")))
			Expect(n.Requirements).To(HaveKey("host"))
			Expect(n.Relationships.Len()).To(Equal(0))
		})

		It("derives relationship names", func() {
			Expect(me.RelationshipName(model.HostedOnType, "compute")).To(Equal("hostedOnCompute"))
			Expect(me.RelationshipName("DependsOn", "db")).To(Equal("dependsOnDb"))
			used := sets.New("a", "a_0")
			Expect(me.UniqueName("a", used.Has)).To(Equal("a_1"))
			Expect(me.UniqueName("b", used.Has)).To(Equal("b"))
		})
	})

	Context("references", func() {
		BeforeEach(func() {
			add("a", "tosca.nodes.Compute")
			add("b", "tosca.nodes.Compute")
			hostedOn("a", "b")
			topo.Groups["g"] = &model.NodeGroup{Name: "g", Members: sets.New("a", "b")}
			topo.Policies.Set("p", &model.PolicyTemplate{Name: "p", Targets: sets.New("b")})
			topo.OutputAttributes["b"] = sets.New("ip_address")
			topo.Substitution = &model.SubstitutionMapping{
				Capabilities: map[string]*model.SubstitutionTarget{"host": {NodeTemplateName: "b", TargetId: "host"}},
			}
		})

		It("renames a node", func() {
			MustBeSuccessful(me.RenameNode(topo, "b", "db"))
			Expect(topo.NodeTemplates.Names()).To(Equal([]string{"a", "db"}))
			Expect(topo.NodeTemplates.Get("a").Relationships.Get("hostedOnB").Target).To(Equal("db"))
			Expect(topo.Groups["g"].Members.UnsortedList()).To(ConsistOf("a", "db"))
			Expect(topo.Policies.Get("p").Targets.Has("db")).To(BeTrue())
			Expect(topo.OutputAttributes).To(HaveKey("db"))
			Expect(topo.Substitution.Capabilities["host"].NodeTemplateName).To(Equal("db"))
		})

		It("rejects invalid renames", func() {
			Expect(errkind.Is(me.RenameNode(topo, "b", "a"), errkind.AlreadyExists)).To(BeTrue())
			Expect(errkind.Is(me.RenameNode(topo, "b", "1b"), errkind.InvalidName)).To(BeTrue())
			Expect(errkind.IsNotFound(me.RenameNode(topo, "x", "y"))).To(BeTrue())
		})

		It("removes node references", func() {
			Expect(me.InboundRelationships(topo, "b")).To(HaveLen(1))
			me.RemoveNodeReferences(topo, "b")
			Expect(topo.Groups["g"].Members.UnsortedList()).To(ConsistOf("a"))
			Expect(topo.Policies.Get("p").Targets.Len()).To(Equal(0))
			Expect(topo.OutputAttributes).NotTo(HaveKey("b"))
			Expect(topo.Substitution.Capabilities).To(BeEmpty())
		})

		It("counts capability usage and follows the host chain", func() {
			add("c", "tosca.nodes.Compute")
			hostedOn("b", "c")
			Expect(me.CapabilityUsage(topo, "b", "host")).To(Equal(1))
			Expect(me.Host(ctx, topo, "a")).To(Equal("b"))
			Expect(Must(me.HostChain(ctx, topo, "a"))).To(Equal([]string{"b", "c"}))

			hostedOn("c", "a")
			_, err := me.HostChain(ctx, topo, "a")
			Expect(errkind.Is(err, errkind.CyclicReference)).To(BeTrue())
		})
	})

	Context("dependencies", func() {
		It("loads and unloads archives", func() {
			t := Must(me.LoadType(ctx, cat, topo, model.NodeKind, "extra.nodes.Web", ""))
			Expect(t.Base().ArchiveName).To(Equal("extra"))
			Expect(topo.Dependencies).To(ConsistOf(base, extra))
			Expect(tc.Dependencies()).To(ConsistOf(base, extra))

			topo.NodeTemplates.Set("web", me.BuildNodeTemplate(tc, t.(*model.NodeType), "web"))
			me.UnloadType(ctx, topo, model.NodeKind, "extra.nodes.Web")
			Expect(topo.Dependencies).To(ConsistOf(base, extra))

			topo.NodeTemplates.Delete("web")
			me.UnloadType(ctx, topo, model.NodeKind, "extra.nodes.Web")
			Expect(topo.Dependencies).To(ConsistOf(base))
			Expect(tc.Dependencies()).To(ConsistOf(base))
		})

		It("keeps archives of parent types", func() {
			t := Must(me.LoadType(ctx, cat, topo, model.NodeKind, "extra.nodes.Web", ""))
			topo.NodeTemplates.Set("web", me.BuildNodeTemplate(tc, t.(*model.NodeType), "web"))
			Must(me.LoadType(ctx, cat, topo, model.RelationshipKind, model.HostedOnType, ""))

			me.UnloadType(ctx, topo, model.RelationshipKind, model.HostedOnType)
			Expect(topo.Dependencies).To(ConsistOf(base, extra))
			Expect(me.ArchiveUsed(ctx, topo, base.Name)).To(BeTrue())

			topo.NodeTemplates.Delete("web")
			me.UnloadType(ctx, topo, model.NodeKind, "extra.nodes.Web")
			Expect(topo.Dependencies).To(ConsistOf(base))
			me.UnloadType(ctx, topo, model.RelationshipKind, model.HostedOnType)
			Expect(topo.Dependencies).To(BeEmpty())
		})

		It("keeps archives of capability types", func() {
			t := Must(me.LoadType(ctx, cat, topo, model.NodeKind, "extra.nodes.Cache", ""))
			n := me.BuildNodeTemplate(tc, t.(*model.NodeType), "cache")
			Expect(n.Capabilities).To(HaveKey("host"))
			topo.NodeTemplates.Set("cache", n)

			me.UnloadType(ctx, topo, model.RelationshipKind, model.HostedOnType)
			Expect(topo.Dependencies).To(ConsistOf(base, extra))
			Expect(me.ArchiveUsed(ctx, topo, base.Name)).To(BeTrue())
			Expect(me.ArchiveUsed(ctx, topo, "other")).To(BeFalse())
		})

		It("fails for unknown types", func() {
			_, err := me.LoadType(ctx, cat, topo, model.NodeKind, "unknown", "")
			Expect(errkind.IsNotFound(err)).To(BeTrue())
		})
	})
})
