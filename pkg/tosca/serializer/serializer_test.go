package serializer_test

import (
	"context"

	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mandelsoft/toscaeditor/pkg/topology"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/catalog"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/parser"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/typectx"

	me "github.com/mandelsoft/toscaeditor/pkg/tosca/serializer"
)

var base = model.CSARDependency{Name: "base", Version: "1.0"}

func types() (*catalog.Catalog, error) {
	cat, err := catalog.New("/catalog", memoryfs.New())
	if err != nil {
		return nil, err
	}
	root := model.NewArchiveRoot()
	root.Archive = model.Csar{Name: base.Name, Version: base.Version}
	root.SetType(&model.CapabilityType{
		TypeBase:   model.TypeBase{ElementId: model.ContainerCapability},
		Properties: map[string]*model.PropertyDefinition{"num_cpus": {Type: "integer", Default: "1"}},
	})
	root.SetType(&model.RelationshipType{TypeBase: model.TypeBase{ElementId: model.HostedOnType}})
	root.SetType(&model.PolicyType{
		TypeBase:   model.TypeBase{ElementId: "tosca.policies.Placement"},
		Properties: map[string]*model.PropertyDefinition{"zone": {Type: "string"}},
	})
	root.SetType(&model.NodeType{
		TypeBase: model.TypeBase{ElementId: "tosca.nodes.Compute"},
		Properties: map[string]*model.PropertyDefinition{
			"port": {Type: "integer", Default: "80", Required: true},
			"name": {Type: "string"},
		},
		Attributes:   map[string]*model.AttributeDefinition{"ip_address": {Type: "string"}},
		Capabilities: []*model.CapabilityDefinition{{Id: "host", Type: model.ContainerCapability, UpperBound: model.Unbounded}},
		Requirements: []*model.RequirementDefinition{{Id: "host", Type: model.ContainerCapability, RelationshipType: model.HostedOnType, UpperBound: 1}},
		Artifacts:    map[string]*model.DeploymentArtifact{"script": {ArtifactName: "script", ArtifactRef: "scripts/install.sh"}},
	})
	return cat, cat.Import(root)
}

var _ = Describe("serializer", func() {
	var cat *catalog.Catalog
	var csar *model.Csar
	var topo *model.Topology

	BeforeEach(func() {
		cat = Must(types())
		csar = &model.Csar{Name: "app", Version: "1.0.0-SNAPSHOT", Author: "tester"}
		topo = model.NewTopology(csar.Name, csar.Version, "")
		topo.Dependencies = []model.CSARDependency{base}

		tc := typectx.New(cat, base)
		defer tc.Release()
		ctx := typectx.With(context.Background(), tc)

		nt := Must(typectx.Require[*model.NodeType](ctx, "tosca.nodes.Compute"))
		for _, name := range []string{"a", "b"} {
			topo.NodeTemplates.Set(name, topology.BuildNodeTemplate(tc, nt, name))
		}
		a := topo.NodeTemplates.Get("a")
		a.Properties["name"] = model.NewScalarValue("80", "string")
		a.Properties["port"] = model.NewFunctionValue(model.FunctionGetInput, "port")
		a.Tags = map[string]string{"a4c_edit_x": "10"}
		rt := Must(typectx.Require[*model.RelationshipType](ctx, model.HostedOnType))
		a.Relationships.Set("hostedOnB", topology.BuildRelationshipTemplate(tc, rt, "hostedOnB", "b", "host", model.ContainerCapability, "host"))
		topo.NodeTemplates.Get("b").Capabilities["host"].Properties["num_cpus"] = model.NewScalarValue("4", "integer")

		topo.Inputs["port"] = &model.PropertyDefinition{Type: "integer", Required: true, Default: "8080",
			Constraints: []model.Constraint{{Kind: "in_range", Operand: []interface{}{"1", "65535"}}}}
		topo.Groups["g"] = &model.NodeGroup{Name: "g", Members: sets.New("b", "a")}
		a.Groups.Insert("g")
		topo.NodeTemplates.Get("b").Groups.Insert("g")

		pt := Must(typectx.Require[*model.PolicyType](ctx, "tosca.policies.Placement"))
		p := topology.BuildPolicyTemplate(tc, pt, "placement")
		p.Targets.Insert("a")
		p.Properties["zone"] = model.NewScalarValue("eu", "string")
		topo.Policies.Set(p.Name, p)

		topo.OutputAttributes["a"] = sets.New("ip_address")
		topo.OutputProperties["a"] = sets.New("port")

		w := model.NewWorkflow(model.InstallWorkflow, true)
		w.Steps.Set("a_create", &model.Step{Name: "a_create", Target: "a", Activities: []model.Activity{{Type: model.ActivityCallOperation, Value: "Standard.create"}}, OnSuccess: []string{"a_started"}})
		w.Steps.Set("a_started", &model.Step{Name: "a_started", Target: "a", Activities: []model.Activity{{Type: model.ActivitySetState, Value: "started"}}, Precedings: []string{"a_create"}})
		topo.Workflows.Set(w.Name, w)
	})

	It("writes the definitions file", func() {
		data := string(Must(me.Marshal(csar, topo)))
		Expect(data).To(HavePrefix("tosca_definitions_version: alien_dsl_2_0_0\n"))
		Expect(data).To(ContainSubstring("template_name: app\n"))
		Expect(data).To(ContainSubstring("  - base:1.0\n"))
		Expect(data).To(ContainSubstring("type_requirement: host"))
		Expect(data).To(ContainSubstring("hostedOnB:"))
		Expect(data).To(ContainSubstring("get_input: port"))
		Expect(data).To(ContainSubstring("a_ip_address:"))
		Expect(data).To(ContainSubstring("num_cpus: 4"))
		Expect(data).NotTo(ContainSubstring("ip_address: null"))
	})

	It("is stable", func() {
		Expect(me.Marshal(csar, topo)).To(Equal(Must(me.Marshal(csar, topo))))
	})

	It("round trips through the parser", func() {
		data := Must(me.Marshal(csar, topo))
		fs := memoryfs.New()
		MustBeSuccessful(fs.MkdirAll("/work", 0o700))
		MustBeSuccessful(vfs.WriteFile(fs, "/work/topology.yml", data, 0o600))

		r := Must(parser.New(cat).Parse(context.Background(), fs, "/work", false))
		Expect(r.HasErrors()).To(BeFalse(), "%v", r.Errors)
		Expect(r.Root.Archive.Id()).To(Equal("app:1.0.0-SNAPSHOT"))

		t := r.Root.Topology
		Expect(t.NodeTemplates.Names()).To(Equal([]string{"a", "b"}))
		Expect(t.NodeTemplates.Get("a").Relationships.Get("hostedOnB").Target).To(Equal("b"))
		Expect(t.Groups["g"].Members).To(Equal(sets.New("a", "b")))
		Expect(t.Workflows.Get(model.InstallWorkflow).Steps.Get("a_started").Precedings).To(Equal([]string{"a_create"}))
		Expect(t.Inputs["port"]).To(Equal(topo.Inputs["port"]))

		Expect(string(Must(me.Marshal(&r.Root.Archive, t)))).To(Equal(string(data)))
	})
})
