package processors_test

import (
	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/go-test/deep"
	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/tiendc/go-deepcopy"

	"github.com/mandelsoft/toscaeditor/pkg/archives"
	"github.com/mandelsoft/toscaeditor/pkg/editor/operations"
	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/testutils"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/workflow"

	me "github.com/mandelsoft/toscaeditor/pkg/editor/processors"
)

func node(name string) operations.NodeRef {
	return operations.NodeRef{NodeName: name}
}

func capProp(n, c, p string) operations.CapabilityPropertyRef {
	return operations.CapabilityPropertyRef{
		PropertyRef:    operations.PropertyRef{NodeRef: node(n), PropertyName: p},
		CapabilityName: c,
	}
}

func hostedOn(source, target string) *operations.AddRelationship {
	return &operations.AddRelationship{
		RelationshipRef: operations.RelationshipRef{NodeRef: node(source)},
		RequirementName: "host",
		Target:          target,
	}
}

func steps(topo *model.Topology, name string) []string {
	return Must(topo.GetWorkflow(name)).Steps.Names()
}

var _ = Describe("processors", func() {
	var f *testutils.TopologyFixture
	var e *me.Edition
	var topo *model.Topology

	process := func(op operations.Operation) error {
		return me.Process(e, op)
	}

	BeforeEach(func() {
		f = Must(testutils.NewTopologyFixture("app", "1.0"))
		topo = f.Topology
		e = &me.Edition{
			Context:    f.Context,
			Csar:       f.Csar,
			Topology:   topo,
			Repository: f.Catalog,
			Workflows:  workflow.New(),
			Files:      archives.NewFiles(memoryfs.New()),
		}
		MustBeSuccessful(e.Workflows.InitWorkflows(f.Context, topo))
		MustBeSuccessful(process(&operations.AddNode{NodeName: "compute", NodeType: "tosca.nodes.Compute"}))
		MustBeSuccessful(process(&operations.AddNode{NodeName: "web", NodeType: "tosca.nodes.WebServer"}))
	})

	AfterEach(func() {
		f.Release()
	})

	It("rejects operations without processor", func() {
		Expect(errkind.KindOf(process(&operations.GitCommit{}))).To(Equal(errkind.InvalidArgument))
	})

	Context("nodes", func() {
		It("adds nodes with workflow steps", func() {
			Expect(topo.NodeTemplates.Names()).To(Equal([]string{"compute", "web"}))
			Expect(steps(topo, model.InstallWorkflow)).To(ContainElements("compute_install", "web_creating", "create_web"))
		})

		It("validates node names", func() {
			Expect(errkind.KindOf(process(&operations.AddNode{NodeName: "1web", NodeType: "tosca.nodes.WebServer"}))).To(Equal(errkind.InvalidName))
			Expect(errkind.IsAlreadyExists(process(&operations.AddNode{NodeName: "web", NodeType: "tosca.nodes.WebServer"}))).To(BeTrue())
			Expect(process(&operations.AddNode{NodeName: "other", NodeType: "acme.nodes.Unknown"})).NotTo(Succeed())
			Expect(topo.NodeTemplates.Len()).To(Equal(2))
		})

		It("restores the topology after add and delete", func() {
			var before *model.Topology
			MustBeSuccessful(deepcopy.Copy(&before, topo))

			MustBeSuccessful(process(&operations.AddNode{NodeName: "db", NodeType: "tosca.nodes.Database"}))
			Expect(topo.NodeTemplates.Has("db")).To(BeTrue())
			MustBeSuccessful(process(&operations.DeleteNode{NodeRef: node("db")}))

			Expect(deep.Equal(topo, before)).To(BeNil())
		})

		It("deletes nodes with inbound relationships", func() {
			MustBeSuccessful(process(hostedOn("web", "compute")))
			MustBeSuccessful(process(&operations.DeleteNode{NodeRef: node("compute")}))

			Expect(topo.NodeTemplates.Names()).To(Equal([]string{"web"}))
			Expect(topo.NodeTemplates.Get("web").Relationships.Len()).To(Equal(0))
			for _, s := range Must(topo.GetWorkflow(model.InstallWorkflow)).Steps.List() {
				Expect(s.Target).NotTo(Equal("compute"))
			}
			Expect(errkind.IsNotFound(process(&operations.DeleteNode{NodeRef: node("compute")}))).To(BeTrue())
		})

		It("renames nodes", func() {
			MustBeSuccessful(process(hostedOn("web", "compute")))
			MustBeSuccessful(process(&operations.RenameNode{NodeRef: node("compute"), NewName: "server"}))

			Expect(topo.NodeTemplates.Names()).To(Equal([]string{"server", "web"}))
			Expect(topo.NodeTemplates.Get("web").Relationships.List()[0].Target).To(Equal("server"))
			Expect(steps(topo, model.InstallWorkflow)).To(ContainElement("server_install"))
			Expect(steps(topo, model.InstallWorkflow)).NotTo(ContainElement("compute_install"))

			Expect(errkind.IsAlreadyExists(process(&operations.RenameNode{NodeRef: node("server"), NewName: "web"}))).To(BeTrue())
			Expect(errkind.IsAlreadyExists(process(&operations.RenameNode{NodeRef: node("server"), NewName: "server"}))).To(BeTrue())
		})

		It("stores the position as tags", func() {
			MustBeSuccessful(process(&operations.MoveNode{NodeRef: node("web"), X: 10, Y: -5}))
			Expect(topo.NodeTemplates.Get("web").Tags).To(HaveKeyWithValue(me.TagPositionX, "10"))
			Expect(topo.NodeTemplates.Get("web").Tags).To(HaveKeyWithValue(me.TagPositionY, "-5"))
		})
	})

	Context("relationships", func() {
		It("adds relationships", func() {
			MustBeSuccessful(process(hostedOn("web", "compute")))

			web := topo.NodeTemplates.Get("web")
			Expect(web.Relationships.Names()).To(Equal([]string{"hostedOnCompute"}))
			rel := web.Relationships.Get("hostedOnCompute")
			Expect(rel.Type).To(Equal(model.HostedOnType))
			Expect(rel.Target).To(Equal("compute"))
			Expect(rel.TargetedCapabilityName).To(Equal("host"))
		})

		It("enforces the requirement upper bound", func() {
			MustBeSuccessful(process(&operations.AddNode{NodeName: "other", NodeType: "tosca.nodes.Compute"}))
			MustBeSuccessful(process(hostedOn("web", "compute")))
			Expect(errkind.KindOf(process(hostedOn("web", "other")))).To(Equal(errkind.UpperBoundReached))
			Expect(topo.NodeTemplates.Get("web").Relationships.Len()).To(Equal(1))
		})

		It("rejects self references", func() {
			Expect(errkind.KindOf(process(hostedOn("web", "web")))).To(Equal(errkind.CyclicReference))
		})

		It("rejects unknown requirements", func() {
			op := hostedOn("web", "compute")
			op.RequirementName = "storage"
			Expect(errkind.IsNotFound(process(op))).To(BeTrue())
		})

		It("renames and deletes relationships", func() {
			MustBeSuccessful(process(hostedOn("web", "compute")))
			ref := operations.RelationshipRef{NodeRef: node("web"), RelationshipName: "hostedOnCompute"}
			MustBeSuccessful(process(&operations.RenameRelationship{RelationshipRef: ref, NewRelationshipName: "host"}))
			Expect(topo.NodeTemplates.Get("web").Relationships.Names()).To(Equal([]string{"host"}))

			ref.RelationshipName = "host"
			MustBeSuccessful(process(&operations.DeleteRelationship{RelationshipRef: ref}))
			Expect(topo.NodeTemplates.Get("web").Relationships.Len()).To(Equal(0))
			Expect(errkind.IsNotFound(process(&operations.DeleteRelationship{RelationshipRef: ref}))).To(BeTrue())
		})
	})

	Context("properties", func() {
		It("updates capability properties", func() {
			MustBeSuccessful(process(&operations.UpdateCapabilityProperty{CapabilityPropertyRef: capProp("compute", "host", "num_cpus"), PropertyValue: 4}))
			Expect(topo.NodeTemplates.Get("compute").Capabilities["host"].Properties["num_cpus"]).To(Equal(model.NewScalarValue("4", "integer")))
		})

		It("checks constraints", func() {
			MustBeSuccessful(process(&operations.UpdateCapabilityProperty{CapabilityPropertyRef: capProp("compute", "host", "num_cpus"), PropertyValue: 4}))
			err := process(&operations.UpdateCapabilityProperty{CapabilityPropertyRef: capProp("compute", "host", "num_cpus"), PropertyValue: 0})
			Expect(errkind.KindOf(err)).To(Equal(errkind.ConstraintViolation))
			Expect(topo.NodeTemplates.Get("compute").Capabilities["host"].Properties["num_cpus"].Raw()).To(Equal("4"))
		})

		It("rejects unknown properties", func() {
			err := process(&operations.UpdateNodeProperty{PropertyRef: operations.PropertyRef{NodeRef: node("web"), PropertyName: "unknown"}, PropertyValue: "x"})
			Expect(errkind.IsNotFound(err)).To(BeTrue())
		})

		It("rejects function values with unknown inputs", func() {
			err := process(&operations.UpdateCapabilityProperty{
				CapabilityPropertyRef: capProp("compute", "host", "num_cpus"),
				PropertyValue:         map[string]interface{}{model.FunctionGetInput: "cpus"},
			})
			Expect(errkind.IsNotFound(err)).To(BeTrue())
		})
	})

	Context("inputs", func() {
		ref := func(name string) operations.InputRef {
			return operations.InputRef{InputName: name}
		}

		BeforeEach(func() {
			MustBeSuccessful(process(&operations.AddInput{InputRef: ref("cpus"), PropertyDefinition: &model.PropertyDefinition{Type: "integer"}}))
		})

		It("binds properties to inputs", func() {
			MustBeSuccessful(process(&operations.SetCapabilityPropertyAsInput{CapabilityPropertyRef: capProp("compute", "host", "num_cpus"), InputName: "cpus"}))
			Expect(topo.NodeTemplates.Get("compute").Capabilities["host"].Properties["num_cpus"]).To(Equal(model.NewFunctionValue(model.FunctionGetInput, "cpus")))
			Expect(topo.InputReferences("cpus")).To(Equal([]string{"compute.host.num_cpus"}))

			MustBeSuccessful(process(&operations.UnsetCapabilityPropertyAsInput{CapabilityPropertyRef: capProp("compute", "host", "num_cpus")}))
			Expect(topo.InputReferences("cpus")).To(BeEmpty())
			Expect(errkind.IsNotFound(process(&operations.UnsetCapabilityPropertyAsInput{CapabilityPropertyRef: capProp("compute", "host", "num_cpus")}))).To(BeTrue())
		})

		It("rejects incompatible inputs", func() {
			MustBeSuccessful(process(&operations.AddInput{InputRef: ref("label"), PropertyDefinition: &model.PropertyDefinition{Type: "string"}}))
			err := process(&operations.SetCapabilityPropertyAsInput{CapabilityPropertyRef: capProp("compute", "host", "num_cpus"), InputName: "label"})
			Expect(errkind.KindOf(err)).To(Equal(errkind.TypeMismatch))
		})

		It("validates input definitions", func() {
			Expect(errkind.IsAlreadyExists(process(&operations.AddInput{InputRef: ref("cpus"), PropertyDefinition: &model.PropertyDefinition{Type: "integer"}}))).To(BeTrue())
			Expect(process(&operations.AddInput{InputRef: ref("list"), PropertyDefinition: &model.PropertyDefinition{Type: "list"}})).NotTo(Succeed())
			Expect(topo.Inputs).NotTo(HaveKey("list"))
		})

		It("renames inputs together with their bindings", func() {
			MustBeSuccessful(process(&operations.SetCapabilityPropertyAsInput{CapabilityPropertyRef: capProp("compute", "host", "num_cpus"), InputName: "cpus"}))
			MustBeSuccessful(process(&operations.UpdateInputPreconfiguredValue{InputRef: ref("cpus"), Value: 2}))
			MustBeSuccessful(process(&operations.RenameInput{InputRef: ref("cpus"), NewInputName: "ncpus"}))

			Expect(topo.Inputs).To(HaveKey("ncpus"))
			Expect(topo.Inputs).NotTo(HaveKey("cpus"))
			Expect(topo.InputReferences("ncpus")).To(Equal([]string{"compute.host.num_cpus"}))
			Expect(Must(e.Preconfigured())).To(Equal(map[string]interface{}{"ncpus": "2"}))
		})

		It("resets bindings of deleted inputs", func() {
			MustBeSuccessful(process(&operations.SetCapabilityPropertyAsInput{CapabilityPropertyRef: capProp("compute", "host", "num_cpus"), InputName: "cpus"}))
			MustBeSuccessful(process(&operations.DeleteInput{InputRef: ref("cpus")}))

			Expect(topo.Inputs).To(BeEmpty())
			Expect(topo.NodeTemplates.Get("compute").Capabilities["host"].Properties["num_cpus"]).To(BeNil())
		})

		It("maintains preconfigured values", func() {
			MustBeSuccessful(process(&operations.UpdateInputPreconfiguredValue{InputRef: ref("cpus"), Value: 2}))
			Expect(string(Must(e.Files.Read(archives.InputsFile)))).To(Equal("cpus: \"2\"\n"))

			Expect(process(&operations.UpdateInputPreconfiguredValue{InputRef: ref("cpus"), Value: "many"})).NotTo(Succeed())

			MustBeSuccessful(process(&operations.UpdateInputPreconfiguredValue{InputRef: ref("cpus")}))
			Expect(e.Files.Exists(archives.InputsFile)).To(BeFalse())
		})
	})

	Context("outputs", func() {
		It("exposes attributes", func() {
			op := &operations.SetNodeAttributeAsOutput{NodeRef: node("compute"), AttributeName: "ip_address"}
			MustBeSuccessful(process(op))
			Expect(topo.OutputAttributes["compute"].Has("ip_address")).To(BeTrue())

			MustBeSuccessful(process(&operations.UnsetNodeAttributeAsOutput{NodeRef: node("compute"), AttributeName: "ip_address"}))
			Expect(topo.OutputAttributes).NotTo(HaveKey("compute"))

			Expect(errkind.IsNotFound(process(&operations.SetNodeAttributeAsOutput{NodeRef: node("compute"), AttributeName: "unknown"}))).To(BeTrue())
		})

		It("exposes capability properties", func() {
			MustBeSuccessful(process(&operations.SetCapabilityPropertyAsOutput{CapabilityPropertyRef: capProp("compute", "host", "num_cpus")}))
			Expect(topo.OutputCapabilityProperties["compute"]["host"].Has("num_cpus")).To(BeTrue())

			MustBeSuccessful(process(&operations.DeleteNode{NodeRef: node("compute")}))
			Expect(topo.OutputCapabilityProperties).To(BeEmpty())
		})
	})

	Context("groups", func() {
		It("creates groups on demand and removes empty ones", func() {
			ref := operations.GroupRef{GroupName: "frontend"}
			MustBeSuccessful(process(&operations.AddGroupMember{GroupRef: ref, NodeRef: node("web")}))
			Expect(topo.Groups["frontend"].Members.Has("web")).To(BeTrue())
			Expect(topo.NodeTemplates.Get("web").Groups.Has("frontend")).To(BeTrue())

			MustBeSuccessful(process(&operations.RemoveGroupMember{GroupRef: ref, NodeRef: node("web")}))
			Expect(topo.Groups).NotTo(HaveKey("frontend"))
			Expect(topo.NodeTemplates.Get("web").Groups.Has("frontend")).To(BeFalse())
		})

		It("renames groups", func() {
			MustBeSuccessful(process(&operations.AddGroupMember{GroupRef: operations.GroupRef{GroupName: "a"}, NodeRef: node("web")}))
			MustBeSuccessful(process(&operations.AddGroup{GroupRef: operations.GroupRef{GroupName: "b"}}))
			Expect(errkind.IsAlreadyExists(process(&operations.RenameGroup{GroupRef: operations.GroupRef{GroupName: "a"}, NewGroupName: "b"}))).To(BeTrue())
			MustBeSuccessful(process(&operations.RenameGroup{GroupRef: operations.GroupRef{GroupName: "a"}, NewGroupName: "c"}))
			Expect(topo.Groups["c"].Index).To(Equal(0))
			Expect(topo.Groups["b"].Index).To(Equal(1))
			Expect(topo.NodeTemplates.Get("web").Groups.UnsortedList()).To(Equal([]string{"c"}))
		})
	})

	Context("workflows", func() {
		It("maintains custom workflows", func() {
			ref := operations.WorkflowRef{WorkflowName: "custom"}
			MustBeSuccessful(process(&operations.CreateWorkflow{WorkflowRef: ref}))
			Expect(topo.Workflows.Has("custom")).To(BeTrue())
			MustBeSuccessful(process(&operations.RemoveWorkflow{WorkflowRef: ref}))
			Expect(topo.Workflows.Has("custom")).To(BeFalse())
		})

		It("keeps standard workflows", func() {
			err := process(&operations.RemoveWorkflow{WorkflowRef: operations.WorkflowRef{WorkflowName: model.InstallWorkflow}})
			Expect(errkind.KindOf(err)).To(Equal(errkind.InvalidArgument))
			Expect(topo.Workflows.Has(model.InstallWorkflow)).To(BeTrue())
		})
	})

	Context("files", func() {
		It("maintains archive files", func() {
			MustBeSuccessful(process(&operations.UpdateFile{FileRef: operations.FileRef{Path: "scripts/run.sh"}, Content: "echo"}))
			MustBeSuccessful(process(&operations.MoveFile{FileRef: operations.FileRef{Path: "scripts/run.sh"}, NewPath: "bin/run.sh"}))
			Expect(e.Files.Exists("scripts/run.sh")).To(BeFalse())
			Expect(string(Must(e.Files.Read("bin/run.sh")))).To(Equal("echo"))

			MustBeSuccessful(process(&operations.DeleteFile{FileRef: operations.FileRef{Path: "bin/run.sh"}}))
			Expect(e.Files.Exists("bin/run.sh")).To(BeFalse())
		})

		It("protects the entry definition", func() {
			err := process(&operations.UpdateFile{FileRef: operations.FileRef{Path: archives.EntryFile}, Content: "x"})
			Expect(errkind.KindOf(err)).To(Equal(errkind.InvalidArgument))
		})

		It("sets artifact references", func() {
			Expect(errkind.IsNotFound(process(&operations.UpdateDeploymentArtifact{NodeRef: node("web"), ArtifactName: "war", ArtifactReference: "app.war"}))).To(BeTrue())
		})
	})

	It("resets the topology", func() {
		MustBeSuccessful(process(hostedOn("web", "compute")))
		MustBeSuccessful(process(&operations.ResetTopology{}))

		Expect(topo.NodeTemplates.Len()).To(Equal(0))
		Expect(topo.Id()).To(Equal("app:1.0"))
		Expect(topo.Workflows.Names()).To(ConsistOf(model.StandardWorkflows))
		Expect(steps(topo, model.InstallWorkflow)).To(BeEmpty())
	})
})
