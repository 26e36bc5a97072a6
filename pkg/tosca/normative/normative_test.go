package normative_test

import (
	"context"

	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mandelsoft/vfs/pkg/memoryfs"

	"github.com/mandelsoft/toscaeditor/pkg/tosca/catalog"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/typectx"

	me "github.com/mandelsoft/toscaeditor/pkg/tosca/normative"
)

var _ = Describe("normative types", func() {
	ctx := context.Background()

	It("parses", func() {
		root := Must(me.Parse(ctx))
		Expect(root.Archive.Id()).To(Equal(me.Dependency().String()))

		compute := root.NodeTypes["tosca.nodes.Compute"]
		Expect(compute).NotTo(BeNil())
		Expect(compute.DerivedFrom).To(Equal([]string{model.RootNodeType}))
		Expect(compute.Capability("host").Type).To(Equal(model.ContainerCapability))
		Expect(compute.Capability("feature")).NotTo(BeNil())
		Expect(compute.Interfaces[model.StandardInterface].HasOperation(model.OperationCreate)).To(BeTrue())

		db := root.NodeTypes["tosca.nodes.Database"]
		Expect(db.Requirement("host").NodeType).To(Equal("tosca.nodes.DBMS"))
		Expect(db.Requirement("dependency").UpperBound).To(Equal(model.Unbounded))

		Expect(root.DataTypes["tosca.datatypes.network.PortDef"].Primitive).To(Equal("integer"))
		Expect(root.RelationshipTypes[model.HostedOnType].Interfaces[model.ConfigureInterface].HasOperation(model.OperationAddTarget)).To(BeTrue())
	})

	It("imports into a catalog once", func() {
		cat := Must(catalog.New("/catalog", memoryfs.New()))
		MustBeSuccessful(me.Import(ctx, cat))
		MustBeSuccessful(me.Import(ctx, cat))

		t := Must(cat.Find(model.NodeKind, "tosca.nodes.WebServer", me.Dependency()))
		Expect(t.Base().ArchiveName).To(Equal(me.Name))
		Expect(t.Base().DerivedFrom).To(Equal([]string{"tosca.nodes.SoftwareComponent", model.RootNodeType}))
		Expect(typectx.Active()).To(Equal(int64(0)))
	})
})
