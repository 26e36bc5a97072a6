package typectx_test

import (
	"context"
	"fmt"

	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mandelsoft/vfs/pkg/memoryfs"

	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/catalog"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"

	me "github.com/mandelsoft/toscaeditor/pkg/tosca/typectx"
)

var _ = Describe("type context", func() {
	var cat *catalog.Catalog
	v1 := model.CSARDependency{Name: "base", Version: "1.0"}
	v2 := model.CSARDependency{Name: "base", Version: "2.0"}

	BeforeEach(func() {
		cat = Must(catalog.New("/catalog", memoryfs.New()))
		for _, v := range []string{"1.0", "2.0"} {
			r := model.NewArchiveRoot()
			r.Archive = model.Csar{Name: "base", Version: v}
			r.SetType(&model.NodeType{TypeBase: model.TypeBase{ElementId: "tosca.nodes.Root", Description: v}})
			MustBeSuccessful(cat.Import(r))
		}
	})

	It("resolves types from dependencies", func() {
		c := me.New(cat, v1)
		defer c.Release()
		t := c.Get(model.NodeKind, "tosca.nodes.Root")
		Expect(t).NotTo(BeNil())
		Expect(t.Base().Description).To(Equal("1.0"))
		Expect(c.Get(model.NodeKind, "unknown")).To(BeNil())

		c.AddDependency(v2)
		Expect(c.Dependencies()).To(Equal([]model.CSARDependency{v2}))
		Expect(c.Get(model.NodeKind, "tosca.nodes.Root").Base().Description).To(Equal("2.0"))
	})

	It("prefers local types", func() {
		c := me.New(cat, v1)
		defer c.Release()
		c.RegisterType(&model.NodeType{TypeBase: model.TypeBase{ElementId: "tosca.nodes.Root", Description: "local"}})
		Expect(c.Get(model.NodeKind, "tosca.nodes.Root").Base().Description).To(Equal("local"))
	})

	It("scopes contexts to units of work", func() {
		n := me.Active()
		ctx := context.Background()
		Expect(me.From(ctx)).To(BeNil())

		MustBeSuccessful(me.Run(ctx, cat, []model.CSARDependency{v1}, false, func(ctx context.Context) error {
			outer := me.From(ctx)
			Expect(outer).NotTo(BeNil())
			Expect(me.Lookup[*model.NodeType](ctx, "tosca.nodes.Root").Description).To(Equal("1.0"))

			err := me.Run(ctx, cat, []model.CSARDependency{v2}, true, func(ctx context.Context) error {
				Expect(me.From(ctx)).NotTo(BeIdenticalTo(outer))
				Expect(me.Lookup[*model.NodeType](ctx, "tosca.nodes.Root").Description).To(Equal("2.0"))
				return fmt.Errorf("failed")
			})
			Expect(err).To(MatchError("failed"))
			Expect(me.From(ctx)).To(BeIdenticalTo(outer))
			Expect(outer.IsReleased()).To(BeFalse())
			Expect(me.Lookup[*model.NodeType](ctx, "tosca.nodes.Root").Description).To(Equal("1.0"))

			return me.Run(ctx, cat, nil, false, func(inner context.Context) error {
				Expect(me.From(inner)).To(BeIdenticalTo(outer))
				return nil
			})
		}))
		Expect(me.Active()).To(Equal(n))
	})

	It("reports missing types", func() {
		MustBeSuccessful(me.Run(context.Background(), cat, []model.CSARDependency{v1}, false, func(ctx context.Context) error {
			_, err := me.Require[*model.RelationshipType](ctx, "tosca.relationships.HostedOn")
			Expect(errkind.IsNotFound(err)).To(BeTrue())
			return nil
		}))
	})
})
