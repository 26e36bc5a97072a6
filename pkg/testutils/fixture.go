package testutils

import (
	"context"

	"github.com/mandelsoft/vfs/pkg/memoryfs"

	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/topology"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/catalog"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/normative"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/typectx"
)

// TopologyFixture is a topology with a type context based on a
// memory catalog holding the normative types.
type TopologyFixture struct {
	Catalog  *catalog.Catalog
	Types    *typectx.Context
	Csar     *model.Csar
	Topology *model.Topology
	Context  context.Context
}

func NewTopologyFixture(name, version string) (*TopologyFixture, error) {
	cat, err := catalog.New("/catalog", memoryfs.New())
	if err != nil {
		return nil, err
	}
	if err := normative.Import(context.Background(), cat); err != nil {
		return nil, err
	}
	topo := model.NewTopology(name, version, "")
	topo.Dependencies = []model.CSARDependency{normative.Dependency()}
	tc := typectx.New(cat, topo.Dependencies...)
	return &TopologyFixture{
		Catalog:  cat,
		Types:    tc,
		Csar:     &model.Csar{Name: name, Version: version, Dependencies: topo.Dependencies},
		Topology: topo,
		Context:  typectx.With(context.Background(), tc),
	}, nil
}

func (f *TopologyFixture) Release() {
	f.Types.Release()
}

// AddNode adds a node template with the defaults of its type.
func (f *TopologyFixture) AddNode(name, typ string) (*model.NodeTemplate, error) {
	t, err := topology.LoadType(f.Context, f.Catalog, f.Topology, model.NodeKind, typ, "")
	if err != nil {
		return nil, err
	}
	n := topology.BuildNodeTemplate(f.Types, t.(*model.NodeType), name)
	f.Topology.NodeTemplates.Set(name, n)
	return n, nil
}

// AddRelationship establishes a relationship for a requirement of
// the source node using the relationship type of the requirement.
func (f *TopologyFixture) AddRelationship(source, requirement, target, capability string) (*model.RelationshipTemplate, error) {
	n, err := f.Topology.GetNode(source)
	if err != nil {
		return nil, err
	}
	nt, err := typectx.Require[*model.NodeType](f.Context, n.Type)
	if err != nil {
		return nil, err
	}
	def := nt.Requirement(requirement)
	if def == nil {
		return nil, errkind.ErrNotFound("requirement", requirement)
	}
	typ := def.RelationshipType
	if typ == "" {
		typ = model.DependsOnType
	}
	rt, err := typectx.Require[*model.RelationshipType](f.Context, typ)
	if err != nil {
		return nil, err
	}
	name := topology.UniqueName(topology.RelationshipName(typ, target), n.Relationships.Has)
	rel := topology.BuildRelationshipTemplate(f.Types, rt, name, target, requirement, def.Type, capability)
	n.Relationships.Set(name, rel)
	return rel, nil
}
