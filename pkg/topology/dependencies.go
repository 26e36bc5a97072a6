package topology

import (
	"context"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/primitives"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/typectx"
)

// Repository looks up types over all known archives.
// An empty version selects the latest one.
type Repository interface {
	Lookup(kind model.Kind, name, version string) (model.Type, error)
}

// LoadType resolves a type to be used by a template of the topology
// and records its archive as topology dependency. Without version,
// a type reachable through the current dependencies is preferred.
// A dependency on another version of the same archive is replaced.
func LoadType(ctx context.Context, repo Repository, topo *model.Topology, kind model.Kind, name, version string) (model.Type, error) {
	tc := typectx.From(ctx)
	if tc == nil {
		return nil, errkind.ErrInvalidArgument("no type context")
	}
	var t model.Type
	if version == "" {
		t = tc.Get(kind, name)
	}
	if t == nil {
		if repo == nil {
			return nil, errkind.ErrNotFound(string(kind)+" type", name)
		}
		found, err := repo.Lookup(kind, name, version)
		if err != nil {
			return nil, err
		}
		t = found
	}
	dep := t.Base().Dependency()
	if dep.Name == "" || dep.Name == topo.ArchiveName {
		return t, nil
	}
	if old := topo.AddDependency(dep); old != nil {
		log.Info("topology {{topology}} now uses {{new}} instead of {{old}}", "topology", topo.Id(), "new", dep, "old", old)
	}
	tc.AddDependency(dep)
	return t, nil
}

// UnloadType drops the archive of a type from the dependencies if no
// template of the topology uses a type of this archive anymore.
func UnloadType(ctx context.Context, topo *model.Topology, kind model.Kind, name string) {
	tc := typectx.From(ctx)
	if tc == nil {
		return
	}
	t := tc.Get(kind, name)
	if t == nil {
		return
	}
	dep := t.Base().Dependency()
	if dep.Name == "" || !topo.HasDependency(dep.Name) {
		return
	}
	if ArchiveUsed(ctx, topo, dep.Name) {
		return
	}
	if topo.RemoveDependency(dep) {
		log.Debug("dependency {{dependency}} of topology {{topology}} no longer used", "dependency", dep, "topology", topo.Id())
		tc.RemoveDependency(dep)
	}
}

// ArchiveUsed reports whether the topology still requires a type of
// the given archive. Besides the template types this covers their
// parent types, the capability, requirement and relationship types
// they declare and the data types of their properties and of the
// topology inputs.
func ArchiveUsed(ctx context.Context, topo *model.Topology, archive string) bool {
	u := &usage{
		types:   typectx.From(ctx),
		archive: archive,
		visited: sets.New[string](),
	}
	for _, n := range topo.NodeTemplates.List() {
		if u.uses(model.NodeKind, n.Type) {
			return true
		}
		for _, c := range n.Capabilities {
			if c != nil && u.uses(model.CapabilityKind, c.Type) {
				return true
			}
		}
		for _, r := range n.Requirements {
			if r != nil && u.uses(model.CapabilityKind, r.Type) {
				return true
			}
		}
		for _, r := range n.Relationships.List() {
			if u.uses(model.RelationshipKind, r.Type) || u.uses(model.CapabilityKind, r.RequirementType) {
				return true
			}
		}
	}
	for _, p := range topo.Policies.List() {
		if u.uses(model.PolicyKind, p.Type) {
			return true
		}
	}
	if topo.Substitution != nil && u.uses(model.NodeKind, topo.Substitution.SubstitutionType) {
		return true
	}
	return u.properties(topo.Inputs)
}

// usage checks the type closure of template types for types of an
// archive. Every type is visited once.
type usage struct {
	types   *typectx.Context
	archive string
	visited sets.Set[string]
}

func (u *usage) uses(kind model.Kind, name string) bool {
	if name == "" || u.types == nil || (kind == model.DataKind && primitives.IsPrimitive(name)) {
		return false
	}
	key := string(kind) + "/" + name
	if u.visited.Has(key) {
		return false
	}
	u.visited.Insert(key)

	t := u.types.Get(kind, name)
	if t == nil {
		return false
	}
	if t.Base().ArchiveName == u.archive {
		return true
	}
	for _, p := range t.Base().DerivedFrom {
		if u.uses(kind, p) {
			return true
		}
	}
	switch e := t.(type) {
	case *model.NodeType:
		for _, c := range e.Capabilities {
			if u.uses(model.CapabilityKind, c.Type) {
				return true
			}
		}
		for _, r := range e.Requirements {
			if u.uses(model.CapabilityKind, r.Type) || u.uses(model.RelationshipKind, r.RelationshipType) || u.uses(model.NodeKind, r.NodeType) {
				return true
			}
		}
		return u.properties(e.Properties)
	case *model.RelationshipType:
		return u.properties(e.Properties)
	case *model.CapabilityType:
		return u.properties(e.Properties)
	case *model.DataType:
		return u.properties(e.Properties)
	case *model.PolicyType:
		return u.properties(e.Properties)
	}
	return false
}

func (u *usage) properties(defs map[string]*model.PropertyDefinition) bool {
	for _, d := range defs {
		for d != nil {
			if u.uses(model.DataKind, d.Type) {
				return true
			}
			d = d.EntrySchema
		}
	}
	return false
}
