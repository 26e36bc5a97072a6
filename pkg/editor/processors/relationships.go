package processors

import (
	"github.com/mandelsoft/toscaeditor/pkg/editor/operations"
	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/topology"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/typectx"
)

func init() {
	Register(DefaultRegistry, AddRelationship)
	Register(DefaultRegistry, DeleteRelationship)
	Register(DefaultRegistry, RenameRelationship)
	Register(DefaultRegistry, UpdateRelationshipProperty)
}

// AddRelationship connects a requirement of a node to a capability of
// another node. The upper bounds of the requirement and the targeted
// capability are enforced and hosting relationships must not loop.
func AddRelationship(e *Edition, op *operations.AddRelationship) error {
	src, err := e.Topology.GetNode(op.NodeName)
	if err != nil {
		return err
	}
	tgt, err := e.Topology.GetNode(op.Target)
	if err != nil {
		return err
	}
	if src.Name == tgt.Name {
		return errkind.ErrCyclicReference("node %q cannot target itself", src.Name)
	}
	st, err := e.nodeType(src)
	if err != nil {
		return err
	}
	req := st.Requirement(op.RequirementName)
	if req == nil {
		return errkind.ErrNotFound("requirement", src.Name+"."+op.RequirementName)
	}
	if src.CountRequirement(req.Id) >= req.UpperBound {
		return errkind.ErrUpperBoundReached("requirement", src.Name+"."+req.Id)
	}
	reqType := op.RequirementType
	if reqType == "" {
		reqType = req.Type
	}
	relType := op.RelationshipType
	if relType == "" {
		relType = req.RelationshipType
	}
	if relType == "" {
		relType = model.DependsOnType
	}

	tt, err := e.nodeType(tgt)
	if err != nil {
		return err
	}
	capName := op.TargetedCapabilityName
	if capName == "" {
		for _, c := range tt.Capabilities {
			if e.capabilityMatches(c.Type, reqType) {
				capName = c.Id
				break
			}
		}
		if capName == "" {
			return errkind.ErrNotFound("capability", tgt.Name+"."+reqType)
		}
	}
	def := tt.Capability(capName)
	if def == nil || tgt.Capabilities[capName] == nil {
		return errkind.ErrNotFound("capability", tgt.Name+"."+capName)
	}
	if !e.capabilityMatches(def.Type, reqType) {
		return errkind.Newf(errkind.TypeMismatch, "capability %s.%s of type %s does not match requirement type %s", tgt.Name, capName, def.Type, reqType)
	}
	if topology.CapabilityUsage(e.Topology, tgt.Name, capName) >= def.UpperBound {
		return errkind.ErrUpperBoundReached("capability", tgt.Name+"."+capName)
	}

	name := op.RelationshipName
	if name == "" {
		name = topology.UniqueName(topology.RelationshipName(relType, tgt.Name), src.Relationships.Has)
	} else if src.Relationships.Has(name) {
		return errkind.ErrAlreadyExists("relationship", src.Name+"."+name)
	}

	t, err := topology.LoadType(e.Context, e.Repository, e.Topology, model.RelationshipKind, relType, op.RelationshipVersion)
	if err != nil {
		return err
	}
	rel := topology.BuildRelationshipTemplate(e.Types(), t.(*model.RelationshipType), name, tgt.Name, req.Id, reqType, capName)
	src.Relationships.Set(name, rel)
	if _, err := topology.HostChain(e.Context, e.Topology, src.Name); err != nil {
		src.Relationships.Delete(name)
		return err
	}
	if err := e.Workflows.AddRelationship(e.Context, e.Topology, src.Name, name); err != nil {
		src.Relationships.Delete(name)
		return err
	}
	log.Debug("added relationship {{relationship}} from {{source}} to {{target}}", "relationship", name, "source", src.Name, "target", tgt.Name)
	return nil
}

func removeRelationship(e *Edition, src *model.NodeTemplate, rel *model.RelationshipTemplate) error {
	if err := e.Workflows.RemoveRelationship(e.Context, e.Topology, src.Name, rel); err != nil {
		return err
	}
	src.Relationships.Delete(rel.Name)
	topology.UnloadType(e.Context, e.Topology, model.RelationshipKind, rel.Type)
	return nil
}

func DeleteRelationship(e *Edition, op *operations.DeleteRelationship) error {
	src, err := e.Topology.GetNode(op.NodeName)
	if err != nil {
		return err
	}
	rel, err := e.relationship(src, op.RelationshipName)
	if err != nil {
		return err
	}
	return removeRelationship(e, src, rel)
}

func RenameRelationship(e *Edition, op *operations.RenameRelationship) error {
	src, err := e.Topology.GetNode(op.NodeName)
	if err != nil {
		return err
	}
	rel, err := e.relationship(src, op.RelationshipName)
	if err != nil {
		return err
	}
	if op.NewRelationshipName == "" {
		return errkind.ErrInvalidName("relationship", op.NewRelationshipName)
	}
	if op.NewRelationshipName == rel.Name {
		return nil
	}
	if src.Relationships.Has(op.NewRelationshipName) {
		return errkind.ErrAlreadyExists("relationship", src.Name+"."+op.NewRelationshipName)
	}
	src.Relationships.Rename(rel.Name, op.NewRelationshipName)
	rel.Name = op.NewRelationshipName
	return e.Workflows.RenameRelationship(e.Context, e.Topology, src.Name, op.RelationshipName, rel.Name)
}

func UpdateRelationshipProperty(e *Edition, op *operations.UpdateRelationshipProperty) error {
	src, err := e.Topology.GetNode(op.NodeName)
	if err != nil {
		return err
	}
	rel, err := e.relationship(src, op.RelationshipName)
	if err != nil {
		return err
	}
	rt, err := typectx.Require[*model.RelationshipType](e.Context, rel.Type)
	if err != nil {
		return err
	}
	if rel.Properties == nil {
		rel.Properties = map[string]model.PropertyValue{}
	}
	return e.setProperty(rel.Properties, rt.Properties, op.PropertyName, op.PropertyValue)
}
