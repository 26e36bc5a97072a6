package processors

import (
	"strconv"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mandelsoft/toscaeditor/pkg/editor/operations"
	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/topology"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/typectx"
)

// Tags used to store the editor position of a node.
const (
	TagPositionX = "a4c_edit_x"
	TagPositionY = "a4c_edit_y"
)

func init() {
	Register(DefaultRegistry, AddNode)
	Register(DefaultRegistry, DeleteNode)
	Register(DefaultRegistry, RenameNode)
	Register(DefaultRegistry, ReplaceNode)
	Register(DefaultRegistry, MoveNode)
	Register(DefaultRegistry, UpdateNodeProperty)
	Register(DefaultRegistry, UpdateCapabilityProperty)
}

func AddNode(e *Edition, op *operations.AddNode) error {
	if !model.NodeNamePattern.MatchString(op.NodeName) {
		return errkind.ErrInvalidName("node template", op.NodeName)
	}
	if e.Topology.NodeTemplates.Has(op.NodeName) {
		return errkind.ErrAlreadyExists("node template", op.NodeName)
	}
	t, err := topology.LoadType(e.Context, e.Repository, e.Topology, model.NodeKind, op.NodeType, op.ArchiveVersion)
	if err != nil {
		return err
	}
	n := topology.BuildNodeTemplate(e.Types(), t.(*model.NodeType), op.NodeName)
	e.Topology.NodeTemplates.Set(n.Name, n)
	log.Debug("added node {{node}} of type {{type}} to {{topology}}", "node", n.Name, "type", n.Type, "topology", e.Topology.Id())
	return e.Workflows.AddNode(e.Context, e.Topology, n.Name)
}

// DeleteNode removes a node together with all relationships
// targeting it and all references to it.
func DeleteNode(e *Edition, op *operations.DeleteNode) error {
	n, err := e.Topology.GetNode(op.NodeName)
	if err != nil {
		return err
	}
	for _, in := range topology.InboundRelationships(e.Topology, n.Name) {
		if err := removeRelationship(e, e.Topology.NodeTemplates.Get(in.Source), in.Relationship); err != nil {
			return err
		}
	}
	for _, rel := range n.Relationships.List() {
		if err := e.Workflows.RemoveRelationship(e.Context, e.Topology, n.Name, rel); err != nil {
			return err
		}
	}
	topology.RemoveNodeReferences(e.Topology, n.Name)
	if err := e.Workflows.RemoveNode(e.Context, e.Topology, n.Name); err != nil {
		return err
	}
	e.Topology.NodeTemplates.Delete(n.Name)

	topology.UnloadType(e.Context, e.Topology, model.NodeKind, n.Type)
	for _, rel := range n.Relationships.List() {
		topology.UnloadType(e.Context, e.Topology, model.RelationshipKind, rel.Type)
	}
	return nil
}

func RenameNode(e *Edition, op *operations.RenameNode) error {
	if err := topology.RenameNode(e.Topology, op.NodeName, op.NewName); err != nil {
		return err
	}
	return e.Workflows.RenameNode(e.Context, e.Topology, op.NodeName, op.NewName)
}

// ReplaceNode changes the type of a node. Properties and capability
// properties with matching definitions are kept, relationships not
// supported by the new type are removed.
func ReplaceNode(e *Edition, op *operations.ReplaceNode) error {
	n, err := e.Topology.GetNode(op.NodeName)
	if err != nil {
		return err
	}
	ot := typectx.Lookup[*model.NodeType](e.Context, n.Type)
	t, err := topology.LoadType(e.Context, e.Repository, e.Topology, model.NodeKind, op.NewNodeType, op.ArchiveVersion)
	if err != nil {
		return err
	}
	nt := t.(*model.NodeType)
	r := topology.BuildNodeTemplate(e.Types(), nt, n.Name)
	r.Description = n.Description
	r.Tags = n.Tags
	r.Groups = n.Groups

	for k, v := range n.Properties {
		if nd := nt.Properties[k]; nd != nil && v != nil && (ot == nil || nd.IsCompatible(ot.Properties[k])) {
			r.Properties[k] = v
		}
	}
	for k, c := range n.Capabilities {
		if rc := r.Capabilities[k]; rc != nil && rc.Type == c.Type {
			for p, v := range c.Properties {
				if _, ok := rc.Properties[p]; ok && v != nil {
					rc.Properties[p] = v
				}
			}
		}
	}
	for k, a := range n.Artifacts {
		if _, ok := r.Artifacts[k]; ok {
			c := *a
			r.Artifacts[k] = &c
		}
	}

	type drop struct {
		source *model.NodeTemplate
		rel    *model.RelationshipTemplate
	}
	var dropped []drop
	for _, rel := range n.Relationships.List() {
		req := nt.Requirement(rel.RequirementName)
		capType := rel.RequirementType
		if tn := e.Topology.NodeTemplates.Get(rel.Target); tn != nil && tn.Capabilities[rel.TargetedCapabilityName] != nil {
			capType = tn.Capabilities[rel.TargetedCapabilityName].Type
		}
		if req != nil && e.capabilityMatches(capType, req.Type) {
			rel.RequirementType = req.Type
			r.Relationships.Set(rel.Name, rel)
			continue
		}
		log.Info("dropping relationship {{relationship}} of {{node}}: requirement {{requirement}} not supported by {{type}}",
			"relationship", rel.Name, "node", n.Name, "requirement", rel.RequirementName, "type", nt.ElementId)
		dropped = append(dropped, drop{n, rel})
	}
	for _, in := range topology.InboundRelationships(e.Topology, n.Name) {
		c := r.Capabilities[in.Relationship.TargetedCapabilityName]
		if c != nil && e.capabilityMatches(c.Type, in.Relationship.RequirementType) {
			continue
		}
		log.Info("dropping relationship {{relationship}} of {{node}}: capability {{capability}} not supported by {{type}}",
			"relationship", in.Relationship.Name, "node", in.Source, "capability", in.Relationship.TargetedCapabilityName, "type", nt.ElementId)
		dropped = append(dropped, drop{e.Topology.NodeTemplates.Get(in.Source), in.Relationship})
	}
	for _, d := range dropped {
		if err := e.Workflows.RemoveRelationship(e.Context, e.Topology, d.source.Name, d.rel); err != nil {
			return err
		}
	}
	for _, d := range dropped {
		d.source.Relationships.Delete(d.rel.Name)
	}

	e.Topology.NodeTemplates.Set(n.Name, r)
	for k := range e.Topology.OutputCapabilityProperties[n.Name] {
		if r.Capabilities[k] == nil {
			delete(e.Topology.OutputCapabilityProperties[n.Name], k)
		}
	}
	e.Topology.PruneOutputs()
	if s := e.Topology.Substitution; s != nil {
		for k, t := range s.Capabilities {
			if t.NodeTemplateName == n.Name && r.Capabilities[t.TargetId] == nil {
				delete(s.Capabilities, k)
			}
		}
		for k, t := range s.Requirements {
			if t.NodeTemplateName == n.Name && nt.Requirement(t.TargetId) == nil {
				delete(s.Requirements, k)
			}
		}
	}

	if n.Type != r.Type {
		topology.UnloadType(e.Context, e.Topology, model.NodeKind, n.Type)
	}
	for _, d := range dropped {
		topology.UnloadType(e.Context, e.Topology, model.RelationshipKind, d.rel.Type)
	}
	for _, req := range nt.Requirements {
		if c := r.CountRequirement(req.Id); c < req.LowerBound {
			log.Info("node {{node}} requires {{count}} more {{requirement}} relationships", "node", n.Name, "count", req.LowerBound-c, "requirement", req.Id)
		}
	}
	return e.Workflows.InitWorkflows(e.Context, e.Topology)
}

// capabilityMatches checks whether a capability type satisfies
// a requirement type.
func (e *Edition) capabilityMatches(capability, required string) bool {
	if required == "" || capability == required {
		return true
	}
	ct := typectx.Lookup[*model.CapabilityType](e.Context, capability)
	return ct != nil && ct.IsA(required)
}

func MoveNode(e *Edition, op *operations.MoveNode) error {
	n, err := e.Topology.GetNode(op.NodeName)
	if err != nil {
		return err
	}
	if n.Tags == nil {
		n.Tags = map[string]string{}
	}
	n.Tags[TagPositionX] = strconv.Itoa(op.X)
	n.Tags[TagPositionY] = strconv.Itoa(op.Y)
	return nil
}

func UpdateNodeProperty(e *Edition, op *operations.UpdateNodeProperty) error {
	n, err := e.Topology.GetNode(op.NodeName)
	if err != nil {
		return err
	}
	nt, err := e.nodeType(n)
	if err != nil {
		return err
	}
	if n.Properties == nil {
		n.Properties = map[string]model.PropertyValue{}
	}
	return e.setProperty(n.Properties, nt.Properties, op.PropertyName, op.PropertyValue)
}

func UpdateCapabilityProperty(e *Edition, op *operations.UpdateCapabilityProperty) error {
	n, err := e.Topology.GetNode(op.NodeName)
	if err != nil {
		return err
	}
	c, ct, err := e.capability(n, op.CapabilityName)
	if err != nil {
		return err
	}
	return e.setProperty(c.Properties, ct.Properties, op.PropertyName, op.PropertyValue)
}

func nodeGroups(n *model.NodeTemplate) sets.Set[string] {
	if n.Groups == nil {
		n.Groups = sets.New[string]()
	}
	return n.Groups
}
