package topology

import (
	"context"

	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/typectx"
)

// Inbound is a relationship targeting a node.
type Inbound struct {
	Source       string
	Relationship *model.RelationshipTemplate
}

// InboundRelationships lists all relationships targeting the node.
func InboundRelationships(topo *model.Topology, name string) []Inbound {
	var r []Inbound
	for _, n := range topo.NodeTemplates.List() {
		for _, rel := range n.RelationshipsTo(name) {
			r = append(r, Inbound{Source: n.Name, Relationship: rel})
		}
	}
	return r
}

// RenameNode renames a node template and retargets all references
// of the topology graph. Workflows are maintained by the workflow builder.
func RenameNode(topo *model.Topology, old, new string) error {
	n, err := topo.GetNode(old)
	if err != nil {
		return err
	}
	if !model.NodeNamePattern.MatchString(new) {
		return errkind.ErrInvalidName("node template", new)
	}
	if topo.NodeTemplates.Has(new) {
		return errkind.ErrAlreadyExists("node template", new)
	}
	topo.NodeTemplates.Rename(old, new)
	n.Name = new

	for _, e := range topo.NodeTemplates.List() {
		for _, rel := range e.Relationships.List() {
			if rel.Target == old {
				rel.Target = new
			}
		}
	}
	for _, g := range topo.Groups {
		if g.Members.Has(old) {
			g.Members.Delete(old)
			g.Members.Insert(new)
		}
	}
	for _, p := range topo.Policies.List() {
		if p.Targets.Has(old) {
			p.Targets.Delete(old)
			p.Targets.Insert(new)
		}
	}
	topo.RenameOutputs(old, new)
	if s := topo.Substitution; s != nil {
		for _, t := range s.Capabilities {
			if t.NodeTemplateName == old {
				t.NodeTemplateName = new
			}
		}
		for _, t := range s.Requirements {
			if t.NodeTemplateName == old {
				t.NodeTemplateName = new
			}
		}
	}
	return nil
}

// RemoveNodeReferences drops all references to a node except the
// inbound relationships: group membership (empty groups are removed),
// policy targets, outputs and substitution exposures.
func RemoveNodeReferences(topo *model.Topology, name string) {
	for gname, g := range topo.Groups {
		if g.Members.Has(name) {
			g.Members.Delete(name)
			if g.Members.Len() == 0 {
				delete(topo.Groups, gname)
				for _, n := range topo.NodeTemplates.List() {
					n.Groups.Delete(gname)
				}
			}
		}
	}
	for _, p := range topo.Policies.List() {
		p.Targets.Delete(name)
	}
	topo.RemoveOutputs(name)
	if s := topo.Substitution; s != nil {
		for k, t := range s.Capabilities {
			if t.NodeTemplateName == name {
				delete(s.Capabilities, k)
			}
		}
		for k, t := range s.Requirements {
			if t.NodeTemplateName == name {
				delete(s.Requirements, k)
			}
		}
	}
}

// CapabilityUsage counts the relationships of the topology
// targeting a capability of a node.
func CapabilityUsage(topo *model.Topology, target, capability string) int {
	c := 0
	for _, n := range topo.NodeTemplates.List() {
		for _, rel := range n.RelationshipsTo(target) {
			if rel.TargetedCapabilityName == capability {
				c++
			}
		}
	}
	return c
}

// IsHostedOn reports whether the relationship type is derived from
// the normative hosting relationship.
func IsHostedOn(ctx context.Context, typ string) bool {
	if typ == model.HostedOnType {
		return true
	}
	t := typectx.Lookup[*model.RelationshipType](ctx, typ)
	return t != nil && t.IsA(model.HostedOnType)
}

// Host returns the name of the node hosting the given one, if any.
func Host(ctx context.Context, topo *model.Topology, node string) string {
	n := topo.NodeTemplates.Get(node)
	if n == nil {
		return ""
	}
	for _, rel := range n.Relationships.List() {
		if IsHostedOn(ctx, rel.Type) {
			return rel.Target
		}
	}
	return ""
}

// HostChain returns the hosts of a node, nearest first. A cycle in
// the chain results in a CyclicReference error.
func HostChain(ctx context.Context, topo *model.Topology, node string) ([]string, error) {
	var chain []string
	seen := map[string]bool{node: true}
	for h := Host(ctx, topo, node); h != ""; h = Host(ctx, topo, h) {
		if seen[h] {
			return chain, errkind.ErrCyclicReference("host chain of %q loops at %q", node, h)
		}
		seen[h] = true
		chain = append(chain, h)
	}
	return chain, nil
}
