// Package workflow maintains the lifecycle workflows of a topology.
//
// The standard workflows (install, uninstall, start and stop) are
// derived from the node templates and their relationships and are kept
// in line with the topology when nodes or relationships are added,
// removed or renamed. Custom workflows are only edited explicitly.
package workflow

import (
	"context"
	"strings"

	"github.com/mandelsoft/logging"

	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/topology"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/typectx"
)

var REALM = logging.DefineRealm("toscaeditor/workflow", "workflow builder")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)

// Node states set by the standard workflows.
const (
	StateInitial     = "initial"
	StateCreating    = "creating"
	StateCreated     = "created"
	StateConfiguring = "configuring"
	StateConfigured  = "configured"
	StateStarting    = "starting"
	StateStarted     = "started"
	StateStopping    = "stopping"
	StateStopped     = "stopped"
	StateDeleting    = "deleting"
	StateDeleted     = "deleted"
)

type phase struct {
	state     string
	operation string
}

func state(s string) phase {
	return phase{state: s}
}

func call(op string) phase {
	return phase{operation: op}
}

// lifecycle describes a standard workflow. Relationships order the
// steps of their nodes: the step of the target in state from precedes
// the step of the source in state to. For reverse lifecycles the
// source precedes the target.
type lifecycle struct {
	phases     []phase
	reverse    bool
	hostFrom   string
	hostTo     string
	dependFrom string
	dependTo   string
}

var lifecycles = map[string]*lifecycle{
	model.InstallWorkflow: {
		phases: []phase{
			state(StateCreating), call(model.OperationCreate), state(StateCreated),
			state(StateConfiguring), call(model.OperationConfigure), state(StateConfigured),
			state(StateStarting), call(model.OperationStart), state(StateStarted),
		},
		hostFrom:   StateStarted,
		hostTo:     StateCreating,
		dependFrom: StateStarted,
		dependTo:   StateConfiguring,
	},
	model.UninstallWorkflow: {
		phases: []phase{
			state(StateStopping), call(model.OperationStop), state(StateStopped),
			state(StateDeleting), call(model.OperationDelete), state(StateDeleted),
		},
		reverse:    true,
		hostFrom:   StateDeleted,
		hostTo:     StateStopping,
		dependFrom: StateStopped,
		dependTo:   StateStopping,
	},
	model.StartWorkflow: {
		phases:     []phase{state(StateStarting), call(model.OperationStart), state(StateStarted)},
		hostFrom:   StateStarted,
		hostTo:     StateStarting,
		dependFrom: StateStarted,
		dependTo:   StateStarting,
	},
	model.StopWorkflow: {
		phases:     []phase{state(StateStopping), call(model.OperationStop), state(StateStopped)},
		reverse:    true,
		hostFrom:   StateStopped,
		hostTo:     StateStopping,
		dependFrom: StateStopped,
		dependTo:   StateStopping,
	},
}

// Builder maintains the workflows of topologies. Type information
// is taken from the type context bound to the context.
type Builder struct{}

func New() *Builder {
	return &Builder{}
}

// InitWorkflows rebuilds all standard workflows from the current
// topology. Custom workflows are kept.
func (b *Builder) InitWorkflows(ctx context.Context, topo *model.Topology) error {
	for _, name := range model.StandardWorkflows {
		if err := b.build(ctx, topo, name); err != nil {
			return err
		}
	}
	return nil
}

// ReinitWorkflow rebuilds a single standard workflow.
func (b *Builder) ReinitWorkflow(ctx context.Context, topo *model.Topology, name string) error {
	w, err := topo.GetWorkflow(name)
	if err != nil {
		return err
	}
	if !w.Standard {
		return errkind.ErrInvalidArgument("workflow %q is a custom workflow and cannot be reinitialized", name)
	}
	return b.build(ctx, topo, name)
}

func (b *Builder) build(ctx context.Context, topo *model.Topology, name string) error {
	lc := lifecycles[name]
	w := model.NewWorkflow(name, true)
	if old := topo.Workflows.Get(name); old != nil {
		w.Description = old.Description
	}
	for _, n := range topo.NodeTemplates.List() {
		addNode(ctx, topo, w, lc, n.Name)
	}
	for _, n := range topo.NodeTemplates.List() {
		for _, rel := range n.Relationships.List() {
			if err := addRelationship(ctx, w, lc, n.Name, rel); err != nil {
				return err
			}
		}
	}
	topo.Workflows.Set(name, w)
	log.Debug("built workflow {{workflow}} of {{topology}} with {{count}} steps", "workflow", name, "topology", topo.Id(), "count", w.Steps.Len())
	return nil
}

// standard calls f for all standard workflows of the topology.
func standard(topo *model.Topology, f func(w *model.Workflow, lc *lifecycle) error) error {
	for _, w := range topo.Workflows.List() {
		if lc := lifecycles[w.Name]; w.Standard && lc != nil {
			if err := f(w, lc); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddNode adds the steps of a new node to the standard workflows.
func (b *Builder) AddNode(ctx context.Context, topo *model.Topology, node string) error {
	if _, err := topo.GetNode(node); err != nil {
		return err
	}
	return standard(topo, func(w *model.Workflow, lc *lifecycle) error {
		addNode(ctx, topo, w, lc, node)
		return nil
	})
}

// RemoveNode removes all steps of the node from all workflows.
func (b *Builder) RemoveNode(ctx context.Context, topo *model.Topology, node string) error {
	for _, w := range topo.Workflows.List() {
		for _, s := range w.Steps.List() {
			if s.Target == node {
				removeStep(w, s.Name)
			}
		}
	}
	return nil
}

// RenameNode retargets the steps of a node in all workflows.
// Steps named after the node are renamed, too.
func (b *Builder) RenameNode(ctx context.Context, topo *model.Topology, old, new string) error {
	for _, w := range topo.Workflows.List() {
		for _, s := range w.Steps.List() {
			if s.OperationHost == old {
				s.OperationHost = new
			}
			if s.Target != old {
				continue
			}
			s.Target = new
			if name := renamedStep(s.Name, old, new); name != s.Name {
				renameStep(w, s.Name, uniqueStepName(w, name))
			}
		}
	}
	return nil
}

func renamedStep(name, old, new string) string {
	if strings.HasPrefix(name, old+"_") {
		return new + name[len(old):]
	}
	if strings.HasSuffix(name, "_"+old) {
		return name[:len(name)-len(old)] + new
	}
	return name
}

// AddRelationship orders the steps of the source and target node
// of a new relationship in the standard workflows.
func (b *Builder) AddRelationship(ctx context.Context, topo *model.Topology, source, relationship string) error {
	n, err := topo.GetNode(source)
	if err != nil {
		return err
	}
	rel := n.Relationships.Get(relationship)
	if rel == nil {
		return errkind.ErrNotFound("relationship", source+"."+relationship)
	}
	return standard(topo, func(w *model.Workflow, lc *lifecycle) error {
		return addRelationship(ctx, w, lc, source, rel)
	})
}

// RemoveRelationship removes the ordering implied by a relationship,
// as long as it is not implied by another one, and all steps
// operating on the relationship. It must be called before the
// relationship is removed from the source node.
func (b *Builder) RemoveRelationship(ctx context.Context, topo *model.Topology, source string, rel *model.RelationshipTemplate) error {
	for _, w := range topo.Workflows.List() {
		for _, s := range w.Steps.List() {
			if s.Target == source && s.TargetRelationship == rel.Name {
				removeStep(w, s.Name)
			}
		}
	}
	return standard(topo, func(w *model.Workflow, lc *lifecycle) error {
		remaining := map[edge]bool{}
		for _, n := range topo.NodeTemplates.List() {
			for _, r := range n.Relationships.List() {
				if n.Name == source && r.Name == rel.Name {
					continue
				}
				if e, ok := relationshipEdge(ctx, w, lc, n.Name, r); ok {
					remaining[e] = true
				}
			}
		}
		if e, ok := relationshipEdge(ctx, w, lc, source, rel); ok && !remaining[e] {
			unlink(w, e.from, e.to)
		}
		return nil
	})
}

// RenameRelationship updates the steps operating on a relationship.
func (b *Builder) RenameRelationship(ctx context.Context, topo *model.Topology, source, old, new string) error {
	for _, w := range topo.Workflows.List() {
		for _, s := range w.Steps.List() {
			if s.Target == source && s.TargetRelationship == old {
				s.TargetRelationship = new
			}
		}
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////

func isCompute(ctx context.Context, topo *model.Topology, node string) bool {
	n := topo.NodeTemplates.Get(node)
	if n == nil {
		return false
	}
	t := typectx.Lookup[*model.NodeType](ctx, n.Type)
	if t == nil {
		return n.Type == model.ComputeNodeType
	}
	return t.IsA(model.ComputeNodeType)
}

// addNode adds the step chain of a node. Compute nodes are
// delegated to the orchestrator with a single step.
func addNode(ctx context.Context, topo *model.Topology, w *model.Workflow, lc *lifecycle, node string) {
	if isCompute(ctx, topo, node) {
		name := uniqueStepName(w, node+"_"+w.Name)
		w.Steps.Set(name, &model.Step{
			Name:       name,
			Target:     node,
			Activities: []model.Activity{{Type: model.ActivityDelegate, Value: w.Name}},
		})
		return
	}
	var last *model.Step
	for _, p := range lc.phases {
		var s *model.Step
		if p.state != "" {
			s = &model.Step{Name: node + "_" + p.state, Activities: []model.Activity{{Type: model.ActivitySetState, Value: p.state}}}
		} else {
			s = &model.Step{Name: p.operation + "_" + node, Activities: []model.Activity{{Type: model.ActivityCallOperation, Value: model.StandardInterface + "." + p.operation}}}
		}
		s.Name = uniqueStepName(w, s.Name)
		s.Target = node
		w.Steps.Set(s.Name, s)
		if last != nil {
			last.OnSuccess = append(last.OnSuccess, s.Name)
			s.Precedings = append(s.Precedings, last.Name)
		}
		last = s
	}
}

func addRelationship(ctx context.Context, w *model.Workflow, lc *lifecycle, source string, rel *model.RelationshipTemplate) error {
	e, ok := relationshipEdge(ctx, w, lc, source, rel)
	if !ok {
		return nil
	}
	log.Debug("{{workflow}}: {{from}} -> {{to}} for relationship {{relationship}}", "workflow", w.Name, "from", e.from, "to", e.to, "relationship", rel.Name)
	return link(w, e.from, e.to)
}

// relationshipEdge determines the edge implied by a relationship.
func relationshipEdge(ctx context.Context, w *model.Workflow, lc *lifecycle, source string, rel *model.RelationshipTemplate) (edge, bool) {
	from, to := lc.dependFrom, lc.dependTo
	if topology.IsHostedOn(ctx, rel.Type) {
		from, to = lc.hostFrom, lc.hostTo
	}
	first, second := rel.Target, source
	if lc.reverse {
		first, second = source, rel.Target
	}
	f := nodeStep(w, first, from)
	t := nodeStep(w, second, to)
	if f == "" || t == "" || f == t {
		return edge{}, false
	}
	return edge{from: f, to: t}, true
}

// nodeStep finds the step setting the given state for a node,
// or the delegate step of the node.
func nodeStep(w *model.Workflow, node, state string) string {
	for _, s := range w.Steps.List() {
		if s.Target != node || s.TargetRelationship != "" {
			continue
		}
		a := s.Activity()
		if a.Type == model.ActivityDelegate || (a.Type == model.ActivitySetState && a.Value == state) {
			return s.Name
		}
	}
	return ""
}
