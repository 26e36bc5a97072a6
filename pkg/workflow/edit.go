package workflow

import (
	"context"
	"slices"
	"strings"

	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/typectx"
)

var activityTypes = []string{model.ActivitySetState, model.ActivityCallOperation, model.ActivityDelegate, model.ActivityInline}

func customWorkflow(topo *model.Topology, name string) (*model.Workflow, error) {
	w, err := topo.GetWorkflow(name)
	if err != nil {
		return nil, err
	}
	if w.Standard {
		return nil, errkind.ErrInvalidArgument("workflow %q is a standard workflow", name)
	}
	return w, nil
}

func checkWorkflowName(topo *model.Topology, name string) error {
	if !model.GroupNamePattern.MatchString(name) {
		return errkind.ErrInvalidName("workflow", name)
	}
	if model.IsStandardWorkflow(name) {
		return errkind.ErrInvalidArgument("workflow name %q is reserved for a standard workflow", name)
	}
	if topo.Workflows.Has(name) {
		return errkind.ErrAlreadyExists("workflow", name)
	}
	return nil
}

// CreateWorkflow adds an empty custom workflow.
func (b *Builder) CreateWorkflow(topo *model.Topology, name string) (*model.Workflow, error) {
	if err := checkWorkflowName(topo, name); err != nil {
		return nil, err
	}
	w := model.NewWorkflow(name, false)
	topo.Workflows.Set(name, w)
	return w, nil
}

// RemoveWorkflow deletes a custom workflow.
func (b *Builder) RemoveWorkflow(topo *model.Topology, name string) error {
	if _, err := customWorkflow(topo, name); err != nil {
		return err
	}
	topo.Workflows.Delete(name)
	return nil
}

// RenameWorkflow renames a custom workflow and the inline
// activities referring to it.
func (b *Builder) RenameWorkflow(topo *model.Topology, old, new string) error {
	w, err := customWorkflow(topo, old)
	if err != nil {
		return err
	}
	if old == new {
		return nil
	}
	if err := checkWorkflowName(topo, new); err != nil {
		return err
	}
	topo.Workflows.Rename(old, new)
	w.Name = new
	for _, o := range topo.Workflows.List() {
		for _, s := range o.Steps.List() {
			for i, a := range s.Activities {
				if a.Type == model.ActivityInline && a.Value == old {
					s.Activities[i].Value = new
				}
			}
		}
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////

// StepSpec describes a step to add.
type StepSpec struct {
	Target             string
	TargetRelationship string
	OperationHost      string
	Activity           model.Activity
}

// AddActivity adds a step for an activity. If a related step is
// given, the new step is inserted before or after it. The name of
// the new step is returned.
func (b *Builder) AddActivity(ctx context.Context, topo *model.Topology, workflow, related string, before bool, spec StepSpec) (string, error) {
	w, err := topo.GetWorkflow(workflow)
	if err != nil {
		return "", err
	}
	var rel *model.Step
	if related != "" {
		if rel, err = getStep(w, related); err != nil {
			return "", err
		}
	}
	if err := checkActivity(ctx, topo, w, spec.Target, spec.TargetRelationship, spec.Activity); err != nil {
		return "", err
	}
	s := &model.Step{
		Name:               uniqueStepName(w, stepName(spec.Target, spec.Activity)),
		Target:             spec.Target,
		TargetRelationship: spec.TargetRelationship,
		OperationHost:      spec.OperationHost,
		Activities:         []model.Activity{spec.Activity},
	}
	w.Steps.Set(s.Name, s)
	if rel != nil {
		if before {
			for _, p := range slices.Clone(rel.Precedings) {
				if ps := w.Steps.Get(p); ps != nil {
					ps.OnSuccess = replace(ps.OnSuccess, rel.Name, s.Name)
				}
			}
			s.OnSuccess = []string{rel.Name}
		} else {
			s.OnSuccess = rel.OnSuccess
			rel.OnSuccess = []string{s.Name}
		}
		w.UpdatePrecedings()
	}
	log.Debug("added step {{step}} to workflow {{workflow}}", "step", s.Name, "workflow", w.Name)
	return s.Name, nil
}

func replace(list []string, old, new string) []string {
	r := make([]string, 0, len(list))
	for _, e := range list {
		if e == old {
			e = new
		}
		if !slices.Contains(r, e) {
			r = append(r, e)
		}
	}
	return r
}

func stepName(target string, a model.Activity) string {
	value := a.Value
	if a.Type == model.ActivityCallOperation {
		if i := strings.LastIndex(value, "."); i >= 0 {
			value = value[i+1:]
		}
		if target == "" {
			return value
		}
		return value + "_" + target
	}
	if target == "" {
		return a.Type + "_" + value
	}
	return target + "_" + value
}

// checkActivity validates an activity for a step target.
func checkActivity(ctx context.Context, topo *model.Topology, w *model.Workflow, target, relationship string, a model.Activity) error {
	if !slices.Contains(activityTypes, a.Type) {
		return errkind.ErrInvalidArgument("unknown activity type %q", a.Type)
	}
	if a.Value == "" {
		return errkind.ErrInvalidArgument("%s activity requires a value", a.Type)
	}
	var node *model.NodeTemplate
	if target != "" {
		n, err := topo.GetNode(target)
		if err != nil {
			return err
		}
		node = n
	}
	var rel *model.RelationshipTemplate
	if relationship != "" {
		if node == nil {
			return errkind.ErrInvalidArgument("target relationship %q requires a target node", relationship)
		}
		if rel = node.Relationships.Get(relationship); rel == nil {
			return errkind.ErrNotFound("relationship", target+"."+relationship)
		}
	}
	switch a.Type {
	case model.ActivityInline:
		if a.Value == w.Name {
			return errkind.ErrCyclicReference("workflow %q cannot inline itself", w.Name)
		}
		if _, err := topo.GetWorkflow(a.Value); err != nil {
			return err
		}
	case model.ActivityCallOperation, model.ActivitySetState, model.ActivityDelegate:
		if node == nil {
			return errkind.ErrInvalidArgument("%s activity requires a target node", a.Type)
		}
	}
	if a.Type == model.ActivityCallOperation {
		i := strings.LastIndex(a.Value, ".")
		if i <= 0 || i == len(a.Value)-1 {
			return errkind.ErrInvalidArgument("operation %q must have the form <interface>.<operation>", a.Value)
		}
		if !hasOperation(ctx, node, rel, a.Value[:i], a.Value[i+1:]) {
			return errkind.ErrNotFound("operation", a.Value)
		}
	}
	return nil
}

func hasOperation(ctx context.Context, node *model.NodeTemplate, rel *model.RelationshipTemplate, iface, op string) bool {
	iface = model.InterfaceName(iface)
	if rel != nil {
		if rel.Interfaces[iface].HasOperation(op) {
			return true
		}
		t := typectx.Lookup[*model.RelationshipType](ctx, rel.Type)
		return t != nil && t.Interfaces[iface].HasOperation(op)
	}
	if node.Interfaces[iface].HasOperation(op) {
		return true
	}
	t := typectx.Lookup[*model.NodeType](ctx, node.Type)
	return t != nil && t.Interfaces[iface].HasOperation(op)
}

// UpdateActivity replaces the activity of a step.
func (b *Builder) UpdateActivity(ctx context.Context, topo *model.Topology, workflow, step string, a model.Activity) error {
	w, err := topo.GetWorkflow(workflow)
	if err != nil {
		return err
	}
	s, err := getStep(w, step)
	if err != nil {
		return err
	}
	if err := checkActivity(ctx, topo, w, s.Target, s.TargetRelationship, a); err != nil {
		return err
	}
	s.Activities = []model.Activity{a}
	return nil
}

// RemoveStep deletes a step, linking its predecessors
// to its successors.
func (b *Builder) RemoveStep(topo *model.Topology, workflow, step string) error {
	w, err := topo.GetWorkflow(workflow)
	if err != nil {
		return err
	}
	if _, err := getStep(w, step); err != nil {
		return err
	}
	removeStep(w, step)
	return nil
}

func (b *Builder) RenameStep(topo *model.Topology, workflow, old, new string) error {
	w, err := topo.GetWorkflow(workflow)
	if err != nil {
		return err
	}
	if _, err := getStep(w, old); err != nil {
		return err
	}
	if old == new {
		return nil
	}
	if new == "" || strings.ContainsAny(new, " \t\n") {
		return errkind.ErrInvalidName("step", new)
	}
	if w.Steps.Has(new) {
		return errkind.ErrAlreadyExists("step", workflow+"."+new)
	}
	renameStep(w, old, new)
	return nil
}

// ConnectStepFrom adds edges from all given steps to the step.
// Nothing is changed if one of the edges closes a cycle.
func (b *Builder) ConnectStepFrom(topo *model.Topology, workflow, step string, from []string) error {
	edges := make([]edge, 0, len(from))
	for _, f := range from {
		edges = append(edges, edge{from: f, to: step})
	}
	return connect(topo, workflow, edges)
}

// ConnectStepTo adds edges from the step to all given steps.
func (b *Builder) ConnectStepTo(topo *model.Topology, workflow, step string, to []string) error {
	edges := make([]edge, 0, len(to))
	for _, t := range to {
		edges = append(edges, edge{from: step, to: t})
	}
	return connect(topo, workflow, edges)
}

func connect(topo *model.Topology, workflow string, edges []edge) error {
	w, err := topo.GetWorkflow(workflow)
	if err != nil {
		return err
	}
	var done []edge
	for _, e := range edges {
		f, err := getStep(w, e.from)
		if err == nil && !slices.Contains(f.OnSuccess, e.to) {
			err = link(w, e.from, e.to)
			if err == nil {
				done = append(done, e)
			}
		}
		if err != nil {
			for _, d := range done {
				unlink(w, d.from, d.to)
			}
			return err
		}
	}
	return nil
}

// RemoveEdge removes the on_success edge between two steps.
func (b *Builder) RemoveEdge(topo *model.Topology, workflow, from, to string) error {
	w, err := topo.GetWorkflow(workflow)
	if err != nil {
		return err
	}
	if _, err := getStep(w, from); err != nil {
		return err
	}
	if _, err := getStep(w, to); err != nil {
		return err
	}
	if !unlink(w, from, to) {
		return errkind.ErrNotFound("edge", from+"->"+to)
	}
	return nil
}

// SwapSteps exchanges the positions of two steps in the graph.
func (b *Builder) SwapSteps(topo *model.Topology, workflow, a, c string) error {
	w, err := topo.GetWorkflow(workflow)
	if err != nil {
		return err
	}
	if _, err := getStep(w, a); err != nil {
		return err
	}
	if _, err := getStep(w, c); err != nil {
		return err
	}
	if a == c {
		return nil
	}
	swap := func(n string) string {
		switch n {
		case a:
			return c
		case c:
			return a
		}
		return n
	}
	mapped := func(list []string) []string {
		if len(list) == 0 {
			return nil
		}
		r := make([]string, len(list))
		for i, n := range list {
			r[i] = swap(n)
		}
		return r
	}
	succ := map[string][]string{}
	fail := map[string][]string{}
	for _, s := range w.Steps.List() {
		succ[swap(s.Name)] = mapped(s.OnSuccess)
		fail[swap(s.Name)] = mapped(s.OnFailure)
	}
	for _, s := range w.Steps.List() {
		s.OnSuccess = succ[s.Name]
		s.OnFailure = fail[s.Name]
	}
	w.Steps.Swap(a, c)
	w.UpdatePrecedings()
	return nil
}
