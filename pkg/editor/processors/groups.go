package processors

import (
	"slices"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mandelsoft/toscaeditor/pkg/editor/operations"
	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/topology"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/typectx"
)

func init() {
	Register(DefaultRegistry, AddGroup)
	Register(DefaultRegistry, DeleteGroup)
	Register(DefaultRegistry, RenameGroup)
	Register(DefaultRegistry, AddGroupMember)
	Register(DefaultRegistry, RemoveGroupMember)

	Register(DefaultRegistry, AddPolicy)
	Register(DefaultRegistry, DeletePolicy)
	Register(DefaultRegistry, RenamePolicy)
	Register(DefaultRegistry, UpdatePolicyProperty)
	Register(DefaultRegistry, UpdatePolicyTargets)
}

func (e *Edition) group(name string) (*model.NodeGroup, error) {
	g := e.Topology.Groups[name]
	if g == nil {
		return nil, errkind.ErrNotFound("group", name)
	}
	return g, nil
}

func (e *Edition) createGroup(name string) (*model.NodeGroup, error) {
	if !model.GroupNamePattern.MatchString(name) {
		return nil, errkind.ErrInvalidName("group", name)
	}
	if e.Topology.Groups[name] != nil {
		return nil, errkind.ErrAlreadyExists("group", name)
	}
	index := 0
	for _, g := range e.Topology.Groups {
		if g.Index >= index {
			index = g.Index + 1
		}
	}
	g := &model.NodeGroup{Name: name, Index: index, Members: sets.New[string]()}
	e.Topology.Groups[name] = g
	return g, nil
}

func AddGroup(e *Edition, op *operations.AddGroup) error {
	_, err := e.createGroup(op.GroupName)
	return err
}

func DeleteGroup(e *Edition, op *operations.DeleteGroup) error {
	g, err := e.group(op.GroupName)
	if err != nil {
		return err
	}
	for _, m := range sets.List(g.Members) {
		if n := e.Topology.NodeTemplates.Get(m); n != nil {
			nodeGroups(n).Delete(g.Name)
		}
	}
	delete(e.Topology.Groups, g.Name)
	return nil
}

func RenameGroup(e *Edition, op *operations.RenameGroup) error {
	g, err := e.group(op.GroupName)
	if err != nil {
		return err
	}
	if op.NewGroupName == g.Name {
		return nil
	}
	if !model.GroupNamePattern.MatchString(op.NewGroupName) {
		return errkind.ErrInvalidName("group", op.NewGroupName)
	}
	if e.Topology.Groups[op.NewGroupName] != nil {
		return errkind.ErrAlreadyExists("group", op.NewGroupName)
	}
	delete(e.Topology.Groups, g.Name)
	for _, m := range sets.List(g.Members) {
		if n := e.Topology.NodeTemplates.Get(m); n != nil {
			nodeGroups(n).Delete(g.Name)
			n.Groups.Insert(op.NewGroupName)
		}
	}
	g.Name = op.NewGroupName
	e.Topology.Groups[g.Name] = g
	return nil
}

func AddGroupMember(e *Edition, op *operations.AddGroupMember) error {
	n, err := e.Topology.GetNode(op.NodeName)
	if err != nil {
		return err
	}
	g := e.Topology.Groups[op.GroupName]
	if g == nil {
		if g, err = e.createGroup(op.GroupName); err != nil {
			return err
		}
	}
	if g.Members == nil {
		g.Members = sets.New[string]()
	}
	g.Members.Insert(n.Name)
	nodeGroups(n).Insert(g.Name)
	return nil
}

// RemoveGroupMember removes a node from a group. Groups without
// members are deleted.
func RemoveGroupMember(e *Edition, op *operations.RemoveGroupMember) error {
	g, err := e.group(op.GroupName)
	if err != nil {
		return err
	}
	if !g.Members.Has(op.NodeName) {
		return errkind.ErrNotFound("group member", g.Name+"."+op.NodeName)
	}
	g.Members.Delete(op.NodeName)
	if n := e.Topology.NodeTemplates.Get(op.NodeName); n != nil {
		nodeGroups(n).Delete(g.Name)
	}
	if g.Members.Len() == 0 {
		delete(e.Topology.Groups, g.Name)
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////

func AddPolicy(e *Edition, op *operations.AddPolicy) error {
	if !model.GroupNamePattern.MatchString(op.PolicyName) {
		return errkind.ErrInvalidName("policy", op.PolicyName)
	}
	if e.Topology.Policies.Has(op.PolicyName) {
		return errkind.ErrAlreadyExists("policy", op.PolicyName)
	}
	t, err := topology.LoadType(e.Context, e.Repository, e.Topology, model.PolicyKind, op.PolicyType, op.ArchiveVersion)
	if err != nil {
		return err
	}
	p := topology.BuildPolicyTemplate(e.Types(), t.(*model.PolicyType), op.PolicyName)
	e.Topology.Policies.Set(p.Name, p)
	return nil
}

func DeletePolicy(e *Edition, op *operations.DeletePolicy) error {
	p, err := e.Topology.GetPolicy(op.PolicyName)
	if err != nil {
		return err
	}
	e.Topology.Policies.Delete(p.Name)
	topology.UnloadType(e.Context, e.Topology, model.PolicyKind, p.Type)
	return nil
}

func RenamePolicy(e *Edition, op *operations.RenamePolicy) error {
	p, err := e.Topology.GetPolicy(op.PolicyName)
	if err != nil {
		return err
	}
	if op.NewPolicyName == p.Name {
		return nil
	}
	if !model.GroupNamePattern.MatchString(op.NewPolicyName) {
		return errkind.ErrInvalidName("policy", op.NewPolicyName)
	}
	if e.Topology.Policies.Has(op.NewPolicyName) {
		return errkind.ErrAlreadyExists("policy", op.NewPolicyName)
	}
	e.Topology.Policies.Rename(p.Name, op.NewPolicyName)
	p.Name = op.NewPolicyName
	return nil
}

func UpdatePolicyProperty(e *Edition, op *operations.UpdatePolicyProperty) error {
	p, err := e.Topology.GetPolicy(op.PolicyName)
	if err != nil {
		return err
	}
	pt, err := typectx.Require[*model.PolicyType](e.Context, p.Type)
	if err != nil {
		return err
	}
	if p.Properties == nil {
		p.Properties = map[string]model.PropertyValue{}
	}
	return e.setProperty(p.Properties, pt.Properties, op.PropertyName, op.PropertyValue)
}

// UpdatePolicyTargets replaces the targets of a policy. If the policy
// type restricts its targets, every node must be of one of them.
func UpdatePolicyTargets(e *Edition, op *operations.UpdatePolicyTargets) error {
	p, err := e.Topology.GetPolicy(op.PolicyName)
	if err != nil {
		return err
	}
	pt, err := typectx.Require[*model.PolicyType](e.Context, p.Type)
	if err != nil {
		return err
	}
	for _, t := range op.Targets {
		n, err := e.Topology.GetNode(t)
		if err != nil {
			return err
		}
		if len(pt.Targets) == 0 {
			continue
		}
		nt, err := e.nodeType(n)
		if err != nil {
			return err
		}
		if !slices.ContainsFunc(pt.Targets, nt.IsA) {
			return errkind.ErrInvalidArgument("node %q of type %s is no valid target of policy type %s", n.Name, n.Type, pt.ElementId)
		}
	}
	p.Targets = sets.New(op.Targets...)
	return nil
}
