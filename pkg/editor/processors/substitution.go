package processors

import (
	"github.com/mandelsoft/toscaeditor/pkg/editor/operations"
	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/topology"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
)

func init() {
	Register(DefaultRegistry, SetSubstitutionType)
	Register(DefaultRegistry, RemoveSubstitutionType)
	Register(DefaultRegistry, AddCapabilitySubstitution)
	Register(DefaultRegistry, RemoveCapabilitySubstitution)
	Register(DefaultRegistry, AddRequirementSubstitution)
	Register(DefaultRegistry, RemoveRequirementSubstitution)
}

// SetSubstitutionType exposes the topology as node type. A type of
// the archive itself cannot be substituted.
func SetSubstitutionType(e *Edition, op *operations.SetSubstitutionType) error {
	t, err := topology.LoadType(e.Context, e.Repository, e.Topology, model.NodeKind, op.SubstitutionType, op.ArchiveVersion)
	if err != nil {
		return err
	}
	if t.Base().ArchiveName == e.Topology.ArchiveName {
		return errkind.ErrCyclicReference("topology %s cannot substitute its own type %s", e.Topology.Id(), op.SubstitutionType)
	}
	s := e.Topology.Substitution
	if s == nil {
		e.Topology.Substitution = &model.SubstitutionMapping{
			SubstitutionType: t.Base().ElementId,
			Capabilities:     map[string]*model.SubstitutionTarget{},
			Requirements:     map[string]*model.SubstitutionTarget{},
		}
		return nil
	}
	old := s.SubstitutionType
	s.SubstitutionType = t.Base().ElementId
	if old != s.SubstitutionType {
		topology.UnloadType(e.Context, e.Topology, model.NodeKind, old)
	}
	return nil
}

func RemoveSubstitutionType(e *Edition, op *operations.RemoveSubstitutionType) error {
	s := e.Topology.Substitution
	if s == nil {
		return errkind.ErrNotFound("substitution", e.Topology.Id())
	}
	e.Topology.Substitution = nil
	topology.UnloadType(e.Context, e.Topology, model.NodeKind, s.SubstitutionType)
	return nil
}

func (e *Edition) substitution() (*model.SubstitutionMapping, error) {
	s := e.Topology.Substitution
	if s == nil {
		return nil, errkind.ErrNotFound("substitution", e.Topology.Id())
	}
	if s.Capabilities == nil {
		s.Capabilities = map[string]*model.SubstitutionTarget{}
	}
	if s.Requirements == nil {
		s.Requirements = map[string]*model.SubstitutionTarget{}
	}
	return s, nil
}

func AddCapabilitySubstitution(e *Edition, op *operations.AddCapabilitySubstitution) error {
	s, err := e.substitution()
	if err != nil {
		return err
	}
	if s.Capabilities[op.SubstitutionCapabilityId] != nil {
		return errkind.ErrAlreadyExists("capability substitution", op.SubstitutionCapabilityId)
	}
	n, err := e.Topology.GetNode(op.NodeTemplateName)
	if err != nil {
		return err
	}
	if n.Capabilities[op.CapabilityId] == nil {
		return errkind.ErrNotFound("capability", n.Name+"."+op.CapabilityId)
	}
	s.Capabilities[op.SubstitutionCapabilityId] = &model.SubstitutionTarget{NodeTemplateName: n.Name, TargetId: op.CapabilityId}
	return nil
}

func RemoveCapabilitySubstitution(e *Edition, op *operations.RemoveCapabilitySubstitution) error {
	s, err := e.substitution()
	if err != nil {
		return err
	}
	if s.Capabilities[op.SubstitutionCapabilityId] == nil {
		return errkind.ErrNotFound("capability substitution", op.SubstitutionCapabilityId)
	}
	delete(s.Capabilities, op.SubstitutionCapabilityId)
	return nil
}

func AddRequirementSubstitution(e *Edition, op *operations.AddRequirementSubstitution) error {
	s, err := e.substitution()
	if err != nil {
		return err
	}
	if s.Requirements[op.SubstitutionRequirementId] != nil {
		return errkind.ErrAlreadyExists("requirement substitution", op.SubstitutionRequirementId)
	}
	n, err := e.Topology.GetNode(op.NodeTemplateName)
	if err != nil {
		return err
	}
	nt, err := e.nodeType(n)
	if err != nil {
		return err
	}
	if nt.Requirement(op.RequirementId) == nil {
		return errkind.ErrNotFound("requirement", n.Name+"."+op.RequirementId)
	}
	s.Requirements[op.SubstitutionRequirementId] = &model.SubstitutionTarget{NodeTemplateName: n.Name, TargetId: op.RequirementId}
	return nil
}

func RemoveRequirementSubstitution(e *Edition, op *operations.RemoveRequirementSubstitution) error {
	s, err := e.substitution()
	if err != nil {
		return err
	}
	if s.Requirements[op.SubstitutionRequirementId] == nil {
		return errkind.ErrNotFound("requirement substitution", op.SubstitutionRequirementId)
	}
	delete(s.Requirements, op.SubstitutionRequirementId)
	return nil
}
