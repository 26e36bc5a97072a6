package processors

import (
	"github.com/mandelsoft/toscaeditor/pkg/editor/operations"
	"github.com/mandelsoft/toscaeditor/pkg/workflow"
)

func init() {
	Register(DefaultRegistry, CreateWorkflow)
	Register(DefaultRegistry, RemoveWorkflow)
	Register(DefaultRegistry, RenameWorkflow)
	Register(DefaultRegistry, InitWorkflows)
	Register(DefaultRegistry, ResetWorkflow)
	Register(DefaultRegistry, AddActivity)
	Register(DefaultRegistry, RemoveStep)
	Register(DefaultRegistry, RenameStep)
	Register(DefaultRegistry, UpdateActivity)
	Register(DefaultRegistry, ConnectStepFrom)
	Register(DefaultRegistry, ConnectStepTo)
	Register(DefaultRegistry, RemoveEdge)
	Register(DefaultRegistry, SwapSteps)
}

func CreateWorkflow(e *Edition, op *operations.CreateWorkflow) error {
	_, err := e.Workflows.CreateWorkflow(e.Topology, op.WorkflowName)
	return err
}

func RemoveWorkflow(e *Edition, op *operations.RemoveWorkflow) error {
	return e.Workflows.RemoveWorkflow(e.Topology, op.WorkflowName)
}

func RenameWorkflow(e *Edition, op *operations.RenameWorkflow) error {
	return e.Workflows.RenameWorkflow(e.Topology, op.WorkflowName, op.NewWorkflowName)
}

func InitWorkflows(e *Edition, op *operations.InitWorkflows) error {
	return e.Workflows.InitWorkflows(e.Context, e.Topology)
}

func ResetWorkflow(e *Edition, op *operations.ResetWorkflow) error {
	return e.Workflows.ReinitWorkflow(e.Context, e.Topology, op.WorkflowName)
}

func AddActivity(e *Edition, op *operations.AddActivity) error {
	step, err := e.Workflows.AddActivity(e.Context, e.Topology, op.WorkflowName, op.RelatedStepId, op.Before, workflow.StepSpec{
		Target:             op.Target,
		TargetRelationship: op.TargetRelationship,
		OperationHost:      op.OperationHost,
		Activity:           op.Activity,
	})
	if err != nil {
		return err
	}
	log.Debug("added step {{step}} to workflow {{workflow}}", "step", step, "workflow", op.WorkflowName)
	return nil
}

func RemoveStep(e *Edition, op *operations.RemoveStep) error {
	return e.Workflows.RemoveStep(e.Topology, op.WorkflowName, op.StepId)
}

func RenameStep(e *Edition, op *operations.RenameStep) error {
	return e.Workflows.RenameStep(e.Topology, op.WorkflowName, op.StepId, op.NewStepId)
}

func UpdateActivity(e *Edition, op *operations.UpdateActivity) error {
	return e.Workflows.UpdateActivity(e.Context, e.Topology, op.WorkflowName, op.StepId, op.Activity)
}

func ConnectStepFrom(e *Edition, op *operations.ConnectStepFrom) error {
	return e.Workflows.ConnectStepFrom(e.Topology, op.WorkflowName, op.StepId, op.FromStepIds)
}

func ConnectStepTo(e *Edition, op *operations.ConnectStepTo) error {
	return e.Workflows.ConnectStepTo(e.Topology, op.WorkflowName, op.StepId, op.ToStepIds)
}

func RemoveEdge(e *Edition, op *operations.RemoveEdge) error {
	return e.Workflows.RemoveEdge(e.Topology, op.WorkflowName, op.FromStepId, op.ToStepId)
}

func SwapSteps(e *Edition, op *operations.SwapSteps) error {
	return e.Workflows.SwapSteps(e.Topology, op.WorkflowName, op.StepId, op.TargetId)
}
