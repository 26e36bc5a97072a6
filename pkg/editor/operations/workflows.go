package operations

import (
	"fmt"

	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
)

const (
	TypeCreateWorkflow  = "create-workflow"
	TypeRemoveWorkflow  = "remove-workflow"
	TypeRenameWorkflow  = "rename-workflow"
	TypeInitWorkflows   = "init-workflows"
	TypeResetWorkflow   = "reset-workflow"
	TypeAddActivity     = "add-activity"
	TypeRemoveStep      = "remove-step"
	TypeRenameStep      = "rename-step"
	TypeUpdateActivity  = "update-activity"
	TypeConnectStepFrom = "connect-step-from"
	TypeConnectStepTo   = "connect-step-to"
	TypeRemoveEdge      = "remove-edge"
	TypeSwapSteps       = "swap-steps"
)

func init() {
	MustRegister[CreateWorkflow](DefaultScheme, TypeCreateWorkflow)
	MustRegister[RemoveWorkflow](DefaultScheme, TypeRemoveWorkflow)
	MustRegister[RenameWorkflow](DefaultScheme, TypeRenameWorkflow)
	MustRegister[InitWorkflows](DefaultScheme, TypeInitWorkflows)
	MustRegister[ResetWorkflow](DefaultScheme, TypeResetWorkflow)
	MustRegister[AddActivity](DefaultScheme, TypeAddActivity)
	MustRegister[RemoveStep](DefaultScheme, TypeRemoveStep)
	MustRegister[RenameStep](DefaultScheme, TypeRenameStep)
	MustRegister[UpdateActivity](DefaultScheme, TypeUpdateActivity)
	MustRegister[ConnectStepFrom](DefaultScheme, TypeConnectStepFrom)
	MustRegister[ConnectStepTo](DefaultScheme, TypeConnectStepTo)
	MustRegister[RemoveEdge](DefaultScheme, TypeRemoveEdge)
	MustRegister[SwapSteps](DefaultScheme, TypeSwapSteps)
}

type WorkflowRef struct {
	WorkflowName string `json:"workflowName"`
}

type StepRef struct {
	WorkflowRef `json:",inline"`
	StepId      string `json:"stepId"`
}

type CreateWorkflow struct {
	OperationBase `json:",inline"`
	WorkflowRef   `json:",inline"`
}

func (o *CreateWorkflow) CommitMessage() string {
	return fmt.Sprintf("create workflow %s", o.WorkflowName)
}

type RemoveWorkflow struct {
	OperationBase `json:",inline"`
	WorkflowRef   `json:",inline"`
}

type RenameWorkflow struct {
	OperationBase   `json:",inline"`
	WorkflowRef     `json:",inline"`
	NewWorkflowName string `json:"newWorkflowName"`
}

type InitWorkflows struct {
	OperationBase `json:",inline"`
}

func (o *InitWorkflows) CommitMessage() string {
	return "reinitialize standard workflows"
}

type ResetWorkflow struct {
	OperationBase `json:",inline"`
	WorkflowRef   `json:",inline"`
}

// AddActivity adds a step. With a related step the new step is
// inserted after it, or before it if Before is set.
type AddActivity struct {
	OperationBase      `json:",inline"`
	WorkflowRef        `json:",inline"`
	RelatedStepId      string         `json:"relatedStepId,omitempty"`
	Before             bool           `json:"before,omitempty"`
	Target             string         `json:"target,omitempty"`
	TargetRelationship string         `json:"targetRelationship,omitempty"`
	OperationHost      string         `json:"operationHost,omitempty"`
	Activity           model.Activity `json:"activity"`
}

type RemoveStep struct {
	OperationBase `json:",inline"`
	StepRef       `json:",inline"`
}

type RenameStep struct {
	OperationBase `json:",inline"`
	StepRef       `json:",inline"`
	NewStepId     string `json:"newStepId"`
}

type UpdateActivity struct {
	OperationBase `json:",inline"`
	StepRef       `json:",inline"`
	Activity      model.Activity `json:"activity"`
}

type ConnectStepFrom struct {
	OperationBase `json:",inline"`
	StepRef       `json:",inline"`
	FromStepIds   []string `json:"fromStepIds"`
}

type ConnectStepTo struct {
	OperationBase `json:",inline"`
	StepRef       `json:",inline"`
	ToStepIds     []string `json:"toStepIds"`
}

type RemoveEdge struct {
	OperationBase `json:",inline"`
	WorkflowRef   `json:",inline"`
	FromStepId    string `json:"fromStepId"`
	ToStepId      string `json:"toStepId"`
}

type SwapSteps struct {
	OperationBase `json:",inline"`
	StepRef       `json:",inline"`
	TargetId      string `json:"targetId"`
}
