package operations

import (
	"fmt"

	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
)

const (
	TypeAddInput                      = "add-input"
	TypeDeleteInput                   = "delete-input"
	TypeRenameInput                   = "rename-input"
	TypeUpdateInputDefinition         = "update-input-definition"
	TypeUpdateInputPreconfiguredValue = "update-input-preconfigured-value"
	TypeSetSubstitutionType           = "set-substitution-type"
	TypeRemoveSubstitutionType        = "remove-substitution-type"
	TypeAddCapabilitySubstitution     = "add-capability-substitution"
	TypeRemoveCapabilitySubstitution  = "remove-capability-substitution"
	TypeAddRequirementSubstitution    = "add-requirement-substitution"
	TypeRemoveRequirementSubstitution = "remove-requirement-substitution"
)

func init() {
	MustRegister[AddInput](DefaultScheme, TypeAddInput)
	MustRegister[DeleteInput](DefaultScheme, TypeDeleteInput)
	MustRegister[RenameInput](DefaultScheme, TypeRenameInput)
	MustRegister[UpdateInputDefinition](DefaultScheme, TypeUpdateInputDefinition)
	MustRegister[UpdateInputPreconfiguredValue](DefaultScheme, TypeUpdateInputPreconfiguredValue)

	MustRegister[SetSubstitutionType](DefaultScheme, TypeSetSubstitutionType)
	MustRegister[RemoveSubstitutionType](DefaultScheme, TypeRemoveSubstitutionType)
	MustRegister[AddCapabilitySubstitution](DefaultScheme, TypeAddCapabilitySubstitution)
	MustRegister[RemoveCapabilitySubstitution](DefaultScheme, TypeRemoveCapabilitySubstitution)
	MustRegister[AddRequirementSubstitution](DefaultScheme, TypeAddRequirementSubstitution)
	MustRegister[RemoveRequirementSubstitution](DefaultScheme, TypeRemoveRequirementSubstitution)
}

type InputRef struct {
	InputName string `json:"inputName"`
}

type AddInput struct {
	OperationBase      `json:",inline"`
	InputRef           `json:",inline"`
	PropertyDefinition *model.PropertyDefinition `json:"propertyDefinition"`
}

func (o *AddInput) CommitMessage() string {
	return fmt.Sprintf("add input %s", o.InputName)
}

// DeleteInput removes an input and resets all properties bound to it.
type DeleteInput struct {
	OperationBase `json:",inline"`
	InputRef      `json:",inline"`
}

type RenameInput struct {
	OperationBase `json:",inline"`
	InputRef      `json:",inline"`
	NewInputName  string `json:"newInputName"`
}

type UpdateInputDefinition struct {
	OperationBase      `json:",inline"`
	InputRef           `json:",inline"`
	PropertyDefinition *model.PropertyDefinition `json:"propertyDefinition"`
}

// UpdateInputPreconfiguredValue stores a value for an input in the
// preconfigured inputs file of the archive. A nil value removes it.
type UpdateInputPreconfiguredValue struct {
	OperationBase `json:",inline"`
	InputRef      `json:",inline"`
	Value         interface{} `json:"value"`
}

////////////////////////////////////////////////////////////////////////////////

type SetSubstitutionType struct {
	OperationBase    `json:",inline"`
	SubstitutionType string `json:"substitutionType"`
	ArchiveVersion   string `json:"archiveVersion,omitempty"`
}

func (o *SetSubstitutionType) CommitMessage() string {
	return fmt.Sprintf("substitute type %s", o.SubstitutionType)
}

type RemoveSubstitutionType struct {
	OperationBase `json:",inline"`
}

type AddCapabilitySubstitution struct {
	OperationBase            `json:",inline"`
	SubstitutionCapabilityId string `json:"substitutionCapabilityId"`
	NodeTemplateName         string `json:"nodeTemplateName"`
	CapabilityId             string `json:"capabilityId"`
}

type RemoveCapabilitySubstitution struct {
	OperationBase            `json:",inline"`
	SubstitutionCapabilityId string `json:"substitutionCapabilityId"`
}

type AddRequirementSubstitution struct {
	OperationBase             `json:",inline"`
	SubstitutionRequirementId string `json:"substitutionRequirementId"`
	NodeTemplateName          string `json:"nodeTemplateName"`
	RequirementId             string `json:"requirementId"`
}

type RemoveRequirementSubstitution struct {
	OperationBase             `json:",inline"`
	SubstitutionRequirementId string `json:"substitutionRequirementId"`
}
