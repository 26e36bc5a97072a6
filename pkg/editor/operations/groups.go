package operations

import (
	"fmt"
)

const (
	TypeAddGroup          = "add-group"
	TypeDeleteGroup       = "delete-group"
	TypeRenameGroup       = "rename-group"
	TypeAddGroupMember    = "add-group-member"
	TypeRemoveGroupMember = "remove-group-member"

	TypeAddPolicy            = "add-policy"
	TypeDeletePolicy         = "delete-policy"
	TypeRenamePolicy         = "rename-policy"
	TypeUpdatePolicyProperty = "update-policy-property"
	TypeUpdatePolicyTargets  = "update-policy-targets"
)

func init() {
	MustRegister[AddGroup](DefaultScheme, TypeAddGroup)
	MustRegister[DeleteGroup](DefaultScheme, TypeDeleteGroup)
	MustRegister[RenameGroup](DefaultScheme, TypeRenameGroup)
	MustRegister[AddGroupMember](DefaultScheme, TypeAddGroupMember)
	MustRegister[RemoveGroupMember](DefaultScheme, TypeRemoveGroupMember)

	MustRegister[AddPolicy](DefaultScheme, TypeAddPolicy)
	MustRegister[DeletePolicy](DefaultScheme, TypeDeletePolicy)
	MustRegister[RenamePolicy](DefaultScheme, TypeRenamePolicy)
	MustRegister[UpdatePolicyProperty](DefaultScheme, TypeUpdatePolicyProperty)
	MustRegister[UpdatePolicyTargets](DefaultScheme, TypeUpdatePolicyTargets)
}

type GroupRef struct {
	GroupName string `json:"groupName"`
}

type AddGroup struct {
	OperationBase `json:",inline"`
	GroupRef      `json:",inline"`
}

type DeleteGroup struct {
	OperationBase `json:",inline"`
	GroupRef      `json:",inline"`
}

type RenameGroup struct {
	OperationBase `json:",inline"`
	GroupRef      `json:",inline"`
	NewGroupName  string `json:"newGroupName"`
}

// AddGroupMember adds a node to a group. The group is created
// if it does not exist.
type AddGroupMember struct {
	OperationBase `json:",inline"`
	GroupRef      `json:",inline"`
	NodeRef       `json:",inline"`
}

type RemoveGroupMember struct {
	OperationBase `json:",inline"`
	GroupRef      `json:",inline"`
	NodeRef       `json:",inline"`
}

////////////////////////////////////////////////////////////////////////////////

type PolicyRef struct {
	PolicyName string `json:"policyName"`
}

type AddPolicy struct {
	OperationBase  `json:",inline"`
	PolicyRef      `json:",inline"`
	PolicyType     string `json:"policyType"`
	ArchiveVersion string `json:"archiveVersion,omitempty"`
}

func (o *AddPolicy) CommitMessage() string {
	return fmt.Sprintf("add policy %s of type %s", o.PolicyName, o.PolicyType)
}

type DeletePolicy struct {
	OperationBase `json:",inline"`
	PolicyRef     `json:",inline"`
}

type RenamePolicy struct {
	OperationBase `json:",inline"`
	PolicyRef     `json:",inline"`
	NewPolicyName string `json:"newPolicyName"`
}

type UpdatePolicyProperty struct {
	OperationBase `json:",inline"`
	PolicyRef     `json:",inline"`
	PropertyName  string      `json:"propertyName"`
	PropertyValue interface{} `json:"propertyValue"`
}

// UpdatePolicyTargets replaces the target nodes of a policy.
type UpdatePolicyTargets struct {
	OperationBase `json:",inline"`
	PolicyRef     `json:",inline"`
	Targets       []string `json:"targets"`
}
