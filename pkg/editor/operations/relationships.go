package operations

import (
	"fmt"
)

const (
	TypeAddRelationship            = "add-relationship"
	TypeDeleteRelationship         = "delete-relationship"
	TypeRenameRelationship         = "rename-relationship"
	TypeUpdateRelationshipProperty = "update-relationship-property"
)

func init() {
	MustRegister[AddRelationship](DefaultScheme, TypeAddRelationship)
	MustRegister[DeleteRelationship](DefaultScheme, TypeDeleteRelationship)
	MustRegister[RenameRelationship](DefaultScheme, TypeRenameRelationship)
	MustRegister[UpdateRelationshipProperty](DefaultScheme, TypeUpdateRelationshipProperty)
}

type RelationshipRef struct {
	NodeRef          `json:",inline"`
	RelationshipName string `json:"relationshipName"`
}

// AddRelationship connects a requirement of a node to a capability
// of a target node. Without name a name is derived from type and
// target. Without capability name the first capability of the target
// matching the requirement is used.
type AddRelationship struct {
	OperationBase          `json:",inline"`
	RelationshipRef        `json:",inline"`
	RelationshipType       string `json:"relationshipType"`
	RelationshipVersion    string `json:"relationshipVersion,omitempty"`
	RequirementName        string `json:"requirementName"`
	RequirementType        string `json:"requirementType,omitempty"`
	Target                 string `json:"target"`
	TargetedCapabilityName string `json:"targetedCapabilityName,omitempty"`
}

func (o *AddRelationship) CommitMessage() string {
	return fmt.Sprintf("add relationship %s from %s to %s", o.RelationshipType, o.NodeName, o.Target)
}

type DeleteRelationship struct {
	OperationBase   `json:",inline"`
	RelationshipRef `json:",inline"`
}

func (o *DeleteRelationship) CommitMessage() string {
	return fmt.Sprintf("delete relationship %s of node %s", o.RelationshipName, o.NodeName)
}

type RenameRelationship struct {
	OperationBase       `json:",inline"`
	RelationshipRef     `json:",inline"`
	NewRelationshipName string `json:"newRelationshipName"`
}

type UpdateRelationshipProperty struct {
	OperationBase   `json:",inline"`
	RelationshipRef `json:",inline"`
	PropertyName    string      `json:"propertyName"`
	PropertyValue   interface{} `json:"propertyValue"`
}
