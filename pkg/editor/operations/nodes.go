package operations

import (
	"fmt"
)

const (
	TypeAddNode                  = "add-node"
	TypeDeleteNode               = "delete-node"
	TypeRenameNode               = "rename-node"
	TypeReplaceNode              = "replace-node"
	TypeMoveNode                 = "move-node"
	TypeUpdateNodeProperty       = "update-node-property"
	TypeUpdateCapabilityProperty = "update-capability-property"
	TypeUpdateDeploymentArtifact = "update-deployment-artifact"
)

func init() {
	MustRegister[AddNode](DefaultScheme, TypeAddNode)
	MustRegister[DeleteNode](DefaultScheme, TypeDeleteNode)
	MustRegister[RenameNode](DefaultScheme, TypeRenameNode)
	MustRegister[ReplaceNode](DefaultScheme, TypeReplaceNode)
	MustRegister[MoveNode](DefaultScheme, TypeMoveNode)
	MustRegister[UpdateNodeProperty](DefaultScheme, TypeUpdateNodeProperty)
	MustRegister[UpdateCapabilityProperty](DefaultScheme, TypeUpdateCapabilityProperty)
	MustRegister[UpdateDeploymentArtifact](DefaultScheme, TypeUpdateDeploymentArtifact)
}

type AddNode struct {
	OperationBase  `json:",inline"`
	NodeName       string `json:"nodeName"`
	NodeType       string `json:"nodeType"`
	ArchiveVersion string `json:"archiveVersion,omitempty"`
}

func (o *AddNode) CommitMessage() string {
	return fmt.Sprintf("add node %s of type %s", o.NodeName, o.NodeType)
}

type DeleteNode struct {
	OperationBase `json:",inline"`
	NodeRef       `json:",inline"`
}

func (o *DeleteNode) CommitMessage() string {
	return fmt.Sprintf("delete node %s", o.NodeName)
}

type RenameNode struct {
	OperationBase `json:",inline"`
	NodeRef       `json:",inline"`
	NewName       string `json:"newName"`
}

func (o *RenameNode) CommitMessage() string {
	return fmt.Sprintf("rename node %s to %s", o.NodeName, o.NewName)
}

// ReplaceNode changes the type of a node keeping its name.
type ReplaceNode struct {
	OperationBase  `json:",inline"`
	NodeRef        `json:",inline"`
	NewNodeType    string `json:"newNodeType"`
	ArchiveVersion string `json:"archiveVersion,omitempty"`
}

func (o *ReplaceNode) CommitMessage() string {
	return fmt.Sprintf("replace node %s by type %s", o.NodeName, o.NewNodeType)
}

// MoveNode stores the editor coordinates of a node.
type MoveNode struct {
	OperationBase `json:",inline"`
	NodeRef       `json:",inline"`
	X             int `json:"x"`
	Y             int `json:"y"`
}

type UpdateNodeProperty struct {
	OperationBase `json:",inline"`
	PropertyRef   `json:",inline"`
	PropertyValue interface{} `json:"propertyValue"`
}

func (o *UpdateNodeProperty) CommitMessage() string {
	return fmt.Sprintf("update property %s of node %s", o.PropertyName, o.NodeName)
}

type UpdateCapabilityProperty struct {
	OperationBase         `json:",inline"`
	CapabilityPropertyRef `json:",inline"`
	PropertyValue         interface{} `json:"propertyValue"`
}

func (o *UpdateCapabilityProperty) CommitMessage() string {
	return fmt.Sprintf("update property %s of capability %s of node %s", o.PropertyName, o.CapabilityName, o.NodeName)
}

// UpdateDeploymentArtifact sets the reference of a node artifact.
// Without repository the reference is a file of the archive.
type UpdateDeploymentArtifact struct {
	OperationBase      `json:",inline"`
	NodeRef            `json:",inline"`
	ArtifactName       string `json:"artifactName"`
	ArtifactReference  string `json:"artifactReference"`
	ArtifactRepository string `json:"artifactRepository,omitempty"`
	RepositoryUrl      string `json:"repositoryUrl,omitempty"`
	RepositoryName     string `json:"repositoryName,omitempty"`
	ArchiveName        string `json:"archiveName,omitempty"`
	ArchiveVersion     string `json:"archiveVersion,omitempty"`
}

func (o *UpdateDeploymentArtifact) CommitMessage() string {
	return fmt.Sprintf("update artifact %s of node %s", o.ArtifactName, o.NodeName)
}
