package operations

import (
	"fmt"
)

const (
	TypeUpdateFile = "update-file"
	TypeDeleteFile = "delete-file"
	TypeMoveFile   = "move-file"

	TypeResetTopology   = "reset-topology"
	TypeRecoverTopology = "recover-topology"
	TypeGitCommit       = "git-commit"
	TypeGitPush         = "git-push"
	TypeGitPull         = "git-pull"
)

func init() {
	MustRegister[UpdateFile](DefaultScheme, TypeUpdateFile)
	MustRegister[DeleteFile](DefaultScheme, TypeDeleteFile)
	MustRegister[MoveFile](DefaultScheme, TypeMoveFile)

	MustRegister[ResetTopology](DefaultScheme, TypeResetTopology)
	MustRegister[RecoverTopology](DefaultScheme, TypeRecoverTopology)
	MustRegister[GitCommit](DefaultScheme, TypeGitCommit)
	MustRegister[GitPush](DefaultScheme, TypeGitPush)
	MustRegister[GitPull](DefaultScheme, TypeGitPull)
}

type FileRef struct {
	Path string `json:"path"`
}

// UpdateFile writes an archive file.
type UpdateFile struct {
	OperationBase `json:",inline"`
	FileRef       `json:",inline"`
	Content       string `json:"content"`
}

func (o *UpdateFile) CommitMessage() string {
	return fmt.Sprintf("update file %s", o.Path)
}

type DeleteFile struct {
	OperationBase `json:",inline"`
	FileRef       `json:",inline"`
}

func (o *DeleteFile) CommitMessage() string {
	return fmt.Sprintf("delete file %s", o.Path)
}

type MoveFile struct {
	OperationBase `json:",inline"`
	FileRef       `json:",inline"`
	NewPath       string `json:"newPath"`
}

func (o *MoveFile) CommitMessage() string {
	return fmt.Sprintf("move file %s to %s", o.Path, o.NewPath)
}

// ResetTopology replaces the topology by an empty one with
// the same identity.
type ResetTopology struct {
	OperationBase `json:",inline"`
}

func (o *ResetTopology) CommitMessage() string {
	return "reset topology"
}

////////////////////////////////////////////////////////////////////////////////
// session level

// RecoverTopology rebuilds the session from the working copy.
type RecoverTopology struct {
	sessionBase `json:",inline"`
}

// GitCommit saves the pending operations.
type GitCommit struct {
	sessionBase `json:",inline"`
	Message     string `json:"message,omitempty"`
}

type RemoteRef struct {
	RemoteBranch string `json:"remoteBranch,omitempty"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
}

type GitPush struct {
	sessionBase `json:",inline"`
	RemoteRef   `json:",inline"`
}

type GitPull struct {
	sessionBase `json:",inline"`
	RemoteRef   `json:",inline"`
}
