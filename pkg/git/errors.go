package git

import (
	"fmt"

	"github.com/mandelsoft/goutils/errors"
)

// GitError is a failed git command.
type GitError struct {
	Op   string
	Path string
	Err  error
}

func (e *GitError) Error() string {
	return fmt.Sprintf("git %s failed for %s: %s", e.Op, e.Path, e.Err)
}

func (e *GitError) Unwrap() error {
	return e.Err
}

func wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var ge *GitError
	if errors.As(err, &ge) {
		return err
	}
	return &GitError{Op: op, Path: path, Err: err}
}

// StateError indicates a working copy that is not in a safe state,
// for example during a rebase.
type StateError struct {
	Path  string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("repository %s is in state %s", e.Path, e.State)
}

// MergingStateError indicates an unfinished merge.
type MergingStateError struct {
	Path string
}

func (e *MergingStateError) Error() string {
	return fmt.Sprintf("repository %s has an unfinished merge", e.Path)
}

// ConflictError is a pull or push that could not be applied. For a
// rejected push the local changes are kept in ConflictBranch on the
// remote.
type ConflictError struct {
	Remote         string
	LocalBranch    string
	ConflictBranch string
}

func (e *ConflictError) Error() string {
	if e.ConflictBranch != "" {
		return fmt.Sprintf("conflict between %s and remote %s: local changes pushed to %s", e.LocalBranch, e.Remote, e.ConflictBranch)
	}
	return fmt.Sprintf("conflict between %s and remote %s", e.LocalBranch, e.Remote)
}

func IsStateError(err error) bool {
	var e *StateError
	return errors.As(err, &e)
}

func IsMergingStateError(err error) bool {
	var e *MergingStateError
	return errors.As(err, &e)
}

// ConflictOf returns the conflict in the error chain, or nil.
func ConflictOf(err error) *ConflictError {
	var e *ConflictError
	if errors.As(err, &e) {
		return e
	}
	return nil
}

func IsConflictError(err error) bool {
	return ConflictOf(err) != nil
}
