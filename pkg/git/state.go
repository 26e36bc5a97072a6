package git

import (
	"path/filepath"

	"github.com/mandelsoft/vfs/pkg/osfs"
)

// State is the state of a working copy.
type State string

const (
	StateSafe          State = "SAFE"
	StateMerging       State = "MERGING"
	StateRebasing      State = "REBASING"
	StateCherryPicking State = "CHERRY_PICKING"
	StateReverting     State = "REVERTING"
	StateBisecting     State = "BISECTING"
	StateDetached      State = "DETACHED"
)

var markers = []struct {
	file  string
	state State
}{
	{"MERGE_HEAD", StateMerging},
	{"rebase-merge", StateRebasing},
	{"rebase-apply", StateRebasing},
	{"CHERRY_PICK_HEAD", StateCherryPicking},
	{"REVERT_HEAD", StateReverting},
	{"BISECT_LOG", StateBisecting},
}

// RepositoryState derives the state from the marker files of
// the git directory.
func RepositoryState(path string) (State, error) {
	if _, err := osfs.OsFs.Stat(filepath.Join(path, ".git")); err != nil {
		return "", wrap("state", path, err)
	}
	for _, m := range markers {
		if _, err := osfs.OsFs.Stat(filepath.Join(path, ".git", m.file)); err == nil {
			return m.state, nil
		}
	}
	return StateSafe, nil
}

func requireSafe(path string) error {
	st, err := RepositoryState(path)
	if err != nil {
		return err
	}
	switch st {
	case StateSafe:
		return nil
	case StateMerging:
		return &MergingStateError{Path: path}
	default:
		return &StateError{Path: path, State: st}
	}
}
