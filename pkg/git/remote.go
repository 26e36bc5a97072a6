package git

import (
	"context"
	"fmt"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/mandelsoft/goutils/errors"
	"k8s.io/apimachinery/pkg/util/sets"
)

func fetch(ctx context.Context, repo *gogit.Repository, path string, creds *Credentials) error {
	err := repo.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: DefaultRemote,
		RefSpecs:   []config.RefSpec{config.RefSpec("+refs/heads/*:refs/remotes/" + DefaultRemote + "/*")},
		Auth:       creds.auth(),
		Tags:       gogit.AllTags,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return wrap("fetch", path, err)
	}
	return nil
}

func isNonFastForward(err error) bool {
	return errors.Is(err, gogit.ErrForceNeeded) || errors.Is(err, gogit.ErrNonFastForwardUpdate) ||
		strings.Contains(err.Error(), "non-fast-forward")
}

// Push pushes the current branch to the remote branch, which
// defaults to the branch of the same name. If the remote has
// diverged, the local head is pushed to a new conflict branch, the
// local branch is reset to the remote head and a ConflictError
// naming the conflict branch is returned.
func (m *Manager) Push(ctx context.Context, path string, creds *Credentials, remoteBranch string) error {
	repo, err := m.open(path)
	if err != nil {
		return err
	}
	if err := requireSafe(path); err != nil {
		return err
	}
	branch, err := currentBranch(repo, path)
	if err != nil {
		return err
	}
	if branch == "" {
		return &StateError{Path: path, State: StateDetached}
	}
	if remoteBranch == "" {
		remoteBranch = branch
	}
	local := plumbing.NewBranchReferenceName(branch)
	err = push(ctx, repo, creds, local, remoteBranch)
	switch {
	case err == nil:
		log.Info("pushed {{branch}} of {{path}} to {{remote}}", "branch", branch, "path", path, "remote", remoteBranch)
		return nil
	case isNonFastForward(err):
		return m.conflict(ctx, repo, path, creds, branch, remoteBranch)
	default:
		return wrap("push", path, err)
	}
}

func push(ctx context.Context, repo *gogit.Repository, creds *Credentials, local plumbing.ReferenceName, remoteBranch string) error {
	err := repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: DefaultRemote,
		RefSpecs:   []config.RefSpec{config.RefSpec(local.String() + ":" + plumbing.NewBranchReferenceName(remoteBranch).String())},
		Auth:       creds.auth(),
	})
	if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

func (m *Manager) conflict(ctx context.Context, repo *gogit.Repository, path string, creds *Credentials, branch, remoteBranch string) error {
	if err := fetch(ctx, repo, path, creds); err != nil {
		return err
	}
	name, err := conflictBranchName(ctx, repo, path, creds)
	if err != nil {
		return err
	}
	if err := push(ctx, repo, creds, plumbing.NewBranchReferenceName(branch), name); err != nil {
		return wrap("push", path, err)
	}
	remote, err := repo.Reference(plumbing.NewRemoteReferenceName(DefaultRemote, remoteBranch), true)
	if err != nil {
		return wrap("push", path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return wrap("push", path, err)
	}
	if err := wt.Reset(&gogit.ResetOptions{Mode: gogit.HardReset, Commit: remote.Hash()}); err != nil {
		return wrap("reset", path, err)
	}
	log.Info("push of {{branch}} rejected by {{remote}}, local changes saved in {{conflict}}", "branch", branch, "remote", remoteBranch, "conflict", name)
	return &ConflictError{Remote: remoteBranch, LocalBranch: branch, ConflictBranch: name}
}

// conflictBranchName finds an unused name for a conflict branch
// on the remote.
func conflictBranchName(ctx context.Context, repo *gogit.Repository, path string, creds *Credentials) (string, error) {
	remote, err := repo.Remote(DefaultRemote)
	if err != nil {
		return "", wrap("remote", path, err)
	}
	refs, err := remote.ListContext(ctx, &gogit.ListOptions{Auth: creds.auth()})
	if err != nil {
		return "", wrap("ls-remote", path, err)
	}
	used := sets.New[string]()
	for _, r := range refs {
		if r.Name().IsBranch() {
			used.Insert(r.Name().Short())
		}
	}
	millis := time.Now().UnixMilli()
	for n := 0; ; n++ {
		name := fmt.Sprintf("%s-%d-%d", ConflictBranchPrefix, millis, n)
		if !used.Has(name) {
			return name, nil
		}
	}
}

// Pull merges the remote branch, which defaults to the branch of the
// same name, into the current branch. Merge conflicts are reported
// as ConflictError and leave the working copy in merging state.
func (m *Manager) Pull(ctx context.Context, path string, creds *Credentials, remoteBranch string) error {
	repo, err := m.open(path)
	if err != nil {
		return err
	}
	if err := requireSafe(path); err != nil {
		return err
	}
	branch, err := currentBranch(repo, path)
	if err != nil {
		return err
	}
	if remoteBranch == "" {
		remoteBranch = branch
	}
	if err := fetch(ctx, repo, path, creds); err != nil {
		return err
	}
	remote := plumbing.NewRemoteReferenceName(DefaultRemote, remoteBranch)
	if !hasReference(repo, remote) {
		log.Info("nothing to pull for {{path}}: no remote branch {{remote}}", "path", path, "remote", remoteBranch)
		return nil
	}
	if _, err := m.git(ctx, path, "merge", "--no-edit", remote.String()); err != nil {
		if st, serr := RepositoryState(path); serr == nil && st == StateMerging {
			log.Info("pull of {{remote}} into {{path}} has conflicts", "remote", remoteBranch, "path", path)
			return &ConflictError{Remote: remoteBranch, LocalBranch: branch}
		}
		return wrap("merge", path, err)
	}
	log.Info("pulled {{remote}} into {{path}}", "remote", remoteBranch, "path", path)
	return nil
}

// AbortMerge abandons an unfinished merge.
func (m *Manager) AbortMerge(ctx context.Context, path string) error {
	_, err := m.git(ctx, path, "merge", "--abort")
	return wrap("merge", path, err)
}
