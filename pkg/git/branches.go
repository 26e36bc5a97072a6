package git

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/mandelsoft/goutils/errors"
	"github.com/mandelsoft/vfs/pkg/osfs"
)

// CloneOrCheckout provides a working copy of a remote under
// root/subdir with the given branch or tag checked out. An existing
// working copy is fetched, a corrupt one is recreated.
func (m *Manager) CloneOrCheckout(ctx context.Context, root, url string, creds *Credentials, branch, subdir string) (string, error) {
	dir := filepath.Join(root, subdir)
	repo, err := gogit.PlainOpen(dir)
	if err == nil {
		if err := fetch(ctx, repo, dir, creds); err != nil {
			return "", err
		}
	} else {
		if !errors.Is(err, gogit.ErrRepositoryNotExists) {
			log.Info("recreating corrupt working copy {{path}}: {{error}}", "path", dir, "error", err.Error())
		}
		if err := osfs.OsFs.RemoveAll(dir); err != nil {
			return "", wrap("clone", dir, err)
		}
		repo, err = gogit.PlainCloneContext(ctx, dir, false, &gogit.CloneOptions{
			URL:        url,
			Auth:       creds.auth(),
			RemoteName: DefaultRemote,
		})
		if err != nil {
			return "", wrap("clone", dir, err)
		}
		log.Info("cloned {{url}} to {{path}}", "url", url, "path", dir)
	}
	if branch == "" {
		return dir, nil
	}
	return dir, checkout(repo, dir, branch)
}

// checkout checks out a local branch, a remote tracking branch
// as new local branch or a tag as detached head.
func checkout(repo *gogit.Repository, path, name string) error {
	wt, err := repo.Worktree()
	if err != nil {
		return wrap("checkout", path, err)
	}
	local := plumbing.NewBranchReferenceName(name)
	if hasReference(repo, local) {
		return wrap("checkout", path, wt.Checkout(&gogit.CheckoutOptions{Branch: local}))
	}
	if ref, err := repo.Reference(plumbing.NewRemoteReferenceName(DefaultRemote, name), true); err == nil {
		if err := track(repo, name, ref.Hash()); err != nil {
			return wrap("checkout", path, err)
		}
		return wrap("checkout", path, wt.Checkout(&gogit.CheckoutOptions{Branch: local}))
	}
	if ref, err := repo.Tag(name); err == nil {
		hash := ref.Hash()
		if tag, err := repo.TagObject(hash); err == nil {
			c, err := tag.Commit()
			if err != nil {
				return wrap("checkout", path, err)
			}
			hash = c.Hash
		}
		return wrap("checkout", path, wt.Checkout(&gogit.CheckoutOptions{Hash: hash}))
	}
	return wrap("checkout", path, fmt.Errorf("no branch or tag %q", name))
}

// track creates a local branch for a remote branch.
func track(repo *gogit.Repository, name string, hash plumbing.Hash) error {
	local := plumbing.NewBranchReferenceName(name)
	if err := repo.Storer.SetReference(plumbing.NewHashReference(local, hash)); err != nil {
		return err
	}
	err := repo.CreateBranch(&config.Branch{Name: name, Remote: DefaultRemote, Merge: local})
	if err != nil && !errors.Is(err, gogit.ErrBranchExists) {
		return err
	}
	return nil
}

// CheckoutExistingBranchOrCreateOrphan checks out a local or remote
// branch. An unknown branch is created as orphan with an initial
// empty commit.
func (m *Manager) CheckoutExistingBranchOrCreateOrphan(path, branch string) error {
	repo, err := m.open(path)
	if err != nil {
		return err
	}
	local := plumbing.NewBranchReferenceName(branch)
	if hasReference(repo, local) || hasReference(repo, plumbing.NewRemoteReferenceName(DefaultRemote, branch)) {
		return checkout(repo, path, branch)
	}
	hash, err := emptyCommit(repo)
	if err != nil {
		return wrap("orphan", path, err)
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(local, hash)); err != nil {
		return wrap("orphan", path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return wrap("orphan", path, err)
	}
	log.Info("created orphan branch {{branch}} in {{path}}", "branch", branch, "path", path)
	return wrap("orphan", path, wt.Checkout(&gogit.CheckoutOptions{Branch: local, Force: true}))
}

// emptyCommit stores a root commit with an empty tree.
func emptyCommit(repo *gogit.Repository) (plumbing.Hash, error) {
	obj := repo.Storer.NewEncodedObject()
	if err := (&object.Tree{}).Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	tree, err := repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	sig := object.Signature{Name: BotUser, Email: BotEmail, When: time.Now()}
	c := &object.Commit{Author: sig, Committer: sig, Message: InitialCommitMessage, TreeHash: tree}
	obj = repo.Storer.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return repo.Storer.SetEncodedObject(obj)
}

// DeleteBranch force deletes a local branch. If it is checked out, a
// temporary branch is checked out before. The remote branch is
// deleted, too, if requested.
func (m *Manager) DeleteBranch(ctx context.Context, path, name string, alsoRemote bool, creds *Credentials) error {
	repo, err := m.open(path)
	if err != nil {
		return err
	}
	current, err := currentBranch(repo, path)
	if err != nil {
		return err
	}
	if current == name {
		ref, err := repo.Head()
		if err != nil {
			return wrap("branch", path, err)
		}
		wt, err := repo.Worktree()
		if err != nil {
			return wrap("branch", path, err)
		}
		tmp := plumbing.NewBranchReferenceName(m.tempName(SwitchBranchPrefix))
		if err := wt.Checkout(&gogit.CheckoutOptions{Branch: tmp, Hash: ref.Hash(), Create: true, Keep: true}); err != nil {
			return wrap("branch", path, err)
		}
		log.Debug("switched to {{branch}} to delete {{name}}", "branch", tmp.Short(), "name", name)
	}
	if err := repo.Storer.RemoveReference(plumbing.NewBranchReferenceName(name)); err != nil {
		return wrap("branch", path, err)
	}
	if err := repo.DeleteBranch(name); err != nil && !errors.Is(err, gogit.ErrBranchNotFound) {
		return wrap("branch", path, err)
	}
	if !alsoRemote {
		return nil
	}
	err = repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: DefaultRemote,
		RefSpecs:   []config.RefSpec{config.RefSpec(":" + plumbing.NewBranchReferenceName(name).String())},
		Auth:       creds.auth(),
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return wrap("push", path, err)
	}
	return nil
}
