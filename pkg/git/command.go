package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// git runs the git command in a working copy. Commits created by the
// command use the identity of the manager.
func (m *Manager) git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, m.opts.Command, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_AUTHOR_NAME="+m.opts.User,
		"GIT_AUTHOR_EMAIL="+m.opts.Email,
		"GIT_COMMITTER_NAME="+m.opts.User,
		"GIT_COMMITTER_EMAIL="+m.opts.Email,
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(out.String()))
	}
	return out.String(), nil
}

// stashes lists the indices of the stash entries with the given
// message, in stash order.
func (m *Manager) stashes(ctx context.Context, path, id string) ([]int, error) {
	out, err := m.git(ctx, path, "stash", "list", "--format=%gs")
	if err != nil {
		return nil, wrap("stash", path, err)
	}
	var list []int
	scanner := bufio.NewScanner(strings.NewReader(out))
	for i := 0; scanner.Scan(); i++ {
		if strings.HasSuffix(scanner.Text(), ": "+id) {
			list = append(list, i)
		}
	}
	return list, nil
}

func stashRef(i int) string {
	return fmt.Sprintf("stash@{%d}", i)
}

// Stash saves all uncommitted changes including untracked files
// under the given id. An existing stash with this id is replaced.
func (m *Manager) Stash(ctx context.Context, path, id string) error {
	if err := m.DropStash(ctx, path, id); err != nil {
		return err
	}
	_, err := m.git(ctx, path, "stash", "push", "--include-untracked", "-m", id)
	return wrap("stash", path, err)
}

// ApplyStashThenDrop applies the first stash with the given id and
// drops it. It reports whether there was such a stash.
func (m *Manager) ApplyStashThenDrop(ctx context.Context, path, id string) (bool, error) {
	list, err := m.stashes(ctx, path, id)
	if err != nil || len(list) == 0 {
		return false, err
	}
	if _, err := m.git(ctx, path, "stash", "apply", stashRef(list[0])); err != nil {
		return false, wrap("stash", path, err)
	}
	if _, err := m.git(ctx, path, "stash", "drop", stashRef(list[0])); err != nil {
		return true, wrap("stash", path, err)
	}
	return true, nil
}

// DropStash drops all stashes with the given id.
func (m *Manager) DropStash(ctx context.Context, path, id string) error {
	list, err := m.stashes(ctx, path, id)
	if err != nil {
		return err
	}
	for i := len(list) - 1; i >= 0; i-- {
		if _, err := m.git(ctx, path, "stash", "drop", stashRef(list[i])); err != nil {
			return wrap("stash", path, err)
		}
	}
	return nil
}
