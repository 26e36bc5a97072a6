package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mandelsoft/toscaeditor/pkg/editor"
	"github.com/mandelsoft/toscaeditor/pkg/git"
)

type Transfer struct {
	cmd      *cobra.Command
	mainopts *Options
	push     bool
	url      string
	branch   string
}

func NewPush(opts *Options) *cobra.Command {
	return newRemote(opts, true, "push <topology>", "push the saved topology to the remote repository")
}

func NewPull(opts *Options) *cobra.Command {
	return newRemote(opts, false, "pull <topology>", "merge the changes of the remote repository")
}

func newRemote(opts *Options, push bool, use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:              use,
		Short:            short,
		Args:             cobra.ExactArgs(1),
		TraverseChildren: true,
	}
	c := &Transfer{cmd: cmd, mainopts: opts, push: push}
	cmd.RunE = func(cmd *cobra.Command, args []string) error { return c.Run(args) }
	flags := cmd.Flags()
	flags.StringVarP(&c.url, "remote", "R", "", "remote repository URL")
	flags.StringVarP(&c.branch, "branch", "b", "", "remote branch (default is the local branch)")
	return cmd
}

func (c *Transfer) Run(args []string) error {
	ctx := c.cmd.Context()
	id := args[0]
	m, err := c.mainopts.Manager(ctx)
	if err != nil {
		return err
	}
	defer m.Close(ctx, id)

	if url := defaulted(c.url, c.mainopts.RemoteURL()); url != "" {
		name, version, err := editor.SplitId(id)
		if err != nil {
			return err
		}
		repo := m.Repository()
		if err := repo.Git().SetRemote(repo.WorkDir(name, version), git.DefaultRemote, url); err != nil {
			return err
		}
	}

	var r *editor.Result
	if c.push {
		r, err = m.Push(ctx, id, c.mainopts.Credentials(), c.branch)
	} else {
		r, err = m.Pull(ctx, id, c.mainopts.Credentials(), c.branch)
	}
	if cerr := git.ConflictOf(err); cerr != nil && cerr.ConflictBranch != "" {
		fmt.Fprintf(c.cmd.ErrOrStderr(), "local changes have been saved in remote branch %s\n", cerr.ConflictBranch)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.cmd.OutOrStdout(), "%s: %s\n", id, r.Hash)
	return nil
}

func defaulted(s, def string) string {
	if s != "" {
		return s
	}
	return def
}
