package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

type Create struct {
	cmd         *cobra.Command
	mainopts    *Options
	description string
}

func NewCreate(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:              "create <name> <version>",
		Short:            "create a topology with the standard workflows",
		Args:             cobra.ExactArgs(2),
		TraverseChildren: true,
	}
	c := &Create{cmd: cmd, mainopts: opts}
	cmd.RunE = func(cmd *cobra.Command, args []string) error { return c.Run(args) }
	cmd.Flags().StringVarP(&c.description, "description", "d", "", "topology description")
	return cmd
}

func (c *Create) Run(args []string) error {
	ctx := c.cmd.Context()
	m, err := c.mainopts.Manager(ctx)
	if err != nil {
		return err
	}
	r, err := m.Create(ctx, args[0], args[1], c.mainopts.user, c.description)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.cmd.OutOrStdout(), "%s: created (%s)\n", r.Topology.Id(), r.Hash)
	return m.Close(ctx, r.Topology.Id())
}
