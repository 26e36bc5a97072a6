package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mandelsoft/toscaeditor/pkg/version"
)

func NewVersion(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:              "version <cmd>",
		Short:            "archive version utilities",
		TraverseChildren: true,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "compare <version> <version>",
		Short: "compare two archive versions (-1, 0, 1)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := version.Compare(args[0], args[1])
			switch {
			case d < 0:
				d = -1
			case d > 0:
				d = 1
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", d)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "latest <version> ...",
		Short: "select the latest of the given versions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version.Latest(args...))
			return nil
		},
	})
	return cmd
}
