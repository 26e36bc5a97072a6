package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mandelsoft/toscaeditor/pkg/tosca/parser"
)

type Parse struct {
	cmd      *cobra.Command
	mainopts *Options
	output   string
}

func NewParse(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <archive>",
		Short: "parse and validate a TOSCA archive",
		Long: `
Parse a TOSCA archive given as directory, zip file or definitions
file and report the problems found. Types of other archives are
resolved with the type catalog.
`,
		Args:             cobra.ExactArgs(1),
		TraverseChildren: true,
	}
	c := &Parse{cmd: cmd, mainopts: opts}
	cmd.RunE = func(cmd *cobra.Command, args []string) error { return c.Run(args) }
	cmd.Flags().StringVarP(&c.output, "output", "o", "", "output format (yaml, json)")
	return cmd
}

func (c *Parse) Run(args []string) error {
	ctx := c.cmd.Context()
	cat, err := c.mainopts.Catalog(ctx)
	if err != nil {
		return err
	}
	result, err := parser.New(cat).Parse(ctx, c.mainopts.fs, args[0], true)
	if err != nil {
		return err
	}
	err = Output(c.cmd.OutOrStdout(), c.output, result.Errors, []string{"LEVEL", "CODE", "LOCATION", "PROBLEM"}, func() [][]string {
		var rows [][]string
		for _, e := range result.Errors {
			rows = append(rows, []string{string(e.Level), string(e.Code), fmt.Sprintf("%s:%s", e.File, e.StartMark), e.Problem})
		}
		return rows
	})
	if err != nil {
		return err
	}
	if result.HasErrors() {
		return fmt.Errorf("archive %s is invalid", result.Root.Archive.Id())
	}
	return nil
}
