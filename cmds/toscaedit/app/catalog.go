package app

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/parser"
	"github.com/mandelsoft/toscaeditor/pkg/version"
)

func NewCatalog(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:              "catalog <cmd>",
		Short:            "maintain the type catalog",
		TraverseChildren: true,
	}
	cmd.AddCommand(NewCatalogImport(opts))
	cmd.AddCommand(NewCatalogList(opts))
	return cmd
}

type CatalogImport struct {
	cmd      *cobra.Command
	mainopts *Options
}

func NewCatalogImport(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:              "import <archive> ...",
		Short:            "import type archives",
		Args:             cobra.MinimumNArgs(1),
		TraverseChildren: true,
	}
	c := &CatalogImport{cmd: cmd, mainopts: opts}
	cmd.RunE = func(cmd *cobra.Command, args []string) error { return c.Run(args) }
	return cmd
}

func (c *CatalogImport) Run(args []string) error {
	var cmderr error

	ctx := c.cmd.Context()
	cat, err := c.mainopts.Catalog(ctx)
	if err != nil {
		return err
	}
	for _, a := range args {
		result, err := parser.New(cat).Parse(ctx, c.mainopts.fs, a, true)
		if err == nil {
			err = result.Error()
		}
		if err == nil && result.Root.Topology != nil {
			err = fmt.Errorf("archive %s contains a topology", result.Root.Archive.Id())
		}
		if err == nil {
			err = cat.Import(result.Root)
		}
		if err != nil {
			fmt.Fprintf(c.cmd.ErrOrStderr(), "cannot import %q: %s\n", a, err)
			cmderr = fmt.Errorf("import failed for some archives")
			continue
		}
		fmt.Fprintf(c.cmd.OutOrStdout(), "%s: imported\n", result.Root.Archive.Id())
	}
	return cmderr
}

type CatalogList struct {
	cmd      *cobra.Command
	mainopts *Options
	output   string
}

func NewCatalogList(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:              "list",
		Short:            "list the archives of the type catalog",
		Args:             cobra.NoArgs,
		TraverseChildren: true,
	}
	c := &CatalogList{cmd: cmd, mainopts: opts}
	cmd.RunE = func(cmd *cobra.Command, args []string) error { return c.Run(args) }
	cmd.Flags().StringVarP(&c.output, "output", "o", "", "output format (yaml, json)")
	return cmd
}

func (c *CatalogList) Run(args []string) error {
	cat, err := c.mainopts.Catalog(c.cmd.Context())
	if err != nil {
		return err
	}
	list, err := cat.Archives()
	if err != nil {
		return err
	}
	slices.SortFunc(list, func(a, b model.Csar) int {
		if d := strings.Compare(a.Name, b.Name); d != 0 {
			return d
		}
		return version.Compare(a.Version, b.Version)
	})
	return Output(c.cmd.OutOrStdout(), c.output, list, []string{"NAME", "VERSION", "DEPENDENCIES"}, func() [][]string {
		var rows [][]string
		for _, a := range list {
			var deps []string
			for _, d := range a.Dependencies {
				deps = append(deps, d.String())
			}
			rows = append(rows, []string{a.Name, a.Version, strings.Join(deps, ",")})
		}
		return rows
	})
}
