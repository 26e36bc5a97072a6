package app

import (
	"fmt"
	"io"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/spf13/cobra"

	"github.com/mandelsoft/toscaeditor/pkg/editor"
	"github.com/mandelsoft/toscaeditor/pkg/editor/operations"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/serializer"
)

type Edit struct {
	cmd      *cobra.Command
	mainopts *Options
	files    []string
	message  string
	dryRun   bool
	show     bool
}

func NewEdit(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <topology> -f <operations>",
		Short: "apply operations to a topology",
		Long: `
Apply a list of topology operations read from YAML files and save
the result. A file contains a sequence of operations selected by
their type field, for example

  - type: add-node
    nodeName: compute
    nodeType: tosca.nodes.Compute

The operations of all files are applied in order. Nothing is saved
if an operation fails.
`,
		Args:             cobra.ExactArgs(1),
		TraverseChildren: true,
	}
	c := &Edit{cmd: cmd, mainopts: opts}
	cmd.RunE = func(cmd *cobra.Command, args []string) error { return c.Run(args) }
	flags := cmd.Flags()
	flags.StringSliceVarP(&c.files, "file", "f", nil, "operation file (- for stdin)")
	flags.StringVarP(&c.message, "message", "m", "", "commit message")
	flags.BoolVarP(&c.dryRun, "dry-run", "n", false, "do not save the result")
	flags.BoolVarP(&c.show, "show", "s", false, "show the resulting definitions")
	return cmd
}

func (c *Edit) Run(args []string) error {
	ctx := c.cmd.Context()
	id := args[0]

	var list []operations.Operation
	for _, f := range c.files {
		var data []byte
		var err error
		if f == "-" {
			data, err = io.ReadAll(c.cmd.InOrStdin())
		} else {
			data, err = vfs.ReadFile(c.mainopts.fs, f)
		}
		if err != nil {
			return fmt.Errorf("cannot read file %q: %w", f, err)
		}
		ops, err := operations.DecodeList(data)
		if err != nil {
			return fmt.Errorf("invalid operations in %q: %w", f, err)
		}
		list = append(list, ops...)
	}

	m, err := c.mainopts.Manager(ctx)
	if err != nil {
		return err
	}
	defer m.Close(ctx, id)

	r, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	for i, o := range list {
		r, err = m.Execute(ctx, id, r.LastOperationId, o)
		if err != nil {
			return fmt.Errorf("operation %d (%s): %w", i+1, o.GetType(), err)
		}
	}
	if !c.dryRun && len(r.Pending) > 0 {
		if c.message != "" {
			r, err = m.Execute(ctx, id, r.LastOperationId, &operations.GitCommit{Message: c.message})
		} else {
			r, err = m.Save(ctx, id, r.LastOperationId)
		}
		if err != nil {
			return err
		}
	}
	return c.print(r)
}

func (c *Edit) print(r *editor.Result) error {
	if c.show {
		csar := *r.Csar
		csar.Dependencies = r.Topology.Dependencies
		data, err := serializer.Marshal(&csar, r.Topology)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.cmd.OutOrStdout(), "%s", string(data))
		return nil
	}
	state := "saved"
	if r.Modified {
		state = fmt.Sprintf("%d operations not saved", len(r.Pending))
	}
	fmt.Fprintf(c.cmd.OutOrStdout(), "%s: %s (%s)\n", r.Topology.Id(), state, r.Hash)
	return nil
}
