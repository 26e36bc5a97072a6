package app

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type History struct {
	cmd      *cobra.Command
	mainopts *Options
	from     int
	count    int
	output   string
}

func NewHistory(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:              "history <topology>",
		Short:            "list the saved versions of a topology",
		Args:             cobra.ExactArgs(1),
		TraverseChildren: true,
	}
	c := &History{cmd: cmd, mainopts: opts}
	cmd.RunE = func(cmd *cobra.Command, args []string) error { return c.Run(args) }
	flags := cmd.Flags()
	flags.IntVarP(&c.from, "from", "F", 0, "number of commits to skip")
	flags.IntVarP(&c.count, "count", "c", -1, "maximum number of commits")
	flags.StringVarP(&c.output, "output", "o", "", "output format (yaml, json)")
	return cmd
}

func (c *History) Run(args []string) error {
	m, err := c.mainopts.Manager(c.cmd.Context())
	if err != nil {
		return err
	}
	list, err := m.History(args[0], c.from, c.count)
	if err != nil {
		return err
	}
	return Output(c.cmd.OutOrStdout(), c.output, list, []string{"COMMIT", "AUTHOR", "DATE", "MESSAGE"}, func() [][]string {
		var rows [][]string
		for _, e := range list {
			msg, _, _ := strings.Cut(e.Message, "\n")
			rows = append(rows, []string{e.Hash[:8], e.Author, e.Time.Format(time.DateTime), msg})
		}
		return rows
	})
}
