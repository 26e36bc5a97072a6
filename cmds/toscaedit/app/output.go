package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mandelsoft/goutils/sliceutils"
	"sigs.k8s.io/yaml"
)

// Output writes data in the requested format. The table function
// provides the rows for the default format.
func Output(w io.Writer, format string, data interface{}, columns []string, rows func() [][]string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "":
		PrintTable(w, columns, rows())
	case "json":
		out, err := json.Marshal(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\n", string(out))
	case "yaml":
		out, err := yaml.Marshal(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s", string(out))
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	return nil
}

func PrintTable(w io.Writer, columns []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintf(w, "no entries found\n")
		return
	}
	max := make([]int, len(columns))
	for i, s := range columns {
		max[i] = len(s)
	}
	for _, cols := range rows {
		for i, s := range cols {
			if max[i] < len(s) {
				max[i] = len(s)
			}
		}
	}

	f := formatString(max)
	printLine(w, columns, f)
	for _, cols := range rows {
		printLine(w, cols, f)
	}
}

func printLine(w io.Writer, cols []string, msg string) {
	fmt.Fprintf(w, "%s\n", strings.TrimRight(fmt.Sprintf(msg, sliceutils.Convert[any](cols)...), " "))
}

func formatString(max []int) string {
	msg := ""
	for _, l := range max {
		msg += fmt.Sprintf("%%-%ds ", l)
	}
	return msg[:len(msg)-1]
}
