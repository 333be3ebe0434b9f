package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printTable writes rows aligned in columns, trimming trailing spaces.
func printTable(w io.Writer, header string, rows []string) {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	for _, r := range rows {
		fmt.Fprintln(tw, r)
	}
	tw.Flush()
	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

func printRows(w io.Writer, rows []types.DisplayRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return
	}
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = strings.Join([]string{r.Namespace, r.Key, r.Type, r.Value}, "\t")
	}
	printTable(w, "NAMESPACE\tKEY\tTYPE\tVALUE", lines)
	fmt.Fprintf(w, "Total: %d entries\n", len(rows))
}

func printEntry(w io.Writer, e shownEntry) {
	lines := []string{
		"Namespace:\t" + e.Namespace,
		"Key:\t" + e.Key,
		"Type:\t" + e.Type,
		"Value:\t" + e.Value,
	}
	if e.Display != "" && e.Display != e.Value {
		lines = append(lines, "Display:\t"+e.Display)
	}
	if e.ASCII != nil {
		label := "ASCII:"
		if !e.ASCII.Exact {
			label = "ASCII (partial):"
		}
		lines = append(lines, label+"\t"+e.ASCII.Text)
	}
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 1, ' ', 0)
	for _, l := range lines {
		fmt.Fprintln(tw, l)
	}
	tw.Flush()
	fmt.Fprint(w, sb.String())
}

func printNamespaces(w io.Writer, defs []types.NamespaceDef) {
	if len(defs) == 0 {
		fmt.Fprintln(w, "No namespaces.")
		return
	}
	lines := make([]string, len(defs))
	for i, d := range defs {
		lines[i] = fmt.Sprintf("%d\t%s", d.Index, d.Name)
	}
	printTable(w, "INDEX\tNAME", lines)
}

func printDiagnostics(w io.Writer, diags []types.Diagnostic) {
	if len(diags) == 0 {
		fmt.Fprintln(w, "No warnings.")
		return
	}
	for _, d := range diags {
		fmt.Fprintln(w, d.String())
	}
}
