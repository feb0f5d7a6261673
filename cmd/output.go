package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/formfill-cli/internal/model"
)

// Output formats.
const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatText = "text"
)

// writeOutput encodes v in the requested format. text falls back to the
// given renderer.
func writeOutput(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch strings.ToLower(format) {
	case formatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return enc.Close()
	case formatText:
		return text(w)
	default:
		return eris.Errorf("unsupported output format %q (json, yaml or text)", format)
	}
}

// formatQuestions prints a form's questions as a table.
func formatQuestions(w io.Writer, form *model.Form) error {
	if form.Title != "" {
		fmt.Fprintf(w, "%s\n\n", form.Title)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTRY\tTYPE\tREQUIRED\tQUESTION\tOPTIONS")
	for _, q := range form.Questions {
		req := ""
		if q.Required {
			req = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			q.ID, q.Type, req, truncate(q.Text, 60), truncate(strings.Join(q.Options, " | "), 60))
	}
	return tw.Flush()
}

// formatWarnings lists warnings one per line.
func formatWarnings(w io.Writer, warnings []model.Warning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "\nWarnings (%d):\n", len(warnings))
	for _, warn := range warnings {
		fmt.Fprintf(w, "  - %s\n", warn)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
