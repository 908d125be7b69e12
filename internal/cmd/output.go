package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// printer writes command results in the selected --format.
type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) *printer {
	return &printer{w: w, format: format}
}

// structured reports whether results go out as JSON or YAML.
func (p *printer) structured() bool {
	return p.format == formatJSON || p.format == formatYAML
}

// value prints v as JSON or YAML, or calls text for the text format.
func (p *printer) value(v any, text func(w io.Writer)) error {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	case formatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	default:
		text(p.w)
		return nil
	}
}

// table prints rows under headers in the text format, v otherwise.
func (p *printer) table(v any, headers []string, rows [][]string, empty string) error {
	return p.value(v, func(w io.Writer) {
		if len(rows) == 0 {
			fmt.Fprintln(w, empty)
			return
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
		for _, r := range rows {
			fmt.Fprintln(tw, strings.Join(r, "\t"))
		}
		tw.Flush()
	})
}

// message prints a human confirmation. Structured formats get
// {"status": ..., <fields>} so scripts can still parse the result.
func (p *printer) message(text string, fields map[string]any) error {
	if !p.structured() {
		fmt.Fprintln(p.w, text)
		return nil
	}
	out := map[string]any{"status": text}
	for k, v := range fields {
		out[k] = v
	}
	return p.value(out, nil)
}

func visibility(public bool) string {
	if public {
		return "public"
	}
	return "private"
}
