// Package report renders evaluator records as text, JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/scoper/pkg/evaluator"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists every accepted output format.
var Formats = []string{FormatText, FormatJSON, FormatYAML}

// ValidFormat reports whether name is a known output format.
func ValidFormat(name string) bool {
	for _, f := range Formats {
		if f == name {
			return true
		}
	}
	return false
}

var (
	nameStyle  = lipgloss.NewStyle().Bold(true)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#34D399"))
	missStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24"))
)

// Writer renders records. In text mode unbound and noscope records go to Err,
// the way the interpreter has always reported them; structured formats keep every
// record on Out.
type Writer struct {
	Out    io.Writer
	Err    io.Writer
	Format string
	Pretty bool
}

// Write renders records in the configured format.
func (w *Writer) Write(records []evaluator.Record) error {
	switch w.Format {
	case "", FormatText:
		return w.writeText(records)
	case FormatJSON:
		return w.writeJSON(records)
	case FormatYAML:
		return w.writeYAML(records)
	default:
		return fmt.Errorf("unknown output format %q", w.Format)
	}
}

func (w *Writer) writeText(records []evaluator.Record) error {
	for _, r := range records {
		var err error
		switch r.Kind {
		case evaluator.RecordAssigned:
			_, err = fmt.Fprintf(w.Out, "Assigned %s = %s\n", w.name(r.Name), w.value(r.Value))
		case evaluator.RecordValue:
			_, err = fmt.Fprintf(w.Out, "Value of variable %s is %s\n", w.name(r.Name), w.value(r.Value))
		case evaluator.RecordUnbound:
			line := fmt.Sprintf("Variable (%s) doesnt exist in any scope", r.Name)
			if w.Pretty {
				line = missStyle.Render(line)
				if r.Hint != "" {
					line += " " + hintStyle.Render("("+r.Hint+")")
				}
			}
			_, err = fmt.Fprintln(w.errWriter(), line)
		case evaluator.RecordNoScope:
			line := "No scope defined for given variable"
			if w.Pretty {
				line = missStyle.Render(line) + " " + hintStyle.Render("("+r.Name+")")
			}
			_, err = fmt.Fprintln(w.errWriter(), line)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) errWriter() io.Writer {
	if w.Err == nil {
		return w.Out
	}
	return w.Err
}

func (w *Writer) name(s string) string {
	if w.Pretty {
		return nameStyle.Render(s)
	}
	return s
}

func (w *Writer) value(v int) string {
	s := fmt.Sprintf("%d", v)
	if w.Pretty {
		return valueStyle.Render(s)
	}
	return s
}

func (w *Writer) writeJSON(records []evaluator.Record) error {
	if records == nil {
		records = []evaluator.Record{}
	}
	enc := json.NewEncoder(w.Out)
	if w.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(records)
}

func (w *Writer) writeYAML(records []evaluator.Record) error {
	if records == nil {
		records = []evaluator.Record{}
	}
	enc := yaml.NewEncoder(w.Out)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return err
	}
	return enc.Close()
}
