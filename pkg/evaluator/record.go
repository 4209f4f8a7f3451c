package evaluator

import (
	"encoding/json"

	"github.com/thomasrohde/scoper/pkg/ast"
)

// RecordKind identifies what an output record reports.
type RecordKind string

const (
	RecordAssigned RecordKind = "assigned"
	RecordValue    RecordKind = "value"
	RecordUnbound  RecordKind = "unbound"
	// RecordNoScope is an assign that ran with no open scope; its value is dropped.
	RecordNoScope  RecordKind = "noscope"
)

// Record is one line of program output, emitted by assign and print.
type Record struct {
	Kind  RecordKind
	Name  string
	Value int
	// Depth is the frame that satisfied a print, 1 for the outermost.
	Depth int
	Hint  string
	Span  *ast.Span
}

type recordWire struct {
	Kind  RecordKind `json:"kind" yaml:"kind"`
	Name  string     `json:"name" yaml:"name"`
	Value *int       `json:"value,omitempty" yaml:"value,omitempty"`
	Depth int        `json:"depth,omitempty" yaml:"depth,omitempty"`
	Hint  string     `json:"hint,omitempty" yaml:"hint,omitempty"`
	Span  *ast.Span  `json:"span,omitempty" yaml:"span,omitempty"`
}

// unbound records carry no value on the wire
func (r Record) wire() recordWire {
	w := recordWire{Kind: r.Kind, Name: r.Name, Depth: r.Depth, Hint: r.Hint, Span: r.Span}
	if r.Kind != RecordUnbound {
		v := r.Value
		w.Value = &v
	}
	return w
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.wire())
}

// MarshalYAML implements yaml.Marshaler.
func (r Record) MarshalYAML() (any, error) {
	return r.wire(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w recordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Record{Kind: w.Kind, Name: w.Name, Depth: w.Depth, Hint: w.Hint, Span: w.Span}
	if w.Value != nil {
		r.Value = *w.Value
	}
	return nil
}
