// Package ast defines the scope language command nodes.
package ast

// Span represents a source location range.
type Span struct {
	File      string `json:"file" yaml:"file"`
	StartLine int    `json:"startLine" yaml:"startLine"`
	StartCol  int    `json:"startCol" yaml:"startCol"`
	EndLine   int    `json:"endLine" yaml:"endLine"`
	EndCol    int    `json:"endCol" yaml:"endCol"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// Command keywords.
const (
	KwBegin  = "begin"
	KwEnd    = "end"
	KwAssign = "assign"
	KwPrint  = "print"
)

// --- Command is the interface for the four script commands ---

type Command interface {
	Node
	commandNode() // sealed marker
}

// BeginCmd opens a nested scope.
type BeginCmd struct {
	Span Span
}

func (n *BeginCmd) Kind() string   { return "BeginCmd" }
func (n *BeginCmd) NodeSpan() Span { return n.Span }
func (n *BeginCmd) commandNode()   {}

// EndCmd closes the innermost scope.
type EndCmd struct {
	Span Span
}

func (n *EndCmd) Kind() string   { return "EndCmd" }
func (n *EndCmd) NodeSpan() Span { return n.Span }
func (n *EndCmd) commandNode()   {}

// AssignCmd binds Name to Value in the innermost scope.
type AssignCmd struct {
	Span  Span
	Name  string
	Value int
}

func (n *AssignCmd) Kind() string   { return "AssignCmd" }
func (n *AssignCmd) NodeSpan() Span { return n.Span }
func (n *AssignCmd) commandNode()   {}

// PrintCmd looks Name up through the enclosing scopes.
type PrintCmd struct {
	Span Span
	Name string
}

func (n *PrintCmd) Kind() string   { return "PrintCmd" }
func (n *PrintCmd) NodeSpan() Span { return n.Span }
func (n *PrintCmd) commandNode()   {}

// Program is a parsed script.
type Program struct {
	Span     Span
	Commands []Command
}
