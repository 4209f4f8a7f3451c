// Package validator implements the structural pre-pass over parsed scripts.
package validator

import (
	"github.com/thomasrohde/scoper/pkg/ast"
	"github.com/thomasrohde/scoper/pkg/diagnostics"
)

type validator struct {
	diags []diagnostics.Diagnostic
	// open holds the spans of begin commands not yet closed, innermost last.
	open []ast.Span
}

// Validate checks begin/end balance. A program with no diagnostics never
// underflows the scope chain at run time.
func Validate(program *ast.Program) []diagnostics.Diagnostic {
	v := &validator{}

	for _, cmd := range program.Commands {
		v.validateCommand(cmd)
	}

	for _, span := range v.open {
		span := span
		v.addDiag(diagnostics.EUnbalanced, "mismatched 'begin' and 'end' commands: scope is never closed", &span,
			"add a matching 'end'")
	}

	return v.diags
}

func (v *validator) addDiag(code, msg string, span *ast.Span, hint string) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, span, hint))
}

func (v *validator) validateCommand(cmd ast.Command) {
	span := cmd.NodeSpan()
	switch cmd.(type) {
	case *ast.BeginCmd:
		v.open = append(v.open, span)
	case *ast.EndCmd:
		if len(v.open) == 0 {
			v.addDiag(diagnostics.EEndWithoutBegin, "no 'begin' specified for 'end' command", &span, "")
			return
		}
		v.open = v.open[:len(v.open)-1]
	}
	// assign and print outside any scope are reported by the evaluator
}
