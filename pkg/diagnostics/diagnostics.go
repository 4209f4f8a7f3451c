// Package diagnostics defines diagnostic types for lex, validation and runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/thomasrohde/scoper/pkg/ast"
)

// Diagnostic code constants.
const (
	ELex             = "E_LEX"
	EUnknownCmd      = "E_UNKNOWN_CMD"
	EArity           = "E_ARITY"
	EBadInt          = "E_BAD_INT"
	EEndWithoutBegin = "E_END_WITHOUT_BEGIN"
	EUnbalanced      = "E_UNBALANCED"
	EUnbound         = "E_UNBOUND"
	EScopeUnderflow  = "E_SCOPE_UNDERFLOW"
	EScopeLimit      = "E_SCOPE_LIMIT"
	ENoScope         = "E_NO_SCOPE"
	ECanceled        = "E_CANCELED"
	EIO              = "E_IO"
	EConfig          = "E_CONFIG"
	EHistory         = "E_HISTORY"
)

// Diagnostic represents a lex, validation, or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code" yaml:"code"`
	Message string    `json:"message" yaml:"message"`
	Span    *ast.Span `json:"span,omitempty" yaml:"span,omitempty"`
	Hint    string    `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F87171"))
	arrowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24"))
)

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
	}
	out := headerStyle.Render(fmt.Sprintf("error[%s]", d.Code)) + ": " + d.Message +
		"\n  " + arrowStyle.Render("-->") + " " + loc
	if d.Hint != "" {
		out += "\n  " + hintStyle.Render("hint:") + " " + d.Hint
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}
