package diagnostics_test

import (
	"strings"
	"testing"

	"github.com/thomasrohde/scoper/pkg/ast"
	"github.com/thomasrohde/scoper/pkg/diagnostics"
)

func TestMakeDiag(t *testing.T) {
	span := &ast.Span{File: "test.scope", StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 5}
	d := diagnostics.MakeDiag(diagnostics.EUnknownCmd, "unknown command 'push'", span, "")

	if d.Code != diagnostics.EUnknownCmd {
		t.Errorf("got Code = %q, want %q", d.Code, diagnostics.EUnknownCmd)
	}
	if d.Message != "unknown command 'push'" {
		t.Errorf("got Message = %q, want %q", d.Message, "unknown command 'push'")
	}
}

func TestFormatDiagnosticPretty(t *testing.T) {
	span := &ast.Span{File: "test.scope", StartLine: 3, StartCol: 5, EndLine: 3, EndCol: 10}
	d := diagnostics.MakeDiag(diagnostics.EUnbound, "variable 'x' is not bound in any scope", span, "did you mean 'xx'?")

	out := diagnostics.FormatDiagnostic(d, true)
	if !strings.Contains(out, "E_UNBOUND") {
		t.Errorf("expected error code in output, got: %s", out)
	}
	if !strings.Contains(out, "test.scope:3:5") {
		t.Errorf("expected location in output, got: %s", out)
	}
	if !strings.Contains(out, "hint:") {
		t.Errorf("expected hint in output, got: %s", out)
	}
}

func TestFormatDiagnosticJSON(t *testing.T) {
	d := diagnostics.MakeDiag(diagnostics.ELex, "bad token", nil, "")
	out := diagnostics.FormatDiagnostic(d, false)
	if !strings.Contains(out, `"code":"E_LEX"`) {
		t.Errorf("expected JSON code in output, got: %s", out)
	}
	if strings.Contains(out, "span") {
		t.Errorf("nil span should be omitted, got: %s", out)
	}
}

func TestFormatDiagnosticsJoin(t *testing.T) {
	diags := []diagnostics.Diagnostic{
		diagnostics.MakeDiag(diagnostics.EArity, "first", nil, ""),
		diagnostics.MakeDiag(diagnostics.EBadInt, "second", nil, ""),
	}
	out := diagnostics.FormatDiagnostics(diags, false)
	if !strings.HasPrefix(out, "[") || !strings.Contains(out, "E_BAD_INT") {
		t.Errorf("expected JSON array, got: %s", out)
	}

	pretty := diagnostics.FormatDiagnostics(diags, true)
	if strings.Count(pretty, "<unknown>") != 2 {
		t.Errorf("expected two located entries, got: %s", pretty)
	}
}
