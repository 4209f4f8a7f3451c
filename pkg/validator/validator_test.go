package validator_test

import (
	"strings"
	"testing"

	"github.com/thomasrohde/scoper/pkg/diagnostics"
	"github.com/thomasrohde/scoper/pkg/parser"
	"github.com/thomasrohde/scoper/pkg/validator"
)

// helper parses source and validates, returning diagnostics from validation only.
// It fatals on parse errors so test cases focus on validator behavior.
func mustParseAndValidate(t *testing.T, source string) []diagnostics.Diagnostic {
	t.Helper()
	prog, parseErrs := parser.Parse(source, "test.scope")
	if len(parseErrs) > 0 {
		t.Fatalf("unexpected parse error: %s", parseErrs[0].Message)
	}
	return validator.Validate(prog)
}

// assertNoDiags asserts zero diagnostics were produced.
func assertNoDiags(t *testing.T, diags []diagnostics.Diagnostic) {
	t.Helper()
	if len(diags) != 0 {
		var msgs []string
		for _, d := range diags {
			msgs = append(msgs, d.Code+": "+d.Message)
		}
		t.Errorf("expected no diagnostics, got %d:\n  %s", len(diags), strings.Join(msgs, "\n  "))
	}
}

// assertDiagCodeAt checks that diagnostic at index i has the expected code.
func assertDiagCodeAt(t *testing.T, diags []diagnostics.Diagnostic, index int, code string) {
	t.Helper()
	if index >= len(diags) {
		t.Errorf("expected diagnostic at index %d with code %s, but only %d diagnostics exist", index, code, len(diags))
		return
	}
	if diags[index].Code != code {
		t.Errorf("diagnostic[%d]: got code %q, want %q (message: %s)", index, diags[index].Code, code, diags[index].Message)
	}
}

// ===== Valid Programs (zero diagnostics) =====

func TestValid_Empty(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, ""))
}

func TestValid_Nested(t *testing.T) {
	src := `begin
  assign a 10
  begin
    assign b 20
    print a
    print b
  end
  print b
end`
	assertNoDiags(t, mustParseAndValidate(t, src))
}

func TestValid_Siblings(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, "begin\nend\nbegin\nassign x 1\nend\n"))
}

func TestValid_PrintOutsideScope(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, "print x\nbegin\nend\nprint x"))
}

// ===== Balance =====

func TestEndWithoutBegin(t *testing.T) {
	diags := mustParseAndValidate(t, "end\nbegin\nend")
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(diags))
	}
	assertDiagCodeAt(t, diags, 0, diagnostics.EEndWithoutBegin)
	if diags[0].Span.StartLine != 1 {
		t.Errorf("expected line 1, got %d", diags[0].Span.StartLine)
	}
}

func TestExtraEndAfterBalanced(t *testing.T) {
	diags := mustParseAndValidate(t, "begin\nend\nend")
	assertDiagCodeAt(t, diags, 0, diagnostics.EEndWithoutBegin)
	if diags[0].Span.StartLine != 3 {
		t.Errorf("expected line 3, got %d", diags[0].Span.StartLine)
	}
}

func TestUnclosedBegin(t *testing.T) {
	diags := mustParseAndValidate(t, "begin\nbegin\nend")
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(diags))
	}
	assertDiagCodeAt(t, diags, 0, diagnostics.EUnbalanced)
	// the outer begin is the one left open
	if diags[0].Span.StartLine != 1 {
		t.Errorf("expected unclosed begin on line 1, got %d", diags[0].Span.StartLine)
	}
}

func TestMultipleUnclosed(t *testing.T) {
	diags := mustParseAndValidate(t, "begin\nbegin\nbegin")
	if len(diags) != 3 {
		t.Fatalf("expected 3 diagnostics, got %d", len(diags))
	}
	for i := range diags {
		assertDiagCodeAt(t, diags, i, diagnostics.EUnbalanced)
	}
}

// ===== Assignment placement =====

func TestAssignOutsideScopeIsNotADiagnostic(t *testing.T) {
	// the evaluator reports these at run time and keeps going
	assertNoDiags(t, mustParseAndValidate(t, "assign x 1\nbegin\nend\nassign y 2"))
}

func TestDiagnosticsInSourceOrder(t *testing.T) {
	diags := mustParseAndValidate(t, "end\nassign x 1\nbegin")
	if len(diags) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(diags))
	}
	assertDiagCodeAt(t, diags, 0, diagnostics.EEndWithoutBegin)
	assertDiagCodeAt(t, diags, 1, diagnostics.EUnbalanced)
}
