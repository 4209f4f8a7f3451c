// Package formatter implements the scope script formatter.
package formatter

import (
	"strconv"
	"strings"

	"github.com/thomasrohde/scoper/pkg/ast"
)

const indent = "  "

// Format prints program back to source, one command per line, indenting
// two spaces per open scope. A single blank line is kept wherever the
// source had one or more.
func Format(program *ast.Program) string {
	var b strings.Builder
	depth := 0
	prevLine := 0

	for i, cmd := range program.Commands {
		line := cmd.NodeSpan().StartLine
		if i > 0 && line > prevLine+1 {
			b.WriteByte('\n')
		}
		prevLine = line

		if _, ok := cmd.(*ast.EndCmd); ok && depth > 0 {
			depth--
		}
		b.WriteString(strings.Repeat(indent, depth))
		b.WriteString(formatCmd(cmd))
		b.WriteByte('\n')
		if _, ok := cmd.(*ast.BeginCmd); ok {
			depth++
		}
	}
	return b.String()
}

func formatCmd(cmd ast.Command) string {
	switch c := cmd.(type) {
	case *ast.BeginCmd:
		return ast.KwBegin
	case *ast.EndCmd:
		return ast.KwEnd
	case *ast.AssignCmd:
		return ast.KwAssign + " " + c.Name + " " + strconv.Itoa(c.Value)
	case *ast.PrintCmd:
		return ast.KwPrint + " " + c.Name
	}
	return ""
}

// HasComments reports whether source contains comment lines, which Format
// does not preserve.
func HasComments(source string) bool {
	for _, line := range strings.Split(source, "\n") {
		if strings.HasPrefix(strings.TrimLeft(line, " \t\r\f\v"), "#") {
			return true
		}
	}
	return false
}
