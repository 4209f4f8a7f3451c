// Package parser turns scope script tokens into commands.
package parser

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/thomasrohde/scoper/pkg/ast"
	"github.com/thomasrohde/scoper/pkg/diagnostics"
	"github.com/thomasrohde/scoper/pkg/lexer"
)

// arity is the number of arguments each command takes.
var arity = map[string]int{
	ast.KwBegin:  0,
	ast.KwEnd:    0,
	ast.KwAssign: 2,
	ast.KwPrint:  1,
}

var keywords = []string{ast.KwBegin, ast.KwEnd, ast.KwAssign, ast.KwPrint}

type parser struct {
	tokens []lexer.Token
	pos    int
	diags  []diagnostics.Diagnostic
}

// Parse tokenizes source and parses it into a program. Every malformed line
// is reported; the program is nil when any diagnostic was produced.
func Parse(source, filename string) (*ast.Program, []diagnostics.Diagnostic) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		var le *lexer.LexError
		if errors.As(err, &le) {
			return nil, []diagnostics.Diagnostic{le.Diag}
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, "")}
	}

	p := &parser{tokens: tokens, pos: 0}
	prog := p.parseProgram(filename)
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return prog, nil
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) addDiag(code, msg string, span ast.Span, hint string) {
	p.diags = append(p.diags, diagnostics.MakeDiag(code, msg, &span, hint))
}

func (p *parser) parseProgram(filename string) *ast.Program {
	prog := &ast.Program{}
	start := p.current().Span

	for p.current().Type != lexer.TokEOF {
		line := p.readLine()
		if len(line) == 0 {
			continue
		}
		if cmd := p.parseCommand(line); cmd != nil {
			prog.Commands = append(prog.Commands, cmd)
		}
	}

	end := p.current().Span
	prog.Span = ast.Span{
		File:      filename,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
	return prog
}

// readLine collects the words up to the next newline and consumes it.
func (p *parser) readLine() []lexer.Token {
	var words []lexer.Token
	for {
		tok := p.current()
		switch tok.Type {
		case lexer.TokEOF:
			return words
		case lexer.TokNewline:
			p.advance()
			return words
		default:
			words = append(words, p.advance())
		}
	}
}

func lineSpan(words []lexer.Token) ast.Span {
	first, last := words[0].Span, words[len(words)-1].Span
	return ast.Span{
		File:      first.File,
		StartLine: first.StartLine,
		StartCol:  first.StartCol,
		EndLine:   last.EndLine,
		EndCol:    last.EndCol,
	}
}

func (p *parser) parseCommand(words []lexer.Token) ast.Command {
	head := words[0]
	span := lineSpan(words)

	want, known := arity[head.Value]
	if !known {
		p.addDiag(diagnostics.EUnknownCmd, fmt.Sprintf("invalid command '%s'", head.Value), head.Span, suggestKeyword(head.Value))
		return nil
	}

	args := words[1:]
	if len(args) != want {
		p.addDiag(diagnostics.EArity, arityMessage(head.Value, want), span, "")
		return nil
	}

	switch head.Value {
	case ast.KwBegin:
		return &ast.BeginCmd{Span: span}
	case ast.KwEnd:
		return &ast.EndCmd{Span: span}
	case ast.KwAssign:
		value, err := strconv.Atoi(args[1].Value)
		if err != nil {
			msg := fmt.Sprintf("'%s' is not an integer literal", args[1].Value)
			if errors.Is(err, strconv.ErrRange) {
				msg = fmt.Sprintf("integer literal '%s' is out of range", args[1].Value)
			}
			p.addDiag(diagnostics.EBadInt, msg, args[1].Span, "")
			return nil
		}
		return &ast.AssignCmd{Span: span, Name: args[0].Value, Value: value}
	case ast.KwPrint:
		return &ast.PrintCmd{Span: span, Name: args[0].Value}
	}
	return nil
}

func arityMessage(cmd string, want int) string {
	switch want {
	case 0:
		return fmt.Sprintf("'%s' command should not have arguments", cmd)
	case 1:
		return fmt.Sprintf("'%s' command should have exactly 1 argument", cmd)
	default:
		return fmt.Sprintf("'%s' command should have exactly %d arguments", cmd, want)
	}
}

func suggestKeyword(word string) string {
	ranks := fuzzy.RankFindFold(word, keywords)
	if len(ranks) == 0 {
		return ""
	}
	best := ranks[0]
	for _, r := range ranks[1:] {
		if r.Distance < best.Distance {
			best = r
		}
	}
	return fmt.Sprintf("did you mean '%s'?", best.Target)
}
