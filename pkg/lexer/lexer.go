// Package lexer splits scope scripts into whitespace-delimited words.
package lexer

import (
	"fmt"
	"unicode/utf8"

	"github.com/thomasrohde/scoper/pkg/ast"
	"github.com/thomasrohde/scoper/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	TokWord    TokenType = iota
	TokNewline           // end of a non-empty line
	TokEOF
)

func (t TokenType) String() string {
	switch t {
	case TokWord:
		return "word"
	case TokNewline:
		return "newline"
	case TokEOF:
		return "EOF"
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token represents a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Span  ast.Span
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
	// lineHasWord suppresses newline tokens for blank and comment-only lines.
	lineHasWord bool
}

func newScanner(source, filename string) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

func (s *scanner) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f' || ch == '\v'
}

// skipBlanks skips horizontal whitespace and comments, stopping at a newline.
func (s *scanner) skipBlanks() {
	for !s.atEnd() {
		ch := s.peek()
		if isSpace(ch) {
			s.advance()
		} else if ch == '#' && !s.lineHasWord {
			// Comment lines run to end of line
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		} else {
			break
		}
	}
}

func (s *scanner) lexError(line, col int, msg string) error {
	span := ast.Span{File: s.filename, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1}
	diag := diagnostics.MakeDiag(diagnostics.ELex, msg, &span, "")
	return &LexError{Diag: diag}
}

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

func (s *scanner) scanWord() (Token, error) {
	startLine, startCol := s.line, s.col
	startPos := s.pos
	for !s.atEnd() {
		ch := s.peek()
		if isSpace(ch) || ch == '\n' {
			break
		}
		if ch == 0 {
			return Token{}, s.lexError(s.line, s.col, "NUL byte in script")
		}
		r, size := utf8.DecodeRuneInString(s.source[s.pos:])
		if r == utf8.RuneError && size == 1 {
			return Token{}, s.lexError(s.line, s.col, "invalid UTF-8 in script")
		}
		for i := 0; i < size; i++ {
			s.advance()
		}
	}
	s.lineHasWord = true
	return Token{
		Type:  TokWord,
		Value: s.source[startPos:s.pos],
		Span:  s.span(startLine, startCol),
	}, nil
}

func (s *scanner) nextToken() (Token, error) {
	for {
		s.skipBlanks()

		if s.atEnd() {
			if s.lineHasWord {
				s.lineHasWord = false
				return Token{Type: TokNewline, Span: s.span(s.line, s.col)}, nil
			}
			return Token{
				Type:  TokEOF,
				Value: "",
				Span:  s.span(s.line, s.col),
			}, nil
		}

		if s.peek() == '\n' {
			line, col := s.line, s.col
			s.advance()
			if s.lineHasWord {
				s.lineHasWord = false
				return Token{Type: TokNewline, Value: "\n", Span: s.span(line, col)}, nil
			}
			continue
		}

		return s.scanWord()
	}
}

// Tokenize splits source into words, one TokNewline after each non-empty
// line, and a final TokEOF.
func Tokenize(source, filename string) ([]Token, error) {
	s := newScanner(source, filename)
	var tokens []Token

	for {
		tok, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens, nil
}
