package lexer

import (
	"testing"
)

// FuzzTokenize feeds random inputs to the lexer to catch panics.
// The lexer should never panic; it should return an error for invalid input.
func FuzzTokenize(f *testing.F) {
	seeds := []string{
		// Commands
		"begin\nend",
		"assign x 10",
		"print x",
		"begin\n  assign a 1\n  begin\n    print a\n  end\nend\n",
		// Comments
		"# comment",
		"#",
		"begin # not a comment",
		// Edge cases
		"",
		"   ",
		"\t\n\r",
		"\r\n\r\n",
		"\x00",
		"\xff\xfe",
		"assign x -2147483648",
		"print ünïcode",
		// Long input
		"assign aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa 1",
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		// Tokenize should never panic, regardless of input.
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Tokenize panicked on input %q: %v", input, r)
				}
			}()
			tokens, err := Tokenize(input, "fuzz.scope")
			if err == nil && (len(tokens) == 0 || tokens[len(tokens)-1].Type != TokEOF) {
				t.Fatalf("token stream for %q does not end with EOF", input)
			}
		}()
	})
}
