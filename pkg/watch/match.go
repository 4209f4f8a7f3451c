package watch

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher selects script files by base name.
type Matcher struct {
	patterns []string
	globs    []glob.Glob
}

// NewMatcher compiles patterns. An empty matcher accepts every file.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{patterns: patterns}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", p, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

func (m *Matcher) Match(path string) bool {
	if m == nil || len(m.globs) == 0 {
		return true
	}
	base := filepath.Base(path)
	for _, g := range m.globs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return m.patterns
}

// HasMeta reports whether arg is a glob rather than a plain path.
func HasMeta(arg string) bool {
	return strings.ContainsAny(arg, "*?[{")
}

// Expand resolves a script argument to file paths. Plain paths and "-" are
// returned unchanged; globs are cleaned and matched against slash-separated
// paths, where "*" stays within one directory and "**" crosses directories.
func Expand(arg string) ([]string, error) {
	if arg == "-" || !HasMeta(arg) {
		return []string{arg}, nil
	}

	// WalkDir yields cleaned paths, so "./x/*.scope" must become "x/*.scope"
	pattern := path.Clean(filepath.ToSlash(arg))
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", arg, err)
	}

	var matches []string
	err = filepath.WalkDir(globRoot(pattern), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if g.Match(filepath.ToSlash(p)) {
			matches = append(matches, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no scripts match %q", arg)
	}
	sort.Strings(matches)
	return matches, nil
}

// globRoot is the longest leading directory of pattern without glob syntax.
func globRoot(pattern string) string {
	parts := strings.Split(pattern, "/")
	root := make([]string, 0, len(parts))
	for _, p := range parts[:len(parts)-1] {
		if HasMeta(p) {
			break
		}
		root = append(root, p)
	}
	r := strings.Join(root, "/")
	switch {
	case r == "" && strings.HasPrefix(pattern, "/"):
		return "/"
	case r == "":
		return "."
	}
	return filepath.FromSlash(r)
}
