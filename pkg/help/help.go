// Package help holds the scoper quick reference and help topics.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/thomasrohde/scoper/pkg/diagnostics"
)

// Version is printed in the quick reference.
const Version = "v0.1"

// QUICKREF is printed by `scoper help` with no topic.
var QUICKREF = `scoper ` + Version + ` - block-scoped variable interpreter

Usage: scoper <command> [options]

Commands:
  run <file|glob|->   execute scripts and print their output
  check <file>        parse and validate without executing
  fmt <file>          re-indent a script (--write to update in place)
  trace <file.jsonl>  summarize a trace written by run --trace
  watch <path...>     re-run scripts whenever they change
  history             list recorded runs
  help [topic]        show this reference or a topic

Topics: ` + strings.Join(TopicList, ", ") + `
`

// TopicList is the display order of Topics.
var TopicList = []string{"syntax", "scopes", "output", "config", "diagnostics", "examples"}

// Topics maps topic names to their text.
var Topics = map[string]string{
	"syntax": `Syntax

One command per line. Words are separated by spaces or tabs.

  begin               open a new scope
  end                 close the innermost scope
  assign <name> <int> bind name in the innermost scope
  print <name>        print the nearest binding of name

Blank lines are ignored. A line whose first word starts with '#' is a
comment. Keywords are case-sensitive. Integers are decimal with an
optional sign.
`,
	"scopes": `Scopes

Every begin pushes a frame; every end pops it and drops its bindings.
print searches from the innermost frame outward and reports the first
binding found, so an inner assign shadows an outer one until its end.
assign always writes the innermost frame and never touches outer ones.
An assign with no open scope is reported (E_NO_SCOPE) and dropped; the
script keeps running.

Closing a scope that was never opened is fatal (E_SCOPE_UNDERFLOW).
With --max-depth N, opening scope N+1 is fatal (E_SCOPE_LIMIT).
`,
	"output": `Output

--format text   Assigned x = 10 / Value of variable x is 10 on stdout;
                missing names and unscoped assigns go to stderr
--format json   a JSON array of records {kind, name, value, depth}
--format yaml   the same records as a YAML sequence
--pretty        colors in text mode, indentation in json mode
`,
	"config": `Configuration

scoper reads ./scoper.toml, or the file given with --config.

  [table]   buckets = 101, hash = "polynomial" | "xxhash"
  [scope]   max_depth = 0 (unbounded)
  [output]  format = "text", pretty = false
  [log]     level = "warn"
  [history] enabled = false, path = "data/history.db"
  [watch]   debounce = "200ms", patterns = ["*.scope", "*.txt"]
  [metrics] textfile = ""

Command-line flags override the file.
`,
	"diagnostics": "Diagnostics\n\n" + DiagnosticIndex(),
	"examples": `Examples

  begin
    assign a 10
    begin
      assign a 20
      print a        # Value of variable a is 20
    end
    print a          # Value of variable a is 10
  end

  scoper run demo.scope --format json --pretty
  scoper run 'scripts/**.scope' --trace run.jsonl
  scoper trace run.jsonl --text
`,
}

var codeDocs = []struct {
	code string
	exit int
	doc  string
}{
	{diagnostics.ELex, 2, "source contains a NUL byte or invalid UTF-8"},
	{diagnostics.EUnknownCmd, 2, "line does not start with a known command"},
	{diagnostics.EArity, 2, "command has the wrong number of arguments"},
	{diagnostics.EBadInt, 2, "assign value is not a decimal integer"},
	{diagnostics.EEndWithoutBegin, 2, "end with no matching begin"},
	{diagnostics.EUnbalanced, 2, "begin never closed"},
	{diagnostics.EUnbound, 0, "print of a name with no visible binding"},
	{diagnostics.ENoScope, 0, "assign with no open scope; the value is dropped"},
	{diagnostics.EScopeUnderflow, 4, "end executed with no open scope"},
	{diagnostics.EScopeLimit, 4, "scope nesting exceeded the configured maximum"},
	{diagnostics.ECanceled, 4, "run interrupted"},
	{diagnostics.EIO, 1, "file could not be read or written"},
	{diagnostics.EConfig, 1, "configuration file is invalid"},
	{diagnostics.EHistory, 1, "run history could not be opened or written"},
}

// DiagnosticIndex lists every diagnostic code with its exit status.
func DiagnosticIndex() string {
	var b strings.Builder
	for _, c := range codeDocs {
		fmt.Fprintf(&b, "  %-20s exit %d  %s\n", c.code, c.exit, c.doc)
	}
	fmt.Fprintf(&b, "\nTotal: %d codes\n", len(codeDocs))
	return b.String()
}

// MatchTopic resolves an exact topic name or an unambiguous prefix.
func MatchTopic(query string) (string, string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[query]; ok {
		return query, content, nil
	}

	var matches []string
	for _, name := range TopicList {
		if query != "" && strings.HasPrefix(name, query) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		if ranks := fuzzy.RankFindFold(query, TopicList); len(ranks) > 0 {
			sort.Sort(ranks)
			return "", "", fmt.Errorf("unknown help topic %q (did you mean %q?)", query, ranks[0].Target)
		}
		return "", "", fmt.Errorf("unknown help topic %q", query)
	default:
		return "", "", fmt.Errorf("ambiguous help topic %q: %s", query, strings.Join(matches, ", "))
	}
}
