// Package cli implements the scoper command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/thomasrohde/scoper/internal/config"
	"github.com/thomasrohde/scoper/pkg/diagnostics"
	"github.com/thomasrohde/scoper/pkg/help"
	"github.com/thomasrohde/scoper/pkg/runtime"
	"github.com/thomasrohde/scoper/pkg/watch"
)

// Exit statuses.
const (
	exitOK          = 0
	exitUsage       = 1
	exitDiagnostics = 2
	exitRuntime     = 4
)

type env struct {
	ctx    context.Context
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Run executes one scoper invocation and returns its exit status.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	e := &env{ctx: ctx, stdin: stdin, stdout: stdout, stderr: stderr}

	if len(args) < 1 {
		fmt.Fprintln(stderr, "usage: scoper <command> [options]")
		fmt.Fprintln(stderr, "commands: run, check, fmt, trace, watch, history, help")
		return exitUsage
	}

	cmd := args[0]
	switch cmd {
	case "run":
		return e.cmdRun(args[1:])
	case "check":
		return e.cmdCheck(args[1:])
	case "fmt":
		return e.cmdFmt(args[1:])
	case "trace":
		return e.cmdTrace(args[1:])
	case "watch":
		return e.cmdWatch(args[1:])
	case "history":
		return e.cmdHistory(args[1:])
	case "help", "--help", "-h":
		return e.cmdHelp(args[1:])
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		return exitUsage
	}
}

// options collects the flags of every subcommand; each command reads the
// ones it understands.
type options struct {
	files       []string
	format      string
	pretty      bool
	tracePath   string
	configPath  string
	verbose     bool
	buckets     int
	hash        string
	maxDepth    int
	historyPath string
	metricsPath string
	write       bool
	limit       int
	jsonOut     bool
	textOut     bool
}

func parseOptions(args []string) (*options, error) {
	o := &options{maxDepth: -1}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--pretty":
			o.pretty = true
		case "--verbose", "-v":
			o.verbose = true
		case "--write":
			o.write = true
		case "--json":
			o.jsonOut = true
		case "--text":
			o.textOut = true
		case "--format", "--trace", "--config", "--hash", "--history", "--db",
			"--metrics", "--buckets", "--max-depth", "--limit":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a value", arg)
			}
			i++
			if err := o.set(arg, args[i]); err != nil {
				return nil, err
			}
		default:
			if strings.HasPrefix(arg, "-") && arg != "-" {
				return nil, fmt.Errorf("unknown flag %s", arg)
			}
			o.files = append(o.files, arg)
		}
	}
	return o, nil
}

func (o *options) set(flag, value string) error {
	switch flag {
	case "--format":
		o.format = value
	case "--trace":
		o.tracePath = value
	case "--config":
		o.configPath = value
	case "--hash":
		o.hash = value
	case "--history", "--db":
		o.historyPath = value
	case "--metrics":
		o.metricsPath = value
	default:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s expects an integer, got %q", flag, value)
		}
		switch flag {
		case "--buckets":
			o.buckets = n
		case "--max-depth":
			o.maxDepth = n
		case "--limit":
			o.limit = n
		}
	}
	return nil
}

// applyTo overrides cfg with every flag that was given.
func (o *options) applyTo(cfg *config.Config) {
	if o.format != "" {
		cfg.Output.Format = o.format
	}
	if o.pretty {
		cfg.Output.Pretty = true
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	if o.buckets != 0 {
		cfg.Table.Buckets = o.buckets
	}
	if o.hash != "" {
		cfg.Table.Hash = o.hash
	}
	if o.maxDepth >= 0 {
		cfg.Scope.MaxDepth = o.maxDepth
	}
	if o.historyPath != "" {
		cfg.History.Enabled = true
		cfg.History.Path = o.historyPath
	}
	if o.metricsPath != "" {
		cfg.Metrics.Textfile = o.metricsPath
	}
}

func (e *env) loadConfig(o *options) (*config.Config, int) {
	cfg, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		e.printDiag(diagnostics.EConfig, fmt.Sprintf("cannot load config: %s", err), o.pretty)
		return nil, exitUsage
	}
	o.applyTo(cfg)
	if err := cfg.Validate(); err != nil {
		e.printDiag(diagnostics.EConfig, fmt.Sprintf("invalid option: %s", err), o.pretty)
		return nil, exitUsage
	}
	return cfg, exitOK
}

func (e *env) newLogger(cfg *config.Config) *slog.Logger {
	lvl, _ := cfg.Log.SlogLevel()
	return slog.New(slog.NewTextHandler(e.stderr, &slog.HandlerOptions{Level: lvl}))
}

func newRuntime(cfg *config.Config, logger *slog.Logger, extra ...runtime.Option) *runtime.Runtime {
	opts := []runtime.Option{
		runtime.WithLogger(logger),
		runtime.WithMaxDepth(cfg.Scope.MaxDepth),
		runtime.WithBuckets(cfg.Table.Buckets),
		runtime.WithHash(cfg.Table.HashFunc()),
	}
	return runtime.New(append(opts, extra...)...)
}

func (e *env) printDiag(code, msg string, pretty bool) {
	diag := diagnostics.MakeDiag(code, msg, nil, "")
	e.printDiags([]diagnostics.Diagnostic{diag}, pretty)
}

func (e *env) printDiags(diags []diagnostics.Diagnostic, pretty bool) {
	fmt.Fprintln(e.stderr, diagnostics.FormatDiagnostics(diags, pretty))
}

func (e *env) readSource(file string) (string, string, error) {
	if file == "-" {
		data, err := io.ReadAll(e.stdin)
		if err != nil {
			return "", "", err
		}
		return string(data), "<stdin>", nil
	}
	source, err := os.ReadFile(file)
	if err != nil {
		return "", "", err
	}
	return string(source), file, nil
}

// expandAll resolves every glob argument in order.
func expandAll(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		matches, err := watch.Expand(arg)
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return files, nil
}

func (e *env) cmdHelp(args []string) int {
	topic := ""
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if topic == "" {
		fmt.Fprint(e.stdout, help.QUICKREF)
		return exitOK
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(e.stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return exitUsage
	}
	fmt.Fprint(e.stdout, content)
	return exitOK
}
