package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/thomasrohde/scoper/pkg/diagnostics"
	"github.com/thomasrohde/scoper/pkg/history"
	"github.com/thomasrohde/scoper/pkg/report"
	"github.com/thomasrohde/scoper/pkg/runtime"
	"github.com/thomasrohde/scoper/pkg/watch"
)

// cmdWatch runs every target once, then again on each change, until the
// context is canceled.
func (e *env) cmdWatch(args []string) int {
	o, err := parseOptions(args)
	if err != nil || len(o.files) == 0 {
		fmt.Fprintln(e.stderr, "usage: scoper watch <file|dir|glob>... [--format text|json|yaml] [--pretty] [--config <path>] [--verbose]")
		return exitUsage
	}

	cfg, code := e.loadConfig(o)
	if code != exitOK {
		return code
	}
	pretty := cfg.Output.Pretty
	logger := e.newLogger(cfg)

	matcher, err := watch.NewMatcher(cfg.Watch.Patterns)
	if err != nil {
		e.printDiag(diagnostics.EConfig, err.Error(), pretty)
		return exitUsage
	}

	var targets []string
	for _, arg := range o.files {
		if arg == "-" {
			fmt.Fprintln(e.stderr, "watch cannot read from stdin")
			return exitUsage
		}
		matches, err := watch.Expand(arg)
		if err != nil {
			e.printDiag(diagnostics.EIO, err.Error(), pretty)
			return exitUsage
		}
		targets = append(targets, matches...)
	}

	var opts []runtime.Option
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			e.printDiag(diagnostics.EHistory, err.Error(), pretty)
			return exitUsage
		}
		defer store.Close()
		opts = append(opts, runtime.WithHistory(store))
	}
	rt := newRuntime(cfg, logger, opts...)
	w := &report.Writer{Out: e.stdout, Err: e.stderr, Format: cfg.Output.Format, Pretty: pretty}

	runPath := func(path string) {
		if cfg.Output.Format == report.FormatText {
			fmt.Fprintf(e.stdout, "==> %s <==\n", path)
		}
		e.runFile(rt, w, path, pretty)
	}

	for _, target := range targets {
		scripts, err := scriptsIn(target, matcher)
		if err != nil {
			e.printDiag(diagnostics.EIO, fmt.Sprintf("cannot read %s: %s", target, err), pretty)
			return exitUsage
		}
		for _, s := range scripts {
			runPath(s)
		}
	}

	watcher, err := watch.New(cfg.Watch.Debounce, matcher, func(paths []string) {
		for _, p := range paths {
			runPath(p)
		}
	}, logger)
	if err != nil {
		e.printDiag(diagnostics.EIO, err.Error(), pretty)
		return exitUsage
	}
	for _, target := range targets {
		if err := watcher.Add(target); err != nil {
			_ = watcher.Close()
			e.printDiag(diagnostics.EIO, err.Error(), pretty)
			return exitUsage
		}
	}

	logger.Info("watching", "targets", targets, "patterns", matcher.Patterns())
	if err := watcher.Run(e.ctx); err != nil {
		fmt.Fprintln(e.stderr, err)
		return exitUsage
	}
	return exitOK
}

// scriptsIn lists the matching scripts directly inside a directory, or the
// target itself when it is a file.
func scriptsIn(target string, m *watch.Matcher) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{target}, nil
	}
	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, err
	}
	var scripts []string
	for _, entry := range entries {
		if entry.IsDir() || !m.Match(entry.Name()) {
			continue
		}
		scripts = append(scripts, filepath.Join(target, entry.Name()))
	}
	sort.Strings(scripts)
	return scripts, nil
}
