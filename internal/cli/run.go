package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/thomasrohde/scoper/pkg/diagnostics"
	"github.com/thomasrohde/scoper/pkg/evaluator"
	"github.com/thomasrohde/scoper/pkg/formatter"
	"github.com/thomasrohde/scoper/pkg/history"
	"github.com/thomasrohde/scoper/pkg/metrics"
	"github.com/thomasrohde/scoper/pkg/report"
	"github.com/thomasrohde/scoper/pkg/runtime"
)

const runUsage = "usage: scoper run <file|glob|-> [--format text|json|yaml] [--pretty] [--trace <path>] [--config <path>] [--verbose] [--buckets N] [--hash polynomial|xxhash] [--max-depth N] [--history <db>] [--metrics <path>]"

func (e *env) cmdRun(args []string) int {
	o, err := parseOptions(args)
	if err != nil || len(o.files) == 0 {
		if err != nil {
			fmt.Fprintln(e.stderr, err)
		}
		fmt.Fprintln(e.stderr, runUsage)
		return exitUsage
	}

	cfg, code := e.loadConfig(o)
	if code != exitOK {
		return code
	}
	pretty := cfg.Output.Pretty
	logger := e.newLogger(cfg)

	files, err := expandAll(o.files)
	if err != nil {
		e.printDiag(diagnostics.EIO, err.Error(), pretty)
		return exitUsage
	}

	var opts []runtime.Option
	var collector *metrics.Collector
	if cfg.Metrics.Textfile != "" {
		collector = metrics.New()
		opts = append(opts, runtime.WithMetrics(collector))
	}
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			e.printDiag(diagnostics.EHistory, err.Error(), pretty)
			return exitUsage
		}
		defer store.Close()
		opts = append(opts, runtime.WithHistory(store))
	}
	if o.tracePath != "" {
		tw, err := newTraceWriter(o.tracePath)
		if err != nil {
			e.printDiag(diagnostics.EIO, fmt.Sprintf("cannot write trace: %s", err), pretty)
			return exitUsage
		}
		defer func() {
			if err := tw.Close(); err != nil {
				logger.Warn("trace file incomplete", "path", o.tracePath, "error", err)
			}
		}()
		opts = append(opts, runtime.WithTrace(tw.Write))
	}

	rt := newRuntime(cfg, logger, opts...)
	w := &report.Writer{Out: e.stdout, Err: e.stderr, Format: cfg.Output.Format, Pretty: pretty}

	exit := exitOK
	for _, file := range files {
		if len(files) > 1 && cfg.Output.Format == report.FormatText {
			fmt.Fprintf(e.stdout, "==> %s <==\n", file)
		}
		if code := e.runFile(rt, w, file, pretty); code > exit {
			exit = code
		}
		if e.ctx.Err() != nil {
			break
		}
	}

	if collector != nil {
		if err := collector.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			e.printDiag(diagnostics.EIO, fmt.Sprintf("cannot write metrics: %s", err), pretty)
			if exit == exitOK {
				exit = exitUsage
			}
		}
	}
	return exit
}

// runFile executes one script and writes its records, including those
// produced before a fatal error.
func (e *env) runFile(rt *runtime.Runtime, w *report.Writer, file string, pretty bool) int {
	source, filename, err := e.readSource(file)
	if err != nil {
		e.printDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), pretty)
		return exitUsage
	}

	result, runErr := rt.Run(e.ctx, source, filename)
	if result != nil {
		if err := w.Write(result.Records); err != nil {
			fmt.Fprintf(e.stderr, "error writing output: %s\n", err)
			return exitUsage
		}
	}
	return e.reportRunError(runErr, pretty)
}

func (e *env) reportRunError(err error, pretty bool) int {
	if err == nil {
		return exitOK
	}
	var diagErr *runtime.DiagnosticError
	var rtErr *evaluator.RuntimeError
	switch {
	case errors.As(err, &diagErr):
		e.printDiags(diagErr.Diagnostics, pretty)
		return exitDiagnostics
	case errors.As(err, &rtErr):
		e.printDiags([]diagnostics.Diagnostic{rtErr.Diagnostic()}, pretty)
		return exitRuntime
	case errors.Is(err, runtime.ErrHistory):
		e.printDiag(diagnostics.EHistory, err.Error(), pretty)
		return exitUsage
	default:
		fmt.Fprintln(e.stderr, err.Error())
		return exitRuntime
	}
}

func (e *env) cmdCheck(args []string) int {
	o, err := parseOptions(args)
	if err != nil || len(o.files) == 0 {
		fmt.Fprintln(e.stderr, "usage: scoper check <file|glob|-> [--pretty]")
		return exitUsage
	}

	files, err := expandAll(o.files)
	if err != nil {
		e.printDiag(diagnostics.EIO, err.Error(), o.pretty)
		return exitUsage
	}

	rt := runtime.New()
	exit := exitOK
	for _, file := range files {
		source, filename, err := e.readSource(file)
		if err != nil {
			e.printDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), o.pretty)
			exit = max(exit, exitUsage)
			continue
		}
		if diags := rt.Check(source, filename); len(diags) > 0 {
			e.printDiags(diags, o.pretty)
			exit = max(exit, exitDiagnostics)
		}
	}
	if exit != exitOK {
		return exit
	}

	if o.pretty {
		fmt.Fprintln(e.stdout, "No errors found.")
	} else {
		fmt.Fprintln(e.stdout, "[]")
	}
	return exitOK
}

func (e *env) cmdFmt(args []string) int {
	o, err := parseOptions(args)
	if err != nil || len(o.files) != 1 || o.files[0] == "-" {
		fmt.Fprintln(e.stderr, "usage: scoper fmt <file> [--write]")
		return exitUsage
	}
	file := o.files[0]

	sourceBytes, err := os.ReadFile(file)
	if err != nil {
		e.printDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), false)
		return exitUsage
	}
	source := string(sourceBytes)

	formatted, fmtErr := runtime.New().Format(source, file)
	if fmtErr != nil {
		var diagErr *runtime.DiagnosticError
		if errors.As(fmtErr, &diagErr) {
			e.printDiags(diagErr.Diagnostics, false)
			return exitDiagnostics
		}
		fmt.Fprintln(e.stderr, fmtErr.Error())
		return exitDiagnostics
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(e.stderr, "warning: comments are not preserved by the formatter")
	}

	if o.write {
		if err := os.WriteFile(file, []byte(formatted), 0o644); err != nil {
			fmt.Fprintf(e.stderr, "error writing file: %s\n", err)
			return exitUsage
		}
		return exitOK
	}
	fmt.Fprint(e.stdout, formatted)
	return exitOK
}
