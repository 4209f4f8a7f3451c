// Package runtime provides the top-level scoper runtime orchestrator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thomasrohde/scoper/pkg/diagnostics"
	"github.com/thomasrohde/scoper/pkg/evaluator"
	"github.com/thomasrohde/scoper/pkg/formatter"
	"github.com/thomasrohde/scoper/pkg/history"
	"github.com/thomasrohde/scoper/pkg/metrics"
	"github.com/thomasrohde/scoper/pkg/parser"
	"github.com/thomasrohde/scoper/pkg/symtab"
	"github.com/thomasrohde/scoper/pkg/validator"
)

// ErrHistory marks a run that executed but could not be recorded.
var ErrHistory = errors.New("history")

// Result holds the outcome of a program execution.
type Result struct {
	RunID    string
	Records  []evaluator.Record
	Commands int
	MaxDepth int
	Duration time.Duration
}

// Runtime wires together all scoper components for program execution.
type Runtime struct {
	runID     string
	trace     func(event evaluator.TraceEvent)
	logger    *slog.Logger
	maxDepth  int
	tableOpts []symtab.Option
	metrics   *metrics.Collector
	history   *history.Store
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithRunID fixes the run ID for trace events. Without it every run gets a
// fresh UUID.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// WithMaxDepth caps scope nesting; zero leaves it unbounded.
func WithMaxDepth(n int) Option {
	return func(rt *Runtime) {
		rt.maxDepth = n
	}
}

// WithBuckets sets the bucket count of every frame's table.
func WithBuckets(n int) Option {
	return func(rt *Runtime) {
		rt.tableOpts = append(rt.tableOpts, symtab.WithBuckets(n))
	}
}

// WithHash sets the bucket hash of every frame's table.
func WithHash(h symtab.HashFunc) Option {
	return func(rt *Runtime) {
		rt.tableOpts = append(rt.tableOpts, symtab.WithHash(h))
	}
}

// WithMetrics feeds every trace event to c.
func WithMetrics(c *metrics.Collector) Option {
	return func(rt *Runtime) {
		rt.metrics = c
	}
}

// WithHistory records every executed run in s.
func WithHistory(s *history.Store) Option {
	return func(rt *Runtime) {
		rt.history = s
	}
}

// New creates a new Runtime with the given options.
func New(opts ...Option) *Runtime {
	rt := &Runtime{logger: slog.Default()}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Run parses, validates, and executes a scope script. A fatal runtime error
// is returned together with the records produced before it.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}

	vDiags := validator.Validate(program)
	if len(vDiags) > 0 {
		return nil, &DiagnosticError{Diagnostics: vDiags}
	}

	runID := rt.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	started := time.Now().UTC()

	exec, err := evaluator.Execute(ctx, program, rt.buildExecOptions(runID))
	result := &Result{
		RunID:    runID,
		Records:  exec.Records,
		Commands: exec.Commands,
		MaxDepth: exec.MaxDepth,
		Duration: exec.Duration,
	}
	if rt.metrics != nil {
		rt.metrics.ObserveRun(exec.Duration)
	}

	if rt.history != nil {
		run := history.Run{
			ID:       runID,
			File:     filename,
			Started:  started,
			Duration: exec.Duration,
			OK:       err == nil,
			Commands: exec.Commands,
			MaxDepth: exec.MaxDepth,
			Records:  exec.Records,
		}
		var rtErr *evaluator.RuntimeError
		if errors.As(err, &rtErr) {
			run.ErrorCode = rtErr.Code
		}
		if saveErr := rt.history.Save(ctx, run); saveErr != nil {
			rt.logger.Warn("could not record run", "run", runID, "error", saveErr)
			if err == nil {
				err = fmt.Errorf("%w: %v", ErrHistory, saveErr)
			}
		}
	}
	return result, err
}

// Check parses and validates a scope script without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return diags
	}
	return validator.Validate(program)
}

// Format parses and formats a scope script.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.Format(program), nil
}

func (rt *Runtime) buildExecOptions(runID string) evaluator.ExecOptions {
	trace := rt.trace
	if rt.metrics != nil {
		observe := rt.metrics.Observe
		user := rt.trace
		trace = func(ev evaluator.TraceEvent) {
			observe(ev)
			if user != nil {
				user(ev)
			}
		}
	}
	return evaluator.ExecOptions{
		MaxDepth:     rt.maxDepth,
		TableOptions: rt.tableOpts,
		Trace:        trace,
		RunID:        runID,
		Logger:       rt.logger,
	}
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}
