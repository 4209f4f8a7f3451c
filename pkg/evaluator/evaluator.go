// Package evaluator executes validated scope scripts against a ScopeChain.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/thomasrohde/scoper/pkg/ast"
	"github.com/thomasrohde/scoper/pkg/diagnostics"
	"github.com/thomasrohde/scoper/pkg/symtab"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart   TraceEventType = "run_start"
	TraceRunEnd     TraceEventType = "run_end"
	TraceScopeOpen  TraceEventType = "scope_open"
	TraceScopeClose TraceEventType = "scope_close"
	TraceAssign     TraceEventType = "assign"
	TraceLookup     TraceEventType = "lookup"
	TraceError      TraceEventType = "error"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string         `json:"ts"`
	RunID     string         `json:"runId"`
	Event     TraceEventType `json:"event"`
	Span      *ast.Span      `json:"span,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// ExecOptions configures program execution.
type ExecOptions struct {
	// MaxDepth caps nesting; zero means unlimited.
	MaxDepth     int
	TableOptions []symtab.Option
	Trace        func(event TraceEvent)
	RunID        string
	Logger       *slog.Logger
}

// ExecResult holds the result of a program execution.
type ExecResult struct {
	Records  []Record
	Commands int
	MaxDepth int
	Duration time.Duration
}

// RuntimeError represents a fatal error during execution.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
	Err     error
}

func (e *RuntimeError) Error() string {
	return e.Message
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Diagnostic converts the error for display.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, "")
}

type evaluator struct {
	opts     ExecOptions
	log      *slog.Logger
	chain    *ScopeChain
	records  []Record
	commands int
	maxDepth int
}

func (ev *evaluator) emit(event TraceEventType, span *ast.Span, data map[string]any) {
	if ev.opts.Trace != nil {
		ev.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     ev.opts.RunID,
			Event:     event,
			Span:      span,
			Data:      data,
		})
	}
}

// Execute applies each command of program in order, exactly once. Unbound
// names and assigns outside any scope are reported as records; underflow,
// depth limit and cancellation stop the run. The records produced before a fatal error are returned with it.
// Every frame is released before Execute returns.
func Execute(ctx context.Context, program *ast.Program, opts ExecOptions) (*ExecResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ev := &evaluator{
		opts: opts,
		log:  logger.With("run", opts.RunID),
		chain: NewScopeChain(
			WithMaxDepth(opts.MaxDepth),
			WithTableOptions(opts.TableOptions...),
		),
	}
	start := time.Now()

	span := program.Span
	ev.emit(TraceRunStart, &span, map[string]any{"commands": len(program.Commands)})

	err := ev.run(ctx, program.Commands)
	ev.chain.Reset()

	result := &ExecResult{
		Records:  ev.records,
		Commands: ev.commands,
		MaxDepth: ev.maxDepth,
		Duration: time.Since(start),
	}

	if err != nil {
		var rtErr *RuntimeError
		if errors.As(err, &rtErr) {
			ev.emit(TraceError, rtErr.Span, map[string]any{"code": rtErr.Code, "message": rtErr.Message})
		}
		ev.log.Info("run aborted", "error", err, "commands", ev.commands)
	}
	ev.emit(TraceRunEnd, &span, map[string]any{"commands": ev.commands, "ok": err == nil})
	return result, err
}

func (ev *evaluator) run(ctx context.Context, cmds []ast.Command) error {
	for _, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			span := cmd.NodeSpan()
			return &RuntimeError{
				Code:    diagnostics.ECanceled,
				Message: fmt.Sprintf("run canceled: %s", err),
				Span:    &span,
				Err:     err,
			}
		}
		if err := ev.execute(cmd); err != nil {
			return err
		}
		ev.commands++
	}
	return nil
}

func (ev *evaluator) execute(cmd ast.Command) error {
	span := cmd.NodeSpan()
	switch c := cmd.(type) {
	case *ast.BeginCmd:
		return ev.executeBegin(&span)
	case *ast.EndCmd:
		return ev.executeEnd(&span)
	case *ast.AssignCmd:
		ev.executeAssign(c, &span)
		return nil
	case *ast.PrintCmd:
		ev.executePrint(c, &span)
		return nil
	}
	return fmt.Errorf("unsupported command %s", cmd.Kind())
}

func (ev *evaluator) executeBegin(span *ast.Span) error {
	if err := ev.chain.Open(); err != nil {
		return &RuntimeError{
			Code:    diagnostics.EScopeLimit,
			Message: fmt.Sprintf("cannot open scope at depth %d: %s", ev.chain.Depth()+1, err),
			Span:    span,
			Err:     err,
		}
	}
	depth := ev.chain.Depth()
	if depth > ev.maxDepth {
		ev.maxDepth = depth
	}
	ev.log.Debug("scope opened", "depth", depth)
	ev.emit(TraceScopeOpen, span, map[string]any{"depth": depth})
	return nil
}

func (ev *evaluator) executeEnd(span *ast.Span) error {
	depth := ev.chain.Depth()
	stats, _ := ev.chain.TableStats()
	if err := ev.chain.Close(); err != nil {
		return &RuntimeError{
			Code:    diagnostics.EScopeUnderflow,
			Message: "scope underflow: 'end' with no open scope",
			Span:    span,
			Err:     err,
		}
	}
	ev.log.Debug("scope closed", "depth", depth, "bindings", stats.Entries)
	ev.emit(TraceScopeClose, span, map[string]any{
		"depth":        depth,
		"bindings":     stats.Entries,
		"longestChain": stats.LongestChain,
	})
	return nil
}

func (ev *evaluator) executeAssign(c *ast.AssignCmd, span *ast.Span) {
	if err := ev.chain.Assign(c.Name, c.Value); err != nil {
		ev.log.Debug("assign dropped", "name", c.Name, "error", err)
		ev.records = append(ev.records, Record{
			Kind:  RecordNoScope,
			Name:  c.Name,
			Value: c.Value,
			Span:  span,
		})
		ev.emit(TraceAssign, span, map[string]any{"name": c.Name, "value": c.Value, "scoped": false})
		return
	}
	depth := ev.chain.Depth()
	ev.records = append(ev.records, Record{
		Kind:  RecordAssigned,
		Name:  c.Name,
		Value: c.Value,
		Depth: depth,
		Span:  span,
	})
	ev.emit(TraceAssign, span, map[string]any{"name": c.Name, "value": c.Value, "depth": depth, "scoped": true})
}

func (ev *evaluator) executePrint(c *ast.PrintCmd, span *ast.Span) {
	value, depth, found := ev.chain.Lookup(c.Name)
	if !found {
		hint := closestName(c.Name, ev.chain.VisibleNames())
		ev.records = append(ev.records, Record{
			Kind: RecordUnbound,
			Name: c.Name,
			Hint: hint,
			Span: span,
		})
		ev.emit(TraceLookup, span, map[string]any{"name": c.Name, "found": false})
		return
	}
	ev.records = append(ev.records, Record{
		Kind:  RecordValue,
		Name:  c.Name,
		Value: value,
		Depth: depth,
		Span:  span,
	})
	ev.emit(TraceLookup, span, map[string]any{
		"name":  c.Name,
		"found": true,
		"depth": depth,
		"hops":  ev.chain.Depth() - depth,
	})
}
