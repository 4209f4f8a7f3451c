package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/thomasrohde/scoper/pkg/diagnostics"
	"github.com/thomasrohde/scoper/pkg/evaluator"
)

// traceWriter appends trace events to an NDJSON file.
type traceWriter struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
	err error
}

func newTraceWriter(path string) (*traceWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &traceWriter{f: f, enc: json.NewEncoder(f)}, nil
}

// Write keeps the first encoding error and drops later events.
func (t *traceWriter) Write(event evaluator.TraceEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err == nil {
		t.err = t.enc.Encode(event)
	}
}

func (t *traceWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	closeErr := t.f.Close()
	if t.err != nil {
		return t.err
	}
	return closeErr
}

func (e *env) cmdTrace(args []string) int {
	o, err := parseOptions(args)
	if err != nil || len(o.files) != 1 {
		fmt.Fprintln(e.stderr, "usage: scoper trace <file.jsonl> [--json|--text]")
		return exitUsage
	}
	file := o.files[0]

	f, err := os.Open(file)
	if err != nil {
		e.printDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), false)
		return exitUsage
	}
	defer f.Close()

	summary, err := computeTraceSummary(f)
	if err != nil {
		e.printDiag(diagnostics.EIO, fmt.Sprintf("cannot read trace %s: %s", file, err), false)
		return exitUsage
	}

	if o.textOut {
		printTraceSummaryText(e.stdout, summary)
	} else {
		b, _ := json.Marshal(summary)
		fmt.Fprintln(e.stdout, string(b))
	}
	return exitOK
}

type TraceSummary struct {
	RunID        string         `json:"runId"`
	Runs         int            `json:"runs"`
	TotalEvents  int            `json:"totalEvents"`
	ScopesOpened int            `json:"scopesOpened"`
	ScopesClosed int            `json:"scopesClosed"`
	Assignments  int            `json:"assignments"`
	Unscoped     int            `json:"unscoped"`
	Lookups      int            `json:"lookups"`
	Misses       int            `json:"misses"`
	MaxDepth     int            `json:"maxDepth"`
	Failures     int            `json:"failures"`
	ErrorCodes   map[string]int `json:"errorCodes"`
	StartTime    string         `json:"startTime,omitempty"`
	EndTime      string         `json:"endTime,omitempty"`
	DurationMs   float64        `json:"durationMs"`
}

type traceEvent struct {
	Event string         `json:"event"`
	RunID string         `json:"runId"`
	TS    string         `json:"ts"`
	Data  map[string]any `json:"data,omitempty"`
}

// maxTraceLine bounds a single NDJSON event.
const maxTraceLine = 1 << 20

func computeTraceSummary(r io.Reader) (*TraceSummary, error) {
	summary := &TraceSummary{
		ErrorCodes: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTraceLine)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event traceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip invalid lines
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch evaluator.TraceEventType(event.Event) {
		case evaluator.TraceRunStart:
			summary.Runs++
			if summary.StartTime == "" {
				summary.StartTime = event.TS
			}
		case evaluator.TraceRunEnd:
			summary.EndTime = event.TS
		case evaluator.TraceScopeOpen:
			summary.ScopesOpened++
			if d, ok := event.Data["depth"].(float64); ok && int(d) > summary.MaxDepth {
				summary.MaxDepth = int(d)
			}
		case evaluator.TraceScopeClose:
			summary.ScopesClosed++
		case evaluator.TraceAssign:
			if scoped, ok := event.Data["scoped"].(bool); ok && !scoped {
				summary.Unscoped++
				continue
			}
			summary.Assignments++
		case evaluator.TraceLookup:
			summary.Lookups++
			if found, ok := event.Data["found"].(bool); ok && !found {
				summary.Misses++
			}
		case evaluator.TraceError:
			summary.Failures++
			if code, ok := event.Data["code"].(string); ok {
				summary.ErrorCodes[code]++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := parseTime(summary.StartTime)
		end, err2 := parseTime(summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}

	return summary, nil
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Runs: %d\n", s.Runs)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Scopes: %d opened, %d closed (max depth %d)\n", s.ScopesOpened, s.ScopesClosed, s.MaxDepth)
	if s.Unscoped > 0 {
		fmt.Fprintf(w, "Assignments: %d (%d with no scope)\n", s.Assignments, s.Unscoped)
	} else {
		fmt.Fprintf(w, "Assignments: %d\n", s.Assignments)
	}
	fmt.Fprintf(w, "Lookups: %d (%d misses)\n", s.Lookups, s.Misses)
	if s.Failures > 0 {
		codes := make([]string, 0, len(s.ErrorCodes))
		for code := range s.ErrorCodes {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		fmt.Fprintf(w, "Failures: %d\n", s.Failures)
		for _, code := range codes {
			fmt.Fprintf(w, "  %s: %d\n", code, s.ErrorCodes[code])
		}
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
