package runtime_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/scoper/pkg/diagnostics"
	"github.com/thomasrohde/scoper/pkg/evaluator"
	"github.com/thomasrohde/scoper/pkg/history"
	"github.com/thomasrohde/scoper/pkg/metrics"
	"github.com/thomasrohde/scoper/pkg/runtime"
	"github.com/thomasrohde/scoper/pkg/symtab"
)

const nested = `begin
assign a 10
begin
assign a 20
print a
end
print a
end
`

func TestRunRecords(t *testing.T) {
	rt := runtime.New()
	res, err := rt.Run(context.Background(), nested, "nested.scope")
	require.NoError(t, err)

	require.Len(t, res.Records, 4)
	assert.Equal(t, 20, res.Records[2].Value)
	assert.Equal(t, 10, res.Records[3].Value)
	assert.Equal(t, 8, res.Commands)
	assert.Equal(t, 2, res.MaxDepth)

	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err, "default run id is a uuid")
}

func TestRunFreshIDPerRun(t *testing.T) {
	rt := runtime.New()
	a, err := rt.Run(context.Background(), "begin\nend\n", "a")
	require.NoError(t, err)
	b, err := rt.Run(context.Background(), "begin\nend\n", "b")
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRunDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{"parse", "begin\nassing x 1\nend\n", diagnostics.EUnknownCmd},
		{"validate", "begin\n", diagnostics.EUnbalanced},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := runtime.New().Run(context.Background(), tt.src, "bad.scope")
			assert.Nil(t, res)
			var de *runtime.DiagnosticError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.code, de.Diagnostics[0].Code)
			assert.Contains(t, de.Error(), tt.code)
		})
	}
}

func TestRunScopeLimit(t *testing.T) {
	rt := runtime.New(runtime.WithMaxDepth(1))
	res, err := rt.Run(context.Background(), "begin\nassign x 1\nbegin\nend\nend\n", "deep.scope")
	var rtErr *evaluator.RuntimeError
	require.True(t, errors.As(err, &rtErr))
	assert.Equal(t, diagnostics.EScopeLimit, rtErr.Code)
	require.NotNil(t, res)
	assert.Len(t, res.Records, 1)
}

func TestRunTableOptions(t *testing.T) {
	rt := runtime.New(runtime.WithBuckets(1), runtime.WithHash(symtab.XXHash))
	res, err := rt.Run(context.Background(), nested, "nested.scope")
	require.NoError(t, err)
	assert.Len(t, res.Records, 4)
}

func TestRunTraceAndMetrics(t *testing.T) {
	var events []evaluator.TraceEvent
	c := metrics.New()
	rt := runtime.New(
		runtime.WithRunID("fixed"),
		runtime.WithTrace(func(ev evaluator.TraceEvent) { events = append(events, ev) }),
		runtime.WithMetrics(c),
	)
	res, err := rt.Run(context.Background(), nested, "nested.scope")
	require.NoError(t, err)
	assert.Equal(t, "fixed", res.RunID)

	require.NotEmpty(t, events)
	assert.Equal(t, evaluator.TraceRunStart, events[0].Event)
	assert.Equal(t, evaluator.TraceRunEnd, events[len(events)-1].Event)
	for _, ev := range events {
		assert.Equal(t, "fixed", ev.RunID)
	}
	assert.Equal(t, float64(2), prom.ToFloat64(c.ScopesOpened))
	assert.Equal(t, float64(2), prom.ToFloat64(c.Lookups.WithLabelValues("hit")))
}

func TestRunHistory(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	defer store.Close()

	rt := runtime.New(runtime.WithHistory(store))
	ctx := context.Background()
	_, err = rt.Run(ctx, nested, "ok.scope")
	require.NoError(t, err)
	_, err = rt.Run(ctx, "begin\nend\nend\n", "under.scope")
	require.Error(t, err, "validator rejects a stray end")

	runs, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1, "only executed runs are recorded")
	assert.Equal(t, "ok.scope", runs[0].File)
	assert.True(t, runs[0].OK)
	assert.Len(t, runs[0].Records, 4)
}

func TestRunHistoryRecordsFailure(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	defer store.Close()

	rt := runtime.New(runtime.WithHistory(store), runtime.WithMaxDepth(1))
	_, err = rt.Run(context.Background(), "begin\nbegin\nend\nend\n", "deep.scope")
	require.Error(t, err)

	runs, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.False(t, runs[0].OK)
	assert.Equal(t, diagnostics.EScopeLimit, runs[0].ErrorCode)
}

func TestRunHistorySaveFailure(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	rt := runtime.New(runtime.WithHistory(store))
	res, err := rt.Run(context.Background(), nested, "ok.scope")
	require.NotNil(t, res)
	assert.ErrorIs(t, err, runtime.ErrHistory)
}

func TestCheck(t *testing.T) {
	rt := runtime.New()
	assert.Empty(t, rt.Check(nested, "nested.scope"))
	diags := rt.Check("end\n", "x.scope")
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostics.EEndWithoutBegin, diags[0].Code)
}

func TestFormat(t *testing.T) {
	rt := runtime.New()
	out, err := rt.Format("begin\nprint x\nend\n", "f.scope")
	require.NoError(t, err)
	assert.Equal(t, "begin\n  print x\nend\n", out)

	_, err = rt.Format("bogus\n", "f.scope")
	var de *runtime.DiagnosticError
	assert.True(t, errors.As(err, &de))
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runtime.New().Run(ctx, nested, "nested.scope")
	assert.ErrorIs(t, err, context.Canceled)
}
