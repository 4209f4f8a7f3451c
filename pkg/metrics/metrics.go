// Package metrics turns interpreter trace events into Prometheus metrics.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/thomasrohde/scoper/pkg/evaluator"
)

// Collector owns a private registry; several collectors may live in one
// process.
type Collector struct {
	registry *prometheus.Registry
	mu       sync.Mutex
	deepest  int

	Runs          *prometheus.CounterVec
	Commands      prometheus.Counter
	ScopesOpened  prometheus.Counter
	ScopesClosed  prometheus.Counter
	Assignments   prometheus.Counter
	Unscoped      prometheus.Counter
	Lookups       *prometheus.CounterVec
	Errors        *prometheus.CounterVec
	MaxDepth      prometheus.Gauge
	ScopeBindings prometheus.Histogram
	RunDuration   prometheus.Histogram
}

// New registers every scoper metric on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scoper_runs_total",
			Help: "Total number of script runs by outcome.",
		}, []string{"outcome"}),
		Commands: factory.NewCounter(prometheus.CounterOpts{
			Name: "scoper_commands_total",
			Help: "Total number of commands executed.",
		}),
		ScopesOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "scoper_scopes_opened_total",
			Help: "Total number of scopes opened by 'begin'.",
		}),
		ScopesClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "scoper_scopes_closed_total",
			Help: "Total number of scopes closed by 'end'.",
		}),
		Assignments: factory.NewCounter(prometheus.CounterOpts{
			Name: "scoper_assignments_total",
			Help: "Total number of bindings written.",
		}),
		Unscoped: factory.NewCounter(prometheus.CounterOpts{
			Name: "scoper_assignments_unscoped_total",
			Help: "Total number of assigns dropped because no scope was open.",
		}),
		Lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scoper_lookups_total",
			Help: "Total number of name lookups by result.",
		}, []string{"result"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scoper_runtime_errors_total",
			Help: "Total number of fatal runtime errors by code.",
		}, []string{"code"}),
		MaxDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scoper_scope_depth_max",
			Help: "Deepest scope nesting observed.",
		}),
		ScopeBindings: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scoper_scope_bindings",
			Help:    "Number of bindings held by a scope when it closed.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scoper_run_seconds",
			Help:    "Time spent executing a script.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Registry exposes the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Observe updates metrics from a single trace event. It has the signature
// of an evaluator trace callback.
func (c *Collector) Observe(event evaluator.TraceEvent) {
	switch event.Event {
	case evaluator.TraceScopeOpen:
		c.ScopesOpened.Inc()
		c.Commands.Inc()
		if d, ok := intField(event.Data, "depth"); ok {
			c.raiseMaxDepth(d)
		}
	case evaluator.TraceScopeClose:
		c.ScopesClosed.Inc()
		c.Commands.Inc()
		if n, ok := intField(event.Data, "bindings"); ok {
			c.ScopeBindings.Observe(float64(n))
		}
	case evaluator.TraceAssign:
		c.Commands.Inc()
		if scoped, _ := event.Data["scoped"].(bool); !scoped {
			c.Unscoped.Inc()
			return
		}
		c.Assignments.Inc()
	case evaluator.TraceLookup:
		c.Commands.Inc()
		result := "miss"
		if found, _ := event.Data["found"].(bool); found {
			result = "hit"
		}
		c.Lookups.WithLabelValues(result).Inc()
	case evaluator.TraceError:
		code, _ := event.Data["code"].(string)
		c.Errors.WithLabelValues(code).Inc()
	case evaluator.TraceRunEnd:
		outcome := "failed"
		if ok, _ := event.Data["ok"].(bool); ok {
			outcome = "ok"
		}
		c.Runs.WithLabelValues(outcome).Inc()
	}
}

// ObserveRun records the wall time of a finished run.
func (c *Collector) ObserveRun(d time.Duration) {
	c.RunDuration.Observe(d.Seconds())
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// the gauge only ratchets up across runs
func (c *Collector) raiseMaxDepth(d int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d <= c.deepest {
		return
	}
	c.deepest = d
	c.MaxDepth.Set(float64(d))
}

func intField(data map[string]any, key string) (int, bool) {
	switch v := data[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
