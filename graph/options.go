package graph

import (
	"time"

	"github.com/advisorhq/stateflow/graph/emit"
)

// Option is a functional option applied at Definition.Compile time.
//
// Example:
//
//	eng, err := def.Compile(st,
//	    graph.WithMaxSteps(100),
//	    graph.WithDefaultNodeTimeout(30*time.Second),
//	    graph.WithEmitter(emit.NewLogEmitter(os.Stdout, false)),
//	)
type Option func(*engineConfig) error

// engineConfig collects options before they are applied to an Engine.
type engineConfig struct {
	maxSteps           int
	defaultNodeTimeout time.Duration
	emitter            emit.Emitter
	metrics            *Metrics
}

// WithMaxSteps limits thread execution to prevent infinite loops.
//
// Workflow loops (A → B → A) are supported; MaxSteps is the safety net when a
// conditional exit is missing or misconfigured. When exceeded, Invoke/Resume
// return ErrMaxStepsExceeded and the last checkpoint remains the recovery
// point.
//
// Default: 0 (no limit, use with caution).
func WithMaxSteps(n int) Option {
	return func(cfg *engineConfig) error {
		cfg.maxSteps = n
		return nil
	}
}

// WithDefaultNodeTimeout sets the maximum execution time for nodes without a
// per-node override (Definition.SetNodeTimeout).
//
// A node exceeding its timeout fails with a NodeError coded "NODE_TIMEOUT";
// the previous checkpoint is untouched, so a retried call re-runs the node.
//
// Default: 0 (no timeout).
func WithDefaultNodeTimeout(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		cfg.defaultNodeTimeout = d
		return nil
	}
}

// WithEmitter wires an observability emitter into the engine. nil (the
// default) disables event emission.
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *engineConfig) error {
		cfg.emitter = e
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection.
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewMetrics(registry)
//	eng, err := def.Compile(st, graph.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
func WithMetrics(m *Metrics) Option {
	return func(cfg *engineConfig) error {
		cfg.metrics = m
		return nil
	}
}
