package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus-compatible metrics for thread execution.
//
// Metrics exposed (namespace "stateflow"):
//
//   - inflight_nodes (gauge): nodes currently executing across all threads.
//   - node_latency_ms (histogram): node execution duration, labeled by
//     node_id and status (success, error, suspended).
//   - interrupts_total (counter): suspensions, labeled by interrupt kind.
//   - resumes_total (counter): resume calls that reached a pending node.
//   - checkpoint_failures_total (counter): store failures, labeled by op.
//
// Per-thread labels are deliberately avoided: thread IDs are unbounded and
// would explode series cardinality.
type Metrics struct {
	inflightNodes      prometheus.Gauge
	nodeLatency        *prometheus.HistogramVec
	interrupts         *prometheus.CounterVec
	resumes            prometheus.Counter
	checkpointFailures *prometheus.CounterVec
}

// NewMetrics creates and registers all engine metrics with the provided
// registry (prometheus.DefaultRegisterer when nil).
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		inflightNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "stateflow",
			Name:      "inflight_nodes",
			Help:      "Current number of nodes executing across all threads",
		}),
		nodeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stateflow",
			Name:      "node_latency_ms",
			Help:      "Node execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"node_id", "status"}),
		interrupts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stateflow",
			Name:      "interrupts_total",
			Help:      "Thread suspensions awaiting an external decision",
		}, []string{"kind"}),
		resumes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "stateflow",
			Name:      "resumes_total",
			Help:      "Resume calls that re-entered a pending node",
		}),
		checkpointFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stateflow",
			Name:      "checkpoint_failures_total",
			Help:      "Checkpoint store failures by operation",
		}, []string{"op"}),
	}
}

func (m *Metrics) observeNode(nodeID string, latency time.Duration, status string) {
	if m == nil {
		return
	}
	m.nodeLatency.WithLabelValues(nodeID, status).Observe(float64(latency.Milliseconds()))
}

func (m *Metrics) nodeStarted() {
	if m == nil {
		return
	}
	m.inflightNodes.Inc()
}

func (m *Metrics) nodeFinished() {
	if m == nil {
		return
	}
	m.inflightNodes.Dec()
}

func (m *Metrics) interrupted(kind string) {
	if m == nil {
		return
	}
	m.interrupts.WithLabelValues(kind).Inc()
}

func (m *Metrics) resumed() {
	if m == nil {
		return
	}
	m.resumes.Inc()
}

func (m *Metrics) checkpointFailed(op string) {
	if m == nil {
		return
	}
	m.checkpointFailures.WithLabelValues(op).Inc()
}
