package instrumentation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the order-flow service. A nil
// *Metrics is valid and records nothing, so tests can pass nil freely.
type Metrics struct {
	TicksProcessed   prometheus.Counter
	AnalyzeLatencyMs prometheus.Histogram
	EngineErrors     *prometheus.CounterVec
	ClientsConnected prometheus.Gauge
	FramesDropped    prometheus.Counter
	SnapshotsWritten prometheus.Counter
	SnapshotErrors   prometheus.Counter
}

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		TicksProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orderflow_ticks_processed_total",
			Help: "Total number of market ticks run through the engine set",
		}),

		AnalyzeLatencyMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "orderflow_analyze_latency_ms",
			Help:    "Time to run one tick through all active engines in milliseconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}),

		EngineErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orderflow_engine_errors_total",
			Help: "Total number of per-engine analysis failures",
		}, []string{"engine"}),

		ClientsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "orderflow_ws_clients",
			Help: "Currently connected websocket clients",
		}),

		FramesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orderflow_ws_frames_dropped_total",
			Help: "Frames dropped on slow or backlogged websocket clients",
		}),

		SnapshotsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orderflow_snapshots_written_total",
			Help: "Analysis snapshots published to the cache",
		}),

		SnapshotErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orderflow_snapshot_errors_total",
			Help: "Failed snapshot cache writes",
		}),
	}
}

// RecordTick counts one processed tick and its engine-set latency.
func (m *Metrics) RecordTick(latencyMs float64) {
	if m == nil {
		return
	}
	m.TicksProcessed.Inc()
	m.AnalyzeLatencyMs.Observe(latencyMs)
}

// RecordEngineError counts one isolated engine failure.
func (m *Metrics) RecordEngineError(engine string) {
	if m == nil {
		return
	}
	m.EngineErrors.WithLabelValues(engine).Inc()
}

func (m *Metrics) ClientConnected() {
	if m == nil {
		return
	}
	m.ClientsConnected.Inc()
}

func (m *Metrics) ClientDisconnected() {
	if m == nil {
		return
	}
	m.ClientsConnected.Dec()
}

func (m *Metrics) FrameDropped() {
	if m == nil {
		return
	}
	m.FramesDropped.Inc()
}

func (m *Metrics) SnapshotWritten() {
	if m == nil {
		return
	}
	m.SnapshotsWritten.Inc()
}

func (m *Metrics) SnapshotError() {
	if m == nil {
		return
	}
	m.SnapshotErrors.Inc()
}
