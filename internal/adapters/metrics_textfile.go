package adapters

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/prometheus/client_golang/prometheus"

	"stackforge/internal/ports"
	"stackforge/internal/types"
)

// TextfileMetrics collects per-run build metrics and writes them in the
// Prometheus text format, for node_exporter's textfile collector.
type TextfileMetrics struct {
	Path     string
	registry *prometheus.Registry
	inFlight prometheus.Gauge
	finished *prometheus.CounterVec
	duration *prometheus.HistogramVec
	nodes    *prometheus.GaugeVec
	lastRun  prometheus.Gauge
}

func NewTextfileMetrics(path string) *TextfileMetrics {
	m := &TextfileMetrics{
		Path:     path,
		registry: prometheus.NewRegistry(),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stackforge_builds_in_flight",
			Help: "Number of builds currently running.",
		}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stackforge_builds_finished_total",
			Help: "Number of finished builds by final state.",
		}, []string{"state"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stackforge_build_duration_seconds",
			Help:    "Time taken to build a single node.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"easyblock"}),
		nodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stackforge_run_nodes",
			Help: "Number of nodes per final state in the last run.",
		}, []string{"state"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stackforge_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
	}
	m.registry.MustRegister(m.inFlight, m.finished, m.duration, m.nodes, m.lastRun)
	return m
}

func (m *TextfileMetrics) NodeStarted(types.BuildTarget) {
	m.inFlight.Inc()
}

func (m *TextfileMetrics) NodeFinished(target types.BuildTarget, state types.NodeState, elapsed time.Duration) {
	m.inFlight.Dec()
	m.finished.WithLabelValues(string(state)).Inc()
	easyblock := target.Easyblock
	if easyblock == "" {
		easyblock = "default"
	}
	m.duration.WithLabelValues(easyblock).Observe(elapsed.Seconds())
}

// Flush records the run summary and writes the textfile.
func (m *TextfileMetrics) Flush(result types.RunResult) error {
	summary := result.Summary()
	for state, count := range map[types.NodeState]int{
		types.NodeStateDone:                summary.Succeeded,
		types.NodeStateFailed:              summary.Failed,
		types.NodeStateSkipped:             summary.Skipped,
		types.NodeStateAborted:             summary.Aborted,
		types.NodeStateSkippedDueToFailure: summary.SkippedDueToFailure,
	} {
		m.nodes.WithLabelValues(string(state)).Set(float64(count))
	}
	m.lastRun.SetToCurrentTime()

	if m.Path == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("metrics file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(m.Path), 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create metrics directory").
			WithCause(err)
	}
	if err := prometheus.WriteToTextfile(m.Path, m.registry); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write metrics textfile").
			WithCause(err)
	}
	return nil
}

var _ ports.MetricsPort = (*TextfileMetrics)(nil)
