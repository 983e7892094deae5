// Package metrics provides the Prometheus metrics of a scoper run.
// A run is a batch job, so metrics are not served. They are written to a
// file in the textfile format understood by the node exporter.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rmera/scoper"
)

// MetricsNamespace is the namespace for all scoper metrics.
const MetricsNamespace = "scoper"

// Status label values.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusTimeout = "timeout"
)

// Metrics holds all Prometheus metrics for one run. All methods can be
// called on a nil *Metrics, and do nothing in that case.
type Metrics struct {
	registry *prometheus.Registry

	RunInfo *prometheus.GaugeVec

	// External tools
	ToolRunsTotal       *prometheus.CounterVec
	ToolDurationSeconds *prometheus.HistogramVec

	// Scoring and selection
	CandidatesScored   prometheus.Counter
	CandidatesExcluded *prometheus.CounterVec
	CandidatesSelected prometheus.Gauge
	BestScore          prometheus.Gauge

	// Refinement and ensemble
	RefinementsTotal *prometheus.CounterVec
	EnsembleBestChi  prometheus.Gauge
}

// New creates the metrics of the run runID in a registry of their own.
func New(runID string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.RunInfo = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "run_info",
			Help:      "Information about the run, the value is always 1",
		},
		[]string{"run_id"},
	)
	m.RunInfo.WithLabelValues(runID).Set(1)

	m.initToolMetrics(factory)
	m.initScoringMetrics(factory)

	m.RefinementsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "refinements_total",
			Help:      "Candidates sent to refinement, by result",
		},
		[]string{"status"},
	)
	m.EnsembleBestChi = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "ensemble_best_chi",
			Help:      "Lowest chi found by the ensemble solver",
		},
	)
	return m
}

func (m *Metrics) initToolMetrics(factory promauto.Factory) {
	m.ToolRunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "tool_runs_total",
			Help:      "Executions of external programs, by program and result",
		},
		[]string{"tool", "status"},
	)
	m.ToolDurationSeconds = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "tool_duration_seconds",
			Help:      "Wall time of external programs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 18), // 0.1s to ~3.6h
		},
		[]string{"tool"},
	)
}

func (m *Metrics) initScoringMetrics(factory promauto.Factory) {
	m.CandidatesScored = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "candidates_scored_total",
			Help:      "Candidates that got a score",
		},
	)
	m.CandidatesExcluded = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "candidates_excluded_total",
			Help:      "Candidates excluded from the ranking, by reason",
		},
		[]string{"reason"},
	)
	m.CandidatesSelected = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "candidates_selected",
			Help:      "Candidates in the top K",
		},
	)
	m.BestScore = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "best_score",
			Help:      "Lowest chi among the scored candidates",
		},
	)
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// status returns the label value for err.
func status(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, scoper.ErrToolTimeout):
		return StatusTimeout
	default:
		return StatusFailed
	}
}

// ObserveTool records one execution of an external program.
func (m *Metrics) ObserveTool(tool string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.ToolRunsTotal.WithLabelValues(tool, status(err)).Inc()
	m.ToolDurationSeconds.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// Scored records a candidate that got a score.
func (m *Metrics) Scored() {
	if m == nil {
		return
	}
	m.CandidatesScored.Inc()
}

// Excluded records a candidate left out of the ranking because of err.
func (m *Metrics) Excluded(err error) {
	if m == nil {
		return
	}
	reason := "tool"
	switch {
	case errors.Is(err, scoper.ErrScoreParse):
		reason = "parse"
	case errors.Is(err, scoper.ErrToolTimeout):
		reason = "timeout"
	}
	m.CandidatesExcluded.WithLabelValues(reason).Inc()
}

// Selected records the size of the selection and the best score.
func (m *Metrics) Selected(n int, best float64) {
	if m == nil {
		return
	}
	m.CandidatesSelected.Set(float64(n))
	if n > 0 {
		m.BestScore.Set(best)
	}
}

// Refined records the result of the refinement of one candidate.
func (m *Metrics) Refined(err error) {
	if m == nil {
		return
	}
	m.RefinementsTotal.WithLabelValues(status(err)).Inc()
}

// Ensemble records the best chi found by the ensemble solver.
func (m *Metrics) Ensemble(chi float64) {
	if m == nil {
		return
	}
	m.EnsembleBestChi.Set(chi)
}

// WriteTextfile writes all the metrics to filename, in the Prometheus
// text format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(filename string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(filename, m.registry)
}
