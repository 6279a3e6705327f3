package pipeline

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records stage and run outcomes as prometheus collectors. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer
	records  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	filter   *prometheus.CounterVec
	runs     *prometheus.CounterVec
}

// NewMetrics registers the importer collectors on reg. Pass a fresh
// prometheus.NewRegistry() unless the process already exposes one.
func NewMetrics(reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		gatherer: reg,
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyloader_stage_records_total",
			Help: "Records processed per datatype by outcome.",
		}, []string{"datatype", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studyloader_stage_duration_seconds",
			Help:    "Wall time spent in each datatype stage.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"datatype"}),
		filter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyloader_mutation_filter_total",
			Help: "Mutation filter decisions by bucket.",
		}, []string{"bucket"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyloader_runs_total",
			Help: "Import runs by outcome.",
		}, []string{"outcome"}),
	}
	for _, c := range []prometheus.Collector{m.records, m.duration, m.filter, m.runs} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// ObserveStage records one stage's counters and duration.
func (m *Metrics) ObserveStage(datatype string, r StageResult, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(datatype).Observe(d.Seconds())
	m.records.WithLabelValues(datatype, "imported").Add(float64(r.Imported))
	for reason, n := range r.SkipReasons {
		m.records.WithLabelValues(datatype, "skipped_"+reason).Add(float64(n))
	}
	for bucket, n := range r.Buckets {
		m.filter.WithLabelValues(bucket).Add(float64(n))
	}
}

// ObserveRun counts a finished run.
func (m *Metrics) ObserveRun(o Outcome) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(string(o)).Inc()
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.gatherer)
}
