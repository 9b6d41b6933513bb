package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks the trip ETL stages and run outcomes.
type PipelineMetrics struct {
	rows     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_stage_rows_total",
		Help: "Rows written or updated by each pipeline stage.",
	}, []string{"stage"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_stage_duration_seconds",
		Help:    "Duration of pipeline stages in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_runs_total",
		Help: "Pipeline runs by terminal status.",
	}, []string{"status"})
	reg.MustRegister(rows, duration, runs)
	return &PipelineMetrics{
		rows:     rows,
		duration: duration,
		runs:     runs,
	}
}

// AddRows adds n to the row counter of stage.
func (p *PipelineMetrics) AddRows(stage string, n int64) {
	if p == nil || p.rows == nil || n <= 0 {
		return
	}
	p.rows.WithLabelValues(normalizeLabel(stage)).Add(float64(n))
}

// ObserveStage records how long stage took.
func (p *PipelineMetrics) ObserveStage(stage string, d time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(stage)).Observe(d.Seconds())
}

// IncRun counts a finished run.
func (p *PipelineMetrics) IncRun(status string) {
	if p == nil || p.runs == nil {
		return
	}
	p.runs.WithLabelValues(normalizeLabel(status)).Inc()
}
