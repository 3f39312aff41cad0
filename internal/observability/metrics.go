package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riskibarqy/football-etl/internal/usecase"
)

const metricsNamespace = "football_etl"

// PipelineMetrics records finished pipeline runs on its own registry.
type PipelineMetrics struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	tableRows     *prometheus.GaugeVec
	lastSuccessTS prometheus.Gauge
}

func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	auto := promauto.With(registry)

	return &PipelineMetrics{
		registry: registry,
		runs: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Finished pipeline runs by final state.",
		}, []string{"state"}),
		runDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Wall time of finished pipeline runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		tableRows: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "loader",
			Name:      "table_rows",
			Help:      "Rows loaded into each table by the last committed run.",
		}, []string{"table"}),
		lastSuccessTS: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipeline",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last committed run.",
		}),
	}
}

func (m *PipelineMetrics) ObserveRun(report usecase.RunReport) {
	m.runs.WithLabelValues(string(report.State)).Inc()
	if !report.StartedAt.IsZero() && report.FinishedAt.After(report.StartedAt) {
		m.runDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	}
	if report.State != usecase.StateCommitted {
		return
	}

	for _, item := range report.Tables {
		m.tableRows.WithLabelValues(item.Table).Set(float64(item.Rows))
	}
	m.lastSuccessTS.Set(float64(report.FinishedAt.Unix()))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
