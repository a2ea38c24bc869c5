package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "weather_ingest"

// Run outcomes used as the "outcome" label of RunsTotal.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDryRun  = "dry_run"
)

// Metrics holds the Prometheus collectors for ingestion runs. Every vector is
// labelled by kind ("weather" or "earthquakes").
type Metrics struct {
	RunsTotal       *prometheus.CounterVec // labels: kind, outcome={success,failure,dry_run}
	RecordsFetched  *prometheus.CounterVec
	RecordsUpserted *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	LastSuccess     *prometheus.GaugeVec
	PublishErrors   *prometheus.CounterVec
}

// NewMetrics creates and registers all ingestion metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Ingestion runs by kind and outcome.",
		}, []string{"kind", "outcome"}),
		RecordsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_fetched_total",
			Help:      "Validated records fetched from upstream feeds.",
		}, []string{"kind"}),
		RecordsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_upserted_total",
			Help:      "Records submitted to committed upserts.",
		}, []string{"kind"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch-then-upsert run.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"kind"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}, []string{"kind"}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failures publishing committed records downstream.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RunsTotal,
		m.RecordsFetched,
		m.RecordsUpserted,
		m.RunDuration,
		m.LastSuccess,
		m.PublishErrors,
	}
}

// Push sends the current values to a Prometheus Pushgateway under the given
// job name. One-shot CLI runs exit before a scrape could happen.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	p := push.New(gatewayURL, job).Grouping("service", ServiceName)
	for _, c := range m.collectors() {
		p = p.Collector(c)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
