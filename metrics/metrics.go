// Package metrics exposes Prometheus metrics for the poller.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/web3tea/doma-sentinel/relay"
	"github.com/web3tea/doma-sentinel/sentinel"
)

const DefaultNamespace = "doma_sentinel"

// Relay stages. The poller's default sink posts to the API receiver, so one
// event passing both is delivered once per stage.
const (
	StagePoller   = "poller"
	StageReceiver = "receiver"
)

// Metrics holds the collectors on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	// Poller metrics
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram
	EventsFetched prometheus.Counter
	SkippedTicks  prometheus.Counter
	AckFailures   prometheus.Counter
	PollerRunning prometheus.Gauge

	// Pipeline metrics
	FilteredTotal  *prometheus.CounterVec
	DeliveredTotal *prometheus.CounterVec
	RelayErrors    *prometheus.CounterVec
}

// New creates a Metrics instance with all metrics registered.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "cycles_total",
			Help:      "Poll cycles by result (ok, empty, error)",
		}, []string{"result"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a poll cycle",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}),
		EventsFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "events_fetched_total",
			Help:      "Events returned by the upstream feed",
		}),
		SkippedTicks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "skipped_ticks_total",
			Help:      "Ticks skipped because the previous cycle was still running",
		}),
		AckFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "ack_failures_total",
			Help:      "Failed upstream acknowledgments",
		}),
		PollerRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "running",
			Help:      "1 while the poll loop is scheduled",
		}),

		FilteredTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "filtered_total",
			Help:      "Records rejected by criterion",
		}, []string{"criterion"}),
		DeliveredTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "delivered_total",
			Help:      "Notifications accepted by the sink, per relay stage",
		}, []string{"stage", "sink"}),
		RelayErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "relay_errors_total",
			Help:      "Sink write failures, per relay stage",
		}, []string{"stage", "sink"}),
	}
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ReportStatus implements sentinel.StatusReporter.
func (m *Metrics) ReportStatus(status sentinel.Status, _ string) {
	if status == sentinel.StatusRunning {
		m.PollerRunning.Set(1)
		return
	}
	m.PollerRunning.Set(0)
}

// ObserveCycle implements sentinel.CycleObserver.
func (m *Metrics) ObserveCycle(r sentinel.CycleReport) {
	m.CyclesTotal.WithLabelValues(r.Result()).Inc()
	m.CycleDuration.Observe(r.Duration.Seconds())
	m.EventsFetched.Add(float64(r.Fetched))
}

// ObserveAckFailure implements sentinel.CycleObserver.
func (m *Metrics) ObserveAckFailure() {
	m.AckFailures.Inc()
}

// ObserveSkippedTick implements sentinel.CycleObserver.
func (m *Metrics) ObserveSkippedTick() {
	m.SkippedTicks.Inc()
}

// ObserveFiltered implements filter.RejectionObserver.
func (m *Metrics) ObserveFiltered(criterion string) {
	m.FilteredTotal.WithLabelValues(criterion).Inc()
}

// Stage returns a relay.Observer that labels outcomes with stage.
func (m *Metrics) Stage(stage string) relay.Observer {
	return stageObserver{m: m, stage: stage}
}

type stageObserver struct {
	m     *Metrics
	stage string
}

// ObserveDelivered implements relay.Observer.
func (o stageObserver) ObserveDelivered(sinkType string) {
	o.m.DeliveredTotal.WithLabelValues(o.stage, sinkType).Inc()
}

// ObserveRelayError implements relay.Observer.
func (o stageObserver) ObserveRelayError(sinkType string) {
	o.m.RelayErrors.WithLabelValues(o.stage, sinkType).Inc()
}

var (
	_ sentinel.StatusReporter = (*Metrics)(nil)
	_ sentinel.CycleObserver  = (*Metrics)(nil)
)
