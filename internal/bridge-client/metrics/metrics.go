package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bridge_client"

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	operations   *prometheus.CounterVec
	inFlight     prometheus.Gauge
	pollQueries  *prometheus.CounterVec
	pollDeadline prometheus.Counter
	walletEvents *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Finished deposit, withdraw and bridge invocations by result kind.",
		}, []string{"operation", "result"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "operation_in_flight",
			Help:      "1 while an invocation is running.",
		}),
		pollQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_poll_queries_total",
			Help:      "Coordinator task status queries by outcome.",
		}, []string{"outcome"}),
		pollDeadline: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_poll_deadline_total",
			Help:      "Poll loops that stopped before the task reached a terminal status.",
		}),
		walletEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_changes_total",
			Help:      "Wallet state changes by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.operations, m.inFlight, m.pollQueries, m.pollDeadline, m.walletEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) OperationStarted() {
	if m == nil {
		return
	}
	m.inFlight.Set(1)
}

// OperationFinished records result, the error kind or "ok".
func (m *Metrics) OperationFinished(operation, result string) {
	if m == nil {
		return
	}
	m.inFlight.Set(0)
	m.operations.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) PollQuery(outcome string) {
	if m == nil {
		return
	}
	m.pollQueries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PollDeadline() {
	if m == nil {
		return
	}
	m.pollDeadline.Inc()
}

func (m *Metrics) WalletChange(kind string) {
	if m == nil {
		return
	}
	m.walletEvents.WithLabelValues(kind).Inc()
}
