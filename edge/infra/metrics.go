package infra

import (
	"context"
	"net/http"
	"strconv"

	"edge-dispatch/edge/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics expõe o despacho em Prometheus com registry próprio.
// Implementa domain.StatsStore (Record) e serve de Observer (Observe).
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "edge"
	}
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "requests_total",
			Help:      "Requests handled by the dispatcher, by outcome and delivered status",
		},
		[]string{"outcome", "status"},
	)
	m.duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Time from request arrival to response, by outcome",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms a ~16s
		},
		[]string{"outcome"},
	)
	m.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "dispatch",
		Name:      "in_flight",
		Help:      "Requests between received and responded",
	})

	m.registry.MustRegister(m.requests, m.duration, m.inFlight)
	return m
}

func (m *Metrics) Record(_ context.Context, ev domain.DispatchEvent) error {
	outcome := string(ev.Outcome)
	m.requests.WithLabelValues(outcome, strconv.Itoa(ev.Status)).Inc()
	if ev.Outcome != domain.OutcomeRejected {
		m.duration.WithLabelValues(outcome).Observe(ev.Duration.Seconds())
	}
	return nil
}

// Observe acompanha requisições em voo. Assinatura de application.Observer.
func (m *Metrics) Observe(_ string, p domain.Phase) {
	switch p {
	case domain.PhaseReceived:
		m.inFlight.Inc()
	case domain.PhaseResponded:
		m.inFlight.Dec()
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
