package observers

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samvad-hq/reqflow/pkg/plugins"
	"github.com/samvad-hq/reqflow/pkg/request"
)

// Metrics exports Prometheus counters for the request lifecycle. It is safe for
// concurrent use.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	errorsTotal      *prometheus.CounterVec

	// started holds dispatch times keyed by the config pointer carried on events.
	started sync.Map
	now     func() time.Time
}

// NewMetrics creates a metrics observer on the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a metrics observer using the supplied registerer.
func NewMetricsWithRegistry(registry prometheus.Registerer) *Metrics {
	return &Metrics{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_requests_total",
				Help: "Total number of completed requests",
			},
			[]string{"method", "status_code", "outcome"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reqflow_request_duration_seconds",
				Help:    "Time from dispatch to completion in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "outcome"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reqflow_requests_in_flight",
				Help: "Number of dispatched requests not yet completed",
			},
			[]string{"method"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_errors_total",
				Help: "Total number of failed requests by error kind",
			},
			[]string{"method", "kind"},
		),
		now: time.Now,
	}
}

// Register implements Observer.
func (m *Metrics) Register(bus *request.Bus) {
	bus.On(plugins.PhaseRequest, func(evt *request.Event) {
		m.started.Store(evt.Config, m.now())
		m.requestsInFlight.WithLabelValues(evt.Config.Method).Inc()
	})
	bus.On(plugins.PhaseLoad, m.finish)
	bus.On(plugins.PhaseError, m.finish)
}

func (m *Metrics) finish(evt *request.Event) {
	method := evt.Config.Method
	outcome := outcomeOf(evt)

	m.requestsTotal.WithLabelValues(method, strconv.Itoa(statusOf(evt)), outcome).Inc()
	if evt.Kind != "" {
		m.errorsTotal.WithLabelValues(method, string(evt.Kind)).Inc()
	}

	// Requests that failed before dispatch never reached the request phase.
	if v, ok := m.started.LoadAndDelete(evt.Config); ok {
		m.requestsInFlight.WithLabelValues(method).Dec()
		m.requestDuration.WithLabelValues(method, outcome).Observe(m.now().Sub(v.(time.Time)).Seconds())
	}
}
