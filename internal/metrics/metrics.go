package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "ingest"

// Metrics holds the collectors for queue publishing and the HTTP API
type Metrics struct {
	publishTotal    *prometheus.CounterVec
	publishDuration *prometheus.HistogramVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates a new Metrics instance and registers all metrics with the provided registerer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		publishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "publish_total",
			Help:      "Publish attempts by destination queue and outcome",
		}, []string{"queue", "outcome"}),
		publishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "publish_duration_seconds",
			Help:      "Time spent serializing and submitting a job",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"queue"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	err := errors.Join(
		reg.Register(m.publishTotal),
		reg.Register(m.publishDuration),
		reg.Register(m.httpRequests),
		reg.Register(m.httpDuration),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// ObservePublish records a single publish attempt
func (m *Metrics) ObservePublish(queue, outcome string, duration time.Duration) {
	m.publishTotal.WithLabelValues(queue, outcome).Inc()
	m.publishDuration.WithLabelValues(queue).Observe(duration.Seconds())
}

// ObserveHTTPRequest records a served HTTP request. route is the matched
// route pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
