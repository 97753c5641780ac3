// Package metrics holds the Prometheus collectors updated by the request pipeline.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the client's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Requests   *prometheus.CounterVec
	Retries    *prometheus.CounterVec
	InFlight   prometheus.Gauge
	TokenFetch *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. Collectors already
// registered by another client are reused, so clients sharing a registry
// report into the same series. It returns nil when reg is nil.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reddit_posts_requests_total",
			Help: "Listing request attempts by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reddit_posts_retries_total",
			Help: "Listing request retries by endpoint and reason",
		}, []string{"endpoint", "reason"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reddit_posts_in_flight",
			Help: "Listing calls currently holding an admission slot",
		}),
		TokenFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reddit_posts_token_fetches_total",
			Help: "Client-credentials token requests by result",
		}, []string{"result"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reddit_posts_request_duration_seconds",
			Help:    "Duration of a full listing call including retries",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}

	var err error
	if m.Requests, err = register(reg, m.Requests); err != nil {
		return nil, err
	}
	if m.Retries, err = register(reg, m.Retries); err != nil {
		return nil, err
	}
	if m.InFlight, err = register(reg, m.InFlight); err != nil {
		return nil, err
	}
	if m.TokenFetch, err = register(reg, m.TokenFetch); err != nil {
		return nil, err
	}
	if m.Duration, err = register(reg, m.Duration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("registering metrics: %w", err)
}

// ObserveAttempt counts one HTTP attempt.
func (m *Metrics) ObserveAttempt(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(endpoint, outcome).Inc()
}

// IncRetry counts a scheduled retry.
func (m *Metrics) IncRetry(endpoint, reason string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(endpoint, reason).Inc()
}

// Acquired marks an admission slot as taken.
func (m *Metrics) Acquired() {
	if m == nil {
		return
	}
	m.InFlight.Inc()
}

// Released marks an admission slot as free.
func (m *Metrics) Released() {
	if m == nil {
		return
	}
	m.InFlight.Dec()
}

// ObserveTokenFetch counts a token request.
func (m *Metrics) ObserveTokenFetch(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.TokenFetch.WithLabelValues(result).Inc()
}

// ObserveDuration records the duration of a call that started at start.
func (m *Metrics) ObserveDuration(endpoint string, start time.Time) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
