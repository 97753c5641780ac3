package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveAttempt("search", "ok")
		m.IncRetry("search", "server_error")
		m.Acquired()
		m.Released()
		m.ObserveTokenFetch(true)
		m.ObserveDuration("search", time.Now())
	})
	m, err := New(nil)
	assert.NoError(t, err)
	assert.Nil(t, m)
}

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	require.NotNil(t, m)

	m.ObserveAttempt("search", "ok")
	m.ObserveAttempt("search", "ok")
	m.ObserveAttempt("search", "server_error")
	m.IncRetry("user_posts", "rate_limited")
	m.Acquired()
	m.Acquired()
	m.Released()
	m.ObserveTokenFetch(true)
	m.ObserveTokenFetch(false)
	m.ObserveDuration("search", time.Now().Add(-time.Second))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("search", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("search", "server_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Retries.WithLabelValues("user_posts", "rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenFetch.WithLabelValues("failure")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Duration))
}

func TestNewSharesCollectorsOnSameRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)

	var second *Metrics
	require.NotPanics(t, func() { second, err = New(reg) })
	require.NoError(t, err)

	first.ObserveAttempt("search", "ok")
	second.ObserveAttempt("search", "ok")
	second.ObserveTokenFetch(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(first.Requests.WithLabelValues("search", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(first.TokenFetch.WithLabelValues("success")))
	assert.Same(t, first.Requests, second.Requests)
	assert.Same(t, first.Duration, second.Duration)
}

func TestNewRejectsConflictingCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	// Same name, different labels.
	reg.MustRegister(prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reddit_posts_requests_total",
		Help: "Listing request attempts by endpoint and outcome",
	}, []string{"other"}))

	m, err := New(reg)
	assert.Error(t, err)
	assert.Nil(t, m)
}
