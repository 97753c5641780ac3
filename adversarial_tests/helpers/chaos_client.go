package helpers

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ChaosMode defines the type of chaos injected into a listing response
type ChaosMode int

const (
	// ChaosNone returns the configured listing
	ChaosNone ChaosMode = iota

	// ChaosRateLimited returns 429 Too Many Requests
	ChaosRateLimited

	// ChaosServerError returns 500 or 503
	ChaosServerError

	// ChaosConnectionReset fails the round trip without a response
	ChaosConnectionReset

	// ChaosTruncatedBody returns 200 with half of the listing
	ChaosTruncatedBody
)

// ErrConnectionReset is returned for ChaosConnectionReset
var ErrConnectionReset = errors.New("chaos: connection reset by peer")

// ChaosConfig configures the chaos transport behavior
type ChaosConfig struct {
	// FailureRate is the probability that a listing request fails (0.0 to 1.0)
	FailureRate float64

	// Modes are the failures picked from when a request fails.
	// Defaults to rate limiting, server errors and connection resets.
	Modes []ChaosMode

	// Listing is the body returned on success
	Listing string

	// Delay is added to every listing response
	Delay time.Duration

	// Seed makes the failure sequence reproducible
	Seed int64
}

// ChaosTransport is an http.RoundTripper that plays a Reddit API with
// injected failures. Token requests always succeed.
type ChaosTransport struct {
	config *ChaosConfig

	mu  sync.Mutex
	rnd *rand.Rand

	tokenCalls   atomic.Int64
	listingCalls atomic.Int64
	failures     atomic.Int64
	inFlight     atomic.Int64
	peak         atomic.Int64
}

// NewChaosTransport creates a new chaos transport
func NewChaosTransport(config *ChaosConfig) *ChaosTransport {
	if config == nil {
		config = &ChaosConfig{}
	}
	if len(config.Modes) == 0 {
		config.Modes = []ChaosMode{ChaosRateLimited, ChaosServerError, ChaosConnectionReset}
	}
	return &ChaosTransport{
		config: config,
		rnd:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Client returns an http.Client using the transport
func (c *ChaosTransport) Client() *http.Client {
	return &http.Client{Transport: c, Timeout: 10 * time.Second}
}

// RoundTrip implements http.RoundTripper
func (c *ChaosTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		_, _ = io.Copy(io.Discard, req.Body)
		req.Body.Close()
	}

	if strings.HasSuffix(req.URL.Path, "/access_token") {
		c.tokenCalls.Add(1)
		return respond(req, http.StatusOK, `{"access_token":"chaos_token","token_type":"bearer","expires_in":3600}`), nil
	}

	c.listingCalls.Add(1)
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if c.config.Delay > 0 {
		select {
		case <-time.After(c.config.Delay):
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}

	mode := c.pick()
	if mode != ChaosNone {
		c.failures.Add(1)
	}

	switch mode {
	case ChaosRateLimited:
		return respond(req, http.StatusTooManyRequests, `{"message": "Too Many Requests", "error": 429}`), nil
	case ChaosServerError:
		status := http.StatusInternalServerError
		if c.listingCalls.Load()%2 == 0 {
			status = http.StatusServiceUnavailable
		}
		return respond(req, status, `<html>upstream error</html>`), nil
	case ChaosConnectionReset:
		return nil, ErrConnectionReset
	case ChaosTruncatedBody:
		return respond(req, http.StatusOK, c.config.Listing[:len(c.config.Listing)/2]), nil
	default:
		return respond(req, http.StatusOK, c.config.Listing), nil
	}
}

func (c *ChaosTransport) pick() ChaosMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rnd.Float64() >= c.config.FailureRate {
		return ChaosNone
	}
	return c.config.Modes[c.rnd.Intn(len(c.config.Modes))]
}

// TokenCalls returns the number of token requests seen
func (c *ChaosTransport) TokenCalls() int { return int(c.tokenCalls.Load()) }

// ListingCalls returns the number of listing requests seen
func (c *ChaosTransport) ListingCalls() int { return int(c.listingCalls.Load()) }

// Failures returns the number of injected failures
func (c *ChaosTransport) Failures() int { return int(c.failures.Load()) }

// PeakInFlight returns the highest number of concurrent listing requests
func (c *ChaosTransport) PeakInFlight() int { return int(c.peak.Load()) }

func respond(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Status:        http.StatusText(status),
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Body:          io.NopCloser(bytes.NewBufferString(body)),
		ContentLength: int64(len(body)),
		Request:       req,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
	}
}
