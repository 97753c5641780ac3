package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jamesprial/go-reddit-posts/internal/metrics"
	pkgerrs "github.com/jamesprial/go-reddit-posts/pkg/errors"
	"github.com/jamesprial/go-reddit-posts/pkg/types"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxConcurrency    = 5
	DefaultRequestsPerMinute = 60
	DefaultRateLimitBurst    = 10
	SecondsPerMinute         = 60.0
	ParseFloatBitSize        = 64

	// maxResponseBytes caps how much of a listing body is read.
	maxResponseBytes = 8 << 20
	// maxErrorBodyPreview caps how much of an error body ends up in a RequestError.
	maxErrorBodyPreview = 256
)

// TokenSource supplies the bearer token for each call.
type TokenSource interface {
	EnsureToken(ctx context.Context) (Token, error)
}

// RateLimitMode selects how an HTTP 429 is scheduled.
type RateLimitMode int

const (
	// RateLimitFixed waits RateLimitDelay plus up to RateLimitJitter and leaves
	// the exponential schedule where it was.
	RateLimitFixed RateLimitMode = iota
	// RateLimitBackoff treats a 429 like any other retryable failure.
	RateLimitBackoff
)

// RetryPolicy controls how one logical call is retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts per call, the first included. Defaults to 5.
	MaxAttempts int
	// BaseDelay is the first exponential backoff step. Defaults to 500ms.
	BaseDelay time.Duration
	// MaxDelay caps a single exponential step. Defaults to 30s.
	MaxDelay time.Duration
	// MaxJitter bounds the random addition to each exponential step. Defaults to 100ms;
	// negative disables jitter.
	MaxJitter time.Duration
	// RateLimitMode selects the 429 schedule. Defaults to RateLimitFixed.
	RateLimitMode RateLimitMode
	// RateLimitDelay is the fixed 429 pause. Defaults to 5s.
	RateLimitDelay time.Duration
	// RateLimitJitter bounds the random addition to RateLimitDelay. Defaults to 1s.
	RateLimitJitter time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     5,
		BaseDelay:       500 * time.Millisecond,
		MaxDelay:        30 * time.Second,
		MaxJitter:       100 * time.Millisecond,
		RateLimitMode:   RateLimitFixed,
		RateLimitDelay:  5 * time.Second,
		RateLimitJitter: time.Second,
	}
}

// withDefaults fills every unset field from DefaultRetryPolicy.
func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	// Zero selects the default jitter; a negative value disables it.
	if p.MaxJitter == 0 {
		p.MaxJitter = def.MaxJitter
	} else if p.MaxJitter < 0 {
		p.MaxJitter = 0
	}
	if p.RateLimitDelay <= 0 {
		p.RateLimitDelay = def.RateLimitDelay
	}
	if p.RateLimitJitter == 0 {
		p.RateLimitJitter = def.RateLimitJitter
	} else if p.RateLimitJitter < 0 {
		p.RateLimitJitter = 0
	}
	return p
}

// RateLimitConfig controls how requests are throttled before reaching Reddit.
type RateLimitConfig struct {
	// RequestsPerMinute caps steady-state throughput. Defaults to 60 if zero.
	RequestsPerMinute float64
	// Burst allows short spikes above the steady-state rate. Defaults to 10 if zero.
	Burst int
}

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	UserAgent  string
	Tokens     TokenSource

	// MaxConcurrency bounds in-flight calls across the executor. Defaults to 5.
	MaxConcurrency int
	Retry          RetryPolicy
	RateLimit      *RateLimitConfig
	// Timeout bounds a whole call, retries and waits included. Zero means no bound.
	Timeout time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Rand and Sleep are replaced in tests to make schedules deterministic.
	Rand  Rand
	Sleep func(ctx context.Context, d time.Duration) error
}

// Executor issues authenticated GET requests against the API under the
// admission gate and retry policy.
type Executor struct {
	client    *http.Client
	BaseURL   *url.URL
	UserAgent string
	tokens    TokenSource
	sem       *semaphore.Weighted
	slots     int
	retry     RetryPolicy
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	rand      Rand
	sleep     func(ctx context.Context, d time.Duration) error

	limiter        *rate.Limiter
	mu             sync.Mutex
	forceWaitUntil time.Time
}

// NewExecutor returns a new executor.
// If a nil HTTPClient is provided, http.DefaultClient will be used.
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Tokens == nil {
		return nil, &pkgerrs.ConfigError{Field: "Tokens", Message: "token source is required"}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	parsedURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "BaseURL", Message: err.Error()}
	}
	if !strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path += "/"
	}

	slots := cfg.MaxConcurrency
	if slots <= 0 {
		slots = DefaultMaxConcurrency
	}

	rateCfg := RateLimitConfig{}
	if cfg.RateLimit != nil {
		rateCfg = *cfg.RateLimit
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	rnd := cfg.Rand
	if rnd == nil {
		rnd = DefaultRand
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	return &Executor{
		client:    httpClient,
		BaseURL:   parsedURL,
		UserAgent: cfg.UserAgent,
		tokens:    cfg.Tokens,
		sem:       semaphore.NewWeighted(int64(slots)),
		slots:     slots,
		retry:     cfg.Retry.withDefaults(),
		timeout:   cfg.Timeout,
		logger:    logger,
		metrics:   cfg.Metrics,
		rand:      rnd,
		sleep:     sleep,
		limiter:   buildLimiter(rateCfg),
	}, nil
}

// MaxConcurrency returns the size of the admission gate.
func (e *Executor) MaxConcurrency() int { return e.slots }

// Policy returns the effective retry policy.
func (e *Executor) Policy() RetryPolicy { return e.retry }

// Execute performs the GET described by req and decodes the JSON body into v.
//
// Token failures are returned unchanged. A non-retryable response fails
// immediately with a RequestError of KindClientError; retryable failures are
// retried until the policy is exhausted, then reported as KindExhausted
// wrapping the last attempt's error. A body that is not valid JSON is a
// *errors.MappingError.
func (e *Executor) Execute(ctx context.Context, operation string, req types.ListingRequest, v any) error {
	// The timeout covers the whole call, token fetch included.
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	tok, err := e.tokens.EnsureToken(ctx)
	if err != nil {
		return err
	}

	target, err := e.resolve(req)
	if err != nil {
		return err
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%s: waiting for a request slot: %w", operation, err)
	}
	e.metrics.Acquired()
	defer func() {
		e.sem.Release(1)
		e.metrics.Released()
	}()

	start := time.Now()
	defer e.metrics.ObserveDuration(operation, start)

	body, err := e.do(ctx, operation, target, tok.Value)
	if err != nil {
		return err
	}

	if v != nil {
		if err := json.Unmarshal(body, v); err != nil {
			return &pkgerrs.MappingError{Index: -1, Message: "response is not valid JSON", Err: err}
		}
	}
	return nil
}

// do runs the retry loop. Attempts are strictly sequential.
func (e *Executor) do(ctx context.Context, operation, target, token string) ([]byte, error) {
	var last *pkgerrs.RequestError
	backoffStep := 0

	for attempt := 1; attempt <= e.retry.MaxAttempts; attempt++ {
		body, reqErr := e.attempt(ctx, operation, target, token)
		if reqErr == nil {
			e.metrics.ObserveAttempt(operation, "ok")
			return body, nil
		}
		e.metrics.ObserveAttempt(operation, reqErr.Kind.String())

		if !reqErr.Kind.Retryable() {
			return nil, reqErr
		}
		last = reqErr

		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: cancelled after %d attempts: %w", operation, attempt, errors.Join(ctx.Err(), last))
		}
		if attempt == e.retry.MaxAttempts {
			break
		}

		delay := e.nextDelay(reqErr.Kind, &backoffStep)
		e.metrics.IncRetry(operation, reqErr.Kind.String())
		e.logger.Warn("request attempt failed, retrying",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", e.retry.MaxAttempts,
			"kind", reqErr.Kind.String(),
			"status", reqErr.StatusCode,
			"delay", delay,
			"error", reqErr,
		)

		if err := e.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("%s: cancelled after %d attempts: %w", operation, attempt, errors.Join(err, last))
		}
	}

	e.logger.Warn("request failed, retries exhausted",
		"operation", operation,
		"attempts", e.retry.MaxAttempts,
		"error", last,
	)
	return nil, &pkgerrs.RequestError{
		Kind:      pkgerrs.KindExhausted,
		Operation: operation,
		URL:       target,
		Attempts:  e.retry.MaxAttempts,
		Err:       last,
	}
}

// nextDelay schedules the pause after a retryable failure of kind. Only
// failures that follow the exponential schedule advance step.
func (e *Executor) nextDelay(kind pkgerrs.Kind, step *int) time.Duration {
	if kind == pkgerrs.KindRateLimited && e.retry.RateLimitMode == RateLimitFixed {
		return RateLimitDelay(e.retry.RateLimitDelay, e.retry.RateLimitJitter, e.rand)
	}
	d := Backoff(*step, e.retry.BaseDelay, e.retry.MaxJitter, e.retry.MaxDelay, e.rand)
	*step++
	return d
}

// attempt performs a single GET and classifies its outcome.
func (e *Executor) attempt(ctx context.Context, operation, target, token string) ([]byte, *pkgerrs.RequestError) {
	if err := e.waitForRateLimit(ctx); err != nil {
		return nil, &pkgerrs.RequestError{Kind: pkgerrs.KindNetwork, Operation: operation, URL: target, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &pkgerrs.RequestError{Kind: pkgerrs.KindClientError, Operation: operation, URL: target, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", e.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &pkgerrs.RequestError{Kind: pkgerrs.KindNetwork, Operation: operation, URL: target, Err: err}
	}
	defer resp.Body.Close()

	e.applyRateHeaders(resp)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &pkgerrs.RequestError{
			Kind:       pkgerrs.KindNetwork,
			Operation:  operation,
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to read response body: %w", err),
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	return nil, &pkgerrs.RequestError{
		Kind:       classifyStatus(resp.StatusCode),
		Operation:  operation,
		URL:        target,
		StatusCode: resp.StatusCode,
		Message:    statusMessage(resp.StatusCode, body),
	}
}

func classifyStatus(code int) pkgerrs.Kind {
	switch {
	case code == http.StatusTooManyRequests:
		return pkgerrs.KindRateLimited
	case code >= 500:
		return pkgerrs.KindServerError
	default:
		return pkgerrs.KindClientError
	}
}

func statusMessage(code int, body []byte) string {
	msg := http.StatusText(code)
	preview := strings.TrimSpace(string(body))
	if preview == "" {
		return msg
	}
	if len(preview) > maxErrorBodyPreview {
		preview = preview[:maxErrorBodyPreview] + "..."
	}
	return msg + ": " + preview
}

// resolve builds the absolute request URL for req.
func (e *Executor) resolve(req types.ListingRequest) (string, error) {
	u, err := e.BaseURL.Parse(strings.TrimPrefix(req.Path, "/"))
	if err != nil {
		return "", &pkgerrs.ConfigError{Field: "path", Message: err.Error()}
	}
	if len(req.Params) > 0 {
		u.RawQuery = req.Params.Encode()
	}
	return u.String(), nil
}

func buildLimiter(cfg RateLimitConfig) *rate.Limiter {
	requestsPerMinute := cfg.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultRateLimitBurst
	}

	limitPerSecond := rate.Limit(requestsPerMinute / SecondsPerMinute)
	if limitPerSecond <= 0 {
		limitPerSecond = rate.Limit(1)
	}

	return rate.NewLimiter(limitPerSecond, burst)
}

func (e *Executor) waitForRateLimit(ctx context.Context) error {
	if err := e.waitForForcedDelay(ctx); err != nil {
		return err
	}

	if e.limiter == nil {
		return nil
	}

	return e.limiter.Wait(ctx)
}

func (e *Executor) waitForForcedDelay(ctx context.Context) error {
	for {
		e.mu.Lock()
		waitUntil := e.forceWaitUntil
		e.mu.Unlock()

		if waitUntil.IsZero() {
			return nil
		}

		now := time.Now()
		if !now.Before(waitUntil) {
			e.clearForcedDelay(waitUntil)
			return nil
		}

		timer := time.NewTimer(waitUntil.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			e.clearForcedDelay(waitUntil)
		}
	}
}

func (e *Executor) clearForcedDelay(previous time.Time) {
	e.mu.Lock()
	if previous.Equal(e.forceWaitUntil) {
		e.forceWaitUntil = time.Time{}
	}
	e.mu.Unlock()
}

func (e *Executor) applyRateHeaders(resp *http.Response) {
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.ParseFloat(retryAfter, ParseFloatBitSize); err == nil && seconds > 0 {
			e.deferRequests(time.Duration(seconds * float64(time.Second)))
		}
	}

	remainingHeader := resp.Header.Get("X-Ratelimit-Remaining")
	resetHeader := resp.Header.Get("X-Ratelimit-Reset")
	if remainingHeader == "" || resetHeader == "" {
		return
	}

	remaining, errRemaining := strconv.ParseFloat(remainingHeader, ParseFloatBitSize)
	resetSeconds, errReset := strconv.ParseFloat(resetHeader, ParseFloatBitSize)
	if errRemaining != nil || errReset != nil || resetSeconds <= 0 {
		return
	}

	if remaining <= 1 {
		e.deferRequests(time.Duration(resetSeconds * float64(time.Second)))
	}
}

func (e *Executor) deferRequests(d time.Duration) {
	if d <= 0 {
		return
	}

	until := time.Now().Add(d)

	e.mu.Lock()
	if until.After(e.forceWaitUntil) {
		e.forceWaitUntil = until
	}
	e.mu.Unlock()
}
