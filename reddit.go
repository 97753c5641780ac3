package reddit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jamesprial/go-reddit-posts/internal"
	"github.com/jamesprial/go-reddit-posts/internal/metrics"
	pkgerrs "github.com/jamesprial/go-reddit-posts/pkg/errors"
	"github.com/jamesprial/go-reddit-posts/pkg/types"
	"github.com/jamesprial/go-reddit-posts/pkg/validation"
)

const (
	// DefaultBaseURL is the default Reddit API base URL
	DefaultBaseURL = "https://oauth.reddit.com/"
	// DefaultAuthURL is the default Reddit OAuth base URL
	DefaultAuthURL = "https://www.reddit.com/"
	// DefaultUserAgent is the default user agent string
	DefaultUserAgent = "go-reddit-posts/0.1"
	// DefaultTimeout is the default HTTP client timeout for a single attempt
	DefaultTimeout = 30 * time.Second
	// DefaultRequestTimeout bounds a whole listing call, retries included
	DefaultRequestTimeout = 2 * time.Minute
	// DefaultMaxConcurrency is the default number of listing calls in flight
	DefaultMaxConcurrency = internal.DefaultMaxConcurrency

	// Listing defaults applied when an option is left empty.
	DefaultSort  = "new"
	DefaultLimit = 10
	DefaultTime  = "all"
)

// Operation names used in errors, logs and metrics.
const (
	OpSearchSubreddit = "search_subreddit"
	OpFetchUserPosts  = "fetch_user_posts"
)

// RetryPolicy controls how a listing call is retried. See internal.RetryPolicy.
type RetryPolicy = internal.RetryPolicy

// RateLimitConfig controls the client-side request throttle.
type RateLimitConfig = internal.RateLimitConfig

// RateLimitMode selects how an HTTP 429 is scheduled.
type RateLimitMode = internal.RateLimitMode

const (
	RateLimitFixed   = internal.RateLimitFixed
	RateLimitBackoff = internal.RateLimitBackoff
)

// Token is the cached bearer token.
type Token = internal.Token

// DefaultRetryPolicy returns the policy used when Config.Retry is nil.
func DefaultRetryPolicy() RetryPolicy { return internal.DefaultRetryPolicy() }

// Config holds the configuration for the Reddit client.
// NewClient copies it; the caller's value is never modified.
//
// Example:
//
//	config := &Config{
//		ClientID:     "your-client-id",
//		ClientSecret: "your-client-secret",
//		UserAgent:    "myapp/1.0 by /u/yourusername",
//	}
type Config struct {
	// ClientID and ClientSecret for the client-credentials grant.
	// Required. Obtain these from Reddit's app preferences.
	ClientID     string
	ClientSecret string

	// UserAgent string to identify your application to Reddit.
	// Should follow format: "platform:app-name:version by /u/username"
	UserAgent string

	// BaseURL for the Reddit API. Defaults to DefaultBaseURL.
	BaseURL string

	// AuthURL for Reddit OAuth authentication. Defaults to DefaultAuthURL.
	AuthURL string

	// HTTPClient to use for requests.
	// Defaults to a client with DefaultTimeout if not specified.
	HTTPClient *http.Client

	// Logger for structured diagnostics. Failed attempts are logged at Warn.
	Logger *slog.Logger

	// MaxConcurrency bounds the listing calls in flight across the client.
	// Defaults to DefaultMaxConcurrency.
	MaxConcurrency int

	// Retry overrides the retry policy. Unset fields take their defaults.
	Retry *RetryPolicy

	// RateLimit overrides the client-side throttle (60 requests/minute, burst 10).
	RateLimit *RateLimitConfig

	// RequestTimeout bounds a whole listing call including retries and waits.
	// Defaults to DefaultRequestTimeout; negative disables the bound.
	RequestTimeout time.Duration

	// DisableTokenRefresh keeps the first token for the client's lifetime even
	// after the expiry Reddit reported.
	DisableTokenRefresh bool

	// MetricsRegisterer receives the client's Prometheus collectors. Optional.
	MetricsRegisterer prometheus.Registerer
}

// TokenProvider defines the interface for retrieving an access token.
// The internal token manager implements this interface.
type TokenProvider interface {
	// EnsureToken returns the cached token, authenticating first if needed.
	EnsureToken(ctx context.Context) (Token, error)
}

// RequestExecutor runs one listing request under the client's concurrency and
// retry policy and decodes the JSON body into v.
type RequestExecutor interface {
	Execute(ctx context.Context, operation string, req types.ListingRequest, v any) error
}

// ListingOptions are the sort/limit/time parameters shared by both listing
// calls. A nil *ListingOptions, or any zero field, takes the defaults
// new/10/all.
type ListingOptions struct {
	// Sort is one of relevance, hot, top, new, comments, controversial, rising.
	Sort string
	// Limit is the maximum number of posts requested, 1 to 100.
	Limit int
	// Time is one of hour, day, week, month, year, all.
	Time string
}

func (o *ListingOptions) resolve() (ListingOptions, error) {
	out := ListingOptions{Sort: DefaultSort, Limit: DefaultLimit, Time: DefaultTime}
	if o != nil {
		if o.Sort != "" {
			out.Sort = o.Sort
		}
		if o.Limit != 0 {
			out.Limit = o.Limit
		}
		if o.Time != "" {
			out.Time = o.Time
		}
	}
	if err := validation.ValidateListing(out.Sort, out.Limit, out.Time); err != nil {
		return ListingOptions{}, err
	}
	return out, nil
}

func (o ListingOptions) params() url.Values {
	v := url.Values{}
	v.Set("sort", o.Sort)
	v.Set("limit", strconv.Itoa(o.Limit))
	v.Set("t", o.Time)
	return v
}

// Client is the Reddit posts client. It is safe for concurrent use; all calls
// share one token and one admission gate.
//
// Example usage:
//
//	client, err := NewClient(config)
//	if err != nil {
//		return err
//	}
//
//	posts, err := client.SearchSubreddit(ctx, "golang", "generics", &ListingOptions{Sort: "top", Limit: 25})
type Client struct {
	config  Config
	auth    TokenProvider
	tokens  *internal.TokenManager
	exec    RequestExecutor
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewClient creates a new Reddit client with the provided configuration.
//
// Returns a *ConfigError if:
//   - config is nil
//   - ClientID or ClientSecret are missing
//   - UserAgent, BaseURL or AuthURL are invalid
//   - MetricsRegisterer already holds a conflicting collector
//
// Clients sharing a MetricsRegisterer share its collectors.
//
// No request is made; the token is fetched on the first call (or by Connect).
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, &ConfigError{Message: "config cannot be nil"}
	}

	cfg := *config
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, &ConfigError{Field: "ClientID", Message: "ClientID and ClientSecret are required"}
	}

	// Set defaults
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if err := validation.ValidateUserAgent(cfg.UserAgent); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	retry := DefaultRetryPolicy()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}
	cfg.Retry = &retry
	if cfg.RateLimit != nil {
		rl := *cfg.RateLimit
		cfg.RateLimit = &rl
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m, err := metrics.New(cfg.MetricsRegisterer)
	if err != nil {
		return nil, &ConfigError{Field: "MetricsRegisterer", Message: err.Error()}
	}

	tokens, err := internal.NewTokenManager(internal.TokenManagerConfig{
		HTTPClient:     cfg.HTTPClient,
		ClientID:       cfg.ClientID,
		ClientSecret:   cfg.ClientSecret,
		UserAgent:      cfg.UserAgent,
		AuthURL:        cfg.AuthURL,
		RefreshExpired: !cfg.DisableTokenRefresh,
		FetchTimeout:   cfg.HTTPClient.Timeout,
		Logger:         logger,
		Metrics:        m,
	})
	if err != nil {
		return nil, &ConfigError{Field: "AuthURL", Message: err.Error()}
	}

	timeout := cfg.RequestTimeout
	if timeout < 0 {
		timeout = 0
	}
	exec, err := internal.NewExecutor(internal.ExecutorConfig{
		HTTPClient:     cfg.HTTPClient,
		BaseURL:        cfg.BaseURL,
		UserAgent:      cfg.UserAgent,
		Tokens:         tokens,
		MaxConcurrency: cfg.MaxConcurrency,
		Retry:          retry,
		RateLimit:      cfg.RateLimit,
		Timeout:        timeout,
		Logger:         logger,
		Metrics:        m,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		config:  cfg,
		auth:    tokens,
		tokens:  tokens,
		exec:    exec,
		logger:  logger,
		metrics: m,
	}, nil
}

// Connect authenticates eagerly so credential problems surface before the
// first listing call. Calling it is optional and safe to repeat; a cached
// token is reused.
func (c *Client) Connect(ctx context.Context) error {
	if c.auth == nil {
		return &StateError{Operation: "connect", Message: "client not initialized, use NewClient"}
	}
	_, err := c.auth.EnsureToken(ctx)
	return err
}

// Invalidate drops the cached token; the next call authenticates again.
func (c *Client) Invalidate() {
	if c.tokens != nil {
		c.tokens.Invalidate()
	}
}

// Config returns a copy of the effective configuration, defaults applied.
func (c *Client) Config() Config {
	return c.config
}

// SearchSubreddit searches posts inside one subreddit.
//
// Parameters:
//   - subreddit: the subreddit name without the "r/" prefix (e.g., "golang")
//   - query: Reddit search syntax, sent as q with restrict_sr=on
//   - opts: sort/limit/time, nil for new/10/all
//
// Posts are returned in the order Reddit ranked them. Invalid parameters fail
// with a *ConfigError before any request is made.
func (c *Client) SearchSubreddit(ctx context.Context, subreddit, query string, opts *ListingOptions) ([]types.Post, error) {
	if err := validation.ValidateSubreddit(subreddit); err != nil {
		return nil, err
	}
	if err := validation.ValidateQuery(query); err != nil {
		return nil, err
	}
	o, err := opts.resolve()
	if err != nil {
		return nil, err
	}

	params := o.params()
	params.Set("q", query)
	params.Set("restrict_sr", "on")

	return c.list(ctx, OpSearchSubreddit, types.ListingRequest{
		Path:   "r/" + url.PathEscape(subreddit) + "/search",
		Params: params,
	})
}

// FetchUserPosts lists the posts a user submitted.
//
// Parameters:
//   - username: the account name without the "u/" prefix
//   - opts: sort/limit/time, nil for new/10/all
//
// Invalid parameters fail with a *ConfigError before any request is made.
func (c *Client) FetchUserPosts(ctx context.Context, username string, opts *ListingOptions) ([]types.Post, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	o, err := opts.resolve()
	if err != nil {
		return nil, err
	}

	return c.list(ctx, OpFetchUserPosts, types.ListingRequest{
		Path:   "user/" + url.PathEscape(username) + "/submitted",
		Params: o.params(),
	})
}

func (c *Client) list(ctx context.Context, operation string, req types.ListingRequest) ([]types.Post, error) {
	if c.exec == nil {
		return nil, &StateError{Operation: operation, Message: "client not initialized, use NewClient"}
	}

	var raw json.RawMessage
	if err := c.exec.Execute(ctx, operation, req, &raw); err != nil {
		return nil, err
	}

	posts, err := internal.MapListing(raw)
	if err != nil {
		c.logger.Warn("listing payload rejected", "operation", operation, "path", req.Path, "error", err)
		return nil, err
	}

	c.logger.Debug("listing fetched", "operation", operation, "path", req.Path, "posts", len(posts))
	return posts, nil
}

// Error types re-exported so callers can use errors.As without importing pkg/errors.
type (
	ConfigError  = pkgerrs.ConfigError
	AuthError    = pkgerrs.AuthError
	RequestError = pkgerrs.RequestError
	MappingError = pkgerrs.MappingError
	StateError   = pkgerrs.StateError
)

// Sentinels for errors.Is.
var (
	ErrRateLimited = pkgerrs.ErrRateLimited
	ErrServerError = pkgerrs.ErrServerError
	ErrNetwork     = pkgerrs.ErrNetwork
	ErrClientError = pkgerrs.ErrClientError
	ErrExhausted   = pkgerrs.ErrExhausted
)
