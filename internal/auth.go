package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jamesprial/go-reddit-posts/internal/metrics"
	pkgerrs "github.com/jamesprial/go-reddit-posts/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTokenEndpointPath = "api/v1/access_token"

	// expirySkew re-fetches a token slightly before the server would reject it.
	expirySkew = 30 * time.Second

	// DefaultTokenFetchTimeout bounds one shared token request.
	DefaultTokenFetchTimeout = 30 * time.Second
)

// Token is a cached bearer token. The zero value means no token is held.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time // zero when the server did not send expires_in
}

// Present reports whether the token holds a value.
func (t Token) Present() bool { return t.Value != "" }

// Expired reports whether the token is past its expiry, less expirySkew, at now.
// A token without an expiry never expires.
func (t Token) Expired(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(t.ExpiresAt.Add(-expirySkew))
}

// TokenManagerConfig configures a TokenManager.
type TokenManagerConfig struct {
	HTTPClient   *http.Client
	ClientID     string
	ClientSecret string
	UserAgent    string
	// AuthURL is the OAuth host, e.g. https://www.reddit.com/.
	AuthURL string
	// TokenPath defaults to api/v1/access_token.
	TokenPath string
	// RefreshExpired re-authenticates once a token with a known expiry runs out.
	// When false a token is kept for the lifetime of the manager.
	RefreshExpired bool
	// FetchTimeout bounds a token request independently of any caller's
	// context. Defaults to DefaultTokenFetchTimeout.
	FetchTimeout time.Duration
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

// TokenManager obtains and caches an application-only bearer token using the
// client-credentials grant.
type TokenManager struct {
	client         *http.Client
	oauth          clientcredentials.Config
	tokenURL       *url.URL
	refreshExpired bool
	fetchTimeout   time.Duration
	logger         *slog.Logger
	metrics        *metrics.Metrics
	now            func() time.Time

	mu    sync.RWMutex
	token Token
	group singleflight.Group
}

// NewTokenManager creates a new token manager. No request is made until EnsureToken.
func NewTokenManager(cfg TokenManagerConfig) (*TokenManager, error) {
	parsedURL, err := url.Parse(cfg.AuthURL)
	if err != nil {
		return nil, &pkgerrs.AuthError{Message: "failed to parse auth URL", Err: err}
	}
	if !strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path += "/"
	}

	tokenPath := cfg.TokenPath
	if tokenPath == "" {
		tokenPath = defaultTokenEndpointPath
	}
	tokenURL, err := parsedURL.Parse(tokenPath)
	if err != nil {
		return nil, &pkgerrs.AuthError{Message: "failed to parse token endpoint path", Err: err}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultTokenFetchTimeout
	}

	return &TokenManager{
		client: withUserAgent(cfg.HTTPClient, cfg.UserAgent),
		oauth: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL.String(),
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		tokenURL:       tokenURL,
		refreshExpired: cfg.RefreshExpired,
		fetchTimeout:   fetchTimeout,
		logger:         logger,
		metrics:        cfg.Metrics,
		now:            time.Now,
	}, nil
}

// TokenURL returns the resolved token endpoint.
func (m *TokenManager) TokenURL() string {
	return m.tokenURL.String()
}

// EnsureToken returns the cached token, fetching one first if none is held
// (or the held one expired and refreshing is enabled). Concurrent callers
// share a single token request. Failures are returned as *errors.AuthError
// and are not retried.
//
// The shared request runs detached from every caller's context, bounded by
// the fetch timeout. A caller whose context ends stops waiting and gets an
// *errors.AuthError wrapping ctx.Err(); the request carries on for the others.
func (m *TokenManager) EnsureToken(ctx context.Context) (Token, error) {
	if tok, ok := m.cached(); ok {
		return tok, nil
	}
	if err := ctx.Err(); err != nil {
		return Token{}, &pkgerrs.AuthError{Message: "waiting for token", Err: err}
	}

	ch := m.group.DoChan("token", func() (any, error) {
		if tok, ok := m.cached(); ok {
			return tok, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.fetchTimeout)
		defer cancel()
		return m.fetch(fetchCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Token{}, res.Err
		}
		return res.Val.(Token), nil
	case <-ctx.Done():
		return Token{}, &pkgerrs.AuthError{Message: "waiting for token", Err: ctx.Err()}
	}
}

// Invalidate drops the cached token so the next EnsureToken authenticates again.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	m.token = Token{}
	m.mu.Unlock()
}

func (m *TokenManager) cached() (Token, bool) {
	m.mu.RLock()
	tok := m.token
	m.mu.RUnlock()

	if !tok.Present() {
		return tok, false
	}
	if m.refreshExpired && tok.Expired(m.now()) {
		return tok, false
	}
	return tok, true
}

func (m *TokenManager) fetch(ctx context.Context) (Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.client)

	issued := m.now()
	tok, err := m.oauth.Token(ctx)
	if err != nil {
		m.metrics.ObserveTokenFetch(false)
		m.logger.Warn("token request failed", "url", m.tokenURL.String(), "error", err)
		return Token{}, toAuthError(err)
	}
	m.metrics.ObserveTokenFetch(true)

	token := Token{
		Value:     tok.AccessToken,
		IssuedAt:  issued,
		ExpiresAt: tok.Expiry,
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	m.logger.Debug("obtained access token", "expires_at", token.ExpiresAt)
	return token, nil
}

func toAuthError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		authErr := &pkgerrs.AuthError{
			Body: string(retrieveErr.Body),
			Err:  err,
		}
		if retrieveErr.Response != nil {
			authErr.StatusCode = retrieveErr.Response.StatusCode
			authErr.Message = retrieveErr.Response.Status
		}
		return authErr
	}
	return &pkgerrs.AuthError{Message: "token request failed", Err: err}
}

// withUserAgent returns a copy of base whose transport sets the User-Agent header.
func withUserAgent(base *http.Client, userAgent string) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	client := *base
	client.Transport = &userAgentTransport{base: transport, userAgent: userAgent}
	return &client
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent == "" {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(clone)
}

// String keeps the secret out of logs and %v output.
func (m *TokenManager) String() string {
	return fmt.Sprintf("TokenManager{client_id: %q, token_url: %q}", m.oauth.ClientID, m.tokenURL.String())
}
