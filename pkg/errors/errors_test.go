package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestConfigError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      ConfigError
		contains []string
	}{
		{
			name: "with field and message",
			err: ConfigError{
				Field:   "mode",
				Message: "must be subreddit or username",
			},
			contains: []string{"config error", "mode", "must be subreddit or username"},
		},
		{
			name: "only message",
			err: ConfigError{
				Message: "invalid configuration",
			},
			contains: []string{"config error", "invalid configuration"},
		},
		{
			name:     "empty error",
			err:      ConfigError{},
			contains: []string{"config error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(result, want) {
					t.Errorf("ConfigError.Error() = %q, want to contain %q", result, want)
				}
			}
		})
	}
}

func TestAuthError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      AuthError
		contains []string
		exact    string
	}{
		{
			name: "full error with all fields",
			err: AuthError{
				StatusCode: 401,
				Message:    "unauthorized",
				Body:       `{"error": "invalid_grant"}`,
				Err:        errors.New("connection failed"),
			},
			contains: []string{"auth error", "401", "unauthorized", "invalid_grant", "connection failed"},
		},
		{
			name: "only status code and message",
			err: AuthError{
				StatusCode: 403,
				Message:    "forbidden",
			},
			exact: "auth error: status code 403, forbidden",
		},
		{
			name:  "only error",
			err:   AuthError{Err: errors.New("network error")},
			exact: "auth error: err: network error",
		},
		{
			name:  "empty",
			err:   AuthError{},
			exact: "auth error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.err.Error()
			if tt.exact != "" && result != tt.exact {
				t.Errorf("AuthError.Error() = %q, want %q", result, tt.exact)
			}
			for _, want := range tt.contains {
				if !strings.Contains(result, want) {
					t.Errorf("AuthError.Error() = %q, want to contain %q", result, want)
				}
			}
		})
	}
}

func TestAuthError_Unwrap(t *testing.T) {
	inner := errors.New("dial tcp: refused")
	err := &AuthError{Err: inner}

	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to find the wrapped error")
	}
}

func TestKind_Retryable(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindRateLimited, true},
		{KindServerError, true},
		{KindNetwork, true},
		{KindClientError, false},
		{KindExhausted, false},
		{KindUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.Retryable(); got != tt.want {
				t.Errorf("%s.Retryable() = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestRequestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      RequestError
		contains []string
	}{
		{
			name: "operation and url",
			err: RequestError{
				Kind:       KindServerError,
				Operation:  "search",
				URL:        "https://oauth.reddit.com/r/golang/search",
				StatusCode: 503,
				Message:    "service unavailable",
			},
			contains: []string{"server_error", "search", "oauth.reddit.com", "503", "service unavailable"},
		},
		{
			name: "message from wrapped error",
			err: RequestError{
				Kind: KindNetwork,
				Err:  errors.New("connection reset"),
			},
			contains: []string{"network", "connection reset"},
		},
		{
			name: "exhausted reports attempts",
			err: RequestError{
				Kind:     KindExhausted,
				Attempts: 5,
				Err:      &RequestError{Kind: KindServerError, StatusCode: 500, Message: "boom"},
			},
			contains: []string{"exhausted", "gave up after 5 attempts", "boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(result, want) {
					t.Errorf("RequestError.Error() = %q, want to contain %q", result, want)
				}
			}
		})
	}
}

func TestRequestError_IsMatchesKindThroughChain(t *testing.T) {
	last := &RequestError{Kind: KindServerError, StatusCode: 502}
	exhausted := &RequestError{Kind: KindExhausted, Attempts: 3, Err: last}
	wrapped := fmt.Errorf("search golang: %w", exhausted)

	if !errors.Is(wrapped, ErrExhausted) {
		t.Error("expected ErrExhausted to match")
	}
	if !errors.Is(wrapped, ErrServerError) {
		t.Error("expected ErrServerError to match the last attempt")
	}
	if errors.Is(wrapped, ErrClientError) {
		t.Error("did not expect ErrClientError to match")
	}
	if errors.Is(wrapped, ErrRateLimited) {
		t.Error("did not expect ErrRateLimited to match")
	}

	var reqErr *RequestError
	if !errors.As(wrapped, &reqErr) {
		t.Fatal("expected errors.As to find a RequestError")
	}
	if reqErr.Kind != KindExhausted || reqErr.Attempts != 3 {
		t.Errorf("unexpected outer RequestError: %+v", reqErr)
	}
}

func TestMappingError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  MappingError
		want string
	}{
		{
			name: "child and field",
			err:  MappingError{Index: 2, Field: "score", Message: "expected number"},
			want: "mapping error at child 2, field score: expected number",
		},
		{
			name: "child only",
			err:  MappingError{Index: 0, Message: "not an object"},
			want: "mapping error at child 0: not an object",
		},
		{
			name: "envelope field",
			err:  MappingError{Index: -1, Field: "data.children", Message: "missing"},
			want: "mapping error in field data.children: missing",
		},
		{
			name: "envelope from wrapped error",
			err:  MappingError{Index: -1, Err: errors.New("unexpected end of JSON input")},
			want: "mapping error: unexpected end of JSON input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("MappingError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStateError_Error(t *testing.T) {
	err := &StateError{Operation: "execute", Message: "client closed"}
	if got := err.Error(); got != "state error during execute: client closed" {
		t.Errorf("StateError.Error() = %q", got)
	}
}

func TestErrorTypeAssertion(t *testing.T) {
	var err error = &ConfigError{Field: "limit", Message: "too large"}

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatal("expected ConfigError")
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		t.Error("did not expect AuthError")
	}
}
