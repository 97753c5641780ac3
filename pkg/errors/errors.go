// Package errors defines common error types used throughout the Reddit posts client.
package errors

import (
	"fmt"
	"strings"
)

// joinParts joins error message parts with the specified separator.
func joinParts(parts []string, sep string) string {
	return strings.Join(parts, sep)
}

// ConfigError indicates invalid configuration or call parameters. It is always
// returned before any network I/O takes place.
type ConfigError struct {
	// Field contains the name of the configuration field that caused the error
	Field string
	// Message contains the detailed error message
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// AuthError indicates the client-credentials exchange failed. Authentication
// failures are never retried.
type AuthError struct {
	// StatusCode is the HTTP status code (if from an HTTP response)
	StatusCode int
	// Message contains the detailed error message
	Message string
	// Body contains the raw response body (if available)
	Body string
	// Err contains the underlying error if available
	Err error
}

func (e *AuthError) Error() string {
	parts := []string{"auth error"}

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status code %d", e.StatusCode))
	}
	if e.Body != "" {
		parts = append(parts, fmt.Sprintf("body: %q", e.Body))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, fmt.Sprintf("err: %v", e.Err))
	}

	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + ": " + joinParts(parts[1:], ", ")
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// StateError indicates an operation was attempted when the client is not ready.
type StateError struct {
	// Operation is the name of the operation that was attempted
	Operation string
	// Message contains the detailed error message
	Message string
}

func (e *StateError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("state error during %s: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("state error: %s", e.Message)
}

// Kind classifies a failed listing request.
type Kind int

const (
	// KindUnknown is the zero Kind.
	KindUnknown Kind = iota
	// KindRateLimited is an HTTP 429 response. Retried.
	KindRateLimited
	// KindServerError is an HTTP 5xx response. Retried.
	KindServerError
	// KindNetwork is a transport failure before any response arrived. Retried.
	KindNetwork
	// KindClientError is a 4xx response other than 429. Never retried.
	KindClientError
	// KindExhausted means every attempt of the retry budget failed.
	KindExhausted
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindServerError:
		return "server_error"
	case KindNetwork:
		return "network"
	case KindClientError:
		return "client_error"
	case KindExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Retryable reports whether a failure of this kind may succeed on another attempt.
func (k Kind) Retryable() bool {
	return k == KindRateLimited || k == KindServerError || k == KindNetwork
}

// RequestError indicates a problem with an API request.
//
// An exhausted retry sequence is reported as a RequestError of KindExhausted
// whose Err is the RequestError of the last attempt, so both
// errors.Is(err, ErrExhausted) and errors.Is(err, ErrServerError) hold after
// repeated 5xx responses.
type RequestError struct {
	// Kind classifies the failure
	Kind Kind
	// Operation is the name of the API operation that failed
	Operation string
	// URL is the URL that was being accessed
	URL string
	// StatusCode is the HTTP status of the response, 0 when none arrived
	StatusCode int
	// Attempts is the number of attempts made, set on KindExhausted
	Attempts int
	// Message contains the detailed error message
	Message string
	// Err contains the underlying error if available
	Err error
}

// Sentinels for errors.Is. Only Kind is compared.
var (
	ErrRateLimited = &RequestError{Kind: KindRateLimited}
	ErrServerError = &RequestError{Kind: KindServerError}
	ErrNetwork     = &RequestError{Kind: KindNetwork}
	ErrClientError = &RequestError{Kind: KindClientError}
	ErrExhausted   = &RequestError{Kind: KindExhausted}
)

func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("status %d: %s", e.StatusCode, msg)
	}
	if e.Kind == KindExhausted && e.Attempts > 0 {
		msg = fmt.Sprintf("gave up after %d attempts: %s", e.Attempts, msg)
	}

	if e.Operation != "" && e.URL != "" {
		return fmt.Sprintf("request error (%s) during %s to %s: %s", e.Kind, e.Operation, e.URL, msg)
	} else if e.Operation != "" {
		return fmt.Sprintf("request error (%s) during %s: %s", e.Kind, e.Operation, msg)
	}
	return fmt.Sprintf("request error (%s): %s", e.Kind, msg)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is matches any *RequestError target with the same Kind.
func (e *RequestError) Is(target error) bool {
	t, ok := target.(*RequestError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// MappingError indicates a listing payload that does not have the expected shape.
type MappingError struct {
	// Index is the position of the offending child, -1 for the envelope
	Index int
	// Field is the JSON field that was missing or mistyped
	Field string
	// Message contains the detailed error message
	Message string
	// Err contains the underlying error if available
	Err error
}

func (e *MappingError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	switch {
	case e.Index >= 0 && e.Field != "":
		return fmt.Sprintf("mapping error at child %d, field %s: %s", e.Index, e.Field, msg)
	case e.Index >= 0:
		return fmt.Sprintf("mapping error at child %d: %s", e.Index, msg)
	case e.Field != "":
		return fmt.Sprintf("mapping error in field %s: %s", e.Field, msg)
	}
	return fmt.Sprintf("mapping error: %s", msg)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}
