package test_helpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jamesprial/go-reddit-posts/pkg/types"
)

const (
	TokenPath = "/api/v1/access_token"
	MockToken = "mock_token"
)

// MockServer provides a configurable mock Reddit API server for testing.
// It serves the client-credentials token endpoint and scripted responses for
// any other path.
type MockServer struct {
	server *httptest.Server

	mu          sync.Mutex
	responses   map[string][]*MockResponse
	defaultResp *MockResponse
	tokenResp   *MockResponse
	delay       time.Duration
	callCount   map[string]int
	requestLog  []RequestEntry

	inFlight atomic.Int32
	peak     atomic.Int32
}

// RequestEntry logs incoming requests for debugging
type RequestEntry struct {
	Method       string
	Path         string
	Query        string
	Headers      http.Header
	Body         string
	Timestamp    time.Time
	ResponseCode int
}

// MockResponse defines a mock API response
type MockResponse struct {
	Status  int
	Body    string
	Headers map[string]string
	Delay   time.Duration
}

// NewMockServer creates a new mock server with a working token endpoint and
// an empty listing as the default response.
func NewMockServer() *MockServer {
	ms := &MockServer{
		responses: make(map[string][]*MockResponse),
		callCount: make(map[string]int),
		tokenResp: &MockResponse{
			Status: http.StatusOK,
			Body:   `{"access_token":"` + MockToken + `","token_type":"bearer","expires_in":86400,"scope":"*"}`,
		},
		defaultResp: &MockResponse{
			Status: http.StatusOK,
			Body:   ListingJSON(),
		},
	}
	ms.server = httptest.NewServer(ms)
	return ms
}

// URL returns the base URL of the mock server
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Client returns an HTTP client configured for the server.
func (ms *MockServer) Client() *http.Client {
	return ms.server.Client()
}

// Close shuts down the mock server
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse configures the response for a path. Query strings are ignored
// when matching.
func (ms *MockServer) SetResponse(path string, response *MockResponse) {
	ms.SetResponses(path, response)
}

// SetResponses scripts consecutive responses for a path. The last response
// repeats once the script is used up.
func (ms *MockServer) SetResponses(path string, responses ...*MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[path] = responses
}

// SetTokenResponse replaces the token endpoint's response.
func (ms *MockServer) SetTokenResponse(response *MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.tokenResp = response
}

// SetDefaultResponse configures the response for unscripted paths.
func (ms *MockServer) SetDefaultResponse(response *MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.defaultResp = response
}

// SetDelay adds delay to all listing responses
func (ms *MockServer) SetDelay(delay time.Duration) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.delay = delay
}

// GetRequestLog returns the request log
func (ms *MockServer) GetRequestLog() []RequestEntry {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]RequestEntry{}, ms.requestLog...)
}

// GetCallCount returns the call count for a path
func (ms *MockServer) GetCallCount(path string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.callCount[path]
}

// TokenCalls returns how many token requests were served.
func (ms *MockServer) TokenCalls() int {
	return ms.GetCallCount(TokenPath)
}

// ListingCalls returns how many non-token requests were served.
func (ms *MockServer) ListingCalls() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	total := 0
	for path, n := range ms.callCount {
		if path != TokenPath {
			total += n
		}
	}
	return total
}

// PeakInFlight returns the highest number of listing requests handled at once.
func (ms *MockServer) PeakInFlight() int {
	return int(ms.peak.Load())
}

// ClearLog clears the request log and counters
func (ms *MockServer) ClearLog() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.requestLog = ms.requestLog[:0]
	ms.callCount = make(map[string]int)
	ms.peak.Store(0)
}

// ServeHTTP implements http.Handler
func (ms *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	entry := RequestEntry{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.RawQuery,
		Headers:   r.Header.Clone(),
		Timestamp: time.Now(),
	}

	// Read body if present
	if r.Body != nil {
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		entry.Body = string(buf[:n])
	}

	ms.mu.Lock()
	ms.callCount[r.URL.Path]++
	n := ms.callCount[r.URL.Path]
	delay := ms.delay
	var response *MockResponse
	if r.URL.Path == TokenPath {
		response = ms.tokenResp
		delay = 0
	} else if script, ok := ms.responses[r.URL.Path]; ok && len(script) > 0 {
		response = script[min(n, len(script))-1]
	} else {
		response = ms.defaultResp
	}
	ms.mu.Unlock()

	if r.URL.Path != TokenPath {
		cur := ms.inFlight.Add(1)
		defer ms.inFlight.Add(-1)
		for {
			p := ms.peak.Load()
			if cur <= p || ms.peak.CompareAndSwap(p, cur) {
				break
			}
		}
	}

	// Apply delay
	if total := delay + response.Delay; total > 0 {
		time.Sleep(total)
	}

	// Token and listing responses are JSON unless a test says otherwise.
	w.Header().Set("Content-Type", "application/json")
	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(response.Status)
	_, _ = w.Write([]byte(response.Body))
	entry.ResponseCode = response.Status

	ms.mu.Lock()
	ms.requestLog = append(ms.requestLog, entry)
	ms.mu.Unlock()
}

// Status returns a response with the given status and an error body.
func Status(code int) *MockResponse {
	return &MockResponse{
		Status: code,
		Body:   fmt.Sprintf(`{"message": %q, "error": %d}`, http.StatusText(code), code),
	}
}

// Listing returns a 200 response carrying posts as a Reddit listing.
func Listing(posts ...types.Post) *MockResponse {
	return &MockResponse{Status: http.StatusOK, Body: ListingJSON(posts...)}
}

// ListingJSON renders posts the way Reddit's listing endpoints do.
func ListingJSON(posts ...types.Post) string {
	type child struct {
		Kind string     `json:"kind"`
		Data types.Post `json:"data"`
	}
	children := make([]child, 0, len(posts))
	for _, p := range posts {
		children = append(children, child{Kind: "t3", Data: p})
	}

	body, err := json.Marshal(map[string]any{
		"kind": "Listing",
		"data": map[string]any{
			"after":    nil,
			"before":   nil,
			"children": children,
		},
	})
	if err != nil {
		panic(err)
	}
	return string(body)
}

// SamplePost returns a complete post with the given id in subreddit sub.
func SamplePost(id, sub string) types.Post {
	return types.Post{
		Title:                 "Post " + id,
		SelfText:              "Body of post " + id,
		SubredditNamePrefixed: "r/" + sub,
		Score:                 10,
		ID:                    id,
		URL:                   "https://www.reddit.com/r/" + sub + "/comments/" + id + "/",
		Author:                "author_" + id,
	}
}
