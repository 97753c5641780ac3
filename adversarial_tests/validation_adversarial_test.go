package adversarial_tests

import (
	"context"
	"errors"
	"testing"

	reddit "github.com/jamesprial/go-reddit-posts"
	"github.com/jamesprial/go-reddit-posts/adversarial_tests/helpers"
	"github.com/jamesprial/go-reddit-posts/loader"
	pkgerrs "github.com/jamesprial/go-reddit-posts/pkg/errors"
	"github.com/jamesprial/go-reddit-posts/pkg/validation"
)

// TestSubredditNameFuzzing checks that no fuzzed subreddit name passes validation
func TestSubredditNameFuzzing(t *testing.T) {
	fuzzer := helpers.NewFuzzer(42)

	for _, name := range fuzzer.FuzzSubredditName() {
		err := validation.ValidateSubreddit(name)
		var cfgErr *pkgerrs.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("subreddit name %q should be rejected, got %v", name, err)
			continue
		}
		if cfgErr.Field != "subreddit" {
			t.Errorf("subreddit name %q: unexpected field %q", name, cfgErr.Field)
		}
	}
}

// TestUsernameFuzzing checks that no fuzzed username passes validation
func TestUsernameFuzzing(t *testing.T) {
	fuzzer := helpers.NewFuzzer(7)

	for _, name := range fuzzer.FuzzUsername() {
		if err := validation.ValidateUsername(name); err == nil {
			t.Errorf("username %q should be rejected", name)
		}
	}
}

// TestQueryFuzzing checks that hostile but non-empty queries are accepted and
// encoded, while empty and oversized ones are rejected
func TestQueryFuzzing(t *testing.T) {
	fuzzer := helpers.NewFuzzer(99)
	valid, invalid := fuzzer.FuzzQuery()

	for _, q := range valid {
		if err := validation.ValidateQuery(q); err != nil {
			t.Errorf("query %q should be accepted, got %v", q, err)
		}
	}
	for _, q := range invalid {
		if err := validation.ValidateQuery(q); err == nil {
			t.Errorf("query of length %d should be rejected", len(q))
		}
	}
}

// TestUserAgentHeaderInjection ensures header injection through the user agent is rejected
func TestUserAgentHeaderInjection(t *testing.T) {
	agents := []string{
		"bot/1.0\r\nX-Injected: 1",
		"bot/1.0\nHost: evil.example",
		"bot/1.0\r",
	}
	for _, ua := range agents {
		_, err := reddit.NewClient(&reddit.Config{ClientID: "id", ClientSecret: "secret", UserAgent: ua})
		var cfgErr *pkgerrs.ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Field != "UserAgent" {
			t.Errorf("user agent %q should be rejected, got %v", ua, err)
		}
	}
}

// TestClientRejectsFuzzedInputBeforeIO runs fuzzed names through a client
// backed by a chaos transport that counts every request it sees
func TestClientRejectsFuzzedInputBeforeIO(t *testing.T) {
	chaos := helpers.NewChaosTransport(&helpers.ChaosConfig{Listing: `{"kind":"Listing","data":{"children":[]}}`})
	client, err := reddit.NewClient(&reddit.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		HTTPClient:   chaos.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	fuzzer := helpers.NewFuzzer(1)
	ctx := context.Background()
	for _, name := range fuzzer.FuzzSubredditName() {
		if _, err := client.SearchSubreddit(ctx, name, "q", nil); err == nil {
			t.Errorf("SearchSubreddit(%q) should fail", name)
		}
	}
	for _, name := range fuzzer.FuzzUsername() {
		if _, err := client.FetchUserPosts(ctx, name, nil); err == nil {
			t.Errorf("FetchUserPosts(%q) should fail", name)
		}
	}

	if chaos.TokenCalls() != 0 || chaos.ListingCalls() != 0 {
		t.Errorf("expected no requests, got %d token and %d listing", chaos.TokenCalls(), chaos.ListingCalls())
	}
}

// TestLoaderRejectsFuzzedQueries checks the loader validates every query up front
func TestLoaderRejectsFuzzedQueries(t *testing.T) {
	fuzzer := helpers.NewFuzzer(3)
	for _, name := range fuzzer.FuzzSubredditName() {
		l := &loader.Loader{
			Fetcher: &reddit.Client{},
			Queries: []string{"golang", name},
			Mode:    loader.ModeSubreddit,
		}
		if _, err := l.Load(context.Background()); err == nil {
			t.Errorf("loader should reject subreddit %q", name)
		}
	}
}
