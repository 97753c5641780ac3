// Package reddit is a small client for two read endpoints of the Reddit API:
// subreddit search and a user's submitted posts.
//
// # Overview
//
// The client authenticates with the OAuth2 client-credentials grant, bounds the
// number of calls in flight, and retries rate-limited, failed and unreachable
// requests with exponential backoff plus jitter. Every listing call returns the
// posts in the order Reddit ranked them, or an error; there are no partial
// results.
//
// The loader and tool packages build on the client: loader turns posts into
// documents for indexing pipelines, tool exposes search as an agent tool and
// as MCP tools.
//
// # Quick Start
//
//	client, err := reddit.NewClient(&reddit.Config{
//		ClientID:     "your-client-id",
//		ClientSecret: "your-client-secret",
//		UserAgent:    "myapp/1.0 by /u/yourusername",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	posts, err := client.SearchSubreddit(ctx, "golang", "generics", &reddit.ListingOptions{Sort: "top", Limit: 25})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, post := range posts {
//		fmt.Printf("%s (score: %d)\n", post.Title, post.Score)
//	}
//
// # Authentication
//
// The first call (or Connect) fetches an application-only token; concurrent
// callers share that single request. The token is cached and refreshed once
// the expiry Reddit reported has passed. Set Config.DisableTokenRefresh to
// keep the first token for the client's lifetime. Authentication failures are
// returned as *AuthError and are never retried.
//
// # Concurrency and Retries
//
// At most Config.MaxConcurrency (default 5) listing calls hold a slot at once;
// the rest queue in arrival order. Within one call attempts are sequential:
//
//   - HTTP 429 waits 5s plus up to 1s of jitter (RateLimitFixed), or follows
//     the exponential schedule (RateLimitBackoff)
//   - HTTP 5xx and network failures wait BaseDelay*2^n plus up to MaxJitter
//   - any other 4xx fails at once
//
// After RetryPolicy.MaxAttempts failed attempts the call fails with a
// *RequestError of KindExhausted wrapping the last attempt's error. Config.RequestTimeout
// bounds the whole sequence.
//
// # Error Handling
//
//	posts, err := client.FetchUserPosts(ctx, "spez", nil)
//	switch {
//	case errors.Is(err, reddit.ErrClientError):
//		// 404, 403, ...: not retried
//	case errors.Is(err, reddit.ErrServerError):
//		// every attempt hit a 5xx
//	}
//
//	var cfgErr *reddit.ConfigError
//	if errors.As(err, &cfgErr) {
//		// bad parameter, no request was made
//	}
//
// # Logging and Metrics
//
// Provide a *slog.Logger in Config.Logger to see every failed attempt at Warn
// level. Provide a prometheus.Registerer in Config.MetricsRegisterer to export
// request, retry, in-flight, token and latency metrics.
package reddit
