// Package loader turns Reddit posts into documents for indexing pipelines.
//
// A Loader walks every (query, category) pair, fetches up to NumberPosts posts
// for each, and returns one Document per post tagged with the category it was
// fetched under.
package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	reddit "github.com/jamesprial/go-reddit-posts"
	pkgerrs "github.com/jamesprial/go-reddit-posts/pkg/errors"
	"github.com/jamesprial/go-reddit-posts/pkg/types"
	"github.com/jamesprial/go-reddit-posts/pkg/validation"
)

const (
	ModeSubreddit = validation.ModeSubreddit
	ModeUsername  = validation.ModeUsername

	DefaultCategory    = "new"
	DefaultNumberPosts = 10
)

// Categories the loader accepts.
var Categories = []string{"controversial", "hot", "new", "rising", "top", "relevance", "comments"}

// Fetcher is the part of *reddit.Client the loader needs.
type Fetcher interface {
	SearchSubreddit(ctx context.Context, subreddit, query string, opts *reddit.ListingOptions) ([]types.Post, error)
	FetchUserPosts(ctx context.Context, username string, opts *reddit.ListingOptions) ([]types.Post, error)
}

// Loader loads posts from subreddits or users as documents.
type Loader struct {
	Fetcher Fetcher

	// Queries are subreddit names in ModeSubreddit and usernames in ModeUsername.
	Queries []string
	// Mode is ModeSubreddit or ModeUsername.
	Mode string
	// Categories are the sort orders to load. Defaults to ["new"].
	Categories []string
	// NumberPosts is the maximum number of posts per query and category. Defaults to 10.
	NumberPosts int
	// Time is the listing time window. Defaults to "all".
	Time string
	// SearchTerm is the q sent in ModeSubreddit. Defaults to "subreddit:<name>",
	// which matches every post of that subreddit.
	SearchTerm string
	// Concurrency is the number of listing calls run at once. Defaults to 1.
	// The client's own admission gate still applies.
	Concurrency int

	Logger *slog.Logger
}

type job struct {
	query    string
	category string
}

// Load fetches every (query, category) pair and returns the documents
// query-major, category-minor, in API order within a pair. Configuration
// errors are returned before any request; the first fetch failure aborts the
// whole load.
func (l *Loader) Load(ctx context.Context) ([]types.Document, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}

	logger := l.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	categories := l.Categories
	if len(categories) == 0 {
		categories = []string{DefaultCategory}
	}

	jobs := make([]job, 0, len(l.Queries)*len(categories))
	for _, q := range l.Queries {
		for _, c := range categories {
			jobs = append(jobs, job{query: q, category: c})
		}
	}

	results := make([][]types.Document, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(l.Concurrency, 1))
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			posts, err := l.fetch(gctx, j)
			if err != nil {
				logger.Warn("load failed", "mode", l.Mode, "query", j.query, "category", j.category, "error", err)
				return fmt.Errorf("loading %s %q (%s): %w", l.Mode, j.query, j.category, err)
			}

			docs := make([]types.Document, 0, len(posts))
			for _, p := range posts {
				docs = append(docs, types.NewDocument(p, j.category))
			}
			results[i] = docs
			logger.Debug("loaded posts", "mode", l.Mode, "query", j.query, "category", j.category, "posts", len(posts))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []types.Document
	for _, docs := range results {
		out = append(out, docs...)
	}
	return out, nil
}

func (l *Loader) fetch(ctx context.Context, j job) ([]types.Post, error) {
	opts := &reddit.ListingOptions{
		Sort:  j.category,
		Limit: l.numberPosts(),
		Time:  l.Time,
	}

	switch l.Mode {
	case ModeSubreddit:
		term := l.SearchTerm
		if term == "" {
			term = "subreddit:" + j.query
		}
		return l.Fetcher.SearchSubreddit(ctx, j.query, term, opts)
	default:
		return l.Fetcher.FetchUserPosts(ctx, j.query, opts)
	}
}

func (l *Loader) numberPosts() int {
	if l.NumberPosts == 0 {
		return DefaultNumberPosts
	}
	return l.NumberPosts
}

func (l *Loader) validate() error {
	if err := validation.ValidateMode(l.Mode); err != nil {
		return err
	}
	if l.Fetcher == nil {
		return &pkgerrs.ConfigError{Field: "Fetcher", Message: "a fetcher is required"}
	}
	if len(l.Queries) == 0 {
		return &pkgerrs.ConfigError{Field: "Queries", Message: "at least one query is required"}
	}
	for _, q := range l.Queries {
		var err error
		if l.Mode == ModeSubreddit {
			err = validation.ValidateSubreddit(q)
		} else {
			err = validation.ValidateUsername(q)
		}
		if err != nil {
			return err
		}
	}
	for _, c := range l.Categories {
		if !slices.Contains(Categories, c) {
			return &pkgerrs.ConfigError{Field: "Categories", Message: fmt.Sprintf("unsupported category %q", c)}
		}
	}
	if n := l.numberPosts(); n < validation.MinLimit || n > validation.MaxLimit {
		return &pkgerrs.ConfigError{Field: "NumberPosts", Message: fmt.Sprintf("must be between %d and %d, got %d", validation.MinLimit, validation.MaxLimit, n)}
	}
	if l.Time != "" && !validation.IsValidTime(l.Time) {
		return &pkgerrs.ConfigError{Field: "Time", Message: fmt.Sprintf("unsupported time window %q", l.Time)}
	}
	return nil
}
