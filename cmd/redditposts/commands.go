package main

import (
	"encoding/json"
	"fmt"
	"io"

	pkgerrors "github.com/pkg/errors"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	reddit "github.com/jamesprial/go-reddit-posts"
	"github.com/jamesprial/go-reddit-posts/loader"
	"github.com/jamesprial/go-reddit-posts/store"
	"github.com/jamesprial/go-reddit-posts/tool"
)

func addListingFlags(cmd *cobra.Command, opts *reddit.ListingOptions) {
	cmd.Flags().StringVar(&opts.Sort, "sort", reddit.DefaultSort, "sort order: relevance, hot, top, new or comments")
	cmd.Flags().IntVar(&opts.Limit, "limit", reddit.DefaultLimit, "maximum number of posts (1-100)")
	cmd.Flags().StringVar(&opts.Time, "time", reddit.DefaultTime, "time window: hour, day, week, month, year or all")
}

func newSearchCmd(a *app) *cobra.Command {
	var opts reddit.ListingOptions

	cmd := &cobra.Command{
		Use:   "search <subreddit> <query>",
		Short: "Search posts in a subreddit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			posts, err := a.client.SearchSubreddit(cmd.Context(), args[0], args[1], &opts)
			if err != nil {
				return pkgerrors.Wrapf(err, "search r/%s", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), posts)
		},
	}
	addListingFlags(cmd, &opts)
	return cmd
}

func newUserCmd(a *app) *cobra.Command {
	var opts reddit.ListingOptions

	cmd := &cobra.Command{
		Use:   "user <username>",
		Short: "List posts submitted by a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			posts, err := a.client.FetchUserPosts(cmd.Context(), args[0], &opts)
			if err != nil {
				return pkgerrors.Wrapf(err, "fetch posts of u/%s", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), posts)
		},
	}
	addListingFlags(cmd, &opts)
	return cmd
}

func newLoadCmd(a *app) *cobra.Command {
	var (
		l      loader.Loader
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "load <query>...",
		Short: "Load posts of subreddits or users as documents",
		Long: `Load posts as documents, one per post, for every query and category.

In subreddit mode queries are subreddit names; in username mode they are
usernames. Documents are printed as JSON, or saved to a SQLite database
when --db is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l.Fetcher = a.client
			l.Queries = args
			l.Logger = a.logger

			docs, err := l.Load(cmd.Context())
			if err != nil {
				return pkgerrors.Wrap(err, "load documents")
			}

			if dbPath == "" {
				return writeJSON(cmd.OutOrStdout(), docs)
			}

			s, err := store.Open(cmd.Context(), dbPath)
			if err != nil {
				return pkgerrors.Wrap(err, "open store")
			}
			defer s.Close()

			if err := s.Save(cmd.Context(), docs); err != nil {
				return pkgerrors.Wrap(err, "save documents")
			}
			a.logger.Info("saved documents", "count", len(docs), "db", dbPath)
			fmt.Fprintf(cmd.OutOrStdout(), "saved %d documents to %s\n", len(docs), dbPath)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&l.Mode, "mode", loader.ModeSubreddit, "subreddit or username")
	flags.StringSliceVar(&l.Categories, "categories", []string{loader.DefaultCategory}, "sort orders to load, comma separated")
	flags.IntVar(&l.NumberPosts, "number-posts", loader.DefaultNumberPosts, "posts per query and category")
	flags.StringVar(&l.Time, "time", reddit.DefaultTime, "time window")
	flags.StringVar(&l.SearchTerm, "search-term", "", "search query in subreddit mode (default subreddit:<name>)")
	flags.IntVar(&l.Concurrency, "concurrency", 1, "listing calls run at once")
	flags.StringVar(&dbPath, "db", "", "SQLite database to save documents into")
	return cmd
}

func newServeMCPCmd(a *app) *cobra.Command {
	t := tool.New(nil)

	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the Reddit search tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Connect(cmd.Context()); err != nil {
				return pkgerrors.Wrap(err, "connect")
			}

			t.Client = a.client
			s := server.NewMCPServer("reddit-posts", version, server.WithToolCapabilities(false))
			t.Register(s)

			a.logger.Info("serving MCP tools on stdio", "subreddit", t.Subreddit)
			return server.ServeStdio(s)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&t.Subreddit, "subreddit", tool.DefaultSubreddit, "default subreddit searched by reddit_search")
	flags.StringVar(&t.Sort, "sort", tool.DefaultSort, "default sort order")
	flags.StringVar(&t.Time, "time", tool.DefaultTime, "default time window")
	flags.IntVar(&t.Limit, "limit", tool.DefaultLimit, "default number of posts")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
