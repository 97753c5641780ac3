package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	reddit "github.com/jamesprial/go-reddit-posts"
	"github.com/jamesprial/go-reddit-posts/loader"
	"github.com/jamesprial/go-reddit-posts/pkg/types"
	"github.com/jamesprial/go-reddit-posts/tool"
)

func main() {
	// Get credentials from environment variables
	clientID := os.Getenv("REDDIT_CLIENT_ID")
	clientSecret := os.Getenv("REDDIT_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		log.Fatal("REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET environment variables are required")
	}

	// Route structured logs to stdout; adjust the level as needed.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	client, err := reddit.NewClient(&reddit.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		UserAgent:    "example-bot/1.0 by YourUsername",
		Logger:       logger,
	})
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	// Fetch the token up front so credential problems surface early
	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to Reddit: %v", err)
	}
	fmt.Println("Successfully connected to Reddit!")

	// Search one subreddit
	posts, err := client.SearchSubreddit(ctx, "golang", "generics", &reddit.ListingOptions{Sort: "top", Limit: 5, Time: "year"})
	if err != nil {
		log.Printf("Search failed: %v", err)
	} else {
		fmt.Println("\nTop posts about generics in r/golang this year:")
		for i, post := range posts {
			fmt.Printf("%d. %s (score: %d)\n", i+1, post.Title, post.Score)
		}
	}

	// Load two subreddits and two categories as documents, two calls at a time
	l := &loader.Loader{
		Fetcher:     client,
		Queries:     []string{"golang", "rust"},
		Mode:        loader.ModeSubreddit,
		Categories:  []string{"hot", "new"},
		NumberPosts: 3,
		Concurrency: 2,
		Logger:      logger,
	}
	docs, err := l.Load(ctx)
	if err != nil {
		log.Printf("Load failed: %v", err)
	} else {
		fmt.Printf("\nLoaded %d documents:\n", len(docs))
		for _, d := range docs {
			fmt.Printf("  [%s/%s] %.60s\n", d.MetaString(types.MetaSubreddit), d.MetaString(types.MetaCategory), d.MetaString(types.MetaTitle))
		}
	}

	// The agent tool returns JSON
	out, err := tool.New(client).Call(ctx, "error handling")
	if err != nil {
		log.Printf("Tool call failed: %v", err)
	} else {
		fmt.Printf("\n%s returned: %s\n", tool.Name, out)
	}
}
