// Package tool exposes Reddit search to agents, either directly through
// SearchTool.Call or as MCP tools on an mcp-go server.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	reddit "github.com/jamesprial/go-reddit-posts"
	"github.com/jamesprial/go-reddit-posts/pkg/types"
)

const (
	Name            = "reddit_search"
	UserPostsName   = "reddit_user_posts"
	description     = "A tool for searching reddit posts using the reddit API"
	userPostsDetail = "Fetch the posts a reddit user submitted, newest first"

	DefaultSubreddit = "all"
	DefaultSort      = "relevance"
	DefaultTime      = "all"
	DefaultLimit     = 2
)

// Searcher is the part of *reddit.Client the tool needs.
type Searcher interface {
	SearchSubreddit(ctx context.Context, subreddit, query string, opts *reddit.ListingOptions) ([]types.Post, error)
	FetchUserPosts(ctx context.Context, username string, opts *reddit.ListingOptions) ([]types.Post, error)
}

// SearchTool searches one subreddit with fixed sort, time and limit. Zero
// fields take the defaults all/relevance/all/2.
type SearchTool struct {
	Client    Searcher
	Subreddit string
	Sort      string
	Time      string
	Limit     int
}

// New returns a SearchTool with the defaults filled in.
func New(client Searcher) *SearchTool {
	return &SearchTool{
		Client:    client,
		Subreddit: DefaultSubreddit,
		Sort:      DefaultSort,
		Time:      DefaultTime,
		Limit:     DefaultLimit,
	}
}

// Name returns the tool name.
func (t *SearchTool) Name() string { return Name }

// Description returns the tool description.
func (t *SearchTool) Description() string { return description }

// Call runs query against the configured subreddit and returns the posts as a JSON array.
func (t *SearchTool) Call(ctx context.Context, query string) (string, error) {
	posts, err := t.Client.SearchSubreddit(ctx, t.subreddit(), query, &reddit.ListingOptions{
		Sort:  t.sort(),
		Limit: t.limit(),
		Time:  t.time(),
	})
	if err != nil {
		return "", err
	}
	return encode(posts)
}

// FetchUserPosts returns a user's submitted posts as a JSON array. Zero limit
// and empty time take the tool's settings.
func (t *SearchTool) FetchUserPosts(ctx context.Context, username string, limit int, window string) (string, error) {
	if limit == 0 {
		limit = t.limit()
	}
	if window == "" {
		window = t.time()
	}
	posts, err := t.Client.FetchUserPosts(ctx, username, &reddit.ListingOptions{Limit: limit, Time: window})
	if err != nil {
		return "", err
	}
	return encode(posts)
}

// Register adds reddit_search and reddit_user_posts to s. Arguments left out
// of a call fall back to the tool's settings; failures are reported as tool
// errors so the model can see them.
func (t *SearchTool) Register(s *server.MCPServer) {
	s.AddTool(mcp.Tool{
		Name:        Name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query, reddit search syntax",
				},
				"subreddit": map[string]interface{}{
					"type":        "string",
					"description": "Subreddit to search without the r/ prefix (default: " + t.subreddit() + ")",
				},
				"sort": map[string]interface{}{
					"type":        "string",
					"description": "relevance, hot, top, new or comments",
				},
				"time": map[string]interface{}{
					"type":        "string",
					"description": "hour, day, week, month, year or all",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of posts, 1 to 100",
				},
			},
			Required: []string{"query"},
		},
	}, t.handleSearch)

	s.AddTool(mcp.Tool{
		Name:        UserPostsName,
		Description: userPostsDetail,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"username": map[string]interface{}{
					"type":        "string",
					"description": "Reddit username without the u/ prefix",
				},
				"time": map[string]interface{}{
					"type":        "string",
					"description": "hour, day, week, month, year or all",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of posts, 1 to 100",
				},
			},
			Required: []string{"username"},
		},
	}, t.handleUserPosts)
}

func (t *SearchTool) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("Missing or invalid 'query' argument"), nil
	}

	posts, err := t.Client.SearchSubreddit(ctx, request.GetString("subreddit", t.subreddit()), query, &reddit.ListingOptions{
		Sort:  request.GetString("sort", t.sort()),
		Limit: request.GetInt("limit", t.limit()),
		Time:  request.GetString("time", t.time()),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
	}
	return textResult(posts)
}

func (t *SearchTool) handleUserPosts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := request.RequireString("username")
	if err != nil {
		return mcp.NewToolResultError("Missing or invalid 'username' argument"), nil
	}

	posts, err := t.Client.FetchUserPosts(ctx, username, &reddit.ListingOptions{
		Limit: request.GetInt("limit", t.limit()),
		Time:  request.GetString("time", t.time()),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Fetching user posts failed: %v", err)), nil
	}
	return textResult(posts)
}

func textResult(posts []types.Post) (*mcp.CallToolResult, error) {
	text, err := encode(posts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode posts: %v", err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}, nil
}

func encode(posts []types.Post) (string, error) {
	if posts == nil {
		posts = []types.Post{}
	}
	b, err := json.Marshal(posts)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (t *SearchTool) subreddit() string {
	if t.Subreddit == "" {
		return DefaultSubreddit
	}
	return t.Subreddit
}

func (t *SearchTool) sort() string {
	if t.Sort == "" {
		return DefaultSort
	}
	return t.Sort
}

func (t *SearchTool) time() string {
	if t.Time == "" {
		return DefaultTime
	}
	return t.Time
}

func (t *SearchTool) limit() int {
	if t.Limit == 0 {
		return DefaultLimit
	}
	return t.Limit
}
