package types

import (
	"encoding/json"
	"net/url"
	"strings"
)

// Thing is the envelope Reddit wraps around every API object: a kind tag
// ("Listing", "t3", ...) and the raw object data.
type Thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// ListingData contains the data of a Listing. Children are left raw so the
// mapper can check field presence and types before building a Post.
// Children is nil when the array is absent or null.
type ListingData struct {
	BeforeFullname string    `json:"before"`
	AfterFullname  string    `json:"after"`
	Children       *[]*Thing `json:"children"`
}

// Post is the normalized record produced for every item of a listing.
// The first seven fields are always present; the rest are filled in when the
// API returns them.
type Post struct {
	Title                 string `json:"title"`
	SelfText              string `json:"selftext"`
	SubredditNamePrefixed string `json:"subreddit_name_prefixed"`
	Score                 int    `json:"score"`
	ID                    string `json:"id"`
	URL                   string `json:"url"`
	Author                string `json:"author"`

	CreatedUTC  float64 `json:"created_utc,omitempty"`
	Permalink   string  `json:"permalink,omitempty"`
	NumComments int     `json:"num_comments,omitempty"`
}

// Subreddit returns the subreddit name without its "r/" prefix.
func (p Post) Subreddit() string {
	return strings.TrimPrefix(p.SubredditNamePrefixed, "r/")
}

// ListingRequest describes one GET against a listing endpoint.
// Path is relative to the API base URL.
type ListingRequest struct {
	Path   string
	Params url.Values
}

// Document is the generic record handed to loader consumers: the post body as
// page content plus the post's attributes as metadata.
type Document struct {
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
}

// Metadata keys set on every Document built from a Post.
const (
	MetaSubreddit = "post_subreddit"
	MetaCategory  = "post_category"
	MetaTitle     = "post_title"
	MetaScore     = "post_score"
	MetaID        = "post_id"
	MetaURL       = "post_url"
	MetaAuthor    = "post_author"
)

// NewDocument builds the Document for post, tagged with the category (sort)
// it was fetched under.
func NewDocument(post Post, category string) Document {
	return Document{
		PageContent: post.SelfText,
		Metadata: map[string]any{
			MetaSubreddit: post.SubredditNamePrefixed,
			MetaCategory:  category,
			MetaTitle:     post.Title,
			MetaScore:     post.Score,
			MetaID:        post.ID,
			MetaURL:       post.URL,
			MetaAuthor:    post.Author,
		},
	}
}

// MetaString returns the string metadata value stored under key, or "".
func (d Document) MetaString(key string) string {
	s, _ := d.Metadata[key].(string)
	return s
}
