package internal

import (
	"encoding/json"
	"fmt"
	"math"

	pkgerrs "github.com/jamesprial/go-reddit-posts/pkg/errors"
	"github.com/jamesprial/go-reddit-posts/pkg/types"
)

const (
	KindListing = "Listing"
)

// requiredStringFields must be present on every child and hold a JSON string.
var requiredStringFields = []string{
	"title",
	"selftext",
	"subreddit_name_prefixed",
	"id",
	"url",
	"author",
}

// MapListing projects a listing payload into posts, preserving API order.
//
// data.children must be an array; an empty one yields no posts. Every child must carry title, selftext, subreddit_name_prefixed, score, id,
// url and author with the right JSON type. The first malformed child fails the
// whole call with a *errors.MappingError naming it; no partial result is returned.
func MapListing(payload []byte) ([]types.Post, error) {
	var envelope types.Thing
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, &pkgerrs.MappingError{Index: -1, Message: "response is not a JSON object", Err: err}
	}
	if envelope.Kind != "" && envelope.Kind != KindListing {
		return nil, &pkgerrs.MappingError{Index: -1, Field: "kind", Message: fmt.Sprintf("expected %s, got %s", KindListing, envelope.Kind)}
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, &pkgerrs.MappingError{Index: -1, Field: "data", Message: "missing"}
	}

	var listing types.ListingData
	if err := json.Unmarshal(envelope.Data, &listing); err != nil {
		return nil, &pkgerrs.MappingError{Index: -1, Field: "data.children", Message: "not a list of objects", Err: err}
	}
	if listing.Children == nil {
		return nil, &pkgerrs.MappingError{Index: -1, Field: "data.children", Message: "missing"}
	}
	children := *listing.Children

	posts := make([]types.Post, 0, len(children))
	for i, child := range children {
		post, err := mapChild(i, child)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func mapChild(index int, child *types.Thing) (types.Post, error) {
	if child == nil || len(child.Data) == 0 || string(child.Data) == "null" {
		return types.Post{}, &pkgerrs.MappingError{Index: index, Field: "data", Message: "missing"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(child.Data, &fields); err != nil {
		return types.Post{}, &pkgerrs.MappingError{Index: index, Field: "data", Message: "not an object", Err: err}
	}

	strs := make(map[string]string, len(requiredStringFields))
	for _, name := range requiredStringFields {
		s, err := requireString(index, fields, name)
		if err != nil {
			return types.Post{}, err
		}
		strs[name] = s
	}

	score, err := requireInt(index, fields, "score")
	if err != nil {
		return types.Post{}, err
	}

	post := types.Post{
		Title:                 strs["title"],
		SelfText:              strs["selftext"],
		SubredditNamePrefixed: strs["subreddit_name_prefixed"],
		Score:                 score,
		ID:                    strs["id"],
		URL:                   strs["url"],
		Author:                strs["author"],
	}

	// Optional extras are taken when they decode and ignored otherwise.
	if raw, ok := fields["created_utc"]; ok {
		_ = json.Unmarshal(raw, &post.CreatedUTC)
	}
	if raw, ok := fields["permalink"]; ok {
		_ = json.Unmarshal(raw, &post.Permalink)
	}
	if raw, ok := fields["num_comments"]; ok {
		var n float64
		if json.Unmarshal(raw, &n) == nil {
			post.NumComments = int(n)
		}
	}

	return post, nil
}

func requireString(index int, fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok {
		return "", &pkgerrs.MappingError{Index: index, Field: name, Message: "missing"}
	}
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil || s == nil {
		return "", &pkgerrs.MappingError{Index: index, Field: name, Message: "expected a string", Err: err}
	}
	return *s, nil
}

// requireInt accepts integral JSON numbers that fit in an int, including
// forms such as 12.0 or 1e3.
func requireInt(index int, fields map[string]json.RawMessage, name string) (int, error) {
	raw, ok := fields[name]
	if !ok {
		return 0, &pkgerrs.MappingError{Index: index, Field: name, Message: "missing"}
	}
	var n *float64
	if err := json.Unmarshal(raw, &n); err != nil || n == nil {
		return 0, &pkgerrs.MappingError{Index: index, Field: name, Message: "expected a number", Err: err}
	}
	if *n != math.Trunc(*n) {
		return 0, &pkgerrs.MappingError{Index: index, Field: name, Message: fmt.Sprintf("expected an integer, got %v", *n)}
	}
	// -MinInt is 2^63 (or 2^31), the first value past MaxInt.
	if *n < math.MinInt || *n >= -float64(math.MinInt) {
		return 0, &pkgerrs.MappingError{Index: index, Field: name, Message: fmt.Sprintf("%v is out of range", *n)}
	}
	return int(*n), nil
}
