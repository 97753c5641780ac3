package internal

import (
	"errors"
	"testing"

	pkgerrs "github.com/jamesprial/go-reddit-posts/pkg/errors"
	"github.com/jamesprial/go-reddit-posts/pkg/types"
)

func TestMapListing_Fixture(t *testing.T) {
	t.Parallel()

	posts, err := MapListing([]byte(listingBody))
	if err != nil {
		t.Fatalf("MapListing() error = %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}

	want := types.Post{
		Title:                 "Test Post",
		SelfText:              "Test Text",
		SubredditNamePrefixed: "r/test",
		Score:                 100,
		ID:                    "123",
		URL:                   "https://test.com",
		Author:                "test_author",
	}
	if posts[0] != want {
		t.Errorf("MapListing() = %+v, want %+v", posts[0], want)
	}
}

func TestMapListing_PreservesOrderAndExtras(t *testing.T) {
	t.Parallel()

	payload := `{"kind":"Listing","data":{"after":"t3_c","children":[
		{"kind":"t3","data":{"title":"a","selftext":"","subreddit_name_prefixed":"r/go","score":-3,"id":"a","url":"u","author":"x","created_utc":1700000000.0,"permalink":"/r/go/comments/a/","num_comments":7,"ups":12}},
		{"kind":"t3","data":{"title":"b","selftext":"body","subreddit_name_prefixed":"r/go","score":0,"id":"b","url":"u","author":"y"}},
		{"kind":"t3","data":{"title":"c","selftext":"","subreddit_name_prefixed":"r/go","score":5,"id":"c","url":"u","author":"z","created_utc":null}}
	]}}`

	posts, err := MapListing([]byte(payload))
	if err != nil {
		t.Fatalf("MapListing() error = %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(posts))
	}
	for i, id := range []string{"a", "b", "c"} {
		if posts[i].ID != id {
			t.Errorf("post %d: expected id %q, got %q", i, id, posts[i].ID)
		}
	}

	first := posts[0]
	if first.Score != -3 || first.CreatedUTC != 1700000000 || first.Permalink != "/r/go/comments/a/" || first.NumComments != 7 {
		t.Errorf("extras not mapped: %+v", first)
	}
	if posts[2].CreatedUTC != 0 {
		t.Errorf("expected null created_utc to be ignored, got %v", posts[2].CreatedUTC)
	}
}

func TestMapListing_Empty(t *testing.T) {
	t.Parallel()

	posts, err := MapListing([]byte(`{"kind":"Listing","data":{"children":[]}}`))
	if err != nil {
		t.Fatalf("MapListing() error = %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("expected no posts, got %d", len(posts))
	}
}

func TestMapListing_IntegralScoreForms(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"12", "12.0", "1.2e1"} {
		payload := `{"data":{"children":[{"data":{"title":"t","selftext":"","subreddit_name_prefixed":"r/go","score":` + raw + `,"id":"1","url":"u","author":"a"}}]}}`
		posts, err := MapListing([]byte(payload))
		if err != nil {
			t.Fatalf("score %s: MapListing() error = %v", raw, err)
		}
		if posts[0].Score != 12 {
			t.Errorf("score %s: expected 12, got %d", raw, posts[0].Score)
		}
	}
}

func TestMapListing_Errors(t *testing.T) {
	t.Parallel()

	const valid = `{"title":"t","selftext":"","subreddit_name_prefixed":"r/go","score":1,"id":"1","url":"u","author":"a"}`

	testCases := []struct {
		name      string
		payload   string
		wantIndex int
		wantField string
	}{
		{"not json", `<html>`, -1, ""},
		{"wrong kind", `{"kind":"t1","data":{}}`, -1, "kind"},
		{"missing data", `{"kind":"Listing"}`, -1, "data"},
		{"children not a list", `{"kind":"Listing","data":{"children":{}}}`, -1, "data.children"},
		{"empty data", `{"data":{}}`, -1, "data.children"},
		{"null children", `{"kind":"Listing","data":{"children":null}}`, -1, "data.children"},
		{"children absent", `{"data":{"after":"x"}}`, -1, "data.children"},
		{"child without data", `{"kind":"Listing","data":{"children":[{"kind":"t3"}]}}`, 0, "data"},
		{"missing title", `{"data":{"children":[{"data":{"selftext":"","subreddit_name_prefixed":"r/go","score":1,"id":"2","url":"u","author":"a"}}]}}`, 0, "title"},
		{"missing author on second child", `{"data":{"children":[{"data":` + valid + `},{"data":{"title":"t","selftext":"","subreddit_name_prefixed":"r/go","score":1,"id":"2","url":"u"}}]}}`, 1, "author"},
		{"score as string", `{"data":{"children":[{"data":{"title":"t","selftext":"","subreddit_name_prefixed":"r/go","score":"1","id":"1","url":"u","author":"a"}}]}}`, 0, "score"},
		{"title as number", `{"data":{"children":[{"data":{"title":5,"selftext":"","subreddit_name_prefixed":"r/go","score":1,"id":"1","url":"u","author":"a"}}]}}`, 0, "title"},
		{"null selftext", `{"data":{"children":[{"data":{"title":"t","selftext":null,"subreddit_name_prefixed":"r/go","score":1,"id":"1","url":"u","author":"a"}}]}}`, 0, "selftext"},
		{"fractional score", `{"data":{"children":[{"data":{"title":"t","selftext":"","subreddit_name_prefixed":"r/go","score":1.5,"id":"1","url":"u","author":"a"}}]}}`, 0, "score"},
		{"score out of range", `{"data":{"children":[{"data":{"title":"t","selftext":"","subreddit_name_prefixed":"r/go","score":1e300,"id":"1","url":"u","author":"a"}}]}}`, 0, "score"},
		{"missing score", `{"data":{"children":[{"data":{"title":"t","selftext":"","subreddit_name_prefixed":"r/go","id":"1","url":"u","author":"a"}}]}}`, 0, "score"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			posts, err := MapListing([]byte(tc.payload))
			if posts != nil {
				t.Errorf("expected no partial result, got %d posts", len(posts))
			}

			var mapErr *pkgerrs.MappingError
			if !errors.As(err, &mapErr) {
				t.Fatalf("expected *MappingError, got %v", err)
			}
			if mapErr.Index != tc.wantIndex {
				t.Errorf("expected index %d, got %d", tc.wantIndex, mapErr.Index)
			}
			if mapErr.Field != tc.wantField {
				t.Errorf("expected field %q, got %q", tc.wantField, mapErr.Field)
			}
		})
	}
}
