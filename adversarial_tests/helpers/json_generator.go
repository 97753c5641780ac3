package helpers

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
)

// JSONGenerator creates malicious and malformed listing payloads for testing
type JSONGenerator struct {
	rnd *rand.Rand
}

// NewJSONGenerator creates a new JSON generator with the given seed
func NewJSONGenerator(seed int64) *JSONGenerator {
	return &JSONGenerator{rnd: rand.New(rand.NewSource(seed))}
}

// ValidChild returns the data object of a well-formed post.
func (g *JSONGenerator) ValidChild(id string) map[string]any {
	return map[string]any{
		"title":                   "Post " + id,
		"selftext":                "Body " + id,
		"subreddit_name_prefixed": "r/golang",
		"score":                   g.rnd.Intn(10000) - 100,
		"id":                      id,
		"url":                     "https://www.reddit.com/r/golang/comments/" + id + "/",
		"author":                  "author_" + id,
	}
}

// Listing wraps child data objects in a Listing envelope.
func (g *JSONGenerator) Listing(children ...map[string]any) string {
	things := make([]map[string]any, 0, len(children))
	for _, c := range children {
		things = append(things, map[string]any{"kind": "t3", "data": c})
	}
	b, err := json.Marshal(map[string]any{
		"kind": "Listing",
		"data": map[string]any{"children": things},
	})
	if err != nil {
		panic(err)
	}
	return string(b)
}

// RandomListing returns a well-formed listing of n posts with ids p0..p(n-1).
func (g *JSONGenerator) RandomListing(n int) string {
	children := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		children = append(children, g.ValidChild(fmt.Sprintf("p%d", i)))
	}
	return g.Listing(children...)
}

// MalformedEnvelopes returns payloads whose listing envelope is broken.
func (g *JSONGenerator) MalformedEnvelopes() []string {
	return []string{
		``,
		`{`,
		`null`,
		`[]`,
		`"Listing"`,
		`12345`,
		`{}`,
		`{"kind": "Listing"}`,
		`{"kind": "Listing", "data": null}`,
		`{"data": {}}`,
		`{"kind": "Listing", "data": {"children": null}}`,
		`{"data": {"after": "x"}}`,
		`{"kind": "t3", "data": {"children": []}}`,
		`{"kind": "Listing", "data": "invalid"}`,
		`{"kind": "Listing", "data": {"children": "invalid"}}`,
		`{"kind": "Listing", "data": {"children": {"kind": "t3"}}}`,
		`{"kind": "Listing", "data": {"children": [1, 2, 3]}}`,
		`{"kind": "Listing", "data": {"children": [{"kind": "t3", "data": {}}],}}`,
		`<html><body>Too Many Requests</body></html>`,
	}
}

// CorruptChild describes a child broken in exactly one field.
type CorruptChild struct {
	Name  string
	Field string
	Data  map[string]any
}

// CorruptChildren returns one child per way a required field can be broken:
// removed, null, or replaced by a value of the wrong JSON type.
func (g *JSONGenerator) CorruptChildren() []CorruptChild {
	fields := []string{"title", "selftext", "subreddit_name_prefixed", "score", "id", "url", "author"}
	wrong := []struct {
		name  string
		value any
	}{
		{"null", nil},
		{"object", map[string]any{"nested": true}},
		{"array", []any{"a"}},
		{"bool", true},
	}

	var out []CorruptChild
	for _, field := range fields {
		c := g.ValidChild("x")
		delete(c, field)
		out = append(out, CorruptChild{Name: field + "/missing", Field: field, Data: c})

		for _, w := range wrong {
			c := g.ValidChild("x")
			c[field] = w.value
			out = append(out, CorruptChild{Name: field + "/" + w.name, Field: field, Data: c})
		}

		c = g.ValidChild("x")
		if field == "score" {
			c[field] = "100"
		} else {
			c[field] = 42
		}
		out = append(out, CorruptChild{Name: field + "/swapped type", Field: field, Data: c})
	}

	c := g.ValidChild("x")
	c["score"] = 2.5
	out = append(out, CorruptChild{Name: "score/fractional", Field: "score", Data: c})
	return out
}

// HugeStrings returns a child whose string fields are size bytes long.
func (g *JSONGenerator) HugeStrings(size int) map[string]any {
	c := g.ValidChild("huge")
	big := strings.Repeat("x", size)
	c["title"] = big
	c["selftext"] = big
	return c
}
