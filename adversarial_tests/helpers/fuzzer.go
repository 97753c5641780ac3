package helpers

import (
	"math/rand"
	"strings"
)

// Fuzzer provides utilities for generating adversarial input strings
type Fuzzer struct {
	rnd *rand.Rand
}

// NewFuzzer creates a new Fuzzer with the given seed
func NewFuzzer(seed int64) *Fuzzer {
	return &Fuzzer{
		rnd: rand.New(rand.NewSource(seed)),
	}
}

// attackPatterns are fragments that must never survive name validation.
var attackPatterns = []string{
	"../", "..\\", "/", "?", "#", "&", "%00", "%2F", ";", "'", "\"", "<", ">",
	" ", "\n", "\r", "\t", "\x00", "\x1b", "\u202e", "=",
}

// AttackPatterns returns the fragments injected by the fuzzer.
func AttackPatterns() []string {
	return append([]string(nil), attackPatterns...)
}

// FuzzSubredditName generates malicious subreddit name test cases
func (f *Fuzzer) FuzzSubredditName() []string {
	names := []string{
		// Empty and boundary cases
		"",
		"a",
		"abcdefghijklmnopqrstuv",
		strings.Repeat("a", 100),

		// Path traversal into other endpoints
		"../../api/v1/me",
		"golang/../../user/spez",
		"golang/search?q=x",
		"golang%2F..%2Fadmin",

		// Query and header injection
		"golang&limit=1000",
		"golang#fragment",
		"golang\r\nX-Injected: 1",
		"golang\x00admin",

		// SQL and markup
		"golang'; DROP TABLE documents--",
		"test<script>alert('xss')</script>",

		// Unicode lookalikes
		"gоlang", // Cyrillic o
		"test\u202eadmin",
		"🚀rocket",
	}
	return append(names, f.mutate("golang", 20)...)
}

// FuzzUsername generates malicious username test cases
func (f *Fuzzer) FuzzUsername() []string {
	names := []string{
		"",
		"ab",
		strings.Repeat("u", 21),
		"../spez",
		"spez/comments",
		"spez?sort=top",
		"spez\nHost: evil",
		"spez\x00",
		"spez'--",
		"ѕpez", // Cyrillic s
	}
	return append(names, f.mutate("gopher", 20)...)
}

// FuzzQuery generates hostile search queries. Queries are sent as an encoded
// parameter, so only emptiness and length are expected to be rejected.
func (f *Fuzzer) FuzzQuery() (valid, invalid []string) {
	valid = []string{
		"subreddit:golang",
		"a&b=c",
		"'; DROP TABLE posts--",
		"<script>alert(1)</script>",
		"line\nbreak",
		"100% real",
		"тест 测试 🚀",
		strings.Repeat("q", 512),
	}
	invalid = []string{
		"",
		" ",
		"\t\n",
		strings.Repeat("q", 513),
		f.RandomString(2048),
	}
	return valid, invalid
}

// RandomString returns n random printable ASCII characters
func (f *Fuzzer) RandomString(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(byte(' ' + f.rnd.Intn(95)))
	}
	return b.String()
}

// mutate inserts a random attack pattern at a random position of base, n times.
func (f *Fuzzer) mutate(base string, n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		pattern := attackPatterns[f.rnd.Intn(len(attackPatterns))]
		pos := f.rnd.Intn(len(base) + 1)
		out = append(out, base[:pos]+pattern+base[pos:])
	}
	return out
}
