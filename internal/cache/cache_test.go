// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pubmed-fetcher/internal/document"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(t *testing.T, ttl time.Duration) (*RecordCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := New(t.TempDir(), ttl, zerolog.Nop())
	c.now = clock.now
	return c, clock
}

func samplePayload(t *testing.T) *document.Node {
	t.Helper()
	doc, err := document.ParseXML([]byte(`<PubmedArticleSet><PubmedArticle><Article><ArticleTitle>Cached</ArticleTitle></Article></PubmedArticle></PubmedArticleSet>`))
	require.NoError(t, err)
	return doc
}

func TestRoundTrip(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	payload := samplePayload(t)

	c.Put("12345", payload)
	got, ok := c.Get("12345")
	require.True(t, ok)
	assert.Equal(t, payload, got)

	title, _ := got.Find("Article").TextOf("ArticleTitle")
	assert.Equal(t, "Cached", title)
}

func TestGet_Missing(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	_, ok := c.Get("404")
	assert.False(t, ok)
}

func TestGet_Expiry(t *testing.T) {
	c, clock := newTestCache(t, time.Hour)
	c.Put("1", samplePayload(t))

	clock.t = clock.t.Add(time.Hour)
	_, ok := c.Get("1")
	assert.True(t, ok, "an entry exactly ttl old is still fresh")

	clock.t = clock.t.Add(time.Second)
	_, ok = c.Get("1")
	assert.False(t, ok)
}

func TestPut_Overwrites(t *testing.T) {
	c, clock := newTestCache(t, time.Hour)
	c.Put("1", samplePayload(t))

	clock.t = clock.t.Add(50 * time.Minute)
	replacement := &document.Node{Name: "PubmedArticleSet", Text: "v2"}
	c.Put("1", replacement)

	clock.t = clock.t.Add(30 * time.Minute)
	got, ok := c.Get("1")
	require.True(t, ok, "overwrite refreshes the timestamp")
	assert.Equal(t, "v2", got.Text)
}

func TestGet_CorruptEntry(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), "7.json"), []byte("{not json"), 0o644))

	_, ok := c.Get("7")
	assert.False(t, ok)
}

func TestGet_EntryWithoutPayload(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), "8.json"), []byte(`{"fetched_at": 1740830400}`), 0o644))

	_, ok := c.Get("8")
	assert.False(t, ok)
}

func TestPut_UnwritableDirIsSwallowed(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// The cache root sits beneath a regular file, so MkdirAll fails.
	c := New(filepath.Join(blocker, "records"), time.Hour, zerolog.Nop())
	assert.NotPanics(t, func() { c.Put("1", &document.Node{Name: "x"}) })

	_, ok := c.Get("1")
	assert.False(t, ok)
}

func TestPut_LeavesNoTempFiles(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	c.Put("1", samplePayload(t))
	c.Put("2", samplePayload(t))

	entries, err := os.ReadDir(c.Dir())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"1.json", "2.json"}, names)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "38000001", sanitize("38000001"))
	assert.Equal(t, "..%2Fetc%2Fpasswd", sanitize("../etc/passwd"))
	assert.NotContains(t, sanitize("a/b\\c"), "/")
	assert.NotEqual(t, sanitize("a/b"), sanitize("a_b"))
	assert.NotEqual(t, sanitize("a%2Fb"), sanitize("a/b"))
}

func TestDistinctIdentifiersDoNotCollide(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	c.Put("a/b", &document.Node{Name: "first"})

	_, ok := c.Get("a_b")
	assert.False(t, ok, "a_b was never stored")

	c.Put("a_b", &document.Node{Name: "second"})
	got, ok := c.Get("a/b")
	require.True(t, ok)
	assert.Equal(t, "first", got.Name)
	got, ok = c.Get("a_b")
	require.True(t, ok)
	assert.Equal(t, "second", got.Name)
}

func TestStatsPruneClear(t *testing.T) {
	c, clock := newTestCache(t, time.Hour)
	c.Put("old", samplePayload(t))
	clock.t = clock.t.Add(2 * time.Hour)
	c.Put("new", samplePayload(t))
	require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), "broken.json"), []byte("nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), "notes.txt"), []byte("ignored"), 0o644))

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, 2, stats.Expired)
	assert.Positive(t, stats.Bytes)

	removed, err := c.Prune()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, ok := c.Get("new")
	assert.True(t, ok)

	removed, err = c.Clear()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	stats, err = c.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)
	assert.FileExists(t, filepath.Join(c.Dir(), "notes.txt"))
}

func TestStats_MissingDir(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "never-created"), 0, zerolog.Nop())
	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.Equal(t, DefaultTTL, c.ttl)
}
