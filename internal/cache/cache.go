// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores fetched PubMed detail documents on disk, one JSON file
// per identifier, so repeated runs skip the network for records seen within
// the expiry window.
//
// The cache is advisory. Unreadable, corrupt, or expired entries read as
// misses and write failures are dropped after a debug log line.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pubmed-fetcher/internal/document"
)

// DefaultTTL is how long an entry stays fresh.
const DefaultTTL = 24 * time.Hour

const entryExt = ".json"

// entry is the on-disk form of one cached record.
type entry struct {
	FetchedAt int64          `json:"fetched_at"`
	Payload   *document.Node `json:"payload"`
}

// Stats summarizes the contents of a cache directory.
type Stats struct {
	Entries int
	Expired int
	Bytes   int64
}

// RecordCache is a file-per-identifier document cache.
type RecordCache struct {
	dir    string
	ttl    time.Duration
	logger zerolog.Logger

	// now is the clock used for timestamps and expiry.
	now func() time.Time
}

// DefaultDir returns the per-user cache root, falling back to a directory
// under the system temp dir when the user cache dir is unknown.
func DefaultDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "get-papers-list", "records")
}

// New returns a cache rooted at dir. An empty dir selects DefaultDir and a
// non-positive ttl selects DefaultTTL. The directory is created lazily on the
// first Put.
func New(dir string, ttl time.Duration, logger zerolog.Logger) *RecordCache {
	if dir == "" {
		dir = DefaultDir()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RecordCache{
		dir:    dir,
		ttl:    ttl,
		logger: logger.With().Str("component", "cache").Logger(),
		now:    time.Now,
	}
}

// Dir returns the cache root.
func (c *RecordCache) Dir() string { return c.dir }

// Get returns the cached document for id when a fresh, decodable entry
// exists.
func (c *RecordCache) Get(id string) (*document.Node, bool) {
	path := c.path(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug().Err(err).Str("pmid", id).Msg("cache read failed")
		}
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Payload == nil {
		c.logger.Debug().Err(err).Str("pmid", id).Msg("cache entry undecodable")
		return nil, false
	}
	if c.expired(e) {
		return nil, false
	}
	return e.Payload, true
}

// Put stores payload for id, stamped with the current time, replacing any
// previous entry.
func (c *RecordCache) Put(id string, payload *document.Node) {
	if payload == nil {
		return
	}
	if err := c.write(id, payload); err != nil {
		c.logger.Debug().Err(err).Str("pmid", id).Msg("cache write dropped")
	}
}

func (c *RecordCache) write(id string, payload *document.Node) error {
	data, err := json.Marshal(entry{FetchedAt: c.now().Unix(), Payload: payload})
	if err != nil {
		return fmt.Errorf("encoding entry: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".entry-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing entry: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, c.path(id)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Stats walks the cache root. A missing root is an empty cache.
func (c *RecordCache) Stats() (Stats, error) {
	var s Stats
	err := c.eachEntry(func(path string, info fs.FileInfo) error {
		s.Entries++
		s.Bytes += info.Size()
		if c.staleFile(path) {
			s.Expired++
		}
		return nil
	})
	return s, err
}

// Prune removes expired and undecodable entries and returns how many were
// removed.
func (c *RecordCache) Prune() (int, error) {
	removed := 0
	err := c.eachEntry(func(path string, _ fs.FileInfo) error {
		if !c.staleFile(path) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing %s: %w", path, err)
		}
		removed++
		return nil
	})
	return removed, err
}

// Clear removes every entry and returns how many were removed.
func (c *RecordCache) Clear() (int, error) {
	removed := 0
	err := c.eachEntry(func(path string, _ fs.FileInfo) error {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing %s: %w", path, err)
		}
		removed++
		return nil
	})
	return removed, err
}

func (c *RecordCache) eachEntry(fn func(path string, info fs.FileInfo) error) error {
	dirEntries, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading cache dir: %w", err)
	}
	for _, de := range dirEntries {
		if de.IsDir() || filepath.Ext(de.Name()) != entryExt {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		if err := fn(filepath.Join(c.dir, de.Name()), info); err != nil {
			return err
		}
	}
	return nil
}

// staleFile reports whether the entry at path would read as a miss.
func (c *RecordCache) staleFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return true
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Payload == nil {
		return true
	}
	return c.expired(e)
}

func (c *RecordCache) expired(e entry) bool {
	age := c.now().Sub(time.Unix(e.FetchedAt, 0))
	return age > c.ttl
}

func (c *RecordCache) path(id string) string {
	return filepath.Join(c.dir, sanitize(id)+entryExt)
}

// sanitize maps an identifier to a file name. Bytes outside
// [A-Za-z0-9._-] are written as %XX, so distinct identifiers never share a
// file and no identifier can name a path outside the cache root.
func sanitize(id string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		}
	}
	return b.String()
}
