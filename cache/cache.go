// Package cache stores translations keyed by normalized source text and
// target language, and persists them as a JSON file between runs.
//
// Entries are never evicted. The store is safe for concurrent use by the
// workers of different languages.
package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultFileName is used when no cache path is configured.
const DefaultFileName = "translation-cache.json"

// DefaultSaveInterval is the number of inserts between periodic saves.
const DefaultSaveInterval = 10

// ---------------------------------------------------------------------------
// Keys
// ---------------------------------------------------------------------------

var normalizer = strings.NewReplacer(`"`, `\"`, "\n", `\n`)

// Normalize escapes double quotes and newlines and lower-cases the result.
// Lookup and Store both go through it, so texts differing only in case
// share an entry.
func Normalize(text string) string {
	return strings.ToLower(normalizer.Replace(text))
}

// Key returns the storage key of text translated into lang.
func Key(text, lang string) string {
	return Normalize(text) + "_" + lang
}

// ---------------------------------------------------------------------------
// Cache
// ---------------------------------------------------------------------------

// file is the on-disk layout.
type file struct {
	Translations    map[string]string `json:"translations"`
	TotalTokensUsed int64             `json:"totalTokensUsed"`
	TotalRequests   int64             `json:"totalRequests"`
	LastUpdated     string            `json:"lastUpdated"`
}

// Cache is a translation store bound to a file path.
type Cache struct {
	mu           sync.RWMutex
	path         string
	entries      map[string]string
	tokens       int64
	requests     int64
	lastUpdated  time.Time
	pending      int
	saveInterval int
}

// Stats is a snapshot of the cache counters.
type Stats struct {
	Entries         int
	TotalTokensUsed int64
	TotalRequests   int64
	LastUpdated     time.Time
}

// New returns an empty in-memory cache that saves to path.
func New(path string) *Cache {
	return &Cache{
		path:         path,
		entries:      make(map[string]string),
		saveInterval: DefaultSaveInterval,
	}
}

// Load reads the cache file at path. A missing file yields an empty cache.
func Load(path string) (*Cache, error) {
	c := New(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("reading cache %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return c, nil
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing cache %s: %w", path, err)
	}
	if f.Translations != nil {
		c.entries = f.Translations
	}
	c.tokens = f.TotalTokensUsed
	c.requests = f.TotalRequests
	if t, err := time.Parse(time.RFC3339, f.LastUpdated); err == nil {
		c.lastUpdated = t
	}
	return c, nil
}

// Path returns the cache file path.
func (c *Cache) Path() string {
	return c.path
}

// SetSaveInterval changes how many inserts ShouldSave waits for. Values
// below 1 are ignored.
func (c *Cache) SetSaveInterval(n int) {
	if n < 1 {
		return
	}
	c.mu.Lock()
	c.saveInterval = n
	c.mu.Unlock()
}

// Lookup returns the cached translation of text into lang.
func (c *Cache) Lookup(text, lang string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[Key(text, lang)]
	return v, ok
}

// Store records the translation of text into lang.
func (c *Cache) Store(text, lang, translation string) {
	key := Key(text, lang)
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[key]; ok && old == translation {
		return
	}
	c.entries[key] = translation
	c.pending++
}

// RecordUsage adds one request and its token count to the counters.
func (c *Cache) RecordUsage(tokens int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens += int64(tokens)
	c.requests++
}

// ShouldSave reports whether enough inserts accumulated since the last save.
func (c *Cache) ShouldSave() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pending >= c.saveInterval
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Entries:         len(c.entries),
		TotalTokensUsed: c.tokens,
		TotalRequests:   c.requests,
		LastUpdated:     c.lastUpdated,
	}
}

// Languages returns the sorted language codes present in the cache, taken
// from the key suffix.
func (c *Cache) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]struct{})
	for k := range c.entries {
		if i := strings.LastIndexByte(k, '_'); i >= 0 {
			seen[k[i+1:]] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Clear drops all entries and counters. The file is not touched until the
// next Save.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
	c.tokens = 0
	c.requests = 0
	c.pending = 0
}

// Save writes the cache as indented JSON, creating the parent directory if
// needed.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path == "" {
		return fmt.Errorf("cache path not set")
	}

	now := time.Now().UTC()
	f := file{
		Translations:    c.entries,
		TotalTokensUsed: c.tokens,
		TotalRequests:   c.requests,
		LastUpdated:     now.Format(time.RFC3339),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating cache directory: %w", err)
		}
	}
	if err := os.WriteFile(c.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing cache %s: %w", c.path, err)
	}

	c.lastUpdated = now
	c.pending = 0
	return nil
}
