// Package lockfile implements jta.lock, which records an MD5 checksum of
// every template string per target file. A template string whose checksum
// differs from the recorded one has changed since the target was last
// synced and is translated again.
//
// The file lives in the project root:
//
//	version: 1
//	checksums:
//	  locales/de.json:
//	    menu.save: 9a4b6f884971dcb4a5172876b335baab
//	    steps[0].title: ...
package lockfile

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileName is the lock file name inside the project root.
const FileName = "jta.lock"

// Version is the lock file format version written by Save.
const Version = 1

// Digests maps a bracketed key path to the checksum of its template text.
type Digests map[string]string

// Lock is the content of jta.lock. It is safe for concurrent use by the
// per-file workers of one run.
type Lock struct {
	Version   int                `yaml:"version"`
	Checksums map[string]Digests `yaml:"checksums"` // target key -> digests

	mu   sync.Mutex
	path string
}

// New returns an empty lock that saves to dir/jta.lock.
func New(dir string) *Lock {
	return &Lock{
		Version:   Version,
		Checksums: make(map[string]Digests),
		path:      filepath.Join(dir, FileName),
	}
}

// Load reads dir/jta.lock. A missing file yields an empty lock.
func Load(dir string) (*Lock, error) {
	l := New(dir)
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", l.path, err)
	}
	if err := yaml.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", l.path, err)
	}
	if l.Version > Version {
		return nil, fmt.Errorf("%s: unsupported lock version %d (this build writes %d)", l.path, l.Version, Version)
	}
	l.Version = Version
	if l.Checksums == nil {
		l.Checksums = make(map[string]Digests)
	}
	return l, nil
}

// Save writes the lock back to the file it was loaded from.
func (l *Lock) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.path == "" {
		return errors.New("lock file path not set")
	}
	data, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("encoding lock file: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", l.path, err)
	}
	return nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Hash returns the hex MD5 of s.
func Hash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// TargetKey builds the key for a target file: its path relative to root
// with forward slashes, e.g. "locales/de/common.json". Paths outside root
// are kept as given.
func TargetKey(root, filePath string) string {
	if rel, err := filepath.Rel(root, filePath); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(filePath)
}

// Has reports whether any checksum was recorded for target. A target the
// lock has never seen has no baseline to compare against.
func (l *Lock) Has(target string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.Checksums[target]
	return ok
}

// Changed returns the keys of texts (key path -> template text) whose
// checksum is missing from target's record or differs from it.
func (l *Lock) Changed(target string, texts map[string]string) map[string]bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	recorded := l.Checksums[target]
	out := make(map[string]bool)
	for key, text := range texts {
		if sum, ok := recorded[key]; !ok || sum != Hash(text) {
			out[key] = true
		}
	}
	return out
}

// Record stores the checksums of texts (key path -> template text) for
// target. Other keys of target are left alone.
func (l *Lock) Record(target string, texts map[string]string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	d := l.Checksums[target]
	if d == nil {
		d = make(Digests, len(texts))
		l.Checksums[target] = d
	}
	for key, text := range texts {
		d[key] = Hash(text)
	}
}

// Clean drops target's checksums for keys not in current.
func (l *Lock) Clean(target string, current []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	d := l.Checksums[target]
	if d == nil {
		return
	}
	keep := make(map[string]bool, len(current))
	for _, k := range current {
		keep[k] = true
	}
	for k := range d {
		if !keep[k] {
			delete(d, k)
		}
	}
}

// RemoveTarget forgets everything recorded for target.
func (l *Lock) RemoveTarget(target string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.Checksums, target)
}

// TargetSummary is the number of keys recorded for one target.
type TargetSummary struct {
	Target string
	Keys   int
}

// Summary describes the lock contents for display.
type Summary struct {
	Targets []TargetSummary // sorted by target
	Keys    int
}

// Summary returns per-target key counts.
func (l *Lock) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	var s Summary
	for t, d := range l.Checksums {
		s.Targets = append(s.Targets, TargetSummary{Target: t, Keys: len(d)})
		s.Keys += len(d)
	}
	sort.Slice(s.Targets, func(i, j int) bool { return s.Targets[i].Target < s.Targets[j].Target })
	return s
}
