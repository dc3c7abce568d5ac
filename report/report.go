// Package report records keys whose translation failed and writes them as
// a JSON report so they can be reviewed or retried.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultFileName is the report written next to the locales when failures
// occurred.
const DefaultFileName = "translation-failures-report.json"

// Failure is one key that was written with its source text because every
// translation attempt failed.
type Failure struct {
	TargetFile          string `json:"targetFile"`
	KeyPath             string `json:"keyPath"`
	FallbackTranslation string `json:"fallbackTranslation"`
	Reason              string `json:"reason,omitempty"`
}

// Summary is the header of a written report.
type Summary struct {
	TotalFailures int       `json:"totalFailures"`
	TargetFiles   []string  `json:"targetFiles"`
	GeneratedAt   time.Time `json:"generatedAt"`
	RunID         string    `json:"runId"`
}

// Report is the on-disk document.
type Report struct {
	Summary  Summary   `json:"summary"`
	Failures []Failure `json:"failures"`
}

// Failures collects failures from concurrent workers.
type Failures struct {
	mu     sync.Mutex
	runID  string
	byFile map[string][]Failure
}

// NewFailures returns an empty collector with a fresh run id.
func NewFailures() *Failures {
	return &Failures{
		runID:  uuid.NewString(),
		byFile: make(map[string][]Failure),
	}
}

// RunID identifies the run in the written report.
func (f *Failures) RunID() string {
	return f.runID
}

// Record adds a failure for keyPath in targetFile.
func (f *Failures) Record(targetFile, keyPath, fallback string, reason error) {
	fl := Failure{TargetFile: targetFile, KeyPath: keyPath, FallbackTranslation: fallback}
	if reason != nil {
		fl.Reason = reason.Error()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byFile[targetFile] = append(f.byFile[targetFile], fl)
}

// Count returns the total number of failures.
func (f *Failures) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.byFile {
		n += len(l)
	}
	return n
}

// CountFor returns the failures of one target file.
func (f *Failures) CountFor(targetFile string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byFile[targetFile])
}

// Files returns the target files with failures, sorted.
func (f *Failures) Files() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filesLocked()
}

func (f *Failures) filesLocked() []string {
	files := make([]string, 0, len(f.byFile))
	for k := range f.byFile {
		files = append(files, k)
	}
	sort.Strings(files)
	return files
}

// All returns every failure, grouped by target file in sorted order and in
// recording order within a file.
func (f *Failures) All() []Failure {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Failure
	for _, file := range f.filesLocked() {
		out = append(out, f.byFile[file]...)
	}
	return out
}

// Clear drops all recorded failures.
func (f *Failures) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byFile = make(map[string][]Failure)
}

// Build assembles the report document.
func (f *Failures) Build(now time.Time) *Report {
	all := f.All()
	return &Report{
		Summary: Summary{
			TotalFailures: len(all),
			TargetFiles:   f.Files(),
			GeneratedAt:   now.UTC(),
			RunID:         f.runID,
		},
		Failures: all,
	}
}

// Write saves the report to path when at least one failure was recorded.
// It reports whether a file was written.
func (f *Failures) Write(path string) (bool, error) {
	if f.Count() == 0 {
		return false, nil
	}
	data, err := json.MarshalIndent(f.Build(time.Now()), "", "  ")
	if err != nil {
		return false, fmt.Errorf("encoding report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false, fmt.Errorf("creating report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return false, fmt.Errorf("writing report %s: %w", path, err)
	}
	return true, nil
}
