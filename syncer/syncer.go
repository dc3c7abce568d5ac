// Package syncer brings localized JSON files in line with their template.
//
// For every target file the keys missing from it, and the keys flagged as
// updated in the template, are translated. Cached translations are applied
// first, the rest goes to the translator in batches, and a key that cannot
// be translated gets the template text and an entry in the failure report.
//
// Languages run concurrently, and so do the batches of one file. Only the
// goroutine owning a file mutates its tree.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/minios-linux/jta/cache"
	"github.com/minios-linux/jta/diff"
	"github.com/minios-linux/jta/keypath"
	"github.com/minios-linux/jta/locales"
	"github.com/minios-linux/jta/lockfile"
	"github.com/minios-linux/jta/report"
	"github.com/minios-linux/jta/translate"
)

// Options controls a sync run.
type Options struct {
	// Root is the project directory. Target names in results, the failure
	// report and the lock file are relative to it.
	Root string
	// Dialect formats key paths handed to the translator and the report.
	Dialect keypath.Dialect
	// Marker is the updated-keys marker. Default: diff.DefaultMarker.
	Marker string

	// BatchSize is the number of strings per translator call. Default: 15.
	BatchSize int
	// MaxConcurrentLanguages bounds languages processed at once. Default: 5.
	MaxConcurrentLanguages int
	// MaxConcurrentBatches bounds batches in flight per file. Default: 4.
	MaxConcurrentBatches int
	// BatchDelayMin and BatchDelayMax bound the random pause before each
	// batch after the first of a file.
	BatchDelayMin time.Duration
	BatchDelayMax time.Duration

	// Cache, Lock and Failures are optional.
	Cache    *cache.Cache
	Lock     *lockfile.Lock
	Failures *report.Failures

	// DryRun computes the result without calling the translator or writing
	// files. Keys that would be translated hold their template text and
	// FileResult.Diff shows the change.
	DryRun bool
	// Prune removes keys the template does not have.
	Prune bool
	// Verbose enables per-batch and per-key log lines.
	Verbose bool

	// OnLog emits progress messages.
	OnLog func(format string, args ...any)
	// OnError emits error messages.
	OnError func(format string, args ...any)
	// OnProgress receives the number of keys finished since the last call.
	// It is called from several goroutines.
	OnProgress func(n int)
	// OnFile receives every file result as soon as it is known. It is
	// called from several goroutines.
	OnFile func(FileResult)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) debug(format string, args ...any) {
	if o.Verbose {
		o.log(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else {
		o.log(format, args...)
	}
}

func (o *Options) progress(n int) {
	if n > 0 && o.OnProgress != nil {
		o.OnProgress(n)
	}
}

// FileResult describes what happened to one target file.
type FileResult struct {
	Lang string
	// Target is the target file relative to Options.Root.
	Target string
	// Created is true when the target file did not exist before.
	Created bool

	Missing int
	Updated int

	Translated int
	Cached     int
	// Copied counts non-string and blank values taken over verbatim.
	Copied int
	// Failed counts keys that fell back to the template text.
	Failed int
	// Skipped counts keys left out because the run was cancelled.
	Skipped int

	Extra  int
	Pruned int

	Written bool
	// Diff is the unified diff of the change in dry-run mode.
	Diff string
	Err  error
}

// Changed reports whether the file content differs from before the sync.
func (r FileResult) Changed() bool {
	return r.Translated+r.Cached+r.Copied+r.Failed+r.Pruned > 0 || r.Created
}

// Summary collects the file results of a run, ordered by language and then
// template file.
type Summary struct {
	Files []FileResult
}

// Totals sums the counters over all files.
func (s *Summary) Totals() FileResult {
	var t FileResult
	for _, f := range s.Files {
		t.Missing += f.Missing
		t.Updated += f.Updated
		t.Translated += f.Translated
		t.Cached += f.Cached
		t.Copied += f.Copied
		t.Failed += f.Failed
		t.Skipped += f.Skipped
		t.Extra += f.Extra
		t.Pruned += f.Pruned
	}
	return t
}

// Errors returns the results that ended with an error.
func (s *Summary) Errors() []FileResult {
	var out []FileResult
	for _, f := range s.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Syncer runs syncs with one translator and one set of options.
type Syncer struct {
	tr       translate.Translator
	opts     Options
	diffOpts diff.Options
}

// New returns a Syncer. tr may be nil in dry-run mode.
func New(tr translate.Translator, opts Options) *Syncer {
	if opts.Marker == "" {
		opts.Marker = diff.DefaultMarker
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 15
	}
	if opts.MaxConcurrentLanguages <= 0 {
		opts.MaxConcurrentLanguages = 5
	}
	if opts.MaxConcurrentBatches <= 0 {
		opts.MaxConcurrentBatches = 4
	}
	if opts.BatchDelayMax < opts.BatchDelayMin {
		opts.BatchDelayMax = opts.BatchDelayMin
	}
	if opts.Root == "" {
		opts.Root = "."
	}
	return &Syncer{
		tr:       tr,
		opts:     opts,
		diffOpts: diff.Options{Marker: opts.Marker},
	}
}

// Run syncs every pair. Pairs of one language are processed in order by a
// single goroutine. Cancelling ctx stops starting new files and batches;
// work already finished is still written.
//
// The returned error combines the errors of all files. The cache and the
// lock file are saved at the end unless running dry.
func (s *Syncer) Run(ctx context.Context, pairs []locales.Pair) (*Summary, error) {
	if s.tr == nil && !s.opts.DryRun {
		return nil, fmt.Errorf("no translator configured")
	}

	var langs []string
	byLang := make(map[string][]locales.Pair)
	for _, p := range pairs {
		if _, ok := byLang[p.Lang]; !ok {
			langs = append(langs, p.Lang)
		}
		byLang[p.Lang] = append(byLang[p.Lang], p)
	}

	var mu sync.Mutex
	results := make(map[string][]FileResult, len(langs))

	err := runParallelGeneric(ctx, langs, s.opts.MaxConcurrentLanguages, func(ctx context.Context, lang string) error {
		var errs error
		for _, p := range byLang[lang] {
			if ctx.Err() != nil {
				break
			}
			res := s.SyncFile(ctx, p)
			if s.opts.OnFile != nil {
				s.opts.OnFile(res)
			}
			mu.Lock()
			results[lang] = append(results[lang], res)
			mu.Unlock()
			if res.Err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", res.Target, res.Err))
			}
		}
		return errs
	})

	sum := &Summary{}
	for _, lang := range langs {
		sum.Files = append(sum.Files, results[lang]...)
	}

	if !s.opts.DryRun {
		if s.opts.Cache != nil {
			if serr := s.opts.Cache.Save(); serr != nil {
				err = multierr.Append(err, serr)
			}
		}
		if s.opts.Lock != nil {
			if serr := s.opts.Lock.Save(); serr != nil {
				err = multierr.Append(err, serr)
			}
		}
	}
	if ctx.Err() != nil {
		err = multierr.Append(err, ctx.Err())
	}
	return sum, err
}
