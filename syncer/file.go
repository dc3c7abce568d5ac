package syncer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/jta/diff"
	"github.com/minios-linux/jta/jsontree"
	"github.com/minios-linux/jta/keypath"
	"github.com/minios-linux/jta/locales"
	"github.com/minios-linux/jta/lockfile"
)

// work is one string sent to the translator.
type work struct {
	path keypath.Path
	// key is path formatted in the configured dialect.
	key  string
	text string
}

type outcome struct {
	text    string
	err     error
	skipped bool
}

// lockKey is the dialect-independent key of path in the lock file.
func lockKey(p keypath.Path) string {
	return keypath.Format(p, keypath.Bracketed)
}

// loadTarget reads the target of pair. A missing file yields an empty
// mapping and a nil original.
func loadTarget(path string) (any, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return jsontree.NewObject(), nil, nil
		}
		return nil, nil, &jsontree.LoadError{Role: jsontree.RoleTarget, Path: path, Err: err}
	}
	tree, err := jsontree.Decode(data)
	if err != nil {
		return nil, nil, &jsontree.LoadError{Role: jsontree.RoleTarget, Path: path, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	return tree, data, nil
}

// SyncFile brings one target file in line with its template.
func (s *Syncer) SyncFile(ctx context.Context, pair locales.Pair) (res FileResult) {
	res = FileResult{Lang: pair.Lang, Target: lockfile.TargetKey(s.opts.Root, pair.Target)}

	template, err := jsontree.LoadFile(pair.Template, jsontree.RoleTemplate)
	if err != nil {
		res.Err = err
		return res
	}
	target, original, err := loadTarget(pair.Target)
	if err != nil {
		res.Err = err
		return res
	}
	res.Created = original == nil

	updated, err := diff.UpdatedKeys(template, s.opts.Marker)
	if err != nil {
		res.Err = err
		return res
	}
	if s.opts.Lock != nil && s.opts.Lock.Has(res.Target) {
		changed, err := s.lockChanged(template, target, res.Target)
		if err != nil {
			res.Err = err
			return res
		}
		updated = append(updated, changed...)
	}

	cmp, err := diff.Compute(template, target, s.diffOpts)
	if err != nil {
		res.Err = err
		return res
	}
	keys, err := diff.KeysToTranslate(template, target, updated, s.diffOpts)
	if err != nil {
		res.Err = err
		return res
	}
	res.Missing = len(cmp.Missing)
	res.Updated = len(keys) - len(cmp.Missing)
	res.Extra = len(cmp.Extra)

	s.opts.debug("%s: %d missing, %d updated, %d extra", res.Target, res.Missing, res.Updated, res.Extra)

	// values[i] is the value for keys[i]; pendingAt[j] is the index in keys
	// of pending[j]. Everything is applied in key order at the end so new
	// keys land in template order.
	values := make([]any, len(keys))
	var pending []work
	var pendingAt []int
	for i, p := range keys {
		v, _ := jsontree.Get(template, p)
		text, ok := v.(string)
		if !ok || strings.TrimSpace(text) == "" {
			values[i] = jsontree.Clone(v)
			res.Copied++
			continue
		}
		if s.opts.Cache != nil {
			if cached, ok := s.opts.Cache.Lookup(text, pair.Lang); ok {
				values[i] = cached
				res.Cached++
				continue
			}
		}
		pending = append(pending, work{path: p, key: keypath.Format(p, s.opts.Dialect), text: text})
		pendingAt = append(pendingAt, i)
	}
	if res.Cached > 0 {
		s.opts.log("%s: applied %d cached translations", res.Target, res.Cached)
	}
	s.opts.progress(res.Copied + res.Cached)

	var outcomes []outcome
	if s.opts.DryRun {
		outcomes = make([]outcome, len(pending))
		for i, w := range pending {
			outcomes[i] = outcome{text: w.text}
		}
		s.opts.progress(len(pending))
	} else {
		outcomes = s.translateAll(ctx, pair.Lang, res.Target, pending)
	}

	skip := make([]bool, len(keys))
	unsynced := make(map[string]bool)
	for j, w := range pending {
		i := pendingAt[j]
		o := outcomes[j]
		switch {
		case o.skipped:
			skip[i] = true
			unsynced[lockKey(w.path)] = true
			res.Skipped++
		case o.err != nil:
			values[i] = w.text
			res.Failed++
			unsynced[lockKey(w.path)] = true
			if s.opts.Failures != nil {
				s.opts.Failures.Record(res.Target, w.key, w.text, o.err)
			}
		default:
			values[i] = o.text
			res.Translated++
		}
	}
	for i, p := range keys {
		if !skip[i] {
			target = jsontree.Set(target, p, values[i])
		}
	}

	if s.opts.Prune && len(cmp.Extra) > 0 {
		res.Pruned = pruneExtra(template, target, cmp.Extra)
	}
	stripped := hasMarker(target, s.opts.Marker)
	if stripped {
		target = diff.StripMarkers(target, s.opts.Marker)
	}

	data, err := jsontree.Marshal(target)
	if err != nil {
		res.Err = fmt.Errorf("encoding %s: %w", pair.Target, err)
		return res
	}

	if s.opts.DryRun {
		if res.Changed() || stripped {
			res.Diff = UnifiedDiff("a/"+res.Target, "b/"+res.Target, string(original), string(data))
		}
		return res
	}

	if (res.Changed() || stripped) && !bytes.Equal(original, data) {
		if err := jsontree.WriteFile(pair.Target, target); err != nil {
			res.Err = err
			return res
		}
		res.Written = true
	}
	if s.opts.Lock != nil {
		s.recordLock(template, res.Target, unsynced, res.Skipped > 0)
	}
	return res
}

// hasMarker reports whether any mapping in tree holds marker.
func hasMarker(tree any, marker string) bool {
	found := false
	_ = jsontree.Walk(tree, func(_ keypath.Path, v any) bool {
		if obj, ok := v.(*jsontree.Object); ok {
			if _, ok := obj.Get(marker); ok {
				found = true
			}
		}
		return !found
	})
	return found
}

// templateStrings returns the string leaves of template with their text,
// keyed by lock key.
func (s *Syncer) templateStrings(template any) ([]keypath.Path, map[string]string, error) {
	leaves, err := jsontree.Enumerate(template, jsontree.EnumerateOptions{ExcludeKeys: []string{s.opts.Marker}})
	if err != nil {
		return nil, nil, err
	}
	paths := leaves[:0]
	texts := make(map[string]string, len(leaves))
	for _, p := range leaves {
		v, _ := jsontree.Get(template, p)
		if text, ok := v.(string); ok {
			paths = append(paths, p)
			texts[lockKey(p)] = text
		}
	}
	return paths, texts, nil
}

// lockChanged lists template strings present in target whose text differs
// from the text recorded in the lock, in template order.
func (s *Syncer) lockChanged(template, target any, targetKey string) ([]keypath.Path, error) {
	paths, texts, err := s.templateStrings(template)
	if err != nil {
		return nil, err
	}
	present := paths[:0]
	for _, p := range paths {
		if jsontree.Exists(target, p) {
			present = append(present, p)
		} else {
			delete(texts, lockKey(p))
		}
	}
	changed := s.opts.Lock.Changed(targetKey, texts)
	var out []keypath.Path
	for _, p := range present {
		if changed[lockKey(p)] {
			out = append(out, p)
		}
	}
	return out, nil
}

// recordLock stores the checksums of the template strings now in sync.
// Failed and skipped keys are left out so the next run picks them up again.
// After a cancelled run stale entries are kept.
func (s *Syncer) recordLock(template any, targetKey string, unsynced map[string]bool, partial bool) {
	paths, texts, err := s.templateStrings(template)
	if err != nil {
		return
	}
	current := make([]string, 0, len(paths))
	for _, p := range paths {
		k := lockKey(p)
		if unsynced[k] {
			delete(texts, k)
			continue
		}
		current = append(current, k)
	}
	s.opts.Lock.Record(targetKey, texts)
	if !partial {
		s.opts.Lock.Clean(targetKey, current)
	}
}

// translateAll translates pending in batches, at most MaxConcurrentBatches
// at a time. Results are returned in input order; the caller applies them.
func (s *Syncer) translateAll(ctx context.Context, lang, targetKey string, pending []work) []outcome {
	out := make([]outcome, len(pending))
	if len(pending) == 0 {
		return out
	}

	size := s.opts.BatchSize
	nBatches := (len(pending) + size - 1) / size
	s.opts.log("%s: translating %d keys in %d batches", targetKey, len(pending), nBatches)

	var g errgroup.Group
	g.SetLimit(s.opts.MaxConcurrentBatches)

	for b := 0; b < nBatches; b++ {
		lo := b * size
		hi := min(lo+size, len(pending))

		if b > 0 {
			if err := sleepCtx(ctx, s.batchDelay()); err != nil {
				markSkipped(out[lo:])
				break
			}
		}
		if ctx.Err() != nil {
			markSkipped(out[lo:])
			break
		}

		g.Go(func() error {
			s.opts.debug("%s: batch %d/%d (%d keys)", targetKey, b+1, nBatches, hi-lo)
			s.translateBatch(ctx, lang, targetKey, pending[lo:hi], out[lo:hi])
			s.opts.progress(hi - lo)
			if c := s.opts.Cache; c != nil && c.ShouldSave() {
				if err := c.Save(); err != nil {
					s.opts.logError("saving cache: %v", err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func markSkipped(out []outcome) {
	for i := range out {
		out[i].skipped = true
	}
}

func (s *Syncer) batchDelay() time.Duration {
	lo, hi := s.opts.BatchDelayMin, s.opts.BatchDelayMax
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo)
}

// translateBatch fills out for one batch. A failed batch, or one with the
// wrong number of results, is retried key by key. So is every key the batch
// answered with a blank string.
func (s *Syncer) translateBatch(ctx context.Context, lang, targetKey string, batch []work, out []outcome) {
	texts := make([]string, len(batch))
	keys := make([]string, len(batch))
	for i, w := range batch {
		texts[i] = w.text
		keys[i] = w.key
	}

	results, err := s.tr.TranslateBatch(ctx, texts, lang, keys)
	if err == nil && len(results) != len(batch) {
		err = fmt.Errorf("got %d translations for %d texts", len(results), len(batch))
	}

	var retry []int
	if err == nil {
		for i, w := range batch {
			if strings.TrimSpace(results[i]) == "" {
				retry = append(retry, i)
				continue
			}
			out[i] = outcome{text: results[i]}
			s.store(w.text, lang, results[i])
			s.opts.debug("%s: %s = %q", targetKey, w.key, results[i])
		}
		if len(retry) == 0 {
			return
		}
		s.opts.logError("%s: batch returned %d empty translations, retrying them one by one", targetKey, len(retry))
	} else {
		if ctx.Err() != nil {
			markSkipped(out)
			return
		}
		s.opts.logError("%s: batch translation failed, translating %d keys one by one: %v", targetKey, len(batch), err)
		retry = make([]int, len(batch))
		for i := range retry {
			retry[i] = i
		}
	}

	for n, i := range retry {
		if ctx.Err() != nil {
			for _, j := range retry[n:] {
				out[j].skipped = true
			}
			return
		}
		w := batch[i]
		tr, err := s.tr.Translate(ctx, w.text, lang, w.key)
		if err == nil && strings.TrimSpace(tr) == "" {
			err = fmt.Errorf("empty translation")
		}
		if err != nil {
			if ctx.Err() != nil {
				for _, j := range retry[n:] {
					out[j].skipped = true
				}
				return
			}
			s.opts.logError("%s: %s: %v (keeping source text)", targetKey, w.key, err)
			out[i] = outcome{err: err}
			continue
		}
		out[i] = outcome{text: tr}
		s.store(w.text, lang, tr)
		s.opts.debug("%s: %s = %q", targetKey, w.key, tr)
	}
}

func (s *Syncer) store(text, lang, translation string) {
	if s.opts.Cache != nil {
		s.opts.Cache.Store(text, lang, translation)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
