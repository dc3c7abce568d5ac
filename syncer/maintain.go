package syncer

import (
	"bytes"
	"fmt"

	"github.com/minios-linux/jta/diff"
	"github.com/minios-linux/jta/jsontree"
	"github.com/minios-linux/jta/keypath"
	"github.com/minios-linux/jta/locales"
	"github.com/minios-linux/jta/lockfile"
)

// pruneExtra deletes the extra leaves from target, last first so sequence
// positions stay valid, and then removes containers left empty that the
// template does not have either.
func pruneExtra(template, target any, extra []keypath.Path) int {
	n := 0
	for i := len(extra) - 1; i >= 0; i-- {
		p := extra[i]
		if !jsontree.Delete(target, p) {
			continue
		}
		n++
		for q := p.Parent(); len(q) > 0; q = q.Parent() {
			v, _ := jsontree.Get(target, q)
			if !isEmptyContainer(v) || jsontree.Exists(template, q) {
				break
			}
			jsontree.Delete(target, q)
		}
	}
	return n
}

func isEmptyContainer(v any) bool {
	switch c := v.(type) {
	case *jsontree.Object:
		return c.Len() == 0
	case *jsontree.Array:
		return c.Len() == 0
	}
	return false
}

// Prune removes the keys the template does not have from every existing
// target. In dry-run mode nothing is written and FileResult.Diff holds the
// change.
func (s *Syncer) Prune(pairs []locales.Pair) []FileResult {
	var out []FileResult
	for _, pair := range pairs {
		if !pair.Exists {
			continue
		}
		out = append(out, s.pruneFile(pair))
	}
	return out
}

func (s *Syncer) pruneFile(pair locales.Pair) FileResult {
	res := FileResult{Lang: pair.Lang, Target: lockfile.TargetKey(s.opts.Root, pair.Target)}

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
	extra, err := diff.Extra(template, target, s.diffOpts)
	if err != nil {
		res.Err = err
		return res
	}
	res.Extra = len(extra)
	if len(extra) == 0 {
		return res
	}
	res.Pruned = pruneExtra(template, target, extra)

	data, err := jsontree.Marshal(target)
	if err != nil {
		res.Err = fmt.Errorf("encoding %s: %w", pair.Target, err)
		return res
	}
	if s.opts.DryRun {
		res.Diff = UnifiedDiff("a/"+res.Target, "b/"+res.Target, string(original), string(data))
		return res
	}
	if !bytes.Equal(original, data) {
		if err := jsontree.WriteFile(pair.Target, target); err != nil {
			res.Err = err
			return res
		}
		res.Written = true
	}
	return res
}

// Clear resets every existing target to an empty mapping. Templates are
// never touched. Lock entries of cleared targets are dropped.
func (s *Syncer) Clear(pairs []locales.Pair) []FileResult {
	var out []FileResult
	for _, pair := range pairs {
		if !pair.Exists {
			continue
		}
		res := FileResult{Lang: pair.Lang, Target: lockfile.TargetKey(s.opts.Root, pair.Target)}
		if !s.opts.DryRun {
			if err := jsontree.WriteFile(pair.Target, jsontree.NewObject()); err != nil {
				res.Err = err
			} else {
				res.Written = true
				if s.opts.Lock != nil {
					s.opts.Lock.RemoveTarget(res.Target)
				}
			}
		}
		out = append(out, res)
	}
	return out
}

// FileStatus is the comparison of one target with its template.
type FileStatus struct {
	Lang   string
	Target string
	Exists bool
	// Total is the number of template leaves.
	Total   int
	Missing []keypath.Path
	Extra   []keypath.Path
	Err     error
}

// Present is the number of template leaves found in the target.
func (f FileStatus) Present() int {
	return f.Total - len(f.Missing)
}

// Inspect compares every pair without changing anything.
func (s *Syncer) Inspect(pairs []locales.Pair) []FileStatus {
	out := make([]FileStatus, 0, len(pairs))
	for _, pair := range pairs {
		out = append(out, s.inspectFile(pair))
	}
	return out
}

func (s *Syncer) inspectFile(pair locales.Pair) FileStatus {
	st := FileStatus{Lang: pair.Lang, Target: lockfile.TargetKey(s.opts.Root, pair.Target), Exists: pair.Exists}
	template, err := jsontree.LoadFile(pair.Template, jsontree.RoleTemplate)
	if err != nil {
		st.Err = err
		return st
	}
	target, _, err := loadTarget(pair.Target)
	if err != nil {
		st.Err = err
		return st
	}
	leaves, err := jsontree.Enumerate(template, jsontree.EnumerateOptions{ExcludeKeys: []string{s.opts.Marker}})
	if err != nil {
		st.Err = err
		return st
	}
	st.Total = len(leaves)
	cmp, err := diff.Compute(template, target, s.diffOpts)
	if err != nil {
		st.Err = err
		return st
	}
	st.Missing = cmp.Missing
	st.Extra = cmp.Extra
	return st
}

// Coverage is the completeness of one language over all its files.
type Coverage struct {
	Lang    string
	Present int
	Total   int
	Missing int
	Extra   int
	Files   int
	Errors  int
}

// Percent returns Present/Total as a percentage. An empty template counts
// as complete.
func (c Coverage) Percent() float64 {
	if c.Total == 0 {
		return 100
	}
	return float64(c.Present) * 100 / float64(c.Total)
}

// Complete reports whether no template key is missing.
func (c Coverage) Complete() bool {
	return c.Missing == 0 && c.Errors == 0
}

// LanguageCoverage aggregates file statuses per language, in first-seen
// order.
func LanguageCoverage(statuses []FileStatus) []Coverage {
	var out []Coverage
	index := make(map[string]int)
	for _, st := range statuses {
		i, ok := index[st.Lang]
		if !ok {
			i = len(out)
			index[st.Lang] = i
			out = append(out, Coverage{Lang: st.Lang})
		}
		c := &out[i]
		c.Files++
		if st.Err != nil {
			c.Errors++
			continue
		}
		c.Total += st.Total
		c.Present += st.Present()
		c.Missing += len(st.Missing)
		c.Extra += len(st.Extra)
	}
	return out
}
