package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/minios-linux/jta/cache"
	"github.com/minios-linux/jta/jsontree"
	"github.com/minios-linux/jta/keypath"
	"github.com/minios-linux/jta/locales"
	"github.com/minios-linux/jta/lockfile"
	"github.com/minios-linux/jta/report"
	"github.com/minios-linux/jta/translate"
)

// project lays out a single-file locales directory under a temp root.
type project struct {
	root string
	dir  string
}

func newProject(t *testing.T, template string) *project {
	t.Helper()
	root := t.TempDir()
	p := &project{root: root, dir: filepath.Join(root, "locales")}
	p.write(t, "en", template)
	return p
}

func (p *project) path(lang string) string {
	return filepath.Join(p.dir, lang+".json")
}

func (p *project) write(t *testing.T, lang, body string) {
	t.Helper()
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(p.path(lang), []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func (p *project) read(t *testing.T, lang string) string {
	t.Helper()
	data, err := os.ReadFile(p.path(lang))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return string(data)
}

func (p *project) pair(lang string) locales.Pair {
	_, err := os.Stat(p.path(lang))
	return locales.Pair{
		Lang:     lang,
		Rel:      "en.json",
		Template: p.path("en"),
		Target:   p.path(lang),
		Exists:   err == nil,
	}
}

func (p *project) get(t *testing.T, lang, path string) any {
	t.Helper()
	tree, err := jsontree.LoadFile(p.path(lang), jsontree.RoleTarget)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	v, ok := jsontree.GetPath(tree, path, keypath.Dotted)
	if !ok {
		t.Fatalf("%s: %s not found", lang, path)
	}
	return v
}

func prefixTranslator(calls *atomic.Int32) translate.Func {
	return func(_ context.Context, text, lang, _ string) (string, error) {
		if calls != nil {
			calls.Add(1)
		}
		return strings.ToUpper(lang) + ":" + text, nil
	}
}

// flakyTranslator fails every batch and the single texts listed in bad.
// With blank set, batches succeed but answer "" for the texts listed there.
type flakyTranslator struct {
	bad     map[string]bool
	blank   map[string]bool
	short   bool
	batches atomic.Int32
	singles atomic.Int32
}

func (f *flakyTranslator) TranslateBatch(_ context.Context, texts []string, lang string, _ []string) ([]string, error) {
	f.batches.Add(1)
	if f.short {
		return texts[:len(texts)-1], nil
	}
	if f.blank != nil {
		out := make([]string, len(texts))
		for i, text := range texts {
			if !f.blank[text] {
				out[i] = "batch:" + text
			}
		}
		return out, nil
	}
	return nil, errors.New("batch rejected")
}

func (f *flakyTranslator) Translate(_ context.Context, text, lang, _ string) (string, error) {
	f.singles.Add(1)
	if f.bad[text] {
		return "", fmt.Errorf("cannot translate %q", text)
	}
	return "ok:" + text, nil
}

const sampleTemplate = `{
  "greeting": "Hello",
  "menu": {
    "save": "Save",
    "count": 3,
    "empty": ""
  },
  "list": ["a", "b"]
}`

func TestSyncFileTranslatesMissingKeys(t *testing.T) {
	p := newProject(t, sampleTemplate)
	p.write(t, "de", `{"greeting": "Hallo", "old": "x"}`)

	var calls atomic.Int32
	s := New(prefixTranslator(&calls), Options{Root: p.root})
	res := s.SyncFile(context.Background(), p.pair("de"))
	if res.Err != nil {
		t.Fatalf("SyncFile: %v", res.Err)
	}

	want := `{
  "greeting": "Hallo",
  "old": "x",
  "menu": {
    "save": "DE:Save",
    "count": 3,
    "empty": ""
  },
  "list": [
    "DE:a",
    "DE:b"
  ]
}
`
	if got := p.read(t, "de"); got != want {
		t.Fatalf("target mismatch (-want +got):\n%s", cmp.Diff(want, got))
	}
	if res.Target != "locales/de.json" {
		t.Errorf("Target = %q", res.Target)
	}
	if res.Missing != 5 || res.Translated != 3 || res.Copied != 2 || res.Extra != 1 {
		t.Errorf("counts = %+v", res)
	}
	if !res.Written || res.Created {
		t.Errorf("Written = %v, Created = %v", res.Written, res.Created)
	}
	if calls.Load() != 3 {
		t.Errorf("translator calls = %d, want 3", calls.Load())
	}
}

func TestSyncFileCreatesMissingTarget(t *testing.T) {
	p := newProject(t, `{"a": "A"}`)
	s := New(prefixTranslator(nil), Options{Root: p.root})
	res := s.SyncFile(context.Background(), p.pair("fr"))
	if res.Err != nil {
		t.Fatalf("SyncFile: %v", res.Err)
	}
	if !res.Created || !res.Written {
		t.Fatalf("Created = %v, Written = %v", res.Created, res.Written)
	}
	if got := p.get(t, "fr", "a"); got != "FR:A" {
		t.Fatalf("a = %v", got)
	}
}

func TestSyncFileUpToDateIsNotRewritten(t *testing.T) {
	p := newProject(t, `{"a": "A"}`)
	p.write(t, "de", "{\n  \"a\": \"Ä\"\n}\n")
	s := New(prefixTranslator(nil), Options{Root: p.root})
	res := s.SyncFile(context.Background(), p.pair("de"))
	if res.Err != nil {
		t.Fatalf("SyncFile: %v", res.Err)
	}
	if res.Written || res.Changed() {
		t.Fatalf("unchanged file reported as changed: %+v", res)
	}
}

func TestSyncUsesCache(t *testing.T) {
	p := newProject(t, `{"save": "Save", "open": "Open"}`)
	c := cache.New(filepath.Join(p.root, cache.DefaultFileName))
	c.Store("save", "de", "Speichern")

	var calls atomic.Int32
	s := New(prefixTranslator(&calls), Options{Root: p.root, Cache: c})
	res := s.SyncFile(context.Background(), p.pair("de"))
	if res.Err != nil {
		t.Fatalf("SyncFile: %v", res.Err)
	}
	if res.Cached != 1 || res.Translated != 1 {
		t.Fatalf("counts = %+v", res)
	}
	if calls.Load() != 1 {
		t.Fatalf("translator calls = %d, want 1", calls.Load())
	}
	if got := p.get(t, "de", "save"); got != "Speichern" {
		t.Fatalf("save = %v", got)
	}
	if tr, ok := c.Lookup("Open", "de"); !ok || tr != "DE:Open" {
		t.Fatalf("new translation not cached: %q %v", tr, ok)
	}
}

func TestSyncBatchFallbackRecordsFailures(t *testing.T) {
	p := newProject(t, `{"a": "Fine", "b": "Boom", "c": "Also fine"}`)
	tr := &flakyTranslator{bad: map[string]bool{"Boom": true}}
	failures := report.NewFailures()

	var errLines []string
	var mu sync.Mutex
	s := New(tr, Options{
		Root:     p.root,
		Failures: failures,
		OnError: func(format string, args ...any) {
			mu.Lock()
			errLines = append(errLines, fmt.Sprintf(format, args...))
			mu.Unlock()
		},
	})
	res := s.SyncFile(context.Background(), p.pair("de"))
	if res.Err != nil {
		t.Fatalf("SyncFile: %v", res.Err)
	}
	if res.Translated != 2 || res.Failed != 1 {
		t.Fatalf("counts = %+v", res)
	}
	if got := p.get(t, "de", "b"); got != "Boom" {
		t.Fatalf("failed key = %v, want source text", got)
	}
	if got := p.get(t, "de", "a"); got != "ok:Fine" {
		t.Fatalf("a = %v", got)
	}
	if tr.batches.Load() != 1 || tr.singles.Load() != 3 {
		t.Fatalf("batches = %d, singles = %d", tr.batches.Load(), tr.singles.Load())
	}

	all := failures.All()
	want := []report.Failure{{
		TargetFile:          "locales/de.json",
		KeyPath:             "b",
		FallbackTranslation: "Boom",
		Reason:              `cannot translate "Boom"`,
	}}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Fatalf("failures mismatch (-want +got):\n%s", diff)
	}
	if len(errLines) == 0 {
		t.Fatal("no error lines logged")
	}
}

func TestSyncCountMismatchFallsBack(t *testing.T) {
	p := newProject(t, `{"a": "One", "b": "Two"}`)
	tr := &flakyTranslator{short: true}
	s := New(tr, Options{Root: p.root})
	res := s.SyncFile(context.Background(), p.pair("de"))
	if res.Err != nil {
		t.Fatalf("SyncFile: %v", res.Err)
	}
	if res.Translated != 2 || tr.singles.Load() != 2 {
		t.Fatalf("res = %+v, singles = %d", res, tr.singles.Load())
	}
}

func TestSyncBlankBatchResultIsRetried(t *testing.T) {
	p := newProject(t, `{"a": "Hello", "b": "World"}`)
	c := cache.New(filepath.Join(p.root, cache.DefaultFileName))
	tr := &flakyTranslator{blank: map[string]bool{"World": true}}
	s := New(tr, Options{Root: p.root, Cache: c})
	res := s.SyncFile(context.Background(), p.pair("de"))
	if res.Err != nil {
		t.Fatalf("SyncFile: %v", res.Err)
	}
	if res.Translated != 2 || res.Failed != 0 {
		t.Fatalf("counts = %+v", res)
	}
	if got := p.get(t, "de", "a"); got != "batch:Hello" {
		t.Fatalf("a = %v", got)
	}
	if got := p.get(t, "de", "b"); got != "ok:World" {
		t.Fatalf("b = %v, want the single-key translation", got)
	}
	if tr.singles.Load() != 1 {
		t.Fatalf("singles = %d, want 1", tr.singles.Load())
	}
	if got, ok := c.Lookup("World", "de"); !ok || got != "ok:World" {
		t.Fatalf("cache World = %q, %v", got, ok)
	}
}

func TestSyncBlankBatchResultNotCached(t *testing.T) {
	p := newProject(t, `{"a": "Hello", "b": "World"}`)
	c := cache.New(filepath.Join(p.root, cache.DefaultFileName))
	tr := &flakyTranslator{
		blank: map[string]bool{"World": true},
		bad:   map[string]bool{"World": true},
	}
	s := New(tr, Options{Root: p.root, Cache: c})
	res := s.SyncFile(context.Background(), p.pair("de"))
	if res.Err != nil {
		t.Fatalf("SyncFile: %v", res.Err)
	}
	if res.Translated != 1 || res.Failed != 1 {
		t.Fatalf("counts = %+v", res)
	}
	if got := p.get(t, "de", "b"); got != "World" {
		t.Fatalf("b = %v, want source text", got)
	}
	if got, ok := c.Lookup("World", "de"); ok {
		t.Fatalf("blank translation cached as %q", got)
	}
}

func TestSyncBatchesAreSplit(t *testing.T) {
	var body strings.Builder
	body.WriteString("{")
	for i := 0; i < 7; i++ {
		if i > 0 {
			body.WriteString(",")
		}
		fmt.Fprintf(&body, `"k%d": "v%d"`, i, i)
	}
	body.WriteString("}")
	p := newProject(t, body.String())

	var mu sync.Mutex
	var sizes []int
	tr := batchRecorder(func(n int) {
		mu.Lock()
		sizes = append(sizes, n)
		mu.Unlock()
	})

	var progressed atomic.Int32
	s := New(tr, Options{
		Root:                 p.root,
		BatchSize:            3,
		MaxConcurrentBatches: 2,
		OnProgress:           func(n int) { progressed.Add(int32(n)) },
	})
	res := s.SyncFile(context.Background(), p.pair("de"))
	if res.Err != nil {
		t.Fatalf("SyncFile: %v", res.Err)
	}
	if res.Translated != 7 {
		t.Fatalf("Translated = %d", res.Translated)
	}
	total := 0
	for _, n := range sizes {
		if n > 3 {
			t.Fatalf("batch of %d exceeds batch size", n)
		}
		total += n
	}
	if len(sizes) != 3 || total != 7 {
		t.Fatalf("batch sizes = %v", sizes)
	}
	if progressed.Load() != 7 {
		t.Fatalf("progress = %d, want 7", progressed.Load())
	}
	if got := p.get(t, "de", "k6"); got != "b:v6" {
		t.Fatalf("k6 = %v", got)
	}
}

type batchRecorder func(n int)

func (b batchRecorder) Translate(_ context.Context, text, _, _ string) (string, error) {
	return "s:" + text, nil
}

func (b batchRecorder) TranslateBatch(_ context.Context, texts []string, _ string, _ []string) ([]string, error) {
	b(len(texts))
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = "b:" + t
	}
	return out, nil
}

func TestSyncUpdatedKeysMarker(t *testing.T) {
	p := newProject(t, `{"__updated_keys__": ["title"], "title": "New title", "body": "Body"}`)
	p.write(t, "de", `{"title": "Alter Titel", "body": "Inhalt"}`)

	s := New(prefixTranslator(nil), Options{Root: p.root})
	res := s.SyncFile(context.Background(), p.pair("de"))
	if res.Err != nil {
		t.Fatalf("SyncFile: %v", res.Err)
	}
	if res.Missing != 0 || res.Updated != 1 || res.Translated != 1 {
		t.Fatalf("counts = %+v", res)
	}
	if got := p.get(t, "de", "title"); got != "DE:New title" {
		t.Fatalf("title = %v", got)
	}
	if got := p.get(t, "de", "body"); got != "Inhalt" {
		t.Fatalf("body = %v", got)
	}
	if strings.Contains(p.read(t, "de"), "__updated_keys__") {
		t.Fatal("marker leaked into target")
	}
}

func lockStale(lf *lockfile.Lock, target, key, text string) bool {
	return lf.Changed(target, map[string]string{key: text})[key]
}

func TestSyncLockDetectsChangedTemplate(t *testing.T) {
	p := newProject(t, `{"title": "Old title", "body": "Body"}`)
	p.write(t, "de", `{"title": "Alter Titel", "body": "Inhalt"}`)

	lf, err := lockfile.Load(p.root)
	if err != nil {
		t.Fatalf("lockfile.Load: %v", err)
	}
	s := New(prefixTranslator(nil), Options{Root: p.root, Lock: lf})

	// First run only records the baseline.
	res := s.SyncFile(context.Background(), p.pair("de"))
	if res.Err != nil || res.Translated != 0 {
		t.Fatalf("first run = %+v", res)
	}
	if !lf.Has("locales/de.json") {
		t.Fatal("baseline not recorded")
	}

	p.write(t, "en", `{"title": "New title", "body": "Body"}`)
	res = s.SyncFile(context.Background(), p.pair("de"))
	if res.Err != nil {
		t.Fatalf("SyncFile: %v", res.Err)
	}
	if res.Updated != 1 || res.Translated != 1 {
		t.Fatalf("second run = %+v", res)
	}
	if got := p.get(t, "de", "title"); got != "DE:New title" {
		t.Fatalf("title = %v", got)
	}
	if lockStale(lf, "locales/de.json", "title", "New title") {
		t.Fatal("lock not updated after sync")
	}
}

func TestSyncLockSkipsFailedKeys(t *testing.T) {
	p := newProject(t, `{"a": "Fine", "b": "Boom"}`)
	lf, _ := lockfile.Load(p.root)
	s := New(&flakyTranslator{bad: map[string]bool{"Boom": true}}, Options{Root: p.root, Lock: lf})
	res := s.SyncFile(context.Background(), p.pair("de"))
	if res.Err != nil {
		t.Fatalf("SyncFile: %v", res.Err)
	}
	if lockStale(lf, "locales/de.json", "a", "Fine") {
		t.Fatal("translated key not locked")
	}
	if !lockStale(lf, "locales/de.json", "b", "Boom") {
		t.Fatal("failed key must stay unlocked")
	}
}

func TestSyncPrune(t *testing.T) {
	p := newProject(t, `{"a": "A", "group": {"keep": "K"}}`)
	p.write(t, "de", `{"a": "Ä", "old": "x", "legacy": {"x": "y"}, "group": {"keep": "K2", "gone": "G"}}`)

	s := New(prefixTranslator(nil), Options{Root: p.root, Prune: true})
	res := s.SyncFile(context.Background(), p.pair("de"))
	if res.Err != nil {
		t.Fatalf("SyncFile: %v", res.Err)
	}
	if res.Extra != 3 || res.Pruned != 3 {
		t.Fatalf("counts = %+v", res)
	}
	want := `{
  "a": "Ä",
  "group": {
    "keep": "K2"
  }
}
`
	if got := p.read(t, "de"); got != want {
		t.Fatalf("target mismatch (-want +got):\n%s", cmp.Diff(want, got))
	}
}

func TestPruneDryRun(t *testing.T) {
	p := newProject(t, `{"a": "A"}`)
	before := `{"a": "Ä", "old": "x"}`
	p.write(t, "de", before)

	s := New(nil, Options{Root: p.root, DryRun: true})
	results := s.Prune([]locales.Pair{p.pair("de"), p.pair("fr")})
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1 (missing targets skipped)", len(results))
	}
	res := results[0]
	if res.Pruned != 1 || res.Written {
		t.Fatalf("res = %+v", res)
	}
	if !strings.Contains(res.Diff, "+++ b/locales/de.json") {
		t.Fatalf("diff = %q", res.Diff)
	}
	if got := p.read(t, "de"); got != before {
		t.Fatalf("dry run wrote the file: %q", got)
	}
}

func TestSyncDryRun(t *testing.T) {
	p := newProject(t, `{"a": "A", "b": "B"}`)
	before := "{\n  \"a\": \"Ä\"\n}\n"
	p.write(t, "de", before)

	s := New(nil, Options{Root: p.root, DryRun: true})
	sum, err := s.Run(context.Background(), []locales.Pair{p.pair("de")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	res := sum.Files[0]
	if res.Translated != 1 || res.Written {
		t.Fatalf("res = %+v", res)
	}
	if !strings.Contains(res.Diff, `+  "b": "B"`) {
		t.Fatalf("diff lacks the new key:\n%s", res.Diff)
	}
	if got := p.read(t, "de"); got != before {
		t.Fatalf("dry run wrote the file: %q", got)
	}
	if _, err := os.Stat(filepath.Join(p.root, cache.DefaultFileName)); !os.IsNotExist(err) {
		t.Fatal("dry run must not write a cache")
	}
}

func TestRunWithoutTranslator(t *testing.T) {
	if _, err := New(nil, Options{}).Run(context.Background(), nil); err == nil {
		t.Fatal("expected error without translator")
	}
}

func TestRunAggregatesErrors(t *testing.T) {
	p := newProject(t, `{"a": "A"}`)
	p.write(t, "fr", `{"a": `)

	c := cache.New(filepath.Join(p.root, "cache.json"))
	s := New(prefixTranslator(nil), Options{Root: p.root, Cache: c})
	sum, err := s.Run(context.Background(), []locales.Pair{p.pair("de"), p.pair("fr")})
	if err == nil || !strings.Contains(err.Error(), "locales/fr.json") {
		t.Fatalf("err = %v", err)
	}
	if len(sum.Files) != 2 || sum.Files[0].Lang != "de" || sum.Files[1].Lang != "fr" {
		t.Fatalf("files = %+v", sum.Files)
	}
	if got := p.get(t, "de", "a"); got != "DE:A" {
		t.Fatalf("de.a = %v", got)
	}
	var le *jsontree.LoadError
	if !errors.As(sum.Errors()[0].Err, &le) || le.Role != jsontree.RoleTarget {
		t.Fatalf("fr error = %v", sum.Errors()[0].Err)
	}
	if _, err := os.Stat(c.Path()); err != nil {
		t.Fatalf("cache not saved: %v", err)
	}
	if tot := sum.Totals(); tot.Translated != 1 {
		t.Fatalf("totals = %+v", tot)
	}
}

func TestRunCancelled(t *testing.T) {
	p := newProject(t, `{"a": "A"}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(prefixTranslator(nil), Options{Root: p.root})
	sum, err := s.Run(ctx, []locales.Pair{p.pair("de")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(sum.Files) != 0 {
		t.Fatalf("files = %+v", sum.Files)
	}
}

func TestInspectAndCoverage(t *testing.T) {
	p := newProject(t, `{"a": "A", "b": "B", "__updated_keys__": ["a"]}`)
	p.write(t, "de", `{"a": "Ä", "z": "Z"}`)
	p.write(t, "fr", `{"a": "À", "b": "Bé"}`)

	s := New(nil, Options{Root: p.root})
	st := s.Inspect([]locales.Pair{p.pair("de"), p.pair("fr"), p.pair("it")})
	if st[0].Total != 2 || st[0].Present() != 1 || len(st[0].Extra) != 1 {
		t.Fatalf("de status = %+v", st[0])
	}
	if st[2].Exists || len(st[2].Missing) != 2 {
		t.Fatalf("it status = %+v", st[2])
	}

	cov := LanguageCoverage(st)
	if len(cov) != 3 {
		t.Fatalf("coverage = %+v", cov)
	}
	if cov[0].Percent() != 50 || cov[0].Complete() {
		t.Fatalf("de coverage = %+v", cov[0])
	}
	if !cov[1].Complete() || cov[1].Percent() != 100 {
		t.Fatalf("fr coverage = %+v", cov[1])
	}
}

func TestClear(t *testing.T) {
	p := newProject(t, `{"a": "A"}`)
	p.write(t, "de", `{"a": "Ä"}`)
	lf, _ := lockfile.Load(p.root)
	lf.Record("locales/de.json", map[string]string{"a": "A"})

	s := New(nil, Options{Root: p.root, Lock: lf})
	results := s.Clear([]locales.Pair{p.pair("de"), p.pair("fr")})
	if len(results) != 1 || !results[0].Written {
		t.Fatalf("results = %+v", results)
	}
	if got := p.read(t, "de"); got != "{}\n" {
		t.Fatalf("de = %q", got)
	}
	if got := p.read(t, "en"); got != `{"a": "A"}` {
		t.Fatalf("template touched: %q", got)
	}
	if lf.Has("locales/de.json") {
		t.Fatal("lock entries not removed")
	}
}

func TestRunParallelGenericBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	tasks := make([]int, 20)
	err := runParallelGeneric(context.Background(), tasks, 3, func(_ context.Context, _ int) error {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})
	if err != nil {
		t.Fatalf("runParallelGeneric: %v", err)
	}
	if peak.Load() > 3 {
		t.Fatalf("peak concurrency = %d, want <= 3", peak.Load())
	}
}

func TestRunParallelGenericCombinesErrors(t *testing.T) {
	err := runParallelGeneric(context.Background(), []string{"a", "b", "c"}, 2, func(_ context.Context, s string) error {
		if s == "b" {
			return nil
		}
		return errors.New("fail " + s)
	})
	if err == nil || !strings.Contains(err.Error(), "fail a") || !strings.Contains(err.Error(), "fail c") {
		t.Fatalf("err = %v", err)
	}
}

func TestUnifiedDiff(t *testing.T) {
	from := "one\ntwo\n"
	to := "one\ntwo\nthree\n"
	got := UnifiedDiff("a/x", "b/x", from, to)
	want := `--- a/x
+++ b/x
@@ -1,2 +1,3 @@
 one
 two
+three
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("UnifiedDiff mismatch (-want +got):\n%s", diff)
	}
	if UnifiedDiff("a", "b", from, from) != "" {
		t.Fatal("equal inputs must give an empty diff")
	}
}

func TestUnifiedDiffReplacement(t *testing.T) {
	got := UnifiedDiff("a/x", "b/x", "a\nb\nc\n", "a\nB\nc\n")
	for _, want := range []string{"-b\n", "+B\n", " a\n", " c\n"} {
		if !strings.Contains(got, want) {
			t.Fatalf("diff lacks %q:\n%s", want, got)
		}
	}
}
