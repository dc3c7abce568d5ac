// Package locales discovers localized JSON files on disk and pairs every
// template file with its per-language target.
//
// Two layouts are recognized:
//
//	single: locales/en.json, locales/de.json
//	multi:  locales/en/common.json, locales/de/common.json (nested dirs allowed)
package locales

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

// Layout describes how locale files are organized.
type Layout string

const (
	LayoutSingle Layout = "single" // <dir>/<lang>.json
	LayoutMulti  Layout = "multi"  // <dir>/<lang>/**/*.json
)

// DefaultTemplate is the template language used when none is configured.
const DefaultTemplate = "en"

// langCodeRe matches directory and file names that look like language codes
// (en, pt-BR, zh_Hant, es-419).
var langCodeRe = regexp.MustCompile(`^[a-z]{2,3}([-_][A-Za-z0-9]{2,8})*$`)

// IsLangCode reports whether s looks like a language code.
func IsLangCode(s string) bool {
	return langCodeRe.MatchString(s)
}

// Locales is the discovered state of a locales directory.
type Locales struct {
	// Dir is the locales directory.
	Dir string
	// Layout is single or multi.
	Layout Layout
	// Template is the template language actually used, e.g. "en" or "en-US".
	Template string
	// Files are template-relative file paths with forward slashes. In the
	// single layout this is just "<template>.json".
	Files []string
	// Discovered are the language codes with existing files, excluding the
	// template, sorted.
	Discovered []string
}

// Pair links one template file with the target file of one language.
type Pair struct {
	Lang string
	// Rel is the file path relative to the language root.
	Rel      string
	Template string
	Target   string
	// Exists is false when the target file has not been created yet.
	Exists bool
}

// Discover inspects dir and selects the template variant for templateLang.
func Discover(dir, templateLang string) (*Locales, error) {
	if templateLang == "" {
		templateLang = DefaultTemplate
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("locales directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("locales directory %s is not a directory", dir)
	}

	variants := TemplateVariants(dir, templateLang)
	if len(variants) == 0 {
		return nil, fmt.Errorf("no %s template found in %s (expected %s.json or %s/)", templateLang, dir, templateLang, templateLang)
	}
	tmpl := variants[0]

	l := &Locales{Dir: dir, Template: tmpl}
	tmplDir := filepath.Join(dir, tmpl)
	if st, err := os.Stat(tmplDir); err == nil && st.IsDir() {
		l.Layout = LayoutMulti
		files, err := scanJSON(tmplDir)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("template directory %s has no JSON files", tmplDir)
		}
		l.Files = files
	} else {
		l.Layout = LayoutSingle
		l.Files = []string{tmpl + ".json"}
	}

	l.Discovered = l.discoverLanguages()
	return l, nil
}

// TemplateVariants lists candidate template names in dir: the exact code
// first, then "<code>-*" and "<code>_*" variants in sorted order. A variant
// may be a directory or a JSON file.
func TemplateVariants(dir, templateLang string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var exact bool
	var others []string
	seen := make(map[string]bool)
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() {
			if !strings.HasSuffix(name, ".json") {
				continue
			}
			name = strings.TrimSuffix(name, ".json")
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		switch {
		case name == templateLang:
			exact = true
		case strings.HasPrefix(name, templateLang+"-"), strings.HasPrefix(name, templateLang+"_"):
			others = append(others, name)
		}
	}
	sort.Strings(others)
	if exact {
		return append([]string{templateLang}, others...)
	}
	return others
}

// scanJSON returns the JSON files under root, relative and slash separated,
// in lexical order.
func scanJSON(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	return files, nil
}

func (l *Locales) discoverLanguages() []string {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil
	}
	var langs []string
	for _, e := range entries {
		name := e.Name()
		switch l.Layout {
		case LayoutMulti:
			if !e.IsDir() || name == l.Template || !IsLangCode(name) {
				continue
			}
			if files, _ := scanJSON(filepath.Join(l.Dir, name)); len(files) > 0 {
				langs = append(langs, name)
			}
		case LayoutSingle:
			if e.IsDir() || !strings.HasSuffix(name, ".json") {
				continue
			}
			lang := strings.TrimSuffix(name, ".json")
			if lang != l.Template && IsLangCode(lang) {
				langs = append(langs, lang)
			}
		}
	}
	sort.Strings(langs)
	return langs
}

// TemplatePath returns the absolute template file for rel.
func (l *Locales) TemplatePath(rel string) string {
	if l.Layout == LayoutSingle {
		return filepath.Join(l.Dir, rel)
	}
	return filepath.Join(l.Dir, l.Template, filepath.FromSlash(rel))
}

// TargetPath returns the target file of lang for template file rel.
func (l *Locales) TargetPath(lang, rel string) string {
	if l.Layout == LayoutSingle {
		return filepath.Join(l.Dir, lang+".json")
	}
	return filepath.Join(l.Dir, lang, filepath.FromSlash(rel))
}

// Pairs returns one pair per language and template file, languages in the
// given order and files in template order. Missing targets are included
// with Exists false.
func (l *Locales) Pairs(langs []string) []Pair {
	pairs := make([]Pair, 0, len(langs)*len(l.Files))
	for _, lang := range langs {
		for _, rel := range l.Files {
			target := l.TargetPath(lang, rel)
			_, err := os.Stat(target)
			pairs = append(pairs, Pair{
				Lang:     lang,
				Rel:      rel,
				Template: l.TemplatePath(rel),
				Target:   target,
				Exists:   err == nil,
			})
		}
	}
	return pairs
}

// OrphanError reports a target file with no template counterpart.
type OrphanError struct {
	Lang string
	Rel  string
}

func (e *OrphanError) Error() string {
	return fmt.Sprintf("%s/%s has no template counterpart", e.Lang, e.Rel)
}

// Validate checks that every target file of langs has a template
// counterpart. Only the multi layout can have orphans.
func (l *Locales) Validate(langs []string) error {
	if l.Layout != LayoutMulti {
		return nil
	}
	known := make(map[string]bool, len(l.Files))
	for _, f := range l.Files {
		known[f] = true
	}
	var errs error
	for _, lang := range langs {
		dir := filepath.Join(l.Dir, lang)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		files, err := scanJSON(dir)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for _, f := range files {
			if !known[f] {
				errs = multierr.Append(errs, &OrphanError{Lang: lang, Rel: f})
			}
		}
	}
	return errs
}

// ReadLanguagesFile reads language codes, one per line. Blank lines and
// lines starting with '#' are skipped; only the first token of a line is
// used, so "de German" yields "de".
func ReadLanguagesFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading languages file: %w", err)
	}
	defer f.Close()

	var langs []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		langs = append(langs, strings.Fields(line)[0])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading languages file: %w", err)
	}
	return langs, nil
}

// SplitLanguages splits a comma or whitespace separated list.
func SplitLanguages(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

// Languages picks the target languages: explicit codes first, then the
// languages file, then discovery. The template is never a target and
// duplicates are dropped, keeping first occurrence.
func (l *Locales) Languages(explicit []string, languagesFile string) ([]string, error) {
	src := explicit
	if len(src) == 0 && languagesFile != "" {
		var err error
		if src, err = ReadLanguagesFile(languagesFile); err != nil {
			return nil, err
		}
	}
	if len(src) == 0 {
		src = l.Discovered
	}

	seen := make(map[string]bool, len(src))
	out := make([]string, 0, len(src))
	for _, lang := range src {
		lang = strings.TrimSpace(lang)
		if lang == "" || lang == l.Template || seen[lang] {
			continue
		}
		seen[lang] = true
		out = append(out, lang)
	}
	return out, nil
}
