// Package langmeta resolves language codes found in locale file names to
// canonical BCP 47 tags, English names (used in translation prompts), native
// names and flag emoji (used in CLI output).
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes a language for display and prompting.
type Meta struct {
	// Code is the canonical tag, e.g. "pt-BR".
	Code string
	// English is the English name, e.g. "Brazilian Portuguese".
	English string
	// Native is the name in the language itself, e.g. "português".
	Native string
	// Flag is the emoji flag of the tag's region, empty when unknown.
	Flag string
	// Known is false when the code could not be parsed as a language tag.
	Known bool
}

// canonicalize is the fallback used when a code is not a valid tag:
// underscores become dashes, the language part is lower-cased and the
// region upper-cased.
func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Canonical returns the canonical form of a language code.
func Canonical(lang string) string {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return canonicalize(lang)
	}
	return tag.String()
}

// Resolve returns best-effort metadata for lang. Unknown codes come back
// with their names set to the code itself.
func Resolve(lang string) Meta {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil || tag == language.Und {
		code := canonicalize(lang)
		return Meta{Code: code, English: lang, Native: lang}
	}

	m := Meta{Code: tag.String(), Known: true}
	m.English = display.English.Tags().Name(tag)
	if m.English == "" {
		m.English = m.Code
	}
	m.Native = display.Self.Name(tag)
	if m.Native == "" {
		m.Native = m.English
	}
	if region, conf := tag.Region(); conf != language.No && region.IsCountry() {
		m.Flag = flag(region.String())
	}
	return m
}

// EnglishName returns the English name of lang, or lang itself.
func EnglishName(lang string) string {
	return Resolve(lang).English
}

// Label formats a language for CLI output: "🇩🇪 de (Deutsch)".
func Label(lang string) string {
	m := Resolve(lang)
	var b strings.Builder
	if m.Flag != "" {
		b.WriteString(m.Flag)
		b.WriteByte(' ')
	}
	b.WriteString(lang)
	if m.Known && m.Native != lang {
		b.WriteString(" (")
		b.WriteString(m.Native)
		b.WriteByte(')')
	}
	return b.String()
}

// flag converts a two-letter region code into regional indicator symbols.
func flag(region string) string {
	if len(region) != 2 {
		return ""
	}
	var b strings.Builder
	for _, c := range strings.ToUpper(region) {
		if c < 'A' || c > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + (c - 'A'))
	}
	return b.String()
}
