// Package i18n translates the messages of the jta command line.
//
// Catalogs are gettext .po files embedded from locales/{lang}/LC_MESSAGES/jta.po
// and read with gotext. Without Init, or without a catalog for the user's
// language, T and N return their input.
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// Directory structure: locales/{lang}/LC_MESSAGES/jta.po
//
//go:embed all:locales
var locales embed.FS

const domain = "jta"

var po *gotext.Locale

// Init loads the catalog for lang, or for the language of the environment
// (LANGUAGE, LC_ALL, LC_MESSAGES, LANG) when lang is empty. Call it once
// before T or N.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
	current = lang
}

var current = "en"

// Language returns the language passed to or detected by Init.
func Language() string {
	return current
}

// T translates msgid.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a message with plural forms selected by n.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// detectLanguage follows the gettext order LANGUAGE, LC_ALL, LC_MESSAGES,
// LANG. The encoding suffix is dropped and C/POSIX are skipped.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		if val := os.Getenv(env); val != "" {
			if env == "LANGUAGE" {
				parts := strings.SplitN(val, ":", 2)
				val = parts[0]
			}
			if idx := strings.IndexByte(val, '.'); idx >= 0 {
				val = val[:idx]
			}
			if val == "C" || val == "POSIX" || val == "" {
				continue
			}
			return val
		}
	}
	return "en"
}
