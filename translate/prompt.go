package translate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ---------------------------------------------------------------------------
// Prompts
// ---------------------------------------------------------------------------

const promptGuidelines = `Important guidelines:
- Keep technical terms in English when appropriate (React, Next.js, TypeScript, etc.)
- Preserve any HTML tags or placeholders like {variable}
- Keep the translation natural and fluent
- %s
- Do not include explanations or additional text`

// systemPrompt builds the system message for langName. custom is optional
// extra guidance inserted after the role sentence.
func systemPrompt(langName, custom string, batch bool) string {
	word := "text"
	ret := "Return only the translated text, no explanations"
	if batch {
		word = "texts"
		ret = "Return only the translated texts, numbered exactly as provided"
	}

	var b strings.Builder
	b.WriteString("You are a professional translator.")
	if custom = strings.TrimSpace(custom); custom != "" {
		b.WriteString(" ")
		b.WriteString(custom)
		b.WriteString("\n\n")
	} else {
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "Translate the given %s to %s.\n\n", word, langName)
	fmt.Fprintf(&b, promptGuidelines, ret)
	return b.String()
}

var contextPrompts = map[string]string{
	"navigation":       "Translate this UI navigation label to %s. Keep it short and clear.",
	"hero":             "Translate this marketing hero text to %s. Maintain the marketing tone and impact.",
	"services":         "Translate this service description to %s. Keep it professional and clear.",
	"quote":            "Translate this quote form text to %s. Keep it user-friendly and clear.",
	"contact":          "Translate this contact form text to %s. Keep it professional and welcoming.",
	"footer":           "Translate this footer text to %s. Keep it concise and professional.",
	"errors":           "Translate this error message to %s. Keep it user-friendly and helpful.",
	"validation":       "Translate this form validation message to %s. Keep it clear and helpful.",
	"common":           "Translate this common UI text to %s. Keep it simple and clear.",
	"techCategories":   "Translate this technology category label to %s. Keep it clear and professional.",
	"frontendServices": "Translate this frontend service description to %s. Keep it technical but accessible.",
	"backendServices":  "Translate this backend service description to %s. Keep it technical but accessible.",
	"aiServices":       "Translate this AI service description to %s. Keep it technical but accessible.",
	"structuredData":   "Translate this structured data content to %s. Keep it SEO-friendly and accurate.",
}

// contextPrompt picks a hint from the first segment of keyPath. Both
// dialects are handled: "hero.title" and "[hero][title]" give "hero".
func contextPrompt(keyPath, langName string) string {
	head := keyPath
	if strings.HasPrefix(head, "[") {
		head = strings.TrimPrefix(head, "[")
		if i := strings.IndexByte(head, ']'); i >= 0 {
			head = head[:i]
		}
	} else if i := strings.IndexByte(head, '.'); i >= 0 {
		head = head[:i]
	}
	if tmpl, ok := contextPrompts[head]; ok {
		return fmt.Sprintf(tmpl, langName)
	}
	return fmt.Sprintf("Translate this text to %s. Keep it natural and appropriate for the context.", langName)
}

// singlePrompt is the user message for one string.
func singlePrompt(text, keyPath, langName string) string {
	return contextPrompt(keyPath, langName) + "\n\nText to translate: " + escapeForPrompt(text)
}

// batchPrompt numbers texts from 1, one per line.
func batchPrompt(texts []string) string {
	var b strings.Builder
	for i, t := range texts {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, escapeForPrompt(t))
	}
	return b.String()
}

// escapeForPrompt prepares a string for inclusion in the AI prompt.
func escapeForPrompt(s string) string {
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return fmt.Sprintf(`"%s"`, s)
}

// unescapePrompt reverses the newline and tab escaping of escapeForPrompt.
func unescapePrompt(s string) string {
	return strings.NewReplacer(`\"`, `"`, `\n`, "\n", `\t`, "\t").Replace(s)
}

// ---------------------------------------------------------------------------
// Response parsing
// ---------------------------------------------------------------------------

var (
	markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	numberedLine      = regexp.MustCompile(`^\s*(\d+)\.\s*`)
)

// stripQuotes removes a matching pair of surrounding quotes.
func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	q := s[0]
	if (q == '"' || q == '\'') && s[len(s)-1] == q && s[len(s)-2] != '\\' {
		return s[1 : len(s)-1]
	}
	return s
}

// cleanSingle tidies a single-string response.
func cleanSingle(content string) string {
	content = strings.TrimSpace(content)
	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}
	return unescapePrompt(stripQuotes(content))
}

// parseTranslations extracts expected translations from a batch response.
// A JSON array of strings is accepted first, then numbered lines
// ("1. text"). The count must match.
func parseTranslations(content string, expected int) ([]string, error) {
	content = strings.TrimSpace(content)

	// Strip markdown code blocks if present
	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}

	if out, ok := parseJSONArray(content); ok {
		if len(out) != expected {
			return nil, fmt.Errorf("got %d translations, expected %d", len(out), expected)
		}
		return out, nil
	}

	var out []string
	for _, line := range strings.Split(content, "\n") {
		loc := numberedLine.FindStringIndex(line)
		if loc == nil {
			continue
		}
		text := stripQuotes(line[loc[1]:])
		if text == "" {
			continue
		}
		out = append(out, unescapePrompt(text))
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no translations found in response: %s", truncate(content, 300))
	}
	if len(out) != expected {
		return nil, fmt.Errorf("got %d translations, expected %d", len(out), expected)
	}
	return out, nil
}

func parseJSONArray(content string) ([]string, bool) {
	startIdx := strings.Index(content, "[")
	endIdx := strings.LastIndex(content, "]")
	if startIdx != 0 || endIdx < startIdx {
		return nil, false
	}
	var translations []string
	if err := json.Unmarshal([]byte(content[startIdx:endIdx+1]), &translations); err != nil {
		return nil, false
	}
	return translations, true
}
