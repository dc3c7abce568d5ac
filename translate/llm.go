package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minios-linux/jta/langmeta"
)

// LLM is the provider-backed Translator.
type LLM struct {
	client *Client
	opts   Options
}

// NewLLM returns a Translator that sends requests through client. When
// client is nil a dedicated one is built from opts.
func NewLLM(client *Client, opts Options) (*LLM, error) {
	if client == nil {
		if err := opts.Provider.Validate(); err != nil {
			return nil, err
		}
		client = NewClient(opts.Provider, opts.ClientOptions())
	}
	return &LLM{client: client, opts: opts}, nil
}

// ClientOptions derives client settings from the translation options.
func (o *Options) ClientOptions() ClientOptions {
	co := ClientOptions{
		MaxRetries:        o.effectiveMaxRetries(),
		RequestsPerSecond: o.RequestsPerSecond,
		Timeout:           o.effectiveTimeout(),
	}
	if o.Verbose {
		co.Logf = o.log
	}
	return co
}

func (l *LLM) complete(ctx context.Context, sys, user string) (string, error) {
	c, err := l.client.Complete(ctx, sys, user, l.opts.effectiveTemperature())
	if err != nil {
		return "", err
	}
	if l.opts.OnUsage != nil {
		l.opts.OnUsage(c.Usage.TotalTokens)
	}
	return c.Text, nil
}

// Translate translates one string. Blank strings are returned unchanged
// without a request.
func (l *LLM) Translate(ctx context.Context, text, lang, keyPath string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	name := langmeta.EnglishName(lang)
	content, err := l.complete(ctx,
		systemPrompt(name, l.opts.SystemMessage, false),
		singlePrompt(text, keyPath, name))
	if err != nil {
		return "", err
	}
	out := cleanSingle(content)
	if out == "" {
		return "", fmt.Errorf("empty translation for %q", truncate(text, 60))
	}
	return out, nil
}

// TranslateBatch sends every non-blank string in one numbered request and
// returns translations in input order. Blank strings pass through.
func (l *LLM) TranslateBatch(ctx context.Context, texts []string, lang string, keyPaths []string) ([]string, error) {
	out := make([]string, len(texts))
	var send []string
	var idx []int
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			out[i] = t
			continue
		}
		send = append(send, t)
		idx = append(idx, i)
	}
	if len(send) == 0 {
		return out, nil
	}

	start := time.Now()
	name := langmeta.EnglishName(lang)
	content, err := l.complete(ctx, systemPrompt(name, l.opts.SystemMessage, true), batchPrompt(send))
	if err != nil {
		return nil, err
	}
	got, err := parseTranslations(content, len(send))
	if err != nil {
		return nil, err
	}
	for j, i := range idx {
		out[i] = got[j]
	}
	if l.opts.Verbose {
		l.opts.log("[%s] batch of %d translated in %v", lang, len(send), time.Since(start).Round(time.Millisecond))
	}
	return out, nil
}

// HealthCheck sends a trivial prompt to confirm the provider answers.
func (l *LLM) HealthCheck(ctx context.Context) error {
	_, err := l.client.Complete(ctx, "Reply with the single word OK.", "ping", l.opts.effectiveTemperature())
	if err != nil {
		return fmt.Errorf("%s health check: %w", l.client.Provider().Name, err)
	}
	return nil
}
