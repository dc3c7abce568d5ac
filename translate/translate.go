// Package translate sends localization strings to HTTP LLM providers
// (OpenAI, Anthropic, Google AI, Groq, OpenRouter, Ollama and any
// OpenAI-compatible endpoint) and returns their translations.
//
// The Translator interface is what the sync engine consumes; LLM is the
// provider-backed implementation and Func adapts a plain function.
package translate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Provider IDs
// ---------------------------------------------------------------------------

const (
	ProviderOpenAI       = "openai"
	ProviderAnthropic    = "anthropic"
	ProviderGoogle       = "google"
	ProviderGroq         = "groq"
	ProviderOpenRouter   = "openrouter"
	ProviderOllama       = "ollama"
	ProviderCustomOpenAI = "custom-openai"
)

// DefaultProvider is used when nothing else is configured.
const DefaultProvider = ProviderOpenAI

// ---------------------------------------------------------------------------
// Provider configuration
// ---------------------------------------------------------------------------

// Provider holds the configuration for an AI translation service.
type Provider struct {
	// ID is the provider identifier (openai, anthropic, google, etc.).
	ID string
	// Name is the display name.
	Name string
	// BaseURL is the API base URL.
	BaseURL string
	// APIKey is the authentication key (empty for local services).
	APIKey string
	// Model is the model identifier.
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the request timeout.
	Timeout time.Duration
	// NeedsKey is true for hosted services that reject anonymous calls.
	NeedsKey bool
}

// DefaultProviders returns the pre-configured provider definitions.
func DefaultProviders() map[string]Provider {
	return map[string]Provider{
		ProviderOpenAI: {
			ID:       ProviderOpenAI,
			Name:     "OpenAI",
			BaseURL:  "https://api.openai.com/v1",
			Model:    "gpt-4o-mini",
			Timeout:  60 * time.Second,
			NeedsKey: true,
		},
		ProviderAnthropic: {
			ID:       ProviderAnthropic,
			Name:     "Anthropic",
			BaseURL:  "https://api.anthropic.com/v1",
			Model:    "claude-3-5-haiku-latest",
			Timeout:  60 * time.Second,
			NeedsKey: true,
		},
		ProviderGoogle: {
			ID:       ProviderGoogle,
			Name:     "Google AI (Gemini)",
			BaseURL:  "https://generativelanguage.googleapis.com",
			Model:    "gemini-2.5-flash",
			Timeout:  120 * time.Second,
			NeedsKey: true,
		},
		ProviderGroq: {
			ID:       ProviderGroq,
			Name:     "Groq",
			BaseURL:  "https://api.groq.com/openai/v1",
			Model:    "llama-3.3-70b-versatile",
			Timeout:  60 * time.Second,
			NeedsKey: true,
		},
		ProviderOpenRouter: {
			ID:       ProviderOpenRouter,
			Name:     "OpenRouter",
			BaseURL:  "https://openrouter.ai/api/v1",
			Model:    "openai/gpt-4o-mini",
			Timeout:  120 * time.Second,
			NeedsKey: true,
		},
		ProviderOllama: {
			ID:      ProviderOllama,
			Name:    "Ollama",
			BaseURL: "http://localhost:11434/v1",
			Timeout: 120 * time.Second,
		},
		ProviderCustomOpenAI: {
			ID:      ProviderCustomOpenAI,
			Name:    "Custom OpenAI",
			Timeout: 60 * time.Second,
		},
	}
}

// ProviderIDs returns the known provider IDs, sorted.
func ProviderIDs() []string {
	ids := make([]string, 0, 7)
	for id := range DefaultProviders() {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LookupProvider returns the default definition for id.
func LookupProvider(id string) (Provider, bool) {
	p, ok := DefaultProviders()[strings.ToLower(strings.TrimSpace(id))]
	return p, ok
}

// Validate reports configuration problems that would make every request
// fail.
func (p Provider) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("provider not set")
	}
	if p.BaseURL == "" {
		return fmt.Errorf("provider %s: base URL is required", p.ID)
	}
	if p.Model == "" {
		return fmt.Errorf("provider %s: model is required", p.ID)
	}
	if p.NeedsKey && p.APIKey == "" {
		return fmt.Errorf("provider %s: API key is required", p.ID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Translation options
// ---------------------------------------------------------------------------

// Options controls the translation behavior.
type Options struct {
	// Provider is the AI provider configuration.
	Provider Provider
	// SystemMessage is extra guidance placed at the top of the system prompt.
	SystemMessage string
	// Timeout is the per-request timeout (overrides provider timeout if set).
	Timeout time.Duration
	// MaxRetries is the number of retries after a failed request. Default: 3.
	MaxRetries int
	// RequestsPerSecond paces requests across all workers sharing a client.
	// Zero means unlimited.
	RequestsPerSecond float64
	// Temperature for sampling. Default: 0.3.
	Temperature float64
	// OnUsage receives the token count of every successful request.
	OnUsage func(tokens int)
	// OnLog emits log messages during translation.
	OnLog func(format string, args ...any)
	// OnError emits error messages during translation.
	OnError func(format string, args ...any)
	// Verbose enables detailed logging.
	Verbose bool
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) effectiveTimeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	if o.Provider.Timeout > 0 {
		return o.Provider.Timeout
	}
	return 120 * time.Second
}

func (o *Options) effectiveMaxRetries() int {
	if o.MaxRetries > 0 {
		return o.MaxRetries
	}
	return 3
}

func (o *Options) effectiveTemperature() float64 {
	if o.Temperature > 0 {
		return o.Temperature
	}
	return 0.3
}

// ---------------------------------------------------------------------------
// Translator contract
// ---------------------------------------------------------------------------

// Translator turns source strings into a target language. keyPath is the
// formatted location of the string in the document, used as prompt
// context.
type Translator interface {
	Translate(ctx context.Context, text, lang, keyPath string) (string, error)
	// TranslateBatch returns one translation per input, in order.
	TranslateBatch(ctx context.Context, texts []string, lang string, keyPaths []string) ([]string, error)
}

// Func adapts a single-string function to Translator. Batches are
// translated one string at a time.
type Func func(ctx context.Context, text, lang, keyPath string) (string, error)

func (f Func) Translate(ctx context.Context, text, lang, keyPath string) (string, error) {
	return f(ctx, text, lang, keyPath)
}

func (f Func) TranslateBatch(ctx context.Context, texts []string, lang string, keyPaths []string) ([]string, error) {
	out := make([]string, len(texts))
	for i, text := range texts {
		key := ""
		if i < len(keyPaths) {
			key = keyPaths[i]
		}
		tr, err := f(ctx, text, lang, key)
		if err != nil {
			return nil, fmt.Errorf("translating %q: %w", key, err)
		}
		out[i] = tr
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// truncate truncates a string to maxLen bytes.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
