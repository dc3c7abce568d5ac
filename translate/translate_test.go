package translate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// ---------------------------------------------------------------------------
// Prompts
// ---------------------------------------------------------------------------

func TestSystemPrompt(t *testing.T) {
	single := systemPrompt("German", "", false)
	if !strings.HasPrefix(single, "You are a professional translator. Translate the given text to German.") {
		t.Errorf("unexpected single prompt:\n%s", single)
	}
	if !strings.Contains(single, "- Return only the translated text, no explanations") {
		t.Errorf("single prompt lacks return instruction:\n%s", single)
	}

	batch := systemPrompt("German", "Use informal address.", true)
	if !strings.HasPrefix(batch, "You are a professional translator. Use informal address.\n\nTranslate the given texts to German.") {
		t.Errorf("unexpected batch prompt:\n%s", batch)
	}
	if !strings.Contains(batch, "numbered exactly as provided") {
		t.Errorf("batch prompt lacks numbering instruction:\n%s", batch)
	}
}

func TestContextPrompt(t *testing.T) {
	tests := []struct {
		key, want string
	}{
		{"navigation.home", "Translate this UI navigation label to French. Keep it short and clear."},
		{"[errors][notFound]", "Translate this error message to French. Keep it user-friendly and helpful."},
		{"title", "Translate this text to French. Keep it natural and appropriate for the context."},
		{"", "Translate this text to French. Keep it natural and appropriate for the context."},
	}
	for _, tt := range tests {
		if got := contextPrompt(tt.key, "French"); got != tt.want {
			t.Errorf("contextPrompt(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestBatchPrompt(t *testing.T) {
	got := batchPrompt([]string{"Save", "Line\nbreak", `Say "hi"`})
	want := "1. \"Save\"\n2. \"Line\\nbreak\"\n3. \"Say \\\"hi\\\"\""
	if got != want {
		t.Errorf("batchPrompt:\ngot  %q\nwant %q", got, want)
	}
}

// ---------------------------------------------------------------------------
// Response parsing
// ---------------------------------------------------------------------------

func TestParseTranslations_NumberedLines(t *testing.T) {
	content := "Here you go:\n1. \"Speichern\"\n2. 'Öffnen'\n\n3. Zeile\\numbruch"
	got, err := parseTranslations(content, 3)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	want := []string{"Speichern", "Öffnen", "Zeile\numbruch"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTranslations_JSONArray(t *testing.T) {
	content := "```json\n[\"Speichern\", \"Öffnen\"]\n```"
	got, err := parseTranslations(content, 2)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if diff := cmp.Diff([]string{"Speichern", "Öffnen"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTranslations_CountMismatch(t *testing.T) {
	if _, err := parseTranslations("1. Eins\n2. Zwei", 3); err == nil {
		t.Fatal("expected error for short response")
	}
	if _, err := parseTranslations("no numbers here", 1); err == nil {
		t.Fatal("expected error for unparseable response")
	}
}

func TestCleanSingle(t *testing.T) {
	tests := map[string]string{
		`"Hallo"`:                  "Hallo",
		"  'Hallo Welt'  ":         "Hallo Welt",
		`Sag \"Hallo\"`:            `Sag "Hallo"`,
		"```\nHallo\n```":          "Hallo",
		`"Er sagte \"ja\""`:        `Er sagte "ja"`,
		"Kein Anführungszeichen":   "Kein Anführungszeichen",
	}
	for in, want := range tests {
		if got := cleanSingle(in); got != want {
			t.Errorf("cleanSingle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractCompletion(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantText  string
		wantTotal int
	}{
		{
			name:      "openai",
			body:      `{"choices":[{"message":{"content":"Hallo"}}],"usage":{"prompt_tokens":10,"completion_tokens":2,"total_tokens":12}}`,
			wantText:  "Hallo",
			wantTotal: 12,
		},
		{
			name:      "anthropic",
			body:      `{"content":[{"type":"text","text":"Bonjour"}],"usage":{"input_tokens":7,"output_tokens":3}}`,
			wantText:  "Bonjour",
			wantTotal: 10,
		},
		{
			name:      "gemini",
			body:      `{"candidates":[{"content":{"parts":[{"text":"Hola"}]}}],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":1,"totalTokenCount":5}}`,
			wantText:  "Hola",
			wantTotal: 5,
		},
		{
			name:     "ollama",
			body:     `{"response":"Ciao"}`,
			wantText: "Ciao",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := extractCompletion([]byte(tt.body))
			if err != nil {
				t.Fatalf("error: %v", err)
			}
			if c.Text != tt.wantText || c.Usage.TotalTokens != tt.wantTotal {
				t.Errorf("got %q/%d, want %q/%d", c.Text, c.Usage.TotalTokens, tt.wantText, tt.wantTotal)
			}
		})
	}

	if _, err := extractCompletion([]byte(`{"error":{"message":"bad key"}}`)); err == nil || !strings.Contains(err.Error(), "bad key") {
		t.Errorf("expected API error, got %v", err)
	}
}

func TestParseRetryDelay(t *testing.T) {
	body := `{"error":{"details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"12s"}]}}`
	if got := parseRetryDelay([]byte(body)); got != 17*time.Second {
		t.Errorf("got %v, want 17s", got)
	}
	if got := parseRetryDelay([]byte("not json")); got != 65*time.Second {
		t.Errorf("got %v, want default 65s", got)
	}
}

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

func TestBuildHTTPRequest(t *testing.T) {
	t.Run("openai", func(t *testing.T) {
		prov := Provider{ID: ProviderOpenRouter, BaseURL: "https://example.test/v1/", Model: "m", APIKey: "k"}
		endpoint, headers, body, err := buildHTTPRequest(prov, "sys", "user", 0.3)
		if err != nil {
			t.Fatal(err)
		}
		if endpoint != "https://example.test/v1/chat/completions" {
			t.Errorf("endpoint = %q", endpoint)
		}
		if headers["Authorization"] != "Bearer k" || headers["X-Title"] != "jta" {
			t.Errorf("headers = %v", headers)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "m" || len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected body: %s", body)
		}
	})

	t.Run("gemini", func(t *testing.T) {
		prov := Provider{ID: ProviderGoogle, BaseURL: "https://g.test", Model: "gemini-x", APIKey: "k"}
		endpoint, headers, _, err := buildHTTPRequest(prov, "sys", "user", 0.3)
		if err != nil {
			t.Fatal(err)
		}
		if endpoint != "https://g.test/v1beta/models/gemini-x:generateContent" || headers["x-goog-api-key"] != "k" {
			t.Errorf("endpoint = %q headers = %v", endpoint, headers)
		}
	})

	t.Run("anthropic", func(t *testing.T) {
		prov := Provider{ID: ProviderAnthropic, BaseURL: "https://a.test/v1", Model: "claude", APIKey: "k"}
		endpoint, headers, _, err := buildHTTPRequest(prov, "sys", "user", 0.3)
		if err != nil {
			t.Fatal(err)
		}
		if endpoint != "https://a.test/v1/messages" || headers["x-api-key"] != "k" || headers["anthropic-version"] == "" {
			t.Errorf("endpoint = %q headers = %v", endpoint, headers)
		}
	})
}

func TestProviderValidate(t *testing.T) {
	p, ok := LookupProvider("OpenAI")
	if !ok {
		t.Fatal("openai not found")
	}
	if err := p.Validate(); err == nil {
		t.Error("expected missing API key error")
	}
	p.APIKey = "k"
	if err := p.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	ollama, _ := LookupProvider(ProviderOllama)
	ollama.Model = "llama3"
	if err := ollama.Validate(); err != nil {
		t.Errorf("ollama should not need a key: %v", err)
	}
	if len(ProviderIDs()) != 7 {
		t.Errorf("ProviderIDs() = %v", ProviderIDs())
	}
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

func openAIReply(w http.ResponseWriter, text string, tokens int) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": text}}},
		"usage":   map[string]any{"total_tokens": tokens},
	})
}

func testClient(url string) *Client {
	prov := Provider{ID: ProviderOpenAI, Name: "Test", BaseURL: url, Model: "m", APIKey: "secret"}
	return NewClient(prov, ClientOptions{
		MaxRetries: 3,
		BackoffMin: time.Millisecond,
		BackoffMax: 2 * time.Millisecond,
		Timeout:    5 * time.Second,
	})
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		openAIReply(w, "Hallo", 9)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	defer c.Close()
	got, err := c.Complete(context.Background(), "sys", "user", 0.3)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if got.Text != "Hallo" || got.Usage.TotalTokens != 9 {
		t.Errorf("got %+v", got)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestClientRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		openAIReply(w, "ok", 1)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	got, err := c.Complete(context.Background(), "sys", "user", 0.3)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if got.Text != "ok" || calls.Load() != 2 {
		t.Errorf("got %+v after %d calls", got, calls.Load())
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"invalid model"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Complete(context.Background(), "sys", "user", 0.3)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("expected StatusError 400, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClientGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Complete(context.Background(), "sys", "user", 0.3)
	if err == nil || !strings.Contains(err.Error(), "giving up after 3 retries") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientPoolReuse(t *testing.T) {
	pool := NewClientPool(ClientOptions{})
	defer pool.Close()

	a := Provider{ID: ProviderOpenAI, BaseURL: "https://x.test", Model: "m1"}
	b := a
	b.Model = "m2"

	if pool.Get(a) != pool.Get(a) {
		t.Error("same provider should reuse the client")
	}
	if pool.Get(a) == pool.Get(b) {
		t.Error("different models must not share a client")
	}
	if pool.Len() != 2 {
		t.Errorf("Len() = %d, want 2", pool.Len())
	}
	pool.Close()
	if pool.Len() != 0 {
		t.Errorf("Len() after Close = %d", pool.Len())
	}
}

// ---------------------------------------------------------------------------
// LLM translator
// ---------------------------------------------------------------------------

func TestLLMTranslateBatch(t *testing.T) {
	var userPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.Unmarshal(data, &req)
		userPrompt = req.Messages[1].Content
		openAIReply(w, "1. \"Speichern\"\n2. \"Öffnen\"", 20)
	}))
	defer srv.Close()

	var tokens int
	llm, err := NewLLM(testClient(srv.URL), Options{OnUsage: func(n int) { tokens += n }})
	if err != nil {
		t.Fatal(err)
	}
	got, err := llm.TranslateBatch(context.Background(), []string{"Save", "  ", "Open"}, "de", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if diff := cmp.Diff([]string{"Speichern", "  ", "Öffnen"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if userPrompt != "1. \"Save\"\n2. \"Open\"" {
		t.Errorf("user prompt = %q", userPrompt)
	}
	if tokens != 20 {
		t.Errorf("tokens = %d, want 20", tokens)
	}
}

func TestLLMTranslate(t *testing.T) {
	var system string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		system = req.Messages[0].Content
		openAIReply(w, `"Startseite"`, 3)
	}))
	defer srv.Close()

	llm, err := NewLLM(testClient(srv.URL), Options{})
	if err != nil {
		t.Fatal(err)
	}
	got, err := llm.Translate(context.Background(), "Home", "de", "navigation.home")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if got != "Startseite" {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(system, "to German.") {
		t.Errorf("system prompt should name the language: %q", system)
	}

	blank, err := llm.Translate(context.Background(), " ", "de", "x")
	if err != nil || blank != " " {
		t.Errorf("blank text should pass through, got %q, %v", blank, err)
	}
}

func TestNewLLMValidatesProvider(t *testing.T) {
	if _, err := NewLLM(nil, Options{Provider: Provider{ID: ProviderOpenAI}}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestFuncTranslator(t *testing.T) {
	var tr Translator = Func(func(_ context.Context, text, lang, _ string) (string, error) {
		return lang + ":" + text, nil
	})
	got, err := tr.TranslateBatch(context.Background(), []string{"a", "b"}, "es", nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"es:a", "es:b"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	failing := Func(func(context.Context, string, string, string) (string, error) {
		return "", errors.New("boom")
	})
	if _, err := failing.TranslateBatch(context.Background(), []string{"a"}, "es", []string{"k"}); err == nil {
		t.Fatal("expected error")
	}
}
