package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello world"},
		{`Say "Hi"`, `say \"hi\"`},
		{"Line one\nLine Two", `line one\nline two`},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
	assert.Equal(t, "hello world_es", Key("Hello World", "es"))
}

func TestLookupAfterStoreIsSymmetric(t *testing.T) {
	c := New("")
	texts := []string{
		"Hello World",
		`He said "yes"`,
		"Multi\nline\ntext",
		"MiXeD CaSe \"quoted\"\nand newline",
		"<b>{count}</b> items",
	}
	for _, text := range texts {
		c.Store(text, "de", "DE:"+text)
		got, ok := c.Lookup(text, "de")
		require.True(t, ok, "Lookup(%q) missed", text)
		assert.Equal(t, "DE:"+text, got)
	}

	got, ok := c.Lookup("hello world", "de")
	require.True(t, ok)
	assert.Equal(t, "DE:Hello World", got)

	_, ok = c.Lookup("Hello World", "fr")
	assert.False(t, ok, "language must be part of the key")
}

func TestCaseInsensitiveLookup(t *testing.T) {
	c := New("")
	c.Store("Hello World", "es", "Hola Mundo")
	got, ok := c.Lookup("hello world", "es")
	require.True(t, ok)
	assert.Equal(t, "Hola Mundo", got)
}

func TestShouldSaveCadence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := New(path)
	c.SetSaveInterval(3)

	c.Store("a", "es", "A")
	c.Store("b", "es", "B")
	assert.False(t, c.ShouldSave())

	// Re-storing an identical translation does not count.
	c.Store("b", "es", "B")
	assert.False(t, c.ShouldSave())

	c.Store("c", "es", "C")
	assert.True(t, c.ShouldSave())

	require.NoError(t, c.Save())
	assert.False(t, c.ShouldSave())
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")
	c := New(path)
	c.Store("Save", "fr", "Enregistrer")
	c.Store(`Quote "me"`, "fr", "Citez-moi")
	c.RecordUsage(120)
	c.RecordUsage(30)
	require.NoError(t, c.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "translations")
	assert.Contains(t, raw, "lastUpdated")
	assert.EqualValues(t, 150, raw["totalTokensUsed"])
	assert.EqualValues(t, 2, raw["totalRequests"])
	assert.Contains(t, string(data), "\n  \"translations\": {")
	assert.Contains(t, string(data), `"save_fr": "Enregistrer"`)

	loaded, err := Load(path)
	require.NoError(t, err)
	got, ok := loaded.Lookup("SAVE", "fr")
	require.True(t, ok)
	assert.Equal(t, "Enregistrer", got)

	st := loaded.Stats()
	assert.Equal(t, 2, st.Entries)
	assert.EqualValues(t, 150, st.TotalTokensUsed)
	assert.EqualValues(t, 2, st.TotalRequests)
	assert.False(t, st.LastUpdated.IsZero())
	assert.Equal(t, []string{"fr"}, loaded.Languages())
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	c, err := Load(filepath.Join(dir, "none.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = Load(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing cache")
}

func TestClear(t *testing.T) {
	c := New("")
	c.Store("x", "es", "X")
	c.RecordUsage(5)
	c.Clear()
	st := c.Stats()
	assert.Equal(t, 0, st.Entries)
	assert.Zero(t, st.TotalTokensUsed)
	assert.Zero(t, st.TotalRequests)
}

func TestConcurrentStores(t *testing.T) {
	c := New("")
	langs := []string{"de", "fr", "es", "it"}
	var wg sync.WaitGroup
	for _, lang := range langs {
		wg.Add(1)
		go func(lang string) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				text := fmt.Sprintf("String %d", i)
				c.Store(text, lang, lang+text)
				c.Lookup(text, lang)
				c.RecordUsage(1)
			}
		}(lang)
	}
	wg.Wait()

	assert.Equal(t, 800, c.Len())
	assert.EqualValues(t, 800, c.Stats().TotalRequests)
	got, ok := c.Lookup("string 199", "it")
	require.True(t, ok)
	assert.Equal(t, "itString 199", got)
}
