package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailuresOrdering(t *testing.T) {
	f := NewFailures()
	f.Record("locales/fr.json", "menu.save", "Save", errors.New("timeout"))
	f.Record("locales/de.json", "title", "Title", nil)
	f.Record("locales/fr.json", "menu.open", "Open", nil)

	assert.Equal(t, 3, f.Count())
	assert.Equal(t, 2, f.CountFor("locales/fr.json"))
	assert.Equal(t, []string{"locales/de.json", "locales/fr.json"}, f.Files())

	all := f.All()
	require.Len(t, all, 3)
	assert.Equal(t, "title", all[0].KeyPath)
	assert.Equal(t, "menu.save", all[1].KeyPath)
	assert.Equal(t, "timeout", all[1].Reason)
	assert.Equal(t, "menu.open", all[2].KeyPath)
}

func TestWriteSkipsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	written, err := NewFailures().Write(path)
	require.NoError(t, err)
	assert.False(t, written)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")
	f := NewFailures()
	f.Record("es.json", "hero.title", "Welcome", nil)

	written, err := f.Write(path)
	require.NoError(t, err)
	require.True(t, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw struct {
		Summary struct {
			TotalFailures int      `json:"totalFailures"`
			TargetFiles   []string `json:"targetFiles"`
			GeneratedAt   string   `json:"generatedAt"`
			RunID         string   `json:"runId"`
		} `json:"summary"`
		Failures []map[string]string `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, 1, raw.Summary.TotalFailures)
	assert.Equal(t, []string{"es.json"}, raw.Summary.TargetFiles)
	_, err = time.Parse(time.RFC3339, raw.Summary.GeneratedAt)
	assert.NoError(t, err)
	_, err = uuid.Parse(raw.Summary.RunID)
	assert.NoError(t, err)
	assert.Equal(t, f.RunID(), raw.Summary.RunID)
	require.Len(t, raw.Failures, 1)
	assert.Equal(t, map[string]string{
		"targetFile":          "es.json",
		"keyPath":             "hero.title",
		"fallbackTranslation": "Welcome",
	}, raw.Failures[0])
}

func TestConcurrentRecord(t *testing.T) {
	f := NewFailures()
	var wg sync.WaitGroup
	for _, file := range []string{"a.json", "b.json", "c.json"} {
		wg.Add(1)
		go func(file string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				f.Record(file, "k", "v", nil)
			}
		}(file)
	}
	wg.Wait()
	assert.Equal(t, 300, f.Count())

	f.Clear()
	assert.Zero(t, f.Count())
}
