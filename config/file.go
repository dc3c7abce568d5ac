// Package config: .jta.yaml project file, environment overlay and presets.
//
// Settings are resolved in this order, later sources winning:
// defaults, preset, .jta.yaml, environment (.env included), flags.
// Flags are applied by the CLI on top of what Load returns.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// FileName is the project config file name.
const FileName = ".jta.yaml"

// File is the top-level .jta.yaml structure. Zero values mean "not set".
type File struct {
	// LocalesDir is the locales directory relative to the project root.
	LocalesDir string `yaml:"locales_dir,omitempty"`
	// TemplateLang is the template language code (default "en").
	TemplateLang string `yaml:"template_lang,omitempty"`
	// Languages is the explicit target language list.
	Languages []string `yaml:"languages,omitempty"`
	// LanguagesFile lists target languages, one per line.
	LanguagesFile string `yaml:"languages_file,omitempty"`

	CacheFile  string `yaml:"cache_file,omitempty"`
	ReportFile string `yaml:"report_file,omitempty"`

	Provider ProviderSection `yaml:"provider,omitempty"`

	// SystemMessage is extra guidance for the translator.
	SystemMessage string `yaml:"system_message,omitempty"`
	// Preset is CONSERVATIVE, BALANCED or FAST.
	Preset string `yaml:"preset,omitempty"`
	// Dialect is "dotted" or "bracketed".
	Dialect string `yaml:"dialect,omitempty"`
	// UpdatedKeysMarker is the template key listing updated keys.
	UpdatedKeysMarker string `yaml:"updated_keys_marker,omitempty"`

	BatchSize              int           `yaml:"batch_size,omitempty"`
	MaxConcurrentLanguages int           `yaml:"max_concurrent_languages,omitempty"`
	MaxConcurrentBatches   int           `yaml:"max_concurrent_batches,omitempty"`
	BatchDelayMin          time.Duration `yaml:"batch_delay_min,omitempty"`
	BatchDelayMax          time.Duration `yaml:"batch_delay_max,omitempty"`
	MaxRetries             int           `yaml:"max_retries,omitempty"`
	RequestsPerSecond      float64       `yaml:"requests_per_second,omitempty"`
	SaveInterval           int           `yaml:"save_interval,omitempty"`

	// Lock enables jta.lock change detection.
	Lock bool `yaml:"lock,omitempty"`
	// Prune removes extra keys from targets during translate.
	Prune bool `yaml:"prune,omitempty"`
}

// ProviderSection configures the translation backend.
type ProviderSection struct {
	Name    string        `yaml:"name,omitempty"`
	Model   string        `yaml:"model,omitempty"`
	BaseURL string        `yaml:"base_url,omitempty"`
	Proxy   string        `yaml:"proxy,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadFile loads .jta.yaml from rootDir, or from path when it is set.
// Returns nil if the default file does not exist; an explicit path must
// exist.
func LoadFile(rootDir, path string) (*File, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(rootDir, FileName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &f, nil
}

// Save writes f as .jta.yaml into rootDir.
func (f *File) Save(rootDir string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	path := filepath.Join(rootDir, FileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
