package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/minios-linux/jta/cache"
	"github.com/minios-linux/jta/diff"
	"github.com/minios-linux/jta/keypath"
	"github.com/minios-linux/jta/locales"
	"github.com/minios-linux/jta/report"
	"github.com/minios-linux/jta/settings"
	"github.com/minios-linux/jta/translate"
)

// MaxBatchSize bounds the strings sent in one request.
const MaxBatchSize = 20

// Settings is the resolved configuration of one run.
type Settings struct {
	// Root is the project directory; relative paths are resolved against it.
	Root string
	// ConfigPath is the loaded .jta.yaml, empty when none was found.
	ConfigPath string

	LocalesDir    string
	TemplateLang  string
	Languages     []string
	LanguagesFile string
	CacheFile     string
	ReportFile    string

	Provider string
	Model    string
	BaseURL  string
	Proxy    string
	Timeout  time.Duration
	// APIKey is filled by ResolveCredentials.
	APIKey string
	// EnvAPIKey is the generic key found in the environment.
	EnvAPIKey string

	SystemMessage string
	Preset        string
	Dialect       keypath.Dialect
	Marker        string

	BatchSize              int
	MaxConcurrentLanguages int
	MaxConcurrentBatches   int
	BatchDelayMin          time.Duration
	BatchDelayMax          time.Duration
	MaxRetries             int
	RequestsPerSecond      float64
	SaveInterval           int

	Lock  bool
	Prune bool
}

// Defaults returns the built-in settings with the default preset applied.
func Defaults() Settings {
	s := Settings{
		Root:         ".",
		LocalesDir:   "locales",
		TemplateLang: locales.DefaultTemplate,
		CacheFile:    cache.DefaultFileName,
		ReportFile:   report.DefaultFileName,
		Provider:     translate.DefaultProvider,
		Dialect:      keypath.Dotted,
		Marker:       diff.DefaultMarker,
		MaxRetries:   3,
		SaveInterval: cache.DefaultSaveInterval,
	}
	p, _ := LookupPreset(DefaultPreset)
	p.apply(&s)
	return s
}

// Load resolves settings for root: defaults, then the preset, then
// .jta.yaml (or configPath), then e. presetOverride, when set, replaces
// the preset named by the file or environment.
func Load(root, configPath, presetOverride string, e Env) (*Settings, error) {
	s := Defaults()
	s.Root = root

	f, err := LoadFile(root, configPath)
	if err != nil {
		return nil, err
	}

	presetName := presetOverride
	if presetName == "" {
		presetName = e.Preset
	}
	if presetName == "" && f != nil {
		presetName = f.Preset
	}
	if presetName != "" {
		p, err := LookupPreset(presetName)
		if err != nil {
			return nil, err
		}
		p.apply(&s)
	}

	if f != nil {
		if configPath != "" {
			s.ConfigPath = configPath
		} else {
			s.ConfigPath = filepath.Join(root, FileName)
		}
		if err := s.applyFile(f); err != nil {
			return nil, fmt.Errorf("%s: %w", s.ConfigPath, err)
		}
	}
	s.applyEnv(e)
	return &s, nil
}

func (s *Settings) applyFile(f *File) error {
	setString(&s.LocalesDir, f.LocalesDir)
	setString(&s.TemplateLang, f.TemplateLang)
	if len(f.Languages) > 0 {
		s.Languages = f.Languages
	}
	setString(&s.LanguagesFile, f.LanguagesFile)
	setString(&s.CacheFile, f.CacheFile)
	setString(&s.ReportFile, f.ReportFile)

	setString(&s.Provider, f.Provider.Name)
	setString(&s.Model, f.Provider.Model)
	setString(&s.BaseURL, f.Provider.BaseURL)
	setString(&s.Proxy, f.Provider.Proxy)
	if f.Provider.Timeout > 0 {
		s.Timeout = f.Provider.Timeout
	}

	setString(&s.SystemMessage, f.SystemMessage)
	if f.Dialect != "" {
		d, err := keypath.ParseDialect(f.Dialect)
		if err != nil {
			return err
		}
		s.Dialect = d
	}
	setString(&s.Marker, f.UpdatedKeysMarker)

	setInt(&s.BatchSize, f.BatchSize)
	setInt(&s.MaxConcurrentLanguages, f.MaxConcurrentLanguages)
	setInt(&s.MaxConcurrentBatches, f.MaxConcurrentBatches)
	if f.BatchDelayMin > 0 {
		s.BatchDelayMin = f.BatchDelayMin
	}
	if f.BatchDelayMax > 0 {
		s.BatchDelayMax = f.BatchDelayMax
	}
	setInt(&s.MaxRetries, f.MaxRetries)
	if f.RequestsPerSecond > 0 {
		s.RequestsPerSecond = f.RequestsPerSecond
	}
	setInt(&s.SaveInterval, f.SaveInterval)
	s.Lock = s.Lock || f.Lock
	s.Prune = s.Prune || f.Prune
	return nil
}

func (s *Settings) applyEnv(e Env) {
	setString(&s.Provider, e.Provider)
	setString(&s.Model, e.Model)
	setString(&s.BaseURL, e.BaseURL)
	setString(&s.Proxy, e.ProxyURL)
	setString(&s.SystemMessage, e.SystemMessage)
	setString(&s.LocalesDir, e.LocalesDir)
	s.EnvAPIKey = e.Key()
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

// Validate reports settings that cannot work.
func (s *Settings) Validate() error {
	if s.BatchSize < 1 || s.BatchSize > MaxBatchSize {
		return fmt.Errorf("batch size must be between 1 and %d, got %d", MaxBatchSize, s.BatchSize)
	}
	if s.MaxConcurrentLanguages < 1 {
		return fmt.Errorf("max concurrent languages must be at least 1, got %d", s.MaxConcurrentLanguages)
	}
	if s.MaxConcurrentBatches < 1 {
		return fmt.Errorf("max concurrent batches must be at least 1, got %d", s.MaxConcurrentBatches)
	}
	if s.BatchDelayMin < 0 || s.BatchDelayMin > s.BatchDelayMax {
		return fmt.Errorf("batch delay min (%v) must not exceed max (%v)", s.BatchDelayMin, s.BatchDelayMax)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	if s.SaveInterval < 1 {
		return fmt.Errorf("save interval must be at least 1")
	}
	if s.Marker == "" {
		return fmt.Errorf("updated keys marker must not be empty")
	}
	if _, ok := translate.LookupProvider(s.Provider); !ok {
		return fmt.Errorf("unknown provider %q (valid: %s)", s.Provider, strings.Join(translate.ProviderIDs(), ", "))
	}
	return nil
}

// Abs resolves p against Root unless it is already absolute.
func (s *Settings) Abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.Root, p)
}

// ResolveCredentials fills APIKey, and BaseURL for providers that keep it in
// the credential store, using the lookup order flag, environment, store.
func (s *Settings) ResolveCredentials(flagKey string) {
	id := strings.ToLower(s.Provider)
	s.APIKey = settings.ResolveAPIKey(id, flagKey, s.EnvAPIKey)
	if s.BaseURL == "" {
		s.BaseURL = settings.GetBaseURL(id)
	}
}

// ProviderConfig builds the translate provider from the defaults of the
// selected provider and the configured overrides.
func (s *Settings) ProviderConfig() (translate.Provider, error) {
	p, ok := translate.LookupProvider(s.Provider)
	if !ok {
		return translate.Provider{}, fmt.Errorf("unknown provider %q", s.Provider)
	}
	if s.Model != "" {
		p.Model = s.Model
	}
	if s.BaseURL != "" {
		p.BaseURL = s.BaseURL
	}
	if s.Proxy != "" {
		p.Proxy = s.Proxy
	}
	if s.Timeout > 0 {
		p.Timeout = s.Timeout
	}
	p.APIKey = s.APIKey
	return p, nil
}
