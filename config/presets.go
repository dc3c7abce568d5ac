package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Preset bundles batch and concurrency settings.
type Preset struct {
	Name                   string
	BatchSize              int
	MaxConcurrentLanguages int
	MaxConcurrentBatches   int
	BatchDelayMin          time.Duration
	BatchDelayMax          time.Duration
}

// DefaultPreset is applied when none is configured.
const DefaultPreset = "BALANCED"

var presets = map[string]Preset{
	"CONSERVATIVE": {
		Name:                   "CONSERVATIVE",
		BatchSize:              8,
		MaxConcurrentLanguages: 2,
		MaxConcurrentBatches:   1,
		BatchDelayMin:          800 * time.Millisecond,
		BatchDelayMax:          2500 * time.Millisecond,
	},
	"BALANCED": {
		Name:                   "BALANCED",
		BatchSize:              15,
		MaxConcurrentLanguages: 5,
		MaxConcurrentBatches:   4,
		BatchDelayMin:          200 * time.Millisecond,
		BatchDelayMax:          1000 * time.Millisecond,
	},
	"FAST": {
		Name:                   "FAST",
		BatchSize:              20,
		MaxConcurrentLanguages: 8,
		MaxConcurrentBatches:   5,
		BatchDelayMin:          150 * time.Millisecond,
		BatchDelayMax:          800 * time.Millisecond,
	},
}

// LookupPreset finds a preset by case-insensitive name.
func LookupPreset(name string) (Preset, error) {
	p, ok := presets[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q (valid: %s)", name, strings.Join(PresetNames(), ", "))
	}
	return p, nil
}

// PresetNames returns the preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (p Preset) apply(s *Settings) {
	s.Preset = p.Name
	s.BatchSize = p.BatchSize
	s.MaxConcurrentLanguages = p.MaxConcurrentLanguages
	s.MaxConcurrentBatches = p.MaxConcurrentBatches
	s.BatchDelayMin = p.BatchDelayMin
	s.BatchDelayMax = p.BatchDelayMax
}
