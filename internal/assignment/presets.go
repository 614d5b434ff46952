package assignment

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// presetSpec is one entry of a presets file. Unset fields inherit from Base.
type presetSpec struct {
	Base                  string   `toml:"base" yaml:"base"`
	Strategy              *string  `toml:"strategy" yaml:"strategy"`
	MaxDistanceKm         *float64 `toml:"max_distance_km" yaml:"max_distance_km"`
	Weights               *Weights `toml:"weights" yaml:"weights"`
	RequireExpertiseMatch *bool    `toml:"require_expertise_match" yaml:"require_expertise_match"`
	MaxDailyAssignments   *int     `toml:"max_daily_assignments" yaml:"max_daily_assignments"`
	WorkingHoursStart     *string  `toml:"working_hours_start" yaml:"working_hours_start"`
	WorkingHoursEnd       *string  `toml:"working_hours_end" yaml:"working_hours_end"`
	BufferMinutes         *int     `toml:"buffer_minutes" yaml:"buffer_minutes"`
}

type presetFile struct {
	Presets map[string]presetSpec `toml:"presets" yaml:"presets"`
}

// LoadPresets returns the built-in presets extended by the file at path.
// The format is picked by extension: .toml, .yaml or .yml. An empty path
// returns the built-ins.
func LoadPresets(path string) (Presets, error) {
	presets := DefaultPresets()
	if strings.TrimSpace(path) == "" {
		return presets, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	var file presetFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.NewDecoder(bytes.NewReader(raw)).Decode(&file); err != nil {
			return nil, fmt.Errorf("decode presets toml: %w", err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("decode presets yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported presets file extension %q", filepath.Ext(path))
	}
	if err := presets.merge(file.Presets); err != nil {
		return nil, err
	}
	return presets, nil
}

func (p Presets) merge(specs map[string]presetSpec) error {
	pending := make(map[string]presetSpec, len(specs))
	for name, spec := range specs {
		pending[strings.ToLower(strings.TrimSpace(name))] = spec
	}
	// Entries may extend each other, so resolve bases first.
	for len(pending) > 0 {
		progressed := false
		for name, spec := range pending {
			baseName := spec.baseName(name, p)
			if _, waiting := pending[baseName]; waiting && baseName != name {
				continue
			}
			base, ok := p[baseName]
			if !ok {
				return fmt.Errorf("%w: preset %q extends unknown preset %q", ErrInvalidConfiguration, name, baseName)
			}
			cfg, err := spec.apply(base)
			if err != nil {
				return fmt.Errorf("preset %q: %w", name, err)
			}
			p[name] = cfg
			delete(pending, name)
			progressed = true
		}
		if !progressed {
			return fmt.Errorf("%w: presets file has an inheritance cycle", ErrInvalidConfiguration)
		}
	}
	return nil
}

// baseName resolves what an entry inherits from: the explicit base, the
// built-in of the same name, or the default preset.
func (s presetSpec) baseName(name string, existing Presets) string {
	if b := strings.ToLower(strings.TrimSpace(s.Base)); b != "" {
		return b
	}
	if _, ok := existing[name]; ok {
		return name
	}
	return PresetDefault
}

func (s presetSpec) apply(base Configuration) (Configuration, error) {
	cfg := base
	if s.Strategy != nil {
		strategy, err := ParseStrategy(*s.Strategy)
		if err != nil {
			return Configuration{}, err
		}
		cfg.Strategy = strategy
	}
	if s.MaxDistanceKm != nil {
		cfg.MaxDistanceKm = *s.MaxDistanceKm
	}
	if s.Weights != nil {
		cfg.Weights = *s.Weights
	}
	if s.RequireExpertiseMatch != nil {
		cfg.RequireExpertiseMatch = *s.RequireExpertiseMatch
	}
	if s.MaxDailyAssignments != nil {
		cfg.MaxDailyAssignments = *s.MaxDailyAssignments
	}
	if s.WorkingHoursStart != nil {
		cfg.WorkingHoursStart = *s.WorkingHoursStart
	}
	if s.WorkingHoursEnd != nil {
		cfg.WorkingHoursEnd = *s.WorkingHoursEnd
	}
	if s.BufferMinutes != nil {
		cfg.BufferMinutes = *s.BufferMinutes
	}
	if err := cfg.Validate(); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}
