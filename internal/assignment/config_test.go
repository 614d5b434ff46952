package assignment

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPresetsAreValid(t *testing.T) {
	presets := DefaultPresets()
	assert.Equal(t, []string{PresetAvailabilityPriority, PresetDefault, PresetLocationPriority, PresetQualityPriority}, presets.Names())
	for name, cfg := range presets {
		require.NoError(t, cfg.Validate(), name)
		assert.InDelta(t, 1.0, cfg.Weights.Sum(), 1e-9, name)
	}
	cfg, ok := presets.Get("")
	require.True(t, ok)
	assert.Equal(t, StrategyBestFit, cfg.Strategy)
	assert.Equal(t, 50.0, cfg.MaxDistanceKm)
	_, ok = presets.Get("nope")
	assert.False(t, ok)
}

func TestConfigurationValidate(t *testing.T) {
	cases := map[string]func(*Configuration){
		"unknown strategy":  func(c *Configuration) { c.Strategy = "fastest" },
		"zero distance":     func(c *Configuration) { c.MaxDistanceKm = 0 },
		"zero daily cap":    func(c *Configuration) { c.MaxDailyAssignments = 0 },
		"negative weight":   func(c *Configuration) { c.Weights.Rating = -0.1 },
		"negative buffer":   func(c *Configuration) { c.BufferMinutes = -5 },
		"inverted hours":    func(c *Configuration) { c.WorkingHoursStart, c.WorkingHoursEnd = "18:00", "08:00" },
		"unparseable hours": func(c *Configuration) { c.WorkingHoursStart = "8am" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfiguration()
			mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration))
		})
	}
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy(" Round_Robin ")
	require.NoError(t, err)
	assert.Equal(t, StrategyRoundRobin, s)

	_, err = ParseStrategy("random")
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadPresetsTOML(t *testing.T) {
	path := writeFile(t, "presets.toml", `
[presets.night_shift]
base = "location_priority"
max_distance_km = 10
max_daily_assignments = 3

[presets.default]
strategy = "round_robin"

[presets.strict]
require_expertise_match = true

[presets.strict.weights]
location = 0.5
expertise = 0.5
`)
	presets, err := LoadPresets(path)
	require.NoError(t, err)

	night, ok := presets.Get("night_shift")
	require.True(t, ok)
	assert.Equal(t, 10.0, night.MaxDistanceKm)
	assert.Equal(t, 3, night.MaxDailyAssignments)
	assert.Equal(t, DefaultPresets()[PresetLocationPriority].Weights, night.Weights)

	def, _ := presets.Get(PresetDefault)
	assert.Equal(t, StrategyRoundRobin, def.Strategy)

	strict, _ := presets.Get("strict")
	assert.True(t, strict.RequireExpertiseMatch)
	assert.Equal(t, Weights{Location: 0.5, Expertise: 0.5}, strict.Weights)
	assert.Equal(t, StrategyRoundRobin, strict.Strategy, "inherits the overridden default")
}

func TestLoadPresetsYAML(t *testing.T) {
	path := writeFile(t, "presets.yaml", `
presets:
  weekend:
    strategy: availability_only
    working_hours_start: "10:00"
    working_hours_end: "16:00"
`)
	presets, err := LoadPresets(path)
	require.NoError(t, err)
	weekend, ok := presets.Get("weekend")
	require.True(t, ok)
	assert.Equal(t, StrategyAvailabilityOnly, weekend.Strategy)
	assert.Equal(t, "10:00", weekend.WorkingHoursStart)
	assert.Len(t, presets, 5)
}

func TestLoadPresetsRejectsBadFiles(t *testing.T) {
	_, err := LoadPresets(writeFile(t, "presets.json", `{}`))
	assert.Error(t, err)

	_, err = LoadPresets(writeFile(t, "bad.toml", "[presets.x]\nmax_distance_km = -1\n"))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = LoadPresets(writeFile(t, "cycle.yml", "presets:\n  a:\n    base: b\n  b:\n    base: a\n"))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = LoadPresets(writeFile(t, "orphan.toml", "[presets.a]\nbase = \"missing\"\n"))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	presets, err := LoadPresets("")
	require.NoError(t, err)
	assert.Len(t, presets, 4)
}
