package assignment

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrInvalidConfiguration = errors.New("invalid assignment configuration")

// Strategy names a selection policy over a scored candidate set.
type Strategy string

const (
	StrategyLocationOnly            Strategy = "location_only"
	StrategyAvailabilityOnly        Strategy = "availability_only"
	StrategyLocationAndAvailability Strategy = "location_and_availability"
	StrategyBestFit                 Strategy = "best_fit"
	StrategyRoundRobin              Strategy = "round_robin"
	StrategyManual                  Strategy = "manual"
)

// Strategies lists every strategy in display order.
var Strategies = []Strategy{
	StrategyBestFit,
	StrategyLocationOnly,
	StrategyAvailabilityOnly,
	StrategyLocationAndAvailability,
	StrategyRoundRobin,
	StrategyManual,
}

func (s Strategy) Valid() bool {
	for _, v := range Strategies {
		if s == v {
			return true
		}
	}
	return false
}

func ParseStrategy(value string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(value)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfiguration, value)
	}
	return s, nil
}

// Weights holds one coefficient per priority dimension. A zero weight drops
// the dimension from the total.
type Weights struct {
	Location     float64 `json:"location" toml:"location" yaml:"location" validate:"gte=0"`
	Availability float64 `json:"availability" toml:"availability" yaml:"availability" validate:"gte=0"`
	Expertise    float64 `json:"expertise" toml:"expertise" yaml:"expertise" validate:"gte=0"`
	Rating       float64 `json:"rating" toml:"rating" yaml:"rating" validate:"gte=0"`
	Workload     float64 `json:"workload" toml:"workload" yaml:"workload" validate:"gte=0"`
	Satisfaction float64 `json:"satisfaction" toml:"satisfaction" yaml:"satisfaction" validate:"gte=0"`
}

func (w Weights) Sum() float64 {
	return w.Location + w.Availability + w.Expertise + w.Rating + w.Workload + w.Satisfaction
}

func (w Weights) validate() error {
	for name, v := range map[string]float64{
		"location":     w.Location,
		"availability": w.Availability,
		"expertise":    w.Expertise,
		"rating":       w.Rating,
		"workload":     w.Workload,
		"satisfaction": w.Satisfaction,
	} {
		if v < 0 {
			return fmt.Errorf("%w: weight %s must not be negative", ErrInvalidConfiguration, name)
		}
	}
	return nil
}

// Configuration is the immutable input of a single assignment attempt.
type Configuration struct {
	Strategy              Strategy `json:"strategy" toml:"strategy" yaml:"strategy"`
	MaxDistanceKm         float64  `json:"max_distance_km" toml:"max_distance_km" yaml:"max_distance_km"`
	Weights               Weights  `json:"weights" toml:"weights" yaml:"weights"`
	RequireExpertiseMatch bool     `json:"require_expertise_match" toml:"require_expertise_match" yaml:"require_expertise_match"`
	MaxDailyAssignments   int      `json:"max_daily_assignments" toml:"max_daily_assignments" yaml:"max_daily_assignments"`
	WorkingHoursStart     string   `json:"working_hours_start" toml:"working_hours_start" yaml:"working_hours_start"`
	WorkingHoursEnd       string   `json:"working_hours_end" toml:"working_hours_end" yaml:"working_hours_end"`
	// BufferMinutes is reserved; scoring does not use it yet.
	BufferMinutes int `json:"buffer_minutes" toml:"buffer_minutes" yaml:"buffer_minutes"`
}

func (c Configuration) Validate() error {
	if !c.Strategy.Valid() {
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfiguration, c.Strategy)
	}
	if c.MaxDistanceKm <= 0 {
		return fmt.Errorf("%w: max_distance_km must be positive", ErrInvalidConfiguration)
	}
	if c.MaxDailyAssignments <= 0 {
		return fmt.Errorf("%w: max_daily_assignments must be positive", ErrInvalidConfiguration)
	}
	if c.BufferMinutes < 0 {
		return fmt.Errorf("%w: buffer_minutes must not be negative", ErrInvalidConfiguration)
	}
	if _, err := ParseWindow(c.WorkingHoursStart, c.WorkingHoursEnd); err != nil {
		return fmt.Errorf("%w: working hours: %v", ErrInvalidConfiguration, err)
	}
	return c.Weights.validate()
}

const (
	PresetDefault              = "default"
	PresetLocationPriority     = "location_priority"
	PresetAvailabilityPriority = "availability_priority"
	PresetQualityPriority      = "quality_priority"
)

func DefaultConfiguration() Configuration {
	return Configuration{
		Strategy:      StrategyBestFit,
		MaxDistanceKm: 50,
		Weights: Weights{
			Location:     0.25,
			Availability: 0.25,
			Expertise:    0.20,
			Rating:       0.15,
			Workload:     0.10,
			Satisfaction: 0.05,
		},
		MaxDailyAssignments: 8,
		WorkingHoursStart:   "08:00",
		WorkingHoursEnd:     "18:00",
		BufferMinutes:       30,
	}
}

// Presets maps preset names to configurations.
type Presets map[string]Configuration

func DefaultPresets() Presets {
	base := DefaultConfiguration()

	location := base
	location.MaxDistanceKm = 25
	location.Weights = Weights{Location: 0.45, Availability: 0.20, Expertise: 0.15, Rating: 0.10, Workload: 0.05, Satisfaction: 0.05}

	availability := base
	availability.Weights = Weights{Location: 0.15, Availability: 0.40, Expertise: 0.15, Rating: 0.10, Workload: 0.15, Satisfaction: 0.05}

	quality := base
	quality.RequireExpertiseMatch = true
	quality.Weights = Weights{Location: 0.10, Availability: 0.15, Expertise: 0.25, Rating: 0.30, Workload: 0.05, Satisfaction: 0.15}

	return Presets{
		PresetDefault:              base,
		PresetLocationPriority:     location,
		PresetAvailabilityPriority: availability,
		PresetQualityPriority:      quality,
	}
}

func (p Presets) Get(name string) (Configuration, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = PresetDefault
	}
	cfg, ok := p[name]
	return cfg, ok
}

func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
