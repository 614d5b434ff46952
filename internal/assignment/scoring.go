package assignment

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/householdpro/backend/internal/distance"
	"github.com/householdpro/backend/internal/geocode"
	"github.com/householdpro/backend/internal/models"
)

const (
	neutralScore           = 0.5
	conflictPenalty        = 0.3
	maxRating              = 5.0
	maxSatisfaction        = 10.0
	fullExpertiseScore     = 1.0
	categoryExpertiseScore = 0.8
	keywordExpertiseScore  = 0.6
	noExpertiseScore       = 0.2
	minKeywordLength       = 3
)

// Candidate is one employee scored against one booking.
type Candidate struct {
	Employee          models.Employee `json:"employee"`
	LocationScore     float64         `json:"location_score"`
	AvailabilityScore float64         `json:"availability_score"`
	ExpertiseScore    float64         `json:"expertise_score"`
	RatingScore       float64         `json:"rating_score"`
	WorkloadScore     float64         `json:"workload_score"`
	SatisfactionScore float64         `json:"satisfaction_score"`
	DistanceKm        *float64        `json:"distance_km"`
	IsAvailable       bool            `json:"is_available"`
	HasExpertise      bool            `json:"has_expertise"`
	HasConflict       bool            `json:"has_conflict"`
	CurrentWorkload   int             `json:"current_workload"`
	AssignmentReason  string          `json:"assignment_reason,omitempty"`
	TotalScore        float64         `json:"total_score"`
}

// CalculateTotalScore stores and returns the weighted sum of the sub-scores.
func (c *Candidate) CalculateTotalScore(w Weights) float64 {
	c.TotalScore = w.Location*c.LocationScore +
		w.Availability*c.AvailabilityScore +
		w.Expertise*c.ExpertiseScore +
		w.Rating*c.RatingScore +
		w.Workload*c.WorkloadScore +
		w.Satisfaction*c.SatisfactionScore
	return c.TotalScore
}

// Workday is an employee's load on the booking's date.
type Workday struct {
	Workload int
	Conflict bool
}

// Scorer computes candidate scores. Every lookup it performs degrades to a
// neutral value instead of failing.
type Scorer struct {
	Resolver geocode.Resolver
	Distance distance.Estimator
}

// Site resolves the booking's service location. Nil means unknown.
func (s Scorer) Site(ctx context.Context, b models.Booking) *geocode.Point {
	if s.Resolver == nil {
		return nil
	}
	for _, text := range []string{b.City, b.AddressLine} {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if p, ok := s.Resolver.Resolve(ctx, text); ok {
			return &p
		}
	}
	return nil
}

// DistanceTo returns the employee's distance to site, or nil when either end is unknown.
func (s Scorer) DistanceTo(ctx context.Context, site *geocode.Point, e models.Employee) *float64 {
	if site == nil || s.Resolver == nil || s.Distance == nil {
		return nil
	}
	p, ok := s.Resolver.Resolve(ctx, e.Location)
	if !ok {
		return nil
	}
	d := s.Distance.Kilometers(p, *site)
	return &d
}

func (s Scorer) Score(ctx context.Context, b models.Booking, site *geocode.Point, e models.Employee, day Workday, cfg Configuration) Candidate {
	expertise, hasExpertise := ExpertiseScore(e, b.CategoryName, b.ServiceName, cfg.RequireExpertiseMatch)
	c := Candidate{
		Employee:          e,
		DistanceKm:        s.DistanceTo(ctx, site, e),
		AvailabilityScore: AvailabilityScore(day.Workload, cfg.MaxDailyAssignments, day.Conflict),
		ExpertiseScore:    expertise,
		RatingScore:       RatingScore(e.Rating),
		WorkloadScore:     WorkloadScore(day.Workload, cfg.MaxDailyAssignments),
		SatisfactionScore: SatisfactionScore(e.CustomerSatisfactionScore),
		IsAvailable:       !day.Conflict && day.Workload < cfg.MaxDailyAssignments,
		HasExpertise:      hasExpertise,
		HasConflict:       day.Conflict,
		CurrentWorkload:   day.Workload,
	}
	c.LocationScore = LocationScore(c.DistanceKm, cfg.MaxDistanceKm)
	c.CalculateTotalScore(cfg.Weights)
	return c
}

// LocationScore decays linearly from 1 at the site to 0 at maxKm.
func LocationScore(distanceKm *float64, maxKm float64) float64 {
	if distanceKm == nil {
		return neutralScore
	}
	if maxKm <= 0 || *distanceKm >= maxKm {
		return 0
	}
	return clamp01(1 - *distanceKm/maxKm)
}

func AvailabilityScore(dailyAssignments, maxDaily int, conflict bool) float64 {
	score := capacityRatio(dailyAssignments, maxDaily)
	if conflict {
		score *= conflictPenalty
	}
	return score
}

func WorkloadScore(workload, maxDaily int) float64 {
	return capacityRatio(workload, maxDaily)
}

func RatingScore(rating float64) float64 {
	return clamp01(rating / maxRating)
}

func SatisfactionScore(score *float64) float64 {
	if score == nil {
		return neutralScore
	}
	return clamp01(*score / maxSatisfaction)
}

// ExpertiseScore grades an employee's fit for a service. The second return
// reports whether the category matched an expertise tag.
func ExpertiseScore(e models.Employee, category, serviceName string, requireMatch bool) (float64, bool) {
	categoryMatch := MatchesCategory(e.ExpertiseAreas, category)
	keywordMatch := matchesAnyKeyword(e.Skills, serviceKeywords(serviceName))
	switch {
	case categoryMatch && keywordMatch:
		return fullExpertiseScore, true
	case categoryMatch:
		return categoryExpertiseScore, true
	case keywordMatch:
		return keywordExpertiseScore, false
	case requireMatch:
		return 0, false
	default:
		return noExpertiseScore, false
	}
}

// MatchesCategory reports a case-insensitive whole-word match in either
// direction: "AC" matches "AC Repair" but not "Vacuum Cleaning".
func MatchesCategory(areas []string, category string) bool {
	c := wordKey(category)
	if c == "" {
		return false
	}
	for _, a := range areas {
		a = wordKey(a)
		if a == "" {
			continue
		}
		if strings.Contains(a, c) || strings.Contains(c, a) {
			return true
		}
	}
	return false
}

// wordKey lowercases s into space-separated words padded with one space on
// each side, so substring tests only match on word boundaries. Blank input
// yields "".
func wordKey(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), notWordRune)
	if len(words) == 0 {
		return ""
	}
	return " " + strings.Join(words, " ") + " "
}

func notWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func serviceKeywords(serviceName string) []string {
	words := strings.FieldsFunc(strings.ToLower(serviceName), notWordRune)
	out := words[:0]
	for _, w := range words {
		if len(w) >= minKeywordLength {
			out = append(out, w)
		}
	}
	return out
}

func matchesAnyKeyword(skills []string, keywords []string) bool {
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if len(s) < minKeywordLength {
			continue
		}
		for _, k := range keywords {
			if strings.Contains(s, k) || strings.Contains(k, s) {
				return true
			}
		}
	}
	return false
}

func capacityRatio(count, max int) float64 {
	if max <= 0 {
		return 0
	}
	return clamp01(1 - float64(count)/float64(max))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
