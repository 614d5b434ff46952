package assignment

import (
	"fmt"
	"sort"
	"strings"
)

// Select applies a strategy to the scored candidates and returns a copy of the
// winner with AssignmentReason filled in, or nil when no candidate qualifies.
// Ties keep the earliest candidate. Manual selection is not handled here.
func Select(strategy Strategy, candidates []Candidate, cfg Configuration) *Candidate {
	switch strategy {
	case StrategyLocationOnly:
		return pickMax(candidates, func(c Candidate) (float64, bool) {
			return c.LocationScore, c.LocationScore > 0
		}, func(c Candidate) string {
			return fmt.Sprintf("Closest available technician: %s (location score %.2f)", describeDistance(c), c.LocationScore)
		})
	case StrategyAvailabilityOnly:
		return pickMax(candidates, func(c Candidate) (float64, bool) {
			return c.AvailabilityScore, c.AvailabilityScore > 0
		}, func(c Candidate) string {
			return fmt.Sprintf("Most available technician: %s (availability score %.2f)", describeLoad(c, cfg), c.AvailabilityScore)
		})
	case StrategyLocationAndAvailability:
		return pickMax(candidates, func(c Candidate) (float64, bool) {
			return (c.LocationScore + c.AvailabilityScore) / 2, c.LocationScore > 0 && c.AvailabilityScore > 0
		}, func(c Candidate) string {
			return fmt.Sprintf("Best location and availability balance (combined %.2f): %s, %s",
				(c.LocationScore+c.AvailabilityScore)/2, describeDistance(c), describeLoad(c, cfg))
		})
	case StrategyBestFit:
		return pickMax(candidates, func(c Candidate) (float64, bool) {
			return c.TotalScore, c.TotalScore > 0
		}, func(c Candidate) string {
			return bestFitReason(c, cfg)
		})
	case StrategyRoundRobin:
		return pickRoundRobin(candidates)
	default:
		return nil
	}
}

func pickMax(candidates []Candidate, metric func(Candidate) (float64, bool), reason func(Candidate) string) *Candidate {
	best := -1
	bestValue := 0.0
	for i, c := range candidates {
		v, ok := metric(c)
		if !ok {
			continue
		}
		if best < 0 || v > bestValue {
			best, bestValue = i, v
		}
	}
	if best < 0 {
		return nil
	}
	winner := candidates[best]
	winner.AssignmentReason = reason(winner)
	return &winner
}

func pickRoundRobin(candidates []Candidate) *Candidate {
	pool := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.IsAvailable {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		return nil
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].CurrentWorkload < pool[j].CurrentWorkload
	})
	winner := pool[0]
	winner.AssignmentReason = fmt.Sprintf("Round-robin pick: lowest current workload (%d assignments today)", winner.CurrentWorkload)
	return &winner
}

func bestFitReason(c Candidate, cfg Configuration) string {
	parts := []string{describeDistance(c), describeLoad(c, cfg), fmt.Sprintf("rating %.1f", c.Employee.Rating)}
	if c.HasExpertise {
		parts = append(parts, "category expertise")
	}
	if c.HasConflict {
		parts = append(parts, "has a same-day time conflict")
	}
	return fmt.Sprintf("Best overall fit (score %.2f): %s", c.TotalScore, strings.Join(parts, ", "))
}

func describeDistance(c Candidate) string {
	if c.DistanceKm == nil {
		return "distance unknown"
	}
	return fmt.Sprintf("%.1f km away", *c.DistanceKm)
}

func describeLoad(c Candidate, cfg Configuration) string {
	return fmt.Sprintf("%d of %d daily slots used", c.CurrentWorkload, cfg.MaxDailyAssignments)
}
