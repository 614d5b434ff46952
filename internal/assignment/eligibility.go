package assignment

import (
	"context"
	"fmt"

	"github.com/householdpro/backend/internal/geocode"
	"github.com/householdpro/backend/internal/models"
)

const (
	ExclusionOutOfRange  = "OUT_OF_RANGE"
	ExclusionNoExpertise = "EXPERTISE_MISMATCH"
	stagePool            = "active_available"
	stageExpertise       = "expertise_match"
	stageRange           = "within_range"
)

// Exclusion is a pooled employee dropped by a hard gate.
type Exclusion struct {
	Employee   models.Employee `json:"employee"`
	Code       string          `json:"code"`
	Reason     string          `json:"reason"`
	DistanceKm *float64        `json:"distance_km,omitempty"`
}

type EligibilityStage struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Eligibility is the scored candidate set for one booking. An empty
// Candidates slice is a valid outcome.
type Eligibility struct {
	Candidates []Candidate        `json:"candidates"`
	Exclusions []Exclusion        `json:"exclusions"`
	Stages     []EligibilityStage `json:"stages"`
	Site       *geocode.Point     `json:"site,omitempty"`
}

// Eligible scores every active, available employee against the booking and
// applies the expertise and distance gates. Only a failed pool query is an error.
func (s *Service) Eligible(ctx context.Context, booking models.Booking, cfg Configuration) (Eligibility, error) {
	filter := models.EmployeeFilter{ActiveOnly: true, AvailableOnly: true}
	if cfg.RequireExpertiseMatch {
		filter.Expertise = booking.CategoryName
	}
	pool, err := s.Employees.ListEmployees(ctx, filter)
	if err != nil {
		return Eligibility{}, fmt.Errorf("list eligible employees: %w", err)
	}

	out := Eligibility{Site: s.Scorer.Site(ctx, booking)}
	if out.Site == nil {
		s.Logger.Warn().Str("booking_id", booking.ID).Str("location", booking.LocationText()).Msg("booking location unresolved, scoring location neutrally")
	}
	out.Stages = append(out.Stages, EligibilityStage{Name: stagePool, Count: len(pool)})

	window := s.bookingWindow(booking)
	matched := 0
	for _, emp := range pool {
		if !emp.IsActive || !emp.IsAvailable {
			continue
		}
		if cfg.RequireExpertiseMatch && !MatchesCategory(emp.ExpertiseAreas, booking.CategoryName) {
			out.Exclusions = append(out.Exclusions, Exclusion{
				Employee: emp,
				Code:     ExclusionNoExpertise,
				Reason:   fmt.Sprintf("no expertise in %s", booking.CategoryName),
			})
			continue
		}
		matched++

		day := s.workday(ctx, emp.ID, booking, window)
		c := s.Scorer.Score(ctx, booking, out.Site, emp, day, cfg)
		if c.DistanceKm != nil && *c.DistanceKm >= cfg.MaxDistanceKm {
			out.Exclusions = append(out.Exclusions, Exclusion{
				Employee:   emp,
				Code:       ExclusionOutOfRange,
				Reason:     fmt.Sprintf("%.1f km away, limit is %.1f km", *c.DistanceKm, cfg.MaxDistanceKm),
				DistanceKm: c.DistanceKm,
			})
			continue
		}
		out.Candidates = append(out.Candidates, c)
	}
	if cfg.RequireExpertiseMatch {
		out.Stages = append(out.Stages, EligibilityStage{Name: stageExpertise, Count: matched})
	}
	out.Stages = append(out.Stages, EligibilityStage{Name: stageRange, Count: len(out.Candidates)})
	return out, nil
}

// HasConflict reports whether the employee already holds an active booking
// overlapping this one on the same date. Lookup failures report no conflict.
func (s *Service) HasConflict(ctx context.Context, employeeID string, booking models.Booking) bool {
	window := s.bookingWindow(booking)
	if window == nil {
		return false
	}
	return s.workday(ctx, employeeID, booking, window).Conflict
}

func (s *Service) bookingWindow(booking models.Booking) *Window {
	w, err := ParseWindow(booking.StartTime, booking.EndTime)
	if err != nil {
		s.Logger.Warn().Err(err).Str("booking_id", booking.ID).Msg("booking time window unparseable, skipping conflict checks")
		return nil
	}
	return &w
}

// workday loads the employee's same-day agenda. On failure it assumes an
// empty day; the commit re-checks workload under lock.
func (s *Service) workday(ctx context.Context, employeeID string, booking models.Booking, window *Window) Workday {
	agenda, err := s.Bookings.ListEmployeeAgenda(ctx, employeeID, booking.ScheduledDate, models.ActiveStatuses)
	if err != nil {
		s.Logger.Warn().Err(err).Str("employee_id", employeeID).Str("booking_id", booking.ID).Msg("agenda lookup failed, assuming free day")
		return Workday{}
	}
	return tally(agenda, booking.ID, window)
}

func tally(agenda []models.Booking, bookingID string, window *Window) Workday {
	var day Workday
	for _, b := range agenda {
		if b.ID == bookingID {
			continue
		}
		day.Workload++
		if window == nil || day.Conflict {
			continue
		}
		other, err := ParseWindow(b.StartTime, b.EndTime)
		if err != nil {
			continue
		}
		if window.Overlaps(other) {
			day.Conflict = true
		}
	}
	return day
}
