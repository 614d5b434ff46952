// Package assignment picks a technician for a booking: it gates the employee
// pool, scores each candidate, applies a selection strategy and commits the
// winner together with an audit entry.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/householdpro/backend/internal/models"
)

const DefaultMaxAttempts = 3

type BookingStore interface {
	GetBooking(ctx context.Context, id string) (models.Booking, error)
	// ListEmployeeAgenda returns the employee's bookings on date in the given statuses.
	ListEmployeeAgenda(ctx context.Context, employeeID string, date time.Time, statuses []models.BookingStatus) ([]models.Booking, error)
	ApplyAssignment(ctx context.Context, change models.AssignmentChange) error
}

type EmployeeStore interface {
	ListEmployees(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error)
	GetEmployee(ctx context.Context, id string) (models.Employee, error)
}

type Recorder interface {
	ObserveAssignment(strategy, code string, score float64, elapsed time.Duration)
	ObserveRetry(strategy string)
}

// Publisher announces committed assignment changes.
type Publisher interface {
	PublishAssignment(ctx context.Context, entry models.AuditEntry) error
}

type Service struct {
	Bookings    BookingStore
	Employees   EmployeeStore
	Scorer      Scorer
	Defaults    Configuration
	Locks       *EmployeeLocks
	Recorder    Recorder
	Publisher   Publisher
	Logger      zerolog.Logger
	MaxAttempts int
	Now         func() time.Time
}

func NewService(bookings BookingStore, employees EmployeeStore, scorer Scorer, logger zerolog.Logger) *Service {
	return &Service{
		Bookings:    bookings,
		Employees:   employees,
		Scorer:      scorer,
		Defaults:    DefaultConfiguration(),
		Locks:       NewEmployeeLocks(),
		Logger:      logger,
		MaxAttempts: DefaultMaxAttempts,
		Now:         time.Now,
	}
}

// Assign runs one assignment attempt. It never fails with an error; the
// outcome, including every failure, is described by the returned Result.
func (s *Service) Assign(ctx context.Context, req Request) Result {
	start := time.Now()
	res := s.assign(ctx, req)
	if s.Recorder != nil {
		s.Recorder.ObserveAssignment(string(res.Strategy), res.Code, res.Score, time.Since(start))
	}
	event := s.Logger.Info()
	if !res.Success {
		event = s.Logger.Warn()
	}
	event.Str("booking_id", req.BookingID).
		Str("strategy", string(res.Strategy)).
		Str("code", res.Code).
		Float64("score", res.Score).
		Msg(res.Message)
	return res
}

func (s *Service) assign(ctx context.Context, req Request) Result {
	cfg, err := s.resolveConfig(req.Config, req.Strategy)
	if err != nil {
		return failure(req.BookingID, cfg.Strategy, CodeInvalidRequest, err.Error())
	}
	booking, res, ok := s.loadAssignable(ctx, req.BookingID, cfg.Strategy)
	if !ok {
		return res
	}
	if cfg.Strategy == StrategyManual {
		return s.assignManual(ctx, booking, req)
	}

	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	for attempt := 1; ; attempt++ {
		el, err := s.Eligible(ctx, booking, cfg)
		if err != nil {
			s.Logger.Error().Err(err).Str("booking_id", booking.ID).Msg("employee pool lookup failed")
			return failure(booking.ID, cfg.Strategy, CodeDataAccessFailed, "could not load employee pool")
		}
		if len(el.Candidates) == 0 {
			return s.noEligible(ctx, booking, cfg, el, fmt.Sprintf("no eligible employees for booking %s", booking.ID))
		}
		winner := Select(cfg.Strategy, el.Candidates, cfg)
		if winner == nil {
			return s.noEligible(ctx, booking, cfg, el, fmt.Sprintf("no candidate qualified under %s", cfg.Strategy))
		}

		entry := s.auditEntry(booking, &winner.Employee.ID, cfg.Strategy, winner.TotalScore, winner.AssignmentReason, req.Actor)
		err = s.commit(ctx, winner.Employee.ID, models.AssignmentChange{
			BookingID:        booking.ID,
			EmployeeID:       &winner.Employee.ID,
			Status:           models.BookingConfirmed,
			ScheduledDate:    booking.ScheduledDate,
			ExpectedWorkload: winner.CurrentWorkload,
			Audit:            entry,
		})
		switch {
		case err == nil:
			s.publish(ctx, entry)
			return Result{
				Success:      true,
				Code:         CodeAssigned,
				Message:      fmt.Sprintf("booking %s assigned to %s", booking.ID, winner.Employee.Name),
				BookingID:    booking.ID,
				Strategy:     cfg.Strategy,
				Employee:     summarize(winner.Employee, winner.DistanceKm),
				Score:        winner.TotalScore,
				Reason:       winner.AssignmentReason,
				Breakdown:    breakdownOf(*winner),
				Alternatives: alternatives(el.Candidates, winner.Employee.ID),
				AuditID:      entry.ID,
			}
		case errors.Is(err, models.ErrWorkloadChanged) && attempt < attempts:
			s.Logger.Info().Str("booking_id", booking.ID).Str("employee_id", winner.Employee.ID).Int("attempt", attempt).Msg("workload changed during commit, rescoring")
			if s.Recorder != nil {
				s.Recorder.ObserveRetry(string(cfg.Strategy))
			}
		case errors.Is(err, models.ErrWorkloadChanged):
			return failure(booking.ID, cfg.Strategy, CodeCapacityConflict,
				fmt.Sprintf("employee workload kept changing after %d attempts", attempts))
		default:
			s.Logger.Error().Err(err).Str("booking_id", booking.ID).Msg("assignment commit failed")
			return failure(booking.ID, cfg.Strategy, CodePersistenceFailed, "failed to save assignment")
		}
	}
}

func (s *Service) assignManual(ctx context.Context, booking models.Booking, req Request) Result {
	id := strings.TrimSpace(req.ManualEmployeeID)
	if id == "" {
		return failure(booking.ID, StrategyManual, CodeInvalidRequest, "manual assignment requires an employee id")
	}
	emp, err := s.Employees.GetEmployee(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return failure(booking.ID, StrategyManual, CodeEmployeeNotFound, fmt.Sprintf("employee %s not found", id))
	}
	if err != nil {
		s.Logger.Error().Err(err).Str("employee_id", id).Msg("employee lookup failed")
		return failure(booking.ID, StrategyManual, CodeDataAccessFailed, "could not load employee")
	}
	if !emp.IsActive {
		return failure(booking.ID, StrategyManual, CodeEmployeeInactive, fmt.Sprintf("employee %s is inactive", id))
	}

	reason := "Manually assigned by operator"
	entry := s.auditEntry(booking, &emp.ID, StrategyManual, 0, reason, req.Actor)
	err = s.commit(ctx, emp.ID, models.AssignmentChange{
		BookingID:        booking.ID,
		EmployeeID:       &emp.ID,
		Status:           models.BookingConfirmed,
		ScheduledDate:    booking.ScheduledDate,
		ExpectedWorkload: -1,
		Audit:            entry,
	})
	if err != nil {
		s.Logger.Error().Err(err).Str("booking_id", booking.ID).Msg("manual assignment commit failed")
		return failure(booking.ID, StrategyManual, CodePersistenceFailed, "failed to save assignment")
	}
	s.publish(ctx, entry)
	return Result{
		Success:   true,
		Code:      CodeAssigned,
		Message:   fmt.Sprintf("booking %s assigned to %s", booking.ID, emp.Name),
		BookingID: booking.ID,
		Strategy:  StrategyManual,
		Employee:  summarize(emp, nil),
		Reason:    reason,
		AuditID:   entry.ID,
	}
}

// Unassign clears a booking's employee and returns it to pending.
func (s *Service) Unassign(ctx context.Context, bookingID, actor, reason string) Result {
	booking, res, ok := s.loadAssignable(ctx, bookingID, "")
	if !ok {
		return res
	}
	if booking.AssignedEmployeeID == nil {
		return failure(booking.ID, "", CodeNotAssigned, fmt.Sprintf("booking %s has no assigned employee", booking.ID))
	}
	if strings.TrimSpace(reason) == "" {
		reason = "Unassigned by operator"
	}
	previous := *booking.AssignedEmployeeID
	entry := s.auditEntry(booking, nil, "", 0, reason, actor)
	err := s.commit(ctx, previous, models.AssignmentChange{
		BookingID:        booking.ID,
		Status:           models.BookingPending,
		ScheduledDate:    booking.ScheduledDate,
		ExpectedWorkload: -1,
		Audit:            entry,
	})
	if err != nil {
		s.Logger.Error().Err(err).Str("booking_id", booking.ID).Msg("unassign commit failed")
		return failure(booking.ID, "", CodePersistenceFailed, "failed to save unassignment")
	}
	s.publish(ctx, entry)
	s.Logger.Info().Str("booking_id", booking.ID).Str("previous_employee_id", previous).Msg("booking unassigned")
	return Result{
		Success:   true,
		Code:      CodeUnassigned,
		Message:   fmt.Sprintf("booking %s unassigned", booking.ID),
		BookingID: booking.ID,
		Reason:    reason,
		AuditID:   entry.ID,
	}
}

// Pick is what a strategy would choose in a dry run.
type Pick struct {
	EmployeeID string  `json:"employee_id"`
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	Reason     string  `json:"reason"`
}

type Preview struct {
	Booking       models.Booking     `json:"booking"`
	Configuration Configuration      `json:"configuration"`
	Candidates    []Candidate        `json:"candidates"`
	Exclusions    []Exclusion        `json:"exclusions"`
	Stages        []EligibilityStage `json:"stages"`
	Picks         map[Strategy]*Pick `json:"picks"`
}

// Preview scores a booking without committing anything. Candidates are
// sorted by total score, best first.
func (s *Service) Preview(ctx context.Context, bookingID string, cfg *Configuration) (Preview, error) {
	resolved, err := s.resolveConfig(cfg, "")
	if err != nil {
		return Preview{}, err
	}
	booking, err := s.Bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return Preview{}, fmt.Errorf("load booking %s: %w", bookingID, err)
	}
	el, err := s.Eligible(ctx, booking, resolved)
	if err != nil {
		return Preview{}, err
	}
	p := Preview{
		Booking:       booking,
		Configuration: resolved,
		Candidates:    sortedByTotal(el.Candidates),
		Exclusions:    el.Exclusions,
		Stages:        el.Stages,
		Picks:         map[Strategy]*Pick{},
	}
	for _, strategy := range Strategies {
		if strategy == StrategyManual {
			continue
		}
		var pick *Pick
		if w := Select(strategy, el.Candidates, resolved); w != nil {
			pick = &Pick{EmployeeID: w.Employee.ID, Name: w.Employee.Name, Score: w.TotalScore, Reason: w.AssignmentReason}
		}
		p.Picks[strategy] = pick
	}
	return p, nil
}

func (s *Service) resolveConfig(cfg *Configuration, strategy Strategy) (Configuration, error) {
	resolved := s.Defaults
	if resolved.Strategy == "" {
		resolved = DefaultConfiguration()
	}
	if cfg != nil {
		resolved = *cfg
	}
	if strategy != "" {
		resolved.Strategy = strategy
	}
	if err := resolved.Validate(); err != nil {
		return resolved, err
	}
	return resolved, nil
}

func (s *Service) loadAssignable(ctx context.Context, bookingID string, strategy Strategy) (models.Booking, Result, bool) {
	booking, err := s.Bookings.GetBooking(ctx, bookingID)
	if errors.Is(err, models.ErrNotFound) {
		return models.Booking{}, failure(bookingID, strategy, CodeBookingNotFound, fmt.Sprintf("booking %s not found", bookingID)), false
	}
	if err != nil {
		s.Logger.Error().Err(err).Str("booking_id", bookingID).Msg("booking lookup failed")
		return models.Booking{}, failure(bookingID, strategy, CodeDataAccessFailed, "could not load booking"), false
	}
	if !booking.Status.Assignable() {
		return models.Booking{}, failure(bookingID, strategy, CodeBookingNotAssignable,
			fmt.Sprintf("booking %s is %s", bookingID, booking.Status)), false
	}
	return booking, Result{}, true
}

func (s *Service) commit(ctx context.Context, employeeID string, change models.AssignmentChange) error {
	if s.Locks != nil {
		release := s.Locks.Lock(employeeID)
		defer release()
	}
	return s.Bookings.ApplyAssignment(ctx, change)
}

func (s *Service) auditEntry(booking models.Booking, employeeID *string, strategy Strategy, score float64, reason, actor string) models.AuditEntry {
	action := models.AuditAssigned
	switch {
	case employeeID == nil:
		action = models.AuditUnassigned
	case booking.AssignedEmployeeID != nil:
		action = models.AuditReassigned
	}
	if actor == "" {
		actor = "system"
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return models.AuditEntry{
		ID:                 uuid.NewString(),
		BookingID:          booking.ID,
		EmployeeID:         employeeID,
		PreviousEmployeeID: booking.AssignedEmployeeID,
		Action:             action,
		Strategy:           string(strategy),
		Score:              score,
		Reason:             reason,
		Actor:              actor,
		CreatedAt:          now().UTC(),
	}
}

func (s *Service) publish(ctx context.Context, entry models.AuditEntry) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.PublishAssignment(ctx, entry); err != nil {
		s.Logger.Warn().Err(err).Str("booking_id", entry.BookingID).Msg("publish assignment event failed")
	}
}

func (s *Service) noEligible(ctx context.Context, booking models.Booking, cfg Configuration, el Eligibility, message string) Result {
	res := failure(booking.ID, cfg.Strategy, CodeNoEligibleEmployees, message)
	res.Suggestions = s.suggestions(ctx, booking, cfg, el)
	return res
}

// suggestions explains, for up to five employees, why none could be picked.
func (s *Service) suggestions(ctx context.Context, booking models.Booking, cfg Configuration, el Eligibility) []Suggestion {
	type ranked struct {
		rank int
		s    Suggestion
	}
	var out []ranked
	seen := map[string]bool{}
	for _, ex := range el.Exclusions {
		rank := 1
		if ex.Code == ExclusionNoExpertise {
			rank = 0
		}
		seen[ex.Employee.ID] = true
		out = append(out, ranked{rank, Suggestion{EmployeeID: ex.Employee.ID, Name: ex.Employee.Name, Reason: ex.Reason}})
	}
	for _, c := range el.Candidates {
		seen[c.Employee.ID] = true
		out = append(out, ranked{4, Suggestion{EmployeeID: c.Employee.ID, Name: c.Employee.Name, Reason: shortfall(c, cfg)}})
	}

	all, err := s.Employees.ListEmployees(ctx, models.EmployeeFilter{})
	if err != nil {
		s.Logger.Warn().Err(err).Str("booking_id", booking.ID).Msg("list employees for suggestions failed")
	}
	for _, e := range all {
		if seen[e.ID] {
			continue
		}
		sg := Suggestion{EmployeeID: e.ID, Name: e.Name}
		var rank int
		switch {
		case cfg.RequireExpertiseMatch && !MatchesCategory(e.ExpertiseAreas, booking.CategoryName):
			rank, sg.Reason = 0, fmt.Sprintf("no expertise in %s", booking.CategoryName)
		case !e.IsActive:
			rank, sg.Reason = 3, "inactive"
		case !e.IsAvailable:
			rank, sg.Reason = 2, "marked unavailable"
		default:
			continue
		}
		out = append(out, ranked{rank, sg})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].rank < out[j].rank })
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	res := make([]Suggestion, 0, len(out))
	for _, r := range out {
		res = append(res, r.s)
	}
	return res
}

func shortfall(c Candidate, cfg Configuration) string {
	switch cfg.Strategy {
	case StrategyRoundRobin:
		if c.HasConflict {
			return "time conflict with another booking that day"
		}
		return fmt.Sprintf("daily limit reached (%d of %d)", c.CurrentWorkload, cfg.MaxDailyAssignments)
	case StrategyLocationOnly:
		return "location score is zero"
	case StrategyAvailabilityOnly:
		return "availability score is zero"
	case StrategyLocationAndAvailability:
		return fmt.Sprintf("location %.2f and availability %.2f must both be positive", c.LocationScore, c.AvailabilityScore)
	default:
		return "total score is zero"
	}
}

func sortedByTotal(candidates []Candidate) []Candidate {
	out := append([]Candidate(nil), candidates...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalScore > out[j].TotalScore })
	return out
}

func alternatives(candidates []Candidate, winnerID string) []Alternative {
	var out []Alternative
	for _, c := range sortedByTotal(candidates) {
		if c.Employee.ID == winnerID {
			continue
		}
		out = append(out, Alternative{
			EmployeeID: c.Employee.ID,
			Name:       c.Employee.Name,
			TotalScore: c.TotalScore,
			DistanceKm: c.DistanceKm,
		})
		if len(out) == maxAlternatives {
			break
		}
	}
	return out
}
