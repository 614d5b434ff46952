package assignment

import (
	"github.com/householdpro/backend/internal/models"
)

// Result codes. Every Assign and Unassign call ends in exactly one of these.
const (
	CodeAssigned             = "ASSIGNED"
	CodeUnassigned           = "UNASSIGNED"
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeBookingNotFound      = "BOOKING_NOT_FOUND"
	CodeBookingNotAssignable = "BOOKING_NOT_ASSIGNABLE"
	CodeEmployeeNotFound     = "EMPLOYEE_NOT_FOUND"
	CodeEmployeeInactive     = "EMPLOYEE_INACTIVE"
	CodeNoEligibleEmployees  = "NO_ELIGIBLE_EMPLOYEES"
	CodeCapacityConflict     = "CAPACITY_CONFLICT"
	CodePersistenceFailed    = "PERSISTENCE_FAILED"
	CodeDataAccessFailed     = "DATA_ACCESS_FAILED"
	CodeNotAssigned          = "NOT_ASSIGNED"
)

const maxSuggestions = 5
const maxAlternatives = 3

// Request asks for one booking to be assigned.
type Request struct {
	BookingID string
	// Strategy overrides Config.Strategy when set.
	Strategy         Strategy
	ManualEmployeeID string
	// Config falls back to the service defaults when nil.
	Config *Configuration
	Actor  string
}

type EmployeeSummary struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Phone    string   `json:"phone"`
	Location string   `json:"location"`
	Rating   float64  `json:"rating"`
	Distance *float64 `json:"distance_km,omitempty"`
}

type Breakdown struct {
	Location     float64 `json:"location"`
	Availability float64 `json:"availability"`
	Expertise    float64 `json:"expertise"`
	Rating       float64 `json:"rating"`
	Workload     float64 `json:"workload"`
	Satisfaction float64 `json:"satisfaction"`
	Total        float64 `json:"total"`
}

type Alternative struct {
	EmployeeID string   `json:"employee_id"`
	Name       string   `json:"name"`
	TotalScore float64  `json:"total_score"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// Suggestion explains why an employee could not take the booking.
type Suggestion struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	Reason     string `json:"reason"`
}

type Result struct {
	Success      bool             `json:"success"`
	Code         string           `json:"code"`
	Message      string           `json:"message"`
	BookingID    string           `json:"booking_id"`
	Strategy     Strategy         `json:"strategy,omitempty"`
	Employee     *EmployeeSummary `json:"employee,omitempty"`
	Score        float64          `json:"score"`
	Reason       string           `json:"reason,omitempty"`
	Breakdown    *Breakdown       `json:"breakdown,omitempty"`
	Alternatives []Alternative    `json:"alternatives,omitempty"`
	Suggestions  []Suggestion     `json:"suggestions,omitempty"`
	AuditID      string           `json:"audit_id,omitempty"`
}

func failure(bookingID string, strategy Strategy, code, message string) Result {
	return Result{Code: code, Message: message, BookingID: bookingID, Strategy: strategy}
}

func summarize(e models.Employee, distanceKm *float64) *EmployeeSummary {
	return &EmployeeSummary{
		ID:       e.ID,
		Name:     e.Name,
		Phone:    e.Phone,
		Location: e.Location,
		Rating:   e.Rating,
		Distance: distanceKm,
	}
}

func breakdownOf(c Candidate) *Breakdown {
	return &Breakdown{
		Location:     c.LocationScore,
		Availability: c.AvailabilityScore,
		Expertise:    c.ExpertiseScore,
		Rating:       c.RatingScore,
		Workload:     c.WorkloadScore,
		Satisfaction: c.SatisfactionScore,
		Total:        c.TotalScore,
	}
}
