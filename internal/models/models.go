package models

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrWorkloadChanged is returned by a commit when the employee picked up
	// more same-day work between scoring and the write.
	ErrWorkloadChanged = errors.New("employee workload changed during assignment")
)

type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
	BookingCancelled  BookingStatus = "cancelled"
)

// ActiveStatuses are the statuses that occupy an employee's day.
var ActiveStatuses = []BookingStatus{BookingConfirmed, BookingInProgress}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingInProgress, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

// Assignable reports whether an employee may still be (re)assigned.
func (s BookingStatus) Assignable() bool {
	return s == BookingPending || s == BookingConfirmed
}

const (
	DateFormat  = "2006-01-02"
	ClockFormat = "15:04"
)

type Booking struct {
	ID                 string        `json:"id"`
	CustomerID         string        `json:"customer_id"`
	ServiceID          string        `json:"service_id"`
	ServiceName        string        `json:"service_name"`
	CategoryName       string        `json:"category_name"`
	SubcategoryName    string        `json:"subcategory_name,omitempty"`
	ScheduledDate      time.Time     `json:"scheduled_date"`
	StartTime          string        `json:"start_time"`
	EndTime            string        `json:"end_time"`
	AddressLine        string        `json:"address_line"`
	City               string        `json:"city"`
	Status             BookingStatus `json:"status"`
	AssignedEmployeeID *string       `json:"assigned_employee_id"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// LocationText is the free text used to resolve the service address.
func (b Booking) LocationText() string {
	if b.City != "" {
		return b.City
	}
	return b.AddressLine
}

type Employee struct {
	ID                        string    `json:"id"`
	Name                      string    `json:"name"`
	Phone                     string    `json:"phone"`
	Email                     string    `json:"email,omitempty"`
	Location                  string    `json:"location"`
	ExpertiseAreas            []string  `json:"expertise_areas"`
	Skills                    []string  `json:"skills"`
	Rating                    float64   `json:"rating"`
	IsActive                  bool      `json:"is_active"`
	IsAvailable               bool      `json:"is_available"`
	CustomerSatisfactionScore *float64  `json:"customer_satisfaction_score"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

type EmployeeFilter struct {
	ActiveOnly    bool
	AvailableOnly bool
	// Expertise restricts to employees with an expertise tag containing the value.
	Expertise string
}

type BookingFilter struct {
	Status     BookingStatus
	Date       *time.Time
	Unassigned bool
	Limit      int
	Offset     int
}

type AuditAction string

const (
	AuditAssigned   AuditAction = "assigned"
	AuditReassigned AuditAction = "reassigned"
	AuditUnassigned AuditAction = "unassigned"
)

type AuditEntry struct {
	ID                 string      `json:"id"`
	BookingID          string      `json:"booking_id"`
	EmployeeID         *string     `json:"employee_id"`
	PreviousEmployeeID *string     `json:"previous_employee_id"`
	Action             AuditAction `json:"action"`
	Strategy           string      `json:"strategy"`
	Score              float64     `json:"score"`
	Reason             string      `json:"reason"`
	Actor              string      `json:"actor"`
	CreatedAt          time.Time   `json:"created_at"`
}

// AssignmentChange is one atomic write of a booking's assignment and its audit entry.
type AssignmentChange struct {
	BookingID     string
	EmployeeID    *string
	Status        BookingStatus
	ScheduledDate time.Time
	// ExpectedWorkload is the same-day workload observed while scoring.
	// Negative disables the re-check.
	ExpectedWorkload int
	Audit            AuditEntry
}

type Run struct {
	ID         string          `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at"`
	Status     string          `json:"status"`
	Summary    json.RawMessage `json:"summary"`
}
