package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/householdpro/backend/internal/assignment"
	"github.com/householdpro/backend/internal/models"
	"github.com/householdpro/backend/internal/service"
)

// Store is the slice of the database the HTTP layer reads and imports into.
type Store interface {
	Ping(ctx context.Context) error
	GetBooking(ctx context.Context, id string) (models.Booking, error)
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	ListAudit(ctx context.Context, bookingID string) ([]models.AuditEntry, error)
	ListEmployees(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error)
	UpsertEmployees(ctx context.Context, employees []models.Employee) (int64, error)
	UpsertBookings(ctx context.Context, bookings []models.Booking) (int64, error)
	GetLatestRun(ctx context.Context) (models.Run, error)
}

type Assigner interface {
	Assign(ctx context.Context, req assignment.Request) assignment.Result
	Unassign(ctx context.Context, bookingID, actor, reason string) assignment.Result
	Preview(ctx context.Context, bookingID string, cfg *assignment.Configuration) (assignment.Preview, error)
}

type BatchRunner interface {
	ProcessPending(ctx context.Context, opts service.BatchOptions) (service.RunSummary, error)
}

type Handler struct {
	Store         Store
	Assigner      Assigner
	Batch         BatchRunner
	Presets       assignment.Presets
	DefaultPreset string
	Validator     *validator.Validate
	Logger        zerolog.Logger
}

// NewValidator returns a validator that also knows the "preset" tag, which
// accepts the names of the given presets.
func NewValidator(presets assignment.Presets) *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("preset", func(fl validator.FieldLevel) bool {
		_, ok := presets.Get(fl.Field().String())
		return ok
	})
	return v
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

func statusForCode(code string) int {
	switch code {
	case assignment.CodeAssigned, assignment.CodeUnassigned:
		return http.StatusOK
	case assignment.CodeInvalidRequest:
		return http.StatusBadRequest
	case assignment.CodeBookingNotFound, assignment.CodeEmployeeNotFound:
		return http.StatusNotFound
	case assignment.CodeBookingNotAssignable, assignment.CodeEmployeeInactive,
		assignment.CodeCapacityConflict, assignment.CodeNotAssigned:
		return http.StatusConflict
	case assignment.CodeNoEligibleEmployees:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeResult(c *gin.Context, res assignment.Result) {
	if res.Success {
		c.JSON(http.StatusOK, res)
		return
	}
	writeError(c, statusForCode(res.Code), res.Code, res.Message, res)
}
