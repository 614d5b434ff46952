package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/householdpro/backend/internal/assignment"
	"github.com/householdpro/backend/internal/models"
)

const ActorHeader = "X-Actor"

type AssignRequest struct {
	Strategy              string              `json:"strategy" validate:"omitempty,oneof=best_fit location_only availability_only location_and_availability round_robin manual"`
	Preset                string              `json:"preset" validate:"omitempty,preset"`
	EmployeeID            string              `json:"employee_id" validate:"required_if=Strategy manual,max=64"`
	MaxDistanceKm         *float64            `json:"max_distance_km" validate:"omitempty,gt=0"`
	MaxDailyAssignments   *int                `json:"max_daily_assignments" validate:"omitempty,gt=0"`
	RequireExpertiseMatch *bool               `json:"require_expertise_match"`
	Weights               *assignment.Weights `json:"weights"`
	Actor                 string              `json:"actor" validate:"max=120"`
}

type UnassignRequest struct {
	Reason string `json:"reason" validate:"max=500"`
	Actor  string `json:"actor" validate:"max=120"`
}

// @Summary Assignment presets
// @Tags assignment
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/assignment/presets [get]
func (h *Handler) PresetsList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"default":    h.defaultPresetName(),
		"names":      h.Presets.Names(),
		"items":      h.Presets,
		"strategies": assignment.Strategies,
	})
}

// @Summary Assign a booking
// @Description Picks an employee with the requested strategy, or assigns one manually
// @Tags assignment
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param body body AssignRequest false "Strategy, preset and overrides"
// @Success 200 {object} assignment.Result
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Failure 422 {object} map[string]any
// @Router /api/bookings/{id}/assign [post]
func (h *Handler) Assign(c *gin.Context) {
	var req AssignRequest
	if !h.bindOptional(c, &req) {
		return
	}
	cfg, ok := h.presetConfig(c, req.Preset)
	if !ok {
		return
	}
	if req.MaxDistanceKm != nil {
		cfg.MaxDistanceKm = *req.MaxDistanceKm
	}
	if req.MaxDailyAssignments != nil {
		cfg.MaxDailyAssignments = *req.MaxDailyAssignments
	}
	if req.RequireExpertiseMatch != nil {
		cfg.RequireExpertiseMatch = *req.RequireExpertiseMatch
	}
	if req.Weights != nil {
		cfg.Weights = *req.Weights
	}

	res := h.Assigner.Assign(c.Request.Context(), assignment.Request{
		BookingID:        c.Param("id"),
		Strategy:         assignment.Strategy(req.Strategy),
		ManualEmployeeID: strings.TrimSpace(req.EmployeeID),
		Config:           &cfg,
		Actor:            actorOf(c, req.Actor),
	})
	writeResult(c, res)
}

// @Summary Unassign a booking
// @Tags assignment
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param body body UnassignRequest false "Reason"
// @Success 200 {object} assignment.Result
// @Failure 404 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/bookings/{id}/unassign [post]
func (h *Handler) Unassign(c *gin.Context) {
	var req UnassignRequest
	if !h.bindOptional(c, &req) {
		return
	}
	res := h.Assigner.Unassign(c.Request.Context(), c.Param("id"), actorOf(c, req.Actor), strings.TrimSpace(req.Reason))
	writeResult(c, res)
}

// @Summary Debug candidates
// @Description Dry run: scored candidates, exclusions and each strategy's pick
// @Tags debug
// @Produce json
// @Param booking_id query string true "Booking ID"
// @Param preset query string false "Preset name"
// @Success 200 {object} assignment.Preview
// @Router /api/debug/candidates [get]
func (h *Handler) DebugCandidates(c *gin.Context) {
	bookingID := strings.TrimSpace(c.Query("booking_id"))
	if bookingID == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "booking_id is required", nil)
		return
	}
	cfg, ok := h.presetConfig(c, c.Query("preset"))
	if !ok {
		return
	}
	preview, err := h.Assigner.Preview(c.Request.Context(), bookingID, &cfg)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Booking not found", nil)
		case errors.Is(err, assignment.ErrInvalidConfiguration):
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid configuration", err.Error())
		default:
			writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to build preview", err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, preview)
}

// bindOptional binds and validates a JSON body. An empty body is allowed.
func (h *Handler) bindOptional(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return false
	}
	if err := h.Validator.Struct(dst); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) presetConfig(c *gin.Context, name string) (assignment.Configuration, bool) {
	if strings.TrimSpace(name) == "" {
		name = h.defaultPresetName()
	}
	cfg, ok := h.Presets.Get(name)
	if !ok {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown preset", name)
		return assignment.Configuration{}, false
	}
	return cfg, true
}

func (h *Handler) defaultPresetName() string {
	if h.DefaultPreset == "" {
		return assignment.PresetDefault
	}
	return h.DefaultPreset
}

func actorOf(c *gin.Context, fromBody string) string {
	if a := strings.TrimSpace(fromBody); a != "" {
		return a
	}
	if a := strings.TrimSpace(c.GetHeader(ActorHeader)); a != "" {
		return a
	}
	return "admin"
}
