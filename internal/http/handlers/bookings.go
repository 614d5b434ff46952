package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/householdpro/backend/internal/models"
)

// @Summary List bookings
// @Tags bookings
// @Produce json
// @Param status query string false "Booking status"
// @Param date query string false "Scheduled date (YYYY-MM-DD)"
// @Param unassigned query bool false "Only bookings without an employee"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} map[string]any
// @Router /api/bookings [get]
func (h *Handler) BookingsList(c *gin.Context) {
	filter := models.BookingFilter{
		Status: models.BookingStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown status", string(filter.Status))
		return
	}
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		d, err := time.Parse(models.DateFormat, raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "date must be YYYY-MM-DD", raw)
			return
		}
		filter.Date = &d
	}
	filter.Unassigned, _ = strconv.ParseBool(c.DefaultQuery("unassigned", "false"))
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.Store.ListBookings(c.Request.Context(), filter)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list bookings", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": filter.Limit, "offset": filter.Offset})
}

// @Summary Booking details
// @Tags bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} models.Booking
// @Failure 404 {object} map[string]any
// @Router /api/bookings/{id} [get]
func (h *Handler) BookingDetails(c *gin.Context) {
	b, err := h.Store.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Booking not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to get booking", err.Error())
		return
	}
	c.JSON(http.StatusOK, b)
}

// @Summary Booking assignment history
// @Tags bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} map[string]any
// @Router /api/bookings/{id}/audit [get]
func (h *Handler) BookingAudit(c *gin.Context) {
	items, err := h.Store.ListAudit(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list audit entries", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary List employees
// @Tags employees
// @Produce json
// @Param active query bool false "Only active employees"
// @Param available query bool false "Only available employees"
// @Param expertise query string false "Expertise area"
// @Success 200 {object} map[string]any
// @Router /api/employees [get]
func (h *Handler) EmployeesList(c *gin.Context) {
	filter := models.EmployeeFilter{Expertise: strings.TrimSpace(c.Query("expertise"))}
	filter.ActiveOnly, _ = strconv.ParseBool(c.DefaultQuery("active", "false"))
	filter.AvailableOnly, _ = strconv.ParseBool(c.DefaultQuery("available", "false"))

	items, err := h.Store.ListEmployees(c.Request.Context(), filter)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list employees", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
