package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/householdpro/backend/internal/models"
	"github.com/householdpro/backend/internal/service"
)

// @Summary Process pending bookings
// @Description Assigns every pending, unassigned booking in schedule order
// @Tags process
// @Produce json
// @Param preset query string false "Preset name"
// @Param limit query int false "Maximum bookings to process"
// @Param debug query bool false "Include failure samples"
// @Success 200 {object} service.RunSummary
// @Router /api/process [post]
func (h *Handler) Process(c *gin.Context) {
	cfg, ok := h.presetConfig(c, c.Query("preset"))
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	debug := c.Query("debug")

	summary, err := h.Batch.ProcessPending(c.Request.Context(), service.BatchOptions{
		Config: &cfg,
		Limit:  limit,
		Actor:  actorOf(c, ""),
		Debug:  debug == "1" || strings.EqualFold(debug, "true"),
	})
	if err != nil {
		h.Logger.Error().Err(err).Str("run_id", summary.RunID).Msg("processing failed")
		writeError(c, http.StatusInternalServerError, "PROCESSING_ERROR", "Processing failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary Latest run
// @Tags runs
// @Produce json
// @Success 200 {object} models.Run
// @Router /api/runs/latest [get]
func (h *Handler) RunsLatest(c *gin.Context) {
	result, err := h.Store.GetLatestRun(c.Request.Context())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "No runs found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load run", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}
