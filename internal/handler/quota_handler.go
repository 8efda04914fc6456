package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/reviewloop/review-service/internal/dto"
	"github.com/reviewloop/review-service/internal/service"
)

// QuotaHandler exposes quota usage and operational overrides
type QuotaHandler struct {
	quota service.QuotaChecker
	gate  service.CooldownGate
}

// NewQuotaHandler creates a new quota handler
func NewQuotaHandler(quota service.QuotaChecker, gate service.CooldownGate) *QuotaHandler {
	return &QuotaHandler{
		quota: quota,
		gate:  gate,
	}
}

// Stats returns the live quota counters
// @Summary Quota stats
// @Tags quota
// @Security BearerAuth
// @Produce json
// @Success 200 {object} quota.Stats
// @Failure 401 {object} dto.ErrorResponse
// @Router /quota/stats [get]
func (h *QuotaHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.quota.Stats())
}

// Report aggregates persisted usage over a date range
// @Summary Quota usage report
// @Tags quota
// @Security BearerAuth
// @Produce json
// @Param start query string true "Start date (YYYY-MM-DD)"
// @Param end query string true "End date (YYYY-MM-DD)"
// @Success 200 {object} quota.Report
// @Failure 400 {object} dto.ErrorResponse
// @Router /quota/report [get]
func (h *QuotaHandler) Report(c *gin.Context) {
	var query dto.QuotaReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	start, err := time.ParseInLocation("2006-01-02", query.StartDate, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "start must be a YYYY-MM-DD date",
		})
		return
	}
	end, err := time.ParseInLocation("2006-01-02", query.EndDate, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "end must be a YYYY-MM-DD date",
		})
		return
	}

	report, err := h.quota.UsageReport(start, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// ClearCooldowns removes every active cooldown
// @Summary Clear all cooldowns
// @Description Operational override for support staff after an upstream incident
// @Tags quota
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.ClearCooldownsResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/quota/clear-cooldowns [post]
func (h *QuotaHandler) ClearCooldowns(c *gin.Context) {
	cleared, err := h.gate.ClearAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ClearCooldownsResponse{
		Cleared: cleared,
	})
}
