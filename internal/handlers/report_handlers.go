package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gaming_lounge_backend/internal/services"
)

type ReportHandler struct {
	reports services.ReportService
	loc     *time.Location
}

func NewReportHandler(r services.ReportService, loc *time.Location) *ReportHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ReportHandler{reports: r, loc: loc}
}

// GetDailyReport summarizes one day, today when no date is given.
func (h *ReportHandler) GetDailyReport(c *gin.Context) {
	day, ok := parseDateParam(c, "date", h.loc)
	if !ok {
		return
	}
	at := time.Now().In(h.loc)
	if day != nil {
		at = *day
	}
	report, err := h.reports.DailyReport(c.Request.Context(), at)
	if err != nil {
		respondServiceError(c, err, "GetDailyReport", "Failed to build daily report.")
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetDashboardSummary provides a summary of key metrics for the dashboard.
func (h *ReportHandler) GetDashboardSummary(c *gin.Context) {
	summary, err := h.reports.Dashboard(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "GetDashboardSummary", "Failed to build dashboard.")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ReportHandler) GetLowStockReport(c *gin.Context) {
	items, err := h.reports.LowStock(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "GetLowStockReport", "Failed to build low stock report.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "total": len(items)})
}

func (h *ReportHandler) GetActivityLog(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	logs, err := h.reports.RecentActivity(c.Request.Context(), limit)
	if err != nil {
		respondServiceError(c, err, "GetActivityLog", "Failed to fetch activity log.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs})
}
