package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/services"
)

type ReportHandler struct {
	reports *services.ReportService
	log     *logger.Logger
}

func NewReportHandler(reports *services.ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, log: log.With("handler", "ReportHandler")}
}

func (h *ReportHandler) MatchSummary(c *gin.Context) {
	rows, err := h.reports.MatchSummary(c.Request.Context(), c.Param("taskID"))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "report_error", err)
		return
	}
	RespondOK(c, gin.H{"players": rows})
}

func (h *ReportHandler) PlayerDaySummary(c *gin.Context) {
	rows, err := h.reports.PlayerDaySummary(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "report_error", err)
		return
	}
	RespondOK(c, gin.H{"days": rows})
}

func (h *ReportHandler) ServeTimeTrend(c *gin.Context) {
	rows, err := h.reports.ServeTimeTrend(c.Request.Context(), c.Param("taskID"))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "report_error", err)
		return
	}
	RespondOK(c, gin.H{"trend": rows})
}

func (h *ReportHandler) ServeLocDistribution(c *gin.Context) {
	rows, err := h.reports.ServeLocDistribution(c.Request.Context(), c.Param("taskID"))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "report_error", err)
		return
	}
	RespondOK(c, gin.H{"locations": rows})
}
