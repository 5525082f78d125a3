package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/services"
)

type EmbedHandler struct {
	embed *services.EmbedService
	log   *logger.Logger
}

func NewEmbedHandler(embed *services.EmbedService, log *logger.Logger) *EmbedHandler {
	return &EmbedHandler{embed: embed, log: log.With("handler", "EmbedHandler")}
}

func (h *EmbedHandler) CreateToken(c *gin.Context) {
	var req struct {
		DashboardID string `json:"dashboard_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	token, err := h.embed.Generate(req.DashboardID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "token_error", err)
		return
	}
	RespondOK(c, token)
}
