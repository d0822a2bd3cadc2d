package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sproutspeech/adventure-backend/internal/http/response"
	"github.com/sproutspeech/adventure-backend/internal/observability"
)

type HealthHandler struct {
	metrics *observability.Metrics
}

func NewHealthHandler(metrics *observability.Metrics) *HealthHandler {
	return &HealthHandler{metrics: metrics}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *HealthHandler) Metrics(c *gin.Context) {
	response.RespondOK(c, h.metrics.Snapshot())
}
