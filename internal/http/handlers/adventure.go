package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sproutspeech/adventure-backend/internal/http/response"
	"github.com/sproutspeech/adventure-backend/internal/platform/apierr"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
	"github.com/sproutspeech/adventure-backend/internal/services"
)

type AdventureHandler struct {
	log     *logger.Logger
	content services.ContentService
}

func NewAdventureHandler(baseLog *logger.Logger, content services.ContentService) *AdventureHandler {
	return &AdventureHandler{
		log:     baseLog.With("handler", "AdventureHandler"),
		content: content,
	}
}

func (h *AdventureHandler) ListAdventures(c *gin.Context) {
	activityType := c.Query("activity_type")
	if activityType == "" {
		response.RespondAPIError(c, apierr.BadRequest("missing_activity_type", fmt.Errorf("activity_type query parameter is required")))
		return
	}
	adventures, err := h.content.ListAdventures(c.Request.Context(), activityType)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"adventures": adventures})
}

func (h *AdventureHandler) GetAdventure(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_adventure_id", err))
		return
	}
	adventure, err := h.content.GetAdventure(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if adventure == nil {
		response.RespondAPIError(c, apierr.NotFound("adventure_not_found", fmt.Errorf("adventure %s not found", id)))
		return
	}
	response.RespondOK(c, adventure)
}
