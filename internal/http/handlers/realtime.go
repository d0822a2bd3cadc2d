package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/sproutspeech/adventure-backend/internal/http/response"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
	"github.com/sproutspeech/adventure-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewRealtimeHandler(baseLog *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		log: baseLog.With("handler", "RealtimeHandler"),
		hub: hub,
	}
}

// SessionEvents streams the child's session events until the device hangs up.
func (h *RealtimeHandler) SessionEvents(c *gin.Context) {
	childID, err := childIDFrom(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}

	client := h.hub.NewSSEClient(childID)
	h.hub.AddChannel(client, realtime.SessionChannel(childID))
	defer h.hub.CloseClient(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
