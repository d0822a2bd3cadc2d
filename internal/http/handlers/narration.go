package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sproutspeech/adventure-backend/internal/http/response"
	"github.com/sproutspeech/adventure-backend/internal/observability"
	"github.com/sproutspeech/adventure-backend/internal/platform/apierr"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
	"github.com/sproutspeech/adventure-backend/internal/services"
)

type NarrationHandler struct {
	log     *logger.Logger
	synth   services.Synthesizer
	metrics *observability.Metrics
}

func NewNarrationHandler(baseLog *logger.Logger, synth services.Synthesizer, metrics *observability.Metrics) *NarrationHandler {
	return &NarrationHandler{
		log:     baseLog.With("handler", "NarrationHandler"),
		synth:   synth,
		metrics: metrics,
	}
}

// GetAudio serves the synthesized clip the NarrationStarted event named. A
// cache-expired clip is a 404; the device falls back to the silent timer.
func (h *NarrationHandler) GetAudio(c *gin.Context) {
	clipID := c.Param("id")
	if clipID == "" {
		response.RespondAPIError(c, apierr.BadRequest("missing_clip_id", fmt.Errorf("clip id is required")))
		return
	}
	clip, ok, err := h.synth.GetClip(c.Request.Context(), clipID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if !ok {
		h.metrics.NarrationMissed()
		response.RespondAPIError(c, apierr.NotFound("clip_not_found", fmt.Errorf("clip %s expired or never existed", clipID)))
		return
	}
	h.metrics.NarrationServed()
	c.Data(http.StatusOK, "audio/mpeg", clip)
}
