package handlers

import (
	"encoding/base64"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sproutspeech/adventure-backend/internal/http/response"
	"github.com/sproutspeech/adventure-backend/internal/observability"
	"github.com/sproutspeech/adventure-backend/internal/platform/apierr"
	"github.com/sproutspeech/adventure-backend/internal/platform/ctxutil"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
	"github.com/sproutspeech/adventure-backend/internal/services"
)

type SessionHandler struct {
	log      *logger.Logger
	sessions *services.SessionManager
	metrics  *observability.Metrics
}

func NewSessionHandler(baseLog *logger.Logger, sessions *services.SessionManager, metrics *observability.Metrics) *SessionHandler {
	return &SessionHandler{
		log:      baseLog.With("handler", "SessionHandler"),
		sessions: sessions,
		metrics:  metrics,
	}
}

func childIDFrom(c *gin.Context) (uuid.UUID, error) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.ChildID == uuid.Nil {
		return uuid.Nil, apierr.BadRequest("missing_child_id", fmt.Errorf("X-Child-ID header is required"))
	}
	return rd.ChildID, nil
}

func (h *SessionHandler) GetState(c *gin.Context) {
	childID, err := childIDFrom(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, h.sessions.Engine(childID).Snapshot())
}

func (h *SessionHandler) Start(c *gin.Context) {
	childID, err := childIDFrom(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	engine := h.sessions.Engine(childID)
	if err := engine.Start(c.Request.Context()); err != nil {
		response.RespondAPIError(c, apierr.Conflict("invalid_transition", err))
		return
	}
	response.RespondOK(c, engine.Snapshot())
}

type selectRequest struct {
	AdventureID  *uuid.UUID `json:"adventure_id"`
	ActivityType string     `json:"activity_type"`
}

func (h *SessionHandler) Select(c *gin.Context) {
	childID, err := childIDFrom(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_body", err))
		return
	}
	engine := h.sessions.Engine(childID)
	if err := engine.SelectAdventure(c.Request.Context(), req.AdventureID, req.ActivityType); err != nil {
		response.RespondAPIError(c, apierr.Conflict("session_not_started", err))
		return
	}
	h.metrics.SessionStarted()
	response.RespondOK(c, engine.Snapshot())
}

type answerRequest struct {
	Index    *int   `json:"index"`
	Text     string `json:"text"`
	AudioB64 string `json:"audio_b64"`
	MimeType string `json:"mime_type"`
}

func (h *SessionHandler) Answer(c *gin.Context) {
	childID, err := childIDFrom(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_body", err))
		return
	}

	sub := services.AnswerSubmission{
		Index:    req.Index,
		Text:     req.Text,
		MimeType: req.MimeType,
	}
	if req.AudioB64 != "" {
		audio, err := base64.StdEncoding.DecodeString(req.AudioB64)
		if err != nil {
			response.RespondAPIError(c, apierr.BadRequest("invalid_audio", err))
			return
		}
		sub.Audio = audio
	}

	engine := h.sessions.Engine(childID)
	if err := engine.SubmitAnswer(sub); err != nil {
		response.RespondAPIError(c, apierr.Conflict("answer_rejected", err))
		return
	}
	response.RespondOK(c, engine.Snapshot())
}

type ackRequest struct {
	PlaybackID uuid.UUID `json:"playback_id"`
}

func (h *SessionHandler) AckNarration(c *gin.Context) {
	childID, err := childIDFrom(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	var req ackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_body", err))
		return
	}
	h.sessions.Engine(childID).AckNarration(req.PlaybackID)
	response.RespondOK(c, gin.H{"acked": true})
}

type mediaRequest struct {
	Event string `json:"event"`
}

func (h *SessionHandler) Media(c *gin.Context) {
	childID, err := childIDFrom(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	var req mediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_body", err))
		return
	}
	sig := services.MediaSignal(req.Event)
	if sig != services.MediaVideoEnded && sig != services.MediaVideoError {
		response.RespondAPIError(c, apierr.BadRequest("invalid_media_event", fmt.Errorf("unknown media event %q", req.Event)))
		return
	}
	if err := h.sessions.Engine(childID).MediaEvent(sig); err != nil {
		response.RespondAPIError(c, apierr.Conflict("media_rejected", err))
		return
	}
	response.RespondOK(c, gin.H{"accepted": true})
}

func (h *SessionHandler) Advance(c *gin.Context) {
	childID, err := childIDFrom(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	engine := h.sessions.Engine(childID)
	if err := engine.Advance(); err != nil {
		response.RespondAPIError(c, apierr.Conflict("advance_rejected", err))
		return
	}
	response.RespondOK(c, engine.Snapshot())
}

func (h *SessionHandler) Skip(c *gin.Context) {
	childID, err := childIDFrom(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	engine := h.sessions.Engine(childID)
	if err := engine.Skip(); err != nil {
		response.RespondAPIError(c, apierr.Conflict("skip_rejected", err))
		return
	}
	response.RespondOK(c, engine.Snapshot())
}

func (h *SessionHandler) Reset(c *gin.Context) {
	childID, err := childIDFrom(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	engine := h.sessions.Engine(childID)
	engine.Reset()
	h.metrics.SessionReset()
	response.RespondOK(c, engine.Snapshot())
}
