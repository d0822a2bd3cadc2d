package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sproutspeech/adventure-backend/internal/data/repos"
	types "github.com/sproutspeech/adventure-backend/internal/domain"
	"github.com/sproutspeech/adventure-backend/internal/http/response"
	"github.com/sproutspeech/adventure-backend/internal/platform/apierr"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
)

type ChildHandler struct {
	log      *logger.Logger
	children repos.ChildProfileRepo
	// speechDelayDefault seeds speech_delay_mode for profiles created without
	// an explicit value.
	speechDelayDefault bool
}

func NewChildHandler(baseLog *logger.Logger, children repos.ChildProfileRepo, speechDelayDefault bool) *ChildHandler {
	return &ChildHandler{
		log:                baseLog.With("handler", "ChildHandler"),
		children:           children,
		speechDelayDefault: speechDelayDefault,
	}
}

type createChildRequest struct {
	DisplayName        string  `json:"display_name" binding:"required"`
	SpeechDelayMode    *bool   `json:"speech_delay_mode"`
	NarrationEnabled   *bool   `json:"narration_enabled"`
	CelebrationEnabled *bool   `json:"celebration_enabled"`
	VoiceID            string  `json:"voice_id"`
	SpeechRate         float64 `json:"speech_rate"`
}

func (h *ChildHandler) CreateChild(c *gin.Context) {
	var req createChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_body", err))
		return
	}

	profile := &types.ChildProfile{
		ID:                 uuid.New(),
		DisplayName:        req.DisplayName,
		SpeechDelayMode:    h.speechDelayDefault,
		NarrationEnabled:   true,
		CelebrationEnabled: req.CelebrationEnabled,
		VoiceID:            req.VoiceID,
		SpeechRate:         req.SpeechRate,
	}
	if req.SpeechDelayMode != nil {
		profile.SpeechDelayMode = *req.SpeechDelayMode
	}
	if req.NarrationEnabled != nil {
		profile.NarrationEnabled = *req.NarrationEnabled
	}
	if profile.VoiceID == "" {
		profile.VoiceID = "en-US-Neural2-H"
	}
	if profile.SpeechRate <= 0 {
		profile.SpeechRate = 1.0
	}

	created, err := h.children.Create(c.Request.Context(), nil, profile)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, created)
}

func (h *ChildHandler) GetChild(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_child_id", err))
		return
	}
	profile, err := h.children.GetByID(c.Request.Context(), nil, id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if profile == nil {
		response.RespondAPIError(c, apierr.NotFound("child_not_found", fmt.Errorf("child %s not found", id)))
		return
	}
	response.RespondOK(c, profile)
}

type updateSettingsRequest struct {
	SpeechDelayMode    *bool    `json:"speech_delay_mode"`
	NarrationEnabled   *bool    `json:"narration_enabled"`
	CelebrationEnabled *bool    `json:"celebration_enabled"`
	VoiceID            *string  `json:"voice_id"`
	SpeechRate         *float64 `json:"speech_rate"`
}

func (h *ChildHandler) UpdateSettings(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_child_id", err))
		return
	}
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_body", err))
		return
	}

	updates := map[string]any{}
	if req.SpeechDelayMode != nil {
		updates["speech_delay_mode"] = *req.SpeechDelayMode
	}
	if req.NarrationEnabled != nil {
		updates["narration_enabled"] = *req.NarrationEnabled
	}
	if req.CelebrationEnabled != nil {
		updates["celebration_enabled"] = *req.CelebrationEnabled
	}
	if req.VoiceID != nil {
		updates["voice_id"] = *req.VoiceID
	}
	if req.SpeechRate != nil {
		updates["speech_rate"] = *req.SpeechRate
	}
	if len(updates) == 0 {
		response.RespondAPIError(c, apierr.BadRequest("empty_update", fmt.Errorf("no settings provided")))
		return
	}

	if err := h.children.UpdateFields(c.Request.Context(), nil, id, updates); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	profile, err := h.children.GetByID(c.Request.Context(), nil, id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, profile)
}
