package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sproutspeech/adventure-backend/internal/data/repos"
	"github.com/sproutspeech/adventure-backend/internal/http/response"
	"github.com/sproutspeech/adventure-backend/internal/platform/apierr"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
)

type ProgressHandler struct {
	log      *logger.Logger
	lessons  repos.LessonProgressRepo
	sessions repos.SessionRecordRepo
	attempts repos.QuestionAttemptRepo
}

func NewProgressHandler(baseLog *logger.Logger, lessons repos.LessonProgressRepo, sessions repos.SessionRecordRepo, attempts repos.QuestionAttemptRepo) *ProgressHandler {
	return &ProgressHandler{
		log:      baseLog.With("handler", "ProgressHandler"),
		lessons:  lessons,
		sessions: sessions,
		attempts: attempts,
	}
}

func (h *ProgressHandler) ListChildProgress(c *gin.Context) {
	childID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_child_id", err))
		return
	}
	progress, err := h.lessons.ListByChildID(c.Request.Context(), nil, childID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": progress})
}

// GetSessionRecord returns one past session with its per-question attempts.
func (h *ProgressHandler) GetSessionRecord(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_session_id", err))
		return
	}
	record, err := h.sessions.GetByID(c.Request.Context(), nil, sessionID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if record == nil {
		response.RespondAPIError(c, apierr.NotFound("session_not_found", fmt.Errorf("session %s not found", sessionID)))
		return
	}
	attempts, err := h.attempts.ListBySessionID(c.Request.Context(), nil, sessionID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session": record, "attempts": attempts})
}
