package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sproutspeech/adventure-backend/internal/data/repos"
	types "github.com/sproutspeech/adventure-backend/internal/domain"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
)

// ProgressRecorder persists session activity without ever blocking or failing
// the session flow. Every method is fire-and-forget; a write error is logged
// and the session carries on.
type ProgressRecorder interface {
	SessionStarted(rec *types.SessionRecord)
	QuestionAnswered(sessionID, childID uuid.UUID, q *types.Question, questionIndex int, wasCorrect bool, attemptsUsed int)
	SessionCompleted(sessionID, childID uuid.UUID, adventureID *uuid.UUID, questionCount, correctCount int)
}

type progressRecorder struct {
	log      *logger.Logger
	sessions repos.SessionRecordRepo
	attempts repos.QuestionAttemptRepo
	lessons  repos.LessonProgressRepo
	timeout  time.Duration
}

func NewProgressRecorder(
	baseLog *logger.Logger,
	sessions repos.SessionRecordRepo,
	attempts repos.QuestionAttemptRepo,
	lessons repos.LessonProgressRepo,
) ProgressRecorder {
	return &progressRecorder{
		log:      baseLog.With("service", "ProgressRecorder"),
		sessions: sessions,
		attempts: attempts,
		lessons:  lessons,
		timeout:  5 * time.Second,
	}
}

func (p *progressRecorder) SessionStarted(rec *types.SessionRecord) {
	record := *rec
	go p.withTimeout(func(ctx context.Context) {
		if err := p.sessions.Upsert(ctx, nil, &record); err != nil {
			p.log.Warn("failed to persist session start", "session_id", record.ID, "error", err)
		}
		if record.AdventureID != nil {
			if err := p.lessons.UpsertStarted(ctx, nil, record.ChildID, *record.AdventureID, record.StartedAt); err != nil {
				p.log.Warn("failed to upsert lesson progress", "child_id", record.ChildID, "error", err)
			}
		}
	})
}

func (p *progressRecorder) QuestionAnswered(sessionID, childID uuid.UUID, q *types.Question, questionIndex int, wasCorrect bool, attemptsUsed int) {
	attempt := &types.QuestionAttempt{
		SessionID:     sessionID,
		ChildID:       childID,
		QuestionID:    q.ID,
		QuestionIndex: questionIndex,
		AnswerKind:    string(q.Kind),
		WasCorrect:    wasCorrect,
		AttemptsUsed:  attemptsUsed,
	}
	go p.withTimeout(func(ctx context.Context) {
		if err := p.attempts.Create(ctx, nil, attempt); err != nil {
			p.log.Warn("failed to persist question attempt", "session_id", sessionID, "question_id", q.ID, "error", err)
		}
	})
}

func (p *progressRecorder) SessionCompleted(sessionID, childID uuid.UUID, adventureID *uuid.UUID, questionCount, correctCount int) {
	now := time.Now().UTC()
	go p.withTimeout(func(ctx context.Context) {
		err := p.sessions.UpdateFields(ctx, nil, sessionID, map[string]any{
			"question_count": questionCount,
			"correct_count":  correctCount,
			"completed_at":   now,
			"updated_at":     now,
		})
		if err != nil {
			p.log.Warn("failed to persist session completion", "session_id", sessionID, "error", err)
		}
		if adventureID != nil {
			if err := p.lessons.MarkComplete(ctx, nil, childID, *adventureID, now); err != nil {
				p.log.Warn("failed to mark lesson complete", "child_id", childID, "error", err)
			}
		}
	})
}

func (p *progressRecorder) withTimeout(fn func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	fn(ctx)
}
