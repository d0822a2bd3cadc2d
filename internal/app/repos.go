package app

import (
	"gorm.io/gorm"

	"github.com/sproutspeech/adventure-backend/internal/data/repos"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
)

type Repos struct {
	Child           repos.ChildProfileRepo
	Adventure       repos.AdventureRepo
	Question        repos.QuestionRepo
	LessonProgress  repos.LessonProgressRepo
	SessionRecord   repos.SessionRecordRepo
	QuestionAttempt repos.QuestionAttemptRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("wiring repos")
	return Repos{
		Child:           repos.NewChildProfileRepo(db, log),
		Adventure:       repos.NewAdventureRepo(db, log),
		Question:        repos.NewQuestionRepo(db, log),
		LessonProgress:  repos.NewLessonProgressRepo(db, log),
		SessionRecord:   repos.NewSessionRecordRepo(db, log),
		QuestionAttempt: repos.NewQuestionAttemptRepo(db, log),
	}
}
