package services

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
)

// SessionManager hands out one Engine per child and keeps it for the life of
// the process. Engines are created lazily on first touch.
type SessionManager struct {
	log  *logger.Logger
	deps EngineDeps

	mu      sync.Mutex
	engines map[uuid.UUID]*Engine
}

func NewSessionManager(baseLog *logger.Logger, deps EngineDeps) *SessionManager {
	return &SessionManager{
		log:     baseLog.With("service", "SessionManager"),
		deps:    deps,
		engines: make(map[uuid.UUID]*Engine),
	}
}

func (m *SessionManager) Engine(childID uuid.UUID) *Engine {
	m.mu.Lock()
	defer m.mu.Unlock()

	if engine, ok := m.engines[childID]; ok {
		return engine
	}
	engine := NewEngine(childID, m.deps)
	m.engines[childID] = engine
	m.log.Debug("created session engine", "child_id", childID)
	return engine
}

// Shutdown resets every live engine, cancelling in-flight sessions. Used on
// server drain so no goroutine is left blocked on a dead device.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	engines := make([]*Engine, 0, len(m.engines))
	for _, e := range m.engines {
		engines = append(engines, e)
	}
	m.mu.Unlock()

	for _, e := range engines {
		e.Reset()
	}
}
