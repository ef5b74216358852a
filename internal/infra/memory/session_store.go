package memory

import (
	"sync"

	"quiz-session-service/internal/domain"
)

// SessionStore is the in-memory implementation of app.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]domain.Session)}
}

func (s *SessionStore) Create(quizID, ownerID string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[quizID]; ok && existing.Status != domain.StatusEnded {
		return domain.Session{}, domain.ErrSessionExists
	}
	session := domain.Session{QuizID: quizID, Status: domain.StatusWaiting, OwnerID: ownerID}
	s.sessions[quizID] = session
	return session, nil
}

func (s *SessionStore) Get(quizID string) (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[quizID]
	return session, ok
}

func (s *SessionStore) Transition(quizID string, status domain.SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[quizID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if session.Status == status {
		return nil // idempotent
	}
	if !session.Status.CanTransitionTo(status) {
		return domain.ErrInvalidTransition
	}
	session.Status = status
	s.sessions[quizID] = session
	return nil
}
