package memory

import (
	"context"
	"sync"
	"time"

	"quiz-session-service/internal/domain"
)

// QuizTimeStore records start/end timestamps in memory. The start/end write
// path of the timer registry goes through this in tests; production uses the
// Postgres store.
type QuizTimeStore struct {
	mu      sync.Mutex
	quizzes map[string]domain.Quiz
}

func NewQuizTimeStore() *QuizTimeStore {
	return &QuizTimeStore{quizzes: make(map[string]domain.Quiz)}
}

// Seed installs quiz rows (ID, duration, timestamps) for restorer tests.
func (s *QuizTimeStore) Seed(quizzes ...domain.Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range quizzes {
		s.quizzes[q.ID] = q
	}
}

func (s *QuizTimeStore) SetStartedAt(_ context.Context, quizID string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.quizzes[quizID]
	q.ID = quizID
	q.StartedAt = &t
	s.quizzes[quizID] = q
	return nil
}

func (s *QuizTimeStore) SetEndedAt(_ context.Context, quizID string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.quizzes[quizID]
	q.ID = quizID
	// first writer wins; a duplicate end never regresses the record
	if q.EndedAt == nil {
		q.EndedAt = &t
	}
	s.quizzes[quizID] = q
	return nil
}

func (s *QuizTimeStore) ListOpen(_ context.Context) ([]domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Quiz
	for _, q := range s.quizzes {
		if q.StartedAt != nil && q.EndedAt == nil {
			out = append(out, q)
		}
	}
	return out, nil
}

// Get returns the stored row; test helper.
func (s *QuizTimeStore) Get(quizID string) (domain.Quiz, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[quizID]
	return q, ok
}
