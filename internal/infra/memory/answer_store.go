package memory

import (
	"context"
	"sync"
	"time"

	"quiz-session-service/internal/domain"
)

// AnswerStore keeps answers in memory with the same replace semantics as the
// Postgres recorder; used in unit tests and database-less demo runs.
type AnswerStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []domain.Answer
	clock  func() time.Time
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{nextID: 1, clock: time.Now}
}

// NewAnswerStoreWithClock is test-only for deterministic submission times.
func NewAnswerStoreWithClock(clock func() time.Time) *AnswerStore {
	return &AnswerStore{nextID: 1, clock: clock}
}

func (s *AnswerStore) Replace(_ context.Context, quizID, userID, questionID string, selections []string) ([]domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.rows[:0]
	for _, row := range s.rows {
		if row.QuizID == quizID && row.UserID == userID && row.QuestionID == questionID {
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept

	now := s.clock()
	inserted := make([]domain.Answer, 0, len(selections))
	for _, sel := range selections {
		row := domain.Answer{
			ID:             s.nextID,
			UserID:         userID,
			QuizID:         quizID,
			QuestionID:     questionID,
			SelectedOption: sel,
			SubmittedAt:    now,
		}
		s.nextID++
		s.rows = append(s.rows, row)
		inserted = append(inserted, row)
	}
	return inserted, nil
}

func (s *AnswerStore) HasAnswers(_ context.Context, quizID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.QuizID == quizID && row.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *AnswerStore) ListByQuiz(_ context.Context, quizID string) ([]domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Answer
	for _, row := range s.rows {
		if row.QuizID == quizID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *AnswerStore) ListByUser(_ context.Context, quizID, userID string) ([]domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Answer
	for _, row := range s.rows {
		if row.QuizID == quizID && row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}
