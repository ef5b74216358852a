package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-session-service/internal/domain"
)

// QuizTimeStore persists the live-run timestamps on the quiz row. These two
// columns are everything the restorer needs after a crash.
type QuizTimeStore struct {
	pool *pgxpool.Pool
}

func NewQuizTimeStore(pool *pgxpool.Pool) *QuizTimeStore {
	return &QuizTimeStore{pool: pool}
}

func (s *QuizTimeStore) SetStartedAt(ctx context.Context, quizID string, t time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE quizzes SET started_at = $2, ended_at = NULL WHERE id = $1`, quizID, t)
	if err != nil {
		return fmt.Errorf("set started_at: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *QuizTimeStore) SetEndedAt(ctx context.Context, quizID string, t time.Time) error {
	// LEAST keeps the earliest end; a racing duplicate write never regresses it.
	tag, err := s.pool.Exec(ctx,
		`UPDATE quizzes SET ended_at = LEAST(COALESCE(ended_at, $2), $2) WHERE id = $1`, quizID, t)
	if err != nil {
		return fmt.Errorf("set ended_at: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *QuizTimeStore) ListOpen(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, duration, started_at FROM quizzes
		 WHERE started_at IS NOT NULL AND ended_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("list open quizzes: %w", err)
	}
	defer rows.Close()

	var out []domain.Quiz
	for rows.Next() {
		var q domain.Quiz
		var startedAt time.Time
		if err := rows.Scan(&q.ID, &q.Title, &q.Duration, &startedAt); err != nil {
			return nil, fmt.Errorf("scan open quiz: %w", err)
		}
		q.StartedAt = &startedAt
		out = append(out, q)
	}
	return out, rows.Err()
}
