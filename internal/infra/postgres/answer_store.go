package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-session-service/internal/domain"
)

// AnswerStore persists submissions. Replace writes run delete-then-insert
// inside one transaction so a crash mid-write never leaves conflicting rows
// for the same question.
type AnswerStore struct {
	pool *pgxpool.Pool
}

func NewAnswerStore(pool *pgxpool.Pool) *AnswerStore {
	return &AnswerStore{pool: pool}
}

func (s *AnswerStore) Replace(ctx context.Context, quizID, userID, questionID string, selections []string) ([]domain.Answer, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM answers WHERE username = $1 AND quiz_id = $2 AND question_id = $3`,
		userID, quizID, questionID); err != nil {
		return nil, fmt.Errorf("delete prior answers: %w", err)
	}

	inserted := make([]domain.Answer, 0, len(selections))
	for _, sel := range selections {
		var row domain.Answer
		err := tx.QueryRow(ctx, `
			INSERT INTO answers (username, quiz_id, question_id, selected_option)
			VALUES ($1, $2, $3, $4)
			RETURNING id, username, quiz_id, question_id, selected_option, submitted_at`,
			userID, quizID, questionID, sel,
		).Scan(&row.ID, &row.UserID, &row.QuizID, &row.QuestionID, &row.SelectedOption, &row.SubmittedAt)
		if err != nil {
			return nil, fmt.Errorf("insert answer: %w", err)
		}
		inserted = append(inserted, row)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit replace: %w", err)
	}
	return inserted, nil
}

func (s *AnswerStore) HasAnswers(ctx context.Context, quizID, userID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM answers WHERE quiz_id = $1 AND username = $2)`,
		quizID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check answers: %w", err)
	}
	return exists, nil
}

func (s *AnswerStore) ListByQuiz(ctx context.Context, quizID string) ([]domain.Answer, error) {
	return s.list(ctx,
		`SELECT id, username, quiz_id, question_id, selected_option, submitted_at
		 FROM answers WHERE quiz_id = $1 ORDER BY submitted_at`, quizID)
}

func (s *AnswerStore) ListByUser(ctx context.Context, quizID, userID string) ([]domain.Answer, error) {
	return s.list(ctx,
		`SELECT id, username, quiz_id, question_id, selected_option, submitted_at
		 FROM answers WHERE quiz_id = $1 AND username = $2 ORDER BY submitted_at`, quizID, userID)
}

func (s *AnswerStore) list(ctx context.Context, query string, args ...interface{}) ([]domain.Answer, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var out []domain.Answer
	for rows.Next() {
		var row domain.Answer
		if err := rows.Scan(&row.ID, &row.UserID, &row.QuizID, &row.QuestionID, &row.SelectedOption, &row.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
