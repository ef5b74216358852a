package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-session-service/internal/domain"
)

// QuizLoader reads quiz content (questions and options) from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT q.id, q.title, q.description, q.duration,
		       qs.id, qs.text, qs.type,
		       o.id, o.text, o.is_correct
		FROM quizzes q
		LEFT JOIN questions qs ON qs.quiz_id = q.id
		LEFT JOIN options o ON o.question_id = qs.id
		WHERE q.id = $1
		ORDER BY qs.id, o.id`, quizID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	defer rows.Close()

	var quiz domain.Quiz
	found := false
	questions := make(map[string]int) // question ID -> index in quiz.Questions
	for rows.Next() {
		var (
			title, description         string
			duration                   int
			questionID, qText, qType   *string
			optionID, oText            *string
			isCorrect                  *bool
		)
		if err := rows.Scan(&quiz.ID, &title, &description, &duration,
			&questionID, &qText, &qType, &optionID, &oText, &isCorrect); err != nil {
			return domain.Quiz{}, fmt.Errorf("scan quiz row: %w", err)
		}
		if !found {
			quiz.Title = title
			quiz.Description = description
			quiz.Duration = duration
			found = true
		}
		if questionID == nil {
			continue
		}
		idx, ok := questions[*questionID]
		if !ok {
			idx = len(quiz.Questions)
			questions[*questionID] = idx
			question := domain.Question{ID: *questionID}
			if qText != nil {
				question.Text = *qText
			}
			if qType != nil {
				question.Type = *qType
			}
			quiz.Questions = append(quiz.Questions, question)
		}
		if optionID != nil {
			option := domain.Option{ID: *optionID}
			if oText != nil {
				option.Text = *oText
			}
			if isCorrect != nil {
				option.IsCorrect = *isCorrect
			}
			quiz.Questions[idx].Options = append(quiz.Questions[idx].Options, option)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("iterate quiz rows: %w", err)
	}
	if !found {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}
