package app

import (
	"context"
	"fmt"
	"strings"

	"quiz-session-service/internal/domain"
)

// Recorder persists submissions. Replace semantics make a client retry of the
// same submission safe.
type Recorder struct {
	answers AnswerStore
}

func NewRecorder(answers AnswerStore) *Recorder {
	return &Recorder{answers: answers}
}

// Record normalizes the selections and replaces any prior rows for the same
// (user, quiz, question) in one atomic write. An empty submission is a silent
// no-op so a transient blank send from the client is not an error.
func (r *Recorder) Record(ctx context.Context, quizID, userID, questionID string, selections []string) ([]domain.Answer, error) {
	cleaned := selections[:0:0]
	for _, s := range selections {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return nil, nil
	}

	rows, err := r.answers.Replace(ctx, quizID, userID, questionID, cleaned)
	if err != nil {
		return nil, fmt.Errorf("save answer: %w", err)
	}
	return rows, nil
}
