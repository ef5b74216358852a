package app

import (
	"context"
	"fmt"
	"sort"

	"quiz-session-service/internal/domain"
)

// ProgressAggregator computes per-participant completion state and rebuilds it
// from storage for reconnecting clients.
type ProgressAggregator struct {
	quizzes QuizRepository
	answers AnswerStore
}

func NewProgressAggregator(quizzes QuizRepository, answers AnswerStore) *ProgressAggregator {
	return &ProgressAggregator{quizzes: quizzes, answers: answers}
}

// Compute derives the progress record broadcast to mentors on each submission.
func (p *ProgressAggregator) Compute(quizID, userID string, questionIndex, totalQuestions int) domain.Progress {
	status := domain.ProgressInProgress
	if totalQuestions > 0 && questionIndex == totalQuestions {
		status = domain.ProgressCompleted
	}
	return domain.Progress{
		QuizID:         quizID,
		UserID:         userID,
		QuestionIndex:  questionIndex,
		TotalQuestions: totalQuestions,
		Status:         status,
	}
}

// FullSnapshot rebuilds every participant's latest progress from persisted
// answers, for mentor reconnect hydration. Question position comes from the
// quiz's stable ordering (questions sorted by ID), not insertion order, and
// per participant the most recently submitted answer wins.
func (p *ProgressAggregator) FullSnapshot(ctx context.Context, quizID string) ([]domain.Progress, error) {
	quiz, err := p.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz for snapshot: %w", err)
	}
	order := questionOrder(quiz)

	answers, err := p.answers.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("list answers for snapshot: %w", err)
	}

	latest := make(map[string]domain.Answer)
	for _, a := range answers {
		prev, ok := latest[a.UserID]
		if !ok || a.SubmittedAt.After(prev.SubmittedAt) {
			latest[a.UserID] = a
		}
	}

	snapshot := make([]domain.Progress, 0, len(latest))
	for userID, a := range latest {
		idx, ok := order[a.QuestionID]
		if !ok {
			continue
		}
		snapshot = append(snapshot, p.Compute(quizID, userID, idx+1, len(quiz.Questions)))
	}
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].UserID < snapshot[j].UserID })
	return snapshot, nil
}

// StudentSnapshot returns a participant's own answer history so a reconnecting
// student resumes at their prior question rather than question one.
func (p *ProgressAggregator) StudentSnapshot(ctx context.Context, quizID, userID string) ([]domain.Answer, error) {
	answers, err := p.answers.ListByUser(ctx, quizID, userID)
	if err != nil {
		return nil, fmt.Errorf("list answers for user: %w", err)
	}
	return answers, nil
}

// questionOrder maps question ID to its stable index (questions sorted by ID).
func questionOrder(quiz domain.Quiz) map[string]int {
	ids := make([]string, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		ids = append(ids, q.ID)
	}
	sort.Strings(ids)
	order := make(map[string]int, len(ids))
	for i, id := range ids {
		order[id] = i
	}
	return order
}
