package app

import (
	"context"
	"time"

	"quiz-session-service/internal/domain"
)

// SessionStore abstracts how live session records are kept (in-memory, Redis-mirrored).
type SessionStore interface {
	// Create installs a waiting session. It fails with domain.ErrSessionExists
	// when a non-ended session is already present; a prior ended session is replaced.
	Create(quizID, ownerID string) (domain.Session, error)
	Get(quizID string) (domain.Session, bool)
	// Transition enforces the monotonic ordering waiting -> started -> ended.
	// Transitioning to the current status is a no-op.
	Transition(quizID string, status domain.SessionStatus) error
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizTimeStore persists the live-run timestamps a restart must survive.
type QuizTimeStore interface {
	SetStartedAt(ctx context.Context, quizID string, t time.Time) error
	SetEndedAt(ctx context.Context, quizID string, t time.Time) error
	// ListOpen returns quizzes with a recorded start time and no end time.
	ListOpen(ctx context.Context) ([]domain.Quiz, error)
}

// AnswerStore persists submissions with replace semantics per
// (user, quiz, question).
type AnswerStore interface {
	// Replace atomically deletes prior rows for the tuple and inserts one row
	// per selection, returning the inserted rows.
	Replace(ctx context.Context, quizID, userID, questionID string, selections []string) ([]domain.Answer, error)
	HasAnswers(ctx context.Context, quizID, userID string) (bool, error)
	ListByQuiz(ctx context.Context, quizID string) ([]domain.Answer, error)
	ListByUser(ctx context.Context, quizID, userID string) ([]domain.Answer, error)
}

// Rooms is the transport-side membership table: which connections are in which
// quiz room, and how to push events to them. Implemented by the websocket hub.
type Rooms interface {
	Join(quizID, connID string, user domain.RoomUser)
	// Leave removes the connection from every room and returns the quiz IDs it left.
	Leave(connID string) []string
	Users(quizID string) []domain.RoomUser
	Broadcast(quizID, event string, payload any)
	BroadcastExcept(quizID, exceptConnID, event string, payload any)
	BroadcastRole(quizID string, role domain.Role, event string, payload any)
	Send(connID, event string, payload any)
}
