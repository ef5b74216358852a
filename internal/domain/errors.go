package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no live session exists for a quiz.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionExists is returned when creating a session that is already live.
	ErrSessionExists = errors.New("quiz session already exists")
	// ErrInvalidTransition is returned on an out-of-order status change.
	ErrInvalidTransition = errors.New("invalid session status transition")
	// ErrNotLive denies a student joining a quiz that has no session yet.
	ErrNotLive = errors.New("quiz is not live yet")
	// ErrParticipationDenied denies a student joining an ended quiz they never answered.
	ErrParticipationDenied = errors.New("quiz has ended and you did not participate")
	// ErrQuizEnded rejects a submission arriving after the session ended.
	ErrQuizEnded = errors.New("quiz has already ended")
	// ErrForbidden rejects a privileged action from a non-mentor connection.
	ErrForbidden = errors.New("mentor role required")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
)
