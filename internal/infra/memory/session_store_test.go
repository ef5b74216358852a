package memory

import (
	"errors"
	"testing"

	"quiz-session-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	session, err := store.Create("quiz-1", "conn-m")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if session.Status != domain.StatusWaiting {
		t.Fatalf("expected waiting, got %s", session.Status)
	}

	if _, err := store.Create("quiz-1", "conn-m2"); !errors.Is(err, domain.ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}

	if err := store.Transition("quiz-1", domain.StatusStarted); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := store.Transition("quiz-1", domain.StatusEnded); err != nil {
		t.Fatalf("end: %v", err)
	}

	// an ended session may be replaced by a fresh run of the same quiz
	if _, err := store.Create("quiz-1", "conn-m3"); err != nil {
		t.Fatalf("re-create after end: %v", err)
	}
}

func TestSessionStoreRejectsBackwardTransition(t *testing.T) {
	store := NewSessionStore()
	if _, err := store.Create("quiz-1", "conn-m"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Transition("quiz-1", domain.StatusEnded); err != nil {
		t.Fatalf("waiting -> ended should skip started: %v", err)
	}
	if err := store.Transition("quiz-1", domain.StatusStarted); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	// repeating the current status is a no-op, not an error
	if err := store.Transition("quiz-1", domain.StatusEnded); err != nil {
		t.Fatalf("idempotent end: %v", err)
	}
}

func TestSessionStoreTransitionUnknownQuiz(t *testing.T) {
	store := NewSessionStore()
	if err := store.Transition("missing", domain.StatusStarted); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
