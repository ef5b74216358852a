package app

import (
	"context"
	"fmt"

	"quiz-session-service/internal/domain"
)

// Admission is the gatekeeper's verdict for a join request.
type Admission int

const (
	// AdmitJoin lets the participant into the live question flow.
	AdmitJoin Admission = iota
	// AdmitResultsOnly routes a returning participant of an ended quiz to
	// their results instead of the question flow.
	AdmitResultsOnly
)

// Gatekeeper decides whether a participant may enter a quiz room.
type Gatekeeper struct {
	sessions SessionStore
	answers  AnswerStore
}

func NewGatekeeper(sessions SessionStore, answers AnswerStore) *Gatekeeper {
	return &Gatekeeper{sessions: sessions, answers: answers}
}

// Admit applies the admission rules. Mentors always enter. Students need a
// live session; once the quiz has ended only prior participants get in, and
// only to view results. A storage failure during the participation check is
// surfaced as its own error, never read as "did not participate".
func (g *Gatekeeper) Admit(ctx context.Context, quizID, userID string, role domain.Role) (Admission, error) {
	if role == domain.RoleMentor {
		return AdmitJoin, nil
	}

	session, ok := g.sessions.Get(quizID)
	if !ok {
		return 0, domain.ErrNotLive
	}
	switch session.Status {
	case domain.StatusWaiting, domain.StatusStarted:
		return AdmitJoin, nil
	case domain.StatusEnded:
		participated, err := g.answers.HasAnswers(ctx, quizID, userID)
		if err != nil {
			return 0, fmt.Errorf("check prior participation: %w", err)
		}
		if participated {
			return AdmitResultsOnly, nil
		}
		return 0, domain.ErrParticipationDenied
	default:
		return 0, domain.ErrSessionNotFound
	}
}
