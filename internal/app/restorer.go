package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"quiz-session-service/internal/domain"
)

// Restorer rehydrates in-memory sessions and timers from persisted start/end
// timestamps so a process restart does not strand an in-progress quiz.
type Restorer struct {
	clock    clockwork.Clock
	times    QuizTimeStore
	sessions SessionStore
	timers   *TimerRegistry
}

func NewRestorer(clock clockwork.Clock, times QuizTimeStore, sessions SessionStore, timers *TimerRegistry) *Restorer {
	return &Restorer{clock: clock, times: times, sessions: sessions, timers: timers}
}

// Restore scans storage for quizzes that were started but never ended. A quiz
// with time left gets its countdown reinstalled for the remainder; one whose
// time ran out while the process was down is ended immediately, end time
// persisted, without waiting for any client.
func (r *Restorer) Restore(ctx context.Context) error {
	open, err := r.times.ListOpen(ctx)
	if err != nil {
		return fmt.Errorf("list open quizzes: %w", err)
	}

	now := r.clock.Now()
	for _, quiz := range open {
		if quiz.StartedAt == nil {
			continue
		}
		if _, err := r.sessions.Create(quiz.ID, ""); err != nil {
			log.Warn().Err(err).Str("quiz_id", quiz.ID).Msg("restore: session create")
		}
		if err := r.sessions.Transition(quiz.ID, domain.StatusStarted); err != nil {
			log.Warn().Err(err).Str("quiz_id", quiz.ID).Msg("restore: session start")
		}

		duration := time.Duration(quiz.Duration) * time.Second
		remaining := quiz.StartedAt.Add(duration).Sub(now)
		if remaining > 0 {
			r.timers.Resume(quiz.ID, *quiz.StartedAt, duration)
			log.Info().Str("quiz_id", quiz.ID).Dur("remaining", remaining).
				Msg("restored running quiz")
			continue
		}

		if err := r.timers.ForceEnd(ctx, quiz.ID, now); err != nil {
			log.Error().Err(err).Str("quiz_id", quiz.ID).Msg("restore: end overdue quiz")
			continue
		}
		log.Info().Str("quiz_id", quiz.ID).Msg("restored quiz was overdue, ended")
	}
	return nil
}
