package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"quiz-session-service/internal/domain"
)

// quizTimer is one live countdown. At most one exists per quiz; replacing it is
// always cancel-old-handle, install-new-handle under the registry lock.
type quizTimer struct {
	startedAt time.Time
	duration  time.Duration
	endedAt   *time.Time
	timer     clockwork.Timer
	done      chan struct{}
}

// TimerRegistry tracks the countdown of every running quiz, schedules the
// one-shot expiry and drives the periodic timer-sync broadcast.
type TimerRegistry struct {
	clock    clockwork.Clock
	grace    time.Duration
	times    QuizTimeStore
	sessions SessionStore
	rooms    Rooms

	mu     sync.Mutex
	timers map[string]*quizTimer
}

func NewTimerRegistry(clock clockwork.Clock, grace time.Duration, times QuizTimeStore, sessions SessionStore, rooms Rooms) *TimerRegistry {
	if grace <= 0 {
		grace = time.Second
	}
	return &TimerRegistry{
		clock:    clock,
		grace:    grace,
		times:    times,
		sessions: sessions,
		rooms:    rooms,
		timers:   make(map[string]*quizTimer),
	}
}

// Start persists the start time and installs the countdown. Persistence comes
// first: if the write fails the in-memory state is left untouched and the
// caller reports the failure, so registry and storage cannot diverge.
func (r *TimerRegistry) Start(ctx context.Context, quizID string, startedAt time.Time, duration time.Duration) error {
	if err := r.times.SetStartedAt(ctx, quizID, startedAt); err != nil {
		return fmt.Errorf("persist start time: %w", err)
	}
	r.install(quizID, startedAt, duration)
	return nil
}

// Resume reinstalls a countdown whose start time is already persisted
// (process restart recovery). The expiry fires after the remaining time only.
func (r *TimerRegistry) Resume(quizID string, startedAt time.Time, duration time.Duration) {
	r.install(quizID, startedAt, duration)
}

func (r *TimerRegistry) install(quizID string, startedAt time.Time, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.timers[quizID]; ok {
		existing.cancel()
	}

	// Grace margin absorbs scheduler jitter so the expiry never fires before
	// clients' own elapsed-time computation reaches zero.
	delay := startedAt.Add(duration).Sub(r.clock.Now()) + r.grace
	if delay < r.grace {
		delay = r.grace
	}
	qt := &quizTimer{
		startedAt: startedAt,
		duration:  duration,
		timer:     r.clock.NewTimer(delay),
		done:      make(chan struct{}),
	}
	r.timers[quizID] = qt

	go func() {
		select {
		case <-qt.timer.Chan():
			r.expire(quizID, qt)
		case <-qt.done:
		}
	}()

	log.Info().Str("quiz_id", quizID).Time("started_at", startedAt).
		Dur("duration", duration).Msg("quiz timer installed")
}

func (qt *quizTimer) cancel() {
	if !qt.timer.Stop() {
		select {
		case <-qt.timer.Chan():
		default:
		}
	}
	select {
	case <-qt.done:
	default:
		close(qt.done)
	}
}

// expire is the scheduled one-shot path. The endedAt check makes the end
// transition exactly-once even when a force end races the firing timer.
func (r *TimerRegistry) expire(quizID string, qt *quizTimer) {
	r.mu.Lock()
	if current, ok := r.timers[quizID]; !ok || current != qt || qt.endedAt != nil {
		r.mu.Unlock()
		return
	}
	endedAt := r.clock.Now()
	qt.endedAt = &endedAt
	r.mu.Unlock()

	// No originator to report to on auto-expiry; a failed write is logged and
	// the room is still told the quiz is over.
	if err := r.times.SetEndedAt(context.Background(), quizID, endedAt); err != nil {
		log.Error().Err(err).Str("quiz_id", quizID).Msg("persist end time on expiry")
	}
	if err := r.sessions.Transition(quizID, domain.StatusEnded); err != nil {
		log.Error().Err(err).Str("quiz_id", quizID).Msg("end session on expiry")
	}
	r.rooms.Broadcast(quizID, EventQuizEnded, domain.TimerState{StartedAt: &qt.startedAt, EndedAt: &endedAt})
	log.Info().Str("quiz_id", quizID).Time("ended_at", endedAt).Msg("quiz auto-ended")
}

// ForceEnd cancels any pending expiry and ends the quiz now. Ending an
// already-ended quiz re-broadcasts but never moves endedAt backward.
func (r *TimerRegistry) ForceEnd(ctx context.Context, quizID string, endedAt time.Time) error {
	r.mu.Lock()
	qt, ok := r.timers[quizID]
	if ok {
		qt.cancel()
		if qt.endedAt == nil {
			qt.endedAt = &endedAt
		}
		endedAt = *qt.endedAt
	}
	var startedAt *time.Time
	if ok {
		startedAt = &qt.startedAt
	}
	r.mu.Unlock()

	if err := r.times.SetEndedAt(ctx, quizID, endedAt); err != nil {
		return fmt.Errorf("persist end time: %w", err)
	}
	if err := r.sessions.Transition(quizID, domain.StatusEnded); err != nil {
		return err
	}
	r.rooms.Broadcast(quizID, EventQuizEnded, domain.TimerState{StartedAt: startedAt, EndedAt: &endedAt})
	log.Info().Str("quiz_id", quizID).Time("ended_at", endedAt).Msg("quiz force-ended")
	return nil
}

// Clear drops a quiz's timer without ending anything, so a re-run quiz never
// reports the previous run's end time.
func (r *TimerRegistry) Clear(quizID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if qt, ok := r.timers[quizID]; ok {
		qt.cancel()
		delete(r.timers, quizID)
	}
}

// Query returns the countdown state for a quiz, or false when no timer exists.
func (r *TimerRegistry) Query(quizID string) (domain.TimerState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	qt, ok := r.timers[quizID]
	if !ok {
		return domain.TimerState{}, false
	}
	return domain.TimerState{
		StartedAt: &qt.startedAt,
		Remaining: qt.remaining(r.clock.Now()),
		EndedAt:   qt.endedAt,
	}, true
}

func (qt *quizTimer) remaining(now time.Time) int {
	if qt.endedAt != nil {
		return 0
	}
	left := qt.duration - now.Sub(qt.startedAt)
	if left < 0 {
		return 0
	}
	return int(left / time.Second)
}

// Run broadcasts timer-sync once a second to every room with a running
// countdown. This is the only way passive observers learn elapsed time;
// expiry itself fires just the terminal event. Blocks until ctx is done.
func (r *TimerRegistry) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.syncAll()
		}
	}
}

func (r *TimerRegistry) syncAll() {
	now := r.clock.Now()
	type roomSync struct {
		quizID string
		state  domain.TimerState
	}
	r.mu.Lock()
	pending := make([]roomSync, 0, len(r.timers))
	for quizID, qt := range r.timers {
		if qt.endedAt != nil {
			continue
		}
		pending = append(pending, roomSync{quizID, domain.TimerState{
			StartedAt: &qt.startedAt,
			Remaining: qt.remaining(now),
		}})
	}
	r.mu.Unlock()

	for _, s := range pending {
		r.rooms.Broadcast(s.quizID, EventTimerSync, s.state)
	}
}

// Shutdown cancels every pending expiry; used on graceful stop so no timer
// goroutine outlives the process teardown.
func (r *TimerRegistry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, qt := range r.timers {
		qt.cancel()
	}
}
