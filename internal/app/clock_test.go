package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

const grace = time.Second

type clockFixture struct {
	clk      *clockwork.FakeClock
	times    *memory.QuizTimeStore
	sessions *memory.SessionStore
	rooms    *fakeRooms
	timers   *app.TimerRegistry
}

func newClockFixture(t *testing.T) *clockFixture {
	t.Helper()
	clk := clockwork.NewFakeClock()
	times := memory.NewQuizTimeStore()
	sessions := memory.NewSessionStore()
	rooms := newFakeRooms()
	return &clockFixture{
		clk:      clk,
		times:    times,
		sessions: sessions,
		rooms:    rooms,
		timers:   app.NewTimerRegistry(clk, grace, times, sessions, rooms),
	}
}

func (f *clockFixture) startedSession(t *testing.T, quizID string) {
	t.Helper()
	_, err := f.sessions.Create(quizID, "mentor-conn")
	require.NoError(t, err)
	require.NoError(t, f.sessions.Transition(quizID, domain.StatusStarted))
}

func waitForEnd(t *testing.T, rooms *fakeRooms, quizID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return rooms.count(app.EventQuizEnded, quizID) >= 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestTimerExpiresExactlyOnce(t *testing.T) {
	f := newClockFixture(t)
	f.startedSession(t, "quiz-1")

	require.NoError(t, f.timers.Start(context.Background(), "quiz-1", f.clk.Now(), 60*time.Second))

	f.clk.Advance(60*time.Second + grace)
	waitForEnd(t, f.rooms, "quiz-1")

	session, ok := f.sessions.Get("quiz-1")
	require.True(t, ok)
	require.Equal(t, domain.StatusEnded, session.Status)

	stored, ok := f.times.Get("quiz-1")
	require.True(t, ok)
	require.NotNil(t, stored.EndedAt)

	f.clk.Advance(time.Minute)
	require.Equal(t, 1, f.rooms.count(app.EventQuizEnded, "quiz-1"))
}

func TestStartReplacesExistingTimer(t *testing.T) {
	f := newClockFixture(t)
	f.startedSession(t, "quiz-1")

	ctx := context.Background()
	require.NoError(t, f.timers.Start(ctx, "quiz-1", f.clk.Now(), 30*time.Second))
	// repeated quiz-started for the same quiz replaces the countdown
	require.NoError(t, f.timers.Start(ctx, "quiz-1", f.clk.Now(), 60*time.Second))

	f.clk.Advance(30*time.Second + grace)
	require.Never(t, func() bool {
		return f.rooms.count(app.EventQuizEnded, "quiz-1") > 0
	}, 100*time.Millisecond, 10*time.Millisecond)

	f.clk.Advance(30 * time.Second)
	waitForEnd(t, f.rooms, "quiz-1")
	require.Equal(t, 1, f.rooms.count(app.EventQuizEnded, "quiz-1"))
}

func TestForceEndCancelsScheduledExpiry(t *testing.T) {
	f := newClockFixture(t)
	f.startedSession(t, "quiz-1")

	ctx := context.Background()
	start := f.clk.Now()
	require.NoError(t, f.timers.Start(ctx, "quiz-1", start, 60*time.Second))

	f.clk.Advance(10 * time.Second)
	endedAt := f.clk.Now()
	require.NoError(t, f.timers.ForceEnd(ctx, "quiz-1", endedAt))
	require.Equal(t, 1, f.rooms.count(app.EventQuizEnded, "quiz-1"))

	// the original expiry at start+60s must not produce a second broadcast
	f.clk.Advance(55 * time.Second)
	require.Never(t, func() bool {
		return f.rooms.count(app.EventQuizEnded, "quiz-1") > 1
	}, 100*time.Millisecond, 10*time.Millisecond)

	stored, ok := f.times.Get("quiz-1")
	require.True(t, ok)
	require.True(t, stored.EndedAt.Equal(endedAt))
}

func TestForceEndIsIdempotent(t *testing.T) {
	f := newClockFixture(t)
	f.startedSession(t, "quiz-1")

	ctx := context.Background()
	require.NoError(t, f.timers.Start(ctx, "quiz-1", f.clk.Now(), 60*time.Second))

	f.clk.Advance(5 * time.Second)
	first := f.clk.Now()
	require.NoError(t, f.timers.ForceEnd(ctx, "quiz-1", first))

	f.clk.Advance(5 * time.Second)
	require.NoError(t, f.timers.ForceEnd(ctx, "quiz-1", f.clk.Now()))

	// duplicate end events are tolerated, the persisted end never regresses
	stored, ok := f.times.Get("quiz-1")
	require.True(t, ok)
	require.True(t, stored.EndedAt.Equal(first))

	state, ok := f.timers.Query("quiz-1")
	require.True(t, ok)
	require.True(t, state.EndedAt.Equal(first))
	require.Equal(t, 0, state.Remaining)
}

func TestQueryRemaining(t *testing.T) {
	f := newClockFixture(t)
	f.startedSession(t, "quiz-1")

	_, ok := f.timers.Query("quiz-1")
	require.False(t, ok, "unstarted quiz has no timer state")

	require.NoError(t, f.timers.Start(context.Background(), "quiz-1", f.clk.Now(), 60*time.Second))

	f.clk.Advance(25 * time.Second)
	state, ok := f.timers.Query("quiz-1")
	require.True(t, ok)
	require.Equal(t, 35, state.Remaining)
	require.Nil(t, state.EndedAt)
}

func TestStartPersistenceFailureLeavesRegistryUntouched(t *testing.T) {
	clk := clockwork.NewFakeClock()
	rooms := newFakeRooms()
	timers := app.NewTimerRegistry(clk, grace, failingTimeStore{}, memory.NewSessionStore(), rooms)

	err := timers.Start(context.Background(), "quiz-1", clk.Now(), 60*time.Second)
	require.ErrorIs(t, err, errStoreDown)

	_, ok := timers.Query("quiz-1")
	require.False(t, ok, "failed start must not install a timer")
}

func TestTickerBroadcastsTimerSync(t *testing.T) {
	f := newClockFixture(t)
	f.startedSession(t, "quiz-1")
	require.NoError(t, f.timers.Start(context.Background(), "quiz-1", f.clk.Now(), 60*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.timers.Run(ctx)

	// one waiter for the pending expiry, one for the sweep ticker
	f.clk.BlockUntil(2)
	f.clk.Advance(time.Second)

	require.Eventually(t, func() bool {
		return f.rooms.count(app.EventTimerSync, "quiz-1") >= 1
	}, 2*time.Second, 5*time.Millisecond)

	last, ok := f.rooms.last(app.EventTimerSync)
	require.True(t, ok)
	state, ok := last.Payload.(domain.TimerState)
	require.True(t, ok)
	require.Equal(t, 59, state.Remaining)
}

func TestClearDropsCountdown(t *testing.T) {
	f := newClockFixture(t)
	f.startedSession(t, "quiz-1")

	require.NoError(t, f.timers.Start(context.Background(), "quiz-1", f.clk.Now(), 60*time.Second))
	f.timers.Clear("quiz-1")

	_, ok := f.timers.Query("quiz-1")
	require.False(t, ok, "cleared quiz has no timer state")

	// the cancelled handle never fires
	f.clk.Advance(2 * time.Minute)
	require.Never(t, func() bool {
		return f.rooms.count(app.EventQuizEnded, "quiz-1") > 0
	}, 100*time.Millisecond, 10*time.Millisecond)
}
