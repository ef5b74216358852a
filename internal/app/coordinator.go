package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"quiz-session-service/internal/domain"
)

// Coordinator wires the registries, gatekeeper, recorder and aggregator to the
// event transport. It is the only writer of session and timer state; a single
// mutex serializes the mutating handlers so transitions observe a consistent
// view (the expiry path synchronizes through the timer registry itself).
type Coordinator struct {
	mu       sync.Mutex
	sessions SessionStore
	timers   *TimerRegistry
	gate     *Gatekeeper
	recorder *Recorder
	progress *ProgressAggregator
	rooms    Rooms
}

func NewCoordinator(sessions SessionStore, timers *TimerRegistry, gate *Gatekeeper, recorder *Recorder, progress *ProgressAggregator, rooms Rooms) *Coordinator {
	return &Coordinator{
		sessions: sessions,
		timers:   timers,
		gate:     gate,
		recorder: recorder,
		progress: progress,
		rooms:    rooms,
	}
}

type roomJoinedPayload struct {
	QuizID string `json:"quizId"`
}

type quizStartedPayload struct {
	StartedAt time.Time `json:"startedAt"`
	Duration  int       `json:"duration"`
}

type quizHasEndedPayload struct {
	QuizID  string     `json:"quizId"`
	EndedAt *time.Time `json:"endedAt,omitempty"`
}

type answerReceivedPayload struct {
	Success bool            `json:"success"`
	Answers []domain.Answer `json:"answers"`
}

type progressListPayload struct {
	Answers []domain.Progress `json:"answers"`
}

type answerListPayload struct {
	Answers []domain.Answer `json:"answers"`
}

type roomUsersPayload struct {
	Users []domain.RoomUser `json:"users"`
}

// RunQuiz creates a waiting session owned by the mentor's connection.
func (c *Coordinator) RunQuiz(connID, quizID string, role domain.Role) error {
	if role != domain.RoleMentor {
		return domain.ErrForbidden
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.sessions.Create(quizID, connID); err != nil {
		return err
	}
	// a previous run's ended countdown must not leak into the new session
	c.timers.Clear(quizID)
	log.Info().Str("quiz_id", quizID).Str("conn_id", connID).Msg("session created")
	return nil
}

// Join runs the gatekeeper and, on admission, adds the connection to the room
// and synchronizes it with any running countdown. Reconnection is just a
// second Join: the timer push plus the role-appropriate snapshot restore the
// client to exactly its prior position.
func (c *Coordinator) Join(ctx context.Context, connID, quizID, userID string, role domain.Role) error {
	admission, err := c.gate.Admit(ctx, quizID, userID, role)
	if err != nil {
		return err
	}
	if admission == AdmitResultsOnly {
		var endedAt *time.Time
		if state, ok := c.timers.Query(quizID); ok {
			endedAt = state.EndedAt
		}
		c.rooms.Send(connID, EventQuizHasEnded, quizHasEndedPayload{QuizID: quizID, EndedAt: endedAt})
		return nil
	}

	user := domain.RoomUser{UserID: userID, Role: role}
	c.rooms.Join(quizID, connID, user)
	c.rooms.Send(connID, EventRoomJoined, roomJoinedPayload{QuizID: quizID})
	c.rooms.BroadcastExcept(quizID, connID, EventUserJoined, user)
	c.rooms.Broadcast(quizID, EventRoomUsersUpdate, roomUsersPayload{Users: c.rooms.Users(quizID)})

	state, running := c.timers.Query(quizID)
	if !running || state.EndedAt != nil {
		return nil
	}
	c.rooms.Send(connID, EventTimerSync, state)
	switch role {
	case domain.RoleMentor:
		snapshot, err := c.progress.FullSnapshot(ctx, quizID)
		if err != nil {
			return err
		}
		c.rooms.Send(connID, EventFullProgress, progressListPayload{Answers: snapshot})
	default:
		history, err := c.progress.StudentSnapshot(ctx, quizID, userID)
		if err != nil {
			return err
		}
		c.rooms.Send(connID, EventStudentProgress, answerListPayload{Answers: history})
	}
	return nil
}

// Start moves a waiting session to started and installs the countdown. The
// start time is persisted before any state advances; on failure nothing is
// broadcast and the client may retry.
func (c *Coordinator) Start(ctx context.Context, connID, quizID string, startedAt time.Time, duration time.Duration, role domain.Role) error {
	if role != domain.RoleMentor {
		return domain.ErrForbidden
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.sessions.Get(quizID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if session.Status != domain.StatusWaiting {
		return domain.ErrInvalidTransition
	}
	if err := c.timers.Start(ctx, quizID, startedAt, duration); err != nil {
		return err
	}
	if err := c.sessions.Transition(quizID, domain.StatusStarted); err != nil {
		return err
	}
	c.rooms.Broadcast(quizID, EventQuizStarted, quizStartedPayload{
		StartedAt: startedAt,
		Duration:  int(duration / time.Second),
	})
	log.Info().Str("quiz_id", quizID).Time("started_at", startedAt).
		Dur("duration", duration).Msg("quiz started")
	return nil
}

// Submit records a participant's answer and forwards progress to the mentors
// in the room. Submissions are gated on a started session; once the quiz has
// ended they are rejected rather than written into a closed quiz.
func (c *Coordinator) Submit(ctx context.Context, connID, quizID, userID, questionID string, selections []string, questionIndex, totalQuestions int) error {
	rows, err := c.recordIfLive(ctx, quizID, userID, questionID, selections)
	if err != nil {
		return err
	}
	if rows == nil {
		return nil // empty submission, deliberately ignored
	}

	c.rooms.Send(connID, EventAnswerReceived, answerReceivedPayload{Success: true, Answers: rows})
	progress := c.progress.Compute(quizID, userID, questionIndex, totalQuestions)
	c.rooms.BroadcastRole(quizID, domain.RoleMentor, EventProgressUpdate, progress)
	return nil
}

// recordIfLive checks and writes under the coordinator lock, so a force end
// cannot complete between the status check and the persist. An answer racing
// the countdown's own expiry may still land at the boundary; the replace
// semantics keep that harmless.
func (c *Coordinator) recordIfLive(ctx context.Context, quizID, userID, questionID string, selections []string) ([]domain.Answer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.sessions.Get(quizID)
	if !ok {
		return nil, domain.ErrNotLive
	}
	switch session.Status {
	case domain.StatusStarted:
	case domain.StatusEnded:
		return nil, domain.ErrQuizEnded
	default:
		return nil, domain.ErrNotLive
	}
	return c.recorder.Record(ctx, quizID, userID, questionID, selections)
}

// ForceEnd ends the quiz ahead of its timer. Idempotent: a second call (or a
// racing expiry) re-broadcasts but the persisted end time never regresses.
func (c *Coordinator) ForceEnd(ctx context.Context, connID, quizID string, endedAt time.Time, role domain.Role) error {
	if role != domain.RoleMentor {
		return domain.ErrForbidden
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.sessions.Get(quizID); !ok {
		return domain.ErrSessionNotFound
	}
	return c.timers.ForceEnd(ctx, quizID, endedAt)
}

// TimerSync answers an explicit resync request. A quiz with no timer yet gets
// the unstarted sentinel (null fields) so clients can render a waiting state.
func (c *Coordinator) TimerSync(connID, quizID string) {
	state, ok := c.timers.Query(quizID)
	if !ok {
		c.rooms.Send(connID, EventTimerSync, domain.TimerState{})
		return
	}
	c.rooms.Send(connID, EventTimerSync, state)
}

// RoomUsers answers the mentor dashboard query for current room membership.
func (c *Coordinator) RoomUsers(connID, quizID string) {
	c.rooms.Send(connID, EventRoomUsersUpdate, roomUsersPayload{Users: c.rooms.Users(quizID)})
}

// Disconnect drops the connection from every room it was in and tells the
// remaining members. Membership is ephemeral: a reconnecting client must
// re-announce itself with a fresh join.
func (c *Coordinator) Disconnect(connID string) {
	for _, quizID := range c.rooms.Leave(connID) {
		c.rooms.Broadcast(quizID, EventRoomUsersUpdate, roomUsersPayload{Users: c.rooms.Users(quizID)})
	}
}
