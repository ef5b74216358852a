package app_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// recordedEvent is one delivery captured by fakeRooms.
type recordedEvent struct {
	Scope   string // "room", "except", "role", "conn"
	Target  string // quiz ID or conn ID
	Role    domain.Role
	Type    string
	Payload any
}

// fakeRooms implements app.Rooms and records every delivery for assertions.
type fakeRooms struct {
	mu      sync.Mutex
	members map[string]map[string]domain.RoomUser // quizID -> connID -> user
	events  []recordedEvent
}

func newFakeRooms() *fakeRooms {
	return &fakeRooms{members: make(map[string]map[string]domain.RoomUser)}
}

func (f *fakeRooms) Join(quizID, connID string, user domain.RoomUser) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.members[quizID] == nil {
		f.members[quizID] = make(map[string]domain.RoomUser)
	}
	f.members[quizID][connID] = user
}

func (f *fakeRooms) Leave(connID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var left []string
	for quizID, members := range f.members {
		if _, ok := members[connID]; ok {
			delete(members, connID)
			left = append(left, quizID)
		}
	}
	return left
}

func (f *fakeRooms) Users(quizID string) []domain.RoomUser {
	f.mu.Lock()
	defer f.mu.Unlock()
	var users []domain.RoomUser
	for _, u := range f.members[quizID] {
		users = append(users, u)
	}
	return users
}

func (f *fakeRooms) Broadcast(quizID, event string, payload any) {
	f.record(recordedEvent{Scope: "room", Target: quizID, Type: event, Payload: payload})
}

func (f *fakeRooms) BroadcastExcept(quizID, exceptConnID, event string, payload any) {
	f.record(recordedEvent{Scope: "except", Target: quizID, Type: event, Payload: payload})
}

func (f *fakeRooms) BroadcastRole(quizID string, role domain.Role, event string, payload any) {
	f.record(recordedEvent{Scope: "role", Target: quizID, Role: role, Type: event, Payload: payload})
}

func (f *fakeRooms) Send(connID, event string, payload any) {
	f.record(recordedEvent{Scope: "conn", Target: connID, Type: event, Payload: payload})
}

func (f *fakeRooms) record(e recordedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

// count returns how many recorded events match the type (and target if set).
func (f *fakeRooms) count(eventType, target string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Type == eventType && (target == "" || e.Target == target) {
			n++
		}
	}
	return n
}

// last returns the most recent event of the given type, if any.
func (f *fakeRooms) last(eventType string) (recordedEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].Type == eventType {
			return f.events[i], true
		}
	}
	return recordedEvent{}, false
}

var errStoreDown = errors.New("storage unavailable")

// failingTimeStore rejects every write; used to check that a failed
// persistence never advances in-memory state.
type failingTimeStore struct{}

func (failingTimeStore) SetStartedAt(context.Context, string, time.Time) error {
	return errStoreDown
}
func (failingTimeStore) SetEndedAt(context.Context, string, time.Time) error {
	return errStoreDown
}
func (failingTimeStore) ListOpen(context.Context) ([]domain.Quiz, error) {
	return nil, errStoreDown
}

// failingAnswerStore rejects reads; used for the gatekeeper storage-error path.
type failingAnswerStore struct{}

func (failingAnswerStore) Replace(context.Context, string, string, string, []string) ([]domain.Answer, error) {
	return nil, errStoreDown
}
func (failingAnswerStore) HasAnswers(context.Context, string, string) (bool, error) {
	return false, errStoreDown
}
func (failingAnswerStore) ListByQuiz(context.Context, string) ([]domain.Answer, error) {
	return nil, errStoreDown
}
func (failingAnswerStore) ListByUser(context.Context, string, string) ([]domain.Answer, error) {
	return nil, errStoreDown
}

var _ app.Rooms = (*fakeRooms)(nil)
var _ app.QuizTimeStore = failingTimeStore{}
var _ app.AnswerStore = failingAnswerStore{}
