package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

// SessionStore mirrors the in-memory session registry into Redis liveness
// keys. The in-process map stays authoritative for transition checks; Redis
// carries a best-effort status marker that dashboards and sibling instances
// can observe.
type SessionStore struct {
	local  *memory.SessionStore
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		local:  memory.NewSessionStore(),
		client: client,
		ttl:    ttl,
	}
}

func (s *SessionStore) Create(quizID, ownerID string) (domain.Session, error) {
	session, err := s.local.Create(quizID, ownerID)
	if err != nil {
		return domain.Session{}, err
	}
	_ = s.client.Set(context.Background(), s.key(quizID), string(session.Status), s.ttl).Err()
	return session, nil
}

func (s *SessionStore) Get(quizID string) (domain.Session, bool) {
	return s.local.Get(quizID)
}

func (s *SessionStore) Transition(quizID string, status domain.SessionStatus) error {
	if err := s.local.Transition(quizID, status); err != nil {
		return err
	}
	if status == domain.StatusEnded {
		_ = s.client.Del(context.Background(), s.key(quizID)).Err()
	} else {
		_ = s.client.Set(context.Background(), s.key(quizID), string(status), s.ttl).Err()
	}
	return nil
}

func (s *SessionStore) key(quizID string) string {
	return "quiz:session:" + quizID
}
