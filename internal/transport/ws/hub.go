package ws

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"quiz-session-service/internal/domain"
)

// Envelope is the wire format for every event in both directions.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type client struct {
	connID string
	user   domain.RoomUser
	send   chan Envelope
}

// Hub is the explicit membership table: quiz ID -> connections, each tagged
// with a participant identity and role. It implements app.Rooms. Membership
// is ephemeral by design; reconnecting clients re-announce with a new join.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*client
	rooms map[string]map[string]*client // quizID -> connID -> client
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*client),
		rooms: make(map[string]map[string]*client),
	}
}

// Register attaches a connection before it joins any room. The returned
// channel is drained by the connection's writer pump.
func (h *Hub) Register(connID string, user domain.RoomUser) <-chan Envelope {
	c := &client{connID: connID, user: user, send: make(chan Envelope, 16)}
	h.mu.Lock()
	h.conns[connID] = c
	h.mu.Unlock()
	return c.send
}

// Unregister drops the connection entirely and closes its send channel.
// Callers should run Leave first so rooms are notified.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[connID]
	if !ok {
		return
	}
	delete(h.conns, connID)
	for quizID, members := range h.rooms {
		if _, ok := members[connID]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(h.rooms, quizID)
			}
		}
	}
	close(c.send)
}

func (h *Hub) Join(quizID, connID string, user domain.RoomUser) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[connID]
	if !ok {
		return
	}
	c.user = user
	if h.rooms[quizID] == nil {
		h.rooms[quizID] = make(map[string]*client)
	}
	h.rooms[quizID][connID] = c
	log.Info().Str("quiz_id", quizID).Str("user_id", user.UserID).
		Str("role", string(user.Role)).Msg("joined room")
}

func (h *Hub) Leave(connID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var left []string
	for quizID, members := range h.rooms {
		if _, ok := members[connID]; ok {
			delete(members, connID)
			left = append(left, quizID)
			if len(members) == 0 {
				delete(h.rooms, quizID)
			}
		}
	}
	sort.Strings(left)
	return left
}

func (h *Hub) Users(quizID string) []domain.RoomUser {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := h.rooms[quizID]
	users := make([]domain.RoomUser, 0, len(members))
	for _, c := range members {
		users = append(users, c.user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users
}

func (h *Hub) Broadcast(quizID, event string, payload any) {
	h.each(quizID, func(c *client) bool { return true }, event, payload)
}

func (h *Hub) BroadcastExcept(quizID, exceptConnID, event string, payload any) {
	h.each(quizID, func(c *client) bool { return c.connID != exceptConnID }, event, payload)
}

func (h *Hub) BroadcastRole(quizID string, role domain.Role, event string, payload any) {
	h.each(quizID, func(c *client) bool { return c.user.Role == role }, event, payload)
}

func (h *Hub) Send(connID, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.conns[connID]; ok {
		c.deliver(Envelope{Type: event, Payload: payload})
	}
}

// each delivers while holding the read lock. Unregister closes send channels
// only under the write lock, so a channel cannot close mid-delivery; deliver
// never blocks, so holding the lock here is cheap.
func (h *Hub) each(quizID string, keep func(*client) bool, event string, payload any) {
	msg := Envelope{Type: event, Payload: payload}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[quizID] {
		if keep(c) {
			c.deliver(msg)
		}
	}
}

// deliver never blocks the caller. When the buffer is full the oldest queued
// message makes room for the new one, so a slow client loses stale
// timer-syncs rather than a terminal event.
func (c *client) deliver(msg Envelope) {
	select {
	case c.send <- msg:
		return
	default:
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- msg:
		log.Warn().Str("conn_id", c.connID).Str("type", msg.Type).Msg("send buffer full, dropped oldest")
	default:
		log.Warn().Str("conn_id", c.connID).Str("type", msg.Type).Msg("send buffer full, dropped")
	}
}
