package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// Handler upgrades HTTP requests to websockets and dispatches quiz events to
// the session coordinator.
type Handler struct {
	coordinator *app.Coordinator
	hub         *Hub
	verifier    *TokenVerifier
	upgrader    websocket.Upgrader
}

func NewHandler(coordinator *app.Coordinator, hub *Hub, verifier *TokenVerifier) *Handler {
	return &Handler{
		coordinator: coordinator,
		hub:         hub,
		verifier:    verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// selections accepts the answer field as either a scalar or a list and
// normalizes it to a slice before it reaches the recorder.
type selections []string

func (s *selections) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = selections{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = selections(many)
	return nil
}

type joinRoomPayload struct {
	QuizID string `json:"quizId"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type startQuizPayload struct {
	QuizID    string    `json:"quizId"`
	StartedAt time.Time `json:"startedAt"`
	Duration  int       `json:"duration"`
}

type submitAnswerPayload struct {
	QuizID         string     `json:"quizId"`
	UserID         string     `json:"userId"`
	QuestionID     string     `json:"questionId"`
	Answer         selections `json:"answer"`
	QuestionIndex  int        `json:"questionIndex"`
	TotalQuestions int        `json:"totalQuestions"`
}

type endQuizPayload struct {
	QuizID  string    `json:"quizId"`
	EndedAt time.Time `json:"endedAt"`
}

type quizIDPayload struct {
	QuizID string `json:"quizId"`
}

// ServeWS handles one websocket connection for its lifetime. The bearer token,
// when present and valid, marks the connection as a mentor; otherwise the
// connection is a student identified by the client-supplied userId.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity := domain.RoomUser{
		UserID: r.URL.Query().Get("userId"),
		Role:   domain.RoleStudent,
	}
	if token := r.URL.Query().Get("token"); token != "" {
		mentorID, err := h.verifier.Verify(token)
		if err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		identity = domain.RoomUser{UserID: mentorID, Role: domain.RoleMentor}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	send := h.hub.Register(connID, identity)
	log.Info().Str("conn_id", connID).Str("role", string(identity.Role)).Msg("client connected")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Warn().Err(err).Str("conn_id", connID).Msg("ws write error")
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r, connID, identity, inbound)
	}

	h.coordinator.Disconnect(connID)
	h.hub.Unregister(connID)
	<-writerDone
	log.Info().Str("conn_id", connID).Msg("client disconnected")
}

func (h *Handler) dispatch(r *http.Request, connID string, identity domain.RoomUser, inbound inboundMessage) {
	ctx := r.Context()
	switch inbound.Type {
	case app.EventRunQuiz:
		var p quizIDPayload
		if !h.decode(connID, inbound.Payload, &p) {
			return
		}
		if p.QuizID == "" {
			h.sendError(connID, "quizId is required to run quiz")
			return
		}
		h.report(connID, h.coordinator.RunQuiz(connID, p.QuizID, identity.Role))

	case app.EventJoinRoom:
		var p joinRoomPayload
		if !h.decode(connID, inbound.Payload, &p) {
			return
		}
		if p.QuizID == "" {
			h.sendError(connID, "quizId is required to join room")
			return
		}
		userID := p.UserID
		if userID == "" {
			userID = identity.UserID
		}
		// The claimed role is only honored for authenticated connections;
		// an anonymous client is always a student no matter what it sends.
		role := domain.RoleStudent
		if identity.Role == domain.RoleMentor {
			role = domain.RoleMentor
		}
		h.report(connID, h.coordinator.Join(ctx, connID, p.QuizID, userID, role))

	case app.EventQuizStarted:
		var p startQuizPayload
		if !h.decode(connID, inbound.Payload, &p) {
			return
		}
		if p.QuizID == "" || p.StartedAt.IsZero() || p.Duration <= 0 {
			h.sendError(connID, "quizId, startedAt, and duration are required to start quiz")
			return
		}
		h.report(connID, h.coordinator.Start(ctx, connID, p.QuizID, p.StartedAt,
			time.Duration(p.Duration)*time.Second, identity.Role))

	case app.EventSubmitAnswer:
		var p submitAnswerPayload
		if !h.decode(connID, inbound.Payload, &p) {
			return
		}
		userID := p.UserID
		if userID == "" {
			userID = identity.UserID
		}
		if p.QuizID == "" || userID == "" || p.QuestionID == "" {
			h.sendError(connID, "quizId, userId, and questionId are required to submit answer")
			return
		}
		h.report(connID, h.coordinator.Submit(ctx, connID, p.QuizID, userID,
			p.QuestionID, p.Answer, p.QuestionIndex, p.TotalQuestions))

	case app.EventQuizEnded:
		var p endQuizPayload
		if !h.decode(connID, inbound.Payload, &p) {
			return
		}
		if p.QuizID == "" || p.EndedAt.IsZero() {
			h.sendError(connID, "quizId and endedAt are required to end quiz")
			return
		}
		h.report(connID, h.coordinator.ForceEnd(ctx, connID, p.QuizID, p.EndedAt, identity.Role))

	case app.EventTimerSync:
		var p quizIDPayload
		if !h.decode(connID, inbound.Payload, &p) {
			return
		}
		if p.QuizID == "" {
			h.sendError(connID, "quizId is required for timer sync")
			return
		}
		h.coordinator.TimerSync(connID, p.QuizID)

	case app.EventRoomUsers:
		var p quizIDPayload
		if !h.decode(connID, inbound.Payload, &p) {
			return
		}
		if p.QuizID == "" {
			h.sendError(connID, "quizId is required to get room users")
			return
		}
		h.coordinator.RoomUsers(connID, p.QuizID)

	default:
		h.sendError(connID, "unsupported message type")
	}
}

func (h *Handler) decode(connID string, raw json.RawMessage, out any) bool {
	if err := json.Unmarshal(raw, out); err != nil {
		h.sendError(connID, "invalid payload")
		return false
	}
	return true
}

// report converts a handler failure into a structured error event for the
// originating connection. Failures never cross into other rooms.
func (h *Handler) report(connID string, err error) {
	if err != nil {
		h.sendError(connID, err.Error())
	}
}

func (h *Handler) sendError(connID, message string) {
	h.hub.Send(connID, app.EventError, errorPayload{Message: message})
}
