package domain

import "time"

// Role tags a connection as quiz-runner or quiz-taker.
type Role string

const (
	RoleMentor  Role = "mentor"
	RoleStudent Role = "student"
)

// SessionStatus is the lifecycle state of one quiz's live run.
type SessionStatus string

const (
	StatusWaiting SessionStatus = "waiting"
	StatusStarted SessionStatus = "started"
	StatusEnded   SessionStatus = "ended"
)

// CanTransitionTo reports whether moving to next respects the monotonic
// ordering waiting -> started -> ended. Skipping forward (waiting -> ended,
// the force-end-before-start case) is allowed; moving backward never is.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	rank := map[SessionStatus]int{StatusWaiting: 0, StatusStarted: 1, StatusEnded: 2}
	from, ok := rank[s]
	if !ok {
		return false
	}
	to, ok := rank[next]
	if !ok {
		return false
	}
	return to > from
}

// Session is the lifecycle record for a quiz's live-run instance.
type Session struct {
	QuizID  string
	Status  SessionStatus
	OwnerID string // connection that administers the session, may be empty
}

// Option represents a possible answer for a question.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Question models a quiz question. Type is "multiple-choice" or "text".
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Type    string   `json:"type"`
	Options []Option `json:"options"`
}

// Quiz carries the content and live-run timestamps for one quiz.
// StartedAt/EndedAt are nil until a mentor runs the quiz; the restorer
// uses them to rebuild timers after a restart.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Duration    int        `json:"duration"` // seconds
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	Questions   []Question `json:"questions"`
}

// Answer is one persisted selection. At most one current set of rows exists
// per (UserID, QuizID, QuestionID); a resubmission replaces, never appends.
type Answer struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"userId"`
	QuizID         string    `json:"quizId"`
	QuestionID     string    `json:"questionId"`
	SelectedOption string    `json:"selectedOption"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

// Progress is a participant's completion state, delivered to mentors.
type Progress struct {
	QuizID         string `json:"quizId"`
	UserID         string `json:"userId"`
	QuestionIndex  int    `json:"questionIndex"`
	TotalQuestions int    `json:"totalQuestions"`
	Status         string `json:"status"` // "completed" or "in-progress"
}

// RoomUser is one connection's identity inside a quiz room.
type RoomUser struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// TimerState is the queryable view of a quiz countdown.
type TimerState struct {
	StartedAt *time.Time `json:"startedAt"`
	Remaining int        `json:"duration"` // seconds left, 0 once ended
	EndedAt   *time.Time `json:"endedAt"`
}

// ProgressStatus values reported to mentors.
const (
	ProgressCompleted  = "completed"
	ProgressInProgress = "in-progress"
)
