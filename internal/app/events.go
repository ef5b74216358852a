package app

// Event names multiplexed over the websocket connection. Inbound and outbound
// share the envelope {type, payload}; quiz-started, quiz-ended and timer-sync
// are used in both directions.
const (
	EventRunQuiz      = "mentor-runs-quiz"
	EventJoinRoom     = "join-room"
	EventQuizStarted  = "quiz-started"
	EventSubmitAnswer = "submit-answer"
	EventQuizEnded    = "quiz-ended"
	EventTimerSync    = "timer-sync"
	EventRoomUsers    = "get-room-users"

	EventRoomJoined      = "room-joined"
	EventUserJoined      = "user-joined"
	EventRoomUsersUpdate = "room-users"
	EventQuizHasEnded    = "quiz-has-ended"
	EventAnswerReceived  = "answer-received"
	EventProgressUpdate  = "progress-update"
	EventFullProgress    = "full-progress-update"
	EventStudentProgress = "student-progress-update"
	EventError           = "error"
)
