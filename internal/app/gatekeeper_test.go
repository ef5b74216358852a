package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

func TestMentorAlwaysAdmitted(t *testing.T) {
	gate := app.NewGatekeeper(memory.NewSessionStore(), memory.NewAnswerStore())

	admission, err := gate.Admit(context.Background(), "quiz-1", "mentor-1", domain.RoleMentor)
	require.NoError(t, err)
	require.Equal(t, app.AdmitJoin, admission)
}

func TestStudentDeniedWithoutSession(t *testing.T) {
	gate := app.NewGatekeeper(memory.NewSessionStore(), memory.NewAnswerStore())

	_, err := gate.Admit(context.Background(), "quiz-1", "s1", domain.RoleStudent)
	require.ErrorIs(t, err, domain.ErrNotLive)
}

func TestStudentAdmittedWhileLive(t *testing.T) {
	sessions := memory.NewSessionStore()
	gate := app.NewGatekeeper(sessions, memory.NewAnswerStore())
	ctx := context.Background()

	_, err := sessions.Create("quiz-1", "conn-m")
	require.NoError(t, err)

	admission, err := gate.Admit(ctx, "quiz-1", "s1", domain.RoleStudent)
	require.NoError(t, err)
	require.Equal(t, app.AdmitJoin, admission)

	require.NoError(t, sessions.Transition("quiz-1", domain.StatusStarted))
	admission, err = gate.Admit(ctx, "quiz-1", "s1", domain.RoleStudent)
	require.NoError(t, err)
	require.Equal(t, app.AdmitJoin, admission)
}

func TestEndedQuizRoutesPriorParticipantsToResults(t *testing.T) {
	sessions := memory.NewSessionStore()
	answers := memory.NewAnswerStore()
	gate := app.NewGatekeeper(sessions, answers)
	ctx := context.Background()

	_, err := sessions.Create("quiz-1", "conn-m")
	require.NoError(t, err)
	require.NoError(t, sessions.Transition("quiz-1", domain.StatusStarted))
	require.NoError(t, sessions.Transition("quiz-1", domain.StatusEnded))

	_, err = answers.Replace(ctx, "quiz-1", "s1", "q1", []string{"o2"})
	require.NoError(t, err)

	admission, err := gate.Admit(ctx, "quiz-1", "s1", domain.RoleStudent)
	require.NoError(t, err)
	require.Equal(t, app.AdmitResultsOnly, admission)

	_, err = gate.Admit(ctx, "quiz-1", "s2", domain.RoleStudent)
	require.ErrorIs(t, err, domain.ErrParticipationDenied)
}

func TestParticipationCheckStorageErrorIsSurfaced(t *testing.T) {
	sessions := memory.NewSessionStore()
	gate := app.NewGatekeeper(sessions, failingAnswerStore{})

	_, err := sessions.Create("quiz-1", "conn-m")
	require.NoError(t, err)
	require.NoError(t, sessions.Transition("quiz-1", domain.StatusEnded))

	_, err = gate.Admit(context.Background(), "quiz-1", "s1", domain.RoleStudent)
	require.ErrorIs(t, err, errStoreDown)
	require.NotErrorIs(t, err, domain.ErrParticipationDenied)
}
