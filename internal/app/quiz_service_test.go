package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
)

var easyGeneral = domain.QuizConfig{Category: 9, Difficulty: domain.DifficultyEasy}

func TestOpenStartAndComplete(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService()

	session := service.Open(ctx)
	require.Equal(t, 1, store.Len())

	require.NoError(t, service.Start(ctx, session.ID(), easyGeneral))
	view, err := service.Snapshot(ctx, session.ID())
	require.NoError(t, err)
	require.Equal(t, domain.PhaseInProgress, view.Phase)
	require.Equal(t, 2, view.Total)

	require.NoError(t, service.SubmitAnswer(ctx, session.ID(), domain.Answer{Choice: "Canberra"}))
	require.NoError(t, service.Next(ctx, session.ID()))
	require.NoError(t, service.Previous(ctx, session.ID()))
	require.NoError(t, service.Next(ctx, session.ID()))
	require.NoError(t, service.SubmitAnswer(ctx, session.ID(), domain.Answer{Choice: "Venus"}))
	require.NoError(t, service.Next(ctx, session.ID()))

	view, err = service.Snapshot(ctx, session.ID())
	require.NoError(t, err)
	require.Equal(t, domain.PhaseCompleted, view.Phase)
	require.NotNil(t, view.Score)
	require.Equal(t, 1, *view.Score)
	require.Len(t, view.Review, 2)
	require.True(t, view.Review[0].Correct)
	require.False(t, view.Review[1].Correct)
}

func TestRestartReturnsToConfiguring(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	session := service.Open(ctx)

	require.NoError(t, service.Start(ctx, session.ID(), easyGeneral))
	require.NoError(t, service.Restart(ctx, session.ID()))

	view, err := service.Snapshot(ctx, session.ID())
	require.NoError(t, err)
	require.Equal(t, domain.PhaseConfiguring, view.Phase)
	require.Zero(t, view.Total)
}

func TestRetryAfterUnknownConfigIsIgnored(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	session := service.Open(ctx)

	err := service.Start(ctx, session.ID(), domain.QuizConfig{Category: 42, Difficulty: domain.DifficultyHard})
	require.ErrorIs(t, err, domain.ErrNoQuestions)
	require.NoError(t, service.Retry(ctx, session.ID()), "retry is a no-op outside the error phase")

	view, err := service.Snapshot(ctx, session.ID())
	require.NoError(t, err)
	require.Equal(t, domain.PhaseAwaitingStart, view.Phase)
	require.Equal(t, domain.NoticeNoQuestions, view.Notice)
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	session := service.Open(ctx)

	updates, cancel, err := service.Subscribe(ctx, session.ID())
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, service.Start(ctx, session.ID(), easyGeneral))

	deadline := time.After(time.Second)
	for {
		select {
		case view := <-updates:
			if view.Phase == domain.PhaseInProgress {
				require.NotNil(t, view.Question)
				require.Equal(t, 1, view.Question.ID)
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for in-progress update")
		}
	}
}

func TestUnknownSession(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	require.ErrorIs(t, service.Next(ctx, "missing"), domain.ErrSessionNotFound)
	_, err := service.Snapshot(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, _, err = service.Subscribe(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	service.Exit(ctx, "missing")
}

func TestExitClosesSession(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService()
	session := service.Open(ctx)

	updates, _, err := service.Subscribe(ctx, session.ID())
	require.NoError(t, err)
	service.Exit(ctx, session.ID())

	require.Zero(t, store.Len())
	for range updates {
	}
	require.ErrorIs(t, service.Next(ctx, session.ID()), domain.ErrSessionNotFound)
}

func newTestService() (*app.QuizService, *memory.SessionStore) {
	source := memory.NewStaticSource(map[domain.QuizConfig][]domain.RawQuestion{
		easyGeneral: {
			{Prompt: "What is the capital of Australia?", CorrectAnswer: "Canberra", IncorrectAnswers: []string{"Sydney", "Perth"}},
			{Prompt: "Which planet is known as the Red Planet?", CorrectAnswer: "Mars", IncorrectAnswers: []string{"Venus", "Jupiter"}},
		},
	})
	store := memory.NewSessionStore()
	opts := app.SessionOptions{TickInterval: time.Hour}
	return app.NewQuizService(store, source, opts, nil), store
}
