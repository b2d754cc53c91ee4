package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"trivia-quiz-service/internal/domain"
)

func TestQuestionCacheCaches(t *testing.T) {
	source := &countingSource{source: NewStaticSource(SampleQuestions())}
	cache := NewQuestionCache(source, time.Minute)

	first, err := cache.FetchQuestions(context.Background(), 9, domain.DifficultyEasy, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, source.calls.Load())

	second, err := cache.FetchQuestions(context.Background(), 9, domain.DifficultyEasy, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, source.calls.Load(), "expected cache hit")
	require.Equal(t, first, second)
}

func TestQuestionCacheExpires(t *testing.T) {
	now := time.Now()
	source := &countingSource{source: NewStaticSource(SampleQuestions())}
	cache := NewQuestionCacheWithClock(source, time.Minute, func() time.Time { return now })

	_, _ = cache.FetchQuestions(context.Background(), 9, domain.DifficultyHard, 10)
	now = now.Add(2 * time.Minute)
	_, _ = cache.FetchQuestions(context.Background(), 9, domain.DifficultyHard, 10)

	require.EqualValues(t, 2, source.calls.Load(), "expected refetch after expiry")
}

func TestQuestionCacheSkipsEmptyAndFailed(t *testing.T) {
	empty := &countingSource{source: NewStaticSource(nil)}
	cache := NewQuestionCache(empty, time.Minute)
	for i := 0; i < 2; i++ {
		questions, err := cache.FetchQuestions(context.Background(), 1, domain.DifficultyEasy, 10)
		require.NoError(t, err)
		require.Empty(t, questions)
	}
	require.EqualValues(t, 2, empty.calls.Load(), "expected empty results uncached")

	boom := errors.New("boom")
	failing := &countingSource{err: boom}
	cache = NewQuestionCache(failing, time.Minute)
	for i := 0; i < 2; i++ {
		_, err := cache.FetchQuestions(context.Background(), 9, domain.DifficultyEasy, 10)
		require.ErrorIs(t, err, boom)
	}
	require.EqualValues(t, 2, failing.calls.Load(), "expected failures uncached")
}

func TestQuestionCacheSharedFetchSurvivesCancelledCaller(t *testing.T) {
	source := newGatedSource(NewStaticSource(SampleQuestions()))
	cache := NewQuestionCache(source, time.Minute)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leader := make(chan error, 1)
	go func() {
		_, err := cache.FetchQuestions(leaderCtx, 9, domain.DifficultyEasy, 10)
		leader <- err
	}()
	<-source.started

	type result struct {
		questions []domain.RawQuestion
		err       error
	}
	follower := make(chan result, 1)
	go func() {
		questions, err := cache.FetchQuestions(context.Background(), 9, domain.DifficultyEasy, 10)
		follower <- result{questions, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelLeader()
	require.ErrorIs(t, <-leader, context.Canceled)

	close(source.release)
	got := <-follower
	require.NoError(t, got.err)
	require.Len(t, got.questions, 4)
	require.EqualValues(t, 1, source.calls.Load())
	require.False(t, source.sawCancel.Load(), "shared fetch must not follow the leader's context")

	cached, err := cache.FetchQuestions(context.Background(), 9, domain.DifficultyEasy, 10)
	require.NoError(t, err)
	require.Len(t, cached, 4)
	require.EqualValues(t, 1, source.calls.Load())
}

func TestStaticSourceLimitsCount(t *testing.T) {
	source := NewStaticSource(SampleQuestions())
	questions, err := source.FetchQuestions(context.Background(), 9, domain.DifficultyMedium, 2)
	require.NoError(t, err)
	require.Len(t, questions, 2)
}

type countingSource struct {
	source *StaticSource
	err    error
	calls  atomic.Int32
}

func (s *countingSource) FetchQuestions(ctx context.Context, category int, difficulty domain.Difficulty, count int) ([]domain.RawQuestion, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.source.FetchQuestions(ctx, category, difficulty, count)
}

// gatedSource holds each fetch until release is closed or its context ends.
type gatedSource struct {
	source    *StaticSource
	started   chan struct{}
	release   chan struct{}
	calls     atomic.Int32
	sawCancel atomic.Bool
}

func newGatedSource(source *StaticSource) *gatedSource {
	return &gatedSource{source: source, started: make(chan struct{}, 4), release: make(chan struct{})}
}

func (s *gatedSource) FetchQuestions(ctx context.Context, category int, difficulty domain.Difficulty, count int) ([]domain.RawQuestion, error) {
	s.calls.Add(1)
	s.started <- struct{}{}
	select {
	case <-s.release:
		return s.source.FetchQuestions(ctx, category, difficulty, count)
	case <-ctx.Done():
		s.sawCancel.Store(true)
		return nil, ctx.Err()
	}
}
