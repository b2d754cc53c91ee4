package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
)

func TestQuestionCacheCachesInRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client := newClient(mr)
	source := &countingSource{source: memory.NewStaticSource(memory.SampleQuestions())}
	cache := NewQuestionCache(client, source, time.Minute, nil)

	questions, err := cache.FetchQuestions(context.Background(), 9, domain.DifficultyMedium, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, source.calls.Load())
	require.True(t, mr.Exists("quiz:questions:9:medium:10"), "expected batch stored in redis")

	// Second call should hit cache, source not incremented.
	cached, err := cache.FetchQuestions(context.Background(), 9, domain.DifficultyMedium, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, source.calls.Load(), "expected cache hit")
	require.Equal(t, questions, cached)
}

func TestQuestionCacheDoesNotStoreEmptyBatches(t *testing.T) {
	mr := miniredis.RunT(t)

	source := &countingSource{source: memory.NewStaticSource(nil)}
	cache := NewQuestionCache(newClient(mr), source, time.Minute, nil)

	questions, err := cache.FetchQuestions(context.Background(), 42, domain.DifficultyHard, 10)
	require.NoError(t, err)
	require.Empty(t, questions)
	require.False(t, mr.Exists("quiz:questions:42:hard:10"), "expected empty batch not cached")
}

func TestQuestionCacheFallsBackWhenRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := newClient(mr)
	mr.Close()

	source := &countingSource{source: memory.NewStaticSource(memory.SampleQuestions())}
	cache := NewQuestionCache(client, source, time.Minute, nil)

	questions, err := cache.FetchQuestions(context.Background(), 9, domain.DifficultyEasy, 10)
	require.NoError(t, err, "expected fallback to source")
	require.NotEmpty(t, questions)
	require.EqualValues(t, 1, source.calls.Load())
}

func TestQuestionCacheSharedFetchSurvivesCancelledCaller(t *testing.T) {
	mr := miniredis.RunT(t)
	source := &gatedSource{
		source:  memory.NewStaticSource(memory.SampleQuestions()),
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
	cache := NewQuestionCache(newClient(mr), source, time.Minute, nil)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leader := make(chan error, 1)
	go func() {
		_, err := cache.FetchQuestions(leaderCtx, 9, domain.DifficultyHard, 10)
		leader <- err
	}()
	<-source.started

	follower := make(chan error, 1)
	go func() {
		_, err := cache.FetchQuestions(context.Background(), 9, domain.DifficultyHard, 10)
		follower <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelLeader()
	require.ErrorIs(t, <-leader, context.Canceled)

	close(source.release)
	require.NoError(t, <-follower)
	require.EqualValues(t, 1, source.calls.Load())
	require.False(t, source.sawCancel.Load(), "shared fetch must not follow the leader's context")
	require.True(t, mr.Exists("quiz:questions:9:hard:10"), "expected batch stored after the leader left")
}

type countingSource struct {
	source *memory.StaticSource
	calls  atomic.Int32
}

func (s *countingSource) FetchQuestions(ctx context.Context, category int, difficulty domain.Difficulty, count int) ([]domain.RawQuestion, error) {
	s.calls.Add(1)
	return s.source.FetchQuestions(ctx, category, difficulty, count)
}

// gatedSource holds each fetch until release is closed or its context ends.
type gatedSource struct {
	source    *memory.StaticSource
	started   chan struct{}
	release   chan struct{}
	calls     atomic.Int32
	sawCancel atomic.Bool
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

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
