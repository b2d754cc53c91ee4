package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

// sharedFetchTimeout bounds a de-duplicated fetch, which no longer follows
// the context of the caller that started it.
const sharedFetchTimeout = 30 * time.Second

// QuestionCache caches question batches with TTL to avoid hammering the upstream source.
// Failed and empty fetches are not cached.
type QuestionCache struct {
	source app.QuestionSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedBatch
}

type cachedBatch struct {
	questions []domain.RawQuestion
	expiresAt time.Time
}

func NewQuestionCache(source app.QuestionSource, ttl time.Duration) *QuestionCache {
	return NewQuestionCacheWithClock(source, ttl, time.Now)
}

// NewQuestionCacheWithClock allows deterministic expiry in tests.
func NewQuestionCacheWithClock(source app.QuestionSource, ttl time.Duration, clock func() time.Time) *QuestionCache {
	return &QuestionCache{
		source: source,
		ttl:    ttl,
		clock:  clock,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBatch),
	}
}

func (c *QuestionCache) FetchQuestions(ctx context.Context, category int, difficulty domain.Difficulty, count int) ([]domain.RawQuestion, error) {
	key := batchKey(category, difficulty, count)
	if questions, ok := c.lookup(key); ok {
		return questions, nil
	}

	// The shared fetch outlives any single caller; each caller only stops waiting.
	results := c.sf.DoChan(key, func() (interface{}, error) {
		if questions, ok := c.lookup(key); ok {
			return questions, nil
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		questions, err := c.source.FetchQuestions(fetchCtx, category, difficulty, count)
		if err != nil {
			return nil, err
		}
		if len(questions) > 0 {
			c.mu.Lock()
			c.cache[key] = cachedBatch{
				questions: questions,
				expiresAt: c.clock().Add(c.ttlWithJitter()),
			}
			c.mu.Unlock()
		}
		return questions, nil
	})

	select {
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.RawQuestion), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *QuestionCache) lookup(key string) ([]domain.RawQuestion, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[key]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return nil, false
	}
	return entry.questions, true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func batchKey(category int, difficulty domain.Difficulty, count int) string {
	return fmt.Sprintf("%d:%s:%d", category, difficulty, count)
}
