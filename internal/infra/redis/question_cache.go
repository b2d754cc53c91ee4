package redis

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

// sharedFetchTimeout bounds a de-duplicated fetch, which no longer follows
// the context of the caller that started it.
const sharedFetchTimeout = 30 * time.Second

// QuestionCache caches raw question batches in Redis and falls back to the
// wrapped source on a miss. Batches are stored as JSON:
// SET quiz:questions:{category}:{difficulty}:{count} <json> EX ttl
type QuestionCache struct {
	client *redis.Client
	source app.QuestionSource
	ttl    time.Duration
	log    *zap.Logger
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, source app.QuestionSource, ttl time.Duration, log *zap.Logger) *QuestionCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuestionCache{
		client: client,
		source: source,
		ttl:    ttl,
		log:    log,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) FetchQuestions(ctx context.Context, category int, difficulty domain.Difficulty, count int) ([]domain.RawQuestion, error) {
	key := c.key(category, difficulty, count)
	if questions, ok := c.lookup(ctx, key); ok {
		return questions, nil
	}

	results := c.sf.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()

		// Re-check cache in case another goroutine filled it.
		if questions, ok := c.lookup(fetchCtx, key); ok {
			return questions, nil
		}

		questions, err := c.source.FetchQuestions(fetchCtx, category, difficulty, count)
		if err != nil {
			return nil, err
		}
		if len(questions) == 0 {
			return questions, nil
		}

		data, err := json.Marshal(questions)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(fetchCtx, key, data, c.ttlWithJitter()).Err(); err != nil {
			c.log.Warn("question cache write failed", zap.String("key", key), zap.Error(err))
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

// lookup treats every Redis failure as a miss so a broken cache never blocks a quiz.
func (c *QuestionCache) lookup(ctx context.Context, key string) ([]domain.RawQuestion, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("question cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var questions []domain.RawQuestion
	if err := json.Unmarshal(data, &questions); err != nil || len(questions) == 0 {
		return nil, false
	}
	return questions, true
}

func (c *QuestionCache) key(category int, difficulty domain.Difficulty, count int) string {
	return "quiz:questions:" + strconv.Itoa(category) + ":" + string(difficulty) + ":" + strconv.Itoa(count)
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
