package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/infra/memory"
	"trivia-quiz-service/internal/infra/opentdb"
	pgsource "trivia-quiz-service/internal/infra/postgres"
	rediscache "trivia-quiz-service/internal/infra/redis"
	"trivia-quiz-service/internal/logger"
)

// runtime holds the shared dependencies of the serving commands.
type runtime struct {
	cfg     config.Config
	log     *zap.Logger
	redis   *redis.Client
	pool    *pgxpool.Pool
	source  app.QuestionSource
	closers []func() error
}

// loadConfig falls back to defaults when the default config path does not exist.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

func newRuntime(ctx context.Context, configPath string) (*runtime, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: log}
	rt.closers = append(rt.closers, func() error {
		_ = log.Sync()
		return nil
	})

	if cfg.Redis.Addr != "" {
		rt.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, rt.redis.Close)
	}

	if cfg.Postgres.URL != "" {
		rt.pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, multierror.Append(fmt.Errorf("connect postgres: %w", err), rt.Close())
		}
		rt.closers = append(rt.closers, func() error {
			rt.pool.Close()
			return nil
		})
	}

	source, err := rt.questionSource()
	if err != nil {
		return nil, multierror.Append(err, rt.Close())
	}
	rt.source = source
	return rt, nil
}

// questionSource builds the configured source and wraps it in a cache.
func (rt *runtime) questionSource() (app.QuestionSource, error) {
	var (
		source  app.QuestionSource
		cacheIt = true
	)
	switch rt.cfg.Quiz.Source {
	case config.SourceOpenTDB:
		source = rt.openTDB()
	case config.SourcePostgres:
		if rt.pool == nil {
			return nil, fmt.Errorf("quiz source %q requires postgres.url", config.SourcePostgres)
		}
		// random draws from the bank must not be frozen by the cache
		source, cacheIt = pgsource.NewQuestionSource(rt.pool), false
	case config.SourceStatic:
		source, cacheIt = memory.NewStaticSource(memory.SampleQuestions()), false
	default:
		return nil, fmt.Errorf("unknown quiz source %q", rt.cfg.Quiz.Source)
	}

	ttl := config.TTLDuration(rt.cfg.Quiz.CacheTTL, 0)
	if !cacheIt || ttl <= 0 {
		return source, nil
	}
	if rt.redis != nil {
		return rediscache.NewQuestionCache(rt.redis, source, ttl, rt.log), nil
	}
	return memory.NewQuestionCache(source, ttl), nil
}

func (rt *runtime) openTDB() *opentdb.Client {
	return opentdb.NewClient(opentdb.Config{
		BaseURL:      rt.cfg.OpenTDB.BaseURL,
		Timeout:      config.TTLDuration(rt.cfg.OpenTDB.Timeout, opentdb.DefaultTimeout),
		MaxRetries:   *rt.cfg.OpenTDB.MaxRetries,
		RetryBackoff: config.TTLDuration(rt.cfg.OpenTDB.RetryBackoff, 0),
	}, rt.log)
}

func (rt *runtime) sessionOptions() app.SessionOptions {
	return app.SessionOptions{
		QuestionCount:   rt.cfg.Quiz.QuestionCount,
		QuestionSeconds: rt.cfg.Quiz.QuestionSeconds,
		TickInterval:    config.TTLDuration(rt.cfg.Quiz.TickInterval, time.Second),
		OrderedEvery:    *rt.cfg.Quiz.OrderedEvery,
		Media:           rt.cfg.Quiz.Media,
	}
}

func (rt *runtime) sessionStore() app.SessionRepository {
	if rt.redis != nil {
		return rediscache.NewSessionStore(rt.redis, config.TTLDuration(rt.cfg.Redis.TTL, 30*time.Minute))
	}
	return memory.NewSessionStore()
}

// Close releases every resource in reverse order and reports all failures.
func (rt *runtime) Close() error {
	var result *multierror.Error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	rt.closers = nil
	return result.ErrorOrNil()
}
