package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/logger"
)

// Question sources selectable with quiz.source.
const (
	SourceOpenTDB  = "opentdb"
	SourcePostgres = "postgres"
	SourceStatic   = "static"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log   logger.Config `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	OpenTDB struct {
		BaseURL      string `yaml:"baseURL"`
		Timeout      string `yaml:"timeout"`
		MaxRetries   *int   `yaml:"maxRetries"`
		RetryBackoff string `yaml:"retryBackoff"`
	} `yaml:"opentdb"`
	Quiz struct {
		Source          string             `yaml:"source"`
		QuestionCount   int                `yaml:"questionCount"`
		QuestionSeconds int                `yaml:"questionSeconds"`
		TickInterval    string             `yaml:"tickInterval"`
		OrderedEvery    *int               `yaml:"orderedEvery"`
		CacheTTL        string             `yaml:"cacheTTL"`
		Media           domain.MediaAssets `yaml:"media"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Quiz.Source == "" {
		c.Quiz.Source = SourceOpenTDB
	}
	if c.Quiz.QuestionCount <= 0 {
		c.Quiz.QuestionCount = 10
	}
	if c.Quiz.QuestionSeconds <= 0 {
		c.Quiz.QuestionSeconds = 60
	}
	if c.Quiz.OrderedEvery == nil {
		every := 3
		c.Quiz.OrderedEvery = &every
	}
	if c.OpenTDB.MaxRetries == nil {
		retries := 3
		c.OpenTDB.MaxRetries = &retries
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
