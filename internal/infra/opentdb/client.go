package opentdb

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"trivia-quiz-service/internal/domain"
)

const (
	DefaultBaseURL    = "https://opentdb.com"
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 3
)

// Response codes of the Open Trivia DB API.
const (
	codeSuccess       = 0
	codeNoResults     = 1
	codeInvalidParam  = 2
	codeTokenNotFound = 3
	codeTokenEmpty    = 4
	codeRateLimit     = 5
)

// Config configures the client. Zero values fall back to the defaults.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Client fetches multiple choice questions from the Open Trivia DB.
type Client struct {
	http       *req.Client
	maxRetries int
	backoff    time.Duration
	log        *zap.Logger
}

type apiResponse struct {
	ResponseCode int                  `json:"response_code"`
	Results      []domain.RawQuestion `json:"results"`
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	client := req.C().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal)
	return &Client{http: client, maxRetries: cfg.MaxRetries, backoff: cfg.RetryBackoff, log: log}
}

// FetchQuestions implements app.QuestionSource. "No results" is reported as an
// empty slice; every other non-success outcome is an error.
func (c *Client) FetchQuestions(ctx context.Context, category int, difficulty domain.Difficulty, count int) ([]domain.RawQuestion, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"amount":     strconv.Itoa(count),
			"category":   strconv.Itoa(category),
			"difficulty": string(difficulty),
			"type":       "multiple",
		}).
		SetRetryCount(c.maxRetries).
		SetRetryBackoffInterval(c.backoff, 10*c.backoff).
		SetRetryCondition(func(resp *req.Response, err error) bool {
			return err != nil || resp.GetStatusCode() >= http.StatusInternalServerError
		}).
		SetRetryHook(func(resp *req.Response, err error) {
			if err != nil {
				c.log.Warn("opentdb request failed, retrying", zap.Error(err))
			} else {
				c.log.Warn("opentdb request failed, retrying", zap.Int("status", resp.GetStatusCode()))
			}
		}).
		SetHeader("Accept", "application/json").
		Get("/api.php")
	if err != nil {
		return nil, errors.Wrap(err, "opentdb request failed")
	}
	if status := resp.GetStatusCode(); status != http.StatusOK {
		return nil, errors.Errorf("opentdb returned status %d", status)
	}

	data, err := resp.ToBytes()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read opentdb response")
	}
	var payload apiResponse
	if err := json.UnmarshalContext(ctx, data, &payload); err != nil {
		return nil, errors.Wrapf(err, "failed to decode opentdb response: %s", truncate(data, 200))
	}

	switch payload.ResponseCode {
	case codeSuccess:
		return payload.Results, nil
	case codeNoResults:
		return []domain.RawQuestion{}, nil
	case codeInvalidParam:
		return nil, errors.New("opentdb rejected the request parameters")
	case codeTokenNotFound, codeTokenEmpty:
		return nil, errors.Errorf("opentdb session token error (code %d)", payload.ResponseCode)
	case codeRateLimit:
		return nil, errors.New("opentdb rate limit exceeded")
	default:
		return nil, errors.Errorf("opentdb returned unknown response code %d", payload.ResponseCode)
	}
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
