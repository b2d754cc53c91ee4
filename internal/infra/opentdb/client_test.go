package opentdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"trivia-quiz-service/internal/domain"
)

const sampleBody = `{"response_code":0,"results":[
 {"type":"multiple","difficulty":"medium","category":"General Knowledge",
  "question":"What does &quot;HTTP&quot; stand for?",
  "correct_answer":"Hypertext Transfer Protocol",
  "incorrect_answers":["High Transfer Text Protocol","Hyperlink Text Protocol","Host Transfer Protocol"]}]}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL, Timeout: time.Second, MaxRetries: 2, RetryBackoff: time.Millisecond}, nil)
}

func TestFetchQuestions_Success(t *testing.T) {
	var requested atomic.Value
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requested.Store(*r.URL)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleBody))
	})

	questions, err := client.FetchQuestions(context.Background(), 9, domain.DifficultyMedium, 10)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	require.Equal(t, "What does &quot;HTTP&quot; stand for?", questions[0].Prompt)
	require.Equal(t, "Hypertext Transfer Protocol", questions[0].CorrectAnswer)
	require.Len(t, questions[0].IncorrectAnswers, 3)

	u := requested.Load().(url.URL)
	require.Equal(t, "/api.php", u.Path)
	q := u.Query()
	require.Equal(t, []string{"10"}, q["amount"])
	require.Equal(t, []string{"9"}, q["category"])
	require.Equal(t, []string{"medium"}, q["difficulty"])
	require.Equal(t, []string{"multiple"}, q["type"])
}

func TestFetchQuestions_NoResultsIsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response_code":1,"results":[]}`))
	})

	questions, err := client.FetchQuestions(context.Background(), 99, domain.DifficultyHard, 10)
	require.NoError(t, err)
	require.NotNil(t, questions)
	require.Empty(t, questions)
}

func TestFetchQuestions_RateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response_code":5,"results":[]}`))
	})

	_, err := client.FetchQuestions(context.Background(), 9, domain.DifficultyEasy, 10)
	require.ErrorContains(t, err, "rate limit")
}

func TestFetchQuestions_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(sampleBody))
	})

	questions, err := client.FetchQuestions(context.Background(), 9, domain.DifficultyMedium, 10)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	require.EqualValues(t, 3, calls.Load())
}

func TestFetchQuestions_NonSuccessStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.FetchQuestions(context.Background(), 9, domain.DifficultyMedium, 10)
	require.ErrorContains(t, err, "status 404")
}

func TestFetchQuestions_MalformedPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response_code":`))
	})

	_, err := client.FetchQuestions(context.Background(), 9, domain.DifficultyMedium, 10)
	require.ErrorContains(t, err, "decode")
}
