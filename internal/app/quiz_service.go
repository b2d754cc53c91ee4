package app

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"trivia-quiz-service/internal/domain"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Save(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuizService routes presentation intents to the owning session.
type QuizService struct {
	sessions SessionRepository
	source   QuestionSource
	opts     SessionOptions
	log      *zap.Logger
}

func NewQuizService(store SessionRepository, source QuestionSource, opts SessionOptions, log *zap.Logger) *QuizService {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuizService{sessions: store, source: source, opts: opts, log: log}
}

// Open creates a new session in the configuring phase.
func (s *QuizService) Open(_ context.Context) *Session {
	session := NewSession(uuid.NewString(), s.source, s.opts, s.log)
	s.sessions.Save(session)
	s.log.Debug("session opened", zap.String("session_id", session.ID()))
	return session
}

// Start configures the session and loads its questions. It blocks for the fetch.
func (s *QuizService) Start(ctx context.Context, sessionID string, cfg domain.QuizConfig) error {
	session, err := s.get(sessionID)
	if err != nil {
		return err
	}
	return session.Start(ctx, cfg)
}

// Retry re-fetches questions after a failed start.
func (s *QuizService) Retry(ctx context.Context, sessionID string) error {
	session, err := s.get(sessionID)
	if err != nil {
		return err
	}
	return session.Retry(ctx)
}

// SubmitAnswer records an answer for the current question of the session.
func (s *QuizService) SubmitAnswer(_ context.Context, sessionID string, answer domain.Answer) error {
	session, err := s.get(sessionID)
	if err != nil {
		return err
	}
	session.SubmitAnswer(answer)
	return nil
}

func (s *QuizService) Next(_ context.Context, sessionID string) error {
	session, err := s.get(sessionID)
	if err != nil {
		return err
	}
	session.Next()
	return nil
}

func (s *QuizService) Previous(_ context.Context, sessionID string) error {
	session, err := s.get(sessionID)
	if err != nil {
		return err
	}
	session.Previous()
	return nil
}

func (s *QuizService) Restart(_ context.Context, sessionID string) error {
	session, err := s.get(sessionID)
	if err != nil {
		return err
	}
	session.Restart()
	return nil
}

// Exit discards the session. Exiting an unknown session is a no-op.
func (s *QuizService) Exit(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
	s.log.Debug("session closed", zap.String("session_id", sessionID))
}

// Snapshot returns the current view of a session.
func (s *QuizService) Snapshot(_ context.Context, sessionID string) (domain.SessionView, error) {
	session, err := s.get(sessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	return session.Snapshot(), nil
}

// Subscribe returns a channel that receives every state change of a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan domain.SessionView, func(), error) {
	session, err := s.get(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

func (s *QuizService) get(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}
