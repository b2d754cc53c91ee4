package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"trivia-quiz-service/internal/domain"
)

// QuestionSource retrieves raw trivia questions. A source must return an
// error when retrieval fails and an empty slice when it succeeded with no results.
type QuestionSource interface {
	FetchQuestions(ctx context.Context, category int, difficulty domain.Difficulty, count int) ([]domain.RawQuestion, error)
}

const (
	DefaultQuestionCount   = 10
	DefaultQuestionSeconds = 60
	DefaultTickInterval    = time.Second
)

// SessionOptions tune a session. Zero values fall back to the defaults above.
type SessionOptions struct {
	QuestionCount   int
	QuestionSeconds int
	TickInterval    time.Duration
	OrderedEvery    int
	Media           domain.MediaAssets
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.QuestionCount <= 0 {
		o.QuestionCount = DefaultQuestionCount
	}
	if o.QuestionSeconds <= 0 {
		o.QuestionSeconds = DefaultQuestionSeconds
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.Media == (domain.MediaAssets{}) {
		o.Media = DefaultMediaAssets
	}
	return o
}

// Session is a single quiz attempt. It is the only writer of its state; every
// intent, timer tick and fetch completion is applied under mu, one at a time.
type Session struct {
	id         string
	source     QuestionSource
	normalizer *Normalizer
	opts       SessionOptions
	log        *zap.Logger

	mu               sync.Mutex
	phase            domain.Phase
	config           domain.QuizConfig
	questions        []domain.Question
	index            int
	answers          map[int]domain.Answer
	secondsRemaining int
	errorMessage     string
	notice           string
	score            int
	review           []domain.ReviewEntry
	generation       uint64
	timer            *countdown
	timerToken       uint64
	closed           bool
	subscribers      map[chan domain.SessionView]struct{}
}

// NewSession creates a session in the configuring phase.
func NewSession(id string, source QuestionSource, opts SessionOptions, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &Session{
		id:          id,
		source:      source,
		normalizer:  NewNormalizer(opts.OrderedEvery, opts.Media),
		opts:        opts,
		log:         log.With(zap.String("session_id", id)),
		phase:       domain.PhaseConfiguring,
		answers:     make(map[int]domain.Answer),
		subscribers: make(map[chan domain.SessionView]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Start requests questions for cfg and blocks until they are loaded or the
// fetch fails. It is ignored unless the session is configuring or awaiting a
// new configuration, so a second Start while loading never issues a second fetch.
func (s *Session) Start(ctx context.Context, cfg domain.QuizConfig) error {
	s.mu.Lock()
	if s.closed || (s.phase != domain.PhaseConfiguring && s.phase != domain.PhaseAwaitingStart) {
		s.ignoredLocked("start")
		s.mu.Unlock()
		return nil
	}
	if !cfg.Difficulty.Valid() {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", domain.ErrInvalidDifficulty, cfg.Difficulty)
	}
	s.config = cfg
	s.notice = ""
	gen := s.enterLoadingLocked()
	s.mu.Unlock()

	return s.load(ctx, gen, cfg)
}

// Retry re-issues the fetch with the stored configuration after a failure.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	if s.closed || s.phase != domain.PhaseError {
		s.ignoredLocked("retry")
		s.mu.Unlock()
		return nil
	}
	cfg := s.config
	gen := s.enterLoadingLocked()
	s.mu.Unlock()

	return s.load(ctx, gen, cfg)
}

func (s *Session) enterLoadingLocked() uint64 {
	s.phase = domain.PhaseLoading
	s.errorMessage = ""
	s.broadcastLocked()
	s.log.Debug("loading questions",
		zap.Int("category", s.config.Category),
		zap.String("difficulty", string(s.config.Difficulty)),
	)
	return s.generation
}

func (s *Session) load(ctx context.Context, gen uint64, cfg domain.QuizConfig) error {
	raws, err := s.source.FetchQuestions(ctx, cfg.Category, cfg.Difficulty, s.opts.QuestionCount)
	var questions []domain.Question
	if err == nil {
		questions = s.normalizer.Build(raws)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.generation || s.phase != domain.PhaseLoading {
		s.log.Debug("discarding stale fetch result", zap.Uint64("generation", gen))
		return domain.ErrStaleFetch
	}

	if err != nil {
		if !errors.Is(err, domain.ErrFetchFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
		}
		s.phase = domain.PhaseError
		s.errorMessage = err.Error()
		s.log.Warn("question fetch failed", zap.Error(err))
		s.broadcastLocked()
		return err
	}

	if len(questions) == 0 {
		s.phase = domain.PhaseAwaitingStart
		s.questions = nil
		s.notice = domain.NoticeNoQuestions
		s.log.Info("question source returned no usable questions")
		s.broadcastLocked()
		return domain.ErrNoQuestions
	}

	s.questions = questions
	s.answers = make(map[int]domain.Answer)
	s.index = 0
	s.phase = domain.PhaseInProgress
	s.startQuestionLocked()
	s.log.Debug("quiz started", zap.Int("questions", len(questions)))
	s.broadcastLocked()
	return nil
}

// SubmitAnswer records the answer for the current question, replacing any
// earlier one. An empty answer clears it. Outside of a running quiz it does nothing.
func (s *Session) SubmitAnswer(answer domain.Answer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.phase != domain.PhaseInProgress {
		s.ignoredLocked("answer")
		return
	}
	if answer.Empty() {
		delete(s.answers, s.index)
	} else {
		answer.Sequence = append([]string(nil), answer.Sequence...)
		s.answers[s.index] = answer
	}
	s.broadcastLocked()
}

// Next moves to the following question, completing the quiz after the last one.
func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.phase != domain.PhaseInProgress {
		s.ignoredLocked("next")
		return
	}
	s.advanceLocked()
	s.broadcastLocked()
}

// Previous moves back one question. It does nothing on the first question.
func (s *Session) Previous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.phase != domain.PhaseInProgress || s.index == 0 {
		s.ignoredLocked("previous")
		return
	}
	s.index--
	s.startQuestionLocked()
	s.broadcastLocked()
}

// Restart discards questions, answers and configuration and returns to
// configuring. A fetch still in flight is discarded when it resolves.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.resetLocked()
	s.broadcastLocked()
	s.log.Debug("session restarted", zap.Uint64("generation", s.generation))
}

// Close tears the session down: the countdown stops, pending fetches are
// discarded and subscriber channels are closed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.resetLocked()
	s.closed = true
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Score returns the final score once the quiz is completed.
func (s *Session) Score() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseCompleted {
		return 0, false
	}
	return s.score, true
}

// Review returns the per-question review once the quiz is completed.
func (s *Session) Review() ([]domain.ReviewEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseCompleted {
		return nil, false
	}
	out := make([]domain.ReviewEntry, len(s.review))
	copy(out, s.review)
	return out, true
}

// Snapshot returns the current read-only view.
func (s *Session) Snapshot() domain.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel of views, starting with the current one.
// Slow readers only ever miss intermediate views, never the latest.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.SessionView, func()) {
	ch := make(chan domain.SessionView, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// tick is the countdown callback. Ticks from a replaced countdown are dropped.
func (s *Session) tick(token uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || token != s.timerToken || s.phase != domain.PhaseInProgress {
		return
	}
	s.secondsRemaining--
	if s.secondsRemaining <= 0 {
		s.log.Debug("question timed out", zap.Int("index", s.index))
		s.advanceLocked()
	}
	s.broadcastLocked()
}

func (s *Session) advanceLocked() {
	if s.index < len(s.questions)-1 {
		s.index++
		s.startQuestionLocked()
		return
	}
	s.stopTimerLocked()
	s.secondsRemaining = 0
	s.phase = domain.PhaseCompleted
	s.score = Score(s.questions, s.answers)
	s.review = Review(s.questions, s.answers)
	s.log.Info("quiz completed", zap.Int("score", s.score), zap.Int("total", len(s.questions)))
}

// startQuestionLocked resets the clock and replaces the countdown.
func (s *Session) startQuestionLocked() {
	s.stopTimerLocked()
	s.secondsRemaining = s.opts.QuestionSeconds
	s.timerToken++
	s.timer = startCountdown(s.timerToken, s.opts.TickInterval, s.tick)
}

func (s *Session) stopTimerLocked() {
	if s.timer == nil {
		return
	}
	s.timer.halt()
	s.timer = nil
	s.timerToken++
}

func (s *Session) resetLocked() {
	s.stopTimerLocked()
	s.generation++
	s.phase = domain.PhaseConfiguring
	s.config = domain.QuizConfig{}
	s.questions = nil
	s.answers = make(map[int]domain.Answer)
	s.index = 0
	s.secondsRemaining = 0
	s.errorMessage = ""
	s.notice = ""
	s.score = 0
	s.review = nil
}

func (s *Session) ignoredLocked(intent string) {
	s.log.Debug("ignoring intent", zap.String("intent", intent), zap.String("phase", string(s.phase)))
}

func (s *Session) broadcastLocked() {
	view := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- view:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}

func (s *Session) snapshotLocked() domain.SessionView {
	view := domain.SessionView{
		SessionID:    s.id,
		Phase:        s.phase,
		Total:        len(s.questions),
		ErrorMessage: s.errorMessage,
		Notice:       s.notice,
	}
	if s.phase != domain.PhaseConfiguring {
		cfg := s.config
		view.Config = &cfg
	}
	switch s.phase {
	case domain.PhaseInProgress:
		q := s.questions[s.index]
		q.Options = append([]string(nil), q.Options...)
		view.Question = &q
		view.Index = s.index
		view.SecondsRemaining = s.secondsRemaining
		if answer, ok := s.answers[s.index]; ok {
			view.Selected = &answer
		}
	case domain.PhaseCompleted:
		score := s.score
		view.Score = &score
		view.Review = append([]domain.ReviewEntry(nil), s.review...)
		view.Index = len(s.questions) - 1
	}
	return view
}
