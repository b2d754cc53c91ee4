package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

// NewPlayCmd runs a single-player quiz in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		category   int
		difficulty string
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			service := app.NewQuizService(rt.sessionStore(), rt.source, rt.sessionOptions(), rt.log)
			cfg := domain.QuizConfig{Category: category, Difficulty: domain.Difficulty(difficulty)}
			return play(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), service, cfg)
		},
	}
	cmd.Flags().IntVar(&category, "category", 9, "Open Trivia DB category id")
	cmd.Flags().StringVar(&difficulty, "difficulty", string(domain.DifficultyMedium), "easy, medium or hard")
	return cmd
}

const playHelp = "answer with option numbers (space separated for ordered questions), n=next, p=previous, r=retry/restart, q=quit"

// play drives one session from line-based input. Start and Retry block until
// questions are loaded, so input is only read once the quiz can accept it.
func play(ctx context.Context, in io.Reader, out io.Writer, service *app.QuizService, cfg domain.QuizConfig) error {
	out = &lockedWriter{w: out}
	session := service.Open(ctx)
	defer service.Exit(ctx, session.ID())

	updates, cancel := session.Subscribe()
	renderDone := make(chan struct{})
	go func() {
		defer close(renderDone)
		renderViews(out, updates)
	}()
	finish := func() {
		cancel()
		<-renderDone
	}

	if err := startQuiz(ctx, session, cfg); err != nil {
		finish()
		return err
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "q":
			finish()
			return nil
		case "n":
			session.Next()
		case "p":
			session.Previous()
		case "r":
			if session.Snapshot().Phase == domain.PhaseError {
				if err := session.Retry(ctx); err != nil && !errors.Is(err, domain.ErrFetchFailed) {
					finish()
					return err
				}
				continue
			}
			session.Restart()
			if err := startQuiz(ctx, session, cfg); err != nil {
				finish()
				return err
			}
		default:
			answer, ok := parseAnswer(line, session.Snapshot())
			if !ok {
				fmt.Fprintln(out, playHelp)
				continue
			}
			session.SubmitAnswer(answer)
		}
	}
	finish()
	return scanner.Err()
}

// startQuiz treats fetch failures and empty results as recoverable: the
// rendered state tells the player what happened.
func startQuiz(ctx context.Context, session *app.Session, cfg domain.QuizConfig) error {
	err := session.Start(ctx, cfg)
	if err == nil || errors.Is(err, domain.ErrFetchFailed) || errors.Is(err, domain.ErrNoQuestions) {
		return nil
	}
	return err
}

func parseAnswer(line string, view domain.SessionView) (domain.Answer, bool) {
	if view.Question == nil {
		return domain.Answer{}, false
	}
	fields := strings.Fields(line)
	picked := make([]string, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 || n > len(view.Question.Options) {
			return domain.Answer{}, false
		}
		picked = append(picked, view.Question.Options[n-1])
	}
	if view.Question.Mode == domain.ModeOrderedSequence {
		return domain.Answer{Sequence: picked}, true
	}
	if len(picked) != 1 {
		return domain.Answer{}, false
	}
	return domain.Answer{Choice: picked[0]}, true
}

// renderViews prints a view whenever something other than the clock changed.
func renderViews(out io.Writer, updates <-chan domain.SessionView) {
	var last string
	for view := range updates {
		key := renderKey(view)
		if key == last {
			continue
		}
		last = key
		renderView(out, view)
	}
}

func renderKey(v domain.SessionView) string {
	selected := ""
	if v.Selected != nil {
		selected = v.Selected.String()
	}
	return fmt.Sprintf("%s|%d|%s|%s|%s", v.Phase, v.Index, selected, v.ErrorMessage, v.Notice)
}

func renderView(out io.Writer, v domain.SessionView) {
	switch v.Phase {
	case domain.PhaseLoading:
		fmt.Fprintln(out, "Loading questions...")
	case domain.PhaseError:
		fmt.Fprintf(out, "Error: %s\nEnter r to try again or q to quit.\n", v.ErrorMessage)
	case domain.PhaseAwaitingStart:
		fmt.Fprintf(out, "%s. Enter r to start over or q to quit.\n", capitalize(v.Notice))
	case domain.PhaseInProgress:
		q := v.Question
		mode := "Multiple Choice"
		if q.Mode == domain.ModeOrderedSequence {
			mode = "Ordered Sequence"
		}
		fmt.Fprintf(out, "\nQuestion %d/%d [%s] %ds\n%s\n", v.Index+1, v.Total, mode, v.SecondsRemaining, q.Prompt)
		if q.Media != nil {
			fmt.Fprintf(out, "(%s: %s)\n", q.Media.Kind, q.Media.URL)
		}
		for i, option := range q.Options {
			fmt.Fprintf(out, "  %d) %s\n", i+1, option)
		}
		if v.Selected != nil {
			fmt.Fprintf(out, "Answer selected: %s\n", v.Selected.String())
		}
	case domain.PhaseCompleted:
		fmt.Fprintf(out, "\nQuiz completed! Score: %d/%d\n", *v.Score, v.Total)
		for _, entry := range v.Review {
			fmt.Fprintf(out, "%d. %s\n   your answer: %s\n   correct answer: %s\n",
				entry.Position, entry.Prompt, entry.Submitted, entry.CorrectAnswer)
		}
		fmt.Fprintln(out, "Enter r to restart or q to quit.")
	}
}

// lockedWriter lets the renderer and the input loop share one output.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
