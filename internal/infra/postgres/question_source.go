package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"trivia-quiz-service/internal/domain"
)

// QuestionSource draws random questions from the Postgres question bank.
type QuestionSource struct {
	pool *pgxpool.Pool
}

func NewQuestionSource(pool *pgxpool.Pool) *QuestionSource {
	return &QuestionSource{pool: pool}
}

func (s *QuestionSource) FetchQuestions(ctx context.Context, category int, difficulty domain.Difficulty, count int) ([]domain.RawQuestion, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT prompt, correct_answer, incorrect_answers
		FROM questions
		WHERE category = $1 AND difficulty = $2
		ORDER BY random()
		LIMIT $3`, category, string(difficulty), count)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	questions := make([]domain.RawQuestion, 0, count)
	for rows.Next() {
		var (
			q         domain.RawQuestion
			incorrect []byte
		)
		if err := rows.Scan(&q.Prompt, &q.CorrectAnswer, &incorrect); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(incorrect, &q.IncorrectAnswers); err != nil {
			return nil, fmt.Errorf("unmarshal incorrect answers: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	return questions, nil
}
