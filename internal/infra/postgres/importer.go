package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"trivia-quiz-service/internal/domain"
)

// QuestionRow is the bun model of the questions table.
type QuestionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID               int64    `bun:"id,pk,autoincrement"`
	Category         int      `bun:"category,notnull"`
	Difficulty       string   `bun:"difficulty,notnull"`
	Prompt           string   `bun:"prompt,notnull"`
	CorrectAnswer    string   `bun:"correct_answer,notnull"`
	IncorrectAnswers []string `bun:"incorrect_answers,type:jsonb,notnull"`
}

// Importer writes fetched questions into the question bank.
type Importer struct {
	db *bun.DB
}

func NewImporter(db *bun.DB) *Importer {
	return &Importer{db: db}
}

// Import stores questions under the given category and difficulty, skipping
// prompts already present. It returns how many rows were inserted.
func (i *Importer) Import(ctx context.Context, category int, difficulty domain.Difficulty, questions []domain.RawQuestion) (int, error) {
	rows := make([]QuestionRow, 0, len(questions))
	for _, q := range questions {
		if strings.TrimSpace(q.Prompt) == "" || strings.TrimSpace(q.CorrectAnswer) == "" {
			continue
		}
		incorrect := q.IncorrectAnswers
		if incorrect == nil {
			incorrect = []string{}
		}
		rows = append(rows, QuestionRow{
			Category:         category,
			Difficulty:       string(difficulty),
			Prompt:           q.Prompt,
			CorrectAnswer:    q.CorrectAnswer,
			IncorrectAnswers: incorrect,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	res, err := i.db.NewInsert().
		Model(&rows).
		On("CONFLICT (category, difficulty, prompt) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("insert questions: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(inserted), nil
}
