package memory

import (
	"context"

	"trivia-quiz-service/internal/domain"
)

// StaticSource is a question source backed by an in-memory map (useful for tests/demos).
// Unknown category/difficulty pairs yield no questions rather than an error.
type StaticSource struct {
	banks map[domain.QuizConfig][]domain.RawQuestion
}

func NewStaticSource(banks map[domain.QuizConfig][]domain.RawQuestion) *StaticSource {
	return &StaticSource{banks: banks}
}

func (s *StaticSource) FetchQuestions(_ context.Context, category int, difficulty domain.Difficulty, count int) ([]domain.RawQuestion, error) {
	bank := s.banks[domain.QuizConfig{Category: category, Difficulty: difficulty}]
	if count > 0 && count < len(bank) {
		bank = bank[:count]
	}
	out := make([]domain.RawQuestion, len(bank))
	copy(out, bank)
	return out, nil
}

// SampleQuestions provides a small general-knowledge bank for offline runs.
func SampleQuestions() map[domain.QuizConfig][]domain.RawQuestion {
	general := []domain.RawQuestion{
		{
			Prompt:           "What is the capital of Australia?",
			CorrectAnswer:    "Canberra",
			IncorrectAnswers: []string{"Sydney", "Melbourne", "Perth"},
		},
		{
			Prompt:           "Which planet is known as the &quot;Red Planet&quot;?",
			CorrectAnswer:    "Mars",
			IncorrectAnswers: []string{"Venus", "Jupiter", "Mercury"},
		},
		{
			Prompt:           "How many sides does a hexagon have?",
			CorrectAnswer:    "6",
			IncorrectAnswers: []string{"5", "7", "8"},
		},
		{
			Prompt:           "Who wrote &#039;Romeo and Juliet&#039;?",
			CorrectAnswer:    "William Shakespeare",
			IncorrectAnswers: []string{"Charles Dickens", "Jane Austen", "Mark Twain"},
		},
	}
	return map[domain.QuizConfig][]domain.RawQuestion{
		{Category: 9, Difficulty: domain.DifficultyEasy}:   general,
		{Category: 9, Difficulty: domain.DifficultyMedium}: general,
		{Category: 9, Difficulty: domain.DifficultyHard}:   general,
	}
}
