package app

import "trivia-quiz-service/internal/domain"

// Score counts the questions whose answer exactly matches the correct answer.
func Score(questions []domain.Question, answers map[int]domain.Answer) int {
	score := 0
	for i, q := range questions {
		if answer, ok := answers[i]; ok && answer.Matches(q.CorrectAnswer) {
			score++
		}
	}
	return score
}

// Review projects one entry per question, unanswered ones included.
func Review(questions []domain.Question, answers map[int]domain.Answer) []domain.ReviewEntry {
	entries := make([]domain.ReviewEntry, 0, len(questions))
	for i, q := range questions {
		entry := domain.ReviewEntry{
			Position:      i + 1,
			Prompt:        q.Prompt,
			Submitted:     domain.NotAnswered,
			CorrectAnswer: q.CorrectAnswer,
		}
		if answer, ok := answers[i]; ok {
			entry.Submitted = answer.String()
			entry.Answered = true
			entry.Correct = answer.Matches(q.CorrectAnswer)
		}
		entries = append(entries, entry)
	}
	return entries
}
