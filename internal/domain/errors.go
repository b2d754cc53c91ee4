package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session does not exist or was closed.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrFetchFailed wraps every failure to retrieve questions. The session can retry.
	ErrFetchFailed = errors.New("failed to fetch questions")
	// ErrNoQuestions means the fetch succeeded but yielded no usable question.
	ErrNoQuestions = errors.New("no questions available")
	// ErrStaleFetch is returned for fetch results discarded after a restart.
	ErrStaleFetch = errors.New("question fetch superseded")
	// ErrInvalidDifficulty rejects a configuration with an unknown difficulty.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
)
