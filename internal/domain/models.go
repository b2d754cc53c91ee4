package domain

import "strings"

// Difficulty is the trivia difficulty requested from a question source.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the supported difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// QuizConfig is chosen once when a session starts and never changes afterwards.
type QuizConfig struct {
	Category   int        `json:"category"`
	Difficulty Difficulty `json:"difficulty"`
}

// RawQuestion is a trivia record as delivered by a question source.
// Prompt may still contain HTML entities.
type RawQuestion struct {
	Prompt           string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// Media is an asset shown alongside a question.
type Media struct {
	Kind        MediaKind `json:"kind"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
}

// MediaAssets are the asset locations attached to questions by position.
// ImageURL may contain a single %d verb which receives the question position.
type MediaAssets struct {
	ImageURL string `yaml:"imageURL"`
	AudioURL string `yaml:"audioURL"`
	VideoURL string `yaml:"videoURL"`
}

// InteractionMode selects how a question is answered.
type InteractionMode string

const (
	ModeMultipleChoice  InteractionMode = "multiple_choice"
	ModeOrderedSequence InteractionMode = "ordered_sequence"
)

// Question is a normalized question owned by a session. Options are shuffled
// once at construction and never reordered.
type Question struct {
	ID            int             `json:"id"`
	Prompt        string          `json:"prompt"`
	Options       []string        `json:"options"`
	CorrectAnswer string          `json:"-"`
	Media         *Media          `json:"media,omitempty"`
	Mode          InteractionMode `json:"mode"`
}

// Answer is a submitted response. Choice is used for multiple choice
// questions, Sequence for ordered sequence questions.
type Answer struct {
	Choice   string   `json:"choice,omitempty"`
	Sequence []string `json:"sequence,omitempty"`
}

// Matches reports whether the answer is exactly the expected text.
// A sequence matches only when it holds that single item.
func (a Answer) Matches(correct string) bool {
	if len(a.Sequence) > 0 {
		return len(a.Sequence) == 1 && a.Sequence[0] == correct
	}
	return a.Choice == correct
}

// Empty reports whether nothing was chosen.
func (a Answer) Empty() bool {
	return a.Choice == "" && len(a.Sequence) == 0
}

// String renders the answer for review output.
func (a Answer) String() string {
	if len(a.Sequence) > 0 {
		return strings.Join(a.Sequence, ", ")
	}
	return a.Choice
}

// Phase is the coarse state of a quiz session.
type Phase string

const (
	PhaseConfiguring   Phase = "configuring"
	PhaseLoading       Phase = "loading"
	PhaseError         Phase = "error"
	PhaseAwaitingStart Phase = "awaiting_start"
	PhaseInProgress    Phase = "in_progress"
	PhaseCompleted     Phase = "completed"
)

// NotAnswered marks review entries for questions the user skipped.
const NotAnswered = "Not answered"

// NoticeNoQuestions is shown when a fetch succeeded but returned nothing usable.
const NoticeNoQuestions = "no questions available for this category and difficulty"

// ReviewEntry compares the submitted and correct answer of one question.
type ReviewEntry struct {
	Position      int    `json:"position"`
	Prompt        string `json:"prompt"`
	Submitted     string `json:"submitted"`
	Answered      bool   `json:"answered"`
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer"`
}

// SessionView is the read-only projection handed to presentation layers.
type SessionView struct {
	SessionID        string        `json:"sessionId"`
	Phase            Phase         `json:"phase"`
	Config           *QuizConfig   `json:"config,omitempty"`
	Question         *Question     `json:"question,omitempty"`
	Index            int           `json:"index"`
	Total            int           `json:"total"`
	SecondsRemaining int           `json:"secondsRemaining"`
	Selected         *Answer       `json:"selected,omitempty"`
	ErrorMessage     string        `json:"errorMessage,omitempty"`
	Notice           string        `json:"notice,omitempty"`
	Score            *int          `json:"score,omitempty"`
	Review           []ReviewEntry `json:"review,omitempty"`
}
