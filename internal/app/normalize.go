package app

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"trivia-quiz-service/internal/domain"
)

// DefaultOrderedEvery makes every third question, starting with the first,
// an ordered sequence question.
const DefaultOrderedEvery = 3

// DefaultMediaAssets mirrors the demo assets of the web client.
var DefaultMediaAssets = domain.MediaAssets{
	ImageURL: "https://picsum.photos/seed/quiz%d/400/300.jpg",
	AudioURL: "https://www.w3schools.com/html/horse.mp3",
	VideoURL: "https://www.w3schools.com/html/mov_bbb.mp4",
}

// Normalizer turns raw source records into session questions.
type Normalizer struct {
	orderedEvery int
	media        domain.MediaAssets

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewNormalizer builds a normalizer. orderedEvery <= 0 disables ordered sequence questions.
func NewNormalizer(orderedEvery int, media domain.MediaAssets) *Normalizer {
	return NewNormalizerWithRand(orderedEvery, media, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewNormalizerWithRand is used by tests that need a reproducible shuffle.
func NewNormalizerWithRand(orderedEvery int, media domain.MediaAssets, rnd *rand.Rand) *Normalizer {
	return &Normalizer{orderedEvery: orderedEvery, media: media, rnd: rnd}
}

// Build normalizes raws in order. Records without a prompt or a correct
// answer are dropped and do not consume a position.
func (n *Normalizer) Build(raws []domain.RawQuestion) []domain.Question {
	questions := make([]domain.Question, 0, len(raws))
	for _, raw := range raws {
		if strings.TrimSpace(raw.Prompt) == "" || strings.TrimSpace(raw.CorrectAnswer) == "" {
			continue
		}
		pos := len(questions)
		questions = append(questions, domain.Question{
			ID:            pos + 1,
			Prompt:        html.UnescapeString(raw.Prompt),
			Options:       n.shuffledOptions(raw),
			CorrectAnswer: raw.CorrectAnswer,
			Media:         n.mediaFor(pos),
			Mode:          n.modeFor(pos),
		})
	}
	return questions
}

func (n *Normalizer) shuffledOptions(raw domain.RawQuestion) []string {
	options := make([]string, 0, len(raw.IncorrectAnswers)+1)
	options = append(options, raw.IncorrectAnswers...)
	options = append(options, raw.CorrectAnswer)

	n.mu.Lock()
	n.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	n.mu.Unlock()
	return options
}

func (n *Normalizer) mediaFor(pos int) *domain.Media {
	switch pos % 4 {
	case 0:
		url := n.media.ImageURL
		if strings.Contains(url, "%d") {
			url = fmt.Sprintf(url, pos)
		}
		return &domain.Media{
			Kind:        domain.MediaImage,
			URL:         url,
			Description: fmt.Sprintf("Quiz question image %d", pos+1),
		}
	case 1:
		return &domain.Media{Kind: domain.MediaAudio, URL: n.media.AudioURL, Description: "Audio clip for this question"}
	case 2:
		return &domain.Media{Kind: domain.MediaVideo, URL: n.media.VideoURL, Description: "Video clip for this question"}
	default:
		return nil
	}
}

func (n *Normalizer) modeFor(pos int) domain.InteractionMode {
	if n.orderedEvery > 0 && pos%n.orderedEvery == 0 {
		return domain.ModeOrderedSequence
	}
	return domain.ModeMultipleChoice
}
