package provider

import (
	"context"
	"crypto/sha256"
	"math"

	"github.com/google/uuid"

	"github.com/tutorlab/videoquiz/internal/quiz"
)

// OfflineEmbeddings derives a small deterministic unit vector from a hash of
// the text. It keeps the full pipeline runnable without an embedding
// provider; similar texts do not get similar vectors.
type OfflineEmbeddings struct{}

func (OfflineEmbeddings) Embed(_ context.Context, text string) ([]float64, error) {
	sum := sha256.Sum256([]byte(text))
	a := float64(sum[0]) / 255.0
	b := float64(sum[1]) / 255.0
	c := float64(sum[2]) / 255.0
	norm := math.Sqrt(a*a+b*b+c*c) + 1e-9
	return []float64{a / norm, b / norm, c / norm}, nil
}

// OfflineGenerator serves a fixed question set for development and tests.
type OfflineGenerator struct{}

func (OfflineGenerator) Generate(_ context.Context, _ string, _ quiz.Difficulty, count int, includeWriting bool) ([]quiz.Question, error) {
	questions := []quiz.Question{
		single("What is the main topic discussed in the video?", []string{"Travel tips", "Cooking", "Learning English", "Technology"}, "Learning English"),
		trueFalse("The speaker believes practice is important for learning.", "True"),
		fill("According to the speaker, vocabulary should be practiced every ____.", "day"),
		multiple("Which skills are highlighted for improvement?", []string{"Listening", "Speaking", "Dancing", "Writing"}, "Listening", "Speaking", "Writing"),
		single("What is recommended before watching a video?", []string{"Turn off subtitles", "Preview key vocabulary", "Ignore the title", "Skip the intro"}, "Preview key vocabulary"),
		trueFalse("The video suggests taking notes while listening.", "True"),
		fill("Repeating phrases out loud helps with _____ pronunciation.", "improving"),
		single("How many practice questions are suggested per session?", []string{"Five", "Ten", "Fifteen", "Twenty"}, "Ten"),
		multiple("Which tools are mentioned for slowing down playback?", []string{"YouTube speed control", "Third-party apps", "Physical notebook", "Browser extensions"}, "YouTube speed control", "Third-party apps", "Browser extensions"),
		trueFalse("The transcript mentions avoiding quizzes altogether.", "False"),
	}

	if includeWriting {
		questions = append(questions, quiz.Question{
			ID:             uuid.New(),
			Type:           quiz.TypeWriting,
			Text:           "What is the main idea of this video?",
			CorrectAnswers: []string{"Summarize the central idea in 2-3 sentences."},
		})
	}
	if count > 0 && count < len(questions) {
		questions = questions[:count]
	}
	return questions, nil
}

func single(text string, options []string, correct string) quiz.Question {
	return quiz.Question{ID: uuid.New(), Type: quiz.TypeSingleChoice, Text: text, Options: options, CorrectAnswers: []string{correct}}
}

func multiple(text string, options []string, correct ...string) quiz.Question {
	return quiz.Question{ID: uuid.New(), Type: quiz.TypeMultipleChoice, Text: text, Options: options, CorrectAnswers: correct}
}

func trueFalse(text, correct string) quiz.Question {
	return quiz.Question{ID: uuid.New(), Type: quiz.TypeTrueFalse, Text: text, Options: []string{"True", "False"}, CorrectAnswers: []string{correct}}
}

func fill(text, correct string) quiz.Question {
	return quiz.Question{ID: uuid.New(), Type: quiz.TypeFillInBlank, Text: text, CorrectAnswers: []string{correct}}
}
