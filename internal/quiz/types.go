package quiz

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the supported quiz question kinds.
type QuestionType string

const (
	TypeSingleChoice   QuestionType = "single_choice"
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeTrueFalse      QuestionType = "true_false"
	TypeFillInBlank    QuestionType = "fill_in_blank"
	TypeWriting        QuestionType = "writing"
)

// ParseQuestionType maps generator output (any casing, SCREAMING_SNAKE
// included) to a QuestionType. Unknown values fall back to single choice.
func ParseQuestionType(raw string) QuestionType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "single_choice", "singlechoice":
		return TypeSingleChoice
	case "multiple_choice", "multiplechoice":
		return TypeMultipleChoice
	case "true_false", "truefalse":
		return TypeTrueFalse
	case "fill_in_blank", "fillinblank":
		return TypeFillInBlank
	case "writing":
		return TypeWriting
	default:
		return TypeSingleChoice
	}
}

// Difficulty steers question generation prompts.
type Difficulty string

const (
	DifficultyEasier Difficulty = "easier"
	DifficultyNormal Difficulty = "normal"
	DifficultyHarder Difficulty = "harder"
)

// ParseDifficulty returns the difficulty matching raw, defaulting to normal.
func ParseDifficulty(raw string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(DifficultyEasier):
		return DifficultyEasier
	case string(DifficultyHarder):
		return DifficultyHarder
	default:
		return DifficultyNormal
	}
}

// PromptTag returns the generation hint for this difficulty.
func (d Difficulty) PromptTag() string {
	switch d {
	case DifficultyEasier:
		return "Make questions simpler and more direct. Prefer true/false and single choice with clear cues."
	case DifficultyHarder:
		return "Increase difficulty. Use multiple choice and fill-in-blank with distractors and less obvious cues."
	default:
		return "Keep a balanced difficulty."
	}
}

// Question is one quiz item. Options may be empty (fill-in-blank, writing).
type Question struct {
	ID             uuid.UUID    `json:"id"`
	Type           QuestionType `json:"type"`
	Text           string       `json:"text"`
	Options        []string     `json:"options"`
	CorrectAnswers []string     `json:"correct"`
}

// ChunkOwnerID returns the embedding-index owner key for the quiz.
func (q *Quiz) ChunkOwnerID() string {
	return "quiz:" + q.ID.String()
}

// WrongRecord captures a single incorrectly answered question for review.
// The full set is replaced on every submission.
type WrongRecord struct {
	QuestionID uuid.UUID `json:"question_id"`
	Submitted  string    `json:"submitted"`
}

// Quiz ties a generated question set to one video and one learner attempt.
type Quiz struct {
	ID             uuid.UUID     `json:"id"`
	LearnerID      string        `json:"learner_id"`
	VideoURL       string        `json:"video_url"`
	VideoTitle     string        `json:"video_title"`
	Transcript     string        `json:"-"`
	Questions      []Question    `json:"questions"`
	WrongAnswers   []WrongRecord `json:"wrong_answers,omitempty"`
	Score          *int          `json:"score,omitempty"`
	TotalQuestions int           `json:"total_questions"`
	CreatedAt      time.Time     `json:"created_at"`
}
