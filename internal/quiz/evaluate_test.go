package quiz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func question(t QuestionType, correct ...string) Question {
	return Question{ID: uuid.New(), Type: t, Text: "q", CorrectAnswers: correct}
}

func TestEvaluateSingleChoice(t *testing.T) {
	q := question(TypeSingleChoice, "Paris")

	assert.True(t, Evaluate(q, []string{"Paris"}))
	assert.True(t, Evaluate(q, []string{"  paris  "}))
	assert.False(t, Evaluate(q, []string{"London"}))
	assert.False(t, Evaluate(q, []string{"Paris", "London"}))
	assert.False(t, Evaluate(q, nil))
	// Blank entries are dropped before the single-answer rule applies.
	assert.True(t, Evaluate(q, []string{"", "Paris"}))
}

func TestEvaluateTrueFalse(t *testing.T) {
	q := question(TypeTrueFalse, "True")

	assert.True(t, Evaluate(q, []string{"TRUE"}))
	assert.False(t, Evaluate(q, []string{"False"}))
	assert.False(t, Evaluate(q, []string{"True", "False"}))
}

func TestEvaluateMultipleChoice(t *testing.T) {
	q := question(TypeMultipleChoice, "A", "B")

	assert.True(t, Evaluate(q, []string{"a", "b"}))
	assert.True(t, Evaluate(q, []string{"B", "A"}))
	// Duplicates collapse before comparison.
	assert.True(t, Evaluate(q, []string{"a", "A", "b"}))
	assert.False(t, Evaluate(q, []string{"a"}))
	assert.False(t, Evaluate(q, []string{"a", "b", "c"}))
	assert.False(t, Evaluate(q, nil))
}

func TestEvaluateFillInBlank(t *testing.T) {
	q := question(TypeFillInBlank, "seven", "7")

	assert.True(t, Evaluate(q, []string{"Seven"}))
	assert.True(t, Evaluate(q, []string{"7"}))
	// Only the first non-blank answer counts.
	assert.False(t, Evaluate(q, []string{"eight", "seven"}))
	assert.False(t, Evaluate(q, []string{""}))
	assert.False(t, Evaluate(q, nil))
}

func TestEvaluateWritingAlwaysCorrect(t *testing.T) {
	q := question(TypeWriting, "anything")

	assert.True(t, Evaluate(q, nil))
	assert.True(t, Evaluate(q, []string{"my essay"}))
}

func TestEvaluateUnknownTypeNeverCorrect(t *testing.T) {
	q := question(QuestionType("riddle"), "x")

	assert.False(t, Evaluate(q, []string{"x"}))
}
