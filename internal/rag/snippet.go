package rag

import (
	"context"
	"regexp"
	"strings"

	"github.com/tutorlab/videoquiz/internal/quiz"
)

const noTranscriptSnippet = "No transcript available"

// Snippets renders the best supporting transcript excerpt for a question.
type Snippets struct {
	index  *Index
	maxLen int
}

func NewSnippets(index *Index, maxLen int) *Snippets {
	if maxLen <= 0 {
		maxLen = 400
	}
	return &Snippets{index: index, maxLen: maxLen}
}

// Evidence retrieves the owner's nearest chunk for a question and returns
// it truncated and highlighted for display.
func (s *Snippets) Evidence(ctx context.Context, ownerID string, q quiz.Question) (string, error) {
	query := buildQuery(q)
	chunk, ok, err := s.index.Nearest(ctx, ownerID, query)
	if err != nil {
		return "", err
	}
	if !ok || strings.TrimSpace(chunk.Content) == "" {
		return noTranscriptSnippet, nil
	}
	return Highlight(abbreviate(strings.TrimSpace(chunk.Content), s.maxLen), q), nil
}

func buildQuery(q quiz.Question) string {
	parts := make([]string, 0, 1+len(q.CorrectAnswers))
	if strings.TrimSpace(q.Text) != "" {
		parts = append(parts, q.Text)
	}
	parts = append(parts, q.CorrectAnswers...)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// abbreviate truncates on a rune boundary so multi-byte text is never cut
// mid-character.
func abbreviate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}

// Highlight wraps every case-insensitive occurrence of each correct-answer
// phrase in <mark> tags. When no phrase matches, it falls back to
// highlighting individual tokens (length >= 4) from the correct answers and
// the question text.
func Highlight(text string, q quiz.Question) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	highlighted := applyHighlights(text, q.CorrectAnswers)
	if highlighted != text {
		return highlighted
	}

	var tokens []string
	for _, answer := range q.CorrectAnswers {
		tokens = append(tokens, strings.Fields(answer)...)
	}
	tokens = append(tokens, strings.Fields(q.Text)...)
	long := tokens[:0]
	for _, tok := range tokens {
		if len(tok) >= 4 {
			long = append(long, tok)
		}
	}
	return applyHighlights(text, long)
}

func applyHighlights(text string, terms []string) string {
	result := text
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)(` + regexp.QuoteMeta(term) + `)`)
		if err != nil {
			continue
		}
		result = re.ReplaceAllString(result, "<mark>$1</mark>")
	}
	return result
}
