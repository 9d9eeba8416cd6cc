package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/tutorlab/videoquiz/internal/quiz"
)

const questionSystemPrompt = `You create English quiz questions from transcripts. Produce EXACTLY %d questions as a JSON array.
Each item: {"type":"single_choice|multiple_choice|true_false|fill_in_blank%s","text":"...","options":["opt1","opt2"],"correct":["answer1","answer2"]}.
For true_false use options ["True","False"]. For fill_in_blank, options can be empty, but correct must have one answer.%s
Only return the JSON array, nothing else.`

// Gemini backs both question generation and embeddings with one client.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	embed  *genai.EmbeddingModel
	logger zerolog.Logger
}

func NewGemini(ctx context.Context, apiKey, modelName, embeddingModel string, logger zerolog.Logger) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key missing; set GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.3)
	return &Gemini{
		client: client,
		model:  model,
		embed:  client.EmbeddingModel(embeddingModel),
		logger: logger,
	}, nil
}

func (g *Gemini) Close() {
	g.client.Close()
}

// Generate asks the model for count questions and parses the JSON array it
// returns. Fewer than count questions is not an error.
func (g *Gemini) Generate(ctx context.Context, transcript string, difficulty quiz.Difficulty, count int, includeWriting bool) ([]quiz.Question, error) {
	writingTypes, writingHint := "", ""
	if includeWriting {
		writingTypes = "|writing"
		writingHint = "\nInclude at least one open-ended writing question."
	}
	prompt := fmt.Sprintf(questionSystemPrompt, count, writingTypes, writingHint) +
		"\n" + difficulty.PromptTag() + "\nTranscript:\n" + transcript

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	raw := stripCodeFences(extractText(resp))
	questions, err := parseQuestions(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	g.logger.Info().Int("requested", count).Int("parsed", len(questions)).Msg("questions generated")
	return questions, nil
}

// Embed returns the embedding vector for text.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float64, error) {
	res, err := g.embed.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", ErrEmbeddingFailed)
	}
	vec := make([]float64, len(res.Embedding.Values))
	for i, v := range res.Embedding.Values {
		vec[i] = float64(v)
	}
	return vec, nil
}

type generatedQuestion struct {
	Type    string   `json:"type"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Correct []string `json:"correct"`
}

func parseQuestions(raw string) ([]quiz.Question, error) {
	var items []generatedQuestion
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		// Models sometimes pad the array with prose; retry on the bracketed span.
		start := strings.Index(raw, "[")
		end := strings.LastIndex(raw, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("expected JSON array of questions: %v", err)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &items); err != nil {
			return nil, fmt.Errorf("expected JSON array of questions: %v", err)
		}
	}

	questions := make([]quiz.Question, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Text) == "" {
			continue
		}
		questions = append(questions, quiz.Question{
			ID:             uuid.New(),
			Type:           quiz.ParseQuestionType(item.Type),
			Text:           strings.TrimSpace(item.Text),
			Options:        item.Options,
			CorrectAnswers: item.Correct,
		})
	}
	return questions, nil
}

func stripCodeFences(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}

func extractText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	return b.String()
}
