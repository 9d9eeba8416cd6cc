// Package pack maintains the pregenerated question sets cached per catalog
// video and size, ahead of learner demand.
package pack

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tutorlab/videoquiz/internal/quiz"
)

// Pack is a cached, regenerable question set keyed by (video, size). Size
// is a target: the materialized count may differ.
type Pack struct {
	ID              int64
	CatalogVideoID  int64
	Size            int
	Difficulty      quiz.Difficulty
	QuestionsJSON   []byte
	IncludesWriting bool
	CreatedAt       time.Time
	LastError       string
}

// store is the durable pack row access the service needs.
type store interface {
	Get(ctx context.Context, catalogVideoID int64, size int) (*Pack, error)
	Upsert(ctx context.Context, p *Pack) error
	// FindNearest returns the pack minimizing |size - desiredSize|, with
	// ties resolved to the smaller size. Nil when the video has no packs.
	FindNearest(ctx context.Context, catalogVideoID int64, desiredSize int) (*Pack, error)
	ListSizes(ctx context.Context, catalogVideoID int64) ([]int, error)
}

// generator produces questions from a transcript.
type generator interface {
	Generate(ctx context.Context, transcript string, difficulty quiz.Difficulty, count int, includeWriting bool) ([]quiz.Question, error)
}

// nearestCache is an optional hot cache in front of FindNearest lookups
// (implemented by the Redis-backed Cache).
type nearestCache interface {
	Get(ctx context.Context, catalogVideoID int64, desiredSize int) (*Pack, error)
	Set(ctx context.Context, catalogVideoID int64, desiredSize int, p *Pack) error
}

// Service looks up and regenerates question packs. Generation is not
// guarded against duplicate concurrent calls for the same (video, size):
// both may invoke the generator and the later write wins, an accepted
// tradeoff given low concurrency on this path.
type Service struct {
	store     store
	cache     nearestCache
	generator generator
	logger    zerolog.Logger
}

func NewService(store store, cache nearestCache, generator generator, logger zerolog.Logger) *Service {
	return &Service{store: store, cache: cache, generator: generator, logger: logger}
}

// FindNearest returns the video's pack closest in size to desiredSize, or
// nil when the video has none. Ties go to the smaller size.
func (s *Service) FindNearest(ctx context.Context, catalogVideoID int64, desiredSize int) (*Pack, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, catalogVideoID, desiredSize); err == nil && cached != nil {
			return cached, nil
		}
	}
	p, err := s.store.FindNearest(ctx, catalogVideoID, desiredSize)
	if err != nil {
		return nil, fmt.Errorf("find nearest pack for video %d: %w", catalogVideoID, err)
	}
	if p != nil && s.cache != nil {
		_ = s.cache.Set(ctx, catalogVideoID, desiredSize, p)
	}
	return p, nil
}

// Generate upserts the (video, size) pack row from freshly generated
// questions. The result always contains at least one writing question; when
// the generator produced none, a default one is synthesized and the list is
// trimmed back to size by dropping trailing non-writing questions first. On
// failure the error is recorded on the row without discarding previously
// cached questions, then returned.
func (s *Service) Generate(ctx context.Context, catalogVideoID int64, transcript string, size int, difficulty quiz.Difficulty) (*Pack, error) {
	p, err := s.store.Get(ctx, catalogVideoID, size)
	if err != nil {
		return nil, fmt.Errorf("load pack (video=%d size=%d): %w", catalogVideoID, size, err)
	}
	if p == nil {
		p = &Pack{CatalogVideoID: catalogVideoID, Size: size}
	}
	p.Difficulty = difficulty
	p.IncludesWriting = true

	questions, err := s.generator.Generate(ctx, transcript, difficulty, size, true)
	if err != nil {
		p.LastError = err.Error()
		if saveErr := s.store.Upsert(ctx, p); saveErr != nil {
			s.logger.Warn().Err(saveErr).Int64("catalog_video_id", catalogVideoID).Int("size", size).Msg("record pack error failed")
		}
		s.logger.Warn().Err(err).Int64("catalog_video_id", catalogVideoID).Int("size", size).Msg("pack generation failed")
		return nil, fmt.Errorf("generate pack (video=%d size=%d): %w", catalogVideoID, size, err)
	}

	questions = ensureWriting(questions, size)

	data, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("encode pack questions: %w", err)
	}
	p.QuestionsJSON = data
	p.CreatedAt = time.Now()
	p.LastError = ""
	if err := s.store.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("save pack (video=%d size=%d): %w", catalogVideoID, size, err)
	}
	s.logger.Info().Int64("catalog_video_id", catalogVideoID).Int("size", size).Int("questions", len(questions)).Msg("pack generated")
	return p, nil
}

// NearestQuestions resolves the nearest pack and materializes its
// questions in one step. The bool reports whether any pack existed.
func (s *Service) NearestQuestions(ctx context.Context, catalogVideoID int64, desiredSize int) ([]quiz.Question, bool, error) {
	p, err := s.FindNearest(ctx, catalogVideoID, desiredSize)
	if err != nil {
		return nil, false, err
	}
	if p == nil {
		return nil, false, nil
	}
	questions, err := s.Materialize(p)
	if err != nil {
		return nil, false, err
	}
	return questions, true, nil
}

// Materialize decodes the pack's questions into an independent copy. Packs
// are never mutated by reading them.
func (s *Service) Materialize(p *Pack) ([]quiz.Question, error) {
	var questions []quiz.Question
	if err := json.Unmarshal(p.QuestionsJSON, &questions); err != nil {
		return nil, fmt.Errorf("decode pack questions: %w", err)
	}
	return questions, nil
}

// MissingSizes reports which configured target sizes the video has no pack
// for yet.
func (s *Service) MissingSizes(ctx context.Context, catalogVideoID int64, targets []int) ([]int, error) {
	have, err := s.store.ListSizes(ctx, catalogVideoID)
	if err != nil {
		return nil, fmt.Errorf("list pack sizes for video %d: %w", catalogVideoID, err)
	}
	present := make(map[int]struct{}, len(have))
	for _, size := range have {
		present[size] = struct{}{}
	}
	var missing []int
	for _, size := range targets {
		if _, ok := present[size]; !ok {
			missing = append(missing, size)
		}
	}
	return missing, nil
}

// ensureWriting guarantees at least one writing question, synthesizing a
// default when absent, and trims back to size dropping trailing non-writing
// questions before touching any writing question.
func ensureWriting(questions []quiz.Question, size int) []quiz.Question {
	hasWriting := false
	for _, q := range questions {
		if q.Type == quiz.TypeWriting {
			hasWriting = true
			break
		}
	}
	if !hasWriting {
		questions = append(questions, defaultWritingQuestion())
	}
	if size <= 0 || len(questions) <= size {
		return questions
	}

	writing := questions[:0:0]
	other := make([]quiz.Question, 0, len(questions))
	for _, q := range questions {
		if q.Type == quiz.TypeWriting {
			writing = append(writing, q)
		} else {
			other = append(other, q)
		}
	}
	keep := size - len(writing)
	if keep < 0 {
		keep = 0
		writing = writing[:size]
	}
	if keep > len(other) {
		keep = len(other)
	}
	return append(other[:keep], writing...)
}

func defaultWritingQuestion() quiz.Question {
	return quiz.Question{
		ID:             uuid.New(),
		Type:           quiz.TypeWriting,
		Text:           "What is the main idea of this video?",
		CorrectAnswers: []string{"Summarize the central idea in 2-3 sentences."},
	}
}
