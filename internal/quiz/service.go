package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tutorlab/videoquiz/internal/catalog"
	"github.com/tutorlab/videoquiz/internal/transcript"
)

var (
	// ErrDurationUnknown blocks creation when the video length cannot be
	// determined and enforcement is on.
	ErrDurationUnknown = errors.New("unable to determine video length")

	// ErrDurationExceeded blocks creation of quizzes for videos over the
	// configured limit.
	ErrDurationExceeded = errors.New("video longer than allowed limit")

	// ErrQuizNotFound covers both missing ids and quizzes owned by another
	// learner.
	ErrQuizNotFound = errors.New("quiz not found")

	// ErrTranscriptMissing blocks regeneration when the stored quiz has no
	// transcript to work from.
	ErrTranscriptMissing = errors.New("transcript missing; cannot regenerate")
)

// store is the durable quiz persistence the service needs.
type store interface {
	Create(ctx context.Context, q *Quiz) error
	Get(ctx context.Context, id uuid.UUID, learnerID string) (*Quiz, error)
	List(ctx context.Context, learnerID string) ([]Quiz, error)
	// ReplaceQuestions swaps the question set and clears score and wrong
	// answers in the same transaction.
	ReplaceQuestions(ctx context.Context, quizID uuid.UUID, questions []Question) error
	SaveScore(ctx context.Context, quizID uuid.UUID, score, total int) error
	ReplaceWrongAnswers(ctx context.Context, quizID uuid.UUID, records []WrongRecord) error
}

// catalogSource looks up prewarmed catalog state for a video.
type catalogSource interface {
	FindByVideoID(ctx context.Context, videoID string) (*catalog.Video, error)
	GetPreparation(ctx context.Context, catalogVideoID int64) (*catalog.Preparation, error)
}

// packSource yields pregenerated questions near a desired size.
type packSource interface {
	NearestQuestions(ctx context.Context, catalogVideoID int64, desiredSize int) ([]Question, bool, error)
}

// transcriptSource is the per-key deduplicating transcript cache.
type transcriptSource interface {
	Fetch(ctx context.Context, videoURL string) (string, error)
}

// metadataSource looks up video duration and title.
type metadataSource interface {
	DurationSeconds(ctx context.Context, videoURL string) int64
	Title(ctx context.Context, videoURL string) string
}

// generator produces questions from a transcript.
type generator interface {
	Generate(ctx context.Context, transcript string, difficulty Difficulty, count int, includeWriting bool) ([]Question, error)
}

// chunkIndexer maintains the per-owner embedding index.
type chunkIndexer interface {
	IndexText(ctx context.Context, ownerID, text string) (int, error)
	CopyOwner(ctx context.Context, fromOwner, toOwner string) (int, error)
}

// Options bounds quiz creation.
type Options struct {
	MaxVideoSeconds int64
	EnforceLimit    bool
	DefaultSize     int
}

// CreateRequest carries one quiz creation order through the pipeline.
type CreateRequest struct {
	LearnerID   string
	VideoURL    string
	DesiredSize int
	Difficulty  Difficulty
}

// Service runs the full quiz lifecycle: creation from a video URL,
// retrieval, answer submission, and question regeneration.
type Service struct {
	store       store
	catalog     catalogSource
	packs       packSource
	transcripts transcriptSource
	metadata    metadataSource
	generator   generator
	index       chunkIndexer
	opts        Options
	logger      zerolog.Logger
}

func NewService(store store, cat catalogSource, packs packSource, transcripts transcriptSource, metadata metadataSource, gen generator, index chunkIndexer, opts Options, logger zerolog.Logger) *Service {
	if opts.DefaultSize <= 0 {
		opts.DefaultSize = 10
	}
	if opts.MaxVideoSeconds <= 0 {
		opts.MaxVideoSeconds = 1800
	}
	return &Service{
		store:       store,
		catalog:     cat,
		packs:       packs,
		transcripts: transcripts,
		metadata:    metadata,
		generator:   gen,
		index:       index,
		opts:        opts,
		logger:      logger,
	}
}

// Create builds a quiz for a video URL: duration check, transcript
// acquisition (prewarmed state preferred), question sourcing (nearest pack
// first, generator as fallback), persistence, then chunk indexing for later
// evidence retrieval.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Quiz, error) {
	if err := s.enforceDuration(ctx, req.VideoURL); err != nil {
		return nil, err
	}
	title := s.resolveTitle(ctx, req.VideoURL)

	var (
		catalogVideo *catalog.Video
		prewarm      *catalog.Preparation
	)
	videoID := transcript.ExtractVideoID(req.VideoURL)
	if videoID != "" {
		v, err := s.catalog.FindByVideoID(ctx, videoID)
		if err != nil {
			s.logger.Warn().Err(err).Str("video_id", videoID).Msg("catalog lookup failed")
		} else if v != nil {
			catalogVideo = v
			prewarm, err = s.catalog.GetPreparation(ctx, v.ID)
			if err != nil {
				s.logger.Warn().Err(err).Str("video_id", videoID).Msg("preparation lookup failed")
				prewarm = nil
			}
		}
	}

	var text string
	if prewarm != nil && prewarm.TranscriptReady && prewarm.Transcript != "" {
		text = prewarm.Transcript
		s.logger.Info().Str("video_id", videoID).Msg("reusing prewarmed transcript")
	} else {
		var err error
		text, err = s.transcripts.Fetch(ctx, req.VideoURL)
		if err != nil {
			return nil, err
		}
	}

	targetSize := req.DesiredSize
	if targetSize <= 0 {
		targetSize = s.opts.DefaultSize
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = DifficultyNormal
	}

	var (
		questions []Question
		fromPack  bool
	)
	if catalogVideo != nil {
		var err error
		questions, fromPack, err = s.packs.NearestQuestions(ctx, catalogVideo.ID, targetSize)
		if err != nil {
			s.logger.Warn().Err(err).Str("video_id", videoID).Msg("pack lookup failed, generating directly")
			fromPack = false
		}
	}
	if !fromPack {
		var err error
		questions, err = s.generator.Generate(ctx, text, difficulty, targetSize, false)
		if err != nil {
			return nil, err
		}
	} else {
		s.logger.Info().Str("video_id", videoID).Int("target", targetSize).Int("actual", len(questions)).Msg("used pregenerated pack")
	}

	q := &Quiz{
		ID:             uuid.New(),
		LearnerID:      req.LearnerID,
		VideoURL:       req.VideoURL,
		VideoTitle:     title,
		Transcript:     text,
		Questions:      questions,
		TotalQuestions: len(questions),
		CreatedAt:      time.Now(),
	}
	if err := s.store.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("save quiz: %w", err)
	}

	if err := s.populateChunks(ctx, q, catalogVideo, prewarm, text); err != nil {
		return nil, err
	}

	s.logger.Info().Stringer("quiz", q.ID).Str("url", req.VideoURL).Int("questions", len(questions)).Msg("quiz created")
	return q, nil
}

// populateChunks fills the quiz's evidence index, copying the prewarmed
// video chunks when they are ready and non-empty instead of re-embedding.
func (s *Service) populateChunks(ctx context.Context, q *Quiz, v *catalog.Video, prewarm *catalog.Preparation, text string) error {
	if v != nil && prewarm != nil && prewarm.EmbeddingsReady {
		copied, err := s.index.CopyOwner(ctx, v.ChunkOwnerID(), q.ChunkOwnerID())
		if err != nil {
			return fmt.Errorf("copy prewarmed chunks: %w", err)
		}
		if copied > 0 {
			s.logger.Info().Stringer("quiz", q.ID).Int("chunks", copied).Msg("reused prewarmed embeddings")
			return nil
		}
	}
	if _, err := s.index.IndexText(ctx, q.ChunkOwnerID(), text); err != nil {
		return fmt.Errorf("index quiz transcript: %w", err)
	}
	return nil
}

// Get returns the learner's quiz or ErrQuizNotFound.
func (s *Service) Get(ctx context.Context, id uuid.UUID, learnerID string) (*Quiz, error) {
	q, err := s.store.Get(ctx, id, learnerID)
	if err != nil {
		return nil, fmt.Errorf("load quiz %s: %w", id, err)
	}
	if q == nil {
		return nil, ErrQuizNotFound
	}
	return q, nil
}

// List returns the learner's quizzes, newest first. A missing learner id
// yields an empty list rather than everyone's quizzes.
func (s *Service) List(ctx context.Context, learnerID string) ([]Quiz, error) {
	if learnerID == "" {
		s.logger.Warn().Msg("list quizzes: learner id missing")
		return nil, nil
	}
	return s.store.List(ctx, learnerID)
}

// Submit scores the learner's answers, replaces the quiz's wrong-answer
// records, and persists the score. Unanswered questions count as wrong.
func (s *Service) Submit(ctx context.Context, quizID uuid.UUID, learnerID string, answers map[uuid.UUID][]string) (*Quiz, error) {
	q, err := s.Get(ctx, quizID, learnerID)
	if err != nil {
		return nil, err
	}

	score := 0
	wrong := make([]WrongRecord, 0)
	for _, question := range q.Questions {
		submitted := answers[question.ID]
		correct := Evaluate(question, submitted)
		outcome := "incorrect"
		if correct {
			score++
			outcome = "correct"
		} else {
			wrong = append(wrong, WrongRecord{QuestionID: question.ID, Submitted: strings.Join(submitted, ";")})
		}
		s.logger.Info().
			Str("learner", learnerID).
			Stringer("quiz", quizID).
			Stringer("question", question.ID).
			Str("outcome", outcome).
			Msg("answer judged")
	}

	if err := s.store.ReplaceWrongAnswers(ctx, quizID, wrong); err != nil {
		return nil, fmt.Errorf("save wrong answers: %w", err)
	}
	total := len(q.Questions)
	if err := s.store.SaveScore(ctx, quizID, score, total); err != nil {
		return nil, fmt.Errorf("save score: %w", err)
	}

	q.Score = &score
	q.TotalQuestions = total
	q.WrongAnswers = wrong
	s.logger.Info().Stringer("quiz", quizID).Int("score", score).Int("total", total).Msg("answers submitted")
	return q, nil
}

// Regenerate replaces the quiz's questions from its stored transcript at
// the requested difficulty, resetting score and wrong answers.
func (s *Service) Regenerate(ctx context.Context, quizID uuid.UUID, learnerID string, difficulty Difficulty) (*Quiz, error) {
	q, err := s.Get(ctx, quizID, learnerID)
	if err != nil {
		return nil, err
	}
	if q.Transcript == "" {
		return nil, ErrTranscriptMissing
	}

	questions, err := s.generator.Generate(ctx, q.Transcript, difficulty, s.opts.DefaultSize, false)
	if err != nil {
		return nil, err
	}
	if err := s.store.ReplaceQuestions(ctx, quizID, questions); err != nil {
		return nil, fmt.Errorf("replace questions: %w", err)
	}

	q.Questions = questions
	q.TotalQuestions = len(questions)
	q.Score = nil
	q.WrongAnswers = nil
	s.logger.Info().Stringer("quiz", quizID).Str("difficulty", string(difficulty)).Int("questions", len(questions)).Msg("quiz regenerated")
	return q, nil
}

func (s *Service) resolveTitle(ctx context.Context, videoURL string) string {
	title := s.metadata.Title(ctx, videoURL)
	if strings.TrimSpace(title) == "" {
		return "YouTube Video"
	}
	return title
}

func (s *Service) enforceDuration(ctx context.Context, videoURL string) error {
	if !s.opts.EnforceLimit {
		s.logger.Info().Str("url", videoURL).Msg("video length enforcement disabled")
		return nil
	}
	duration := s.metadata.DurationSeconds(ctx, videoURL)
	limit := s.opts.MaxVideoSeconds / 60
	if duration <= 0 {
		return fmt.Errorf("%w; use videos up to %d minutes", ErrDurationUnknown, limit)
	}
	if duration > s.opts.MaxVideoSeconds {
		return fmt.Errorf("%w of %d minutes", ErrDurationExceeded, limit)
	}
	return nil
}
