// Package provider holds the externally supplied capabilities the pipeline
// consumes: transcript fetching, embeddings, question generation, and video
// metadata. Exactly one implementation of each is bound at startup; nothing
// switches providers at call time.
package provider

import (
	"context"
	"errors"

	"github.com/tutorlab/videoquiz/internal/quiz"
)

var (
	// ErrFetchFailed marks an unavailable upstream transcript or metadata
	// source. Surfaced to the caller; no quiz is created.
	ErrFetchFailed = errors.New("transcript fetch failed")

	// ErrEmbeddingFailed marks an embedding provider failure. Batch jobs
	// record it on the affected row and continue.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrGenerationFailed marks a question generator failure.
	ErrGenerationFailed = errors.New("question generation failed")
)

// Transcripts fetches the plain-text transcript for a video URL.
type Transcripts interface {
	FetchTranscript(ctx context.Context, videoURL string) (string, error)
}

// Embeddings converts text into a fixed-dimension vector.
type Embeddings interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// QuestionGenerator produces quiz questions from a transcript. It must
// attempt count questions but may return fewer.
type QuestionGenerator interface {
	Generate(ctx context.Context, transcript string, difficulty quiz.Difficulty, count int, includeWriting bool) ([]quiz.Question, error)
}

// VideoMetadata looks up duration and title for a video URL.
type VideoMetadata interface {
	// DurationSeconds returns the video length, or a value <= 0 when the
	// duration cannot be determined.
	DurationSeconds(ctx context.Context, videoURL string) int64
	// Title returns the video title, or "" when unavailable.
	Title(ctx context.Context, videoURL string) string
}
