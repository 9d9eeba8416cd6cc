package rag

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// Chunk is a bounded transcript substring paired with its embedding vector.
type Chunk struct {
	OwnerID   string
	Position  int
	Content   string
	Embedding []float64
}

// embedder converts text into a fixed-dimension vector.
type embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// chunkStore persists chunk sets per owner. Replace must be atomic: readers
// never observe a partially swapped set.
type chunkStore interface {
	Replace(ctx context.Context, ownerID string, chunks []Chunk) error
	ListByOwner(ctx context.Context, ownerID string) ([]Chunk, error)
}

// Options bounds the chunking window.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
}

// Index stores chunk+embedding sets per owner (a quiz or a catalog video)
// and answers nearest-neighbor queries with an exhaustive cosine scan.
type Index struct {
	store  chunkStore
	embed  embedder
	opts   Options
	logger zerolog.Logger
}

func NewIndex(store chunkStore, embed embedder, opts Options, logger zerolog.Logger) *Index {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 500
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = 0
	}
	return &Index{store: store, embed: embed, opts: opts, logger: logger}
}

// IndexText chunks and embeds text, then atomically replaces the owner's
// stored set. Returns the number of chunks written.
func (ix *Index) IndexText(ctx context.Context, ownerID, text string) (int, error) {
	parts := ChunkText(text, ix.opts.ChunkSize, ix.opts.ChunkOverlap)
	chunks := make([]Chunk, 0, len(parts))
	for i, part := range parts {
		vec, err := ix.embed.Embed(ctx, part)
		if err != nil {
			return 0, fmt.Errorf("embed chunk %d for %s: %w", i, ownerID, err)
		}
		chunks = append(chunks, Chunk{OwnerID: ownerID, Position: i, Content: part, Embedding: vec})
	}
	if err := ix.store.Replace(ctx, ownerID, chunks); err != nil {
		return 0, fmt.Errorf("replace chunks for %s: %w", ownerID, err)
	}
	return len(chunks), nil
}

// CopyOwner duplicates one owner's chunk set under another owner without
// re-embedding. Returns the number of chunks copied; zero means the source
// owner had no chunks and the destination was left untouched.
func (ix *Index) CopyOwner(ctx context.Context, fromOwner, toOwner string) (int, error) {
	src, err := ix.store.ListByOwner(ctx, fromOwner)
	if err != nil {
		return 0, fmt.Errorf("list chunks for %s: %w", fromOwner, err)
	}
	if len(src) == 0 {
		return 0, nil
	}
	dst := make([]Chunk, len(src))
	for i, c := range src {
		dst[i] = Chunk{OwnerID: toOwner, Position: i, Content: c.Content, Embedding: c.Embedding}
	}
	if err := ix.store.Replace(ctx, toOwner, dst); err != nil {
		return 0, fmt.Errorf("replace chunks for %s: %w", toOwner, err)
	}
	return len(dst), nil
}

// Nearest returns the owner's chunk most similar to query, or false when
// the owner has no chunks. Ties resolve to the chunk with the lowest stored
// position, so repeated queries are deterministic.
func (ix *Index) Nearest(ctx context.Context, ownerID, query string) (*Chunk, bool, error) {
	chunks, err := ix.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, false, fmt.Errorf("list chunks for %s: %w", ownerID, err)
	}
	if len(chunks) == 0 {
		return nil, false, nil
	}

	queryVec, err := ix.embed.Embed(ctx, query)
	if err != nil {
		return nil, false, fmt.Errorf("embed query: %w", err)
	}

	best := -1
	bestScore := math.Inf(-1)
	for i, chunk := range chunks {
		score := CosineSimilarity(queryVec, chunk.Embedding)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	return &chunks[best], true, nil
}

// CosineSimilarity computes dot(a,b)/(|a|·|b|+ε). Mismatched lengths are
// compared over the shorter prefix; empty vectors score -1 so real matches
// always win.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return -1
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + 1e-9)
}
