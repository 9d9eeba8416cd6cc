package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// prewarmStore is the catalog persistence the prewarmer needs.
type prewarmStore interface {
	// FindNeedingEmbeddings lists active videos whose embeddings are not
	// ready yet, most recently refreshed first.
	FindNeedingEmbeddings(ctx context.Context, limit int) ([]Video, error)
	GetPreparation(ctx context.Context, catalogVideoID int64) (*Preparation, error)
	SavePreparation(ctx context.Context, p *Preparation) error
}

// transcriptSource yields the cached or freshly fetched transcript.
type transcriptSource interface {
	Fetch(ctx context.Context, videoURL string) (string, error)
}

// indexer chunks and embeds a text under an owner key.
type indexer interface {
	IndexText(ctx context.Context, ownerID, text string) (int, error)
}

// Prewarmer walks catalog videos that still lack embeddings and prepares
// them ahead of learner demand. Each video is handled independently; one
// failure never aborts the batch.
type Prewarmer struct {
	store       prewarmStore
	transcripts transcriptSource
	index       indexer
	batchLimit  int
	logger      zerolog.Logger
}

func NewPrewarmer(store prewarmStore, transcripts transcriptSource, index indexer, batchLimit int, logger zerolog.Logger) *Prewarmer {
	if batchLimit <= 0 {
		batchLimit = 10
	}
	return &Prewarmer{store: store, transcripts: transcripts, index: index, batchLimit: batchLimit, logger: logger}
}

// Run processes one batch of candidates. Per-video failures are recorded on
// the preparation row and counted, not returned.
func (p *Prewarmer) Run(ctx context.Context) error {
	videos, err := p.store.FindNeedingEmbeddings(ctx, p.batchLimit)
	if err != nil {
		return fmt.Errorf("list prewarm candidates: %w", err)
	}
	if len(videos) == 0 {
		p.logger.Info().Msg("prewarm: nothing to do")
		return nil
	}

	var ok, failed int
	for _, v := range videos {
		if err := p.Prewarm(ctx, v); err != nil {
			failed++
			p.logger.Warn().Err(err).Str("video_id", v.VideoID).Msg("prewarm failed")
			continue
		}
		ok++
	}
	p.logger.Info().Int("prepared", ok).Int("failed", failed).Msg("prewarm batch done")
	return nil
}

// Prewarm fetches the transcript and indexes it under the video's owner
// key, then marks the preparation row ready. Failures are recorded on the
// row before being returned.
func (p *Prewarmer) Prewarm(ctx context.Context, v Video) error {
	prep, err := p.store.GetPreparation(ctx, v.ID)
	if err != nil {
		return fmt.Errorf("load preparation for video %d: %w", v.ID, err)
	}
	if prep == nil {
		prep = &Preparation{CatalogVideoID: v.ID}
	}

	text, err := p.transcripts.Fetch(ctx, v.VideoURL)
	if err != nil {
		return p.fail(ctx, prep, fmt.Errorf("fetch transcript for %s: %w", v.VideoID, err))
	}
	prep.Transcript = text
	prep.TranscriptReady = true

	count, err := p.index.IndexText(ctx, v.ChunkOwnerID(), text)
	if err != nil {
		return p.fail(ctx, prep, fmt.Errorf("index transcript for %s: %w", v.VideoID, err))
	}
	prep.EmbeddingsReady = true
	prep.ChunkCount = count
	now := time.Now()
	prep.PreparedAt = &now
	prep.LastError = ""

	if err := p.store.SavePreparation(ctx, prep); err != nil {
		return fmt.Errorf("save preparation for video %d: %w", v.ID, err)
	}
	p.logger.Info().Str("video_id", v.VideoID).Int("chunks", count).Msg("video prewarmed")
	return nil
}

// fail records the error on the preparation row, keeping whatever progress
// was already made (a ready transcript survives an embedding failure).
func (p *Prewarmer) fail(ctx context.Context, prep *Preparation, cause error) error {
	prep.LastError = cause.Error()
	if err := p.store.SavePreparation(ctx, prep); err != nil {
		p.logger.Warn().Err(err).Int64("catalog_video_id", prep.CatalogVideoID).Msg("record prewarm error failed")
	}
	return cause
}
