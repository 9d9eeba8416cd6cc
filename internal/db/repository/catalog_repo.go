package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorlab/videoquiz/internal/catalog"
)

// CatalogRepository reads catalog videos (written by the external crawl
// job) and maintains their preparation rows.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

const videoColumns = `id, video_id, video_url, title, channel_title, duration_seconds, active, created_at, refreshed_at`

// FindByVideoID returns the catalog row for a YouTube video id, or nil.
func (r *CatalogRepository) FindByVideoID(ctx context.Context, videoID string) (*catalog.Video, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+videoColumns+` FROM catalog_videos WHERE video_id = $1 LIMIT 1`,
		videoID)
	v, err := scanVideo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select catalog video: %w", err)
	}
	return v, nil
}

// FindNeedingEmbeddings lists active videos whose embeddings are not yet
// ready, most recently refreshed first with never-refreshed rows last.
func (r *CatalogRepository) FindNeedingEmbeddings(ctx context.Context, limit int) ([]catalog.Video, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+prefixed(videoColumns, "v.")+`
		FROM catalog_videos v
		LEFT JOIN catalog_preparations p ON p.catalog_video_id = v.id
		WHERE v.active AND COALESCE(p.embeddings_ready, false) = false
		ORDER BY v.refreshed_at DESC NULLS LAST
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("list videos needing embeddings: %w", err)
	}
	return collectVideos(rows)
}

// FindTranscriptReady lists active videos whose transcript is prepared.
func (r *CatalogRepository) FindTranscriptReady(ctx context.Context, limit int) ([]catalog.Video, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+prefixed(videoColumns, "v.")+`
		FROM catalog_videos v
		JOIN catalog_preparations p ON p.catalog_video_id = v.id
		WHERE v.active AND p.transcript_ready
		ORDER BY v.refreshed_at DESC NULLS LAST
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("list transcript-ready videos: %w", err)
	}
	return collectVideos(rows)
}

// GetPreparation returns the video's preparation row, or nil.
func (r *CatalogRepository) GetPreparation(ctx context.Context, catalogVideoID int64) (*catalog.Preparation, error) {
	var p catalog.Preparation
	err := r.pool.QueryRow(ctx, `
		SELECT catalog_video_id, transcript, transcript_ready, embeddings_ready, chunk_count, prepared_at, last_error
		FROM catalog_preparations WHERE catalog_video_id = $1`,
		catalogVideoID).
		Scan(&p.CatalogVideoID, &p.Transcript, &p.TranscriptReady, &p.EmbeddingsReady, &p.ChunkCount, &p.PreparedAt, &p.LastError)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select preparation: %w", err)
	}
	return &p, nil
}

// SavePreparation upserts the video's preparation row.
func (r *CatalogRepository) SavePreparation(ctx context.Context, p *catalog.Preparation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO catalog_preparations (catalog_video_id, transcript, transcript_ready, embeddings_ready, chunk_count, prepared_at, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (catalog_video_id) DO UPDATE SET
			transcript = EXCLUDED.transcript,
			transcript_ready = EXCLUDED.transcript_ready,
			embeddings_ready = EXCLUDED.embeddings_ready,
			chunk_count = EXCLUDED.chunk_count,
			prepared_at = EXCLUDED.prepared_at,
			last_error = EXCLUDED.last_error`,
		p.CatalogVideoID, p.Transcript, p.TranscriptReady, p.EmbeddingsReady, p.ChunkCount, p.PreparedAt, p.LastError)
	if err != nil {
		return fmt.Errorf("upsert preparation: %w", err)
	}
	return nil
}

func scanVideo(row pgx.Row) (*catalog.Video, error) {
	var v catalog.Video
	err := row.Scan(&v.ID, &v.VideoID, &v.VideoURL, &v.Title, &v.ChannelTitle, &v.DurationSeconds, &v.Active, &v.CreatedAt, &v.RefreshedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func collectVideos(rows pgx.Rows) ([]catalog.Video, error) {
	defer rows.Close()
	var videos []catalog.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog video: %w", err)
		}
		videos = append(videos, *v)
	}
	return videos, rows.Err()
}

// prefixed qualifies each column in a comma-separated list with a table
// alias for join queries.
func prefixed(columns, alias string) string {
	return alias + strings.ReplaceAll(columns, ", ", ", "+alias)
}
