package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorlab/videoquiz/internal/pack"
	"github.com/tutorlab/videoquiz/internal/quiz"
)

// PackRepository stores pregenerated question packs, unique per
// (catalog video, size).
type PackRepository struct {
	pool *pgxpool.Pool
}

func NewPackRepository(pool *pgxpool.Pool) *PackRepository {
	return &PackRepository{pool: pool}
}

const packColumns = `id, catalog_video_id, size, difficulty, questions, includes_writing, created_at, last_error`

// Get returns the exact (video, size) pack, or nil.
func (r *PackRepository) Get(ctx context.Context, catalogVideoID int64, size int) (*pack.Pack, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+packColumns+` FROM catalog_question_packs
		WHERE catalog_video_id = $1 AND size = $2`,
		catalogVideoID, size)
	p, err := scanPack(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select pack: %w", err)
	}
	return p, nil
}

// Upsert writes the pack keyed on (catalog_video_id, size).
func (r *PackRepository) Upsert(ctx context.Context, p *pack.Pack) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO catalog_question_packs (catalog_video_id, size, difficulty, questions, includes_writing, created_at, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (catalog_video_id, size) DO UPDATE SET
			difficulty = EXCLUDED.difficulty,
			questions = EXCLUDED.questions,
			includes_writing = EXCLUDED.includes_writing,
			created_at = EXCLUDED.created_at,
			last_error = EXCLUDED.last_error
		RETURNING id`,
		p.CatalogVideoID, p.Size, string(p.Difficulty), p.QuestionsJSON, p.IncludesWriting, p.CreatedAt, p.LastError).
		Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("upsert pack: %w", err)
	}
	return nil
}

// FindNearest returns the pack minimizing |size - desiredSize|, smaller
// size winning ties, or nil when the video has no packs.
func (r *PackRepository) FindNearest(ctx context.Context, catalogVideoID int64, desiredSize int) (*pack.Pack, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+packColumns+` FROM catalog_question_packs
		WHERE catalog_video_id = $1 AND questions IS NOT NULL
		ORDER BY abs(size - $2), size ASC
		LIMIT 1`,
		catalogVideoID, desiredSize)
	p, err := scanPack(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select nearest pack: %w", err)
	}
	return p, nil
}

// ListSizes returns the sizes that already have a generated pack.
func (r *PackRepository) ListSizes(ctx context.Context, catalogVideoID int64) ([]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT size FROM catalog_question_packs
		WHERE catalog_video_id = $1 AND questions IS NOT NULL
		ORDER BY size`,
		catalogVideoID)
	if err != nil {
		return nil, fmt.Errorf("list pack sizes: %w", err)
	}
	defer rows.Close()

	var sizes []int
	for rows.Next() {
		var size int
		if err := rows.Scan(&size); err != nil {
			return nil, fmt.Errorf("scan pack size: %w", err)
		}
		sizes = append(sizes, size)
	}
	return sizes, rows.Err()
}

func scanPack(row pgx.Row) (*pack.Pack, error) {
	var (
		p          pack.Pack
		difficulty string
	)
	err := row.Scan(&p.ID, &p.CatalogVideoID, &p.Size, &difficulty, &p.QuestionsJSON, &p.IncludesWriting, &p.CreatedAt, &p.LastError)
	if err != nil {
		return nil, err
	}
	p.Difficulty = quiz.Difficulty(difficulty)
	return &p, nil
}
