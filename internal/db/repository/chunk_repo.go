package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorlab/videoquiz/internal/rag"
)

// ChunkRepository stores transcript chunks and their embedding vectors per
// owner key ("quiz:<id>" or "video:<id>").
type ChunkRepository struct {
	pool *pgxpool.Pool
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{pool: pool}
}

// Replace swaps the owner's chunk set in one transaction, so readers never
// observe a partial set.
func (r *ChunkRepository) Replace(ctx context.Context, ownerID string, chunks []rag.Chunk) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM transcript_chunks WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	for _, c := range chunks {
		_, err := tx.Exec(ctx, `
			INSERT INTO transcript_chunks (owner_id, position, content, embedding)
			VALUES ($1, $2, $3, $4)`,
			ownerID, c.Position, c.Content, c.Embedding)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Position, err)
		}
	}
	return tx.Commit(ctx)
}

// ListByOwner returns the owner's chunks ordered by position.
func (r *ChunkRepository) ListByOwner(ctx context.Context, ownerID string) ([]rag.Chunk, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT owner_id, position, content, embedding
		FROM transcript_chunks WHERE owner_id = $1 ORDER BY position`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []rag.Chunk
	for rows.Next() {
		var c rag.Chunk
		if err := rows.Scan(&c.OwnerID, &c.Position, &c.Content, &c.Embedding); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
