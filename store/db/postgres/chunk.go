package postgres

import (
	"context"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/parksage/parksage/store"
)

// UpsertChunk inserts or updates a chunk keyed by its chunk_id.
func (d *DB) UpsertChunk(ctx context.Context, chunk *store.Chunk) (*store.Chunk, error) {
	stmt := `
		INSERT INTO chunk (chunk_id, park_code, park_name, source_url, content, embedding)
		VALUES (` + placeholders(6) + `)
		ON CONFLICT (chunk_id)
		DO UPDATE SET
			park_code = EXCLUDED.park_code,
			park_name = EXCLUDED.park_name,
			source_url = EXCLUDED.source_url,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding
		RETURNING id
	`

	vector := pgvector.NewVector(chunk.Embedding)
	err := d.db.QueryRowContext(ctx, stmt,
		chunk.ChunkID,
		chunk.ParkCode,
		chunk.ParkName,
		chunk.SourceURL,
		chunk.Content,
		vector,
	).Scan(&chunk.ID)

	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert chunk")
	}

	return chunk, nil
}

// SearchChunks performs cosine similarity search using pgvector.
//
// The <=> operator computes cosine distance (1 - cosine_similarity), so the
// query orders by distance ASC to get the most similar chunks first and
// reports 1 - distance as the score.
//
// A park_code filter requires the supporting index: without it a filtered
// scan degrades the whole table, so the driver surfaces
// store.ErrParkFilterUnindexed and lets the retriever decide how to degrade.
func (d *DB) SearchChunks(ctx context.Context, opts *store.SearchChunksOptions) ([]*store.ChunkWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	vector := pgvector.NewVector(opts.Vector)

	where, args := []string{"1 = 1"}, []any{vector}
	if opts.ParkCode != "" {
		indexed, err := d.parkFilterIndexed(ctx)
		if err != nil {
			return nil, err
		}
		if !indexed {
			return nil, store.ErrParkFilterUnindexed
		}
		where = append(where, "park_code = "+placeholder(len(args)+1))
		args = append(args, opts.ParkCode)
	}

	query := `
		SELECT
			id, chunk_id, park_code, park_name, source_url, content,
			1 - (embedding <=> $1) AS score
		FROM chunk
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY embedding <=> $1
		LIMIT ` + placeholder(len(args)+1)
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search chunks")
	}
	defer rows.Close()

	results := []*store.ChunkWithScore{}
	for rows.Next() {
		var chunk store.Chunk
		var result store.ChunkWithScore
		err := rows.Scan(
			&chunk.ID,
			&chunk.ChunkID,
			&chunk.ParkCode,
			&chunk.ParkName,
			&chunk.SourceURL,
			&chunk.Content,
			&result.Score,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan chunk search result")
		}
		result.Chunk = &chunk
		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// CountChunks returns the number of stored chunks.
func (d *DB) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunk`).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count chunks")
	}
	return count, nil
}

// parkFilterIndexed reports whether an index covering chunk.park_code exists.
func (d *DB) parkFilterIndexed(ctx context.Context) (bool, error) {
	if d.parkIndexSeen.Load() {
		return true, nil
	}

	var exists bool
	err := d.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM pg_indexes
			WHERE tablename = 'chunk' AND indexdef ILIKE '%park_code%'
		)
	`).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check park_code index")
	}

	if exists {
		d.parkIndexSeen.Store(true)
	}
	return exists, nil
}
