package sqlite

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/parksage/parksage/store"
)

// UpsertChunk inserts or updates a chunk keyed by its chunk_id.
func (d *DB) UpsertChunk(ctx context.Context, chunk *store.Chunk) (*store.Chunk, error) {
	stmt := `
		INSERT INTO chunk (chunk_id, park_code, park_name, source_url, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (chunk_id)
		DO UPDATE SET
			park_code = excluded.park_code,
			park_name = excluded.park_name,
			source_url = excluded.source_url,
			content = excluded.content,
			embedding = excluded.embedding
		RETURNING id
	`

	err := d.db.QueryRowContext(ctx, stmt,
		chunk.ChunkID,
		chunk.ParkCode,
		chunk.ParkName,
		chunk.SourceURL,
		chunk.Content,
		float32SliceToBlob(chunk.Embedding),
	).Scan(&chunk.ID)

	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert chunk")
	}

	return chunk, nil
}

// SearchChunks performs similarity search with cosine similarity computed in
// the application layer. The park_code filter is a plain WHERE clause, so
// this driver never reports store.ErrParkFilterUnindexed.
func (d *DB) SearchChunks(ctx context.Context, opts *store.SearchChunksOptions) ([]*store.ChunkWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	where, args := []string{"1 = 1"}, []any{}
	if opts.ParkCode != "" {
		where = append(where, "park_code = ?")
		args = append(args, opts.ParkCode)
	}

	query := `
		SELECT id, chunk_id, park_code, park_name, source_url, content, embedding
		FROM chunk
		WHERE ` + strings.Join(where, " AND ")

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search chunks")
	}
	defer rows.Close()

	results := []*store.ChunkWithScore{}
	for rows.Next() {
		var chunk store.Chunk
		var blob []byte
		err := rows.Scan(
			&chunk.ID,
			&chunk.ChunkID,
			&chunk.ParkCode,
			&chunk.ParkName,
			&chunk.SourceURL,
			&chunk.Content,
			&blob,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan chunk")
		}

		embedding, err := blobToFloat32Slice(blob)
		if err != nil {
			return nil, errors.Wrapf(err, "chunk %s has a corrupt embedding", chunk.ChunkID)
		}

		results = append(results, &store.ChunkWithScore{
			Chunk: &chunk,
			Score: cosineSimilarity(opts.Vector, embedding),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
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
