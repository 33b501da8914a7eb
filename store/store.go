package store

import (
	"context"

	"github.com/parksage/parksage/internal/profile"
)

// Driver is an interface for database access to chunks.
type Driver interface {
	GetDB() any

	// UpsertChunk inserts or replaces a chunk by its chunk_id. Consumed by
	// ingestion tooling; the question-answering path is read-only.
	UpsertChunk(ctx context.Context, chunk *Chunk) (*Chunk, error)

	// SearchChunks performs vector similarity search, optionally filtered by
	// park code. Implementations must return ErrParkFilterUnindexed when a
	// filter is requested without a supporting index.
	SearchChunks(ctx context.Context, opts *SearchChunksOptions) ([]*ChunkWithScore, error)

	// CountChunks returns the number of stored chunks. Used by health checks.
	CountChunks(ctx context.Context) (int64, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) UpsertChunk(ctx context.Context, chunk *Chunk) (*Chunk, error) {
	return s.driver.UpsertChunk(ctx, chunk)
}

func (s *Store) SearchChunks(ctx context.Context, opts *SearchChunksOptions) ([]*ChunkWithScore, error) {
	return s.driver.SearchChunks(ctx, opts)
}

func (s *Store) CountChunks(ctx context.Context) (int64, error) {
	return s.driver.CountChunks(ctx)
}
