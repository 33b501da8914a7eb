package store

import "errors"

// ErrParkFilterUnindexed is returned by a driver when a park_code filter was
// requested but the underlying index that would support the filter does not
// exist. The retriever treats this as a degraded-mode trigger, not a failure:
// it refetches unfiltered and filters locally.
var ErrParkFilterUnindexed = errors.New("park_code filter requires a supporting index")

// Chunk is a bounded passage of National Parks source text with provenance
// metadata, the unit of retrieval.
type Chunk struct {
	ID        int64
	ChunkID   string // stable identifier assigned at ingestion time
	ParkCode  string
	ParkName  string
	SourceURL string
	Content   string
	Embedding []float32
}

// ChunkWithScore is a chunk annotated with its similarity score for one
// search. Scores are cosine similarity in [0, 1], higher is more similar.
type ChunkWithScore struct {
	Chunk *Chunk
	Score float32
}

// SearchChunksOptions describes one similarity search.
type SearchChunksOptions struct {
	Vector   []float32
	Limit    int
	ParkCode string // empty means no filter
}
