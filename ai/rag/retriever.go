package rag

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/parksage/parksage/ai/metrics"
	"github.com/parksage/parksage/store"
)

// Searcher is the vector-search capability the retriever consumes.
// *store.Store satisfies it.
type Searcher interface {
	SearchChunks(ctx context.Context, opts *store.SearchChunksOptions) ([]*store.ChunkWithScore, error)
}

// degradedFetchFactor is how many extra candidates the unfiltered fallback
// fetch requests before filtering locally.
const degradedFetchFactor = 3

// Retriever embeds a search query and runs similarity search against the
// chunk store, optionally restricted to one park.
type Retriever struct {
	embedder Embedder
	searcher Searcher
	metrics  *metrics.PrometheusExporter
}

// NewRetriever creates a retriever. The exporter may be nil.
func NewRetriever(embedder Embedder, searcher Searcher, exporter *metrics.PrometheusExporter) *Retriever {
	return &Retriever{embedder: embedder, searcher: searcher, metrics: exporter}
}

// Retrieve returns up to topK chunks ordered by descending similarity.
//
// When parkCode is set and the store reports that the park filter lacks a
// supporting index, the retriever degrades instead of failing: it refetches
// unfiltered at topK*degradedFetchFactor, filters locally, and truncates to
// topK. Every other store failure propagates.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, parkCode string) ([]*store.ChunkWithScore, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed search query")
	}

	results, err := r.searcher.SearchChunks(ctx, &store.SearchChunksOptions{
		Vector:   vector,
		Limit:    topK,
		ParkCode: parkCode,
	})
	if err != nil {
		if parkCode == "" || !errors.Is(err, store.ErrParkFilterUnindexed) {
			return nil, err
		}

		// Missing index maintenance, not a transient fault.
		slog.Warn("park_code filter index missing, falling back to unfiltered search with local filtering",
			"park_code", parkCode)
		if r.metrics != nil {
			r.metrics.RecordDegradedSearch()
		}

		all, err := r.searcher.SearchChunks(ctx, &store.SearchChunksOptions{
			Vector: vector,
			Limit:  topK * degradedFetchFactor,
		})
		if err != nil {
			return nil, err
		}

		results = results[:0]
		for _, chunk := range all {
			if chunk.Chunk.ParkCode == parkCode {
				results = append(results, chunk)
			}
			if len(results) == topK {
				break
			}
		}
	}

	slog.Info("retrieved chunks", "count", len(results), "park_code", parkCode)
	if r.metrics != nil {
		r.metrics.RecordRetrieval(len(results))
	}

	r.checkParkMismatch(parkCode, results)
	return results, nil
}

// checkParkMismatch logs when a park-filtered search returned chunks from
// other parks. Observability only; the results are returned as-is.
func (r *Retriever) checkParkMismatch(parkCode string, results []*store.ChunkWithScore) {
	if parkCode == "" || len(results) == 0 {
		return
	}

	found := map[string]bool{}
	for _, chunk := range results {
		found[chunk.Chunk.ParkCode] = true
	}
	if !found[parkCode] || len(found) > 1 {
		codes := make([]string, 0, len(found))
		for code := range found {
			codes = append(codes, code)
		}
		slog.Warn("park filter mismatch", "expected", parkCode, "got", codes)
	}
}
