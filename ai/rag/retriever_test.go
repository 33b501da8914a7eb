package rag

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parksage/parksage/store"
)

func TestRetrieveNormalPath(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	searcher := &fakeSearcher{responses: []searchResponse{
		{chunks: []*store.ChunkWithScore{
			scoredChunk("a", "yell", "Yellowstone National Park", "geysers", 0.9),
		}},
	}}
	retriever := NewRetriever(embedder, searcher, nil)

	results, err := retriever.Retrieve(context.Background(), "geysers", 5, "yell")
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.Len(t, searcher.calls, 1)
	assert.Equal(t, []float32{0.1, 0.2}, searcher.calls[0].Vector)
	assert.Equal(t, 5, searcher.calls[0].Limit)
	assert.Equal(t, "yell", searcher.calls[0].ParkCode)
	assert.Equal(t, []string{"geysers"}, embedder.texts)
}

func TestRetrieveDegradedPath(t *testing.T) {
	unfiltered := []*store.ChunkWithScore{
		scoredChunk("a", "yose", "Yosemite National Park", "valley", 0.95),
		scoredChunk("b", "zion", "Zion National Park", "canyon walls", 0.9),
		scoredChunk("c", "zion", "Zion National Park", "angels landing", 0.85),
		scoredChunk("d", "yell", "Yellowstone National Park", "geysers", 0.8),
		scoredChunk("e", "zion", "Zion National Park", "narrows", 0.75),
	}
	searcher := &fakeSearcher{responses: []searchResponse{
		{err: store.ErrParkFilterUnindexed},
		{chunks: unfiltered},
	}}
	retriever := NewRetriever(&fakeEmbedder{}, searcher, nil)

	results, err := retriever.Retrieve(context.Background(), "hikes", 2, "zion")
	require.NoError(t, err)

	// Unfiltered refetch at topK*3, filtered locally, truncated to topK.
	require.Len(t, searcher.calls, 2)
	assert.Equal(t, 6, searcher.calls[1].Limit)
	assert.Empty(t, searcher.calls[1].ParkCode)

	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].Chunk.ChunkID)
	assert.Equal(t, "c", results[1].Chunk.ChunkID)
	for _, r := range results {
		assert.Equal(t, "zion", r.Chunk.ParkCode)
	}
}

func TestRetrieveDegradedPathOnlyWithFilter(t *testing.T) {
	// Without a park filter the sentinel propagates like any other error.
	searcher := &fakeSearcher{responses: []searchResponse{
		{err: store.ErrParkFilterUnindexed},
	}}
	retriever := NewRetriever(&fakeEmbedder{}, searcher, nil)

	_, err := retriever.Retrieve(context.Background(), "hikes", 2, "")
	assert.ErrorIs(t, err, store.ErrParkFilterUnindexed)
	assert.Len(t, searcher.calls, 1)
}

func TestRetrieveOtherErrorsPropagate(t *testing.T) {
	searcher := &fakeSearcher{responses: []searchResponse{
		{err: errors.New("connection refused")},
	}}
	retriever := NewRetriever(&fakeEmbedder{}, searcher, nil)

	_, err := retriever.Retrieve(context.Background(), "hikes", 2, "zion")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Len(t, searcher.calls, 1)
}

func TestRetrieveEmbedErrorPropagates(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("embedding quota exceeded")}
	searcher := &fakeSearcher{}
	retriever := NewRetriever(embedder, searcher, nil)

	_, err := retriever.Retrieve(context.Background(), "hikes", 2, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding quota exceeded")
	assert.Empty(t, searcher.calls)
}
