// Package rag implements the conversational retrieval-augmented answering
// pipeline: park detection, query rewriting, vector retrieval, and grounded
// answer generation, sequenced by an explicit state machine.
package rag

import (
	"context"
	"time"

	"github.com/parksage/parksage/ai/core/llm"
	"github.com/parksage/parksage/ai/metrics"
)

// Turn is one prior message of the conversation, oldest first in a history
// slice. Histories are caller-owned and never mutated by the pipeline.
type Turn struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Source is the attribution projection of one retrieved chunk, in
// retrieval order.
type Source struct {
	ParkName string  `json:"park_name"`
	ParkCode string  `json:"park_code"`
	URL      string  `json:"url"`
	Score    float32 `json:"score"`
}

// SearchResult is one scored chunk returned by the direct search operation.
type SearchResult struct {
	ID        int     `json:"id"`
	Score     float32 `json:"score"`
	Text      string  `json:"text"`
	ParkCode  string  `json:"park_code"`
	ParkName  string  `json:"park_name"`
	SourceURL string  `json:"source_url"`
	ChunkID   string  `json:"chunk_id"`
}

// Request carries one question through the pipeline.
type Request struct {
	Question string
	TopK     int
	// ParkCode is the caller-supplied filter, used only when no park is
	// detected in the conversation text.
	ParkCode string
	History  []Turn
}

// Result is the final aggregated output of a blocking answer run.
type Result struct {
	Answer         string   `json:"answer"`
	Sources        []Source `json:"sources"`
	Question       string   `json:"question"`
	NumSources     int      `json:"num_sources"`
	ActiveParkCode string   `json:"active_park_code,omitempty"`
}

// Embedder converts text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// recordLLMStats feeds one call's usage into the exporter under the given
// purpose ("rewrite" or "answer"). Nil exporter or stats is a no-op.
func recordLLMStats(exporter *metrics.PrometheusExporter, purpose string, stats *llm.CallStats) {
	if exporter == nil || stats == nil {
		return
	}
	exporter.RecordLLMLatency(purpose, time.Duration(stats.TotalDurationMs)*time.Millisecond)
	exporter.RecordLLMTokens(purpose, "prompt", stats.PromptTokens)
	exporter.RecordLLMTokens(purpose, "completion", stats.CompletionTokens)
}
