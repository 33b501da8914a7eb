package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"github.com/parksage/parksage/ai/core/llm"
	"github.com/parksage/parksage/ai/metrics"
	"github.com/parksage/parksage/store"
)

// Generator produces a grounded answer from retrieved context. It never
// re-ranks: context blocks keep retrieval order, and sources project 1:1
// from the chunks it was given.
type Generator struct {
	llm     llm.Service
	metrics *metrics.PrometheusExporter
}

// NewGenerator creates a generator over the given LLM service. The exporter
// may be nil.
func NewGenerator(service llm.Service, exporter *metrics.PrometheusExporter) *Generator {
	return &Generator{llm: service, metrics: exporter}
}

// answerOptions pins answer synthesis to deterministic sampling.
func answerOptions() *llm.ChatOptions {
	return &llm.ChatOptions{Temperature: 0}
}

// Generate produces the complete answer text and its sources.
// Generation failures propagate; there is no fallback for the answer step.
func (g *Generator) Generate(ctx context.Context, question string, chunks []*store.ChunkWithScore, history []Turn, activeParkCode string) (string, []Source, error) {
	messages := g.buildMessages(question, chunks, history, activeParkCode)

	answer, stats, err := g.llm.Chat(ctx, messages, answerOptions())
	if err != nil {
		slog.Error("answer generation failed", "error", err)
		return "", nil, errors.Wrap(err, "answer generation failed")
	}
	recordLLMStats(g.metrics, "answer", stats)

	return answer, sourcesFromChunks(chunks), nil
}

// GenerateStream invokes the LLM in token-emission mode. The caller owns
// draining the returned channels; sources for the final metadata event come
// from SourcesFor on the same chunks.
func (g *Generator) GenerateStream(ctx context.Context, question string, chunks []*store.ChunkWithScore, history []Turn, activeParkCode string) (<-chan string, <-chan *llm.CallStats, <-chan error) {
	messages := g.buildMessages(question, chunks, history, activeParkCode)
	return g.llm.ChatStream(ctx, messages, answerOptions())
}

// SourcesFor projects chunks into attribution sources, preserving order.
func (g *Generator) SourcesFor(chunks []*store.ChunkWithScore) []Source {
	return sourcesFromChunks(chunks)
}

// buildMessages assembles the full message sequence: system instruction,
// every prior turn verbatim in order, then the grounded user prompt.
func (g *Generator) buildMessages(question string, chunks []*store.ChunkWithScore, history []Turn, activeParkCode string) []llm.Message {
	blocks := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		blocks = append(blocks, fmt.Sprintf("[Source %d - %s]\n%s", i+1, chunk.Chunk.ParkName, chunk.Chunk.Content))
	}
	contextText := strings.Join(blocks, "\n\n")

	parkName := "national parks"
	if len(chunks) > 0 {
		if name := chunks[0].Chunk.ParkName; name != "" {
			parkName = name
		} else {
			parkName = "the park being discussed"
		}
	}

	parkStatement := ""
	if activeParkCode != "" && len(chunks) > 0 {
		parkStatement = fmt.Sprintf(
			"IMPORTANT CONTEXT: The user is currently asking about %s. "+
				"All context provided below is specifically about %s. "+
				"When the user uses words like 'there', 'it', or 'the park', they are referring to %s.\n\n",
			parkName, parkName, parkName,
		)
	}

	restriction := "Answer using only the context provided above."
	if activeParkCode != "" {
		restriction = fmt.Sprintf(
			"Answer ONLY about %s using ONLY the context above. Do not mention, compare, or reference any other national parks.",
			parkName,
		)
	}

	userContent := fmt.Sprintf(
		"%sContext from National Parks Service:\n\n%s\n\nUser Question: %s\n\n%s",
		parkStatement, contextText, question, restriction,
	)

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.SystemPrompt(answerSystemPrompt))
	for _, turn := range history {
		switch turn.Role {
		case RoleAssistant:
			messages = append(messages, llm.AssistantMessage(turn.Content))
		default:
			messages = append(messages, llm.UserMessage(turn.Content))
		}
	}
	return append(messages, llm.UserMessage(userContent))
}

func sourcesFromChunks(chunks []*store.ChunkWithScore) []Source {
	sources := make([]Source, 0, len(chunks))
	for _, chunk := range chunks {
		sources = append(sources, Source{
			ParkName: chunk.Chunk.ParkName,
			ParkCode: chunk.Chunk.ParkCode,
			URL:      chunk.Chunk.SourceURL,
			Score:    chunk.Score,
		})
	}
	return sources
}
