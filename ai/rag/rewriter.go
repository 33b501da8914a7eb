package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/parksage/parksage/ai/core/llm"
	"github.com/parksage/parksage/ai/metrics"
	"github.com/parksage/parksage/parks"
)

// DefaultRewriteWindow is how many trailing history turns the rewriter
// includes in its prompt.
const DefaultRewriteWindow = 4

const (
	rewriteTemperature = 0.3
	rewriteMaxTokens   = 100
)

// Rewriter turns an ambiguous follow-up question into a self-contained
// search query by resolving pronouns and references against recent history.
// Rewriting is a best-effort optimization: it never fails, it only falls
// back to the original question.
type Rewriter struct {
	llm       llm.Service
	directory *parks.Directory
	window    int
	metrics   *metrics.PrometheusExporter
}

// NewRewriter creates a rewriter. A non-positive window falls back to
// DefaultRewriteWindow; the exporter may be nil.
func NewRewriter(service llm.Service, directory *parks.Directory, window int, exporter *metrics.PrometheusExporter) *Rewriter {
	if window <= 0 {
		window = DefaultRewriteWindow
	}
	return &Rewriter{llm: service, directory: directory, window: window, metrics: exporter}
}

// Rewrite returns a self-contained search query for the question. The caller
// decides when rewriting applies; the rewriter assumes history is relevant.
func (r *Rewriter) Rewrite(ctx context.Context, question string, history []Turn, activeParkCode string) string {
	recent := lastTurns(history, r.window)
	lines := make([]string, 0, len(recent))
	for _, turn := range recent {
		label := "Assistant"
		if turn.Role == RoleUser {
			label = "User"
		}
		lines = append(lines, label+": "+turn.Content)
	}

	parkContext := ""
	if activeParkCode != "" {
		parkContext = fmt.Sprintf(
			"\n\nIMPORTANT: The conversation is about %s. Ensure the rewritten question includes this park name if relevant.",
			r.directory.NameFor(activeParkCode),
		)
	}

	prompt := fmt.Sprintf(
		"Given the conversation history below, rewrite the user's latest question to be self-contained and specific. "+
			"Replace pronouns and references (like 'it', 'there', 'that', 'them') with the actual entities they refer to.\n\n"+
			"Conversation history:\n%s\n\n"+
			"Latest question: %s%s\n\n"+
			"Rewrite this question to be clear and specific, suitable for searching a database. "+
			"Include the park name or specific topic being discussed. Keep it concise (under 20 words).\n\n"+
			"Rewritten question:",
		strings.Join(lines, "\n"), question, parkContext,
	)

	messages := []llm.Message{
		llm.SystemPrompt(rewriteSystemPrompt),
		llm.UserMessage(prompt),
	}

	content, stats, err := r.llm.Chat(ctx, messages, &llm.ChatOptions{
		Temperature: rewriteTemperature,
		MaxTokens:   rewriteMaxTokens,
	})
	if err != nil {
		slog.Error("query rewrite failed, using original question", "error", err)
		return question
	}
	recordLLMStats(r.metrics, "rewrite", stats)

	rewritten := strings.TrimSpace(strings.Trim(strings.TrimSpace(content), `"'`))
	if rewritten == "" {
		slog.Warn("query rewrite produced empty output, using original question")
		return question
	}

	slog.Info("query rewritten", "original", question, "rewritten", rewritten)
	return rewritten
}
