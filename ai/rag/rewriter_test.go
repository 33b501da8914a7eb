package rag

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parksage/parksage/parks"
)

func TestRewriteReturnsModelOutput(t *testing.T) {
	service := &fakeLLM{chatContent: `  "What wildlife lives in Glacier National Park?"  `}
	rewriter := NewRewriter(service, parks.DefaultDirectory(), 0, nil)

	history := []Turn{
		{Role: RoleUser, Content: "Tell me about Glacier National Park"},
		{Role: RoleAssistant, Content: "Glacier is in Montana."},
	}

	got := rewriter.Rewrite(context.Background(), "What wildlife can I see there?", history, "glac")
	assert.Equal(t, "What wildlife lives in Glacier National Park?", got)

	calls := service.recorded()
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].opts)
	assert.InDelta(t, 0.3, calls[0].opts.Temperature, 1e-6)
	assert.Equal(t, 100, calls[0].opts.MaxTokens)
}

func TestRewritePromptIncludesHistoryAndPark(t *testing.T) {
	service := &fakeLLM{chatContent: "rewritten"}
	rewriter := NewRewriter(service, parks.DefaultDirectory(), 2, nil)

	history := []Turn{
		{Role: RoleUser, Content: "old turn outside the window"},
		{Role: RoleUser, Content: "Tell me about Zion"},
		{Role: RoleAssistant, Content: "Zion has slot canyons."},
	}

	rewriter.Rewrite(context.Background(), "Can I hike there in winter?", history, "zion")

	calls := service.recorded()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].messages, 2)

	prompt := calls[0].messages[1].Content
	assert.Contains(t, prompt, "User: Tell me about Zion")
	assert.Contains(t, prompt, "Assistant: Zion has slot canyons.")
	assert.NotContains(t, prompt, "old turn outside the window")
	assert.Contains(t, prompt, "Latest question: Can I hike there in winter?")
	assert.Contains(t, prompt, "Zion National Park")
}

func TestRewriteNoParkContextWhenUnresolved(t *testing.T) {
	service := &fakeLLM{chatContent: "rewritten"}
	rewriter := NewRewriter(service, parks.DefaultDirectory(), 0, nil)

	history := []Turn{{Role: RoleUser, Content: "What are the busiest parks?"}}
	rewriter.Rewrite(context.Background(), "Which ones need reservations?", history, "")

	calls := service.recorded()
	require.Len(t, calls, 1)
	assert.NotContains(t, calls[0].messages[1].Content, "IMPORTANT: The conversation is about")
}

func TestRewriteFallsBackOnFailure(t *testing.T) {
	service := &fakeLLM{chatErr: errors.New("rate limited")}
	rewriter := NewRewriter(service, parks.DefaultDirectory(), 0, nil)

	history := []Turn{{Role: RoleUser, Content: "Tell me about Zion"}}
	got := rewriter.Rewrite(context.Background(), "Can I camp there?", history, "zion")

	assert.Equal(t, "Can I camp there?", got)
}

func TestRewriteFallsBackOnEmptyOutput(t *testing.T) {
	service := &fakeLLM{chatContent: `""`}
	rewriter := NewRewriter(service, parks.DefaultDirectory(), 0, nil)

	history := []Turn{{Role: RoleUser, Content: "Tell me about Zion"}}
	got := rewriter.Rewrite(context.Background(), "Can I camp there?", history, "zion")

	assert.Equal(t, "Can I camp there?", got)
}
