package rag

import (
	"context"
	"sync"

	"github.com/parksage/parksage/ai/core/llm"
	"github.com/parksage/parksage/store"
)

// fakeLLM scripts the generation capability. Chat returns chatContent or
// chatErr; ChatStream replays streamTokens then streamErr. All calls are
// recorded.
type fakeLLM struct {
	mu sync.Mutex

	chatContent string
	chatErr     error
	// chatFn, when set, overrides chatContent per call.
	chatFn func(messages []llm.Message, opts *llm.ChatOptions) (string, error)

	streamTokens []string
	streamErr    error

	// stats, when set, is returned from every successful call.
	stats *llm.CallStats

	calls []chatCall
}

type chatCall struct {
	messages []llm.Message
	opts     *llm.ChatOptions
	stream   bool
}

func (f *fakeLLM) record(messages []llm.Message, opts *llm.ChatOptions, stream bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, chatCall{messages: messages, opts: opts, stream: stream})
}

func (f *fakeLLM) recorded() []chatCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chatCall(nil), f.calls...)
}

func (f *fakeLLM) callStats() *llm.CallStats {
	if f.stats != nil {
		return f.stats
	}
	return &llm.CallStats{}
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message, opts *llm.ChatOptions) (string, *llm.CallStats, error) {
	f.record(messages, opts, false)
	if f.chatFn != nil {
		content, err := f.chatFn(messages, opts)
		return content, f.callStats(), err
	}
	if f.chatErr != nil {
		return "", nil, f.chatErr
	}
	return f.chatContent, f.callStats(), nil
}

func (f *fakeLLM) ChatStream(_ context.Context, messages []llm.Message, opts *llm.ChatOptions) (<-chan string, <-chan *llm.CallStats, <-chan error) {
	f.record(messages, opts, true)

	contentChan := make(chan string, len(f.streamTokens)+1)
	statsChan := make(chan *llm.CallStats, 1)
	errChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(statsChan)
		defer close(errChan)

		for _, token := range f.streamTokens {
			contentChan <- token
		}
		if f.streamErr != nil {
			errChan <- f.streamErr
			return
		}
		statsChan <- f.callStats()
	}()

	return contentChan, statsChan, errChan
}

func (f *fakeLLM) Warmup(context.Context) {}

// fakeEmbedder returns a fixed vector for any input.
type fakeEmbedder struct {
	vector []float32
	err    error
	texts  []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	if f.vector != nil {
		return f.vector, nil
	}
	return []float32{1, 0, 0}, nil
}

// fakeSearcher replays scripted search responses in call order.
type fakeSearcher struct {
	responses []searchResponse
	calls     []*store.SearchChunksOptions
}

type searchResponse struct {
	chunks []*store.ChunkWithScore
	err    error
}

func (f *fakeSearcher) SearchChunks(_ context.Context, opts *store.SearchChunksOptions) ([]*store.ChunkWithScore, error) {
	f.calls = append(f.calls, opts)
	if len(f.responses) == 0 {
		return nil, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp.chunks, resp.err
}

func scoredChunk(chunkID, parkCode, parkName, content string, score float32) *store.ChunkWithScore {
	return &store.ChunkWithScore{
		Chunk: &store.Chunk{
			ChunkID:   chunkID,
			ParkCode:  parkCode,
			ParkName:  parkName,
			SourceURL: "https://www.nps.gov/" + parkCode + "/" + chunkID,
			Content:   content,
		},
		Score: score,
	}
}
