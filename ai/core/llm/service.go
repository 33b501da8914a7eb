package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// CallStats represents statistics for a single LLM call.
type CallStats struct {
	// PromptTokens is the number of tokens in the input prompt.
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens in the generated response.
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the sum of prompt and completion tokens.
	TotalTokens int `json:"total_tokens"`

	// ThinkingDurationMs is the time from request start to first chunk
	// (TTFT). For non-streaming requests, this is the total request duration.
	ThinkingDurationMs int64 `json:"thinking_duration_ms"`

	// TotalDurationMs is the total wall-clock time for the request.
	TotalDurationMs int64 `json:"total_duration_ms"`
}

// ChatOptions overrides the service defaults for a single call.
// The pipeline uses deterministic sampling (temperature 0) for answer
// synthesis and a slightly higher temperature with a short output budget
// for query rewriting.
type ChatOptions struct {
	Temperature float32
	MaxTokens   int
}

// Service is the LLM service interface.
type Service interface {
	// Chat performs synchronous chat. Returns content, statistics, and error.
	Chat(ctx context.Context, messages []Message, opts *ChatOptions) (string, *CallStats, error)

	// ChatStream performs streaming chat. Returns content channel, stats
	// channel, and error channel. The stats channel is closed after sending
	// the final stats when the stream completes.
	ChatStream(ctx context.Context, messages []Message, opts *ChatOptions) (<-chan string, <-chan *CallStats, <-chan error)

	// Warmup sends a lightweight ping request to establish and warm up the
	// LLM connection.
	Warmup(ctx context.Context)
}

// Config represents LLM service configuration.
type Config struct {
	Provider    string // groq, openai, deepseek, openrouter, ollama
	Model       string // llama-3.3-70b-versatile, gpt-4o, deepseek-chat
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0
	Timeout     int     // request timeout in seconds (default: 120)
}

type service struct {
	client      *openai.Client
	model       string
	provider    string
	maxTokens   int
	temperature float32
	timeout     int
}

// NewService creates a new LLM Service for any OpenAI-compatible provider.
func NewService(cfg *Config) (Service, error) {
	if cfg.APIKey == "" && cfg.Provider != "ollama" {
		return nil, fmt.Errorf("LLM API key not configured for provider %q", cfg.Provider)
	}

	httpClient := newHTTPClient()

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.HTTPClient = httpClient

	baseURL := cfg.BaseURL
	if baseURL == "" {
		switch cfg.Provider {
		case "groq":
			baseURL = "https://api.groq.com/openai/v1"
		case "deepseek":
			baseURL = "https://api.deepseek.com"
		case "openrouter":
			baseURL = "https://openrouter.ai/api/v1"
		case "ollama":
			baseURL = "http://localhost:11434/v1"
		case "openai", "":
			// go-openai default
		default:
			slog.Info("Using generic OpenAI-compatible provider", "provider", cfg.Provider)
		}
	}
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	client := openai.NewClientWithConfig(clientConfig)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120
	}

	return &service{
		client:      client,
		model:       cfg.Model,
		provider:    cfg.Provider,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
	}, nil
}

func (s *service) request(messages []Message, opts *ChatOptions) openai.ChatCompletionRequest {
	temperature := s.temperature
	maxTokens := s.maxTokens
	if opts != nil {
		temperature = opts.Temperature
		if opts.MaxTokens > 0 {
			maxTokens = opts.MaxTokens
		}
	}

	// go-openai marshals Temperature with omitempty, so a plain 0 never
	// reaches the wire and the provider default applies instead. Send the
	// smallest positive float to make deterministic sampling explicit.
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	return openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages:    convertMessages(messages),
	}
}

func (s *service) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (string, *CallStats, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeout)*time.Second)
	defer cancel()

	req := s.request(messages, opts)

	slog.Debug("LLM: chat request",
		"model", s.model,
		"messages_count", len(messages),
		"max_tokens", req.MaxTokens,
		"temperature", req.Temperature,
	)

	startTime := time.Now()

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("LLM: chat request failed", "error", err)
		return "", nil, fmt.Errorf("LLM chat failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		slog.Warn("LLM: empty response")
		return "", nil, fmt.Errorf("empty response from LLM")
	}

	totalDuration := time.Since(startTime)

	stats := &CallStats{
		PromptTokens:       resp.Usage.PromptTokens,
		CompletionTokens:   resp.Usage.CompletionTokens,
		TotalTokens:        resp.Usage.TotalTokens,
		ThinkingDurationMs: totalDuration.Milliseconds(),
		TotalDurationMs:    totalDuration.Milliseconds(),
	}

	slog.Debug("LLM: chat response received",
		"content_length", len(resp.Choices[0].Message.Content),
		"total_tokens", stats.TotalTokens,
		"duration_ms", totalDuration.Milliseconds(),
	)

	return resp.Choices[0].Message.Content, stats, nil
}

func (s *service) ChatStream(ctx context.Context, messages []Message, opts *ChatOptions) (<-chan string, <-chan *CallStats, <-chan error) {
	contentChan := make(chan string, 10)
	statsChan := make(chan *CallStats, 1)
	errChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(statsChan)
		defer close(errChan)

		ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		req := s.request(messages, opts)
		req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

		startTime := time.Now()
		var firstChunkTime time.Time

		slog.Debug("LLM: chat stream starting", "model", s.model, "messages", len(messages))
		stream, err := s.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			slog.Error("LLM: failed to create stream", "error", err)
			select {
			case errChan <- fmt.Errorf("create stream failed: %w", err):
			case <-ctx.Done():
			}
			return
		}
		defer func() { _ = stream.Close() }()

		chunkCount := 0

		finish := func(promptTokens, completionTokens, totalTokens int) {
			totalDuration := time.Since(startTime)
			var thinkingMs int64
			if !firstChunkTime.IsZero() {
				thinkingMs = firstChunkTime.Sub(startTime).Milliseconds()
			}
			statsChan <- &CallStats{
				PromptTokens:       promptTokens,
				CompletionTokens:   completionTokens,
				TotalTokens:        totalTokens,
				ThinkingDurationMs: thinkingMs,
				TotalDurationMs:    totalDuration.Milliseconds(),
			}
			slog.Debug("LLM: chat stream completed",
				"chunks", chunkCount,
				"total_tokens", totalTokens,
				"duration_ms", totalDuration.Milliseconds(),
			)
		}

		for {
			response, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					finish(0, 0, 0)
					return
				}
				slog.Error("LLM: stream receive error", "error", err, "chunks_so_far", chunkCount)
				select {
				case errChan <- fmt.Errorf("stream recv failed: %w", err):
				case <-ctx.Done():
				}
				return
			}

			if firstChunkTime.IsZero() && len(response.Choices) > 0 && response.Choices[0].Delta.Content != "" {
				firstChunkTime = time.Now()
			}

			// Final usage-only chunk when StreamOptions.IncludeUsage is set.
			if response.Usage != nil && response.Usage.TotalTokens > 0 {
				finish(response.Usage.PromptTokens, response.Usage.CompletionTokens, response.Usage.TotalTokens)
				return
			}

			if len(response.Choices) == 0 {
				continue
			}

			delta := response.Choices[0].Delta.Content
			if delta != "" {
				chunkCount++
				select {
				case contentChan <- delta:
				case <-ctx.Done():
					slog.Warn("LLM: stream context cancelled during send", "chunks", chunkCount)
					return
				}
			}

			if response.Choices[0].FinishReason != "" {
				finish(0, 0, 0)
				return
			}
		}
	}()

	return contentChan, statsChan, errChan
}

func (s *service) Warmup(ctx context.Context) {
	warmupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	slog.Info("LLM: starting connection warmup", "provider", s.provider, "model", s.model)

	startTime := time.Now()

	req := openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   1,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Hi"},
		},
	}

	_, err := s.client.CreateChatCompletion(warmupCtx, req)

	duration := time.Since(startTime)

	if err != nil {
		slog.Warn("LLM: warmup ping failed (service will still work, first request may be slower)",
			"provider", s.provider,
			"model", s.model,
			"error", err,
			"duration_ms", duration.Milliseconds(),
		)
		return
	}

	slog.Info("LLM: connection warmed up",
		"provider", s.provider,
		"model", s.model,
		"duration_ms", duration.Milliseconds(),
	)
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	llmMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		switch m.Role {
		case "system":
			llmMessages[i] = openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: m.Content,
			}
		case "assistant":
			llmMessages[i] = openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: m.Content,
			}
		default:
			llmMessages[i] = openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: m.Content,
			}
		}
	}
	return llmMessages
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// Helper for creating system prompts.
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// Helper for creating user messages.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// Helper for creating assistant messages.
func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}
