package ai

import (
	"errors"

	"github.com/parksage/parksage/ai/core/llm"
	"github.com/parksage/parksage/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Embedding EmbeddingConfig
	LLM       llm.Config
	Enabled   bool
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
}

// NewConfigFromProfile creates AI config from the runtime profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsAIEnabled(),
	}

	if !cfg.Enabled {
		return cfg
	}

	cfg.Embedding = EmbeddingConfig{
		Provider:   p.EmbeddingProvider,
		Model:      p.EmbeddingModel,
		APIKey:     p.EmbeddingAPIKey,
		BaseURL:    p.EmbeddingBaseURL,
		Dimensions: p.EmbeddingDimensions,
	}

	cfg.LLM = llm.Config{
		Provider:  p.LLMProvider,
		Model:     p.LLMModel,
		APIKey:    p.LLMAPIKey,
		BaseURL:   p.LLMBaseURL,
		MaxTokens: 2048,
		Timeout:   p.LLMTimeout,
		// Temperature stays 0: answer generation is deterministic, and the
		// rewriter passes its own per-call options anyway.
	}

	return cfg
}

// Validate validates the configuration. The service cannot answer questions
// without both capabilities, so an unconfigured AI stack fails validation
// with a direct error instead of surfacing later from a client constructor.
func (c *Config) Validate() error {
	if !c.Enabled {
		return errors.New("AI is not configured: set PARKSAGE_LLM_API_KEY (and embedding credentials)")
	}

	if c.Embedding.Provider == "" {
		return errors.New("embedding provider is required")
	}
	if c.Embedding.APIKey == "" {
		return errors.New("embedding API key is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return errors.New("embedding dimensions must be positive")
	}

	if c.LLM.Provider == "" {
		return errors.New("LLM provider is required")
	}
	if c.LLM.Provider != "ollama" && c.LLM.APIKey == "" {
		return errors.New("LLM API key is required")
	}

	return nil
}
