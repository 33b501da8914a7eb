package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// LLM configuration (OpenAI-compatible protocol). All providers
	// (groq, openai, deepseek, openrouter, ollama) use the same config.
	LLMProvider string // provider identifier
	LLMAPIKey   string
	LLMBaseURL  string // optional, has a default per provider
	LLMModel    string // llama-3.3-70b-versatile, gpt-4o, etc.
	LLMTimeout  int    // request timeout in seconds (default: 120)

	// Embedding configuration
	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string
	EmbeddingDimensions int

	// Conversation lookback windows for the pipeline. Tunable, not
	// invariants: detection scans more turns than rewriting on purpose.
	DetectionWindow int
	RewriteWindow   int

	// Server configuration
	Mode    string
	Addr    string
	Port    int
	Data    string
	Driver  string
	DSN     string
	Version string
}

// Provider default configurations for the LLM.
// Used when PARKSAGE_LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"groq": {
		BaseURL: "https://api.groq.com/openai/v1",
		Model:   "llama-3.3-70b-versatile",
	},
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "meta-llama/llama-3.3-70b-instruct",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an LLM API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != "" || p.LLMProvider == "ollama"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("PARKSAGE_LLM_PROVIDER", "groq")
	p.LLMAPIKey = getEnvOrDefault("PARKSAGE_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("PARKSAGE_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("PARKSAGE_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("PARKSAGE_LLM_TIMEOUT_SECONDS", 120)

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		slog.Warn("Unknown LLM provider, using default: groq", "provider", p.LLMProvider)
		p.LLMProvider = "groq"
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	// Cohere's OpenAI-compatible endpoint is the default to match the
	// embed-english-v3.0 vectors the chunk index was built with.
	p.EmbeddingProvider = getEnvOrDefault("PARKSAGE_EMBEDDING_PROVIDER", "cohere")
	p.EmbeddingModel = getEnvOrDefault("PARKSAGE_EMBEDDING_MODEL", "embed-english-v3.0")
	p.EmbeddingAPIKey = getEnvOrDefault("PARKSAGE_EMBEDDING_API_KEY", "")
	p.EmbeddingBaseURL = getEnvOrDefault("PARKSAGE_EMBEDDING_BASE_URL", "https://api.cohere.ai/compatibility/v1")
	p.EmbeddingDimensions = getEnvOrDefaultInt("PARKSAGE_EMBEDDING_DIMENSIONS", 1024)

	p.DetectionWindow = getEnvOrDefaultInt("PARKSAGE_DETECTION_WINDOW", 6)
	p.RewriteWindow = getEnvOrDefaultInt("PARKSAGE_REWRITE_WINDOW", 4)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Data != "" {
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			return err
		}
		p.Data = dataDir
	}

	if p.Driver != "postgres" && p.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q (postgres, sqlite)", p.Driver)
	}
	if p.DSN == "" {
		return errors.New("dsn required")
	}

	if p.DetectionWindow <= 0 {
		p.DetectionWindow = 6
	}
	if p.RewriteWindow <= 0 {
		p.RewriteWindow = 4
	}

	return nil
}
