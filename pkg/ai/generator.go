package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// TextGenerator generates text from a system prompt and user prompt.
// All LLM providers (Gemini, GenAI SDK, Ollama, OpenAI-compatible) implement this interface.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ErrEmptyGeneration is returned when a provider answers without any text.
var ErrEmptyGeneration = errors.New("empty response from generation provider")

const (
	ProviderGemini       = "gemini"
	ProviderGenAI        = "genai"
	ProviderOllama       = "ollama"
	ProviderOpenAICompat = "openai-compat"

	defaultGenerationTimeout = 120 * time.Second
)

// GeneratorConfig selects and configures a generation provider.
type GeneratorConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// NewTextGenerator builds the TextGenerator named by cfg.Provider.
func NewTextGenerator(ctx context.Context, cfg GeneratorConfig) (TextGenerator, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGenerationTimeout
	}
	httpClient := &http.Client{Timeout: timeout}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		client, err := NewGeminiClient(cfg.APIKey, WithGeminiBaseURL(cfg.BaseURL), WithGeminiHTTPClient(httpClient))
		if err != nil {
			return nil, err
		}
		return NewGeminiGenerator(client, cfg.Model), nil
	case ProviderGenAI:
		return NewGenAIGenerator(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL, httpClient)
	case ProviderOllama:
		return NewOllamaGenerator(cfg.BaseURL, cfg.Model, timeout), nil
	case ProviderOpenAICompat:
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, fmt.Errorf("openai-compat base URL required")
		}
		return NewOpenAICompatGenerator(cfg.BaseURL, cfg.APIKey, cfg.Model, timeout), nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", cfg.Provider)
	}
}
