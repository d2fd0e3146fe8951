package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const defaultOllamaBaseURL = "http://127.0.0.1:11434"

// OllamaGenerator runs non-streaming /api/chat calls against one local model.
type OllamaGenerator struct {
	endpoint chatEndpoint
	model    string
}

// NewOllamaGenerator targets baseURL (empty means the local default). A zero
// timeout uses the package default.
func NewOllamaGenerator(baseURL, model string, timeout time.Duration) *OllamaGenerator {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &OllamaGenerator{
		endpoint: newChatEndpoint("ollama", baseURL+"/api/chat", "", timeout),
		model:    strings.TrimSpace(model),
	}
}

// GenerateText implements TextGenerator.
func (g *OllamaGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if g.model == "" {
		return "", fmt.Errorf("ollama generation model required")
	}
	var resp struct {
		Message chatMessage `json:"message"`
	}
	err := g.endpoint.post(ctx, struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
		Stream   bool          `json:"stream"`
	}{Model: g.model, Messages: chatMessages(systemPrompt, userPrompt)}, &resp)
	if err != nil {
		return "", err
	}
	return nonEmpty(resp.Message.Content)
}
