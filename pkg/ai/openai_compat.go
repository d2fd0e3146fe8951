package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// OpenAICompatGenerator targets servers speaking the chat completions API
// (vLLM, LiteLLM, LocalAI, OpenRouter).
type OpenAICompatGenerator struct {
	endpoint chatEndpoint
	model    string
}

// NewOpenAICompatGenerator expects baseURL with its /v1 prefix. apiKey may
// be empty for local servers.
func NewOpenAICompatGenerator(baseURL, apiKey, model string, timeout time.Duration) *OpenAICompatGenerator {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return &OpenAICompatGenerator{
		endpoint: newChatEndpoint("openai-compat", baseURL+"/chat/completions", apiKey, timeout),
		model:    strings.TrimSpace(model),
	}
}

// GenerateText implements TextGenerator. Only the first choice is used.
func (g *OpenAICompatGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if g.model == "" {
		return "", fmt.Errorf("openai-compat generation model required")
	}
	var resp struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	err := g.endpoint.post(ctx, struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
	}{Model: g.model, Messages: chatMessages(systemPrompt, userPrompt)}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyGeneration
	}
	return nonEmpty(resp.Choices[0].Message.Content)
}
