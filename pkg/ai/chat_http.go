package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// chatMessage is shared by the Ollama and OpenAI-compatible wire formats.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatEndpoint posts JSON chat requests to one provider URL.
type chatEndpoint struct {
	provider   string
	url        string
	apiKey     string
	httpClient *http.Client
}

func newChatEndpoint(provider, url, apiKey string, timeout time.Duration) chatEndpoint {
	if timeout <= 0 {
		timeout = defaultGenerationTimeout
	}
	return chatEndpoint{
		provider:   provider,
		url:        url,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (e chatEndpoint) post(ctx context.Context, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", e.provider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		if msg := apiErrorMessage(resp.Body); msg != "" {
			return fmt.Errorf("%s api error: %s", e.provider, msg)
		}
		return fmt.Errorf("%s api error: %s", e.provider, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", e.provider, err)
	}
	return nil
}

// apiErrorMessage reads {"error": "..."} (Ollama) or
// {"error": {"message": "..."}} (OpenAI-compatible).
func apiErrorMessage(r io.Reader) string {
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&body); err != nil || len(body.Error) == 0 {
		return ""
	}
	var text string
	if json.Unmarshal(body.Error, &text) == nil {
		return strings.TrimSpace(text)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body.Error, &obj) == nil {
		return strings.TrimSpace(obj.Message)
	}
	return ""
}

func chatMessages(systemPrompt, userPrompt string) []chatMessage {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	return append(messages, chatMessage{Role: "user", Content: userPrompt})
}

func nonEmpty(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyGeneration
	}
	return text, nil
}
