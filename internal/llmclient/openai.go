package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"
	defaultGroqURL   = "https://api.groq.com/openai/v1/chat/completions"

	architectSystemPrompt = "You are an expert system architect. You always respond with valid JSON only, no markdown formatting."
)

// ChatCompletionsProvider calls an OpenAI-compatible Chat Completions API
// (OpenAI itself and Groq) and asks for a JSON object.
type ChatCompletionsProvider struct {
	name    string
	http    *http.Client
	apiKey  string
	baseURL string
}

func NewOpenAIProvider(apiKey, baseURL string) *ChatCompletionsProvider {
	return newChatCompletionsProvider(ProviderOpenAI, apiKey, baseURL, defaultOpenAIURL)
}

// NewGroqProvider creates a Groq client using the OpenAI-compatible endpoint.
// See: https://console.groq.com/docs/api-reference
func NewGroqProvider(apiKey, baseURL string) *ChatCompletionsProvider {
	return newChatCompletionsProvider(ProviderGroq, apiKey, baseURL, defaultGroqURL)
}

func newChatCompletionsProvider(name, apiKey, baseURL, fallbackURL string) *ChatCompletionsProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = fallbackURL
	}
	return &ChatCompletionsProvider{
		name:    name,
		http:    &http.Client{Timeout: 180 * time.Second},
		apiKey:  apiKey,
		baseURL: baseURL,
	}
}

func (c *ChatCompletionsProvider) Name() string { return c.name }
func (c *ChatCompletionsProvider) Close() error { return nil }

type chatReq struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float32           `json:"temperature,omitempty"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
type chatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *ChatCompletionsProvider) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	b, err := json.Marshal(chatReq{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: architectSystemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		Temperature:    0.7,
		MaxTokens:      maxTokens,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", statusError(c.name, resp)
	}
	var out chatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", c.name, err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return out.Choices[0].Message.Content, nil
}
