package llmclient

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

const defaultClaudeURL = "https://api.anthropic.com/v1/messages"

// ClaudeProvider calls the Anthropic Messages API.
type ClaudeProvider struct {
	http    *http.Client
	apiKey  string
	baseURL string
}

func NewClaudeProvider(apiKey, baseURL string) *ClaudeProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultClaudeURL
	}
	return &ClaudeProvider{
		http:    &http.Client{Timeout: 180 * time.Second},
		apiKey:  apiKey,
		baseURL: baseURL,
	}
}

func (c *ClaudeProvider) Name() string { return ProviderClaude }
func (c *ClaudeProvider) Close() error { return nil }

type claudeReq struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
type claudeResp struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *ClaudeProvider) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	b, err := json.Marshal(claudeReq{
		Model:     req.Model,
		MaxTokens: maxTokens,
		Messages:  []claudeMessage{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", statusError("claude", resp)
	}
	var out claudeResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("claude: decode response: %w", err)
	}
	var sb strings.Builder
	for _, part := range out.Content {
		if part.Type == "" || part.Type == "text" {
			sb.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

// statusError reads a bounded slice of the error body for diagnostics.
func statusError(vendor string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	err := fmt.Errorf("%s: unexpected status %s: %s", vendor, resp.Status, string(body))
	if resp.StatusCode == http.StatusBadRequest && strings.Contains(string(body), "context_length_exceeded") {
		return NewPermanentError(err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return NewPermanentError(err)
	}
	return err
}
