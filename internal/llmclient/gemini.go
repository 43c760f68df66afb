package llmclient

import (
	"context"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

const architectJSONPreamble = "You are an expert system architect. You MUST respond with ONLY valid JSON " +
	"(no markdown code blocks, no explanations before or after). Your entire response should be parseable " +
	"JSON starting with { or [ and ending with } or ].\n\n"

// GeminiProvider is a thin wrapper around the official genai client.
// Cross-cutting concerns (rate limiting, deadlines, logging) are applied via middleware.
type GeminiProvider struct {
	cli *genai.Client
}

func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: init client: %w", err)
	}
	return &GeminiProvider{cli: cli}, nil
}

func (g *GeminiProvider) Name() string { return ProviderGemini }
func (g *GeminiProvider) Close() error { return nil }

func (g *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	resp, err := g.cli.Models.GenerateContent(ctx, req.Model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: architectJSONPreamble + req.Prompt}}}},
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](0.7),
			MaxOutputTokens: int32(maxTokens),
		},
	)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
