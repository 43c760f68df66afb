package llmclient

import (
	"context"
	"strings"
)

// ProviderConfig is the credential and model configuration for one vendor.
// A provider with an empty APIKey is disabled and never registered.
type ProviderConfig struct {
	Name      string
	APIKey    string
	Model     string
	FastModel string
	BaseURL   string
	RateLimit *RateLimitConfig
}

var defaultModels = map[string]map[ModelLevel]string{
	ProviderGemini: {ModelLevelHigh: "gemini-2.0-flash-exp", ModelLevelLow: "gemini-2.5-flash"},
	ProviderClaude: {ModelLevelHigh: "claude-sonnet-4-20250514", ModelLevelLow: "claude-3-5-haiku-latest"},
	ProviderOpenAI: {ModelLevelHigh: "gpt-4-turbo-preview", ModelLevelLow: "gpt-4o-mini"},
	ProviderGroq:   {ModelLevelHigh: "llama-3.3-70b-versatile", ModelLevelLow: "llama-3.1-8b-instant"},
}

// DefaultModel returns the catalog model for a provider and level.
func DefaultModel(provider string, level ModelLevel) string {
	return defaultModels[strings.ToLower(strings.TrimSpace(provider))][level]
}

// RegisterConfigured registers every provider in cfgs that carries credentials.
func RegisterConfigured(reg ProviderRegistrar, cfgs []ProviderConfig) error {
	for _, c := range cfgs {
		c := c
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if strings.TrimSpace(c.APIKey) == "" {
			continue
		}
		models := map[ModelLevel]string{
			ModelLevelHigh: firstNonEmpty(c.Model, DefaultModel(name, ModelLevelHigh)),
			ModelLevelLow:  firstNonEmpty(c.FastModel, DefaultModel(name, ModelLevelLow), c.Model),
		}
		var factory ProviderFactory
		switch name {
		case ProviderGemini:
			factory = func(ctx context.Context) (Provider, error) {
				g, err := NewGeminiProvider(ctx, c.APIKey)
				if err != nil {
					return nil, err
				}
				return g, nil
			}
		case ProviderClaude:
			factory = func(context.Context) (Provider, error) {
				return NewClaudeProvider(c.APIKey, c.BaseURL), nil
			}
		case ProviderOpenAI:
			factory = func(context.Context) (Provider, error) {
				return NewOpenAIProvider(c.APIKey, c.BaseURL), nil
			}
		case ProviderGroq:
			factory = func(context.Context) (Provider, error) {
				return NewGroqProvider(c.APIKey, c.BaseURL), nil
			}
		default:
			continue
		}
		if err := reg.Register(ProviderRegistration{
			Name:      name,
			Models:    models,
			RateLimit: c.RateLimit,
			Factory:   factory,
		}); err != nil {
			return err
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
