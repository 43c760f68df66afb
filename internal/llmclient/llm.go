package llmclient

import (
	"context"
	"errors"
)

// ModelLevel represents the capability tier of a model.
type ModelLevel string

const (
	ModelLevelLow  ModelLevel = "low"
	ModelLevelHigh ModelLevel = "high"
)

const (
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
	ProviderFake   = "fake"
)

// DefaultPriority is the order used when no explicit provider list is given
// and when every requested provider has failed.
var DefaultPriority = []string{ProviderGemini, ProviderClaude, ProviderOpenAI, ProviderGroq, ProviderFake}

// Request is a single completion request against one provider.
type Request struct {
	Model     string
	Prompt    string
	MaxTokens int
}

// Provider is a vendor backend that turns a prompt into raw model text.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
	Close() error
}

type ProviderFactory func(ctx context.Context) (Provider, error)

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// ProviderRegistration describes an enabled provider and how to build it.
type ProviderRegistration struct {
	Name      string
	Models    map[ModelLevel]string
	RateLimit *RateLimitConfig
	Factory   ProviderFactory
}

type ProviderRegistrar interface {
	Register(spec ProviderRegistration) error
}

var ErrEmptyResponse = errors.New("llm returned an empty response")

// PermanentError indicates a vendor error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}
