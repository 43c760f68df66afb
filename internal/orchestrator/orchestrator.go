// Package orchestrator drives a conversation through discovery, refinement,
// approval, deep dive and diagram display, and runs the one-shot blueprint
// flow.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"archie/internal/arbiter"
	"archie/internal/archive"
	"archie/internal/conversation"
	"archie/internal/llm"
	"archie/internal/llmclient"
	"archie/internal/prompt"

	"github.com/google/uuid"
)

const healthMessage = "Archie v2.0 - Conversational Architecture System"

// Orchestrator is safe for concurrent use across sessions.
type Orchestrator struct {
	store   conversation.Store
	gw      *llm.Gateway
	prompts prompt.Builder
	weights arbiter.Weights
	archive archive.Store
	now     func() time.Time
	newID   func() string

	mu      sync.Mutex
	running map[string]bool
	wg      sync.WaitGroup
}

type Option func(*Orchestrator)

// WithArchive stores the final diagram view of every finished deep dive.
func WithArchive(a archive.Store) Option {
	return func(o *Orchestrator) { o.archive = a }
}

func WithWeights(w arbiter.Weights) Option {
	return func(o *Orchestrator) { o.weights = w }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(o *Orchestrator) { o.newID = gen }
}

func New(store conversation.Store, gw *llm.Gateway, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:   store,
		gw:      gw,
		prompts: prompt.New(),
		weights: arbiter.DefaultWeights(),
		now:     time.Now,
		newID:   uuid.NewString,
		running: map[string]bool{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Wait blocks until every detached deep dive has finished.
func (o *Orchestrator) Wait() { o.wg.Wait() }

// DeleteSession removes a session. Unknown ids are not an error.
func (o *Orchestrator) DeleteSession(ctx context.Context, id string) error {
	return o.store.Delete(ctx, id)
}

func (o *Orchestrator) ActiveSessions(ctx context.Context) (int, error) {
	return o.store.Len(ctx)
}

// HealthReport lists which providers are configured.
type HealthReport struct {
	Status         string            `json:"status"`
	Message        string            `json:"message"`
	Providers      map[string]string `json:"providers"`
	ActiveSessions int               `json:"activeSessions"`
}

func (o *Orchestrator) Health(ctx context.Context) HealthReport {
	reg := o.gw.Registry()
	providers := map[string]string{}
	for _, name := range llmclient.DefaultPriority {
		if name == llmclient.ProviderFake && !reg.Enabled(name) {
			continue
		}
		if reg.Enabled(name) {
			providers[name] = "configured"
		} else {
			providers[name] = "not configured"
		}
	}
	n, err := o.store.Len(ctx)
	if err != nil {
		log.Printf("orchestrator: count sessions: %v", err)
	}
	return HealthReport{Status: "ok", Message: healthMessage, Providers: providers, ActiveSessions: n}
}

// callFor builds a provider call honouring the session's provider list and
// model overrides.
func callFor(form conversation.FormInputs, text string, level llmclient.ModelLevel) llm.Call {
	c := llm.Call{Prompt: text, Providers: form.AIProviders, Level: level}
	if level == llmclient.ModelLevelHigh {
		c.Models = form.ProviderModels
	}
	return c
}

// providerError maps gateway failures onto the caller-facing taxonomy.
func providerError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, llm.ErrNoProviderAvailable):
		return conversation.Wrap(conversation.KindNoProviderAvailable, err, "no AI provider is configured")
	case errors.Is(err, llm.ErrAllProvidersFailed):
		return conversation.Wrap(conversation.KindAllProvidersFailed, err, "all AI providers failed")
	default:
		return err
	}
}
