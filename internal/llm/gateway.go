package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"archie/internal/llmclient"
)

var (
	ErrNoProviderAvailable = errors.New("no AI provider available")
	ErrAllProvidersFailed  = errors.New("all AI providers failed")
)

// Call is one logical prompt execution.
type Call struct {
	Prompt string
	// Providers is the caller's preferred order. Empty means default priority.
	Providers []string
	// Models maps provider name to a model override.
	Models    map[string]string
	Level     llmclient.ModelLevel
	MaxTokens int
}

// Response is the winning raw text and who produced it.
type Response struct {
	Text     string
	Provider string
	Model    string
}

// Outcome is the result of one provider call in a fan-out: either Text
// (Err == nil) or a failure cause.
type Outcome struct {
	Provider string
	Model    string
	Text     string
	Err      error
}

func (o Outcome) OK() bool { return o.Err == nil }

// Gateway executes prompts against the registry's providers.
type Gateway struct {
	reg *ProviderRegistry
}

func NewGateway(reg *ProviderRegistry) *Gateway {
	return &Gateway{reg: reg}
}

func (g *Gateway) Registry() *ProviderRegistry { return g.reg }

// Invoke tries the requested providers in order, then every other enabled
// provider in default priority. The first success wins; a failing provider
// is never retried.
func (g *Gateway) Invoke(ctx context.Context, call Call) (Response, error) {
	enabled := g.reg.EnabledNames()
	if len(enabled) == 0 {
		return Response{}, ErrNoProviderAvailable
	}
	order := fallbackOrder(call.Providers, enabled, g.reg.Enabled)

	var errs []error
	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}
		out := g.call(ctx, name, call)
		if out.OK() {
			return Response{Text: out.Text, Provider: out.Provider, Model: out.Model}, nil
		}
		log.Printf("llm: provider %s failed (%s): %v", name, PhaseFrom(ctx), out.Err)
		errs = append(errs, fmt.Errorf("%s: %w", name, out.Err))
	}
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	return Response{}, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
}

// ParallelTargets returns the requested providers that are enabled,
// deduplicated, in request order.
func (g *Gateway) ParallelTargets(call Call) []string {
	var out []string
	seen := map[string]bool{}
	for _, p := range call.Providers {
		name := normalizeName(p)
		if name == "" || seen[name] || !g.reg.Enabled(name) {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// InvokeAll calls every target concurrently and waits for all of them.
// Outcomes are returned in targets order; one provider's failure never
// affects another.
func (g *Gateway) InvokeAll(ctx context.Context, call Call, targets []string) []Outcome {
	out := make([]Outcome, len(targets))
	var wg sync.WaitGroup
	for i, name := range targets {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			out[i] = g.call(ctx, name, call)
			if !out[i].OK() {
				log.Printf("llm: provider %s failed in fan-out (%s): %v", name, PhaseFrom(ctx), out[i].Err)
			}
		}(i, name)
	}
	wg.Wait()
	return out
}

func (g *Gateway) call(ctx context.Context, name string, call Call) (out Outcome) {
	out.Provider = name
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("provider %s panicked: %v", name, r)
		}
	}()
	model, err := g.reg.ResolveModel(name, lookupModel(call.Models, name), call.Level)
	if err != nil {
		out.Err = err
		return out
	}
	out.Model = model
	cli, err := g.reg.Client(ctx, name)
	if err != nil {
		out.Err = err
		return out
	}
	text, err := cli.Complete(ctx, llmclient.Request{Model: model, Prompt: call.Prompt, MaxTokens: call.MaxTokens})
	if err != nil {
		out.Err = err
		return out
	}
	if strings.TrimSpace(text) == "" {
		out.Err = llmclient.ErrEmptyResponse
		return out
	}
	out.Text = text
	return out
}

func lookupModel(models map[string]string, name string) string {
	if m, ok := models[name]; ok {
		return m
	}
	for k, m := range models {
		if normalizeName(k) == name {
			return m
		}
	}
	return ""
}

// fallbackOrder is requested (enabled only, deduped) followed by the rest
// of enabled in priority order.
func fallbackOrder(requested, enabled []string, isEnabled func(string) bool) []string {
	out := make([]string, 0, len(enabled))
	seen := map[string]bool{}
	for _, p := range requested {
		name := normalizeName(p)
		if name == "" || seen[name] || !isEnabled(name) {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	for _, name := range enabled {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
