package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"archie/internal/llmclient"
)

var ErrProviderNotRegistered = errors.New("llm provider is not registered")

// ProviderProfile describes a registered provider's properties.
type ProviderProfile struct {
	Name      string
	Models    map[llmclient.ModelLevel]string
	RateLimit *llmclient.RateLimitConfig
}

type registeredProvider struct {
	profile ProviderProfile
	factory llmclient.ProviderFactory
}

// ProviderRegistry holds the providers enabled at startup and lazily builds
// one decorated client per provider. It is constructed once from
// configuration and passed to the Gateway.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]registeredProvider
	clients   map[string]llmclient.Provider

	callTimeout time.Duration
	logger      *log.Logger
}

type RegistryOption func(*ProviderRegistry)

// WithCallTimeout sets the per-call deadline applied to every provider.
func WithCallTimeout(d time.Duration) RegistryOption {
	return func(r *ProviderRegistry) { r.callTimeout = d }
}

func WithLogger(l *log.Logger) RegistryOption {
	return func(r *ProviderRegistry) { r.logger = l }
}

func NewProviderRegistry(opts ...RegistryOption) *ProviderRegistry {
	r := &ProviderRegistry{
		providers: map[string]registeredProvider{},
		clients:   map[string]llmclient.Provider{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a provider. Registering the same name twice replaces the
// earlier registration and drops its cached client.
func (r *ProviderRegistry) Register(spec llmclient.ProviderRegistration) error {
	if spec.Factory == nil {
		return fmt.Errorf("register provider: factory is nil")
	}
	name := normalizeName(spec.Name)
	if name == "" {
		return fmt.Errorf("register provider: name is required")
	}
	models := map[llmclient.ModelLevel]string{}
	for level, m := range spec.Models {
		if m = strings.TrimSpace(m); m != "" {
			models[level] = m
		}
	}
	if models[llmclient.ModelLevelHigh] == "" {
		return fmt.Errorf("register provider %s: default model is required", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.clients[name]; ok {
		_ = old.Close()
		delete(r.clients, name)
	}
	r.providers[name] = registeredProvider{
		profile: ProviderProfile{Name: name, Models: models, RateLimit: spec.RateLimit},
		factory: spec.Factory,
	}
	return nil
}

// Enabled reports whether name is registered.
func (r *ProviderRegistry) Enabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[normalizeName(name)]
	return ok
}

// EnabledNames lists registered providers in default priority order;
// providers outside the default list follow alphabetically.
func (r *ProviderRegistry) EnabledNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	seen := map[string]bool{}
	for _, name := range llmclient.DefaultPriority {
		if _, ok := r.providers[name]; ok {
			out = append(out, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range r.providers {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Profiles returns the registered profiles in EnabledNames order.
func (r *ProviderRegistry) Profiles() []ProviderProfile {
	names := r.EnabledNames()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ProviderProfile, 0, len(names))
	for _, n := range names {
		out = append(out, r.providers[n].profile)
	}
	return out
}

// ResolveModel picks the model for a call: an explicit override wins, then
// the provider's model for level, then its default model.
func (r *ProviderRegistry) ResolveModel(name, override string, level llmclient.ModelLevel) (string, error) {
	if m := strings.TrimSpace(override); m != "" {
		if !r.Enabled(name) {
			return "", fmt.Errorf("%w: %s", ErrProviderNotRegistered, name)
		}
		return m, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[normalizeName(name)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrProviderNotRegistered, name)
	}
	if m := p.profile.Models[level]; m != "" {
		return m, nil
	}
	return p.profile.Models[llmclient.ModelLevelHigh], nil
}

// Client returns the decorated client for name, building it on first use.
func (r *ProviderRegistry) Client(ctx context.Context, name string) (llmclient.Provider, error) {
	name = normalizeName(name)
	r.mu.RLock()
	c, ok := r.clients[name]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[name]; ok {
		return c, nil
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotRegistered, name)
	}
	inner, err := p.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("build provider %s: %w", name, err)
	}
	mws := []Middleware{WithLogging(r.logger), WithTimeout(r.callTimeout)}
	if rl := p.profile.RateLimit; rl != nil && rl.RPS > 0 {
		mws = append(mws, RateLimit(rl.RPS, rl.Burst))
	}
	c = Wrap(inner, mws...)
	r.clients[name] = c
	return c, nil
}

// Close releases every built client.
func (r *ProviderRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for name, c := range r.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		delete(r.clients, name)
	}
	return errors.Join(errs...)
}
