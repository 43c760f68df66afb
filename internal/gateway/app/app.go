package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"archie/internal/arbiter"
	"archie/internal/conversation"
	"archie/internal/gateway/config"
	"archie/internal/gateway/handler"
	"archie/internal/gateway/server"
	"archie/internal/llm"
	"archie/internal/llmclient"
	"archie/internal/orchestrator"
)

type App struct {
	server *server.Server
	core   *Core
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewFromConfig(cfg)
}

func NewFromConfig(cfg *config.Config) (*App, error) {
	core, err := Build(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	convHandler := handler.NewConversationHandler(core.Orchestrator)
	mux := server.NewMux(convHandler)
	srv := server.New(cfg.Port, mux)

	return &App{server: srv, core: core}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	return errors.Join(err, a.core.Close())
}

// Core is the wired conversation engine without the HTTP surface.
type Core struct {
	Orchestrator *orchestrator.Orchestrator
	Registry     *llm.ProviderRegistry
	Store        conversation.Store
}

// Build wires providers, stores and the orchestrator from cfg.
func Build(ctx context.Context, cfg *config.Config) (*Core, error) {
	reg := llm.NewProviderRegistry(llm.WithCallTimeout(cfg.LLM.CallTimeout))
	if err := llmclient.RegisterConfigured(reg, cfg.LLM.Providers); err != nil {
		return nil, fmt.Errorf("register providers: %w", err)
	}
	if cfg.LLM.Offline {
		if err := llm.RegisterFake(reg); err != nil {
			return nil, fmt.Errorf("register offline provider: %w", err)
		}
	}
	names := reg.EnabledNames()
	if len(names) == 0 {
		log.Printf("llm: no providers configured; requests will fail until an API key is set")
	} else {
		log.Printf("llm: providers enabled: %v", names)
	}

	weights := arbiter.DefaultWeights()
	if cfg.WeightsFile != "" {
		w, err := arbiter.LoadWeights(cfg.WeightsFile)
		if err != nil {
			return nil, fmt.Errorf("load scoring weights: %w", err)
		}
		weights = w
	}

	store, err := initSessionStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	arch, err := initArchive(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	o := orchestrator.New(store, llm.NewGateway(reg),
		orchestrator.WithWeights(weights),
		orchestrator.WithArchive(arch),
	)
	return &Core{Orchestrator: o, Registry: reg, Store: store}, nil
}

// Close waits for running deep dives, then releases providers and the store.
func (c *Core) Close() error {
	c.Orchestrator.Wait()
	return errors.Join(c.Registry.Close(), c.Store.Close())
}
