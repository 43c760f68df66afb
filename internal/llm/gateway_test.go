package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"archie/internal/llmclient"
	"archie/internal/tester"
)

// scripted returns a fixed text or error and counts calls.
type scripted struct {
	name  string
	text  string
	err   error
	delay time.Duration
	calls atomic.Int32
	model atomic.Value
}

func (s *scripted) Name() string { return s.name }
func (s *scripted) Close() error { return nil }
func (s *scripted) Complete(ctx context.Context, req llmclient.Request) (string, error) {
	s.calls.Add(1)
	s.model.Store(req.Model)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func register(t *testing.T, reg *ProviderRegistry, p *scripted) {
	t.Helper()
	tester.NoErr(t, reg.Register(llmclient.ProviderRegistration{
		Name: p.name,
		Models: map[llmclient.ModelLevel]string{
			llmclient.ModelLevelHigh: p.name + "-pro",
			llmclient.ModelLevelLow:  p.name + "-flash",
		},
		Factory: func(context.Context) (llmclient.Provider, error) { return p, nil },
	}))
}

func TestInvoke_NoProviders(t *testing.T) {
	g := NewGateway(NewProviderRegistry())
	_, err := g.Invoke(context.Background(), Call{Prompt: "p"})
	tester.ErrIs(t, err, ErrNoProviderAvailable, "want ErrNoProviderAvailable")
}

func TestInvoke_FirstSuccessWins(t *testing.T) {
	reg := NewProviderRegistry()
	a := &scripted{name: "gemini", text: "from-gemini"}
	b := &scripted{name: "claude", text: "from-claude"}
	register(t, reg, a)
	register(t, reg, b)
	g := NewGateway(reg)

	resp, err := g.Invoke(context.Background(), Call{Prompt: "p", Providers: []string{"claude", "gemini"}})
	tester.NoErr(t, err)
	tester.Eq(t, resp.Provider, "claude")
	tester.Eq(t, resp.Text, "from-claude")
	tester.Eq(t, resp.Model, "claude-pro")
	tester.Eq(t, a.calls.Load(), int32(0), "remaining providers must not be tried")
}

func TestInvoke_FallsBackToDefaultPriority(t *testing.T) {
	reg := NewProviderRegistry()
	bad := &scripted{name: "openai", err: errors.New("boom")}
	good := &scripted{name: "groq", text: "ok"}
	other := &scripted{name: "claude", err: errors.New("down")}
	register(t, reg, bad)
	register(t, reg, good)
	register(t, reg, other)
	g := NewGateway(reg)

	// "gemini" is requested but disabled; openai fails; fallback tries claude then groq.
	resp, err := g.Invoke(context.Background(), Call{Prompt: "p", Providers: []string{"gemini", "openai"}})
	tester.NoErr(t, err)
	tester.Eq(t, resp.Provider, "groq")
	tester.Eq(t, bad.calls.Load(), int32(1), "failed provider is not retried")
	tester.Eq(t, other.calls.Load(), int32(1))
}

func TestInvoke_AllFail(t *testing.T) {
	reg := NewProviderRegistry()
	register(t, reg, &scripted{name: "gemini", err: errors.New("quota")})
	register(t, reg, &scripted{name: "claude", err: errors.New("overloaded")})
	g := NewGateway(reg)

	_, err := g.Invoke(context.Background(), Call{Prompt: "p"})
	tester.ErrIs(t, err, ErrAllProvidersFailed, "want ErrAllProvidersFailed")
}

func TestInvoke_EmptyTextIsFailure(t *testing.T) {
	reg := NewProviderRegistry()
	register(t, reg, &scripted{name: "gemini", text: "   "})
	register(t, reg, &scripted{name: "claude", text: "real"})
	resp, err := NewGateway(reg).Invoke(context.Background(), Call{Prompt: "p"})
	tester.NoErr(t, err)
	tester.Eq(t, resp.Provider, "claude")
}

func TestInvoke_ModelOverrideAndLevel(t *testing.T) {
	reg := NewProviderRegistry()
	p := &scripted{name: "gemini", text: "x"}
	register(t, reg, p)
	g := NewGateway(reg)

	_, err := g.Invoke(context.Background(), Call{Prompt: "p", Models: map[string]string{"Gemini": "gemini-custom"}})
	tester.NoErr(t, err)
	tester.Eq(t, p.model.Load().(string), "gemini-custom")

	_, err = g.Invoke(context.Background(), Call{Prompt: "p", Level: llmclient.ModelLevelLow})
	tester.NoErr(t, err)
	tester.Eq(t, p.model.Load().(string), "gemini-flash")
}

func TestInvokeAll_IsolatesFailures(t *testing.T) {
	reg := NewProviderRegistry()
	register(t, reg, &scripted{name: "gemini", text: "g", delay: 50 * time.Millisecond})
	register(t, reg, &scripted{name: "claude", err: errors.New("bad key")})
	register(t, reg, &scripted{name: "openai", text: "o"})
	g := NewGateway(reg)

	call := Call{Prompt: "p", Providers: []string{"gemini", "claude", "openai", "groq", "gemini"}}
	targets := g.ParallelTargets(call)
	tester.Eq(t, targets, []string{"gemini", "claude", "openai"})

	outs := g.InvokeAll(context.Background(), call, targets)
	tester.Eq(t, len(outs), 3)
	tester.True(t, outs[0].OK())
	tester.Eq(t, outs[0].Text, "g")
	tester.False(t, outs[1].OK())
	tester.True(t, outs[2].OK())
	tester.Eq(t, outs[2].Provider, "openai")
}

func TestRegistry_EnabledNamesPriority(t *testing.T) {
	reg := NewProviderRegistry()
	for _, n := range []string{"zeta", "groq", "gemini", "claude"} {
		register(t, reg, &scripted{name: n})
	}
	tester.Eq(t, reg.EnabledNames(), []string{"gemini", "claude", "groq", "zeta"})
}

func TestRegistry_RejectsMissingModel(t *testing.T) {
	reg := NewProviderRegistry()
	err := reg.Register(llmclient.ProviderRegistration{
		Name:    "gemini",
		Factory: func(context.Context) (llmclient.Provider, error) { return &scripted{name: "gemini"}, nil },
	})
	tester.True(t, err != nil, "expected error for missing default model")
}

func TestWithTimeout_BoundsCall(t *testing.T) {
	reg := NewProviderRegistry(WithCallTimeout(20 * time.Millisecond))
	register(t, reg, &scripted{name: "gemini", text: "late", delay: time.Second})
	_, err := NewGateway(reg).Invoke(context.Background(), Call{Prompt: "p"})
	tester.ErrIs(t, err, ErrAllProvidersFailed, "want ErrAllProvidersFailed")
	tester.ErrIs(t, err, ErrCallTimeout, "want ErrCallTimeout in chain")
}

func TestFakeProvider_Phases(t *testing.T) {
	reg := NewProviderRegistry()
	tester.NoErr(t, RegisterFake(reg))
	g := NewGateway(reg)

	resp, err := g.Invoke(WithPhase(context.Background(), PhaseDiagramRepair), Call{Prompt: "p"})
	tester.NoErr(t, err)
	tester.Eq(t, resp.Provider, llmclient.ProviderFake)
	tester.Eq(t, resp.Model, "fake-architect")
	tester.True(t, len(resp.Text) > 0 && resp.Text[:9] == "flowchart")
}
