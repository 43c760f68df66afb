package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"archie/internal/llmclient"
)

// Middleware decorates a Provider to inject cross-cutting concerns
// (rate limiting, deadlines, logging).
type Middleware func(llmclient.Provider) llmclient.Provider

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.Provider, mws ...Middleware) llmclient.Provider {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Rate Limiting --------

// RateLimit limits request rate. If rps <= 0 the limiter is disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.Provider) llmclient.Provider {
		return &rateLimited{next: next, rl: newRPSLimiter(rps, burst)}
	}
}

type rateLimited struct {
	next llmclient.Provider
	rl   *rpsLimiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}
func (c *rateLimited) Complete(ctx context.Context, req llmclient.Request) (string, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return "", err
	}
	return c.next.Complete(ctx, req)
}

// -------- Deadline --------

// ErrCallTimeout is returned when a single provider call exceeds its deadline.
var ErrCallTimeout = errors.New("llm call timed out")

// WithTimeout bounds every call to d. A zero or negative d disables it.
func WithTimeout(d time.Duration) Middleware {
	return func(next llmclient.Provider) llmclient.Provider {
		if d <= 0 {
			return next
		}
		return &deadlined{next: next, d: d}
	}
}

type deadlined struct {
	next llmclient.Provider
	d    time.Duration
}

func (c *deadlined) Name() string { return c.next.Name() }
func (c *deadlined) Close() error { return c.next.Close() }
func (c *deadlined) Complete(ctx context.Context, req llmclient.Request) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, c.d)
	defer cancel()
	out, err := c.next.Complete(cctx, req)
	if err != nil && errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return "", fmt.Errorf("%w after %s: %v", ErrCallTimeout, c.d, err)
	}
	return out, err
}

// -------- Logging --------

// WithLogging logs the prompt size, latency and errors. Provide a custom
// logger or nil to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next llmclient.Provider) llmclient.Provider {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next llmclient.Provider
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }
func (l *logging) Complete(ctx context.Context, req llmclient.Request) (string, error) {
	phase := PhaseFrom(ctx)
	start := time.Now()
	l.log.Printf("LLM request (%s/%s %s): %d bytes %s", l.next.Name(), req.Model, phase, len(req.Prompt), SubjectFrom(ctx))
	out, err := l.next.Complete(ctx, req)
	if err != nil {
		l.log.Printf("LLM error (%s/%s %s) after %s: %v", l.next.Name(), req.Model, phase, time.Since(start).Round(time.Millisecond), err)
		return "", err
	}
	l.log.Printf("LLM response (%s/%s %s): %d bytes in %s", l.next.Name(), req.Model, phase, len(out), time.Since(start).Round(time.Millisecond))
	return out, nil
}
