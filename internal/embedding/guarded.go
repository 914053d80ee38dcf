package embedding

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

const DefaultTimeout = 60 * time.Second

// Provider is anything that turns text into a vector plus a token cost.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, int, error)
}

// Guarded wraps a provider with a per-call timeout, an optional client-side
// rate limit and a fixed output dimension check.
type Guarded struct {
	provider  Provider
	limiter   *rate.Limiter
	timeout   time.Duration
	dimension int
}

type Option func(*Guarded)

// WithRateLimit allows rps calls per second with the given burst. A
// non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(g *Guarded) {
		if rps <= 0 {
			g.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithTimeout(d time.Duration) Option {
	return func(g *Guarded) {
		g.timeout = d
	}
}

// WithDimension rejects vectors of any other length. Zero disables the check.
func WithDimension(n int) Option {
	return func(g *Guarded) {
		g.dimension = n
	}
}

func NewGuarded(p Provider, opts ...Option) *Guarded {
	g := &Guarded{provider: p, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guarded) Embed(ctx context.Context, text string) ([]float32, int, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, 0, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	vec, tokens, err := g.provider.Embed(ctx, text)
	if err != nil {
		return nil, 0, err
	}
	if g.dimension > 0 && len(vec) != g.dimension {
		return nil, 0, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vec), g.dimension)
	}
	return vec, tokens, nil
}
