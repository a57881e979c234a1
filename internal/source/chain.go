// Package source gathers facts about a business from ordered chains of
// external providers. Every adapter returns a facts record; failures are
// recorded on the record and never returned past the adapter.
package source

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/resilience"
)

// ErrNotFound marks a chain in which every provider ran and none had data.
var ErrNotFound = eris.New("source: no provider returned data")

// Provider is one link in a chain. found=false with a nil error means the
// provider answered but had nothing for this business.
type Provider[T any] interface {
	Name() string
	Fetch(ctx context.Context, id model.Identity) (T, bool, error)
}

// Outcome is what a chain produced.
type Outcome[T any] struct {
	Value    T
	Provider string
	// Err is set when no provider yielded data. It joins the per-provider
	// reasons so the facts record can carry them.
	Err error
}

// Found reports whether some provider produced data.
func (o Outcome[T]) Found() bool { return o.Err == nil && o.Provider != "" }

// Chain tries providers in order and returns the first hit.
type Chain[T any] struct {
	name      string
	providers []Provider[T]
	breakers  *resilience.Breakers
	retry     resilience.RetryConfig
}

// NewChain builds a chain. A nil breakers registry disables circuit breaking.
func NewChain[T any](name string, breakers *resilience.Breakers, retry resilience.RetryConfig, providers ...Provider[T]) *Chain[T] {
	return &Chain[T]{name: name, providers: providers, breakers: breakers, retry: retry}
}

// Name is the chain's key in the order file.
func (c *Chain[T]) Name() string { return c.name }

// Providers returns provider names in try order.
func (c *Chain[T]) Providers() []string {
	out := make([]string, len(c.providers))
	for i, p := range c.providers {
		out[i] = p.Name()
	}
	return out
}

// Reorder keeps only the named providers, in the given order. Unknown
// names are logged and ignored. An empty order leaves the chain unchanged.
func (c *Chain[T]) Reorder(order []string) {
	c.providers = reorderNamed(c.providers, order, c.name, func(p Provider[T]) string { return p.Name() })
}

type hit[T any] struct {
	value T
	found bool
}

// Run tries each provider until one returns data.
func (c *Chain[T]) Run(ctx context.Context, id model.Identity) Outcome[T] {
	log := zap.L().With(zap.String("chain", c.name), zap.String("business", id.Name))
	var reasons []string

	for _, p := range c.providers {
		var b *resilience.Breaker
		if c.breakers != nil {
			b = c.breakers.For(p.Name())
		}

		retry := c.retry
		retry.OnRetry = resilience.LogRetries(p.Name(), c.name)
		h, err := resilience.Call(ctx, b, retry, func(ctx context.Context) (hit[T], error) {
			v, found, err := p.Fetch(ctx, id)
			return hit[T]{value: v, found: found}, err
		})

		switch {
		case err != nil:
			log.Warn("source: provider failed, trying next", zap.String("provider", p.Name()), zap.Error(err))
			reasons = append(reasons, p.Name()+": "+err.Error())
		case !h.found:
			log.Debug("source: provider had no data, trying next", zap.String("provider", p.Name()))
			reasons = append(reasons, p.Name()+": not found")
		default:
			log.Debug("source: provider hit", zap.String("provider", p.Name()))
			return Outcome[T]{Value: h.value, Provider: p.Name()}
		}

		if ctx.Err() != nil {
			reasons = append(reasons, ctx.Err().Error())
			break
		}
	}

	if len(c.providers) == 0 {
		reasons = append(reasons, "no providers configured")
	}
	return Outcome[T]{Err: eris.Wrap(ErrNotFound, strings.Join(reasons, "; "))}
}
