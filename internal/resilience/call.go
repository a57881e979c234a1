package resilience

import (
	"context"

	"github.com/rotisserie/eris"
)

// Call runs fn behind breaker b with retries. An open breaker fails fast
// with ErrCircuitOpen and does not count as a new failure. A nil breaker
// disables circuit breaking.
func Call[T any](ctx context.Context, b *Breaker, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if b != nil && !b.Allow() {
		return zero, eris.Wrapf(ErrCircuitOpen, "provider %s", b.name)
	}
	val, err := DoVal(ctx, cfg, fn)
	if b != nil && ctx.Err() == nil {
		b.Record(err)
	}
	return val, err
}
