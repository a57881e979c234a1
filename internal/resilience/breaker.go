// Package resilience provides retry and circuit breaking for calls to
// external sources.
package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when a provider's breaker rejects a call.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// BreakerConfig controls when a provider is taken out of rotation.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold int
	// Cooldown is how long an open breaker rejects calls before allowing a trial call.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the defaults used when config is empty.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, Cooldown: 60 * time.Second}
}

// Breaker is a consecutive-failure circuit breaker for one provider.
type Breaker struct {
	name string
	cfg  BreakerConfig

	mu       sync.Mutex
	failures int
	openedAt time.Time
	open     bool
	now      func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

// Allow reports whether a call may proceed. After the cooldown an open
// breaker lets calls through again; the next Record decides its state.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	return b.now().Sub(b.openedAt) >= b.cfg.Cooldown
}

// Record feeds the outcome of a call into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.open {
			zap.L().Info("circuit closed", zap.String("provider", b.name))
		}
		b.failures = 0
		b.open = false
		return
	}

	b.failures++
	if b.open {
		// Failed trial call: restart the cooldown.
		b.openedAt = b.now()
		return
	}
	if b.failures >= b.cfg.FailureThreshold {
		b.open = true
		b.openedAt = b.now()
		zap.L().Warn("circuit opened",
			zap.String("provider", b.name),
			zap.Int("failures", b.failures),
		)
	}
}

// Open reports whether the breaker is currently rejecting calls.
func (b *Breaker) Open() bool {
	return !b.Allow()
}

// Breakers is a lazily populated registry of per-provider breakers.
type Breakers struct {
	cfg BreakerConfig

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewBreakers creates an empty registry.
func NewBreakers(cfg BreakerConfig) *Breakers {
	return &Breakers{cfg: cfg, breakers: make(map[string]*Breaker)}
}

// For returns the breaker for provider, creating it on first use.
func (r *Breakers) For(provider string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[provider]
	if !ok {
		b = NewBreaker(provider, r.cfg)
		r.breakers[provider] = b
	}
	return b
}

// OpenProviders lists providers whose breaker is open.
func (r *Breakers) OpenProviders() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for name, b := range r.breakers {
		if b.Open() {
			out = append(out, name)
		}
	}
	return out
}
