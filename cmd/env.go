package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/analyzer"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/audit"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/config"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/crm"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/geogrid"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/grounding"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/llm"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/resilience"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/source"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/store"
)

// auditEnv holds the store, sources and service needed by the audit and
// serve commands.
type auditEnv struct {
	Store   store.Store
	Sources *source.Sources
	Sampler *geogrid.Sampler
	CRM     *crm.Dispatcher // may be nil
	Service *audit.Service
}

// Close releases resources held by the environment.
func (e *auditEnv) Close() {
	if e.Sources != nil {
		e.Sources.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured store and brings its schema up to date.
func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func breakersFromConfig(c config.CircuitConfig) *resilience.Breakers {
	return resilience.NewBreakers(resilience.BreakerConfig{
		FailureThreshold: c.FailureThreshold,
		Cooldown:         time.Duration(c.CooldownSecs) * time.Second,
	})
}

// newSampler builds the geo-grid sampler from whichever clients are keyed.
// Maps results from SerpAPI are tried before Places.
func newSampler(clients source.Clients, breakers *resilience.Breakers) (*geogrid.Sampler, error) {
	var lookups []geogrid.Lookup
	if clients.Serp != nil {
		lookups = append(lookups, geogrid.NewSerpMapsLookup(clients.Serp))
	}
	if clients.Places != nil {
		lookups = append(lookups, geogrid.NewPlacesLookup(clients.Places))
	}

	retry := resilience.NewRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs)
	s := geogrid.NewSampler(lookups, clients.Geocode, breakers, retry,
		time.Duration(cfg.GeoGrid.DelayMs)*time.Millisecond)

	if cfg.Chains.File != "" {
		order, err := source.LoadOrder(cfg.Chains.File)
		if err != nil {
			return nil, err
		}
		order.Apply(s)
	}
	if len(lookups) == 0 {
		zap.L().Warn("no geo grid lookups configured, grid results will be unavailable")
	}
	return s, nil
}

// initAudit sets up the store, API clients, sources, analyzers and the
// audit service. Callers should defer env.Close().
func initAudit(ctx context.Context, mode string) (*auditEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &auditEnv{Store: st}

	breakers := breakersFromConfig(cfg.Circuit)
	clients := source.NewClients(cfg)

	env.Sources, err = source.New(cfg, clients, st, breakers)
	if err != nil {
		env.Close()
		return nil, err
	}

	env.Sampler, err = newSampler(clients, breakers)
	if err != nil {
		env.Close()
		return nil, err
	}

	completer := llm.FromConfig(cfg, breakers)
	zap.L().Info("llm providers", zap.Strings("order", completer.Providers()))
	an := analyzer.New(grounding.NewValidator(completer))

	opts := []audit.Option{audit.WithGeoGrid(env.Sampler, cfg.GeoGrid)}

	env.CRM, err = crm.New(cfg.CRM)
	if err != nil {
		env.Close()
		return nil, err
	}
	if env.CRM != nil {
		opts = append(opts, audit.WithNotifier(env.CRM))
		zap.L().Info("crm dispatch enabled", zap.Strings("sinks", env.CRM.Sinks()))
	}

	env.Service = audit.NewService(st, audit.FromSources(env.Sources), an, opts...)
	return env, nil
}
