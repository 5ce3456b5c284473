package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/parley-group/negotiation-cli/internal/capability"
	"github.com/parley-group/negotiation-cli/internal/engine"
	"github.com/parley-group/negotiation-cli/internal/session"
	"github.com/parley-group/negotiation-cli/internal/store"
)

// env holds the wired application components for a command invocation.
type env struct {
	store   store.Store
	service *session.Service
}

func (e *env) Close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "negotiate.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	var lookup session.CapabilityLookup
	if cfg.Capability.BaseURL != "" {
		lookup = capability.New(capability.Options{
			BaseURL:        cfg.Capability.BaseURL,
			Key:            cfg.Capability.Key,
			Timeout:        time.Duration(cfg.Capability.TimeoutSecs) * time.Second,
			MaxRetries:     cfg.Capability.Retries,
			RequestsPerSec: cfg.Capability.RequestsPerSec,
		})
	}

	return &env{
		store:   st,
		service: session.New(st, engine.New(cfg.Engine), lookup),
	}, nil
}
