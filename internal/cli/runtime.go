package cli

import (
	"context"
	"fmt"

	"github.com/fmuoria/gems-hub/internal/cache"
	"github.com/fmuoria/gems-hub/internal/config"
	"github.com/fmuoria/gems-hub/internal/gemdb"
	"github.com/fmuoria/gems-hub/internal/hub"
	"github.com/fmuoria/gems-hub/internal/llm"
	"github.com/fmuoria/gems-hub/internal/logging"
	"github.com/fmuoria/gems-hub/internal/metrics"
	"github.com/fmuoria/gems-hub/internal/store"
)

// runtime holds the wired collaborators of a command
type runtime struct {
	cfg     *config.Config
	log     *logging.Logger
	metrics *metrics.Metrics
	gemdb   *gemdb.Client
	store   *store.Store
	hub     *hub.Service

	closers []func() error
}

// newRuntime wires config into the upstream client, cache, local store,
// optional narrator and the hub. withRuntimeMetrics adds Go and process
// collectors for long-running processes.
func newRuntime(ctx context.Context, cfg *config.Config, log *logging.Logger, withRuntimeMetrics bool) (*runtime, error) {
	rt := &runtime{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(withRuntimeMetrics),
	}

	client, err := gemdb.NewClient(cfg.GemDB.BaseURL, cfg.GemDB.ResolveAPIKey(),
		gemdb.WithTimeout(cfg.GemDB.Timeout),
		gemdb.WithRetryMax(cfg.GemDB.RetryMax),
		gemdb.WithLogger(log),
		gemdb.WithUserAgent("gems-hub/"+Version),
		gemdb.WithObserver(rt.metrics.ObserveUpstream),
	)
	if err != nil {
		return nil, err
	}
	rt.gemdb = client

	var c cache.Cache
	switch cfg.Cache.Driver {
	case "redis":
		r := cache.NewRedis(cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Prefix:   "gemshub:",
		})
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("redis unavailable at %s: %w", cfg.Cache.RedisAddr, err)
		}
		rt.closers = append(rt.closers, r.Close)
		c = r
	default:
		c = cache.NewMemory(cfg.GemDB.CacheTTL)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.store = st
	rt.closers = append(rt.closers, st.Close)

	deps := hub.Deps{
		Gems:     client,
		Holdings: client,
		Store:    st,
		Cache:    c,
		Metrics:  rt.metrics,
		Logger:   log,
	}

	if cfg.LLM.Enabled {
		gen, err := llm.NewVertexAIClient(ctx, llm.Config{
			Project:  cfg.LLM.Project,
			Location: cfg.LLM.Location,
			Model:    cfg.LLM.Model,
		})
		if err != nil {
			log.Warn("narrative disabled", "error", err)
		} else {
			rt.closers = append(rt.closers, gen.Close)
			deps.Narrator = llm.NewNarrator(gen)
		}
	}

	rt.hub = hub.New(deps, hub.Options{
		GemLimit: cfg.GemDB.Limit,
		CacheTTL: cfg.GemDB.CacheTTL,
	})
	return rt, nil
}

// Close releases resources in reverse order of acquisition
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.log.Warn("close failed", "error", err)
		}
	}
	rt.closers = nil
}
