package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/loviiin/unmark/pkg/cache"
	"github.com/loviiin/unmark/pkg/config"
	"github.com/loviiin/unmark/pkg/cookies"
	"github.com/loviiin/unmark/pkg/metrics"
	"github.com/loviiin/unmark/services/resolver/internal/browser"
	"github.com/loviiin/unmark/services/resolver/internal/repository"
	"github.com/loviiin/unmark/services/resolver/internal/search"
	"github.com/loviiin/unmark/services/resolver/internal/service"
)

// app holds every collaborator a command may need. Optional ones stay nil
// when their section is not configured.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	redis    *redis.Client
	cookies  *cookies.Store
	browser  *browser.Manager
	history  *repository.HistoryRepository
	index    *search.Indexer
	resolver *service.Resolver
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("redis not answering at %s: %w", cfg.Redis.Address, err)
		}
		a.redis = rdb
	}

	store, err := cookies.Open(cfg.Cookies.Path)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.cookies = store

	deps := service.ChainDeps{Cookies: store}
	if cfg.Browser.Enabled {
		opts := browser.DefaultOptions()
		opts.Bin = cfg.Browser.Bin
		opts.ControlURL = cfg.Browser.ControlURL
		opts.Headless = cfg.Browser.Headless
		opts.NavigationTimeout = cfg.Resolver.NavigationTimeout
		opts.SettleDelay = cfg.Resolver.SettleDelay
		a.browser = browser.NewManager(opts, log)
		deps.Renderer = a.browser
	}

	chain, err := service.BuildChain(cfg.Resolver, deps, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Database.URL != "" {
		repo, err := repository.NewHistoryRepository(ctx, cfg.Database.URL, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.history = repo
	}
	if cfg.Meilisearch.Host != "" {
		a.index = search.NewIndexer(cfg.Meilisearch.Host, cfg.Meilisearch.Key, cfg.Meilisearch.Index, log)
	}

	var opts []service.Option
	if a.redis != nil {
		opts = append(opts,
			service.WithCache(cache.New(a.redis, cfg.Resolver.CacheTTL)),
			service.WithMetrics(metrics.NewRecorder(a.redis, log)),
		)
	}
	if a.history != nil {
		opts = append(opts, service.WithHistory(a.history))
	}
	if a.index != nil {
		opts = append(opts, service.WithIndex(a.index))
	}
	a.resolver = service.New(chain, log, opts...)

	log.Info().
		Strs("strategies", chain.Names()).
		Bool("redis", a.redis != nil).
		Bool("history", a.history != nil).
		Bool("search", a.index != nil).
		Msg("resolver ready")
	return a, nil
}

// sweeper cleans profiles of launched browsers, nil when the browser is off.
func (a *app) sweeper() *browser.Sweeper {
	if a.browser == nil || a.cfg.Browser.ControlURL != "" {
		return nil
	}
	interval := a.cfg.Browser.SweepInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &browser.Sweeper{
		Dir:      os.TempDir(),
		TTL:      a.cfg.Browser.ProfileTTL,
		Interval: interval,
		Log:      a.log.With().Str("component", "sweeper").Logger(),
		Active:   a.browser.Profile,
	}
}

func (a *app) Close() {
	if a.browser != nil {
		a.browser.Close()
	}
	if a.history != nil {
		a.history.Close()
	}
	if a.cookies != nil {
		a.cookies.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}
