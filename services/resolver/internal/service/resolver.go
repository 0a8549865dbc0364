// Package service runs a resolve end to end: clean, cache lookup, the
// strategy chain, then history, search index and metrics.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/loviiin/unmark/pkg/metrics"
	"github.com/loviiin/unmark/services/resolver/internal/media"
	"github.com/loviiin/unmark/services/resolver/internal/strategy"
)

// Chain is the fallback chain. *strategy.Chain implements it.
type Chain interface {
	Resolve(ctx context.Context, raw string) (*strategy.Outcome, error)
	Names() []string
}

// ResultCache stores resolutions by cleaned link. *cache.Cache implements it.
type ResultCache interface {
	Get(ctx context.Context, link string, v any) (bool, error)
	Set(ctx context.Context, link string, v any) error
}

// HistoryStore persists successful resolutions.
type HistoryStore interface {
	Save(ctx context.Context, res media.Resolution) (string, error)
}

// SearchIndex indexes successful resolutions.
type SearchIndex interface {
	Index(res media.Resolution) error
}

type Resolver struct {
	chain   Chain
	cache   ResultCache
	history HistoryStore
	index   SearchIndex
	metrics *metrics.Recorder
	log     zerolog.Logger
	now     func() time.Time
}

type Option func(*Resolver)

func WithCache(c ResultCache) Option { return func(r *Resolver) { r.cache = c } }

func WithHistory(h HistoryStore) Option { return func(r *Resolver) { r.history = h } }

func WithIndex(i SearchIndex) Option { return func(r *Resolver) { r.index = i } }

func WithMetrics(m *metrics.Recorder) Option { return func(r *Resolver) { r.metrics = m } }

func New(chain Chain, log zerolog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		chain: chain,
		log:   log.With().Str("component", "resolver").Logger(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Strategies lists the chain order.
func (r *Resolver) Strategies() []string { return r.chain.Names() }

// Resolve turns share text into a resolution. Failures are *strategy.ResolveError.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*media.Resolution, error) {
	return r.ResolveWithID(ctx, uuid.NewString(), raw)
}

// ResolveWithID is Resolve with a caller supplied request id for log correlation.
func (r *Resolver) ResolveWithID(ctx context.Context, requestID, raw string) (*media.Resolution, error) {
	link := media.Clean(raw)
	log := r.log.With().Str("request_id", requestID).Str("url", link).Logger()
	r.metrics.Inc(ctx, metrics.ResolveTotal)

	if hit, ok := r.cached(ctx, link, log); ok {
		r.metrics.Inc(ctx, metrics.CacheHit)
		r.metrics.Inc(ctx, metrics.ResolveSuccess)
		log.Debug().Str("strategy", hit.Strategy).Msg("cache hit")
		return hit, nil
	}

	start := r.now()
	out, err := r.chain.Resolve(ctx, raw)
	if err != nil {
		r.metrics.Inc(ctx, metrics.ResolveFailed)
		ev := log.Warn().Err(err)
		var re *strategy.ResolveError
		if errors.As(err, &re) && re.Attempts != nil {
			ev = ev.Int("attempts", re.Attempts.Len())
		}
		ev.Msg("resolve failed")
		return nil, err
	}

	res := media.Resolution{
		ID:         media.ResolutionID(out.URL),
		SourceURL:  out.URL,
		Strategy:   out.Strategy,
		Result:     *out.Result,
		ResolvedAt: r.now(),
	}
	r.metrics.Inc(ctx, metrics.ResolveSuccess)
	r.metrics.StrategySuccess(ctx, out.Strategy)
	log.Info().
		Str("strategy", out.Strategy).
		Str("platform", string(res.Result.Platform)).
		Dur("took", res.ResolvedAt.Sub(start)).
		Msg("resolved")

	r.record(ctx, res, log)
	return &res, nil
}

func (r *Resolver) cached(ctx context.Context, link string, log zerolog.Logger) (*media.Resolution, bool) {
	if r.cache == nil || !media.IsLink(link) {
		return nil, false
	}
	var res media.Resolution
	ok, err := r.cache.Get(ctx, link, &res)
	if err != nil {
		log.Warn().Err(err).Msg("cache lookup")
		return nil, false
	}
	if !ok || !res.Result.Valid() {
		return nil, false
	}
	return &res, true
}

// record stores a success everywhere it is wanted. Failures are logged only.
func (r *Resolver) record(ctx context.Context, res media.Resolution, log zerolog.Logger) {
	if r.cache != nil {
		if err := r.cache.Set(ctx, res.SourceURL, res); err != nil {
			log.Warn().Err(err).Msg("cache store")
		}
	}
	if r.history != nil {
		if _, err := r.history.Save(ctx, res); err != nil {
			log.Warn().Err(err).Msg("save history")
		}
	}
	if r.index != nil {
		if err := r.index.Index(res); err != nil {
			log.Warn().Err(err).Msg("index resolution")
		}
	}
}
