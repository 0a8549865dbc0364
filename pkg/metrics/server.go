// Package metrics keeps counters in redis and renders them in the
// Prometheus text exposition format.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "unmark:metrics:"

// MetricDef maps a redis key to a Prometheus metric.
type MetricDef struct {
	RedisKey string
	PromName string
	Help     string
	Type     string // "counter" or "gauge"
}

var (
	ResolveTotal   = MetricDef{keyPrefix + "resolve_total", "unmark_resolve_total", "Resolve requests received.", "counter"}
	ResolveSuccess = MetricDef{keyPrefix + "resolve_success_total", "unmark_resolve_success_total", "Resolve requests that produced media.", "counter"}
	ResolveFailed  = MetricDef{keyPrefix + "resolve_failed_total", "unmark_resolve_failed_total", "Resolve requests that failed.", "counter"}
	CacheHit       = MetricDef{keyPrefix + "cache_hit_total", "unmark_cache_hit_total", "Resolve requests answered from cache.", "counter"}

	// Defaults are the counters every deployment exposes.
	Defaults = []MetricDef{ResolveTotal, ResolveSuccess, ResolveFailed, CacheHit}
)

const strategyKeyPrefix = keyPrefix + "strategy_success:"

// Recorder increments counters. A nil Recorder or one without a client is a no-op.
type Recorder struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewRecorder(rdb *redis.Client, log zerolog.Logger) *Recorder {
	return &Recorder{rdb: rdb, log: log}
}

// Inc bumps m by one.
func (r *Recorder) Inc(ctx context.Context, m MetricDef) {
	if r == nil || r.rdb == nil {
		return
	}
	if err := r.rdb.Incr(ctx, m.RedisKey).Err(); err != nil {
		r.log.Warn().Err(err).Str("metric", m.PromName).Msg("increment metric")
	}
}

// StrategySuccess bumps the success counter of one strategy.
func (r *Recorder) StrategySuccess(ctx context.Context, strategy string) {
	if r == nil || r.rdb == nil {
		return
	}
	if err := r.rdb.Incr(ctx, strategyKeyPrefix+strategy).Err(); err != nil {
		r.log.Warn().Err(err).Str("strategy", strategy).Msg("increment strategy metric")
	}
}

// Handler renders defs plus the per-strategy success counters.
func Handler(rdb *redis.Client, defs []MetricDef, log zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")

		for _, m := range defs {
			val, err := rdb.Get(ctx, m.RedisKey).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) {
					log.Warn().Err(err).Str("key", m.RedisKey).Msg("read metric")
				}
				val = "0"
			}
			fmt.Fprintf(w, "# HELP %s %s\n", m.PromName, m.Help)
			fmt.Fprintf(w, "# TYPE %s %s\n", m.PromName, m.Type)
			fmt.Fprintf(w, "%s %s\n\n", m.PromName, val)
		}

		writeStrategies(ctx, w, rdb, log)
	})
}

func writeStrategies(ctx context.Context, w http.ResponseWriter, rdb *redis.Client, log zerolog.Logger) {
	keys, err := rdb.Keys(ctx, strategyKeyPrefix+"*").Result()
	if err != nil {
		log.Warn().Err(err).Msg("list strategy metrics")
		return
	}
	sort.Strings(keys)

	const name = "unmark_strategy_success_total"
	fmt.Fprintf(w, "# HELP %s Resolutions produced, by strategy.\n", name)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	for _, k := range keys {
		val, err := rdb.Get(ctx, k).Result()
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%s{strategy=%q} %s\n", name, strings.TrimPrefix(k, strategyKeyPrefix), val)
	}
}

// StartMetricsServer serves Handler on addr until the listener fails.
func StartMetricsServer(addr string, rdb *redis.Client, defs []MetricDef, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(rdb, defs, log))
	log.Info().Str("addr", addr).Msg("metrics server listening")
	return http.ListenAndServe(addr, mux)
}
