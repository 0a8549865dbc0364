package service

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/loviiin/unmark/pkg/config"
	"github.com/loviiin/unmark/services/resolver/internal/client"
	"github.com/loviiin/unmark/services/resolver/internal/strategy"
)

// ChainDeps are the collaborators strategies may need. Renderer is nil when
// the browser is disabled; Cookies may be nil.
type ChainDeps struct {
	Renderer strategy.Renderer
	Cookies  strategy.CookieSource
	// Providers overrides the aggregator endpoints.
	Providers []strategy.Provider
	// DouyinDetailURL overrides the item-info endpoint.
	DouyinDetailURL string
}

// BuildChain instantiates the configured strategies in order. The browser
// strategy is left out when no renderer is available.
func BuildChain(cfg config.Resolver, deps ChainDeps, log zerolog.Logger) (*strategy.Chain, error) {
	names := cfg.Strategies
	if len(names) == 0 {
		names = strategy.DefaultOrder
	}

	var opts []client.Option
	if cfg.Proxy != "" {
		opts = append(opts, client.WithProxy(cfg.Proxy))
	}
	mobile := client.New(cfg.HTTPTimeout, opts...)

	seen := make(map[string]bool, len(names))
	strategies := make([]strategy.Strategy, 0, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("strategy %q listed twice", name)
		}
		seen[name] = true

		switch name {
		case strategy.NameBrowser:
			if deps.Renderer == nil {
				log.Info().Msg("browser disabled, skipping browser strategy")
				continue
			}
			strategies = append(strategies, strategy.NewBrowser(deps.Renderer, deps.Cookies, log))
		case strategy.NameAggregator:
			providers := deps.Providers
			if providers == nil {
				providers = strategy.DefaultProviders()
			}
			c := client.New(cfg.AggregatorTimeout, opts...)
			strategies = append(strategies, strategy.NewAggregator(c, providers, log))
		case strategy.NameDouyin:
			strategies = append(strategies, strategy.NewDouyin(mobile, deps.DouyinDetailURL, log))
		case strategy.NameKuaishou:
			strategies = append(strategies, strategy.NewKuaishou(mobile, log))
		case strategy.NameXiaohongshu:
			pc := client.New(cfg.HTTPTimeout, append([]client.Option{client.WithUserAgent(client.PCUA)}, opts...)...)
			strategies = append(strategies, strategy.NewXiaohongshu(pc, log))
		default:
			return nil, fmt.Errorf("unknown strategy %q", name)
		}
	}
	if len(strategies) == 0 {
		return nil, fmt.Errorf("no strategies enabled")
	}
	return strategy.NewChain(log, strategies...), nil
}
