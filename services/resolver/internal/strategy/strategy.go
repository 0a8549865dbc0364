// Package strategy holds the extraction strategies and the fallback chain
// that tries them in priority order.
package strategy

import (
	"context"

	"github.com/loviiin/unmark/services/resolver/internal/media"
)

// Strategy is one self-contained way of acquiring media for a link.
type Strategy interface {
	Name() string
	CanHandle(url string) bool
	// Parse returns the media found at url. A result without media, or
	// normalize.ErrNoMedia, means the strategy ran cleanly but found nothing.
	Parse(ctx context.Context, url string) (*media.Result, error)
}

// Strategy names, also used as configuration values.
const (
	NameBrowser     = "browser"
	NameAggregator  = "aggregator"
	NameDouyin      = "douyin"
	NameKuaishou    = "kuaishou"
	NameXiaohongshu = "xiaohongshu"
)

// DefaultOrder is the priority order used when none is configured.
var DefaultOrder = []string{NameBrowser, NameAggregator, NameDouyin, NameKuaishou, NameXiaohongshu}

// CookieSource yields the persisted cookie header for a platform, "" when unset.
type CookieSource interface {
	Get(platform string) (string, error)
}
