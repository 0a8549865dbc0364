package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/loviiin/unmark/services/resolver/internal/client"
	"github.com/loviiin/unmark/services/resolver/internal/media"
	"github.com/loviiin/unmark/services/resolver/internal/normalize"
)

// Provider is one third-party resolver endpoint and the way to read its answer.
type Provider struct {
	Name     string
	Endpoint string
	Method   string
	Param    string
	// Accept inspects the envelope status fields.
	Accept func(root gjson.Result) bool
	// Project maps the unwrapped data object to fields.
	Project func(data gjson.Result) normalize.Fields
}

// DefaultProviders are tried in this order.
func DefaultProviders() []Provider {
	return []Provider{
		{
			Name:     "pearktrue",
			Endpoint: "https://api.pearktrue.cn/api/video/",
			Method:   http.MethodGet,
			Param:    "url",
			Accept:   acceptPearktrue,
			Project:  normalize.PearktrueSchema.Extract,
		},
		{
			Name:     "generic_v1",
			Endpoint: "https://api.xn--7ovq36h.com/api/sp_jx/",
			Method:   http.MethodGet,
			Param:    "url",
			Accept:   acceptGenericV1,
			Project:  normalize.GenericV1Schema.Extract,
		},
		{
			Name:     "douyin_wtf",
			Endpoint: "https://api.douyin.wtf/api/hybrid/video_data",
			Method:   http.MethodGet,
			Param:    "url",
			Accept:   acceptDouyinWTF,
			Project:  normalize.DouyinItem,
		},
	}
}

func statusIn(v gjson.Result, nums []float64, strs []string) bool {
	switch v.Type {
	case gjson.True, gjson.False, gjson.Number:
		// Providers are loose about types: true counts as 1 and false as 0.
		num := v.Num
		if v.Type != gjson.Number {
			num = 0
			if v.Bool() {
				num = 1
			}
		}
		for _, n := range nums {
			if num == n {
				return true
			}
		}
	case gjson.String:
		for _, s := range strs {
			if v.Str == s {
				return true
			}
		}
	}
	return false
}

func acceptPearktrue(root gjson.Result) bool {
	return statusIn(root.Get("code"), []float64{200, 0}, []string{"200"})
}

func acceptGenericV1(root gjson.Result) bool {
	if root.Get("success").Type == gjson.True {
		return true
	}
	status := root.Get("status")
	if !status.Exists() {
		status = root.Get("code")
	}
	if !status.Exists() {
		return true
	}
	return statusIn(status, []float64{101, 200, 0, 1}, []string{"200", "101"})
}

func acceptDouyinWTF(root gjson.Result) bool {
	code := root.Get("code")
	return (code.Type == gjson.Number && code.Num == 200) || root.Get("status").Str == "success"
}

// Aggregator runs its providers as a nested fallback chain.
type Aggregator struct {
	client    *client.Client
	providers []Provider
	log       zerolog.Logger
}

func NewAggregator(c *client.Client, providers []Provider, log zerolog.Logger) *Aggregator {
	if len(providers) == 0 {
		providers = DefaultProviders()
	}
	return &Aggregator{client: c, providers: providers, log: log.With().Str("component", NameAggregator).Logger()}
}

func (a *Aggregator) Name() string { return NameAggregator }

// CanHandle accepts any link; the providers cover many platforms.
func (a *Aggregator) CanHandle(url string) bool { return media.IsLink(url) }

func (a *Aggregator) Parse(ctx context.Context, url string) (*media.Result, error) {
	platform := media.Detect(url)
	last := "no provider returned media"

	for _, p := range a.providers {
		res, err := a.try(ctx, p, url, platform)
		if err != nil {
			last = fmt.Sprintf("%s: %s", p.Name, truncate(err.Error(), 100))
			a.log.Debug().Err(err).Str("provider", p.Name).Msg("provider failed")
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if res != nil {
			a.log.Debug().Str("provider", p.Name).Msg("provider resolved")
			return res, nil
		}
	}
	return nil, fmt.Errorf("all aggregator endpoints failed: %s", last)
}

// try returns (nil, nil) when the provider answered but had nothing usable.
func (a *Aggregator) try(ctx context.Context, p Provider, url string, platform media.Platform) (*media.Result, error) {
	var (
		resp *client.Response
		err  error
	)
	if p.Method == http.MethodPost {
		body, _ := json.Marshal(map[string]string{p.Param: url})
		resp, err = a.client.PostJSON(ctx, p.Endpoint, body)
	} else {
		resp, err = a.client.Get(ctx, p.Endpoint, client.Query(p.Param, url))
	}
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, nil
	}

	root, err := resp.JSON()
	if err != nil {
		return nil, err
	}
	if !p.Accept(root) {
		return nil, nil
	}

	data := normalize.Unwrap(root, "data")
	f := p.Project(data)
	if f.Empty() {
		return nil, nil
	}
	res, err := normalize.Build(platform, f)
	if err != nil {
		return nil, nil
	}
	return res, nil
}
