package strategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/loviiin/unmark/services/resolver/internal/media"
	"github.com/loviiin/unmark/services/resolver/internal/normalize"
)

// Outcome is a successful resolution.
type Outcome struct {
	URL      string
	Strategy string
	Result   *media.Result
}

// Chain tries its strategies strictly one after another and returns the
// first that yields media.
type Chain struct {
	strategies []Strategy
	log        zerolog.Logger
}

func NewChain(log zerolog.Logger, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, log: log.With().Str("component", "chain").Logger()}
}

// Names lists the strategies in priority order.
func (c *Chain) Names() []string {
	out := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		out[i] = s.Name()
	}
	return out
}

// Resolve cleans raw share text and runs the chain on the link it holds.
// Every failure comes back as a *ResolveError.
func (c *Chain) Resolve(ctx context.Context, raw string) (*Outcome, error) {
	url := media.Clean(raw)
	if !media.IsLink(url) {
		return nil, &ResolveError{Kind: ErrInvalidInput, Message: "please enter a valid link"}
	}
	platform := media.Detect(url)
	log := c.log.With().Str("url", url).Str("platform", string(platform)).Logger()

	var attempts *multierror.Error
	last := ErrUnsupportedPlatform.Error()
	applicable := false

	for _, s := range c.strategies {
		if !s.CanHandle(url) {
			continue
		}
		applicable = true

		res, err := s.Parse(ctx, url)
		if err == nil {
			res, err = canonical(platform, res)
		}
		switch {
		case err == nil:
			log.Info().Str("strategy", s.Name()).Str("type", string(res.Type)).Msg("resolved")
			return &Outcome{URL: url, Strategy: s.Name(), Result: res}, nil
		case errors.Is(err, normalize.ErrNoMedia):
			last = noMediaDiagnostic
		default:
			last = diagnostic(s.Name(), err)
		}
		attempts = multierror.Append(attempts, multierror.Prefix(err, "["+s.Name()+"]"))
		log.Warn().Err(err).Str("strategy", s.Name()).Msg("strategy failed")

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &ResolveError{Kind: ctxErr, Message: last, Attempts: attempts}
		}
	}

	if !applicable {
		return nil, &ResolveError{Kind: ErrUnsupportedPlatform, Message: last}
	}
	return nil, &ResolveError{Kind: ErrNoMediaFound, Message: last, Attempts: attempts}
}

// canonical re-derives the result through normalize.Build so every success
// path satisfies the video/images invariant.
func canonical(platform media.Platform, res *media.Result) (*media.Result, error) {
	if !res.HasMedia() {
		return nil, normalize.ErrNoMedia
	}
	if res.Platform != "" {
		platform = res.Platform
	}
	out, err := normalize.Build(platform, normalize.Fields{
		Title:    res.Title,
		Cover:    res.Cover,
		VideoURL: res.VideoURL,
		Images:   res.Images,
	})
	if err != nil {
		return nil, fmt.Errorf("normalize result: %w", err)
	}
	return out, nil
}
