package strategy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/loviiin/unmark/services/resolver/internal/browser"
	"github.com/loviiin/unmark/services/resolver/internal/media"
	"github.com/loviiin/unmark/services/resolver/internal/normalize"
)

// Renderer renders a page in an isolated browser context. *browser.Manager implements it.
type Renderer interface {
	Render(ctx context.Context, req browser.RenderRequest) (gjson.Result, error)
}

// Every script returns {state, dom}: the serialised global state, null when
// the page exposes none, and a snapshot of rendered elements.
const (
	xhsScript = `() => {
		const snap = (o) => { try { return o ? JSON.parse(JSON.stringify(o)) : null } catch (e) { return null } };
		const state = snap(window.__INITIAL_STATE__);
		const q = (s) => document.querySelector(s);
		const title = q('#detail-title')?.textContent || q('.title')?.textContent
			|| q('meta[name="og:title"]')?.content || document.title || '';
		const images = [];
		document.querySelectorAll('.swiper-slide img, .note-image img, .carousel img').forEach((img) => {
			const src = img.src || img.dataset.src || '';
			if (src && !src.includes('avatar') && !src.includes('icon')) images.push(src);
		});
		const video = q('video source, video');
		const videoUrl = video ? (video.src || video.querySelector('source')?.src || '') : '';
		return { state, dom: { title, images, videoUrl } };
	}`

	douyinScript = `() => {
		const snap = (o) => { try { return o ? JSON.parse(JSON.stringify(o)) : null } catch (e) { return null } };
		const state = snap(window.__INITIAL_STATE__ || window.RENDER_DATA);
		const q = (s) => document.querySelector(s);
		const title = q('.video-info-detail .title')?.textContent
			|| q('meta[name="description"]')?.content || document.title || '';
		const video = q('video');
		const images = [];
		document.querySelectorAll('.swiper-slide img, .image-list img').forEach((img) => { if (img.src) images.push(img.src) });
		return { state, dom: { title, images, videoUrl: video ? (video.src || '') : '' } };
	}`

	kuaishouScript = `() => {
		const snap = (o) => { try { return o ? JSON.parse(JSON.stringify(o)) : null } catch (e) { return null } };
		const state = snap(window.__APOLLO_STATE__ || window.__INITIAL_STATE__ || window._PAGE_DATA_);
		const title = document.querySelector('.video-info .title')?.textContent || document.title || '';
		const video = document.querySelector('video');
		return { state, dom: { title, images: [], videoUrl: video ? (video.src || '') : '' } };
	}`
)

var renderScripts = map[media.Platform]string{
	media.Xiaohongshu: xhsScript,
	media.Douyin:      douyinScript,
	media.Kuaishou:    kuaishouScript,
}

// Browser renders the page like a phone would and reads the hydrated state.
type Browser struct {
	renderer Renderer
	cookies  CookieSource
	log      zerolog.Logger
}

// NewBrowser builds the rendering strategy. cookies may be nil.
func NewBrowser(r Renderer, cookies CookieSource, log zerolog.Logger) *Browser {
	return &Browser{renderer: r, cookies: cookies, log: log.With().Str("component", NameBrowser).Logger()}
}

func (b *Browser) Name() string { return NameBrowser }

func (b *Browser) CanHandle(url string) bool {
	_, ok := renderScripts[media.Detect(url)]
	return ok
}

func (b *Browser) Parse(ctx context.Context, url string) (*media.Result, error) {
	platform := media.Detect(url)
	script, ok := renderScripts[platform]
	if !ok {
		return nil, ErrNotApplicable
	}

	req := browser.RenderRequest{URL: url, Script: script}
	if b.cookies != nil {
		header, err := b.cookies.Get(string(platform))
		if err != nil {
			b.log.Warn().Err(err).Str("platform", string(platform)).Msg("read cookies")
		}
		if header != "" {
			req.Cookies = browser.ParseCookieHeader(header, string(platform))
		}
	}

	payload, err := b.renderer.Render(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return projectRendered(platform, payload)
}

// projectRendered maps a {state, dom} payload to a result.
func projectRendered(platform media.Platform, payload gjson.Result) (*media.Result, error) {
	if state := payload.Get("state"); state.IsObject() {
		if f, ok := renderedStateFields(platform, state); ok {
			if res, err := normalize.Build(platform, f); err == nil {
				return res, nil
			}
		}
	}
	return normalize.Build(platform, normalize.DOMSnapshot(payload.Get("dom")))
}

func renderedStateFields(platform media.Platform, state gjson.Result) (normalize.Fields, bool) {
	switch platform {
	case media.Xiaohongshu:
		note, ok := normalize.XiaohongshuRenderedState(state)
		if !ok {
			return normalize.Fields{}, false
		}
		f := normalize.XiaohongshuNote(note)
		// A rendered note without a caption is still loading.
		return f, f.Title != ""
	case media.Douyin:
		item, ok := normalize.DouyinState(state)
		if !ok {
			return normalize.Fields{}, false
		}
		return normalize.DouyinItem(item), true
	case media.Kuaishou:
		photo, ok := normalize.KuaishouRenderedState(state)
		if !ok {
			return normalize.Fields{}, false
		}
		return normalize.KuaishouPhoto(photo), true
	}
	return normalize.Fields{}, false
}
