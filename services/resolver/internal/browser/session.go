// Package browser owns the shared headless Chromium process used by the
// rendering strategy. One process is launched lazily and reused; every
// render runs in its own incognito context that is torn down on return.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/loviiin/unmark/pkg/captcha"
)

// pingTimeout bounds the CDP calls made while holding the manager lock.
var pingTimeout = 5 * time.Second

// ErrCaptcha means the target answered with a verification page.
var ErrCaptcha = errors.New("verification page served instead of content")

// Options configure the shared browser.
type Options struct {
	// Bin is the Chromium binary; empty means launcher lookup.
	Bin string
	// ControlURL connects to an already running browser instead of launching one.
	ControlURL         string
	Headless           bool
	NavigationTimeout  time.Duration
	SettleDelay        time.Duration
	ProfileBaseDir     string
	UserAgent          string
	Locale             string
	ViewportWidth      int
	ViewportHeight     int
	DetectVerification bool
}

// DefaultOptions matches a recent iPhone in a zh-CN locale.
func DefaultOptions() Options {
	return Options{
		Headless:           true,
		NavigationTimeout:  20 * time.Second,
		SettleDelay:        3 * time.Second,
		ProfileBaseDir:     os.TempDir(),
		UserAgent:          "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
		Locale:             "zh-CN",
		ViewportWidth:      390,
		ViewportHeight:     844,
		DetectVerification: true,
	}
}

// RenderRequest describes one isolated page render.
type RenderRequest struct {
	URL     string
	Cookies []*proto.NetworkCookieParam
	// Script is a JS function evaluated once the page settled; its return
	// value is handed back as JSON.
	Script string
}

// Manager guards the shared browser handle.
type Manager struct {
	opts Options
	log  zerolog.Logger

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	profile  string
	launches int
}

func NewManager(opts Options, log zerolog.Logger) *Manager {
	return &Manager{opts: opts, log: log.With().Str("component", "browser").Logger()}
}

// Acquire returns the shared browser, launching it on first use and
// relaunching it when the previous process no longer answers.
func (m *Manager) Acquire(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		if m.aliveLocked() {
			return m.browser, nil
		}
		m.log.Warn().Msg("stale browser connection, relaunching")
		m.closeLocked()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	controlURL := m.opts.ControlURL
	if controlURL == "" {
		u, err := m.launchLocked()
		if err != nil {
			return nil, err
		}
		controlURL = u
	}

	// The shared process outlives any single request, so it is not bound to ctx.
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		m.closeLocked()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	m.browser = b
	m.launches++
	m.log.Info().Int("launches", m.launches).Str("profile", m.profile).Msg("browser ready")
	return b, nil
}

func (m *Manager) launchLocked() (string, error) {
	profile, err := os.MkdirTemp(m.opts.ProfileBaseDir, ProfilePrefix+"*")
	if err != nil {
		return "", fmt.Errorf("create profile dir: %w", err)
	}

	bin := m.opts.Bin
	if bin == "" {
		bin, _ = launcher.LookPath()
	}

	l := launcher.New().
		Bin(bin).
		UserDataDir(profile).
		Leakless(false).
		Set("disable-gpu").
		Set("no-sandbox").
		Set("autoplay-policy", "no-user-gesture-required")
	if m.opts.Headless {
		l = l.Set("headless", "new")
	} else {
		l = l.Headless(false)
	}

	u, err := l.Launch()
	if err != nil {
		_ = os.RemoveAll(profile)
		return "", fmt.Errorf("launch browser: %w", err)
	}
	m.launcher = l
	m.profile = profile
	return u, nil
}

func (m *Manager) closeLocked() {
	if m.browser != nil {
		b := m.browser.Timeout(pingTimeout)
		_ = b.Close()
		b.CancelTimeout()
		m.browser = nil
	}
	if m.launcher != nil {
		m.launcher.Kill()
		m.launcher = nil
	}
	if m.profile != "" {
		_ = os.RemoveAll(m.profile)
		m.profile = ""
	}
}

// Close shuts the shared browser down.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
	return nil
}

// Profile returns the profile directory of the launched browser, "" when none.
func (m *Manager) Profile() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

// Healthy reports whether a launched browser still answers.
func (m *Manager) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.browser == nil {
		return false
	}
	return m.aliveLocked()
}

func (m *Manager) aliveLocked() bool {
	b := m.browser.Timeout(pingTimeout)
	defer b.CancelTimeout()
	_, err := b.Version()
	return err == nil
}

// Render opens req.URL in a fresh incognito context, waits for client-side
// rendering and returns what req.Script evaluates to. The context is closed
// on every path.
func (m *Manager) Render(ctx context.Context, req RenderRequest) (gjson.Result, error) {
	b, err := m.Acquire(ctx)
	if err != nil {
		return gjson.Result{}, err
	}

	incognito, err := b.Incognito()
	if err != nil {
		return gjson.Result{}, fmt.Errorf("incognito context: %w", err)
	}
	defer func() {
		if err := incognito.Close(); err != nil {
			m.log.Debug().Err(err).Msg("close incognito context")
		}
	}()

	if len(req.Cookies) > 0 {
		if err := incognito.SetCookies(req.Cookies); err != nil {
			m.log.Warn().Err(err).Msg("inject cookies")
		}
	}

	page, err := stealth.Page(incognito)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("open page: %w", err)
	}
	page = page.Context(ctx)
	defer page.Close()

	if err := m.emulate(page); err != nil {
		return gjson.Result{}, err
	}

	if err := page.Timeout(m.opts.NavigationTimeout).Navigate(req.URL); err != nil {
		return gjson.Result{}, fmt.Errorf("navigate: %w", err)
	}
	if err := page.Timeout(m.opts.NavigationTimeout).WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		m.log.Debug().Err(err).Str("url", req.URL).Msg("dom did not settle")
	}

	select {
	case <-ctx.Done():
		return gjson.Result{}, ctx.Err()
	case <-time.After(m.opts.SettleDelay):
	}

	if m.opts.DetectVerification && captcha.IsCaptchaPresent(page) {
		return gjson.Result{}, ErrCaptcha
	}

	res, err := page.Eval(req.Script)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("evaluate extraction script: %w", err)
	}
	if res.Value.Nil() {
		return gjson.Result{}, nil
	}
	return gjson.Parse(res.Value.JSON("", "")), nil
}

func (m *Manager) emulate(page *rod.Page) error {
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      m.opts.UserAgent,
		AcceptLanguage: m.opts.Locale,
	}); err != nil {
		return fmt.Errorf("set user agent: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             m.opts.ViewportWidth,
		Height:            m.opts.ViewportHeight,
		DeviceScaleFactor: 3,
		Mobile:            true,
	}); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}
	if err := (proto.EmulationSetLocaleOverride{Locale: m.opts.Locale}).Call(page); err != nil {
		return fmt.Errorf("set locale: %w", err)
	}
	return nil
}
