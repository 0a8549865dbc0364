package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loviiin/unmark/pkg/cookies"
	"github.com/loviiin/unmark/pkg/ratelimit"
	"github.com/loviiin/unmark/services/resolver/internal/media"
	"github.com/loviiin/unmark/services/resolver/internal/strategy"
)

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, raw string) (*media.Resolution, error) {
	if !strings.HasPrefix(raw, "http") {
		return nil, &strategy.ResolveError{Kind: strategy.ErrInvalidInput, Message: "please enter a valid link"}
	}
	return &media.Resolution{
		SourceURL: raw,
		Strategy:  "aggregator",
		Result: media.Result{
			Title: "gallery", Cover: "https://i/a", Type: media.Images,
			Images: []string{"https://i/a", "https://i/b"}, Platform: media.Xiaohongshu,
		},
	}, nil
}

func post(t *testing.T, h http.Handler, path, body, ip string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.RemoteAddr = ip + ":5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestParseSuccess(t *testing.T) {
	h := NewServer(Deps{Resolver: stubResolver{}}, zerolog.Nop()).Handler()

	rec := post(t, h, "/api/parse", `{"url":"https://xhslink.com/a"}`, "10.0.0.1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "images", body["type"])
	assert.Equal(t, "xiaohongshu", body["platform"])
	assert.Equal(t, []any{"https://i/a", "https://i/b"}, body["images"])
	assert.NotContains(t, body, "video_url")
	assert.NotContains(t, body, "error")
}

func TestParseFailureIsReportedInBody(t *testing.T) {
	h := NewServer(Deps{Resolver: stubResolver{}}, zerolog.Nop()).Handler()

	rec := post(t, h, "/api/parse", `{"url":"not a link"}`, "10.0.0.1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "please enter a valid link", body["error"])
	assert.Equal(t, []any{}, body["images"])

	rec = post(t, h, "/api/parse", `{`, "10.0.0.1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	h := NewServer(Deps{
		Resolver: stubResolver{},
		Limiter:  ratelimit.New(rdb, 2, time.Hour),
	}, zerolog.Nop()).Handler()

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, post(t, h, "/api/parse", `{"url":"https://xhslink.com/a"}`, "10.0.0.1").Code)
	}
	rec := post(t, h, "/api/parse", `{"url":"https://xhslink.com/a"}`, "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, rateLimitMessage, body["error"])

	assert.Equal(t, http.StatusOK, post(t, h, "/api/parse", `{"url":"https://xhslink.com/a"}`, "10.0.0.2").Code)
}

func TestHealth(t *testing.T) {
	h := NewServer(Deps{Resolver: stubResolver{}}, zerolog.Nop()).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, []any{"douyin", "kuaishou", "xiaohongshu"}, body["platforms"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCookieEndpoints(t *testing.T) {
	store, err := cookies.Open(filepath.Join(t.TempDir(), "cookies.db"))
	require.NoError(t, err)
	defer store.Close()
	h := NewServer(Deps{Resolver: stubResolver{}, Cookies: store}, zerolog.Nop()).Handler()

	req := httptest.NewRequest(http.MethodPut, "/api/cookies/douyin", strings.NewReader(`{"cookie":" a=1; b=2 "}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := store.Get("douyin")
	require.NoError(t, err)
	assert.Equal(t, "a=1; b=2", got)

	req = httptest.NewRequest(http.MethodPut, "/api/cookies/myspace", strings.NewReader(`{"cookie":"a=1"}`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cookies", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec)["cookies"], "douyin")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/cookies/douyin", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	got, err = store.Get("douyin")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMetricsRoute(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	require.NoError(t, mr.Set("unmark:metrics:resolve_total", "7"))

	h := NewServer(Deps{Resolver: stubResolver{}, Redis: rdb}, zerolog.Nop()).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "unmark_resolve_total 7")
}

func TestClientIP(t *testing.T) {
	direct := NewServer(Deps{}, zerolog.Nop())
	proxied := NewServer(Deps{TrustedProxies: []string{"10.0.0.0/8", "192.0.2.1", "not-an-ip"}}, zerolog.Nop())

	tests := []struct {
		name   string
		srv    *Server
		remote string
		fwd    string
		want   string
	}{
		{"no header", direct, "192.0.2.1:1234", "", "192.0.2.1"},
		{"header from untrusted peer", direct, "192.0.2.1:1234", "203.0.113.5", "192.0.2.1"},
		{"header from trusted peer", proxied, "192.0.2.1:1234", "203.0.113.5", "203.0.113.5"},
		{"trusted hops skipped", proxied, "10.1.1.1:80", "198.51.100.7, 203.0.113.5, 10.0.0.2", "203.0.113.5"},
		{"spoofed leftmost ignored", proxied, "10.1.1.1:80", "1.2.3.4, 203.0.113.5", "203.0.113.5"},
		{"trusted peer without header", proxied, "10.1.1.1:80", "", "10.1.1.1"},
		{"peer outside trusted range", proxied, "198.51.100.9:80", "203.0.113.5", "198.51.100.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.fwd != "" {
				req.Header.Set("X-Forwarded-For", tt.fwd)
			}
			assert.Equal(t, tt.want, tt.srv.clientIP(req))
		})
	}
}

func TestParseRateLimitIgnoresForwardedFor(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	h := NewServer(Deps{
		Resolver: stubResolver{},
		Limiter:  ratelimit.New(rdb, 2, time.Hour),
	}, zerolog.Nop()).Handler()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/parse", strings.NewReader(`{"url":"https://xhslink.com/a"}`))
		req.RemoteAddr = "10.0.0.1:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
