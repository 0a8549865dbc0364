// Package api is the HTTP shell around the resolver.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/loviiin/unmark/pkg/metrics"
	"github.com/loviiin/unmark/services/resolver/internal/media"
	"github.com/loviiin/unmark/services/resolver/internal/search"
)

// Resolver is the service behind POST /api/parse.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (*media.Resolution, error)
}

// CookieStore persists platform cookies. *cookies.Store implements it.
type CookieStore interface {
	Save(platform, cookie string) error
	Clear(platform string) error
	List() (map[string]time.Time, error)
}

// Limiter admits requests per key. *ratelimit.Limiter implements it.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// History lists recent resolutions.
type History interface {
	Recent(ctx context.Context, limit int) ([]media.Resolution, error)
}

// Searcher queries the media index.
type Searcher interface {
	Search(query, platform string, limit int64) ([]search.Doc, error)
}

// Deps are the server collaborators. Only Resolver is required.
type Deps struct {
	Resolver  Resolver
	Cookies   CookieStore
	Limiter   Limiter
	Redis     *redis.Client
	History   History
	Search    Searcher
	StaticDir string
	// TrustedProxies are the peers whose X-Forwarded-For is honoured.
	// Entries are CIDRs or bare addresses.
	TrustedProxies []string
}

type Server struct {
	deps    Deps
	trusted []netip.Prefix
	log     zerolog.Logger
}

func NewServer(deps Deps, log zerolog.Logger) *Server {
	s := &Server{deps: deps, log: log.With().Str("component", "api").Logger()}
	for _, entry := range deps.TrustedProxies {
		prefix, err := parseProxy(entry)
		if err != nil {
			s.log.Warn().Str("proxy", entry).Msg("ignoring malformed trusted proxy")
			continue
		}
		s.trusted = append(s.trusted, prefix)
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /api/parse", s.rateLimited(http.HandlerFunc(s.handleParse)))
	mux.HandleFunc("GET /api/health", s.handleHealth)

	if s.deps.Cookies != nil {
		mux.HandleFunc("GET /api/cookies", s.handleListCookies)
		mux.HandleFunc("PUT /api/cookies/{platform}", s.handleSaveCookie)
		mux.HandleFunc("DELETE /api/cookies/{platform}", s.handleClearCookie)
	}
	if s.deps.History != nil {
		mux.HandleFunc("GET /api/history", s.handleHistory)
	}
	if s.deps.Search != nil {
		mux.HandleFunc("GET /api/search", s.handleSearch)
	}
	if s.deps.Redis != nil {
		mux.Handle("GET /metrics", metrics.Handler(s.deps.Redis, metrics.Defaults, s.log))
	}
	if s.deps.StaticDir != "" {
		if st, err := os.Stat(s.deps.StaticDir); err == nil && st.IsDir() {
			mux.Handle("/", http.FileServer(http.Dir(s.deps.StaticDir)))
		} else {
			s.log.Warn().Str("dir", s.deps.StaticDir).Msg("static dir not found, not serving frontend")
		}
	}

	return s.accessLog(cors(mux))
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// clientIP keys the limiter. X-Forwarded-For is read only when the socket
// peer is a trusted proxy, and then right to left past further trusted hops.
func (s *Server) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !s.isTrusted(host) {
		return host
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !s.isTrusted(hop) {
			return hop
		}
		host = hop
	}
	return host
}

func (s *Server) isTrusted(host string) bool {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range s.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func parseProxy(entry string) (netip.Prefix, error) {
	entry = strings.TrimSpace(entry)
	if strings.Contains(entry, "/") {
		prefix, err := netip.ParsePrefix(entry)
		return prefix.Masked(), err
	}
	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}
