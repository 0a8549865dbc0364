package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/loviiin/unmark/services/resolver/internal/media"
)

// SupportedPlatforms are the platforms with a native strategy.
var SupportedPlatforms = []media.Platform{media.Douyin, media.Kuaishou, media.Xiaohongshu}

type ParseRequest struct {
	URL string `json:"url"`
}

// ParseResponse is flat: the result fields sit next to success and error.
type ParseResponse struct {
	Success  bool     `json:"success"`
	Title    string   `json:"title,omitempty"`
	Cover    string   `json:"cover,omitempty"`
	VideoURL string   `json:"video_url,omitempty"`
	Images   []string `json:"images"`
	Platform string   `json:"platform,omitempty"`
	Type     string   `json:"type,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func responseFrom(res *media.Resolution) ParseResponse {
	images := res.Result.Images
	if images == nil {
		images = []string{}
	}
	return ParseResponse{
		Success:  true,
		Title:    res.Result.Title,
		Cover:    res.Result.Cover,
		VideoURL: res.Result.VideoURL,
		Images:   images,
		Platform: string(res.Result.Platform),
		Type:     string(res.Result.Type),
	}
}

func failure(msg string) ParseResponse {
	return ParseResponse{Success: false, Images: []string{}, Error: msg}
}

// handleParse answers 200 for every resolve outcome; success carries the verdict.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failure("request body must be JSON with a url field"))
		return
	}

	res, err := s.deps.Resolver.Resolve(r.Context(), req.URL)
	if err != nil {
		writeJSON(w, http.StatusOK, failure(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, responseFrom(res))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "platforms": SupportedPlatforms})
}

type cookieRequest struct {
	Cookie string `json:"cookie"`
}

func knownPlatform(p string) bool {
	for _, known := range media.Platforms() {
		if string(known) == p {
			return true
		}
	}
	return false
}

func (s *Server) handleSaveCookie(w http.ResponseWriter, r *http.Request) {
	platform := r.PathValue("platform")
	if !knownPlatform(platform) {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "unknown platform"})
		return
	}
	var req cookieRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil || strings.TrimSpace(req.Cookie) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "cookie is required"})
		return
	}
	if err := s.deps.Cookies.Save(platform, strings.TrimSpace(req.Cookie)); err != nil {
		s.log.Error().Err(err).Str("platform", platform).Msg("save cookie")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "could not save cookie"})
		return
	}
	s.log.Info().Str("platform", platform).Msg("cookie saved")
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleClearCookie(w http.ResponseWriter, r *http.Request) {
	platform := r.PathValue("platform")
	if err := s.deps.Cookies.Clear(platform); err != nil {
		s.log.Error().Err(err).Str("platform", platform).Msg("clear cookie")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "could not clear cookie"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleListCookies(w http.ResponseWriter, _ *http.Request) {
	saved, err := s.deps.Cookies.List()
	if err != nil {
		s.log.Error().Err(err).Msg("list cookies")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "could not list cookies"})
		return
	}
	out := make(map[string]string, len(saved))
	for platform, at := range saved {
		out[platform] = at.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "cookies": out})
}

func limitParam(r *http.Request, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, max)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.History.Recent(r.Context(), limitParam(r, 20, 100))
	if err != nil {
		s.log.Error().Err(err).Msg("read history")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "could not read history"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "items": items})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	docs, err := s.deps.Search.Search(q.Get("q"), q.Get("platform"), int64(limitParam(r, 20, 100)))
	if err != nil {
		s.log.Error().Err(err).Msg("search")
		writeJSON(w, http.StatusBadGateway, map[string]any{"success": false, "error": "search unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "items": docs})
}
