package browser

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ProfilePrefix names the temporary profile directories of launched browsers.
const ProfilePrefix = "unmark_profile_"

// Sweeper removes profile directories left behind by crashed or killed browsers.
type Sweeper struct {
	Dir      string
	TTL      time.Duration
	Interval time.Duration
	Log      zerolog.Logger
	// Active returns the profile in use, which is never removed. May be nil.
	Active func() string
}

// Run sweeps every Interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.Log.Info().Str("dir", s.Dir).Dur("ttl", s.TTL).Msg("profile sweeper started")
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}

// Sweep removes every prefixed directory older than TTL and returns how many went.
func (s *Sweeper) Sweep() int {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		s.Log.Error().Err(err).Str("dir", s.Dir).Msg("read profile dir")
		return 0
	}

	removed := 0
	now := time.Now()
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), ProfilePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= s.TTL {
			continue
		}
		full := filepath.Join(s.Dir, entry.Name())
		if s.Active != nil && s.Active() == full {
			continue
		}
		if err := os.RemoveAll(full); err != nil {
			s.Log.Error().Err(err).Str("path", full).Msg("remove orphan profile")
			continue
		}
		removed++
	}

	if removed > 0 {
		s.Log.Info().Int("removed", removed).Msg("swept orphan profiles")
	}
	return removed
}
