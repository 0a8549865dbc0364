package repository

import (
	"context"
	"fmt"
)

var migrations = []struct {
	name  string
	query string
}{
	{
		name: "001_resolutions",
		query: `CREATE TABLE IF NOT EXISTS resolutions (
			id UUID PRIMARY KEY,
			source_url TEXT NOT NULL UNIQUE,
			platform VARCHAR(32) NOT NULL,
			content_type VARCHAR(16) NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			cover TEXT NOT NULL DEFAULT '',
			video_url TEXT NOT NULL DEFAULT '',
			images TEXT[] NOT NULL DEFAULT '{}',
			strategy VARCHAR(32) NOT NULL,
			resolved_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	},
	{
		name:  "002_resolutions_hits",
		query: `ALTER TABLE resolutions ADD COLUMN IF NOT EXISTS hits INT NOT NULL DEFAULT 1;`,
	},
	{
		name:  "003_resolutions_recent_idx",
		query: `CREATE INDEX IF NOT EXISTS idx_resolutions_resolved_at ON resolutions(resolved_at DESC);`,
	},
}

func (r *HistoryRepository) runMigrations(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := r.db.Exec(ctx, m.query); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		r.log.Debug().Str("migration", m.name).Msg("migration applied")
	}
	return nil
}
