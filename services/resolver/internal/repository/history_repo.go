// Package repository persists successful resolutions in Postgres.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/loviiin/unmark/services/resolver/internal/media"
)

type HistoryRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

func NewHistoryRepository(ctx context.Context, databaseURL string, log zerolog.Logger) (*HistoryRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres not answering: %w", err)
	}

	repo := &HistoryRepository{db: pool, log: log.With().Str("component", "history").Logger()}
	if err := repo.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

const upsertResolution = `
	INSERT INTO resolutions
		(id, source_url, platform, content_type, title, cover, video_url, images, strategy, resolved_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (source_url) DO UPDATE
	SET platform = EXCLUDED.platform,
		content_type = EXCLUDED.content_type,
		title = EXCLUDED.title,
		cover = EXCLUDED.cover,
		video_url = EXCLUDED.video_url,
		images = EXCLUDED.images,
		strategy = EXCLUDED.strategy,
		resolved_at = EXCLUDED.resolved_at,
		hits = resolutions.hits + 1
	RETURNING id`

// Save upserts r keyed by its source link and returns the row id.
func (r *HistoryRepository) Save(ctx context.Context, res media.Resolution) (string, error) {
	images := res.Result.Images
	if images == nil {
		images = []string{}
	}
	var id string
	err := r.db.QueryRow(ctx, upsertResolution,
		res.ID,
		res.SourceURL,
		string(res.Result.Platform),
		string(res.Result.Type),
		res.Result.Title,
		res.Result.Cover,
		res.Result.VideoURL,
		images,
		res.Strategy,
		res.ResolvedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("save resolution: %w", err)
	}
	return id, nil
}

const selectResolution = `
	SELECT id, source_url, platform, content_type, title, cover, video_url, images, strategy, resolved_at
	FROM resolutions`

// FindBySource returns the stored resolution of a link.
func (r *HistoryRepository) FindBySource(ctx context.Context, sourceURL string) (*media.Resolution, bool, error) {
	row := r.db.QueryRow(ctx, selectResolution+` WHERE source_url = $1`, sourceURL)
	res, err := scanResolution(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}

// Recent lists the latest resolutions, newest first.
func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]media.Resolution, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, selectResolution+` ORDER BY resolved_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list resolutions: %w", err)
	}
	defer rows.Close()

	var out []media.Resolution
	for rows.Next() {
		res, err := scanResolution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func scanResolution(row pgx.Row) (*media.Resolution, error) {
	var (
		res                   media.Resolution
		platform, contentType string
		resolvedAt            time.Time
	)
	err := row.Scan(&res.ID, &res.SourceURL, &platform, &contentType,
		&res.Result.Title, &res.Result.Cover, &res.Result.VideoURL, &res.Result.Images,
		&res.Strategy, &resolvedAt)
	if err != nil {
		return nil, err
	}
	res.Result.Platform = media.Platform(platform)
	res.Result.Type = media.ContentType(contentType)
	res.ResolvedAt = resolvedAt
	return &res, nil
}

func (r *HistoryRepository) Close() {
	r.db.Close()
}
