package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/moviemate/internal/domain"
)

// PostgresMedia provides persistence helpers for media records on PostgreSQL.
type PostgresMedia struct {
	pool *pgxpool.Pool
}

// List returns every media record in insertion order.
func (r *PostgresMedia) List(ctx context.Context) ([]domain.Media, error) {
	query := fmt.Sprintf(`SELECT %s FROM media ORDER BY id ASC`, mediaColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Media, 0)
	for rows.Next() {
		media, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		items = append(items, media)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	return items, nil
}

// Get fetches a media record by its identifier.
func (r *PostgresMedia) Get(ctx context.Context, id int64) (domain.Media, error) {
	query := fmt.Sprintf(`SELECT %s FROM media WHERE id = $1`, mediaColumns)
	return r.one(ctx, "get media", query, id)
}

// Create inserts a new media row and returns the stored entity. The current
// episode always starts at zero.
func (r *PostgresMedia) Create(ctx context.Context, fields domain.MediaFields) (domain.Media, error) {
	query := fmt.Sprintf(`
        INSERT INTO media (title, media_type, poster_url, director, genre, platform, status, rating, review, total_episodes, current_episode)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,0)
        RETURNING %s
    `, mediaColumns)

	media, err := scanMedia(r.pool.QueryRow(ctx, query, fieldArgs(fields)...))
	if err != nil {
		return domain.Media{}, fmt.Errorf("create media: %w", err)
	}
	return media, nil
}

// Update overwrites every caller-controlled column of an existing row. The id
// and current episode are left as they are.
func (r *PostgresMedia) Update(ctx context.Context, id int64, fields domain.MediaFields) (domain.Media, error) {
	query := fmt.Sprintf(`
        UPDATE media
        SET title = $2,
            media_type = $3,
            poster_url = $4,
            director = $5,
            genre = $6,
            platform = $7,
            status = $8,
            rating = $9,
            review = $10,
            total_episodes = $11
        WHERE id = $1
        RETURNING %s
    `, mediaColumns)

	args := append([]any{id}, fieldArgs(fields)...)
	return r.one(ctx, "update media", query, args...)
}

// Delete removes a media row and returns it as it was before removal.
func (r *PostgresMedia) Delete(ctx context.Context, id int64) (domain.Media, error) {
	query := fmt.Sprintf(`DELETE FROM media WHERE id = $1 RETURNING %s`, mediaColumns)
	return r.one(ctx, "delete media", query, id)
}

// Count returns the number of stored media records.
func (r *PostgresMedia) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM media`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count media: %w", err)
	}
	return n, nil
}

func (r *PostgresMedia) one(ctx context.Context, op, query string, args ...any) (domain.Media, error) {
	media, err := scanMedia(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Media{}, ErrNotFound
		}
		return domain.Media{}, fmt.Errorf("%s: %w", op, err)
	}
	return media, nil
}
