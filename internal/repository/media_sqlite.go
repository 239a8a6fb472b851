package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Clark-Hu/moviemate/internal/domain"
)

// SQLiteMedia provides persistence helpers for media records on SQLite.
type SQLiteMedia struct {
	db *sql.DB
}

// List returns every media record in insertion order.
func (r *SQLiteMedia) List(ctx context.Context) ([]domain.Media, error) {
	query := fmt.Sprintf(`SELECT %s FROM media ORDER BY id ASC`, mediaColumns)
	rows, err := r.db.QueryContext(ctx, query)
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
func (r *SQLiteMedia) Get(ctx context.Context, id int64) (domain.Media, error) {
	query := fmt.Sprintf(`SELECT %s FROM media WHERE id = ?`, mediaColumns)
	return r.one(ctx, "get media", query, id)
}

// Create inserts a new media row; see PostgresMedia.Create.
func (r *SQLiteMedia) Create(ctx context.Context, fields domain.MediaFields) (domain.Media, error) {
	query := fmt.Sprintf(`
        INSERT INTO media (title, media_type, poster_url, director, genre, platform, status, rating, review, total_episodes, current_episode)
        VALUES (?,?,?,?,?,?,?,?,?,?,0)
        RETURNING %s
    `, mediaColumns)

	media, err := scanMedia(r.db.QueryRowContext(ctx, query, fieldArgs(fields)...))
	if err != nil {
		return domain.Media{}, fmt.Errorf("create media: %w", err)
	}
	return media, nil
}

// Update overwrites every caller-controlled column of an existing row.
func (r *SQLiteMedia) Update(ctx context.Context, id int64, fields domain.MediaFields) (domain.Media, error) {
	query := fmt.Sprintf(`
        UPDATE media
        SET title = ?,
            media_type = ?,
            poster_url = ?,
            director = ?,
            genre = ?,
            platform = ?,
            status = ?,
            rating = ?,
            review = ?,
            total_episodes = ?
        WHERE id = ?
        RETURNING %s
    `, mediaColumns)

	args := append(fieldArgs(fields), id)
	return r.one(ctx, "update media", query, args...)
}

// Delete removes a media row and returns it as it was before removal.
func (r *SQLiteMedia) Delete(ctx context.Context, id int64) (domain.Media, error) {
	query := fmt.Sprintf(`DELETE FROM media WHERE id = ? RETURNING %s`, mediaColumns)
	return r.one(ctx, "delete media", query, id)
}

// Count returns the number of stored media records.
func (r *SQLiteMedia) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count media: %w", err)
	}
	return n, nil
}

func (r *SQLiteMedia) one(ctx context.Context, op, query string, args ...any) (domain.Media, error) {
	media, err := scanMedia(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Media{}, ErrNotFound
		}
		return domain.Media{}, fmt.Errorf("%s: %w", op, err)
	}
	return media, nil
}
