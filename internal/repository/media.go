package repository

import (
	"github.com/Clark-Hu/moviemate/internal/domain"
)

const mediaColumns = `
    id,
    title,
    media_type,
    poster_url,
    director,
    genre,
    platform,
    status,
    rating,
    review,
    current_episode,
    total_episodes
`

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedia(row rowScanner) (domain.Media, error) {
	var media domain.Media
	err := row.Scan(
		&media.ID,
		&media.Title,
		&media.MediaType,
		&media.PosterURL,
		&media.Director,
		&media.Genre,
		&media.Platform,
		&media.Status,
		&media.Rating,
		&media.Review,
		&media.CurrentEpisode,
		&media.TotalEpisodes,
	)
	if err != nil {
		return domain.Media{}, err
	}
	return media, nil
}

// fieldArgs lists the updatable columns in the order used by insert and
// update statements: title, media_type, poster_url, director, genre,
// platform, status, rating, review, total_episodes.
func fieldArgs(f domain.MediaFields) []any {
	status := f.Status
	if status == "" {
		status = domain.DefaultStatus
	}
	return []any{
		f.Title,
		f.MediaType,
		f.PosterURL,
		f.Director,
		f.Genre,
		f.Platform,
		status,
		f.Rating,
		f.Review,
		f.TotalEpisodes,
	}
}
