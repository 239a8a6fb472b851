package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/moviemate/internal/domain"
	"github.com/Clark-Hu/moviemate/internal/store"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("repository: not found")

// MediaStore is the persistence contract for media records. Lookups of an id
// that does not exist return ErrNotFound and never mutate anything.
type MediaStore interface {
	List(ctx context.Context) ([]domain.Media, error)
	Get(ctx context.Context, id int64) (domain.Media, error)
	Create(ctx context.Context, fields domain.MediaFields) (domain.Media, error)
	Update(ctx context.Context, id int64, fields domain.MediaFields) (domain.Media, error)
	Delete(ctx context.Context, id int64) (domain.Media, error)
	Count(ctx context.Context) (int64, error)
}

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Media MediaStore
}

// New constructs a Repository backed by the provided PostgreSQL store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{Media: &PostgresMedia{pool: pool}}
}

// NewSQLite constructs a Repository backed by the provided SQLite store.
func NewSQLite(st *store.SQLite) *Repository {
	return NewWithDB(st.DB())
}

// NewWithDB allows constructing repositories directly from a SQLite handle.
func NewWithDB(db *sql.DB) *Repository {
	return &Repository{Media: &SQLiteMedia{db: db}}
}
