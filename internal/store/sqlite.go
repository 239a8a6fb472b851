package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteOptions controls how the SQLite database file is opened.
type SQLiteOptions struct {
	BusyTimeout time.Duration
	Synchronous string
	Logger      *zap.Logger
}

// SQLite is the file-backed (or in-memory) storage handle.
type SQLite struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// sqliteDSN turns a plain path into a modernc DSN whose pragmas are applied to
// every connection the pool opens, not only the first one.
func sqliteDSN(path string, opts SQLiteOptions) (string, error) {
	pragmas := []string{
		"foreign_keys(1)",
		fmt.Sprintf("busy_timeout(%d)", int(opts.BusyTimeout/time.Millisecond)),
	}
	if path != MemoryPath {
		synchronous := opts.Synchronous
		if synchronous == "" {
			synchronous = "NORMAL"
		}
		pragmas = append(pragmas, "journal_mode(WAL)", fmt.Sprintf("synchronous(%s)", synchronous))
	}

	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse sqlite path: %w", err)
	}
	query := parsed.Query()
	for _, p := range pragmas {
		query.Add("_pragma", p)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// OpenSQLite opens the database at path and verifies it with Ping.
func OpenSQLite(ctx context.Context, path string, opts SQLiteOptions) (*SQLite, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return nil, fmt.Errorf("sqlite: empty database path")
	}

	dsn, err := sqliteDSN(path, opts)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == MemoryPath {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	logger.Info("store: sqlite database opened", zap.String("path", path))
	return &SQLite{db: db, path: path, logger: logger}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() {
	if s == nil || s.db == nil {
		return
	}
	s.logger.Info("store: closing sqlite database", zap.String("path", s.path))
	if err := s.db.Close(); err != nil {
		s.logger.Warn("store: close sqlite", zap.Error(err))
	}
}

// HealthCheck verifies the database still answers.
func (s *SQLite) HealthCheck(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	return s.db.PingContext(ctx)
}

// DB exposes the underlying handle for repositories.
func (s *SQLite) DB() *sql.DB {
	return s.db
}
