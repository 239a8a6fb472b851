package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Clark-Hu/moviemate/internal/config"
	httpserver "github.com/Clark-Hu/moviemate/internal/http"
	"github.com/Clark-Hu/moviemate/internal/repository"
	"github.com/Clark-Hu/moviemate/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("moviemate")

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	health, repo, closeStore, err := openStorage(dbCtx, cfg, logger)
	if err != nil {
		logger.Fatal("open storage", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer closeStore()

	server := httpserver.New(cfg, health, repo, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error("server error", zap.Error(err))
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("graceful shutdown error", zap.Error(err))
	}
	logger.Info("stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// openStorage connects the configured backend, applies migrations and returns
// the repository together with a release function.
func openStorage(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.HealthChecker, *repository.Repository, func(), error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		st, err := store.New(ctx, cfg.DBURL, store.Options{
			MaxConns:               int32(cfg.DBMaxConns),
			MinConns:               int32(cfg.DBMinConns),
			MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
			MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
			ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
			StatementCacheCapacity: cfg.DBStatementCache,
			Logger:                 logger,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		if err := repository.MigratePostgres(ctx, st.Pool()); err != nil {
			st.Close()
			return nil, nil, nil, err
		}
		return st, repository.New(st), st.Close, nil
	default:
		st, err := store.OpenSQLite(ctx, cfg.DBURL, store.SQLiteOptions{
			BusyTimeout: time.Duration(cfg.SQLiteBusyMillis) * time.Millisecond,
			Logger:      logger,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		if err := repository.MigrateSQLite(ctx, st.DB()); err != nil {
			st.Close()
			return nil, nil, nil, err
		}
		return st, repository.NewSQLite(st), st.Close, nil
	}
}
