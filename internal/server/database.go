package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	repo "github.com/joseph-ayodele/idcard-extractor/internal/repository"
)

// ConnectDB opens Postgres when a DSN is configured and sqlite otherwise, then migrates.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*repo.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		store *repo.Store
		err   error
	)
	if cfg.DSN != "" {
		store, err = repo.Open(ctx, repo.Config{
			DSN:             cfg.DSN,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
			DialTimeout:     cfg.DialTimeout,
		}, logger)
	} else {
		store, err = repo.OpenSQLite(cfg.SQLitePath, logger)
	}
	if err != nil {
		return nil, common.NewAppError(common.CodeDatabase, "connect", err)
	}

	if err := PingDB(ctx, store, logger, cfg.DialTimeout); err != nil {
		repo.Close(store, logger)
		return nil, common.NewAppError(common.CodeDatabase, "ping", err)
	}
	if err := repo.Migrate(ctx, store, logger); err != nil {
		repo.Close(store, logger)
		return nil, common.NewAppError(common.CodeDatabase, "migrate", err)
	}
	return store, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, store *repo.Store, logger *slog.Logger, timeout time.Duration) error {
	return repo.HealthCheck(ctx, store, timeout, logger)
}

// CloseDB closes the database connections gracefully
func CloseDB(store *repo.Store, logger *slog.Logger) {
	repo.Close(store, logger)
}
