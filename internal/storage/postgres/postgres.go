package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/makkenzo/spendwise-api/internal/config"
	"go.uber.org/zap"
)

func NewPgxPool(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database.url is required")
	}

	pgxConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres connection string: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		pgxConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 && cfg.MaxIdleConns <= cfg.MaxOpenConns {
		pgxConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	pgxConfig.MaxConnLifetime = cfg.ConnMaxLifetime

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, pgxConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection pool: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	defer cancelPing()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info("Successfully connected to PostgreSQL",
		zap.String("host", pgxConfig.ConnConfig.Host),
		zap.String("database", pgxConfig.ConnConfig.Database),
		zap.Int32("max_conns", pgxConfig.MaxConns),
	)

	if cfg.AutoMigrate {
		if _, err := Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return pool, nil
}
