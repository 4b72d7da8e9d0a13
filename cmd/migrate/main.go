package main

import (
	"context"
	"flag"
	"log"

	"github.com/makkenzo/spendwise-api/internal/config"
	"github.com/makkenzo/spendwise-api/internal/storage/postgres"
	"github.com/makkenzo/spendwise-api/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "./configs/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.NewZapLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	ctx := context.Background()
	cfg.Database.AutoMigrate = false

	pool, err := postgres.NewPgxPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pool.Close()

	applied, err := postgres.Migrate(ctx, pool, appLogger)
	if err != nil {
		appLogger.Fatal("Migration failed", zap.Error(err))
	}
	appLogger.Info("Migrations complete", zap.Strings("applied", applied))
}
