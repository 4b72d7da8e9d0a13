package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/makkenzo/spendwise-api/internal/config"
	"github.com/makkenzo/spendwise-api/internal/service"
	"github.com/makkenzo/spendwise-api/internal/storage/postgres"
	"github.com/makkenzo/spendwise-api/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "./configs/config.dev.yaml", "Path to configuration file")
	name := flag.String("name", "Default Key", "Human readable name for the key")
	scopes := flag.String("scopes", "read,write", "Comma separated scopes (read, write)")
	perMinute := flag.Int("per-minute", 0, "Requests allowed per minute; zero uses rateLimit.defaultPerMinute")
	perDay := flag.Int("per-day", 0, "Requests allowed per day; zero uses rateLimit.defaultPerDay")
	expiresIn := flag.Duration("expires-in", 0, "Key lifetime, e.g. 720h; zero means never expires")
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

	params := service.IssueParams{
		Name:               *name,
		Scopes:             parseScopes(*scopes),
		RateLimitPerMinute: *perMinute,
		RateLimitPerDay:    *perDay,
	}
	if *expiresIn > 0 {
		expiresAt := time.Now().Add(*expiresIn)
		params.ExpiresAt = &expiresAt
	}

	ctx := context.Background()
	cfg.Database.AutoMigrate = false

	pool, err := postgres.NewPgxPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pool.Close()

	repo := postgres.NewAPIKeyRepository(pool, appLogger)
	svc := service.NewAPIKeyService(repo, cfg.RateLimit.DefaultPerMinute, cfg.RateLimit.DefaultPerDay, appLogger)

	created, err := svc.CreateAPIKey(ctx, params)
	if err != nil {
		appLogger.Fatal("Failed to save API key to database", zap.Error(err))
	}

	fmt.Printf("Generated API Key (SAVE THIS securely!):\n%s\n\n", created.FullKey)
	fmt.Printf("Prefix: %s\n", created.KeyPrefix)
	fmt.Printf("Scopes: %s\n", strings.Join(created.Scopes, ","))
	fmt.Printf("Limits: %d/min, %d/day\n", created.RateLimitPerMinute, created.RateLimitPerDay)
	fmt.Printf("\nAPI Key saved to database with ID: %s\n", created.ID)
}

func parseScopes(raw string) []string {
	var scopes []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}
