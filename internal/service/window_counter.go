package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/makkenzo/spendwise-api/internal/domain/ratelimit"
	"go.uber.org/zap"
)

// WindowCounter bumps fixed-window counters without a store-specific upsert:
// increment, else create, else (lost the creation race) increment again.
type WindowCounter struct {
	repo   ratelimit.Repository
	logger *zap.Logger
}

func NewWindowCounter(repo ratelimit.Repository, logger *zap.Logger) *WindowCounter {
	return &WindowCounter{
		repo:   repo,
		logger: logger.Named("WindowCounter"),
	}
}

// Bump records one request in the window and returns the resulting count.
func (c *WindowCounter) Bump(ctx context.Context, apiKeyID uuid.UUID, windowStart time.Time, windowType ratelimit.WindowType) (int, error) {
	count, err := c.repo.Increment(ctx, apiKeyID, windowStart, windowType)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, ratelimit.ErrWindowNotFound) {
		return 0, err
	}

	err = c.repo.Create(ctx, &ratelimit.Window{
		APIKeyID:     apiKeyID,
		WindowStart:  windowStart,
		WindowType:   windowType,
		RequestCount: 1,
	})
	if err == nil {
		return 1, nil
	}
	if !errors.Is(err, ratelimit.ErrWindowExists) {
		return 0, err
	}

	c.logger.Debug("Lost window creation race, reconciling",
		zap.String("api_key_id", apiKeyID.String()),
		zap.String("window_type", string(windowType)),
	)

	count, err = c.repo.Increment(ctx, apiKeyID, windowStart, windowType)
	if err != nil {
		return 0, fmt.Errorf("reconciling %s window after concurrent create: %w", windowType, err)
	}
	return count, nil
}
