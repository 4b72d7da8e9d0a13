package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/makkenzo/spendwise-api/internal/domain/ratelimit"
	"github.com/makkenzo/spendwise-api/internal/metrics"
	"go.uber.org/zap"
)

// WindowSweepHandler removes rate limit windows that started before the
// retention horizon. Windows that old no longer affect any decision.
type WindowSweepHandler struct {
	repo      ratelimit.Repository
	retention time.Duration
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewWindowSweepHandler(repo ratelimit.Repository, retention time.Duration, m *metrics.Metrics, logger *zap.Logger) *WindowSweepHandler {
	return &WindowSweepHandler{
		repo:      repo,
		retention: retention,
		metrics:   m,
		logger:    logger.Named("WindowSweepHandler"),
		now:       time.Now,
	}
}

func (h *WindowSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeWindowSweep {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	var p WindowSweepPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.logger.Error("Failed to unmarshal payload for window sweep task", zap.Error(err), zap.ByteString("payload", t.Payload()))
		return fmt.Errorf("invalid payload: %v", err)
	}

	_, err := h.Sweep(ctx)
	return err
}

// Sweep deletes every window older than now minus the retention period.
func (h *WindowSweepHandler) Sweep(ctx context.Context) (int64, error) {
	cutoff := h.now().Add(-h.retention)
	h.logger.Info("Processing rate limit window sweep...", zap.Time("cutoff", cutoff))

	deleted, err := h.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		h.logger.Error("Failed to delete expired rate limit windows", zap.Error(err))
		return 0, fmt.Errorf("repository error deleting windows: %w", err)
	}

	h.metrics.RecordWindowsSwept(deleted)
	h.logger.Info("Rate limit window sweep finished", zap.Int64("deleted_windows", deleted))
	return deleted, nil
}
