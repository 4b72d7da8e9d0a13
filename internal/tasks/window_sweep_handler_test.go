package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/makkenzo/spendwise-api/internal/domain/ratelimit"
	"github.com/makkenzo/spendwise-api/internal/metrics"
	"github.com/makkenzo/spendwise-api/internal/storage/memstorage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWindowSweepHandler_DeletesWindowsPastRetention(t *testing.T) {
	repo := memstorage.NewWindowRepository()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	keyID := uuid.New()
	ctx := context.Background()

	for _, w := range []*ratelimit.Window{
		{APIKeyID: keyID, WindowStart: now.Add(-72 * time.Hour), WindowType: ratelimit.WindowDay, RequestCount: 9},
		{APIKeyID: keyID, WindowStart: now.Add(-49 * time.Hour), WindowType: ratelimit.WindowMinute, RequestCount: 1},
		{APIKeyID: keyID, WindowStart: now.Add(-time.Hour), WindowType: ratelimit.WindowMinute, RequestCount: 3},
	} {
		require.NoError(t, repo.Create(ctx, w))
	}

	h := NewWindowSweepHandler(repo, 48*time.Hour, m, zap.NewNop())
	h.now = func() time.Time { return now }

	task, err := NewWindowSweepTask()
	require.NoError(t, err)
	require.NoError(t, h.ProcessTask(ctx, task))

	require.Equal(t, 1, repo.Len())
	require.Equal(t, 3, repo.Count(keyID, now.Add(-time.Hour), ratelimit.WindowMinute))
	require.Equal(t, float64(2), testutil.ToFloat64(m.WindowsSwept()))
}

func TestWindowSweepHandler_RejectsForeignTasks(t *testing.T) {
	h := NewWindowSweepHandler(memstorage.NewWindowRepository(), time.Hour, metrics.NewMetrics(prometheus.NewRegistry()), zap.NewNop())

	err := h.ProcessTask(context.Background(), asynq.NewTask("email:send", nil))
	require.Error(t, err)
}

func TestWindowSweepHandler_StoreFailure(t *testing.T) {
	repo := memstorage.NewWindowRepository()
	repo.Err = errors.New("store down")
	h := NewWindowSweepHandler(repo, time.Hour, metrics.NewMetrics(prometheus.NewRegistry()), zap.NewNop())

	_, err := h.Sweep(context.Background())
	require.ErrorIs(t, err, repo.Err)
}
