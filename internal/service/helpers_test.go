package service

import (
	"context"
	"testing"
	"time"

	"github.com/makkenzo/spendwise-api/internal/domain/apikey"
	"github.com/makkenzo/spendwise-api/internal/metrics"
	"github.com/makkenzo/spendwise-api/internal/storage/memstorage"
	"github.com/makkenzo/spendwise-api/internal/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 19, 12, 0, 30, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestMetrics() *metrics.Metrics {
	return metrics.NewMetrics(prometheus.NewRegistry())
}

// seedKey stores a freshly generated active key and returns the plaintext
// credential alongside the stored record.
func seedKey(t *testing.T, repo *memstorage.APIKeyRepository, mutate func(k *apikey.APIKey)) (string, *apikey.APIKey) {
	t.Helper()

	fullKey, prefix, keyHash, err := util.GenerateAPIKey()
	require.NoError(t, err)

	key := &apikey.APIKey{
		KeyHash:            keyHash,
		KeyPrefix:          prefix,
		Name:               "test key",
		Scopes:             []string{"read", "write"},
		RateLimitPerMinute: 60,
		RateLimitPerDay:    10000,
		IsActive:           true,
	}
	if mutate != nil {
		mutate(key)
	}

	_, err = repo.Create(context.Background(), key)
	require.NoError(t, err)
	return fullKey, key
}
