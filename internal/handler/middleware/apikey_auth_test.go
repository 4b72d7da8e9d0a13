package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/makkenzo/spendwise-api/internal/domain/apikey"
	"github.com/makkenzo/spendwise-api/internal/handler/dto"
	"github.com/makkenzo/spendwise-api/internal/metrics"
	"github.com/makkenzo/spendwise-api/internal/service"
	"github.com/makkenzo/spendwise-api/internal/storage/memstorage"
	"github.com/makkenzo/spendwise-api/internal/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 30, 0, time.UTC)

type gateEnv struct {
	router *gin.Engine
	keys   *memstorage.APIKeyRepository
}

func newGateEnv(t *testing.T) *gateEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	keys := memstorage.NewAPIKeyRepository()
	windows := memstorage.NewWindowRepository()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	clock := func() time.Time { return testNow }

	auth := service.NewAuthenticator(keys, m, zap.NewNop()).WithClock(clock)
	limiter := service.NewRateLimiter(service.NewWindowCounter(windows, zap.NewNop()), time.UTC, m, zap.NewNop()).WithClock(clock)
	gate := service.NewGate(auth, limiter, m, zap.NewNop())

	router := gin.New()
	router.Use(RequestIDMiddleware(), ErrorHandlerMiddleware(zap.NewNop()))
	ok := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": GetAPIKey(c).Name})
	}
	router.GET("/read", RequireAPIKey(gate, apikey.ScopeRead, zap.NewNop()), ok)
	router.POST("/write", RequireAPIKey(gate, apikey.ScopeWrite, zap.NewNop()), ok)

	return &gateEnv{router: router, keys: keys}
}

func (e *gateEnv) seed(t *testing.T, mutate func(k *apikey.APIKey)) string {
	t.Helper()
	fullKey, prefix, keyHash, err := util.GenerateAPIKey()
	require.NoError(t, err)
	key := &apikey.APIKey{
		KeyHash:            keyHash,
		KeyPrefix:          prefix,
		Name:               "budget-sync",
		Scopes:             []string{"read"},
		RateLimitPerMinute: 2,
		RateLimitPerDay:    100,
		IsActive:           true,
	}
	if mutate != nil {
		mutate(key)
	}
	_, err = e.keys.Create(context.Background(), key)
	require.NoError(t, err)
	return fullKey
}

func (e *gateEnv) do(method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.APIErrorResponse {
	t.Helper()
	var resp dto.APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRequireAPIKey_Missing(t *testing.T) {
	env := newGateEnv(t)

	w := env.do(http.MethodGet, "/read", map[string]string{RequestIDHeader: "req_abc"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Empty(t, w.Header().Get(HeaderRateLimitLimit))

	resp := decodeError(t, w)
	require.Equal(t, "UNAUTHORIZED", resp.Code)
	require.Equal(t, "Missing API key. Provide via Authorization: Bearer <key> or X-API-Key header.", resp.Message)
	require.Equal(t, "req_abc", resp.RequestID)
}

func TestRequireAPIKey_InvalidFormatAndUnknown(t *testing.T) {
	env := newGateEnv(t)

	w := env.do(http.MethodGet, "/read", map[string]string{"X-API-Key": "sk_test_123"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Invalid API key format", decodeError(t, w).Message)

	w = env.do(http.MethodGet, "/read", map[string]string{"X-API-Key": "spw_live_doesnotexist"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Invalid API key", decodeError(t, w).Message)
}

func TestRequireAPIKey_AdmitsAndSetsQuotaHeaders(t *testing.T) {
	env := newGateEnv(t)
	fullKey := env.seed(t, nil)

	w := env.do(http.MethodGet, "/read", map[string]string{"X-API-Key": fullKey})
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"name":"budget-sync"}`, w.Body.String())
	require.Equal(t, "2", w.Header().Get(HeaderRateLimitLimit))
	require.Equal(t, "1", w.Header().Get(HeaderRateLimitRemaining))
	require.Equal(t, strconv.FormatInt(time.Date(2026, 10, 19, 12, 1, 0, 0, time.UTC).Unix(), 10), w.Header().Get(HeaderRateLimitReset))
	require.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequireAPIKey_BearerTakesPrecedence(t *testing.T) {
	env := newGateEnv(t)
	fullKey := env.seed(t, nil)

	w := env.do(http.MethodGet, "/read", map[string]string{
		"Authorization": "Bearer " + fullKey,
		"X-API-Key":     "garbage",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/read", map[string]string{
		"Authorization": "Bearer not-a-key",
		"X-API-Key":     fullKey,
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Invalid API key format", decodeError(t, w).Message)
}

func TestRequireAPIKey_RateLimited(t *testing.T) {
	env := newGateEnv(t)
	fullKey := env.seed(t, nil)
	headers := map[string]string{"X-API-Key": fullKey}

	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/read", headers).Code)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/read", headers).Code)

	w := env.do(http.MethodGet, "/read", headers)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "0", w.Header().Get(HeaderRateLimitRemaining))

	resp := decodeError(t, w)
	require.Equal(t, "RATE_LIMIT_EXCEEDED", resp.Code)
	require.Equal(t, "Rate limit exceeded. Please try again later.", resp.Message)
}

func TestRequireAPIKey_Forbidden(t *testing.T) {
	env := newGateEnv(t)
	readOnly := env.seed(t, nil)
	disabled := env.seed(t, func(k *apikey.APIKey) { k.IsActive = false })
	expiredAt := testNow.Add(-time.Minute)
	expired := env.seed(t, func(k *apikey.APIKey) { k.ExpiresAt = &expiredAt })

	cases := []struct {
		name    string
		method  string
		path    string
		key     string
		message string
	}{
		{"missing scope", http.MethodPost, "/write", readOnly, "API key lacks 'write' permission"},
		{"disabled", http.MethodGet, "/read", disabled, "API key is disabled"},
		{"expired", http.MethodGet, "/read", expired, "API key has expired"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(tc.method, tc.path, map[string]string{"X-API-Key": tc.key})
			require.Equal(t, http.StatusForbidden, w.Code)
			require.Empty(t, w.Header().Get(HeaderRateLimitLimit))

			resp := decodeError(t, w)
			require.Equal(t, "FORBIDDEN", resp.Code)
			require.Equal(t, tc.message, resp.Message)
		})
	}
}
