package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/makkenzo/spendwise-api/internal/config"
	"github.com/makkenzo/spendwise-api/internal/domain/apikey"
	"github.com/makkenzo/spendwise-api/internal/handler/dto"
	"github.com/makkenzo/spendwise-api/internal/handler/middleware"
	"github.com/makkenzo/spendwise-api/internal/metrics"
	"github.com/makkenzo/spendwise-api/internal/service"
	"github.com/makkenzo/spendwise-api/internal/storage/memstorage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	keys := memstorage.NewAPIKeyRepository()
	windows := memstorage.NewWindowRepository()
	m := metrics.NewMetrics(prometheus.NewRegistry())

	authService, err := service.NewAuthService(
		memstorage.NewUserRepositoryMock("admin", string(hash)),
		&config.AdminConfig{JWTSecret: "handler-test", TokenTTL: time.Hour},
		logger,
	)
	require.NoError(t, err)
	apiKeyService := service.NewAPIKeyService(keys, 60, 10000, logger)
	gate := service.NewGate(
		service.NewAuthenticator(keys, m, logger),
		service.NewRateLimiter(service.NewWindowCounter(windows, logger), time.UTC, m, logger),
		m,
		logger,
	)

	authHandler := NewAuthHandler(authService, logger)
	apiKeyHandler := NewAPIKeyHandler(apiKeyService, logger)
	keyInfoHandler := NewKeyInfoHandler(logger)

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware(), middleware.ErrorHandlerMiddleware(logger))
	router.POST("/api/v1/auth/login", authHandler.Login)
	router.GET("/api/v1/me", middleware.RequireAPIKey(gate, apikey.ScopeRead, logger), keyInfoHandler.Me)
	admin := router.Group("/api/v1/admin/apikeys", middleware.AdminAuthMiddleware(authService, logger))
	admin.POST("", apiKeyHandler.Create)
	admin.GET("", apiKeyHandler.List)
	return router
}

func doJSON(router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(router, http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{Username: "admin", Password: "s3cret"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestLogin_BadPassword(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{Username: "admin", Password: "nope"}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAPIKeys_RequireToken(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/api/v1/admin/apikeys", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/admin/apikeys", nil, map[string]string{"Authorization": "Bearer bogus"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAPIKeys_CreateValidation(t *testing.T) {
	router := newTestRouter(t)
	auth := map[string]string{"Authorization": "Bearer " + login(t, router)}

	w := doJSON(router, http.MethodPost, "/api/v1/admin/apikeys", map[string]any{"scopes": []string{"admin"}}, auth)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "VALIDATION_ERROR", resp.Code)
}

func TestIssueListAndUseKey(t *testing.T) {
	router := newTestRouter(t)
	auth := map[string]string{"Authorization": "Bearer " + login(t, router)}

	w := doJSON(router, http.MethodPost, "/api/v1/admin/apikeys", dto.CreateAPIKeyRequest{
		Name:               "mobile app",
		Scopes:             []string{"read"},
		RateLimitPerMinute: 5,
	}, auth)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created dto.CreateAPIKeyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.FullKey)
	require.Equal(t, 10000, created.RateLimitPerDay)

	w = doJSON(router, http.MethodGet, "/api/v1/admin/apikeys", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []dto.APIKeyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	require.NotContains(t, w.Body.String(), created.FullKey)

	w = doJSON(router, http.MethodGet, "/api/v1/me", nil, map[string]string{"Authorization": "Bearer " + created.FullKey})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "5", w.Header().Get(middleware.HeaderRateLimitLimit))

	var me dto.CurrentKeyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	require.Equal(t, created.ID, me.Key.ID)
	require.Equal(t, "mobile app", me.Key.Name)
	require.Equal(t, 4, me.Quota.Remaining)
}
