package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/makkenzo/spendwise-api/internal/handler/dto"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecoveryMiddleware_RendersInternalError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware(), ErrorHandlerMiddleware(zap.NewNop()), RecoveryMiddleware(zap.NewNop()))
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(RequestIDHeader, "req_panic")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp dto.APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "INTERNAL_ERROR", resp.Code)
	require.Equal(t, "req_panic", resp.RequestID)
}
