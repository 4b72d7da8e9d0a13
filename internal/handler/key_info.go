package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/makkenzo/spendwise-api/internal/handler/dto"
	"github.com/makkenzo/spendwise-api/internal/handler/middleware"
	"github.com/makkenzo/spendwise-api/internal/ierr"
	"go.uber.org/zap"
)

// KeyInfoHandler serves the calling key's own metadata.
type KeyInfoHandler struct {
	logger *zap.Logger
}

func NewKeyInfoHandler(logger *zap.Logger) *KeyInfoHandler {
	return &KeyInfoHandler{logger: logger.Named("KeyInfoHandler")}
}

func (h *KeyInfoHandler) Me(c *gin.Context) {
	key := middleware.GetAPIKey(c)
	if key == nil {
		h.logger.Error("Key info requested without an authenticated key; route is missing RequireAPIKey")
		_ = c.Error(ierr.ErrInternalServer)
		return
	}
	quota, _ := middleware.GetQuota(c)

	c.JSON(http.StatusOK, dto.CurrentKeyResponse{
		Key:   dto.NewAPIKeyResponse(key),
		Quota: dto.NewQuotaResponse(quota),
	})
}
