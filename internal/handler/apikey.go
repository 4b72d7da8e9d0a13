package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/makkenzo/spendwise-api/internal/handler/dto"
	"github.com/makkenzo/spendwise-api/internal/handler/middleware"
	"github.com/makkenzo/spendwise-api/internal/ierr"
	"github.com/makkenzo/spendwise-api/internal/service"
	"go.uber.org/zap"
)

type APIKeyHandler struct {
	service *service.APIKeyService
	logger  *zap.Logger
}

func NewAPIKeyHandler(service *service.APIKeyService, logger *zap.Logger) *APIKeyHandler {
	return &APIKeyHandler{
		service: service,
		logger:  logger.Named("APIKeyHandler"),
	}
}

func (h *APIKeyHandler) Create(c *gin.Context) {
	var req dto.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind create api key request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %w", ierr.ErrValidation, err))
		return
	}

	respDTO, err := h.service.CreateAPIKey(c.Request.Context(), service.IssueParams{
		Name:               req.Name,
		Scopes:             req.Scopes,
		RateLimitPerMinute: req.RateLimitPerMinute,
		RateLimitPerDay:    req.RateLimitPerDay,
		ExpiresAt:          req.ExpiresAt,
	})
	if err != nil {
		h.logger.Error("Service failed to create api key", zap.Error(err))
		_ = c.Error(err)
		return
	}

	issuedBy := ""
	if claims := middleware.GetAdminClaims(c); claims != nil {
		issuedBy = claims.Username
	}
	h.logger.Info("API Key created via handler", zap.String("id", respDTO.ID.String()), zap.String("issued_by", issuedBy))
	c.JSON(http.StatusCreated, respDTO)
}

func (h *APIKeyHandler) List(c *gin.Context) {
	keys, err := h.service.ListAPIKeys(c.Request.Context())
	if err != nil {
		h.logger.Error("Service failed to list api keys", zap.Error(err))
		_ = c.Error(err)
		return
	}

	h.logger.Debug("API Keys listed successfully via handler", zap.Int("count", len(keys)))
	c.JSON(http.StatusOK, keys)
}
