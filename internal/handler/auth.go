package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/makkenzo/spendwise-api/internal/handler/dto"
	"github.com/makkenzo/spendwise-api/internal/ierr"
	"github.com/makkenzo/spendwise-api/internal/service"
	"go.uber.org/zap"
)

type AuthHandler struct {
	service *service.AuthService
	logger  *zap.Logger
}

func NewAuthHandler(service *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.Named("AuthHandler"),
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind login request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %w", ierr.ErrValidation, err))
		return
	}

	token, expiresAt, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ierr.ErrInvalidCredentials) {
			h.logger.Info("Invalid login attempt", zap.String("username", req.Username))
		} else {
			h.logger.Error("Login service failed", zap.String("username", req.Username), zap.Error(err))
		}
		_ = c.Error(err)
		return
	}

	h.logger.Info("Admin logged in successfully", zap.String("username", req.Username))
	c.JSON(http.StatusOK, dto.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt.Unix(),
	})
}
