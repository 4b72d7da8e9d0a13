package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/makkenzo/spendwise-api/internal/ierr"
	"github.com/makkenzo/spendwise-api/internal/service"
	"go.uber.org/zap"
)

const (
	authorizationHeader   = "Authorization"
	bearerPrefix          = "Bearer "
	adminClaimsContextKey = "adminClaims"
)

// AdminAuthMiddleware protects key management routes with an admin JWT.
func AdminAuthMiddleware(authService *service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("AdminAuthMiddleware")
	return func(c *gin.Context) {
		authHeader := c.GetHeader(authorizationHeader)
		if authHeader == "" {
			log.Debug("Authorization header is missing")
			_ = c.Error(fmt.Errorf("%w: authorization header required", ierr.ErrUnauthorized))
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, bearerPrefix) {
			log.Debug("Authorization header format is invalid")
			_ = c.Error(fmt.Errorf("%w: invalid authorization header format", ierr.ErrUnauthorized))
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)
		if tokenString == "" {
			log.Debug("Token is missing after Bearer prefix")
			_ = c.Error(fmt.Errorf("%w: token missing", ierr.ErrUnauthorized))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(c.Request.Context(), tokenString)
		if err != nil {
			log.Warn("Admin token validation failed", zap.Error(err))
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(adminClaimsContextKey, claims)
		c.Next()
	}
}

func GetAdminClaims(c *gin.Context) *service.AdminClaims {
	value, exists := c.Get(adminClaimsContextKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*service.AdminClaims)
	if !ok {
		return nil
	}
	return claims
}
