package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/makkenzo/spendwise-api/internal/domain/apikey"
	"github.com/makkenzo/spendwise-api/internal/domain/ratelimit"
	"github.com/makkenzo/spendwise-api/internal/service"
	"github.com/makkenzo/spendwise-api/internal/util"
	"go.uber.org/zap"
)

const (
	apiKeyHeader = "X-API-Key"

	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"

	apiKeyContextKey = "apiKey"
	quotaContextKey  = "rateLimitQuota"
)

// RequireAPIKey guards a route with API key authentication followed by rate
// limiting. A denial aborts the chain and is rendered by ErrorHandlerMiddleware.
func RequireAPIKey(gate *service.Gate, scope apikey.Scope, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("APIKeyAuthMiddleware")
	return func(c *gin.Context) {
		credential := util.ExtractAPIKey(c.GetHeader(authorizationHeader), c.GetHeader(apiKeyHeader))

		admission, err := gate.Admit(c.Request.Context(), credential, scope)
		if admission != nil {
			setQuotaHeaders(c, admission.Quota)
		}
		if err != nil {
			log.Debug("Request denied by API gate",
				zap.String("reason", service.DenialCode(err)),
				zap.String("path", c.FullPath()),
				zap.String("request_id", GetRequestID(c)),
			)
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(apiKeyContextKey, admission.Key)
		c.Set(quotaContextKey, admission.Quota)
		c.Next()
	}
}

func setQuotaHeaders(c *gin.Context, q ratelimit.Quota) {
	c.Header(HeaderRateLimitLimit, strconv.Itoa(q.Limit))
	c.Header(HeaderRateLimitRemaining, strconv.Itoa(q.Remaining))
	c.Header(HeaderRateLimitReset, strconv.FormatInt(q.Reset, 10))
}

func GetAPIKey(c *gin.Context) *apikey.APIKey {
	value, exists := c.Get(apiKeyContextKey)
	if !exists {
		return nil
	}
	key, ok := value.(*apikey.APIKey)
	if !ok {
		return nil
	}
	return key
}

func GetQuota(c *gin.Context) (ratelimit.Quota, bool) {
	value, exists := c.Get(quotaContextKey)
	if !exists {
		return ratelimit.Quota{}, false
	}
	q, ok := value.(ratelimit.Quota)
	return q, ok
}
