package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader     = "X-Request-ID"
	requestIDContextKey = "request_id"
)

// RequestIDMiddleware reuses the caller's X-Request-ID or generates one, and
// echoes it back so error payloads and logs can be correlated.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = "req_" + uuid.NewString()
		}

		c.Set(requestIDContextKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDContextKey)
}
