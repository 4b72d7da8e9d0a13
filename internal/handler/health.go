package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency whose reachability is reported by /healthz.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	deps   map[string]Pinger
	logger *zap.Logger
}

func NewHealthHandler(deps map[string]Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		deps:   deps,
		logger: logger.Named("HealthHandler"),
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	statuses := gin.H{}
	for _, name := range names {
		status := "ok"
		if err := h.deps[name](ctx); err != nil {
			status = "error"
			healthy = false
			h.logger.Error("Health check: dependency ping failed", zap.String("dependency", name), zap.Error(err))
		}
		statuses[name] = status
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":       "unhealthy",
			"dependencies": statuses,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"dependencies": statuses,
	})
}
