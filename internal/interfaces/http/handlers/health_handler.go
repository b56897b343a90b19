package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/graphbind/graphbind/pkg/logger"
)

// HealthHandler provides liveness and readiness endpoints.
type HealthHandler struct {
	redis *redis.Client
	log   logger.Logger
}

// NewHealthHandler creates a new HealthHandler. redis may be nil when the
// token store is not configured.
func NewHealthHandler(redisClient *redis.Client, log logger.Logger) *HealthHandler {
	return &HealthHandler{redis: redisClient, log: log}
}

// LivenessCheck reports that the process is up.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
}

// ReadinessCheck verifies the token store backend is reachable.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	checks := map[string]string{}
	status := http.StatusOK

	if h.redis != nil {
		if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
			checks["token_store"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["token_store"] = "ok"
		}
	}

	c.JSON(status, gin.H{
		"status":    map[bool]string{true: "ready", false: "unavailable"}[status == http.StatusOK],
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}
