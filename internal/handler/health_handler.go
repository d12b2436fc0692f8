// Package handler provides the keep-alive HTTP endpoints.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rajcricket/Free-Donuts/internal/service"
)

// Pinger is the subset of the connection pool the readiness probe
// needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the keep-alive and health check endpoints.
type HealthHandler struct {
	pool      Pinger
	publisher *service.MessagePublisher // optional
}

// NewHealthHandler creates a new HealthHandler instance.
func NewHealthHandler(pool Pinger, publisher *service.MessagePublisher) *HealthHandler {
	return &HealthHandler{
		pool:      pool,
		publisher: publisher,
	}
}

// KeepAlive answers uptime monitors with a fixed response.
func (h *HealthHandler) KeepAlive(c *gin.Context) {
	c.String(http.StatusOK, "I am alive!")
}

// LivenessProbe checks if the application is running.
func (h *HealthHandler) LivenessProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now(),
	})
}

// ReadinessProbe checks if the application is ready to serve traffic.
func (h *HealthHandler) ReadinessProbe(c *gin.Context) {
	ctx := c.Request.Context()

	// Check database connectivity
	if h.pool != nil {
		if err := h.pool.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "DOWN",
				"database": "unhealthy",
				"error":    err.Error(),
				"time":     time.Now(),
			})
			return
		}
	}

	// Check RabbitMQ connectivity (only when configured)
	if h.publisher != nil && !h.publisher.IsHealthy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "DOWN",
			"rabbitmq": "unhealthy",
			"time":     time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now(),
	})
}
