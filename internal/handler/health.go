package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger is a dependency whose connectivity the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	deps     map[string]Pinger
	networks []string
}

// NewHealthHandler creates a new HealthHandler. deps may be empty when the
// server runs without storage.
func NewHealthHandler(deps map[string]Pinger, networks []string) *HealthHandler {
	return &HealthHandler{deps: deps, networks: networks}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":   "healthy",
		"networks": h.networks,
	}
	status := http.StatusOK

	for name, dep := range h.deps {
		if err := dep.Ping(c.Request.Context()); err != nil {
			body[name] = "down"
			body["status"] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		body[name] = "up"
	}

	c.JSON(status, body)
}
