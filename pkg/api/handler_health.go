package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/strands-sre/strands/pkg/resilience"
)

// health handles GET /health: a liveness probe plus the per-adapter circuit
// states an operator needs at a glance. Only
// strands's own storage dependency is checked directly — external adapters
// (Prometheus, the graph store's own backends, the LLM generator) surface
// through their resilience.Registry breaker state instead of a live probe,
// the same "don't let an external dependency's hiccup restart us" reasoning
// behind this codebase's handler_health.go excluding MCP/LLM from its own
// direct checks.
func (s *Server) health(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := healthStatusHealthy
	db := HealthCheck{Status: healthStatusHealthy}
	if err := s.db.Ping(reqCtx); err != nil {
		status = healthStatusUnhealthy
		db = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
	}

	var adapters map[string]resilience.BreakerState
	if s.resilience != nil {
		adapters = s.resilience.States()
		for _, state := range adapters {
			if state == resilience.StateOpen && status == healthStatusHealthy {
				status = healthStatusDegraded
			}
		}
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, HealthResponse{Status: status, Database: db, Adapters: adapters})
}
