package api

import "github.com/strands-sre/strands/pkg/resilience"

// HealthResponse is returned by GET /health, following this codebase's
// three-tier healthy/degraded/unhealthy status idiom (pkg/api's
// handler_health.go) generalised from database/worker-pool checks to
// database/adapter-circuit checks.
type HealthResponse struct {
	Status   string                            `json:"status"`
	Database HealthCheck                       `json:"database"`
	Adapters map[string]resilience.BreakerState `json:"adapters,omitempty"`
}

// HealthCheck is the status of a single health check component.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

const (
	healthStatusHealthy   = "healthy"
	healthStatusDegraded  = "degraded"
	healthStatusUnhealthy = "unhealthy"
)

// ReviewActionRequest is the request body for POST /reviews/:id/approve and
// POST /reviews/:id/reject.
type ReviewActionRequest struct {
	Reviewer string `json:"reviewer" binding:"required"`
	Notes    string `json:"notes,omitempty"`
}
