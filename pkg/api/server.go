// Package api is the thin Gin-based operator console: a
// handful of read/act endpoints over the already-running controller, not
// a full web dashboard. Built with this codebase's own HTTP stack
// (gin-gonic/gin), following its Start/StartWithListener/Shutdown lifecycle
// shape.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/resilience"
	"github.com/strands-sre/strands/pkg/review"
)

// DBPinger is the slice of *pgxpool.Pool's API the health endpoint needs.
// Narrowed to an interface, like pkg/review's Repository/Notifier, so
// tests can substitute a fake instead of standing up a real pool.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// PlaybookService is the slice of pkg/playbook.Service's API the playbook
// endpoints need.
type PlaybookService interface {
	List(ctx context.Context) ([]models.Playbook, error)
	Get(ctx context.Context, id string) (models.Playbook, error)
}

// ReviewService is the slice of pkg/review.Service's API the review
// endpoints need.
type ReviewService interface {
	Approve(ctx context.Context, decisionID, reviewer, notes string) (review.Outcome, error)
	Reject(ctx context.Context, decisionID, reviewer, notes string) (review.Outcome, error)
}

// Server is the operator-console HTTP server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	db         DBPinger
	playbooks  PlaybookService
	reviews    ReviewService
	resilience *resilience.Registry
}

// NewServer wires a Gin engine over the already-constructed service layer
// and registers every route up front (mirroring this codebase's NewServer,
// which calls setupRoutes() before returning). registry may be nil; the
// health endpoint then reports no adapter circuit states.
func NewServer(db DBPinger, playbooks PlaybookService, reviews ReviewService, registry *resilience.Registry) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(), securityHeaders())

	s := &Server{
		engine:     engine,
		db:         db,
		playbooks:  playbooks,
		reviews:    reviews,
		resilience: registry,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.health)

	v1 := s.engine.Group("/api/v1")
	v1.GET("/playbooks", s.listPlaybooks)
	v1.GET("/playbooks/:id", s.getPlaybook)
	v1.POST("/reviews/:id/approve", s.approveReview)
	v1.POST("/reviews/:id/reject", s.rejectReview)
}

// Start starts the HTTP server on addr (blocking, like net/http.ListenAndServe).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener, for
// tests that need a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.engine}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// requestLogger logs each request's method, path, status and latency via
// slog, replacing gin's default text logger the way this codebase swaps
// framework defaults for its own structured logging elsewhere.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}

// securityHeaders sets the same baseline response headers as this codebase's
// pkg/api/middleware.go securityHeaders, translated from an Echo
// MiddlewareFunc to a gin.HandlerFunc.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		c.Next()
	}
}
