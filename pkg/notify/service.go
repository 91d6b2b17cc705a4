// Package notify adapts this codebase's Slack client into the human-review
// notification channel for C9: a threaded Slack message per decision that
// enters PENDING review, with replies posted on APPROVED/REJECTED.
//
// Thread correlation works by embedding a fingerprint in the initial
// message's text and re-finding it via pkg/slack.Client.FindMessageByFingerprint:
// here the anchor is the cluster ID that produced the decision, so every
// notification about the same incident lands in one thread regardless of
// how many decisions that cluster generates.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/slack"
)

// Config holds the parameters needed to construct a Service.
type Config struct {
	Token        string
	Channel      string
	DashboardURL string
}

// Service delivers review-lifecycle notifications to Slack. Nil-safe: every
// method is a no-op on a nil Service, so callers can wire notify
// unconditionally and simply skip construction when Slack isn't configured.
type Service struct {
	client       *slack.Client
	dashboardURL string
	logger       *slog.Logger
}

// New creates a Service. Returns nil if Token or Channel is empty.
func New(cfg Config) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client:       slack.NewClient(cfg.Token, cfg.Channel),
		dashboardURL: cfg.DashboardURL,
		logger:       slog.Default().With("component", "notify-service"),
	}
}

// NewWithClient builds a Service around a pre-constructed Slack client,
// useful for pointing at a mock API server in tests.
func NewWithClient(client *slack.Client, dashboardURL string) *Service {
	return &Service{client: client, dashboardURL: dashboardURL, logger: slog.Default().With("component", "notify-service")}
}

// NotifyPendingReview posts the initial summary for a decision that just
// entered PENDING review, threaded under any earlier message mentioning the
// same cluster ID. Returns the resolved thread timestamp for reuse by
// NotifyReviewResolved. Fail-open: errors are logged, never returned.
func (s *Service) NotifyPendingReview(ctx context.Context, decision models.DecisionCandidate) string {
	if s == nil {
		return ""
	}
	threadTS, err := s.client.FindMessageByFingerprint(ctx, decision.ClusterID)
	if err != nil {
		s.logger.Warn("failed to find Slack thread for cluster",
			"cluster_id", decision.ClusterID, "error", err)
	}

	blocks := BuildPendingReviewMessage(decision, s.dashboardURL)
	if err := s.client.PostMessage(ctx, blocks, threadTS, 5*time.Second); err != nil {
		s.logger.Error("failed to send pending-review notification",
			"decision_id", decision.ID, "cluster_id", decision.ClusterID, "error", err)
	}
	return threadTS
}

// NotifyReviewResolved posts the terminal review outcome as a threaded
// reply. If threadTS is empty it is re-resolved from the cluster ID.
// Fail-open: errors are logged, never returned.
func (s *Service) NotifyReviewResolved(ctx context.Context, decision models.DecisionCandidate, record models.ReviewRecord, threadTS string) {
	if s == nil {
		return
	}
	if threadTS == "" {
		var err error
		threadTS, err = s.client.FindMessageByFingerprint(ctx, decision.ClusterID)
		if err != nil {
			s.logger.Warn("failed to find Slack thread for cluster",
				"cluster_id", decision.ClusterID, "error", err)
		}
	}

	blocks := BuildReviewResolvedMessage(record)
	if err := s.client.PostMessage(ctx, blocks, threadTS, 5*time.Second); err != nil {
		s.logger.Error("failed to send review-resolved notification",
			"decision_id", decision.ID, "state", record.State, "error", err)
	}
}
