// Package incident implements C11: the steady-state controller tick that
// sequences every other component end-to-end — ingest (C3), investigate
// (C5), fuse (C6), recommend (C7), persist, and gate on human review (C9) —
// without ever blocking the tick on a reviewer's reply.
package incident

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/strands-sre/strands/pkg/adapters"
	"github.com/strands-sre/strands/pkg/alerts"
	"github.com/strands-sre/strands/pkg/audit"
	"github.com/strands-sre/strands/pkg/decision"
	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/recommender"
	"github.com/strands-sre/strands/pkg/review"
	"github.com/strands-sre/strands/pkg/strandserr"
	"github.com/strands-sre/strands/pkg/swarm"
)

// DefaultTickInterval is the default 30s steady-state tick
// period.
const DefaultTickInterval = 30 * time.Second

// ControllerIdentity is stamped as a review record's SystemIdentity: the
// identity that produced the decision, so that identity can never also be
// the one reviewing it.
const ControllerIdentity = "strands-controller"

// AutoApproveReviewer is the distinct actor identity the controller uses
// when it auto-approves a FULL-automation decision itself. It must differ from ControllerIdentity or review.Service would
// reject it as KindInvalidReviewer.
const AutoApproveReviewer = "strands-controller/auto-approve-policy"

// Clock lets tests substitute a deterministic now()/deadline source.
type Clock func() time.Time

// Controller owns one tick's worth of sequencing across every component.
// It holds no cross-tick mutable state beyond what its dependencies
// already own.
type Controller struct {
	collector  *alerts.Collector
	normalizer *alerts.Normalizer
	clusterer  *alerts.Clusterer
	investigator *swarm.Runner
	decisionOpts decision.Options
	recommender  *recommender.Recommender
	reviews      *review.Service
	graph        adapters.GraphStore
	auditLog     *audit.Logger

	tickBudget time.Duration
	now        Clock
	logger     *slog.Logger
}

// Config bundles a Controller's collaborators, all already built by the
// package that wires the process together (cmd/strands).
type Config struct {
	Collector    *alerts.Collector
	Normalizer   *alerts.Normalizer
	Clusterer    *alerts.Clusterer
	Investigator *swarm.Runner
	DecisionOpts decision.Options
	Recommender  *recommender.Recommender
	Reviews      *review.Service
	Graph        adapters.GraphStore
	AuditLog     *audit.Logger
	TickBudget   time.Duration
}

// New builds a Controller. A zero TickBudget uses DefaultTickInterval.
func New(cfg Config) *Controller {
	budget := cfg.TickBudget
	if budget <= 0 {
		budget = DefaultTickInterval
	}
	return &Controller{
		collector:    cfg.Collector,
		normalizer:   cfg.Normalizer,
		clusterer:    cfg.Clusterer,
		investigator: cfg.Investigator,
		decisionOpts: cfg.DecisionOpts,
		recommender:  cfg.Recommender,
		reviews:      cfg.Reviews,
		graph:        cfg.Graph,
		auditLog:     cfg.AuditLog,
		tickBudget:   budget,
		now:          time.Now,
		logger:       slog.Default().With("component", "incident-controller"),
	}
}

// Run drives the steady-state loop on a ticker of the given interval (a
// zero interval uses DefaultTickInterval), following this codebase's
// pkg/cleanup.Service.run shape: run once immediately, then on every tick,
// until ctx is cancelled. Each tick's errors are logged, never fatal to
// the loop.
func (c *Controller) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTickInterval
	}

	c.runTick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runTick(ctx)
		}
	}
}

func (c *Controller) runTick(ctx context.Context) {
	if _, err := c.Tick(ctx); err != nil {
		c.logger.Warn("tick skipped", "error", err)
	}
}

// ClusterOutcome is one cluster's result from a single Tick call, returned
// for observability (tests, CLI `run` verbose output); the controller
// itself never blocks on a caller reading these.
type ClusterOutcome struct {
	Cluster       models.AlertCluster
	Decision      models.DecisionCandidate
	Recommendation recommender.Recommendation
	Review        models.ReviewRecord
	AutoApproved  bool
}

// Tick runs one full steady-state iteration. It
// never returns an error for a single cluster's failure — each cluster is
// processed independently and a failure is logged and skipped so one bad
// cluster cannot stall the rest of the tick. Tick itself only returns an
// error when C3 collection fails entirely (NO_PROVIDER_AVAILABLE), in
// which case the tick is skipped outright.
func (c *Controller) Tick(ctx context.Context) ([]ClusterOutcome, error) {
	start := c.now()

	raw, err := c.collector.Poll(ctx)
	if err != nil {
		kind, _ := strandserr.KindOf(err)
		c.logTickSkipped(kind)
		return nil, err
	}

	normalised := c.normalizer.Normalize(raw)
	clusters := c.clusterer.Cluster(normalised)

	outcomes := make([]ClusterOutcome, 0, len(clusters))
	for _, cluster := range clusters {
		elapsed := c.now().Sub(start)
		deadline := c.tickBudget - elapsed
		if deadline <= 0 {
			deadline = time.Millisecond // still attempt, let swarm's own timeout fire immediately
		}

		outcome, err := c.processCluster(ctx, cluster, deadline)
		if err != nil {
			c.logger.Error("cluster processing failed", "cluster_id", cluster.ID, "error", err)
			continue
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

// processCluster implements step 2 a-e for one cluster.
func (c *Controller) processCluster(ctx context.Context, cluster models.AlertCluster, deadline time.Duration) (ClusterOutcome, error) {
	investigateCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	investigation, err := c.investigator.Investigate(investigateCtx, cluster)
	if err != nil {
		return ClusterOutcome{}, fmt.Errorf("incident: investigate %s: %w", cluster.ID, err)
	}

	opts := c.decisionOpts
	opts.ClusterID = cluster.ID
	candidate := decision.Aggregate(cluster, investigation.Results, investigation.Degraded, opts)

	patternType := dominantPatternType(investigation.Results)
	rec, err := c.recommender.Recommend(ctx, candidate, patternType, cluster.CanonicalService)
	if err != nil {
		return ClusterOutcome{}, fmt.Errorf("incident: recommend %s: %w", cluster.ID, err)
	}

	if err := c.persist(ctx, cluster, candidate); err != nil {
		return ClusterOutcome{}, fmt.Errorf("incident: persist %s: %w", cluster.ID, err)
	}
	c.auditLog.Decision(audit.EventDecisionRecommended, cluster.ID, candidate.ID, map[string]any{
		"risk":          candidate.Risk,
		"automation":    candidate.Automation,
		"decision_type": candidate.DecisionType,
	})

	reviewRecord, err := c.reviews.Open(ctx, candidate, rec.Playbook.ID, ControllerIdentity)
	if err != nil {
		return ClusterOutcome{}, fmt.Errorf("incident: open review %s: %w", candidate.ID, err)
	}
	if err := c.persistReview(ctx, reviewRecord); err != nil {
		return ClusterOutcome{}, fmt.Errorf("incident: persist review %s: %w", reviewRecord.ID, err)
	}
	c.auditLog.Decision(audit.EventReviewOpened, cluster.ID, candidate.ID, nil)

	outcome := ClusterOutcome{
		Cluster:        cluster,
		Decision:       candidate,
		Recommendation: rec,
		Review:         reviewRecord,
	}

	// Step 2e: short-circuit C9 only when the playbook is ready to run
	// unattended and the decision itself cleared the FULL-automation gate.
	if rec.Status == recommender.StatusReady && candidate.Automation == models.AutomationFull && candidate.DecisionType == models.DecisionAutoApprove {
		playbookID := rec.Playbook.ID
		result, err := c.reviews.Approve(ctx, candidate.ID, AutoApproveReviewer, "auto-approved: FULL automation within policy")
		if err != nil {
			c.logger.Error("auto-approve failed, falling back to human review", "decision_id", candidate.ID, "error", err)
			return outcome, nil
		}
		outcome.Review = result.Record
		outcome.AutoApproved = true
		if result.ExecuteRequested {
			c.auditLog.Decision(audit.EventExecuteRequested, cluster.ID, candidate.ID, map[string]any{"playbook_id": playbookID})
		}
	}

	return outcome, nil
}

// persist writes the cluster and decision into the graph store, with a
// DECIDED_FROM relation from the decision to the cluster it was raised
// from.
func (c *Controller) persist(ctx context.Context, cluster models.AlertCluster, candidate models.DecisionCandidate) error {
	clusterProps, err := toProperties(cluster)
	if err != nil {
		return err
	}
	if err := c.graph.UpsertNode(ctx, adapters.GraphNode{ID: cluster.ID, Label: "AlertCluster", Properties: clusterProps}); err != nil {
		return err
	}

	decisionProps, err := toProperties(candidate)
	if err != nil {
		return err
	}
	if err := c.graph.UpsertNode(ctx, adapters.GraphNode{ID: candidate.ID, Label: "DecisionCandidate", Properties: decisionProps}); err != nil {
		return err
	}

	return c.graph.UpsertRelation(ctx, adapters.GraphRelation{FromID: candidate.ID, Type: "DECIDED_FROM", ToID: cluster.ID})
}

// persistReview writes the review record node and its REVIEWED_BY relation
// to the decision it resolves.
func (c *Controller) persistReview(ctx context.Context, record models.ReviewRecord) error {
	props, err := toProperties(record)
	if err != nil {
		return err
	}
	if err := c.graph.UpsertNode(ctx, adapters.GraphNode{ID: record.ID, Label: "ReviewRecord", Properties: props}); err != nil {
		return err
	}
	return c.graph.UpsertRelation(ctx, adapters.GraphRelation{FromID: record.ID, Type: "REVIEWED_BY", ToID: record.DecisionID})
}

func (c *Controller) logTickSkipped(kind strandserr.Kind) {
	if err := c.auditLog.TickSkipped("", string(kind)); err != nil {
		c.logger.Error("failed to write tick-skipped audit entry", "error", err)
	}
}

// toProperties round-trips v through JSON into a generic map so it can be
// stored as a GraphNode's arbitrary JSON-able Properties.
func toProperties(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("incident: marshal properties: %w", err)
	}
	var props map[string]any
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("incident: unmarshal properties: %w", err)
	}
	return props, nil
}

// dominantPatternType resolves a cluster's investigation results to the
// playbook correlation key recommender.Recommend needs. There is no
// canonical mapping from an investigation's evidence to a
// models.CorrelationType; this resolves that by the most common evidence
// kind across all successful specialist results (documented as an Open
// Question resolution in DESIGN.md).
func dominantPatternType(results []models.SpecialistResult) models.CorrelationType {
	counts := map[models.EvidenceKind]int{}
	for _, r := range results {
		for _, e := range r.Evidence {
			counts[e.Kind]++
		}
	}
	best := models.EvidenceKind("")
	bestCount := 0
	// Deterministic tie-break: iterate evidence kinds in a fixed order
	// rather than ranging over the map directly.
	order := []models.EvidenceKind{
		models.EvidenceMetric, models.EvidenceLog, models.EvidenceTrace,
		models.EvidenceEvent, models.EvidenceGraphRelation, models.EvidenceDocument,
		models.EvidenceSimilarIncident,
	}
	for _, k := range order {
		if counts[k] > bestCount {
			best = k
			bestCount = counts[k]
		}
	}
	switch best {
	case models.EvidenceMetric:
		return models.CorrelationMetricMetric
	case models.EvidenceLog:
		return models.CorrelationLogMetric
	case models.EvidenceTrace:
		return models.CorrelationTraceEvent
	case models.EvidenceEvent:
		return models.CorrelationEventSequence
	default:
		return models.CorrelationTemporal
	}
}
