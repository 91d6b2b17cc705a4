// Package replay implements C10: deterministic re-execution of recorded
// alerts against a frozen configuration snapshot, for validation, training,
// simulation or audit.
package replay

import (
	"context"
	"fmt"

	"github.com/strands-sre/strands/pkg/alerts"
	"github.com/strands-sre/strands/pkg/decision"
	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/swarm"
)

// seedKey is the context key Engine.Replay stamps its configured seed
// under, so any code reached transitively (adapter resilience policies,
// specialists) can recover the single seeded source the determinism
// requirement demands.
type seedKey struct{}

// WithSeed attaches seed to ctx.
func WithSeed(ctx context.Context, seed uint64) context.Context {
	return context.WithValue(ctx, seedKey{}, seed)
}

// SeedFromContext recovers a seed attached by WithSeed.
func SeedFromContext(ctx context.Context) (uint64, bool) {
	seed, ok := ctx.Value(seedKey{}).(uint64)
	return seed, ok
}

// EventResult is one replayed event's outcome.
type EventResult struct {
	Event            models.ReplayEvent
	ReplayedDecision models.DecisionCandidate
	Classification   models.ReplayClassification
}

// Aggregate is the summary across every event in one Replay call.
type Aggregate struct {
	Mode                      models.ReplayMode
	Results                   []EventResult
	AlignmentRate             float64
	ConfidenceBucketPrecision map[models.RiskLevel]float64
	UnsafeBypassCount         int
	// Passed is false whenever UnsafeBypassCount > 0.
	Passed bool
}

// Engine re-runs C3(partial)->C11's decision stage for each historical
// event under a frozen decision.Options snapshot: one Investigate/Aggregate
// call per event, no shared mutable state across events.
type Engine struct {
	normalizer   *alerts.Normalizer
	clusterer    *alerts.Clusterer
	investigator *swarm.Runner
	decisionOpts decision.Options
	seed         uint64
}

// NewEngine builds a replay Engine. decisionOpts is the frozen
// configuration snapshot (model version via decision.ModelVersion, weight
// matrix, threshold policy, default automation, and playbook versions as
// captured by the caller at original-decision time). seed pins every
// pseudo-random draw reachable from Replay.
func NewEngine(normalizer *alerts.Normalizer, clusterer *alerts.Clusterer, investigator *swarm.Runner, decisionOpts decision.Options, seed uint64) *Engine {
	return &Engine{
		normalizer:   normalizer,
		clusterer:    clusterer,
		investigator: investigator,
		decisionOpts: decisionOpts,
		seed:         seed,
	}
}

// Replay re-runs every event's alert through investigation and decision
// fusion, classifies each against its recorded original decision, and
// aggregates the results. Events are replayed in the order
// given; aggregation itself has no inter-event ordering dependency, so
// callers may freely parallelise construction of the events slice.
func (e *Engine) Replay(ctx context.Context, events []models.ReplayEvent, mode models.ReplayMode) (Aggregate, error) {
	ctx = WithSeed(ctx, e.seed)

	results := make([]EventResult, 0, len(events))
	for i, ev := range events {
		result, err := e.replayOne(ctx, ev)
		if err != nil {
			return Aggregate{}, fmt.Errorf("replay: event %d: %w", i, err)
		}
		results = append(results, result)
	}

	return summarize(mode, results), nil
}

func (e *Engine) replayOne(ctx context.Context, ev models.ReplayEvent) (EventResult, error) {
	cluster, err := e.rebuildCluster(ev)
	if err != nil {
		return EventResult{}, err
	}

	investigation, err := e.investigator.Investigate(ctx, cluster)
	if err != nil {
		return EventResult{}, fmt.Errorf("investigate: %w", err)
	}

	opts := e.decisionOpts
	opts.ClusterID = cluster.ID
	replayed := decision.Aggregate(cluster, investigation.Results, investigation.Degraded, opts)

	return EventResult{
		Event:            ev,
		ReplayedDecision: replayed,
		Classification:   classify(ev.OriginalDecision, replayed),
	}, nil
}

// rebuildCluster reconstructs the single-alert AlertCluster the original
// decision was raised from, since a ReplayEvent records one alert, not a
// raw collector feed.
func (e *Engine) rebuildCluster(ev models.ReplayEvent) (models.AlertCluster, error) {
	normalised := e.normalizer.Normalize([]models.Alert{ev.OriginalAlert})
	if len(normalised) == 0 {
		return models.AlertCluster{}, fmt.Errorf("replay: original alert normalised to nothing (dedup window collision)")
	}
	clusters := e.clusterer.Cluster(normalised)
	if len(clusters) == 0 {
		return models.AlertCluster{}, fmt.Errorf("replay: original alert produced no cluster")
	}
	return clusters[0], nil
}

// classify performs a three-way comparison between an original decision and
// its replayed counterpart: match,
// divergence-safe (same risk bucket, different gate outcome), or
// divergence-unsafe (a high-risk original that became auto-approvable in
// replay, or an auto-approved original that became high-risk in replay).
func classify(original, replayed models.DecisionCandidate) models.ReplayClassification {
	if isUnsafeDivergence(original, replayed) {
		return models.ReplayDivergenceUnsafe
	}
	if original.Risk == replayed.Risk && original.DecisionType == replayed.DecisionType {
		return models.ReplayMatch
	}
	return models.ReplayDivergenceSafe
}

func isHighRisk(r models.RiskLevel) bool {
	return r == models.RiskHigh || r == models.RiskCritical
}

func isAutoApprove(d models.DecisionCandidate) bool {
	return d.DecisionType == models.DecisionAutoApprove
}

func isUnsafeDivergence(original, replayed models.DecisionCandidate) bool {
	becameAutoApprove := isHighRisk(original.Risk) && !isAutoApprove(original) && isAutoApprove(replayed)
	becameHighRisk := isAutoApprove(original) && !isHighRisk(original.Risk) && isHighRisk(replayed.Risk) && !isAutoApprove(replayed)
	return becameAutoApprove || becameHighRisk
}

// summarize computes the alignment rate (fraction classified MATCH),
// per-risk-bucket precision (fraction of replayed decisions landing in the
// same risk bucket as their original, among events whose original fell in
// that bucket), and the unsafe-bypass count, which a passing replay run
// requires to be zero.
func summarize(mode models.ReplayMode, results []EventResult) Aggregate {
	agg := Aggregate{Mode: mode, Results: results, ConfidenceBucketPrecision: map[models.RiskLevel]float64{}}
	if len(results) == 0 {
		agg.Passed = true
		return agg
	}

	matches := 0
	bucketTotal := map[models.RiskLevel]int{}
	bucketAligned := map[models.RiskLevel]int{}

	for _, r := range results {
		if r.Classification == models.ReplayMatch {
			matches++
		}
		if r.Classification == models.ReplayDivergenceUnsafe {
			agg.UnsafeBypassCount++
		}

		bucket := r.Event.OriginalDecision.Risk
		bucketTotal[bucket]++
		if r.ReplayedDecision.Risk == bucket {
			bucketAligned[bucket]++
		}
	}

	agg.AlignmentRate = float64(matches) / float64(len(results))
	for bucket, total := range bucketTotal {
		agg.ConfidenceBucketPrecision[bucket] = float64(bucketAligned[bucket]) / float64(total)
	}
	agg.Passed = agg.UnsafeBypassCount == 0

	return agg
}
