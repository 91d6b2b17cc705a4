// Package specialists provides the five concrete swarm.Specialist
// implementations by role (metrics analyst, log
// inspector, embedding similarity, graph context, correlator), each
// wrapping exactly one pkg/adapters contract the way this codebase's
// sub-agents each wrap one MCP tool.
package specialists

import (
	"context"
	"fmt"
	"time"

	"github.com/strands-sre/strands/pkg/adapters"
	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/resilience"
)

// MetricsAnalyst queries the cluster's canonical service error-rate and
// asserts a hypothesis from its current value, guarding its own adapter
// call individually via resilience.Policy.
type MetricsAnalyst struct {
	source adapters.MetricsSource
	policy *resilience.Policy
}

func NewMetricsAnalyst(source adapters.MetricsSource, policy *resilience.Policy) *MetricsAnalyst {
	return &MetricsAnalyst{source: source, policy: policy}
}

func (m *MetricsAnalyst) ID() string { return "metrics" }

func (m *MetricsAnalyst) Investigate(ctx context.Context, cluster models.AlertCluster) models.SpecialistResult {
	start := time.Now()
	expr := fmt.Sprintf(`rate(http_requests_total{service=%q,code=~"5.."}[5m])`, cluster.CanonicalService)

	at := time.Now()
	var value float64
	err := m.policy.Execute(ctx, func(ctx context.Context) error {
		v, err := m.source.QueryInstant(ctx, expr, at)
		value = v
		return err
	})
	if err != nil {
		return errorResult(m.ID(), err, start)
	}

	quality := 0.5
	if value > 0 {
		quality = 0.85
	}
	return models.SpecialistResult{
		SpecialistID:   m.ID(),
		Hypothesis:     fmt.Sprintf("%s is returning a non-zero 5xx rate (%.4f req/s)", cluster.CanonicalService, value),
		BaseConfidence: confidenceFromRate(value),
		Evidence: []models.EvidenceItem{
			evidenceOf(models.EvidenceMetric, "prometheus", fmt.Sprintf("5xx rate for %s", cluster.CanonicalService), quality, at, &value),
		},
		SuggestedActions: []string{"inspect recent deploys to " + cluster.CanonicalService, "check upstream dependency error rates"},
		Status:   models.CompletionSuccess,
		Duration: time.Since(start),
	}
}

// confidenceFromRate maps an error rate to a base confidence in [0,1]: no
// errors is low-confidence-for-an-error-hypothesis, a clearly elevated rate
// is high confidence.
func confidenceFromRate(rate float64) float64 {
	switch {
	case rate <= 0:
		return 0.2
	case rate < 0.1:
		return 0.6
	default:
		return 0.9
	}
}
