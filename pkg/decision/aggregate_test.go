package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/strands-sre/strands/pkg/models"
)

func withEvidence(r models.SpecialistResult, quality float64) models.SpecialistResult {
	r.Evidence = []models.EvidenceItem{{Kind: models.EvidenceMetric, Quality: quality, Timestamp: time.Now()}}
	return r
}

// S3 — Automation downgrade: risk=CRITICAL, initial automation=FULL ⇒ final
// automation=MANUAL, confidence unchanged.
func TestAggregate_AutomationDowngrade_S3(t *testing.T) {
	cluster := models.AlertCluster{
		ID: "c1",
		Members: []models.NormalisedAlert{
			{CanonicalSeverity: models.SeverityCritical},
		},
	}
	results := []models.SpecialistResult{
		withEvidence(models.SpecialistResult{
			SpecialistID:   "metrics",
			Status:         models.CompletionSuccess,
			BaseConfidence: 0.9,
			Hypothesis:     "data loss detected in volume snapshot",
		}, 1.0),
	}
	opts := DefaultOptions()
	opts.DefaultAutomation = models.AutomationFull

	dc := Aggregate(cluster, results, false, opts)

	require.Equal(t, models.RiskCritical, dc.Risk)
	require.Equal(t, models.AutomationManual, dc.Automation)
}

// S4 — Swarm partial failure, at the decision layer: confidence computed
// over the successful specialists' weighted contribution, conflict=false
// since one specialist's quality score clearly dominates.
func TestAggregate_PartialFailure_S4(t *testing.T) {
	cluster := models.AlertCluster{ID: "c2"}
	results := []models.SpecialistResult{
		withEvidence(models.SpecialistResult{SpecialistID: "metrics", Status: models.CompletionSuccess, BaseConfidence: 0.9, Hypothesis: "memory pressure on node pool"}, 1.0),
		withEvidence(models.SpecialistResult{SpecialistID: "logs", Status: models.CompletionSuccess, BaseConfidence: 0.8, Hypothesis: "elevated error rate"}, 0.5),
		{SpecialistID: "graph", Status: models.CompletionError, ErrorKind: "UPSTREAM_UNAVAILABLE"},
		{SpecialistID: "embeddings", Status: models.CompletionTimeout},
		{SpecialistID: "correlator", Status: models.CompletionTimeout},
	}

	dc := Aggregate(cluster, results, false, DefaultOptions())

	require.False(t, dc.Conflict)
	require.Equal(t, "memory pressure on node pool", dc.Hypothesis)
	require.Greater(t, dc.Confidence, 0.0)
	require.LessOrEqual(t, dc.Confidence, 1.0)
}

// S5 — Swarm total failure: degraded investigation ⇒ automation=MANUAL,
// confidence ≤ 0.3.
func TestAggregate_TotalFailure_S5(t *testing.T) {
	cluster := models.AlertCluster{ID: "c3"}
	results := []models.SpecialistResult{
		{SpecialistID: "metrics", Status: models.CompletionTimeout},
		{SpecialistID: "logs", Status: models.CompletionTimeout},
		{SpecialistID: "graph", Status: models.CompletionTimeout},
		{SpecialistID: "embeddings", Status: models.CompletionTimeout},
		{SpecialistID: "correlator", Status: models.CompletionTimeout},
	}

	dc := Aggregate(cluster, results, true, DefaultOptions())

	require.Equal(t, models.AutomationManual, dc.Automation)
	require.LessOrEqual(t, dc.Confidence, 0.3)
}

func TestAggregate_ConflictAppliesPenaltyAndConsolidatesHypotheses(t *testing.T) {
	cluster := models.AlertCluster{ID: "c4"}
	results := []models.SpecialistResult{
		withEvidence(models.SpecialistResult{SpecialistID: "metrics", Status: models.CompletionSuccess, BaseConfidence: 0.6, Hypothesis: "network partition"}, 0.6),
		withEvidence(models.SpecialistResult{SpecialistID: "logs", Status: models.CompletionSuccess, BaseConfidence: 0.55, Hypothesis: "dependency outage"}, 0.6),
	}

	dc := Aggregate(cluster, results, false, DefaultOptions())

	require.True(t, dc.Conflict)
	require.Contains(t, dc.Hypothesis, "network partition")
	require.Contains(t, dc.Hypothesis, "dependency outage")
}

func TestAggregate_ThresholdPolicyGatesDecisionType(t *testing.T) {
	cluster := models.AlertCluster{ID: "c5"}
	results := []models.SpecialistResult{
		withEvidence(models.SpecialistResult{SpecialistID: "metrics", Status: models.CompletionSuccess, BaseConfidence: 0.9, Hypothesis: "broad agreement across signals"}, 1.0),
		withEvidence(models.SpecialistResult{SpecialistID: "logs", Status: models.CompletionSuccess, BaseConfidence: 0.8, Hypothesis: "broad agreement across signals"}, 1.0),
		withEvidence(models.SpecialistResult{SpecialistID: "graph", Status: models.CompletionSuccess, BaseConfidence: 0.7, Hypothesis: "broad agreement across signals"}, 1.0),
		withEvidence(models.SpecialistResult{SpecialistID: "embeddings", Status: models.CompletionSuccess, BaseConfidence: 0.6, Hypothesis: "broad agreement across signals"}, 1.0),
		{SpecialistID: "correlator", Status: models.CompletionTimeout},
	}

	opts := DefaultOptions()
	opts.Policy = PolicyStrict
	dc := Aggregate(cluster, results, false, opts)
	// confidence ~0.73 and consensus 0.9 both fall short of STRICT's 0.90/0.95.
	require.Equal(t, models.DecisionEscalate, dc.DecisionType)

	opts.Policy = PolicyPermissive
	dc = Aggregate(cluster, results, false, opts)
	require.NotEqual(t, models.DecisionEscalate, dc.DecisionType)
}

func TestGradeRisk_DataLossUnderCriticalSeverityIsCritical(t *testing.T) {
	cluster := models.AlertCluster{Members: []models.NormalisedAlert{{CanonicalSeverity: models.SeverityCritical}}}
	results := []models.SpecialistResult{{Hypothesis: "irreversible data loss on primary volume"}}
	require.Equal(t, models.RiskCritical, gradeRisk(cluster, results))
}

func TestGradeRisk_RestartLoopIsHigh(t *testing.T) {
	cluster := models.AlertCluster{Members: []models.NormalisedAlert{{CanonicalSeverity: models.SeverityWarning}}}
	results := []models.SpecialistResult{{Hypothesis: "pod stuck in a crashloop restarting repeatedly"}}
	require.Equal(t, models.RiskHigh, gradeRisk(cluster, results))
}

func TestGradeRisk_StableWarningIsLow(t *testing.T) {
	cluster := models.AlertCluster{Members: []models.NormalisedAlert{{CanonicalSeverity: models.SeverityWarning}}}
	results := []models.SpecialistResult{{Hypothesis: "metrics stable, no anomaly detected"}}
	require.Equal(t, models.RiskLow, gradeRisk(cluster, results))
}
