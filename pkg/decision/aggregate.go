package decision

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/strands-sre/strands/pkg/models"
)

// ModelVersion is stamped on every DecisionCandidate for auditability.
// Bumped when the aggregation algorithm's semantics change.
const ModelVersion = "decision-engine-v1"

var dataLossKeywords = []string{"data loss", "data-loss", "corrupt", "unrecoverable", "irreversible"}
var resourceExhaustionKeywords = []string{"oom", "out of memory", "memory exhaustion", "cpu exhaustion", "cpu throttl", "out-of-memory"}
var restartLoopKeywords = []string{"restart loop", "crashloop", "crash loop", "restarting repeatedly"}
var latencyKeywords = []string{"latency", "slow response", "p99", "p95 latency"}
var stableTrendKeywords = []string{"stable", "no anomaly", "within normal bounds"}

func containsAny(haystack string, needles []string) bool {
	h := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(h, n) {
			return true
		}
	}
	return false
}

// textOf concatenates a specialist result's hypothesis, evidence
// descriptions and suggested actions into one lowercase-searchable blob for
// the keyword-based risk rules.
func textOf(results []models.SpecialistResult) string {
	var b strings.Builder
	for _, r := range results {
		b.WriteString(r.Hypothesis)
		b.WriteString(" ")
		for _, e := range r.Evidence {
			b.WriteString(e.Description)
			b.WriteString(" ")
		}
		for _, a := range r.SuggestedActions {
			b.WriteString(a)
			b.WriteString(" ")
		}
	}
	return b.String()
}

// Options configures one Aggregate call.
type Options struct {
	Weights        WeightMatrix
	Policy         ThresholdPolicy
	DefaultAutomation models.AutomationLevel
	ClusterID      string
	CorrelationConflicting bool // reserved for future correlation-conflict wiring
}

// DefaultOptions returns the default aggregation configuration.
func DefaultOptions() Options {
	return Options{
		Weights:           DefaultWeightMatrix(),
		Policy:            PolicyBalanced,
		DefaultAutomation: models.AutomationFull,
	}
}

// Aggregate fuses specialist results into one DecisionCandidate:
// per-specialist quality score, weighted confidence, hypothesis
// selection/conflict flag, risk grading, automation downgrade,
// threshold-policy gating, and version stamping.
// degraded must be the swarm's INVESTIGATION_DEGRADED verdict (zero
// specialists succeeded); a degraded investigation still emits a decision
// but with confidence penalised and automation forced to MANUAL.
func Aggregate(cluster models.AlertCluster, results []models.SpecialistResult, degraded bool, opts Options) models.DecisionCandidate {
	sorted := append([]models.SpecialistResult(nil), results...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SpecialistID < sorted[j].SpecialistID })

	confidence, consensus := weightedConfidence(sorted, opts.Weights)
	hypothesis, conflict, evidence := selectHypothesis(sorted)
	if conflict {
		confidence *= 0.85
	}

	risk := gradeRisk(cluster, sorted)
	automation := downgradeAutomation(opts.DefaultAutomation, risk)
	if degraded {
		automation = models.AutomationManual
		confidence = clamp01(confidence * 0.5)
	}

	thr := thresholdsFor(opts.Policy)
	var decisionType models.DecisionType
	switch {
	case confidence < thr.Confidence || consensus < thr.Consensus:
		decisionType = models.DecisionEscalate
	case automation == models.AutomationFull:
		decisionType = models.DecisionAutoApprove
	default:
		decisionType = models.DecisionRequiresApproval
	}

	var actions []string
	for _, r := range sorted {
		actions = append(actions, r.SuggestedActions...)
	}

	return models.DecisionCandidate{
		ID:                  auditTrailID(cluster.ID, sorted),
		ClusterID:           cluster.ID,
		Hypothesis:          hypothesis,
		Confidence:          clamp01(confidence),
		Conflict:            conflict,
		Risk:                risk,
		Automation:          automation,
		DecisionType:        decisionType,
		SuggestedActions:    dedupe(actions),
		SupportingEvidence:  evidence,
		ModelVersion:        ModelVersion,
		WeightMatrixVersion: opts.Weights.Version,
		AuditTrailID:        auditTrailID(cluster.ID, sorted),
	}
}

// weightedConfidence implements step 2: conf = Σ(w_i·q_i) / Σw_i over all
// registered weights, and a consensus measure: the fraction of configured
// weight contributed by specialists that actually succeeded. This
// weight-participation-ratio reading is the resolution recorded in
// DESIGN.md's Open Question on the consensus formula.
func weightedConfidence(results []models.SpecialistResult, wm WeightMatrix) (confidence, consensus float64) {
	var weightedSum, totalWeight, successWeight float64
	for _, r := range results {
		w := wm.weightFor(r.SpecialistID)
		totalWeight += w
		if r.Status == models.CompletionSuccess {
			weightedSum += w * r.QualityScore()
			successWeight += w
		}
	}
	if totalWeight == 0 {
		return 0, 0
	}
	confidence = weightedSum / totalWeight
	consensus = successWeight / totalWeight
	return confidence, consensus
}

// selectHypothesis implements step 3.
func selectHypothesis(results []models.SpecialistResult) (hypothesis string, conflict bool, evidence []models.EvidenceItem) {
	type scored struct {
		result models.SpecialistResult
		q      float64
	}
	var candidates []scored
	for _, r := range results {
		if r.Status == models.CompletionSuccess {
			candidates = append(candidates, scored{result: r, q: r.QualityScore()})
		}
	}
	if len(candidates) == 0 {
		return "", false, nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].q > candidates[j].q })

	if len(candidates) == 1 || candidates[0].q >= 0.8 && candidates[0].q > candidates[1].q {
		return candidates[0].result.Hypothesis, false, candidates[0].result.Evidence
	}

	top := candidates[0]
	second := candidates[1]
	consolidated := top.result.Hypothesis + " | " + second.result.Hypothesis
	ev := append(append([]models.EvidenceItem(nil), top.result.Evidence...), second.result.Evidence...)
	return consolidated, true, ev
}

// gradeRisk implements step 4's rule-based risk grading.
func gradeRisk(cluster models.AlertCluster, results []models.SpecialistResult) models.RiskLevel {
	severity := cluster.HighestSeverity()
	text := textOf(results)

	switch {
	case severity == models.SeverityCritical && containsAny(text, dataLossKeywords):
		return models.RiskCritical
	case severity == models.SeverityCritical,
		containsAny(text, resourceExhaustionKeywords),
		containsAny(text, restartLoopKeywords):
		return models.RiskHigh
	case severity == models.SeverityHigh, containsAny(text, latencyKeywords) && !containsAny(text, resourceExhaustionKeywords):
		return models.RiskMedium
	case severity == models.SeverityWarning && containsAny(text, stableTrendKeywords):
		return models.RiskLow
	default:
		return models.RiskMinimal
	}
}

// downgradeAutomation implements step 5: the policy default is forcibly
// downgraded based on the graded risk, applied after any upstream
// suggestion (invariant #1).
func downgradeAutomation(policyDefault models.AutomationLevel, risk models.RiskLevel) models.AutomationLevel {
	max := models.MaxAutomationForRisk(risk)
	return models.ClampAutomation(policyDefault, max)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// auditTrailID derives a stable id for the decision from the cluster id and
// the sorted specialist ids/hypotheses contributing to it, so the same
// investigation input always yields the same audit trail reference
// (needed for replay comparison in C10).
func auditTrailID(clusterID string, results []models.SpecialistResult) string {
	h := sha256.New()
	h.Write([]byte(clusterID))
	for _, r := range results {
		h.Write([]byte("|"))
		h.Write([]byte(r.SpecialistID))
		h.Write([]byte(":"))
		h.Write([]byte(r.Status))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
