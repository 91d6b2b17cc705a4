// Package recommender implements C7: playbook key resolution against C8,
// adaptive-score ranking of candidates, and LLM-drafted fallback playbook
// generation via the TextGenerator adapter.
package recommender

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/strands-sre/strands/pkg/adapters"
	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/playbook"
	"github.com/strands-sre/strands/pkg/resilience"
)

// Source identifies where a recommendation's content came from.
type Source string

const (
	SourceKnown    Source = "KNOWN"
	SourceGenerated Source = "GENERATED"
	SourceFallback Source = "FALLBACK"
)

// RecommendationStatus is the readiness of a returned recommendation.
type RecommendationStatus string

const (
	StatusReady            RecommendationStatus = "READY"
	StatusRequiresApproval  RecommendationStatus = "REQUIRES_APPROVAL"
)

// Recommendation is the result of one Recommend call.
type Recommendation struct {
	Source   Source
	Status   RecommendationStatus
	Playbook models.Playbook // for FALLBACK, a synthetic, unpersisted playbook
}

// Recommender ties C8's playbook repository to the text-generator adapter.
type Recommender struct {
	repo      playbook.Repository
	generator adapters.TextGenerator
	policy    *resilience.Policy
}

// New builds a Recommender. A nil policy creates a default-configured one
// scoped to the "text-generator" adapter name.
func New(repo playbook.Repository, generator adapters.TextGenerator, policy *resilience.Policy) *Recommender {
	if policy == nil {
		policy = resilience.NewPolicy("text-generator", resilience.DefaultBreakerConfig(), resilience.DefaultRetryConfig(), resilience.DefaultTimeout)
	}
	return &Recommender{repo: repo, generator: generator, policy: policy}
}

// Recommend resolves a decision to a playbook recommendation, preferring a
// known ACTIVE playbook over generating a new one.
func (r *Recommender) Recommend(ctx context.Context, decision models.DecisionCandidate, patternType models.CorrelationType, servicePattern string) (Recommendation, error) {
	candidates, err := r.repo.FindActiveByKey(ctx, patternType, servicePattern)
	if err != nil {
		return Recommendation{}, err
	}
	if best, ok := pickBest(candidates, decision.Confidence); ok {
		return Recommendation{Source: SourceKnown, Status: StatusReady, Playbook: best}, nil
	}

	draft, genErr := r.draft(ctx, decision)
	if genErr != nil {
		return Recommendation{
			Source: SourceFallback,
			Status: StatusRequiresApproval,
			Playbook: models.Playbook{
				Title:            "Fallback: " + decision.Hypothesis,
				Source:           models.SourceHumanWritten,
				Status:           models.StatusDraft,
				PatternType:      patternType,
				ServicePattern:   servicePattern,
				Prerequisites:    nil,
				SuccessCriteria:  nil,
				Steps:            fallbackSteps(decision.SuggestedActions),
				RiskLevel:        decision.Risk,
				AutomationLevel:  models.AutomationManual,
			},
		}, nil
	}

	now := time.Now().UTC()
	generated := models.Playbook{
		ID:              uuid.NewString(),
		Title:           "Generated: " + decision.Hypothesis,
		Description:     draft,
		Source:          models.SourceLLMGenerated,
		Status:          models.StatusPendingReview,
		PatternType:     patternType,
		ServicePattern:  servicePattern,
		RiskLevel:       decision.Risk,
		AutomationLevel: models.AutomationManual,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         models.Version{Major: 1, Minor: 0, Patch: 0},
	}
	if err := r.repo.Create(ctx, generated); err != nil {
		return Recommendation{}, err
	}
	return Recommendation{Source: SourceGenerated, Status: StatusRequiresApproval, Playbook: generated}, nil
}

// draft invokes the text generator, guarded by the resilience policy.
func (r *Recommender) draft(ctx context.Context, decision models.DecisionCandidate) (string, error) {
	var out string
	err := r.policy.Execute(ctx, func(callCtx context.Context) error {
		prompt := buildPrompt(decision)
		text, genErr := r.generator.Generate(callCtx, prompt, adapters.GenerateOptions{MaxTokens: 800, Temperature: 0.2})
		if genErr != nil {
			return genErr
		}
		out = text
		return nil
	})
	return out, err
}

func buildPrompt(decision models.DecisionCandidate) string {
	return "Draft a remediation playbook for: " + decision.Hypothesis
}

// pickBest ranks candidate playbooks by adaptive score, breaking ties by
// most-recent LastExecutedAt.
func pickBest(candidates []models.Playbook, correlationConfidence float64) (models.Playbook, bool) {
	if len(candidates) == 0 {
		return models.Playbook{}, false
	}
	sorted := append([]models.Playbook(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool {
		si := sorted[i].AdaptiveScore(correlationConfidence)
		sj := sorted[j].AdaptiveScore(correlationConfidence)
		if si != sj {
			return si > sj
		}
		return sorted[i].Stats.LastExecutedAt.After(sorted[j].Stats.LastExecutedAt)
	})
	return sorted[0], true
}

func fallbackSteps(actions []string) []models.PlaybookStep {
	steps := make([]models.PlaybookStep, 0, len(actions))
	for i, a := range actions {
		steps = append(steps, models.PlaybookStep{Index: i + 1, Title: a, Description: a})
	}
	return steps
}
