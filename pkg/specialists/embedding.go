package specialists

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/strands-sre/strands/pkg/adapters"
	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/resilience"
)

// similarIncidentMinScore is the floor similarity score EmbeddingSimilarity
// treats as a meaningful match.
const similarIncidentMinScore = 0.75

// EmbeddingSimilarity embeds the cluster's description and searches the
// vector store for similar past incidents.
type EmbeddingSimilarity struct {
	generator adapters.TextGenerator
	vectors   adapters.VectorStore
	policy    *resilience.Policy
	topK      int
}

func NewEmbeddingSimilarity(generator adapters.TextGenerator, vectors adapters.VectorStore, policy *resilience.Policy) *EmbeddingSimilarity {
	return &EmbeddingSimilarity{generator: generator, vectors: vectors, policy: policy, topK: 5}
}

func (e *EmbeddingSimilarity) ID() string { return "embeddings" }

func (e *EmbeddingSimilarity) Investigate(ctx context.Context, cluster models.AlertCluster) models.SpecialistResult {
	start := time.Now()
	query := clusterText(cluster)

	var vector []float64
	if err := e.policy.Execute(ctx, func(ctx context.Context) error {
		v, err := e.generator.Embed(ctx, query)
		vector = v
		return err
	}); err != nil {
		return errorResult(e.ID(), err, start)
	}

	var matches []adapters.ScoredMatch
	if err := e.policy.Execute(ctx, func(ctx context.Context) error {
		m, err := e.vectors.Search(ctx, vector, e.topK, similarIncidentMinScore)
		matches = m
		return err
	}); err != nil {
		return errorResult(e.ID(), err, start)
	}

	evidence := make([]models.EvidenceItem, 0, len(matches))
	for _, m := range matches {
		evidence = append(evidence, evidenceOf(models.EvidenceSimilarIncident, m.ID,
			fmt.Sprintf("similar past incident %s (score %.2f)", m.ID, m.Score), m.Score, start, &m.Score))
	}

	hypothesis := fmt.Sprintf("no prior incident resembles %s above the similarity floor", cluster.CanonicalService)
	confidence := 0.1
	if len(matches) > 0 {
		hypothesis = fmt.Sprintf("%s resembles %d previously recorded incident(s)", cluster.CanonicalService, len(matches))
		confidence = matches[0].Score
	}

	return models.SpecialistResult{
		SpecialistID:     e.ID(),
		Hypothesis:       hypothesis,
		BaseConfidence:   confidence,
		Evidence:         evidence,
		SuggestedActions: suggestedActionsFromMatches(matches),
		Status:           models.CompletionSuccess,
		Duration:         time.Since(start),
	}
}

func clusterText(cluster models.AlertCluster) string {
	var b strings.Builder
	b.WriteString(cluster.CanonicalService)
	b.WriteString(": ")
	for i, m := range cluster.Members {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(m.Description)
	}
	return b.String()
}

func suggestedActionsFromMatches(matches []adapters.ScoredMatch) []string {
	if len(matches) == 0 {
		return nil
	}
	if playbookID, ok := matches[0].Payload["playbook_id"].(string); ok && playbookID != "" {
		return []string{"review playbook " + playbookID + " from the closest prior incident"}
	}
	return []string{"review the closest prior incident's resolution notes"}
}
