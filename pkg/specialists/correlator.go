package specialists

import (
	"context"
	"fmt"
	"time"

	"github.com/strands-sre/strands/pkg/correlation"
	"github.com/strands-sre/strands/pkg/models"
)

// correlationWindow is the sliding window AnalyzeEventSequence chains
// cluster members within.
const correlationWindow = 5 * time.Minute

// Correlator finds monotonic event-sequence chains across the cluster's own
// member alerts. Unlike the other four specialists
// it makes no adapter call — it is pure, synchronous, CPU-bound analysis
// over data the cluster already carries.
type Correlator struct {
	analyzer *correlation.Analyzer
}

func NewCorrelator(analyzer *correlation.Analyzer) *Correlator {
	return &Correlator{analyzer: analyzer}
}

func (c *Correlator) ID() string { return "correlator" }

func (c *Correlator) Investigate(ctx context.Context, cluster models.AlertCluster) models.SpecialistResult {
	start := time.Now()

	events := make([]correlation.Event, len(cluster.Members))
	for i, m := range cluster.Members {
		events[i] = correlation.Event{ID: m.Fingerprint, Timestamp: m.ArrivedAt}
	}
	patterns := correlation.AnalyzeEventSequence(events, correlationWindow)

	evidence := make([]models.EvidenceItem, 0, len(patterns))
	for _, p := range patterns {
		evidence = append(evidence, evidenceOf(models.EvidenceEvent, p.SeriesAID,
			fmt.Sprintf("event chain %s -> %s (%d members, posterior %.2f)", p.SeriesAID, p.SeriesBID, p.SampleCount, p.Posterior),
			p.Posterior, start, &p.Posterior))
	}

	hypothesis := fmt.Sprintf("no correlated event chain detected among %s's alert members", cluster.CanonicalService)
	confidence := 0.1
	if len(patterns) > 0 {
		hypothesis = fmt.Sprintf("%d correlated event chain(s) detected among %s's alert members", len(patterns), cluster.CanonicalService)
		confidence = patterns[0].Posterior
	}

	return models.SpecialistResult{
		SpecialistID:     c.ID(),
		Hypothesis:       hypothesis,
		BaseConfidence:   confidence,
		Evidence:         evidence,
		SuggestedActions: []string{"inspect the earliest alert in the chain first"},
		Status:           models.CompletionSuccess,
		Duration:         time.Since(start),
	}
}
