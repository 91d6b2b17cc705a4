package correlation

import (
	"sort"
	"time"

	"github.com/strands-sre/strands/pkg/models"
)

// Event is one timestamped occurrence considered for temporal (event
// sequence) correlation.
type Event struct {
	ID        string
	Timestamp time.Time
}

// AnalyzeEventSequence reports monotonic chains of events within a fixed
// sliding window, emitting one CorrelationPattern per chain is computed separately").
func AnalyzeEventSequence(events []Event, window time.Duration) []models.CorrelationPattern {
	if len(events) == 0 {
		return nil
	}
	sorted := append([]Event(nil), events...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	var patterns []models.CorrelationPattern
	chainStart := 0
	for i := 1; i <= len(sorted); i++ {
		brokeChain := i == len(sorted) || sorted[i].Timestamp.Sub(sorted[i-1].Timestamp) > window
		if brokeChain {
			if i-chainStart >= 2 {
				chain := sorted[chainStart:i]
				patterns = append(patterns, patternForChain(chain))
			}
			chainStart = i
		}
	}
	return patterns
}

func patternForChain(chain []Event) models.CorrelationPattern {
	ids := make([]string, len(chain))
	for i, e := range chain {
		ids[i] = e.ID
	}
	span := chain[len(chain)-1].Timestamp.Sub(chain[0].Timestamp)
	// A tighter, longer chain carries a higher synthetic posterior; this is
	// a monotonic-chain confidence heuristic, not a hypothesis test.
	posterior := 1 - 1/float64(len(chain))
	if span > 0 {
		density := float64(len(chain)) / span.Seconds()
		posterior = clamp01(posterior * clamp01(density*10))
	}
	return models.CorrelationPattern{
		Type:        models.CorrelationEventSequence,
		SeriesAID:   ids[0],
		SeriesBID:   ids[len(ids)-1],
		SampleCount: len(chain),
		Posterior:   posterior,
		Strength:    models.StrengthFromPosterior(posterior),
	}
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
