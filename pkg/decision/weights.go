// Package decision implements the C6 confidence/decision engine: weighted
// confidence aggregation over specialist results, hypothesis consolidation,
// rule-based risk grading, automation downgrade, and named threshold
// policies that gate a DecisionCandidate to ESCALATE/AUTO_APPROVE/
// REQUIRES_APPROVAL.
package decision

// WeightMatrix assigns a relative weight to each specialist id in the
// weighted-confidence mean. Unrecognised specialist ids default to weight 0
// — present but not contributing, so new specialist ids can be registered
// without a matching weight entry and simply sit out of the aggregate until
// one is configured.
type WeightMatrix struct {
	Version string
	Weights map[string]float64
}

// DefaultWeightMatrix is the out-of-the-box weight matrix applied when no
// operator override is configured.
func DefaultWeightMatrix() WeightMatrix {
	return WeightMatrix{
		Version: "v1",
		Weights: map[string]float64{
			"metrics":    0.4,
			"logs":       0.3,
			"graph":      0.1,
			"embeddings": 0.1,
			"correlator": 0.1,
		},
	}
}

func (wm WeightMatrix) weightFor(specialistID string) float64 {
	return wm.Weights[specialistID]
}
