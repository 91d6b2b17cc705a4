package decision

// ThresholdPolicy names a confidence/consensus gate used in step 6 of the
// aggregation algorithm. The canonical numeric values are recorded in
// DESIGN.md's Open Question decisions.
type ThresholdPolicy string

const (
	PolicyStrict    ThresholdPolicy = "STRICT"
	PolicyBalanced  ThresholdPolicy = "BALANCED"
	PolicyPermissive ThresholdPolicy = "PERMISSIVE"
)

// Thresholds holds the (confidence, consensus) pair a named policy requires.
type Thresholds struct {
	Confidence float64
	Consensus  float64
}

// thresholdsFor resolves a named policy to its numeric gate. Unknown policy
// names fall back to BALANCED.
func thresholdsFor(p ThresholdPolicy) Thresholds {
	switch p {
	case PolicyStrict:
		return Thresholds{Confidence: 0.90, Consensus: 0.95}
	case PolicyPermissive:
		return Thresholds{Confidence: 0.50, Consensus: 0.60}
	default:
		return Thresholds{Confidence: 0.70, Consensus: 0.80}
	}
}
