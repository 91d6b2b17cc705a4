package models

import "time"

// ReviewState is the state of a human-review gate.
type ReviewState string

const (
	ReviewPending  ReviewState = "PENDING"
	ReviewApproved ReviewState = "APPROVED"
	ReviewRejected ReviewState = "REJECTED"
)

// ReviewRecord is the human-in-the-loop verdict for a decision. Exactly one
// terminal record exists per decision.
type ReviewRecord struct {
	ID         string      `json:"id"`
	DecisionID string      `json:"decision_id"`
	State      ReviewState `json:"state"`
	Reviewer   string      `json:"reviewer,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Notes      string      `json:"notes,omitempty"`

	// SystemIdentity is the identity that produced the underlying decision;
	// a reviewer matching this value is refused (INVALID_REVIEWER).
	SystemIdentity string `json:"system_identity"`
}

// ReplayMode selects what a replay run is validating.
type ReplayMode string

const (
	ReplayValidation ReplayMode = "VALIDATION"
	ReplayTraining   ReplayMode = "TRAINING"
	ReplaySimulation ReplayMode = "SIMULATION"
	ReplayAudit      ReplayMode = "AUDIT"
)

// ReplayEvent is an immutable ledger entry used by the replay engine.
type ReplayEvent struct {
	OriginalTimestamp      time.Time         `json:"original_timestamp"`
	OriginalAlert          Alert             `json:"original_alert"`
	OriginalDecision       DecisionCandidate `json:"original_decision"`
	OriginalPlaybookVersion Version          `json:"original_playbook_version"`
	OriginalOutcome        ExecutionOutcome  `json:"original_outcome"`
}

// ReplayClassification is the comparison outcome between an original and a
// replayed decision.
type ReplayClassification string

const (
	ReplayMatch             ReplayClassification = "MATCH"
	ReplayDivergenceSafe    ReplayClassification = "DIVERGENCE_SAFE"
	ReplayDivergenceUnsafe  ReplayClassification = "DIVERGENCE_UNSAFE"
)
