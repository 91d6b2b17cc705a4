package models

import (
	"math"
	"strconv"
	"time"
)

// PlaybookSource identifies how a playbook's content originated.
type PlaybookSource string

const (
	SourceHumanWritten PlaybookSource = "HUMAN_WRITTEN"
	SourceLLMGenerated PlaybookSource = "LLM_GENERATED"
	SourceHybrid       PlaybookSource = "HYBRID"
)

// PlaybookStatus is the lifecycle state of a Playbook.
type PlaybookStatus string

const (
	StatusDraft          PlaybookStatus = "DRAFT"
	StatusPendingReview   PlaybookStatus = "PENDING_REVIEW"
	StatusActive          PlaybookStatus = "ACTIVE"
	StatusDeprecated      PlaybookStatus = "DEPRECATED"
	StatusArchived        PlaybookStatus = "ARCHIVED"
)

// Version is a semantic major.minor.patch version.
type Version struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

func (v Version) String() string {
	return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." + strconv.Itoa(v.Patch)
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor < o.Minor
	}
	return v.Patch < o.Patch
}

// PlaybookStep is one ordered remediation step.
type PlaybookStep struct {
	Index           int      `json:"index"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Commands        []string `json:"commands"`
	ExpectedOutput  string   `json:"expected_output"`
	RollbackCommand string   `json:"rollback_command,omitempty"`
}

// PlaybookStats is the embedded execution-statistics accumulator.
type PlaybookStats struct {
	TotalExecutions int       `json:"total_executions"`
	SuccessCount    int       `json:"success_count"`
	FailureCount    int       `json:"failure_count"`
	MeanDuration    float64   `json:"mean_duration_seconds"`
	M2Duration      float64   `json:"m2_duration"`
	LastExecutedAt  time.Time `json:"last_executed_at,omitempty"`
}

// SuccessRate is success_count / max(1, total_executions).
func (s PlaybookStats) SuccessRate() float64 {
	denom := s.TotalExecutions
	if denom < 1 {
		denom = 1
	}
	return float64(s.SuccessCount) / float64(denom)
}

// Variance derives variance on read: m2/(n-1) when n>=2, else 0.
func (s PlaybookStats) Variance() float64 {
	if s.TotalExecutions < 2 {
		return 0
	}
	return s.M2Duration / float64(s.TotalExecutions-1)
}

// RecordExecution applies one Welford update in place for the given outcome
// and duration (seconds). This is the only place allowed to mutate the
// statistics; pkg/playbook.Store.RecordExecution wraps it in a single
// atomic transaction against the backing store.
func (s *PlaybookStats) RecordExecution(success bool, durationSeconds float64) {
	n := s.TotalExecutions + 1
	s.TotalExecutions = n
	if success {
		s.SuccessCount++
	} else {
		s.FailureCount++
	}
	delta := durationSeconds - s.MeanDuration
	s.MeanDuration += delta / float64(n)
	s.M2Duration += delta * (durationSeconds - s.MeanDuration)
}

// Playbook is a versioned remediation recipe.
type Playbook struct {
	ID                 string         `json:"id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	PatternType        CorrelationType `json:"pattern_type"`
	ServicePattern     string         `json:"service_pattern"`
	Steps              []PlaybookStep `json:"steps"`
	EstimatedDuration  time.Duration  `json:"estimated_duration"`
	AutomationLevel    AutomationLevel `json:"automation_level"`
	RiskLevel          RiskLevel      `json:"risk_level"`
	Prerequisites      []string       `json:"prerequisites"`
	SuccessCriteria    []string       `json:"success_criteria"`
	RollbackProcedure  string         `json:"rollback_procedure"`
	Source             PlaybookSource `json:"source"`
	Status             PlaybookStatus `json:"status"`
	CreatedAt          time.Time      `json:"created_at"`
	CreatedBy          string         `json:"created_by"`
	UpdatedAt          time.Time      `json:"updated_at"`
	UpdatedBy          string         `json:"updated_by"`
	ApprovedAt         *time.Time     `json:"approved_at,omitempty"`
	ApprovedBy         string         `json:"approved_by,omitempty"`
	Stats              PlaybookStats  `json:"stats"`
	Version            Version        `json:"version"`
	PreviousVersionID  string         `json:"previous_version_id,omitempty"`
}

// AdaptiveScore is correlation_confidence * success_rate * ln(1 +
// total_executions), used to rank candidate playbooks.
func (p Playbook) AdaptiveScore(correlationConfidence float64) float64 {
	return correlationConfidence * p.Stats.SuccessRate() * math.Log1p(float64(p.Stats.TotalExecutions))
}

// ExecutionOutcome is the terminal result of one playbook execution.
type ExecutionOutcome string

const (
	OutcomeSuccess    ExecutionOutcome = "SUCCESS"
	OutcomeFailure    ExecutionOutcome = "FAILURE"
	OutcomePartial    ExecutionOutcome = "PARTIAL"
	OutcomeRolledBack ExecutionOutcome = "ROLLED_BACK"
)

// PlaybookExecution is an immutable record of one playbook run.
type PlaybookExecution struct {
	ID               string           `json:"id"`
	PlaybookID       string           `json:"playbook_id"`
	DecisionID       string           `json:"decision_id"`
	StartedAt        time.Time        `json:"started_at"`
	CompletedAt      time.Time        `json:"completed_at"`
	Outcome          ExecutionOutcome `json:"outcome"`
	Duration         time.Duration    `json:"duration"`
	StepsAttempted   int              `json:"steps_attempted"`
	StepsCompleted   int              `json:"steps_completed"`
	ErrorDescription string           `json:"error_description,omitempty"`
	Feedback         string           `json:"feedback,omitempty"`
}
