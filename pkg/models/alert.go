// Package models holds the shared data-model types that flow through the
// Strands core: alerts, clusters, specialist results, correlation patterns,
// decisions, playbooks, reviews and replay events.
package models

import "time"

// Severity is the canonical, ordered severity enum (info < warning < high <
// critical).
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity maps a canonical severity string back to its enum value.
func ParseSeverity(s string) (Severity, bool) {
	switch s {
	case "info":
		return SeverityInfo, true
	case "warning":
		return SeverityWarning, true
	case "high":
		return SeverityHigh, true
	case "critical":
		return SeverityCritical, true
	default:
		return SeverityInfo, false
	}
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 {
		str = str[1 : len(str)-1]
	}
	parsed, ok := ParseSeverity(str)
	if !ok {
		parsed = SeverityInfo
	}
	*s = parsed
	return nil
}

// AlertStatus mirrors the firing/resolved lifecycle of an upstream alert.
type AlertStatus string

const (
	AlertStatusFiring   AlertStatus = "firing"
	AlertStatusResolved AlertStatus = "resolved"
)

// Alert is the immutable record of a single external notification, as
// received from a provider before any normalisation.
type Alert struct {
	ArrivedAt   time.Time         `json:"arrived_at"`
	Provider    string            `json:"provider"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Service     string            `json:"service"`
	Severity    string            `json:"severity"` // provider-native, mapped during normalisation
	Description string            `json:"description"`
	Labels      map[string]string `json:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
	Status      AlertStatus       `json:"status"`
}

// ValidationStatus records the outcome of C3's boundary validation.
type ValidationStatus struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func Valid() ValidationStatus { return ValidationStatus{Valid: true} }

func Rejected(reason string) ValidationStatus {
	return ValidationStatus{Valid: false, Reason: reason}
}

// NormalisedAlert is an Alert after provider-specific harmonisation: service
// normalised, severity mapped to the canonical enum, fingerprint resolved.
type NormalisedAlert struct {
	Alert
	CanonicalService string           `json:"canonical_service"`
	CanonicalSeverity Severity        `json:"canonical_severity"`
	Validation       ValidationStatus `json:"validation"`
}

// AlertCluster is an ordered set of NormalisedAlerts judged to describe one
// incident.
type AlertCluster struct {
	ID              string            `json:"id"`
	CanonicalService string           `json:"canonical_service"`
	ClusterType     string            `json:"cluster_type"`
	EarliestMember  time.Time         `json:"earliest_member"`
	LatestMember    time.Time         `json:"latest_member"`
	Members         []NormalisedAlert `json:"members"`
	CorrelationBasis string           `json:"correlation_basis,omitempty"`
}

// HighestSeverity returns the highest CanonicalSeverity across the
// cluster's members, or SeverityInfo for an empty cluster.
func (c *AlertCluster) HighestSeverity() Severity {
	highest := SeverityInfo
	for _, m := range c.Members {
		if m.CanonicalSeverity > highest {
			highest = m.CanonicalSeverity
		}
	}
	return highest
}

// AddMember appends a NormalisedAlert to the cluster, enforcing the
// no-duplicate-fingerprint invariant and keeping arrival order. Returns
// false if the member's fingerprint is already present.
func (c *AlertCluster) AddMember(a NormalisedAlert) bool {
	for _, m := range c.Members {
		if m.Fingerprint != "" && m.Fingerprint == a.Fingerprint {
			return false
		}
	}
	if len(c.Members) == 0 || a.ArrivedAt.Before(c.EarliestMember) {
		c.EarliestMember = a.ArrivedAt
	}
	if len(c.Members) == 0 || a.ArrivedAt.After(c.LatestMember) {
		c.LatestMember = a.ArrivedAt
	}
	c.Members = append(c.Members, a)
	return true
}
