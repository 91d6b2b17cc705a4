package specialists

import (
	"time"

	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/strandserr"
)

// evidenceOf builds a single EvidenceItem, the common shape every
// specialist in this package attaches to its SpecialistResult.
func evidenceOf(kind models.EvidenceKind, source, description string, quality float64, ts time.Time, numeric *float64) models.EvidenceItem {
	return models.EvidenceItem{
		Kind:        kind,
		Source:      source,
		Description: description,
		Quality:     quality,
		Timestamp:   ts,
		NumericValue: numeric,
	}
}

// errorResult converts an adapter failure into an ERROR-status
// SpecialistResult: it does not fail the swarm,
// it just contributes no evidence.
func errorResult(id string, err error, start time.Time) models.SpecialistResult {
	kind, ok := strandserr.KindOf(err)
	errKind := "UNKNOWN"
	if ok {
		errKind = string(kind)
	}
	return models.SpecialistResult{
		SpecialistID: id,
		Status:       models.CompletionError,
		ErrorKind:    errKind,
		Duration:     time.Since(start),
	}
}
