// Package playbook implements C8: the playbook lifecycle state machine,
// semantic-version classification, and atomic Welford statistics updates
//. Backed by a Repository the concrete pkg/store adapter
// satisfies; pkg/playbook itself has no storage-specific code.
package playbook

import (
	"time"

	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/strandserr"
)

// transition names a lifecycle edge.
type transition string

const (
	transitionSubmit          transition = "submit"
	transitionApprove         transition = "approve"
	transitionReject          transition = "reject"
	transitionDeprecate       transition = "deprecate"
	transitionArchive         transition = "archive"
	transitionNewMajorVersion transition = "new_major_version"
)

var allowedTransitions = map[models.PlaybookStatus]map[transition]models.PlaybookStatus{
	models.StatusDraft: {
		transitionSubmit: models.StatusPendingReview,
	},
	models.StatusPendingReview: {
		transitionApprove: models.StatusActive,
		transitionReject:  models.StatusArchived,
	},
	models.StatusActive: {
		transitionDeprecate:       models.StatusDeprecated,
		transitionNewMajorVersion: models.StatusActive, // predecessor stays ACTIVE until the new version is itself approved
	},
	models.StatusDeprecated: {
		transitionArchive: models.StatusArchived,
	},
}

// applyTransition returns the target status for (current, t), or an
// ILLEGAL_STATE_TRANSITION error if current has no such edge.
func applyTransition(op string, current models.PlaybookStatus, t transition) (models.PlaybookStatus, error) {
	edges, ok := allowedTransitions[current]
	if !ok {
		return "", strandserr.Newf(strandserr.KindIllegalStateTransition, op, "no transitions defined from status %s", current)
	}
	next, ok := edges[t]
	if !ok {
		return "", strandserr.Newf(strandserr.KindIllegalStateTransition, op, "%s does not allow %s", current, t)
	}
	return next, nil
}

// Submit moves a DRAFT playbook to PENDING_REVIEW.
func Submit(p *models.Playbook) error {
	next, err := applyTransition("playbook.Submit", p.Status, transitionSubmit)
	if err != nil {
		return err
	}
	p.Status = next
	return nil
}

// Reject moves a PENDING_REVIEW playbook to ARCHIVED.
func Reject(p *models.Playbook) error {
	next, err := applyTransition("playbook.Reject", p.Status, transitionReject)
	if err != nil {
		return err
	}
	p.Status = next
	return nil
}

// Deprecate moves an ACTIVE playbook to DEPRECATED.
func Deprecate(p *models.Playbook) error {
	next, err := applyTransition("playbook.Deprecate", p.Status, transitionDeprecate)
	if err != nil {
		return err
	}
	p.Status = next
	return nil
}

// Archive moves a DEPRECATED playbook to ARCHIVED.
func Archive(p *models.Playbook) error {
	next, err := applyTransition("playbook.Archive", p.Status, transitionArchive)
	if err != nil {
		return err
	}
	p.Status = next
	return nil
}

// Approve moves a PENDING_REVIEW playbook to ACTIVE. Idempotent: approving
// an already-ACTIVE playbook is a no-op, matching S6's "attempt to approve
// a second time → no-op (idempotent)".
func Approve(p *models.Playbook, approver string, approvedAt timeNow) error {
	if p.Status == models.StatusActive {
		return nil
	}
	next, err := applyTransition("playbook.Approve", p.Status, transitionApprove)
	if err != nil {
		return err
	}
	p.Status = next
	p.ApprovedBy = approver
	t := approvedAt()
	p.ApprovedAt = &t
	return nil
}

// timeNow lets callers inject a clock for deterministic tests/replay.
type timeNow func() time.Time

// NewMajorVersion spawns a new DRAFT playbook from an ACTIVE predecessor.
// The predecessor itself does not change status here: it
// becomes DEPRECATED on the new version's approval, i.e. the deprecation is
// driven by the new draft's eventual Approve call, not by branching.
func NewMajorVersion(predecessor models.Playbook, createdBy string, now timeNow) (models.Playbook, error) {
	if _, err := applyTransition("playbook.NewMajorVersion", predecessor.Status, transitionNewMajorVersion); err != nil {
		return models.Playbook{}, err
	}
	draft := predecessor
	draft.ID = ""
	draft.Status = models.StatusDraft
	draft.Version = Bump(predecessor.Version, BumpMajor)
	draft.PreviousVersionID = predecessor.ID
	draft.Stats = models.PlaybookStats{}
	draft.ApprovedAt = nil
	draft.ApprovedBy = ""
	draft.CreatedBy = createdBy
	t := now()
	draft.CreatedAt = t
	draft.UpdatedAt = t
	return draft, nil
}
