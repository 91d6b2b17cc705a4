// Package review implements C9: the human-review gate over a
// DecisionCandidate. Exactly one ReviewRecord exists per decision, moving
// PENDING -> {APPROVED, REJECTED} under external-actor input that carries a
// reviewer identity.
package review

import (
	"context"
	"time"

	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/strandserr"
)

// Record pairs the persisted ReviewRecord with the Slack thread timestamp
// the pending-review notification landed on (so a resolution reply threads
// correctly without a second fingerprint search) and the originating
// decision plus playbook link, so a caller holding only a decision ID --
// the HTTP review endpoints in particular -- never needs to reconstruct or
// re-submit either one to resolve the review.
type Record struct {
	models.ReviewRecord
	ThreadTS   string
	Decision   models.DecisionCandidate
	PlaybookID string
}

// Repository is the persistence contract for review records, keyed by
// decision ID.
type Repository interface {
	Get(ctx context.Context, decisionID string) (Record, bool, error)
	Upsert(ctx context.Context, r Record) error
}

// PlaybookGateway is the slice of pkg/playbook.Service's API review needs to
// promote or demote the playbook linked to a decision on resolution.
type PlaybookGateway interface {
	Get(ctx context.Context, playbookID string) (models.Playbook, error)
	Approve(ctx context.Context, playbookID, approver string) (models.Playbook, error)
	Reject(ctx context.Context, playbookID string) (models.Playbook, error)
}

// Notifier is the slice of pkg/notify.Service's API review needs. A nil
// *notify.Service satisfies this by its own nil-safety, so Slack wiring is
// always optional.
type Notifier interface {
	NotifyPendingReview(ctx context.Context, decision models.DecisionCandidate) string
	NotifyReviewResolved(ctx context.Context, decision models.DecisionCandidate, record models.ReviewRecord, threadTS string)
}

// Service drives the PENDING/APPROVED/REJECTED state machine.
type Service struct {
	repo      Repository
	playbooks PlaybookGateway
	notifier  Notifier
}

func NewService(repo Repository, playbooks PlaybookGateway, notifier Notifier) *Service {
	return &Service{repo: repo, playbooks: playbooks, notifier: notifier}
}

// Outcome is what a resolved review hands back to the controller: the
// settled record, and whether this call is the one that newly closed it
//.
type Outcome struct {
	Record          models.ReviewRecord
	ExecuteRequested bool
}

// Open creates the PENDING review record for a decision and posts the
// initial Slack summary. playbookID is the recommendation's
// linked playbook, if any -- stored alongside the record so Approve/Reject
// never need it supplied again.
func (s *Service) Open(ctx context.Context, decision models.DecisionCandidate, playbookID, systemIdentity string) (models.ReviewRecord, error) {
	record := models.ReviewRecord{
		ID:             "rev-" + decision.ID,
		DecisionID:     decision.ID,
		State:          models.ReviewPending,
		Timestamp:      time.Now().UTC(),
		SystemIdentity: systemIdentity,
	}
	threadTS := ""
	if s.notifier != nil {
		threadTS = s.notifier.NotifyPendingReview(ctx, decision)
	}
	stored := Record{ReviewRecord: record, ThreadTS: threadTS, Decision: decision, PlaybookID: playbookID}
	if err := s.repo.Upsert(ctx, stored); err != nil {
		return models.ReviewRecord{}, err
	}
	return record, nil
}

// Approve transitions decisionID's review record to APPROVED. If its
// linked playbook is PENDING_REVIEW it is promoted to ACTIVE first; a
// promotion failure aborts the review transition too, since approval and
// playbook promotion are meant to happen atomically.
func (s *Service) Approve(ctx context.Context, decisionID, reviewer, notes string) (Outcome, error) {
	return s.transition(ctx, decisionID, reviewer, notes, models.ReviewApproved)
}

// Reject transitions decisionID's review record to REJECTED. If its linked
// playbook is newly-generated (LLM_GENERATED, PENDING_REVIEW) it is demoted
// to ARCHIVED, with the rejection note retained on the review record rather
// than the playbook.
func (s *Service) Reject(ctx context.Context, decisionID, reviewer, notes string) (Outcome, error) {
	return s.transition(ctx, decisionID, reviewer, notes, models.ReviewRejected)
}

func (s *Service) transition(ctx context.Context, decisionID, reviewer, notes string, target models.ReviewState) (Outcome, error) {
	stored, found, err := s.repo.Get(ctx, decisionID)
	if err != nil {
		return Outcome{}, err
	}
	if !found {
		return Outcome{}, strandserr.Newf(strandserr.KindValidationFailed, "review.transition", "no review record open for decision %s", decisionID)
	}
	rec := stored.ReviewRecord

	if reviewer == rec.SystemIdentity {
		return Outcome{}, strandserr.New(strandserr.KindInvalidReviewer, "review.transition", nil)
	}

	if rec.State == target && rec.Reviewer == reviewer {
		// Idempotent repeat of the same verdict by the same reviewer: a
		// no-op, and the controller must not re-request
		// execution for work it already dispatched.
		return Outcome{Record: rec, ExecuteRequested: false}, nil
	}
	if rec.State != models.ReviewPending {
		return Outcome{}, strandserr.New(strandserr.KindReviewAlreadyClosed, "review.transition", nil)
	}

	if err := s.resolvePlaybook(ctx, stored.PlaybookID, reviewer, target); err != nil {
		return Outcome{}, err
	}

	rec.State = target
	rec.Reviewer = reviewer
	rec.Notes = notes
	rec.Timestamp = time.Now().UTC()
	stored.ReviewRecord = rec
	if err := s.repo.Upsert(ctx, stored); err != nil {
		return Outcome{}, err
	}

	if s.notifier != nil {
		s.notifier.NotifyReviewResolved(ctx, stored.Decision, rec, stored.ThreadTS)
	}

	return Outcome{Record: rec, ExecuteRequested: target == models.ReviewApproved}, nil
}

func (s *Service) resolvePlaybook(ctx context.Context, playbookID, reviewer string, target models.ReviewState) error {
	if playbookID == "" || s.playbooks == nil {
		return nil
	}
	pb, err := s.playbooks.Get(ctx, playbookID)
	if err != nil {
		return err
	}
	if pb.Status != models.StatusPendingReview {
		return nil
	}
	switch target {
	case models.ReviewApproved:
		_, err := s.playbooks.Approve(ctx, playbookID, reviewer)
		return err
	case models.ReviewRejected:
		if pb.Source != models.SourceLLMGenerated {
			return nil
		}
		_, err := s.playbooks.Reject(ctx, playbookID)
		return err
	default:
		return nil
	}
}
