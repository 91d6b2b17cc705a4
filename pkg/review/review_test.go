package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/strandserr"
)

type fakeRepo struct {
	records map[string]Record
}

func newFakeRepo() *fakeRepo { return &fakeRepo{records: map[string]Record{}} }

func (f *fakeRepo) Get(ctx context.Context, decisionID string) (Record, bool, error) {
	r, ok := f.records[decisionID]
	return r, ok, nil
}

func (f *fakeRepo) Upsert(ctx context.Context, r Record) error {
	f.records[r.DecisionID] = r
	return nil
}

type fakePlaybooks struct {
	books map[string]models.Playbook
}

func newFakePlaybooks() *fakePlaybooks { return &fakePlaybooks{books: map[string]models.Playbook{}} }

func (f *fakePlaybooks) Get(ctx context.Context, id string) (models.Playbook, error) {
	return f.books[id], nil
}

func (f *fakePlaybooks) Approve(ctx context.Context, id, approver string) (models.Playbook, error) {
	p := f.books[id]
	p.Status = models.StatusActive
	p.ApprovedBy = approver
	f.books[id] = p
	return p, nil
}

func (f *fakePlaybooks) Reject(ctx context.Context, id string) (models.Playbook, error) {
	p := f.books[id]
	p.Status = models.StatusArchived
	f.books[id] = p
	return p, nil
}

type fakeNotifier struct {
	pendingCalls  int
	resolvedCalls int
}

func (f *fakeNotifier) NotifyPendingReview(ctx context.Context, decision models.DecisionCandidate) string {
	f.pendingCalls++
	return "1234.5678"
}

func (f *fakeNotifier) NotifyReviewResolved(ctx context.Context, decision models.DecisionCandidate, record models.ReviewRecord, threadTS string) {
	f.resolvedCalls++
}

func TestOpen_CreatesPendingRecordAndNotifies(t *testing.T) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{}
	svc := NewService(repo, newFakePlaybooks(), notifier)

	decision := models.DecisionCandidate{ID: "dec-1", ClusterID: "cl-1"}
	rec, err := svc.Open(context.Background(), decision, "", "strands-system")
	require.NoError(t, err)
	require.Equal(t, models.ReviewPending, rec.State)
	require.Equal(t, "strands-system", rec.SystemIdentity)
	require.Equal(t, 1, notifier.pendingCalls)

	stored, found, err := repo.Get(context.Background(), "dec-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "1234.5678", stored.ThreadTS)
	require.Equal(t, decision, stored.Decision)
}

func TestApprove_PromotesLinkedPlaybookAndRequestsExecution(t *testing.T) {
	repo := newFakeRepo()
	playbooks := newFakePlaybooks()
	playbooks.books["pb-1"] = models.Playbook{ID: "pb-1", Status: models.StatusPendingReview, Source: models.SourceLLMGenerated}
	notifier := &fakeNotifier{}
	svc := NewService(repo, playbooks, notifier)

	decision := models.DecisionCandidate{ID: "dec-1", ClusterID: "cl-1"}
	_, err := svc.Open(context.Background(), decision, "pb-1", "strands-system")
	require.NoError(t, err)

	outcome, err := svc.Approve(context.Background(), "dec-1", "[email protected]", "looks right")
	require.NoError(t, err)
	require.Equal(t, models.ReviewApproved, outcome.Record.State)
	require.True(t, outcome.ExecuteRequested)
	require.Equal(t, models.StatusActive, playbooks.books["pb-1"].Status)
	require.Equal(t, 1, notifier.resolvedCalls)

	// Idempotent repeat by the same reviewer is a no-op and does not
	// re-request execution.
	outcome2, err := svc.Approve(context.Background(), "dec-1", "[email protected]", "looks right")
	require.NoError(t, err)
	require.False(t, outcome2.ExecuteRequested)
}

func TestReject_DemotesNewlyGeneratedPlaybookToArchived(t *testing.T) {
	repo := newFakeRepo()
	playbooks := newFakePlaybooks()
	playbooks.books["pb-2"] = models.Playbook{ID: "pb-2", Status: models.StatusPendingReview, Source: models.SourceLLMGenerated}
	svc := NewService(repo, playbooks, &fakeNotifier{})

	decision := models.DecisionCandidate{ID: "dec-2", ClusterID: "cl-2"}
	_, err := svc.Open(context.Background(), decision, "pb-2", "strands-system")
	require.NoError(t, err)

	outcome, err := svc.Reject(context.Background(), "dec-2", "[email protected]", "false positive")
	require.NoError(t, err)
	require.Equal(t, models.ReviewRejected, outcome.Record.State)
	require.Equal(t, models.StatusArchived, playbooks.books["pb-2"].Status)
}

func TestApprove_RefusesSystemIdentityAsReviewer_S_InvalidReviewer(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, newFakePlaybooks(), &fakeNotifier{})

	decision := models.DecisionCandidate{ID: "dec-3", ClusterID: "cl-3"}
	_, err := svc.Open(context.Background(), decision, "", "strands-system")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), "dec-3", "strands-system", "")
	require.Error(t, err)
	require.True(t, strandserr.HasKind(err, strandserr.KindInvalidReviewer))
}

func TestApprove_ConflictingReviewerOnClosedReview_ReviewAlreadyClosed(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, newFakePlaybooks(), &fakeNotifier{})

	decision := models.DecisionCandidate{ID: "dec-4", ClusterID: "cl-4"}
	_, err := svc.Open(context.Background(), decision, "", "strands-system")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), "dec-4", "[email protected]", "")
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), "dec-4", "[email protected]", "actually no")
	require.Error(t, err)
	require.True(t, strandserr.HasKind(err, strandserr.KindReviewAlreadyClosed))
}

func TestApprove_WithoutOpenReview_ValidationFailed(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, newFakePlaybooks(), &fakeNotifier{})

	_, err := svc.Approve(context.Background(), "dec-missing", "[email protected]", "")
	require.Error(t, err)
	require.True(t, strandserr.HasKind(err, strandserr.KindValidationFailed))
}
