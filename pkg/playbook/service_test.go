package playbook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/strandserr"
)

type fakeRepo struct {
	books map[string]models.Playbook
	// conflictOnce forces the next Update for this id to return an
	// optimistic conflict exactly once, to exercise the retry path.
	conflictOnce map[string]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{books: map[string]models.Playbook{}, conflictOnce: map[string]bool{}}
}

func (f *fakeRepo) Get(ctx context.Context, id string) (models.Playbook, error) {
	p, ok := f.books[id]
	if !ok {
		return models.Playbook{}, strandserr.New(strandserr.KindValidationFailed, "fakeRepo.Get", nil).WithDetail("not found")
	}
	return p, nil
}

func (f *fakeRepo) Create(ctx context.Context, p models.Playbook) error {
	f.books[p.ID] = p
	return nil
}

func (f *fakeRepo) Update(ctx context.Context, p models.Playbook, expectedTotalExecutions int) error {
	current := f.books[p.ID]
	if f.conflictOnce[p.ID] {
		f.conflictOnce[p.ID] = false
		return strandserr.New(strandserr.KindOptimisticConflict, "fakeRepo.Update", nil)
	}
	if current.Stats.TotalExecutions != expectedTotalExecutions {
		return strandserr.New(strandserr.KindOptimisticConflict, "fakeRepo.Update", nil)
	}
	f.books[p.ID] = p
	return nil
}

func (f *fakeRepo) FindActiveByKey(ctx context.Context, patternType models.CorrelationType, servicePattern string) ([]models.Playbook, error) {
	var out []models.Playbook
	for _, p := range f.books {
		if p.Status == models.StatusActive && p.PatternType == patternType && p.ServicePattern == servicePattern {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) List(ctx context.Context) ([]models.Playbook, error) {
	out := make([]models.Playbook, 0, len(f.books))
	for _, p := range f.books {
		out = append(out, p)
	}
	return out, nil
}

// S2 — Welford correctness at the service layer, through RecordExecution.
func TestRecordExecution_WelfordCorrectness_S2(t *testing.T) {
	repo := newFakeRepo()
	repo.books["pb-1"] = models.Playbook{ID: "pb-1", Status: models.StatusActive}
	svc := NewService(repo, nil)

	durations := []float64{10, 12, 15, 11, 14}
	var last models.Playbook
	var err error
	for _, d := range durations {
		last, err = svc.RecordExecution(context.Background(), "pb-1", models.OutcomeSuccess, d)
		require.NoError(t, err)
	}

	require.Equal(t, 5, last.Stats.TotalExecutions)
	require.Equal(t, 5, last.Stats.SuccessCount)
	require.Equal(t, 0, last.Stats.FailureCount)
	require.InDelta(t, 12.4, last.Stats.MeanDuration, 1e-9)
	require.InDelta(t, 4.3, last.Stats.Variance(), 1e-9)
}

func TestRecordExecution_RetriesOnOptimisticConflict(t *testing.T) {
	repo := newFakeRepo()
	repo.books["pb-2"] = models.Playbook{ID: "pb-2", Status: models.StatusActive}
	repo.conflictOnce["pb-2"] = true
	svc := NewService(repo, nil)

	p, err := svc.RecordExecution(context.Background(), "pb-2", models.OutcomeSuccess, 5)
	require.NoError(t, err)
	require.Equal(t, 1, p.Stats.TotalExecutions)
}

// S6 — Playbook promotion: submit LLM_GENERATED → PENDING_REVIEW; approve
// via valid reviewer → ACTIVE; second approve is a no-op; deprecate then
// approve is ILLEGAL_STATE_TRANSITION.
func TestPlaybookLifecycle_Promotion_S6(t *testing.T) {
	repo := newFakeRepo()
	repo.books["pb-3"] = models.Playbook{ID: "pb-3", Status: models.StatusDraft, Source: models.SourceLLMGenerated}
	svc := NewService(repo, nil)
	ctx := context.Background()

	p, err := svc.Submit(ctx, "pb-3")
	require.NoError(t, err)
	require.Equal(t, models.StatusPendingReview, p.Status)

	p, err = svc.Approve(ctx, "pb-3", "[email protected]")
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, p.Status)
	require.Equal(t, "[email protected]", p.ApprovedBy)

	p, err = svc.Approve(ctx, "pb-3", "[email protected]")
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, p.Status)
	require.Equal(t, "[email protected]", p.ApprovedBy, "idempotent re-approve must not overwrite the original approver")

	p, err = svc.Deprecate(ctx, "pb-3")
	require.NoError(t, err)
	require.Equal(t, models.StatusDeprecated, p.Status)

	_, err = svc.Approve(ctx, "pb-3", "[email protected]")
	require.Error(t, err)
	require.True(t, strandserr.HasKind(err, strandserr.KindIllegalStateTransition))
}

func TestClassify_StepsSemanticsChangeIsMajor(t *testing.T) {
	require.Equal(t, BumpMajor, Classify(ChangeDescriptor{StepsSemanticsChanged: true}))
}

func TestClassify_AuxiliaryStepsIsMinor(t *testing.T) {
	require.Equal(t, BumpMinor, Classify(ChangeDescriptor{AuxiliaryStepsAdded: true}))
}

func TestClassify_WordingOnlyIsPatch(t *testing.T) {
	require.Equal(t, BumpPatch, Classify(ChangeDescriptor{WordingOnly: true}))
}
