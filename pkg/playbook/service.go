package playbook

import (
	"context"
	"strconv"
	"time"

	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/resilience"
	"github.com/strands-sre/strands/pkg/strandserr"
)

// Repository is the persistence contract C8 needs; pkg/store's Postgres
// GraphStore adapter satisfies it. Update must perform an optimistic
// compare-and-set keyed on expectedTotalExecutions, returning a
// KindOptimisticConflict strandserr.Error on a lost race.
type Repository interface {
	Get(ctx context.Context, id string) (models.Playbook, error)
	Create(ctx context.Context, p models.Playbook) error
	Update(ctx context.Context, p models.Playbook, expectedTotalExecutions int) error
	FindActiveByKey(ctx context.Context, patternType models.CorrelationType, servicePattern string) ([]models.Playbook, error)
	List(ctx context.Context) ([]models.Playbook, error)
}

// Service is the only place allowed to mutate playbook statistics. It wraps
// Repository.Update in pkg/resilience's retry policy so an
// optimistic-conflict loses at most 5 attempts before surfacing.
type Service struct {
	repo    Repository
	retrier *resilience.Retrier
	maxCAS  int
}

const defaultMaxCASAttempts = 5

// NewService builds a Service. A nil retrier uses resilience.DefaultRetryConfig.
func NewService(repo Repository, retrier *resilience.Retrier) *Service {
	if retrier == nil {
		retrier = resilience.NewRetrier(resilience.DefaultRetryConfig())
	}
	return &Service{repo: repo, retrier: retrier, maxCAS: defaultMaxCASAttempts}
}

// RecordExecution applies one Welford statistics update to the named
// playbook as a single optimistic-concurrency transaction, retrying up to 5
// times on conflict.
func (s *Service) RecordExecution(ctx context.Context, playbookID string, outcome models.ExecutionOutcome, durationSeconds float64) (models.Playbook, error) {
	var last models.Playbook
	for attempt := 1; attempt <= s.maxCAS; attempt++ {
		p, err := s.repo.Get(ctx, playbookID)
		if err != nil {
			return models.Playbook{}, err
		}
		expected := p.Stats.TotalExecutions
		p.Stats.RecordExecution(outcome == models.OutcomeSuccess, durationSeconds)
		p.UpdatedAt = time.Now().UTC()

		err = s.repo.Update(ctx, p, expected)
		if err == nil {
			return p, nil
		}
		if !strandserr.HasKind(err, strandserr.KindOptimisticConflict) {
			return models.Playbook{}, err
		}
		last = p
		if attempt < s.maxCAS {
			time.Sleep(s.retrier.DelayForAttempt(attempt))
		}
	}
	return models.Playbook{}, strandserr.New(strandserr.KindOptimisticConflict, "playbook.RecordExecution", nil).
		WithDetail("exceeded " + strconv.Itoa(s.maxCAS) + " compare-and-set attempts for " + last.ID)
}

// Get and List are thin passthroughs, exposed on Service so callers (the
// CLI's `playbook list|show` and pkg/api's GET /playbooks endpoints) only
// ever need one collaborator rather than both Service and Repository.
func (s *Service) Get(ctx context.Context, playbookID string) (models.Playbook, error) {
	return s.repo.Get(ctx, playbookID)
}

func (s *Service) List(ctx context.Context) ([]models.Playbook, error) {
	return s.repo.List(ctx)
}

// Submit, Approve, Reject, Deprecate, Archive load the playbook, apply the
// lifecycle transition, and persist it. Approve/Reject require the named
// reviewer for the call site's audit log (pkg/review owns reviewer
// validation; Service trusts its caller).
func (s *Service) Submit(ctx context.Context, playbookID string) (models.Playbook, error) {
	p, err := s.repo.Get(ctx, playbookID)
	if err != nil {
		return models.Playbook{}, err
	}
	if err := Submit(&p); err != nil {
		return models.Playbook{}, err
	}
	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, p, p.Stats.TotalExecutions); err != nil {
		return models.Playbook{}, err
	}
	return p, nil
}

func (s *Service) Approve(ctx context.Context, playbookID, approver string) (models.Playbook, error) {
	p, err := s.repo.Get(ctx, playbookID)
	if err != nil {
		return models.Playbook{}, err
	}
	wasActive := p.Status == models.StatusActive
	if err := Approve(&p, approver, func() time.Time { return time.Now().UTC() }); err != nil {
		return models.Playbook{}, err
	}
	if wasActive {
		return p, nil // idempotent no-op, nothing to persist
	}
	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, p, p.Stats.TotalExecutions); err != nil {
		return models.Playbook{}, err
	}
	if p.PreviousVersionID != "" {
		if predecessor, perr := s.repo.Get(ctx, p.PreviousVersionID); perr == nil {
			if derr := Deprecate(&predecessor); derr == nil {
				predecessor.UpdatedAt = time.Now().UTC()
				_ = s.repo.Update(ctx, predecessor, predecessor.Stats.TotalExecutions)
			}
		}
	}
	return p, nil
}

func (s *Service) Reject(ctx context.Context, playbookID string) (models.Playbook, error) {
	p, err := s.repo.Get(ctx, playbookID)
	if err != nil {
		return models.Playbook{}, err
	}
	if err := Reject(&p); err != nil {
		return models.Playbook{}, err
	}
	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, p, p.Stats.TotalExecutions); err != nil {
		return models.Playbook{}, err
	}
	return p, nil
}

func (s *Service) Deprecate(ctx context.Context, playbookID string) (models.Playbook, error) {
	p, err := s.repo.Get(ctx, playbookID)
	if err != nil {
		return models.Playbook{}, err
	}
	if err := Deprecate(&p); err != nil {
		return models.Playbook{}, err
	}
	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, p, p.Stats.TotalExecutions); err != nil {
		return models.Playbook{}, err
	}
	return p, nil
}
