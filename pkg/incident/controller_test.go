package incident

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strands-sre/strands/pkg/adapters"
	"github.com/strands-sre/strands/pkg/alerts"
	"github.com/strands-sre/strands/pkg/audit"
	"github.com/strands-sre/strands/pkg/decision"
	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/playbook"
	"github.com/strands-sre/strands/pkg/recommender"
	"github.com/strands-sre/strands/pkg/review"
	"github.com/strands-sre/strands/pkg/strandserr"
	"github.com/strands-sre/strands/pkg/swarm"
)

type fakeAlertProvider struct {
	name  string
	alert adapters.RawAlert
	err   error
}

func (f *fakeAlertProvider) Name() string { return f.name }
func (f *fakeAlertProvider) ListActive(ctx context.Context) ([]adapters.RawAlert, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []adapters.RawAlert{f.alert}, nil
}

type fakeSpecialist struct {
	id     string
	result models.SpecialistResult
}

func (f *fakeSpecialist) ID() string { return f.id }
func (f *fakeSpecialist) Investigate(ctx context.Context, cluster models.AlertCluster) models.SpecialistResult {
	return f.result
}

// fakePlaybookRepo is an in-memory playbook.Repository.
type fakePlaybookRepo struct {
	mu    sync.Mutex
	items map[string]models.Playbook
}

func newFakePlaybookRepo() *fakePlaybookRepo {
	return &fakePlaybookRepo{items: map[string]models.Playbook{}}
}

func (r *fakePlaybookRepo) Get(ctx context.Context, id string) (models.Playbook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return models.Playbook{}, strandserr.Newf(strandserr.KindValidationFailed, "fakePlaybookRepo.Get", "playbook %s not found", id)
	}
	return p, nil
}

func (r *fakePlaybookRepo) Create(ctx context.Context, p models.Playbook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = "pb-" + p.Title
	}
	r.items[p.ID] = p
	return nil
}

func (r *fakePlaybookRepo) Update(ctx context.Context, p models.Playbook, expectedTotalExecutions int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[p.ID]
	if ok && cur.Stats.TotalExecutions != expectedTotalExecutions {
		return strandserr.New(strandserr.KindOptimisticConflict, "fakePlaybookRepo.Update", nil)
	}
	r.items[p.ID] = p
	return nil
}

func (r *fakePlaybookRepo) List(ctx context.Context) ([]models.Playbook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Playbook, 0, len(r.items))
	for _, p := range r.items {
		out = append(out, p)
	}
	return out, nil
}

func (r *fakePlaybookRepo) FindActiveByKey(ctx context.Context, patternType models.CorrelationType, servicePattern string) ([]models.Playbook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Playbook
	for _, p := range r.items {
		if p.PatternType == patternType && p.ServicePattern == servicePattern && p.Status == models.StatusActive {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeReviewRepo is an in-memory review.Repository.
type fakeReviewRepo struct {
	mu      sync.Mutex
	records map[string]review.Record
}

func newFakeReviewRepo() *fakeReviewRepo {
	return &fakeReviewRepo{records: map[string]review.Record{}}
}

func (r *fakeReviewRepo) Get(ctx context.Context, decisionID string) (review.Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[decisionID]
	return rec, ok, nil
}

func (r *fakeReviewRepo) Upsert(ctx context.Context, rec review.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.DecisionID] = rec
	return nil
}

type noopNotifier struct{}

func (noopNotifier) NotifyPendingReview(ctx context.Context, decision models.DecisionCandidate) string {
	return ""
}
func (noopNotifier) NotifyReviewResolved(ctx context.Context, decision models.DecisionCandidate, record models.ReviewRecord, threadTS string) {
}

func buildController(t *testing.T, svcAlert adapters.RawAlert, specialist models.SpecialistResult, seedPlaybook func(repo *fakePlaybookRepo)) (*Controller, *adapters.FakeGraphStore, *fakePlaybookRepo) {
	t.Helper()

	registry, err := alerts.NewProviderRegistry(alerts.ProviderDescriptor{
		Provider: &fakeAlertProvider{name: "prometheus", alert: svcAlert},
		Priority: 10,
	})
	require.NoError(t, err)
	collector := alerts.NewCollector(registry)
	normalizer := alerts.NewNormalizer(nil, time.Millisecond, nil)
	clusterer := alerts.NewClusterer(time.Minute)

	swarmRegistry, err := swarm.NewRegistry(&fakeSpecialist{id: specialist.SpecialistID, result: specialist})
	require.NoError(t, err)
	runner := swarm.NewRunner(swarmRegistry, time.Second)

	playbookRepo := newFakePlaybookRepo()
	if seedPlaybook != nil {
		seedPlaybook(playbookRepo)
	}
	playbookSvc := playbook.NewService(playbookRepo, nil)
	rec := recommender.New(playbookRepo, adapters.NewFakeTextGenerator(), nil)

	reviewSvc := review.NewService(newFakeReviewRepo(), playbookSvc, noopNotifier{})

	graph := adapters.NewFakeGraphStore()
	var buf bufferWriter
	auditLog := audit.NewLogger(&buf)

	ctrl := New(Config{
		Collector:    collector,
		Normalizer:   normalizer,
		Clusterer:    clusterer,
		Investigator: runner,
		DecisionOpts: decision.Options{Weights: decision.DefaultWeightMatrix(), Policy: decision.PolicyPermissive, DefaultAutomation: models.AutomationFull},
		Recommender:  rec,
		Reviews:      reviewSvc,
		Graph:        graph,
		AuditLog:     auditLog,
		TickBudget:   5 * time.Second,
	})
	return ctrl, graph, playbookRepo
}

// bufferWriter is a minimal io.Writer so audit.Logger has somewhere to
// write without depending on os.File in tests.
type bufferWriter struct {
	mu   sync.Mutex
	data []byte
}

func (b *bufferWriter) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append(b.data, p...)
	return len(p), nil
}

func TestController_Tick_AutoApprovesKnownLowRiskPlaybook(t *testing.T) {
	alert := adapters.RawAlert{Service: "checkout", Severity: "info", Description: "elevated response time", Labels: map[string]string{}}
	specialist := models.SpecialistResult{
		SpecialistID:   "metrics",
		Hypothesis:     "Downstream dependency responding slowly",
		BaseConfidence: 0.9,
		Evidence: []models.EvidenceItem{
			{Kind: models.EvidenceMetric, Source: "prometheus", Description: "p99 elevated", Quality: 0.9},
		},
		SuggestedActions: []string{"scale replicas"},
		Status:           models.CompletionSuccess,
	}

	ctrl, graph, _ := buildController(t, alert, specialist, func(repo *fakePlaybookRepo) {
		repo.items["pb-known"] = models.Playbook{
			ID:             "pb-known",
			Title:          "Scale checkout replicas",
			PatternType:    models.CorrelationMetricMetric,
			ServicePattern: "checkout",
			Status:         models.StatusActive,
			AutomationLevel: models.AutomationFull,
		}
	})

	outcomes, err := ctrl.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	out := outcomes[0]
	assert.Equal(t, models.AutomationFull, out.Decision.Automation)
	assert.Equal(t, models.DecisionAutoApprove, out.Decision.DecisionType)
	assert.Equal(t, recommender.StatusReady, out.Recommendation.Status)
	assert.True(t, out.AutoApproved)
	assert.Equal(t, models.ReviewApproved, out.Review.State)
	assert.Equal(t, AutoApproveReviewer, out.Review.Reviewer)

	// Cluster, decision, and review must all have landed in the graph store.
	_, ok := graph.Nodes[out.Cluster.ID]
	assert.True(t, ok)
	_, ok = graph.Nodes[out.Decision.ID]
	assert.True(t, ok)
	_, ok = graph.Nodes[out.Review.ID]
	assert.True(t, ok)
}

func TestController_Tick_RequiresApprovalForGeneratedPlaybook(t *testing.T) {
	alert := adapters.RawAlert{Service: "checkout", Severity: "info", Description: "unfamiliar failure pattern", Labels: map[string]string{}}
	specialist := models.SpecialistResult{
		SpecialistID:   "metrics",
		Hypothesis:     "Novel failure mode, no matching playbook",
		BaseConfidence: 0.9,
		Evidence: []models.EvidenceItem{
			{Kind: models.EvidenceMetric, Source: "prometheus", Description: "unusual pattern", Quality: 0.9},
		},
		SuggestedActions: []string{"investigate manually"},
		Status:           models.CompletionSuccess,
	}

	ctrl, _, playbookRepo := buildController(t, alert, specialist, nil)

	outcomes, err := ctrl.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	out := outcomes[0]
	assert.Equal(t, recommender.StatusRequiresApproval, out.Recommendation.Status)
	assert.False(t, out.AutoApproved)
	assert.Equal(t, models.ReviewPending, out.Review.State)

	stored, err := playbookRepo.Get(context.Background(), out.Recommendation.Playbook.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingReview, stored.Status)
}

func TestController_Tick_NoProviderAvailable_SkipsTickAndAudits(t *testing.T) {
	registry, err := alerts.NewProviderRegistry(alerts.ProviderDescriptor{
		Provider: &fakeAlertProvider{name: "prometheus", err: strandserr.New(strandserr.KindUpstreamUnavailable, "test", nil)},
		Priority: 10,
	})
	require.NoError(t, err)

	var buf bufferWriter
	ctrl := New(Config{
		Collector:  alerts.NewCollector(registry),
		Normalizer: alerts.NewNormalizer(nil, time.Millisecond, nil),
		Clusterer:  alerts.NewClusterer(time.Minute),
		AuditLog:   audit.NewLogger(&buf),
		TickBudget: time.Second,
	})

	outcomes, err := ctrl.Tick(context.Background())
	assert.Error(t, err)
	assert.True(t, strandserr.HasKind(err, strandserr.KindNoProviderAvailable))
	assert.Nil(t, outcomes)
	assert.Contains(t, buf.String(), "TICK_SKIPPED")
}

func (b *bufferWriter) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.data)
}
