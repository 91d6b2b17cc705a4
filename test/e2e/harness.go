// Package e2e drives the real alert-to-decision pipeline (pkg/alerts
// through pkg/incident) wired with the production specialist and
// aggregation stack, substituting only the five pkg/adapters external-
// system contracts with their in-memory fakes -- no live Postgres,
// Kubernetes, Redis, or Anthropic backend required. This is a step above
// pkg/incident's own controller_test.go, which drives the controller
// against a single stubbed swarm.Specialist: here every one of the five
// real pkg/specialists implementations runs, through a real swarm.Registry
// and resilience-guarded adapter calls, the way cmd/strands wires them in
// production.
package e2e

import (
	"context"
	"sync"
	"time"

	"github.com/strands-sre/strands/pkg/adapters"
	"github.com/strands-sre/strands/pkg/alerts"
	"github.com/strands-sre/strands/pkg/audit"
	"github.com/strands-sre/strands/pkg/correlation"
	"github.com/strands-sre/strands/pkg/decision"
	"github.com/strands-sre/strands/pkg/incident"
	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/playbook"
	"github.com/strands-sre/strands/pkg/recommender"
	"github.com/strands-sre/strands/pkg/resilience"
	"github.com/strands-sre/strands/pkg/review"
	"github.com/strands-sre/strands/pkg/specialists"
	"github.com/strands-sre/strands/pkg/swarm"
)

// fakeProvider adapts a single adapters.MetricsSource into an alerts.Provider
// without resilience wrapping, mirroring pkg/incident/controller_test.go's
// fakeAlertProvider but sourcing alerts from the same FakeMetricsSource the
// metrics specialist reads from, so one scenario's fixtures drive both C3
// ingestion and the C5 metrics investigation consistently.
type fakeProvider struct {
	name   string
	source *adapters.FakeMetricsSource
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) ListActive(ctx context.Context) ([]adapters.RawAlert, error) {
	return f.source.ListActiveAlerts(ctx)
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
	return r.items[id], nil
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

// noopNotifier discards every review notification, standing in for a nil
// *notify.Service the way production does when Slack isn't configured.
type noopNotifier struct{}

func (noopNotifier) NotifyPendingReview(ctx context.Context, decision models.DecisionCandidate) string {
	return ""
}
func (noopNotifier) NotifyReviewResolved(ctx context.Context, decision models.DecisionCandidate, record models.ReviewRecord, threadTS string) {
}

// fixtures bundles the fakes a scenario seeds before ticking the pipeline.
type fixtures struct {
	Metrics      *adapters.FakeMetricsSource
	Introspector *adapters.FakeClusterIntrospector
	Vectors      *adapters.FakeVectorStore
	Generator    *adapters.FakeTextGenerator
	Graph        *adapters.FakeGraphStore
	Playbooks    *fakePlaybookRepo
}

// harness is one fully-wired pipeline instance plus the fixtures that feed
// it, built the way cmd/strands/wiring.go's buildApp assembles the real
// process, minus every collaborator that needs a live backend.
type harness struct {
	controller *incident.Controller
	fixtures   fixtures
}

// buildHarness wires one Controller using a single named resilience policy
// per adapter, following wiring.go's per-adapter naming convention.
func buildHarness() *harness {
	registry := resilience.NewRegistry()

	metricsSource := adapters.NewFakeMetricsSource()
	introspector := adapters.NewFakeClusterIntrospector()
	vectors := adapters.NewFakeVectorStore()
	generator := adapters.NewFakeTextGenerator()
	graph := adapters.NewFakeGraphStore()

	providerRegistry, err := alerts.NewProviderRegistry(alerts.ProviderDescriptor{
		Provider: &fakeProvider{name: "prometheus", source: metricsSource},
		Priority: 10,
	})
	if err != nil {
		panic(err)
	}
	collector := alerts.NewCollector(providerRegistry)
	normalizer := alerts.NewNormalizer(nil, time.Millisecond, nil)
	clusterer := alerts.NewClusterer(time.Minute)

	specialistRegistry, err := swarm.NewRegistry(
		specialists.NewMetricsAnalyst(metricsSource, registry.Get("metrics-specialist")),
		specialists.NewLogInspector(introspector, registry.Get("logs-specialist")),
		specialists.NewEmbeddingSimilarity(generator, vectors, registry.Get("embeddings-specialist")),
		specialists.NewGraphContext(graph, registry.Get("graph-specialist")),
		specialists.NewCorrelator(correlation.NewAnalyzer(correlation.DefaultConfig())),
	)
	if err != nil {
		panic(err)
	}
	runner := swarm.NewRunner(specialistRegistry, 5*time.Second)

	playbookRepo := newFakePlaybookRepo()
	playbookSvc := playbook.NewService(playbookRepo, nil)
	rec := recommender.New(playbookRepo, generator, registry.Get("anthropic"))
	reviewSvc := review.NewService(newFakeReviewRepo(), playbookSvc, noopNotifier{})

	ctrl := incident.New(incident.Config{
		Collector:    collector,
		Normalizer:   normalizer,
		Clusterer:    clusterer,
		Investigator: runner,
		DecisionOpts: decision.Options{
			Weights:           decision.DefaultWeightMatrix(),
			Policy:            decision.PolicyPermissive,
			DefaultAutomation: models.AutomationFull,
		},
		Recommender: rec,
		Reviews:     reviewSvc,
		Graph:       graph,
		AuditLog:    audit.NewLogger(discard{}),
		TickBudget:  5 * time.Second,
	})

	return &harness{
		controller: ctrl,
		fixtures: fixtures{
			Metrics:      metricsSource,
			Introspector: introspector,
			Vectors:      vectors,
			Generator:    generator,
			Graph:        graph,
			Playbooks:    playbookRepo,
		},
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
