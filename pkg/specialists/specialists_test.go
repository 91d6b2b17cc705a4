package specialists

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strands-sre/strands/pkg/adapters"
	"github.com/strands-sre/strands/pkg/correlation"
	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/resilience"
)

func testPolicy() *resilience.Policy {
	return resilience.NewPolicy("test", resilience.DefaultBreakerConfig(), resilience.DefaultRetryConfig(), time.Second)
}

func sampleCluster() models.AlertCluster {
	now := time.Now()
	return models.AlertCluster{
		ID:               "cl-1",
		CanonicalService: "checkout",
		Members: []models.NormalisedAlert{
			{Alert: models.Alert{Fingerprint: "a1", Description: "p99 latency spike", ArrivedAt: now}},
			{Alert: models.Alert{Fingerprint: "a2", Description: "5xx error burst", ArrivedAt: now.Add(30 * time.Second)}},
		},
	}
}

func TestMetricsAnalyst_DetectsElevatedErrorRate(t *testing.T) {
	source := adapters.NewFakeMetricsSource()
	cluster := sampleCluster()
	expr := `rate(http_requests_total{service="checkout",code=~"5.."}[5m])`
	source.Instant[expr] = 0.42

	m := NewMetricsAnalyst(source, testPolicy())
	result := m.Investigate(context.Background(), cluster)

	require.Equal(t, models.CompletionSuccess, result.Status)
	require.Greater(t, result.BaseConfidence, 0.5)
	require.Len(t, result.Evidence, 1)
	require.Equal(t, models.EvidenceMetric, result.Evidence[0].Kind)
}

func TestMetricsAnalyst_ErrorDoesNotPanic(t *testing.T) {
	source := adapters.NewFakeMetricsSource()
	source.FailNext = true

	m := NewMetricsAnalyst(source, testPolicy())
	result := m.Investigate(context.Background(), sampleCluster())

	require.Equal(t, models.CompletionError, result.Status)
	require.Equal(t, "UPSTREAM_UNAVAILABLE", result.ErrorKind)
}

func TestLogInspector_FlagsCrashSignature(t *testing.T) {
	introspector := adapters.NewFakeClusterIntrospector()
	introspector.Pods = []adapters.PodRef{{Namespace: "default", Name: "checkout-0"}}
	introspector.Logs["default/checkout-0"] = "panic: nil pointer dereference"

	l := NewLogInspector(introspector, testPolicy())
	result := l.Investigate(context.Background(), sampleCluster())

	require.Equal(t, models.CompletionSuccess, result.Status)
	require.Len(t, result.Evidence, 1)
	require.Greater(t, result.BaseConfidence, 0.5)
}

func TestLogInspector_NoCrashSignature(t *testing.T) {
	introspector := adapters.NewFakeClusterIntrospector()
	introspector.Pods = []adapters.PodRef{{Namespace: "default", Name: "checkout-0"}}
	introspector.Logs["default/checkout-0"] = "handled request in 12ms"

	l := NewLogInspector(introspector, testPolicy())
	result := l.Investigate(context.Background(), sampleCluster())

	require.Equal(t, models.CompletionSuccess, result.Status)
	require.Empty(t, result.Evidence)
	require.Less(t, result.BaseConfidence, 0.5)
}

func TestEmbeddingSimilarity_FindsPriorIncident(t *testing.T) {
	generator := adapters.NewFakeTextGenerator()
	vectors := adapters.NewFakeVectorStore()
	ctx := context.Background()

	vec, err := generator.Embed(ctx, clusterText(sampleCluster()))
	require.NoError(t, err)
	require.NoError(t, vectors.Upsert(ctx, "incident-1", vec, map[string]any{"playbook_id": "pb-9"}))

	e := NewEmbeddingSimilarity(generator, vectors, testPolicy())
	result := e.Investigate(ctx, sampleCluster())

	require.Equal(t, models.CompletionSuccess, result.Status)
	require.NotEmpty(t, result.Evidence)
	require.Contains(t, result.SuggestedActions[0], "pb-9")
}

func TestGraphContext_ReportsExistingPlaybooks(t *testing.T) {
	graph := adapters.NewFakeGraphStore()
	require.NoError(t, graph.UpsertNode(context.Background(), adapters.GraphNode{
		ID: "pb-1", Label: "Playbook", Properties: map[string]any{"playbook_id": "pb-1", "status": "ACTIVE"},
	}))

	g := NewGraphContext(graph, testPolicy())
	result := g.Investigate(context.Background(), sampleCluster())

	require.Equal(t, models.CompletionSuccess, result.Status)
	require.NotEmpty(t, result.Evidence)
}

func TestCorrelator_DetectsEventChain(t *testing.T) {
	c := NewCorrelator(correlation.NewAnalyzer(correlation.DefaultConfig()))
	result := c.Investigate(context.Background(), sampleCluster())

	require.Equal(t, models.CompletionSuccess, result.Status)
	require.NotEmpty(t, result.Evidence)
	require.Greater(t, result.BaseConfidence, 0.0)
}

func TestCorrelator_NoChainForSingleMember(t *testing.T) {
	cluster := sampleCluster()
	cluster.Members = cluster.Members[:1]

	c := NewCorrelator(correlation.NewAnalyzer(correlation.DefaultConfig()))
	result := c.Investigate(context.Background(), cluster)

	require.Equal(t, models.CompletionSuccess, result.Status)
	require.Empty(t, result.Evidence)
}
