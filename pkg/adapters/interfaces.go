// Package adapters defines the five narrow external-system contracts C2
// specialists and higher-level components depend on: metrics,
// cluster introspection, graph storage, vector storage, and text
// generation. Concrete ecosystem-backed implementations live in
// per-adapter files here (and, for the graph store, in pkg/store); every
// real adapter method is invoked only through pkg/resilience.Execute, never
// called directly by a specialist.
package adapters

import (
	"context"
	"time"
)

// MetricsSource is the Prometheus-shaped metrics contract.
type MetricsSource interface {
	QueryInstant(ctx context.Context, expr string, at time.Time) (float64, error)
	QueryRange(ctx context.Context, expr string, start, end time.Time, step time.Duration) (timestamps []int64, values []float64, err error)
	ListActiveAlerts(ctx context.Context) ([]RawAlert, error)
}

// RawAlert is a provider-agnostic alert payload as returned by a metrics
// source or alert provider, before C3 normalisation.
type RawAlert struct {
	Service     string
	Severity    string
	Description string
	Labels      map[string]string
	Annotations map[string]string
}

// ClusterIntrospector is the Kubernetes introspection contract.
type ClusterIntrospector interface {
	ListPods(ctx context.Context, selector string) ([]PodRef, error)
	FetchLogs(ctx context.Context, pod PodRef, since time.Time, lines int) (string, error)
	FetchEvents(ctx context.Context, namespace string, since time.Time) ([]ClusterEvent, error)
}

// PodRef identifies one pod.
type PodRef struct {
	Namespace string
	Name      string
}

// ClusterEvent is a Kubernetes event relevant to an investigation.
type ClusterEvent struct {
	Timestamp time.Time
	Namespace string
	Reason    string
	Message   string
}

// GraphNode is a labelled node with arbitrary JSON-able properties, the
// unit persisted by GraphStore.UpsertNode.
type GraphNode struct {
	ID         string
	Label      string
	Properties map[string]any
}

// GraphRelation is a directed, typed edge between two nodes.
type GraphRelation struct {
	FromID     string
	Type       string
	ToID       string
	Properties map[string]any
}

// GraphStore is the persistence contract backing the incident graph. Writes
// to playbook statistics MUST be single atomic operations;
// GraphStore.UpsertNode alone does not provide that — callers
// needing optimistic compare-and-set use pkg/playbook.Repository instead,
// which pkg/store's concrete GraphStore implementation also satisfies.
type GraphStore interface {
	UpsertNode(ctx context.Context, node GraphNode) error
	UpsertRelation(ctx context.Context, rel GraphRelation) error
	Query(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}

// VectorStore is the similarity-search contract.
type VectorStore interface {
	Upsert(ctx context.Context, id string, vector []float64, payload map[string]any) error
	Search(ctx context.Context, vector []float64, topK int, minScore float64) ([]ScoredMatch, error)
}

// ScoredMatch is one VectorStore.Search result.
type ScoredMatch struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// GenerateOptions configures one TextGenerator.Generate call.
type GenerateOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Stop        []string
}

// TextGenerator is the LLM contract: embeddings plus free-form generation
//. Both methods may fail with UPSTREAM_UNAVAILABLE.
type TextGenerator interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}
