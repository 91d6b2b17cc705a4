package adapters

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/strands-sre/strands/pkg/strandserr"
)

// The fakes below back unit tests that need an adapter without a live
// backend, mirroring this codebase's agent.NewStubToolExecutor stand-in
// pattern (pkg/agent/orchestrator's createSubAgentToolExecutor falls back
// to a stub when no MCP servers are configured).

// FakeMetricsSource is an in-memory MetricsSource driven by caller-supplied
// fixtures.
type FakeMetricsSource struct {
	mu     sync.Mutex
	Instant map[string]float64
	Ranges  map[string]struct {
		Timestamps []int64
		Values     []float64
	}
	Alerts []RawAlert
	FailNext bool
}

func NewFakeMetricsSource() *FakeMetricsSource {
	return &FakeMetricsSource{Instant: map[string]float64{}, Ranges: map[string]struct {
		Timestamps []int64
		Values     []float64
	}{}}
}

func (f *FakeMetricsSource) QueryInstant(ctx context.Context, expr string, at time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNext {
		f.FailNext = false
		return 0, strandserr.New(strandserr.KindUpstreamUnavailable, "FakeMetricsSource.QueryInstant", nil)
	}
	v, ok := f.Instant[expr]
	if !ok {
		return math.NaN(), nil
	}
	return v, nil
}

func (f *FakeMetricsSource) QueryRange(ctx context.Context, expr string, start, end time.Time, step time.Duration) ([]int64, []float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNext {
		f.FailNext = false
		return nil, nil, strandserr.New(strandserr.KindUpstreamUnavailable, "FakeMetricsSource.QueryRange", nil)
	}
	r, ok := f.Ranges[expr]
	if !ok {
		return nil, nil, nil
	}
	return r.Timestamps, r.Values, nil
}

func (f *FakeMetricsSource) ListActiveAlerts(ctx context.Context) ([]RawAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNext {
		f.FailNext = false
		return nil, strandserr.New(strandserr.KindUpstreamUnavailable, "FakeMetricsSource.ListActiveAlerts", nil)
	}
	return append([]RawAlert(nil), f.Alerts...), nil
}

// FakeClusterIntrospector is an in-memory ClusterIntrospector.
type FakeClusterIntrospector struct {
	Pods   []PodRef
	Logs   map[string]string // keyed by namespace/name
	Events []ClusterEvent
}

func NewFakeClusterIntrospector() *FakeClusterIntrospector {
	return &FakeClusterIntrospector{Logs: map[string]string{}}
}

func (f *FakeClusterIntrospector) ListPods(ctx context.Context, selector string) ([]PodRef, error) {
	return append([]PodRef(nil), f.Pods...), nil
}

func (f *FakeClusterIntrospector) FetchLogs(ctx context.Context, pod PodRef, since time.Time, lines int) (string, error) {
	return f.Logs[pod.Namespace+"/"+pod.Name], nil
}

func (f *FakeClusterIntrospector) FetchEvents(ctx context.Context, namespace string, since time.Time) ([]ClusterEvent, error) {
	var out []ClusterEvent
	for _, e := range f.Events {
		if e.Namespace == namespace && !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

// FakeGraphStore is an in-memory GraphStore.
type FakeGraphStore struct {
	mu        sync.Mutex
	Nodes     map[string]GraphNode
	Relations []GraphRelation
}

func NewFakeGraphStore() *FakeGraphStore {
	return &FakeGraphStore{Nodes: map[string]GraphNode{}}
}

func (f *FakeGraphStore) UpsertNode(ctx context.Context, node GraphNode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Nodes[node.ID] = node
	return nil
}

func (f *FakeGraphStore) UpsertRelation(ctx context.Context, rel GraphRelation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Relations = append(f.Relations, rel)
	return nil
}

func (f *FakeGraphStore) Query(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []map[string]any
	for _, n := range f.Nodes {
		row := map[string]any{"id": n.ID, "label": n.Label}
		for k, v := range n.Properties {
			row[k] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FakeVectorStore is an in-memory VectorStore doing a brute-force cosine
// scan, the same approach the real go-redis-backed adapter uses at this
// deployment's scale.
type FakeVectorStore struct {
	mu    sync.Mutex
	items map[string]vectorEntry
}

type vectorEntry struct {
	vector  []float64
	payload map[string]any
}

func NewFakeVectorStore() *FakeVectorStore {
	return &FakeVectorStore{items: map[string]vectorEntry{}}
}

func (f *FakeVectorStore) Upsert(ctx context.Context, id string, vector []float64, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[id] = vectorEntry{vector: vector, payload: payload}
	return nil
}

func (f *FakeVectorStore) Search(ctx context.Context, vector []float64, topK int, minScore float64) ([]ScoredMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matches := make([]ScoredMatch, 0, len(f.items))
	for id, e := range f.items {
		score := cosineSimilarity(vector, e.vector)
		if score >= minScore {
			matches = append(matches, ScoredMatch{ID: id, Score: score, Payload: e.payload})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// FakeTextGenerator is an in-memory TextGenerator returning scripted
// responses, or a deterministic local embedding for Embed (same fallback
// the real adapter uses when no embedding model is configured).
type FakeTextGenerator struct {
	mu            sync.Mutex
	GenerateReply string
	GenerateErr   error
	EmbedDim      int
}

func NewFakeTextGenerator() *FakeTextGenerator {
	return &FakeTextGenerator{EmbedDim: 32}
}

func (f *FakeTextGenerator) Embed(ctx context.Context, text string) ([]float64, error) {
	return HashedBagOfTokensEmbedding(text, f.EmbedDim), nil
}

func (f *FakeTextGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GenerateErr != nil {
		return "", f.GenerateErr
	}
	if f.GenerateReply != "" {
		return f.GenerateReply, nil
	}
	return "generated: " + prompt, nil
}

// HashedBagOfTokensEmbedding computes a deterministic fixed-dim embedding by
// hashing each whitespace-separated token into a bucket and accumulating a
// signed count, then L2-normalising. Used as the local fallback when no
// embedding model is configured (SPEC_FULL.md §4.2), and by FakeTextGenerator
// so tests get stable, comparable vectors without a live model.
func HashedBagOfTokensEmbedding(text string, dim int) []float64 {
	if dim <= 0 {
		dim = 32
	}
	vec := make([]float64, dim)
	var token []byte
	flush := func() {
		if len(token) == 0 {
			return
		}
		h := fnv32a(token)
		bucket := int(h % uint32(dim))
		sign := 1.0
		if (h>>31)&1 == 1 {
			sign = -1.0
		}
		vec[bucket] += sign
		token = token[:0]
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == ' ' || c == '\t' || c == '\n' {
			flush()
			continue
		}
		token = append(token, c)
	}
	flush()

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

func fnv32a(data []byte) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	h := uint32(offset32)
	for _, b := range data {
		h ^= uint32(b)
		h *= prime32
	}
	return h
}
