package adapters

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/strands-sre/strands/pkg/resilience"
	"github.com/strands-sre/strands/pkg/strandserr"
)

// vectorKeyPrefix namespaces every key RedisVectorStore writes, so a shared
// Redis instance can host other strands keyspaces alongside it.
const vectorKeyPrefix = "strands:vector:"

// redisVectorRecord is the JSON envelope stored under each vector key.
type redisVectorRecord struct {
	Vector  []float64      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// RedisVectorStore is the concrete VectorStore adapter over go-redis/v9.
// Search does a brute-force
// cosine scan across every stored vector via SCAN+MGET, the same approach
// FakeVectorStore uses -- appropriate at this deployment's scale (a few
// thousand playbooks/evidence snippets, not a production ANN index).
type RedisVectorStore struct {
	client *redis.Client
	policy *resilience.Policy
}

// NewRedisVectorStore builds a VectorStore against an existing go-redis
// client (real or, in tests, a miniredis-backed one). A nil policy creates
// a default-configured one scoped to the "redis-vector" adapter name.
func NewRedisVectorStore(client *redis.Client, policy *resilience.Policy) *RedisVectorStore {
	if policy == nil {
		policy = resilience.NewPolicy("redis-vector", resilience.DefaultBreakerConfig(), resilience.DefaultRetryConfig(), resilience.DefaultTimeout)
	}
	return &RedisVectorStore{client: client, policy: policy}
}

// Upsert stores vector and payload under id, guarded by the resilience
// policy.
func (r *RedisVectorStore) Upsert(ctx context.Context, id string, vector []float64, payload map[string]any) error {
	return r.policy.Execute(ctx, func(callCtx context.Context) error {
		encoded, mErr := json.Marshal(redisVectorRecord{Vector: vector, Payload: payload})
		if mErr != nil {
			return strandserr.New(strandserr.KindUpstreamUnavailable, "RedisVectorStore.Upsert", mErr)
		}
		if sErr := r.client.Set(callCtx, vectorKeyPrefix+id, encoded, 0).Err(); sErr != nil {
			return strandserr.New(strandserr.KindUpstreamUnavailable, "RedisVectorStore.Upsert", sErr)
		}
		return nil
	})
}

// Search scans every stored vector, scoring by cosine similarity, and
// returns the topK matches at or above minScore, highest score first.
func (r *RedisVectorStore) Search(ctx context.Context, vector []float64, topK int, minScore float64) ([]ScoredMatch, error) {
	var out []ScoredMatch
	err := r.policy.Execute(ctx, func(callCtx context.Context) error {
		keys, kErr := r.scanKeys(callCtx)
		if kErr != nil {
			return strandserr.New(strandserr.KindUpstreamUnavailable, "RedisVectorStore.Search", kErr)
		}
		if len(keys) == 0 {
			return nil
		}

		values, gErr := r.client.MGet(callCtx, keys...).Result()
		if gErr != nil {
			return strandserr.New(strandserr.KindUpstreamUnavailable, "RedisVectorStore.Search", gErr)
		}

		matches := make([]ScoredMatch, 0, len(values))
		for i, raw := range values {
			str, ok := raw.(string)
			if !ok {
				continue
			}
			var rec redisVectorRecord
			if err := json.Unmarshal([]byte(str), &rec); err != nil {
				continue
			}
			score := cosineSimilarity(vector, rec.Vector)
			if score >= minScore {
				id := keys[i][len(vectorKeyPrefix):]
				matches = append(matches, ScoredMatch{ID: id, Score: score, Payload: rec.Payload})
			}
		}
		sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
		if topK > 0 && len(matches) > topK {
			matches = matches[:topK]
		}
		out = matches
		return nil
	})
	return out, err
}

func (r *RedisVectorStore) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, vectorKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
