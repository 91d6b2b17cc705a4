package swarm

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/strandserr"
)

// DefaultDeadline is the default global swarm deadline.
const DefaultDeadline = 30 * time.Second

// Investigation is the outcome of one swarm run: the deterministically
// ordered specialist results plus whether the investigation degraded to
// zero successes.
type Investigation struct {
	ClusterID string
	Results   []models.SpecialistResult
	Degraded  bool
}

// Runner coordinates one swarm investigation per call. It is the sole owner
// of shared state for the duration of a run.
type Runner struct {
	registry *Registry
	deadline time.Duration
}

// NewRunner builds a Runner. A zero deadline selects DefaultDeadline.
func NewRunner(registry *Registry, deadline time.Duration) *Runner {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	return &Runner{registry: registry, deadline: deadline}
}

type specialistOutcome struct {
	id     string
	result models.SpecialistResult
}

// Investigate fans out one goroutine per registered specialist, all sharing
// a single deadline-bound context derived from ctx, collects results on a
// buffered channel sized to the specialist count, and returns them
// deterministically ordered by specialist id.
// Specialists that have not produced a result by the deadline receive a
// synthetic TIMEOUT result (step 3). If zero specialists succeed, the
// investigation is marked Degraded (step 4) but results are still returned —
// callers still emit a decision rather than aborting the tick outright.
func (r *Runner) Investigate(ctx context.Context, cluster models.AlertCluster) (Investigation, error) {
	if r.registry == nil || r.registry.Len() == 0 {
		return Investigation{}, strandserr.New(strandserr.KindValidationFailed, "swarm.Investigate", nil).WithDetail("no specialists registered")
	}

	swarmCtx, cancel := context.WithTimeout(ctx, r.deadline)
	defer cancel()

	ids := r.registry.Names()
	outcomes := make(chan specialistOutcome, len(ids))

	var wg sync.WaitGroup
	for _, id := range ids {
		specialist, ok := r.registry.Get(id)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(id string, s Specialist) {
			defer wg.Done()
			start := time.Now()
			result := s.Investigate(swarmCtx, cluster)
			if result.SpecialistID == "" {
				result.SpecialistID = id
			}
			if result.Duration == 0 {
				result.Duration = time.Since(start)
			}
			select {
			case outcomes <- specialistOutcome{id: id, result: result}:
			case <-swarmCtx.Done():
				// Coordinator already moved on to synthesising a timeout
				// result for this id; drop silently.
			}
		}(id, specialist)
	}

	// Close the channel once every goroutine has either delivered or bailed,
	// so the collection loop below terminates deterministically.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	received := make(map[string]models.SpecialistResult, len(ids))
collect:
	for len(received) < len(ids) {
		select {
		case o := <-outcomes:
			received[o.id] = o.result
		case <-swarmCtx.Done():
			break collect
		case <-done:
			// Drain whatever already landed in the buffered channel without
			// blocking further.
			for {
				select {
				case o := <-outcomes:
					received[o.id] = o.result
				default:
					break collect
				}
			}
		}
	}

	results := make([]models.SpecialistResult, 0, len(ids))
	successCount := 0
	for _, id := range ids {
		res, ok := received[id]
		if !ok {
			res = models.SpecialistResult{
				SpecialistID: id,
				Status:       models.CompletionTimeout,
			}
		}
		if res.Status == models.CompletionSuccess {
			successCount++
		}
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].SpecialistID < results[j].SpecialistID })

	return Investigation{
		ClusterID: cluster.ID,
		Results:   results,
		Degraded:  successCount == 0,
	}, nil
}
