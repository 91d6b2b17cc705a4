// Package swarm implements the C5 swarm orchestrator: parallel dispatch of
// investigation specialists under a single global deadline, with
// per-specialist isolation and deterministic result ordering. Grounded on
// this codebase's pkg/agent/orchestrator.SubAgentRunner, generalised from
// "sub-agent" to "specialist" and collapsed from an async dispatch/consume
// API to a single bounded fan-out/fan-in call per cluster investigation.
package swarm

import (
	"context"
	"fmt"
	"sort"

	"github.com/strands-sre/strands/pkg/models"
)

// Specialist investigates one alert cluster and returns its finding. Real
// specialists perform their own C1-guarded adapter calls; they must respect
// ctx's deadline individually.
type Specialist interface {
	ID() string
	Investigate(ctx context.Context, cluster models.AlertCluster) models.SpecialistResult
}

// Registry holds the fixed set of specialists dispatched for every
// investigation, mirroring this codebase's config.SubAgentRegistry lookup
// pattern.
type Registry struct {
	specialists map[string]Specialist
	order       []string
}

// NewRegistry builds a registry from an ordered specialist list. Registration
// order is preserved only for Names(); result ordering itself is always by
// specialist id, not registration order.
func NewRegistry(specialists ...Specialist) (*Registry, error) {
	r := &Registry{specialists: make(map[string]Specialist, len(specialists))}
	for _, s := range specialists {
		id := s.ID()
		if id == "" {
			return nil, fmt.Errorf("swarm: specialist with empty id")
		}
		if _, dup := r.specialists[id]; dup {
			return nil, fmt.Errorf("swarm: duplicate specialist id %q", id)
		}
		r.specialists[id] = s
		r.order = append(r.order, id)
	}
	return r, nil
}

// Get looks up a specialist by id.
func (r *Registry) Get(id string) (Specialist, bool) {
	s, ok := r.specialists[id]
	return s, ok
}

// Names returns specialist ids in deterministic (sorted) order.
func (r *Registry) Names() []string {
	ids := append([]string(nil), r.order...)
	sort.Strings(ids)
	return ids
}

// Len reports the number of registered specialists.
func (r *Registry) Len() int {
	return len(r.specialists)
}
