package specialists

import (
	"context"
	"fmt"
	"time"

	"github.com/strands-sre/strands/pkg/adapters"
	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/resilience"
)

// graphContextQuery looks up prior executions of playbooks targeting the
// cluster's canonical service, over the same TARGETS relation the
// graph store's persisted-state layout defines.
const graphContextQuery = `
MATCH (p:Playbook)-[:TARGETS]->(:Service {name: $service})
OPTIONAL MATCH (p)<-[:EXECUTED_BY]-(e:PlaybookExecution)
RETURN p.id AS playbook_id, p.status AS status, count(e) AS executions
ORDER BY executions DESC
LIMIT 5
`

// GraphContext queries the graph store for playbooks already linked to the
// cluster's service.
type GraphContext struct {
	graph  adapters.GraphStore
	policy *resilience.Policy
}

func NewGraphContext(graph adapters.GraphStore, policy *resilience.Policy) *GraphContext {
	return &GraphContext{graph: graph, policy: policy}
}

func (g *GraphContext) ID() string { return "graph" }

func (g *GraphContext) Investigate(ctx context.Context, cluster models.AlertCluster) models.SpecialistResult {
	start := time.Now()

	var rows []map[string]any
	err := g.policy.Execute(ctx, func(ctx context.Context) error {
		r, err := g.graph.Query(ctx, graphContextQuery, map[string]any{"service": cluster.CanonicalService})
		rows = r
		return err
	})
	if err != nil {
		return errorResult(g.ID(), err, start)
	}

	evidence := make([]models.EvidenceItem, 0, len(rows))
	for _, row := range rows {
		playbookID, _ := row["playbook_id"].(string)
		evidence = append(evidence, evidenceOf(models.EvidenceGraphRelation, playbookID,
			fmt.Sprintf("playbook %s already targets %s", playbookID, cluster.CanonicalService), 0.7, start, nil))
	}

	hypothesis := fmt.Sprintf("no existing playbook targets %s", cluster.CanonicalService)
	confidence := 0.15
	if len(rows) > 0 {
		hypothesis = fmt.Sprintf("%d existing playbook(s) already target %s", len(rows), cluster.CanonicalService)
		confidence = 0.65
	}

	return models.SpecialistResult{
		SpecialistID:     g.ID(),
		Hypothesis:       hypothesis,
		BaseConfidence:   confidence,
		Evidence:         evidence,
		SuggestedActions: []string{"consider reusing the highest-scoring existing playbook"},
		Status:           models.CompletionSuccess,
		Duration:         time.Since(start),
	}
}
