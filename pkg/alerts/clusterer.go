package alerts

import (
	"fmt"
	"sort"
	"time"

	"github.com/strands-sre/strands/pkg/models"
)

const defaultClusterWindow = 5 * time.Minute

// Clusterer groups normalised alerts by canonical service and a truncated
// time window.
type Clusterer struct {
	window time.Duration
}

// NewClusterer builds a Clusterer. A zero window defaults to
// 5 minutes.
func NewClusterer(window time.Duration) *Clusterer {
	if window <= 0 {
		window = defaultClusterWindow
	}
	return &Clusterer{window: window}
}

// Cluster groups alerts sharing a canonical service and time window into
// one AlertCluster each, returned in deterministic cluster-id order.
func (c *Clusterer) Cluster(alerts []models.NormalisedAlert) []models.AlertCluster {
	byKey := map[string]*models.AlertCluster{}
	var order []string

	for _, a := range alerts {
		windowStart := a.ArrivedAt.UTC().Truncate(c.window)
		id := fmt.Sprintf("%s@%s", a.CanonicalService, windowStart.Format(time.RFC3339))

		cluster, ok := byKey[id]
		if !ok {
			cluster = &models.AlertCluster{
				ID:               id,
				CanonicalService: a.CanonicalService,
				ClusterType:      "service-window",
				EarliestMember:   a.ArrivedAt,
				LatestMember:     a.ArrivedAt,
				CorrelationBasis: "service+5m-window",
			}
			byKey[id] = cluster
			order = append(order, id)
		}

		cluster.AddMember(a)
		if a.ArrivedAt.Before(cluster.EarliestMember) {
			cluster.EarliestMember = a.ArrivedAt
		}
		if a.ArrivedAt.After(cluster.LatestMember) {
			cluster.LatestMember = a.ArrivedAt
		}
	}

	sort.Strings(order)
	clusters := make([]models.AlertCluster, 0, len(order))
	for _, id := range order {
		clusters = append(clusters, *byKey[id])
	}
	return clusters
}
