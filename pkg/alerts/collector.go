package alerts

import (
	"context"
	"log/slog"
	"time"

	"github.com/strands-sre/strands/pkg/adapters"
	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/strandserr"
)

// Collector polls the registry's providers in priority order, failing over
// to the next provider on error and returning the first provider that
// succeeds. A total
// failure across every provider surfaces NO_PROVIDER_AVAILABLE, at which
// point the controller skips the tick.
type Collector struct {
	registry *ProviderRegistry
	now      func() time.Time
	logger   *slog.Logger
}

// NewCollector builds a Collector over the given registry.
func NewCollector(registry *ProviderRegistry) *Collector {
	return &Collector{registry: registry, now: time.Now, logger: slog.Default().With("component", "alerts-collector")}
}

// Poll tries each registered provider, highest priority first, returning
// the first one's alerts converted to models.Alert. Every provider failing
// returns a KindNoProviderAvailable error.
func (c *Collector) Poll(ctx context.Context) ([]models.Alert, error) {
	for _, d := range c.registry.Ordered() {
		raw, err := d.Provider.ListActive(ctx)
		if err != nil {
			c.logger.Warn("alert provider failed, trying next", "provider", d.Provider.Name(), "error", err)
			continue
		}
		return c.convert(d, raw), nil
	}
	return nil, strandserr.New(strandserr.KindNoProviderAvailable, "alerts.Collector.Poll", nil)
}

func (c *Collector) convert(d ProviderDescriptor, raw []adapters.RawAlert) []models.Alert {
	out := make([]models.Alert, 0, len(raw))
	arrivedAt := c.now().UTC()
	for _, r := range raw {
		out = append(out, models.Alert{
			ArrivedAt:   arrivedAt,
			Provider:    d.Provider.Name(),
			Service:     r.Service,
			Severity:    r.Severity,
			Description: r.Description,
			Labels:      r.Labels,
			Annotations: r.Annotations,
			Status:      models.AlertStatusFiring,
		})
	}
	return out
}
