package alerts

import (
	"context"

	"github.com/strands-sre/strands/pkg/adapters"
	"github.com/strands-sre/strands/pkg/resilience"
)

// metricsProvider adapts an adapters.MetricsSource into the Provider
// interface Collector polls, running every call through a per-provider
// resilience.Policy the same way every other C2 adapter call does.
type metricsProvider struct {
	name   string
	source adapters.MetricsSource
	policy *resilience.Policy
}

// NewMetricsProvider wraps source as a named Provider for registration in a
// ProviderRegistry. name becomes the PROVIDER_* identity used in logs,
// metrics labels and the resilience.Registry breaker name.
func NewMetricsProvider(name string, source adapters.MetricsSource, policy *resilience.Policy) Provider {
	return &metricsProvider{name: name, source: source, policy: policy}
}

func (p *metricsProvider) Name() string { return p.name }

func (p *metricsProvider) ListActive(ctx context.Context) ([]adapters.RawAlert, error) {
	var alerts []adapters.RawAlert
	err := p.policy.Execute(ctx, func(ctx context.Context) error {
		raw, err := p.source.ListActiveAlerts(ctx)
		if err != nil {
			return err
		}
		alerts = raw
		return nil
	})
	return alerts, err
}
