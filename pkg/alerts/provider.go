// Package alerts implements C3: provider polling, normalisation, and
// clustering of inbound alerts.
package alerts

import (
	"context"
	"sort"

	"github.com/strands-sre/strands/pkg/adapters"
	"github.com/strands-sre/strands/pkg/strandserr"
)

// Provider is a single upstream alert source, e.g. one configured
// Prometheus Alertmanager or a cloud-native monitoring backend. The real
// implementations wrap an adapters.MetricsSource; fakes implement this
// directly in tests.
type Provider interface {
	Name() string
	ListActive(ctx context.Context) ([]adapters.RawAlert, error)
}

// SeverityMap translates one provider's native severity strings to the
// canonical Severity enum.
type SeverityMap map[string]string

// ProviderDescriptor pairs a Provider with its static configuration,
// following this codebase's
// config.MCPServerRegistry static-descriptor-plus-lookup pattern.
type ProviderDescriptor struct {
	Provider    Provider
	Priority    int
	SeverityMap SeverityMap
}

// ProviderRegistry holds the configured providers ordered highest-priority
// first.
type ProviderRegistry struct {
	ordered []ProviderDescriptor
}

// NewProviderRegistry builds a registry from the given descriptors, sorted
// by descending priority (ties broken by provider name for determinism).
// Rejects duplicate provider names.
func NewProviderRegistry(descriptors ...ProviderDescriptor) (*ProviderRegistry, error) {
	seen := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		name := d.Provider.Name()
		if name == "" {
			return nil, strandserr.New(strandserr.KindValidationFailed, "alerts.NewProviderRegistry", nil).
				WithDetail("provider name must not be empty")
		}
		if seen[name] {
			return nil, strandserr.Newf(strandserr.KindValidationFailed, "alerts.NewProviderRegistry", "duplicate provider name %q", name)
		}
		seen[name] = true
	}
	ordered := append([]ProviderDescriptor(nil), descriptors...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].Provider.Name() < ordered[j].Provider.Name()
	})
	return &ProviderRegistry{ordered: ordered}, nil
}

// Ordered returns the configured descriptors, highest priority first.
func (r *ProviderRegistry) Ordered() []ProviderDescriptor {
	return append([]ProviderDescriptor(nil), r.ordered...)
}

// Len reports how many providers are registered.
func (r *ProviderRegistry) Len() int { return len(r.ordered) }
