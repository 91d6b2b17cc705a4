package adapters

import (
	"context"
	"fmt"
	"time"

	promapi "github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/strands-sre/strands/pkg/resilience"
	"github.com/strands-sre/strands/pkg/strandserr"
)

// PrometheusMetricsSource is the concrete MetricsSource adapter over
// prometheus/client_golang, using api/prometheus/v1 for instant and range
// queries.
type PrometheusMetricsSource struct {
	api    promv1.API
	policy *resilience.Policy
}

// NewPrometheusMetricsSource builds a MetricsSource against a Prometheus
// (or Prometheus-compatible) server at addr. A nil policy creates a
// default-configured one scoped to the "prometheus" adapter name.
func NewPrometheusMetricsSource(addr string, policy *resilience.Policy) (*PrometheusMetricsSource, error) {
	client, err := promapi.NewClient(promapi.Config{Address: addr})
	if err != nil {
		return nil, fmt.Errorf("prometheus client: %w", err)
	}
	if policy == nil {
		policy = resilience.NewPolicy("prometheus", resilience.DefaultBreakerConfig(), resilience.DefaultRetryConfig(), resilience.DefaultTimeout)
	}
	return &PrometheusMetricsSource{api: promv1.NewAPI(client), policy: policy}, nil
}

// QueryInstant evaluates expr at a single point in time, guarded by the
// resilience policy.
func (p *PrometheusMetricsSource) QueryInstant(ctx context.Context, expr string, at time.Time) (float64, error) {
	var out float64
	err := p.policy.Execute(ctx, func(callCtx context.Context) error {
		value, warnings, qErr := p.api.Query(callCtx, expr, at)
		logPromWarnings(warnings)
		if qErr != nil {
			return strandserr.New(strandserr.KindUpstreamUnavailable, "PrometheusMetricsSource.QueryInstant", qErr)
		}
		v, ok := firstSampleValue(value)
		if !ok {
			return strandserr.New(strandserr.KindUpstreamUnavailable, "PrometheusMetricsSource.QueryInstant", fmt.Errorf("empty result for %q", expr))
		}
		out = v
		return nil
	})
	return out, err
}

// QueryRange evaluates expr over [start, end] at step granularity.
func (p *PrometheusMetricsSource) QueryRange(ctx context.Context, expr string, start, end time.Time, step time.Duration) ([]int64, []float64, error) {
	var timestamps []int64
	var values []float64
	err := p.policy.Execute(ctx, func(callCtx context.Context) error {
		r := promv1.Range{Start: start, End: end, Step: step}
		value, warnings, qErr := p.api.QueryRange(callCtx, expr, r)
		logPromWarnings(warnings)
		if qErr != nil {
			return strandserr.New(strandserr.KindUpstreamUnavailable, "PrometheusMetricsSource.QueryRange", qErr)
		}
		matrix, ok := value.(model.Matrix)
		if !ok || len(matrix) == 0 {
			return nil
		}
		for _, pair := range matrix[0].Values {
			timestamps = append(timestamps, pair.Timestamp.Unix())
			values = append(values, float64(pair.Value))
		}
		return nil
	})
	return timestamps, values, err
}

// ListActiveAlerts lists every currently firing alert known to the
// Prometheus Alertmanager-adjacent /alerts endpoint.
func (p *PrometheusMetricsSource) ListActiveAlerts(ctx context.Context) ([]RawAlert, error) {
	var out []RawAlert
	err := p.policy.Execute(ctx, func(callCtx context.Context) error {
		result, aErr := p.api.Alerts(callCtx)
		if aErr != nil {
			return strandserr.New(strandserr.KindUpstreamUnavailable, "PrometheusMetricsSource.ListActiveAlerts", aErr)
		}
		out = make([]RawAlert, 0, len(result.Alerts))
		for _, a := range result.Alerts {
			out = append(out, RawAlert{
				Service:     string(a.Labels["service"]),
				Severity:    string(a.Labels["severity"]),
				Description: string(a.Annotations["description"]),
				Labels:      labelSetToMap(a.Labels),
				Annotations: labelSetToMap(a.Annotations),
			})
		}
		return nil
	})
	return out, err
}

func firstSampleValue(value model.Value) (float64, bool) {
	switch v := value.(type) {
	case model.Vector:
		if len(v) == 0 {
			return 0, false
		}
		return float64(v[0].Value), true
	case *model.Scalar:
		if v == nil {
			return 0, false
		}
		return float64(v.Value), true
	default:
		return 0, false
	}
}

func labelSetToMap(set model.LabelSet) map[string]string {
	out := make(map[string]string, len(set))
	for k, v := range set {
		out[string(k)] = string(v)
	}
	return out
}

func logPromWarnings(w promv1.Warnings) {
	_ = w // surfaced via resilience.Metrics, not logged per-call to avoid noisy ticks
}
