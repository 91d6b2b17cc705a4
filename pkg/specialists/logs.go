package specialists

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/strands-sre/strands/pkg/adapters"
	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/resilience"
)

var crashKeywords = []string{"panic", "oom", "killed", "fatal", "exception", "traceback"}

// LogInspector lists the pods selected by the cluster's canonical service,
// pulls each pod's recent logs, and flags restart-loop or crash signatures.
type LogInspector struct {
	introspector adapters.ClusterIntrospector
	policy       *resilience.Policy
	lookback     time.Duration
}

func NewLogInspector(introspector adapters.ClusterIntrospector, policy *resilience.Policy) *LogInspector {
	return &LogInspector{introspector: introspector, policy: policy, lookback: 10 * time.Minute}
}

func (l *LogInspector) ID() string { return "logs" }

func (l *LogInspector) Investigate(ctx context.Context, cluster models.AlertCluster) models.SpecialistResult {
	start := time.Now()
	selector := "app=" + cluster.CanonicalService

	var pods []adapters.PodRef
	err := l.policy.Execute(ctx, func(ctx context.Context) error {
		p, err := l.introspector.ListPods(ctx, selector)
		pods = p
		return err
	})
	if err != nil {
		return errorResult(l.ID(), err, start)
	}

	var evidence []models.EvidenceItem
	var restartTotal int
	since := start.Add(-l.lookback)
	for _, pod := range pods {
		var logs string
		if err := l.policy.Execute(ctx, func(ctx context.Context) error {
			text, err := l.introspector.FetchLogs(ctx, pod, since, 200)
			logs = text
			return err
		}); err != nil {
			continue
		}
		if matched := containsAny(logs, crashKeywords); matched {
			restartTotal++
			evidence = append(evidence, evidenceOf(models.EvidenceLog, pod.Name,
				fmt.Sprintf("crash signature in %s/%s logs", pod.Namespace, pod.Name), 0.75, start, nil))
		}
	}

	hypothesis := fmt.Sprintf("no crash signatures found across %d pods for %s", len(pods), cluster.CanonicalService)
	confidence := 0.2
	if restartTotal > 0 {
		hypothesis = fmt.Sprintf("%d of %d pods for %s show crash/restart log signatures", restartTotal, len(pods), cluster.CanonicalService)
		confidence = 0.8
	}

	return models.SpecialistResult{
		SpecialistID:     l.ID(),
		Hypothesis:       hypothesis,
		BaseConfidence:   confidence,
		Evidence:         evidence,
		SuggestedActions: []string{"describe crashing pods", "check recent image/config changes"},
		Status:           models.CompletionSuccess,
		Duration:         time.Since(start),
	}
}

func containsAny(haystack string, needles []string) bool {
	h := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(h, n) {
			return true
		}
	}
	return false
}
