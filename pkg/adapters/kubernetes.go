package adapters

import (
	"bytes"
	"context"
	"io"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/strands-sre/strands/pkg/resilience"
	"github.com/strands-sre/strands/pkg/strandserr"
)

// KubernetesIntrospector is the concrete ClusterIntrospector adapter over
// client-go: pod listing, log streaming and event lookup against an
// in-cluster or kubeconfig-derived clientset.
type KubernetesIntrospector struct {
	clientset *kubernetes.Clientset
	policy    *resilience.Policy
}

// NewKubernetesIntrospector builds a ClusterIntrospector from an existing
// rest.Config (in-cluster config or a kubeconfig-derived one; the caller
// picks whichever fits its deployment).
// A nil policy creates a default-configured one scoped to the "kubernetes"
// adapter name.
func NewKubernetesIntrospector(cfg *rest.Config, policy *resilience.Policy) (*KubernetesIntrospector, error) {
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		policy = resilience.NewPolicy("kubernetes", resilience.DefaultBreakerConfig(), resilience.DefaultRetryConfig(), resilience.DefaultTimeout)
	}
	return &KubernetesIntrospector{clientset: clientset, policy: policy}, nil
}

// ListPods lists every pod across all namespaces matching selector, guarded
// by the resilience policy.
func (k *KubernetesIntrospector) ListPods(ctx context.Context, selector string) ([]PodRef, error) {
	var out []PodRef
	err := k.policy.Execute(ctx, func(callCtx context.Context) error {
		list, lErr := k.clientset.CoreV1().Pods(metav1.NamespaceAll).List(callCtx, metav1.ListOptions{LabelSelector: selector})
		if lErr != nil {
			return strandserr.New(strandserr.KindUpstreamUnavailable, "KubernetesIntrospector.ListPods", lErr)
		}
		out = make([]PodRef, 0, len(list.Items))
		for _, p := range list.Items {
			out = append(out, PodRef{Namespace: p.Namespace, Name: p.Name})
		}
		return nil
	})
	return out, err
}

// FetchLogs streams up to lines of pod's most recent container log,
// restricted to entries since the given time.
func (k *KubernetesIntrospector) FetchLogs(ctx context.Context, pod PodRef, since time.Time, lines int) (string, error) {
	var out string
	err := k.policy.Execute(ctx, func(callCtx context.Context) error {
		sinceTime := metav1.NewTime(since)
		opts := &corev1.PodLogOptions{SinceTime: &sinceTime}
		if lines > 0 {
			tail := int64(lines)
			opts.TailLines = &tail
		}
		stream, sErr := k.clientset.CoreV1().Pods(pod.Namespace).GetLogs(pod.Name, opts).Stream(callCtx)
		if sErr != nil {
			return strandserr.New(strandserr.KindUpstreamUnavailable, "KubernetesIntrospector.FetchLogs", sErr)
		}
		defer stream.Close()

		var buf bytes.Buffer
		if _, cErr := io.Copy(&buf, stream); cErr != nil {
			return strandserr.New(strandserr.KindUpstreamUnavailable, "KubernetesIntrospector.FetchLogs", cErr)
		}
		out = buf.String()
		return nil
	})
	return out, err
}

// FetchEvents lists Kubernetes events in namespace that occurred at or
// after since.
func (k *KubernetesIntrospector) FetchEvents(ctx context.Context, namespace string, since time.Time) ([]ClusterEvent, error) {
	var out []ClusterEvent
	err := k.policy.Execute(ctx, func(callCtx context.Context) error {
		list, lErr := k.clientset.CoreV1().Events(namespace).List(callCtx, metav1.ListOptions{})
		if lErr != nil {
			return strandserr.New(strandserr.KindUpstreamUnavailable, "KubernetesIntrospector.FetchEvents", lErr)
		}
		out = make([]ClusterEvent, 0, len(list.Items))
		for _, e := range list.Items {
			ts := e.LastTimestamp.Time
			if ts.IsZero() {
				ts = e.EventTime.Time
			}
			if ts.Before(since) {
				continue
			}
			out = append(out, ClusterEvent{
				Timestamp: ts,
				Namespace: e.Namespace,
				Reason:    e.Reason,
				Message:   e.Message,
			})
		}
		return nil
	})
	return out, err
}
