package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
	"github.com/strands-sre/strands/pkg/strandserr"
)

// Metrics is a point-in-time snapshot of a Policy's counters.
type Metrics struct {
	Successes    int64
	Failures     int64
	Rejections   int64
	Retries      int64
	Timeouts     int64
	AverageLatency time.Duration
}

// Policy composes a named circuit breaker, a retrier and a per-call timeout
// into one scoped-acquisition Execute(op, ctx) wrapper.
// It is the only place in the core that performs suspension on I/O; every
// external adapter call in pkg/adapters goes through one Policy per
// backend.
type Policy struct {
	breaker *Breaker
	retrier *Retrier
	timeout time.Duration

	mu           sync.Mutex
	successes    int64
	failures     int64
	rejections   int64
	retries      int64
	timeouts     int64
	totalLatency time.Duration
	calls        int64
}

// DefaultTimeout is the per-call timeout default.
const DefaultTimeout = 30 * time.Second

// NewPolicy constructs a resilience policy for one named external
// dependency (e.g. "prometheus", "graph-store").
func NewPolicy(name string, bc BreakerConfig, rc RetryConfig, timeout time.Duration) *Policy {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Policy{
		breaker: NewBreaker(name, bc),
		retrier: NewRetrier(rc),
		timeout: timeout,
	}
}

// WithSeededRetrier swaps in a deterministic retrier, for replay.
func (p *Policy) WithSeededRetrier(seed uint64) {
	p.retrier = NewSeededRetrier(p.retrier.cfg, seed)
}

// State returns the current breaker state.
func (p *Policy) State() BreakerState { return p.breaker.State() }

// Snapshot returns the current metrics counters.
func (p *Policy) Snapshot() Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	avg := time.Duration(0)
	if p.calls > 0 {
		avg = p.totalLatency / time.Duration(p.calls)
	}
	return Metrics{
		Successes:      p.successes,
		Failures:       p.failures,
		Rejections:     p.rejections,
		Retries:        p.retries,
		Timeouts:       p.timeouts,
		AverageLatency: avg,
	}
}

// Execute runs op under the breaker, retry and timeout rules. op must
// respect ctx cancellation. Only transient errors (strandserr.Retryable)
// are retried; the retry loop stops the moment total elapsed exceeds
// OverallDeadline(timeout), even if attempts remain.
func (p *Policy) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	deadline := p.retrier.OverallDeadline(p.timeout)
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= p.retrier.MaxAttempts(); attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(start) > deadline {
			break
		}

		if attempt > 1 {
			delay := p.retrier.DelayForAttempt(attempt)
			atomic.AddInt64(&p.retries, 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		callStart := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		_, err := p.breaker.call(func() (any, error) {
			return nil, op(callCtx)
		})
		cancel()
		latency := time.Since(callStart)

		p.mu.Lock()
		p.calls++
		p.totalLatency += latency
		p.mu.Unlock()

		switch {
		case err == nil:
			atomic.AddInt64(&p.successes, 1)
			return nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			atomic.AddInt64(&p.rejections, 1)
			lastErr = strandserr.New(strandserr.KindCircuitOpen, p.breaker.Name(), err)
			return lastErr
		case callCtx.Err() == context.DeadlineExceeded:
			atomic.AddInt64(&p.timeouts, 1)
			lastErr = strandserr.New(strandserr.KindUpstreamUnavailable, p.breaker.Name(), callCtx.Err())
		default:
			atomic.AddInt64(&p.failures, 1)
			lastErr = err
		}

		if !strandserr.Retryable(lastErr) {
			return lastErr
		}
	}
	if lastErr == nil {
		lastErr = strandserr.New(strandserr.KindUpstreamUnavailable, p.breaker.Name(), context.DeadlineExceeded)
	}
	return lastErr
}

// Registry holds one Policy per named external dependency, shared across
// all swarm goroutines of the process.
type Registry struct {
	mu       sync.Mutex
	policies map[string]*Policy
}

func NewRegistry() *Registry {
	return &Registry{policies: make(map[string]*Policy)}
}

// Get returns the named policy, creating it with default settings on first
// use.
func (r *Registry) Get(name string) *Policy {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.policies[name]; ok {
		return p
	}
	p := NewPolicy(name, DefaultBreakerConfig(), DefaultRetryConfig(), DefaultTimeout)
	r.policies[name] = p
	return p
}

// Register installs a pre-configured policy under name, overriding defaults.
func (r *Registry) Register(name string, p *Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[name] = p
}

// Snapshot returns a map of policy name to metrics snapshot, for the health
// endpoint.
func (r *Registry) Snapshot() map[string]Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Metrics, len(r.policies))
	for name, p := range r.policies {
		out[name] = p.Snapshot()
	}
	return out
}

// States returns a map of policy name to current breaker state, for the
// /health endpoint's per-adapter circuit view.
func (r *Registry) States() map[string]BreakerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]BreakerState, len(r.policies))
	for name, p := range r.policies {
		out[name] = p.State()
	}
	return out
}
