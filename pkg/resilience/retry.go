package resilience

import (
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig configures the bounded, jittered exponential backoff retry
// loop.
type RetryConfig struct {
	MaxAttempts  int
	Base         float64
	InitialDelay time.Duration
	MaxDelay     time.Duration
	JitterRatio  float64
}

// DefaultRetryConfig returns the baseline retry tunables.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		Base:         2.0,
		InitialDelay: 1 * time.Second,
		MaxDelay:     60 * time.Second,
		JitterRatio:  0.2,
	}
}

// Retrier computes retry delays and exposes the retry loop. Source is
// injectable so replay (§4.10) can pin the pseudo-random draws to a single
// seed for determinism.
type Retrier struct {
	cfg    RetryConfig
	source *rand.Rand
}

// NewRetrier constructs a Retrier with its own unseeded source.
func NewRetrier(cfg RetryConfig) *Retrier {
	return &Retrier{cfg: cfg, source: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))}
}

// NewSeededRetrier constructs a Retrier whose jitter draws are deterministic
// given seed, for replay determinism.
func NewSeededRetrier(cfg RetryConfig, seed uint64) *Retrier {
	return &Retrier{cfg: cfg, source: rand.New(rand.NewPCG(seed, seed))}
}

// DelayForAttempt returns the delay before attempt n (1-indexed), per
// : min(initial*base^(n-1), max_delay) * (1 + U[-jitter,+jitter]).
func (r *Retrier) DelayForAttempt(n int) time.Duration {
	raw := float64(r.cfg.InitialDelay) * math.Pow(r.cfg.Base, float64(n-1))
	capped := math.Min(raw, float64(r.cfg.MaxDelay))
	jitter := 1 + (r.source.Float64()*2-1)*r.cfg.JitterRatio
	return time.Duration(capped * jitter)
}

// OverallDeadline is the ceiling the retry loop stops at regardless of
// remaining attempts: max_attempts * timeout.
func (r *Retrier) OverallDeadline(timeout time.Duration) time.Duration {
	return time.Duration(r.cfg.MaxAttempts) * timeout
}

// MaxAttempts returns the configured attempt budget.
func (r *Retrier) MaxAttempts() int { return r.cfg.MaxAttempts }
