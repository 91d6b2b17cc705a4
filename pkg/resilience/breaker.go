// Package resilience provides the circuit breaker, retry and timeout
// primitives every external adapter call goes through, plus the
// scoped Execute wrapper that composes them and emits metrics.
package resilience

import (
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig configures one named circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that trips
	// CLOSED -> OPEN.
	FailureThreshold uint32
	// RecoveryAfter is how long the breaker stays OPEN before probing
	// (OPEN -> HALF_OPEN).
	RecoveryAfter time.Duration
	// HalfOpenProbeCount is how many calls are allowed through while
	// HALF_OPEN before deciding CLOSED vs OPEN.
	HalfOpenProbeCount uint32
}

// DefaultBreakerConfig returns the baseline breaker tunables.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:   5,
		RecoveryAfter:      60 * time.Second,
		HalfOpenProbeCount: 1,
	}
}

// BreakerState mirrors gobreaker's three states under operator-facing names.
type BreakerState string

const (
	StateClosed   BreakerState = "CLOSED"
	StateOpen     BreakerState = "OPEN"
	StateHalfOpen BreakerState = "HALF_OPEN"
)

// Breaker wraps gobreaker.CircuitBreaker with CLOSED/OPEN/HALF_OPEN state
// names. gobreaker already implements that exact state machine, so Breaker
// is a thin, named adaptation rather than a reimplementation.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreaker constructs a named breaker. name is used in CIRCUIT_OPEN error
// messages and metrics labels.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenProbeCount,
		Interval:    0, // never reset failure counts while CLOSED
		Timeout:     cfg.RecoveryAfter,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
	}
	return &Breaker{name: name, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	switch b.cb.State() {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// Name returns the breaker's configured name.
func (b *Breaker) Name() string { return b.name }

// call runs op through the breaker. Returns gobreaker.ErrOpenState or
// gobreaker.ErrTooManyRequests when the breaker rejects the call.
func (b *Breaker) call(op func() (any, error)) (any, error) {
	return b.cb.Execute(op)
}
