// Package strandserr defines the error taxonomy shared across the Strands
// core. Every package wraps failures in one of these kinds instead of
// returning ad hoc errors, mirroring how this codebase's pkg/config wraps
// load/validation failures in typed errors.
package strandserr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure from the error taxonomy.
type Kind string

const (
	// KindValidationFailed marks an input contract violation at a boundary.
	// Never retried.
	KindValidationFailed Kind = "VALIDATION_FAILED"

	// KindUpstreamUnavailable marks a transient adapter failure. Retried
	// under the resilience wrapper; surfaces only once the retry budget is
	// exhausted.
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"

	// KindCircuitOpen marks a call short-circuited by an open breaker.
	// Transient but not retried within the same invocation.
	KindCircuitOpen Kind = "CIRCUIT_OPEN"

	// KindIllegalStateTransition marks an attempt to move an entity to a
	// state its state machine does not allow. Fatal for that operation.
	KindIllegalStateTransition Kind = "ILLEGAL_STATE_TRANSITION"

	// KindOptimisticConflict marks a compare-and-set race on playbook
	// statistics. Retried up to 5 times before surfacing as upstream
	// unavailable.
	KindOptimisticConflict Kind = "OPTIMISTIC_CONFLICT"

	// KindInvestigationDegraded marks a swarm run where zero specialists
	// succeeded. A decision is still emitted.
	KindInvestigationDegraded Kind = "INVESTIGATION_DEGRADED"

	// KindNoProviderAvailable marks a tick where every alert provider
	// failed.
	KindNoProviderAvailable Kind = "NO_PROVIDER_AVAILABLE"

	// KindReviewAlreadyClosed marks a repeat review transition on a
	// decision whose review record is already terminal, by a different
	// reviewer than the one that closed it.
	KindReviewAlreadyClosed Kind = "REVIEW_ALREADY_CLOSED"

	// KindInvalidReviewer marks a review transition attempted by the same
	// identity that produced the decision.
	KindInvalidReviewer Kind = "INVALID_REVIEWER"
)

// Error is the concrete error type carried across the core. Op names the
// operation that failed, Cause holds the underlying error (if any).
type Error struct {
	Kind   Kind
	Op     string
	Cause  error
	Detail string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Op)
	if e.Detail != "" {
		msg += fmt.Sprintf(" (%s)", e.Detail)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers can
// use errors.Is(err, strandserr.New(KindX, "", nil)) or the Kind helpers
// below.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New constructs an *Error of the given kind.
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Cause: cause}
}

// Newf constructs an *Error of the given kind with a formatted detail.
func Newf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// WithDetail returns a copy of e with Detail set.
func (e *Error) WithDetail(detail string) *Error {
	cp := *e
	cp.Detail = detail
	return &cp
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and ok=true.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// HasKind reports whether err is (or wraps) an *Error of the given kind.
func HasKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Retryable reports whether an error kind is considered transient and
// eligible for the resilience retry loop.
func Retryable(err error) bool {
	k, ok := KindOf(err)
	if !ok {
		return false
	}
	switch k {
	case KindUpstreamUnavailable, KindCircuitOpen, KindOptimisticConflict:
		return true
	default:
		return false
	}
}
