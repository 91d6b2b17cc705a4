package main

import (
	"errors"

	"github.com/strands-sre/strands/pkg/strandserr"
)

// configError marks an error as exit code 1 (configuration
// error), distinguishing it from exit code 2's generic runtime failure.
type configError struct{ err error }

func wrapConfigError(err error) error {
	if err == nil {
		return nil
	}
	return &configError{err: err}
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// isConfigError reports whether err should map to exit code 1.
func isConfigError(err error) bool {
	var ce *configError
	return errors.As(err, &ce)
}

// isUpstreamUnavailable reports whether err should map to exit code 3.
func isUpstreamUnavailable(err error) bool {
	return strandserr.HasKind(err, strandserr.KindUpstreamUnavailable) ||
		strandserr.HasKind(err, strandserr.KindNoProviderAvailable) ||
		strandserr.HasKind(err, strandserr.KindCircuitOpen)
}
