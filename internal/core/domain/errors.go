package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAdapterUnavailable marks a single retrieval source as down. The
	// coordinator degrades and keeps going.
	ErrAdapterUnavailable = errors.New("adapter unavailable")
	// ErrRetrievalUnavailable means every source failed. Callers answer
	// without citations and disclose the gap, never pretend no law exists.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrClassifierAmbiguous marks unusable safety/complexity model output.
	// It defaults the decision to the safer or simpler path.
	ErrClassifierAmbiguous = errors.New("classifier output ambiguous")
	// ErrStageDegraded marks a pipeline stage that could not complete.
	ErrStageDegraded = errors.New("stage degraded")
	// ErrFallbackBlocked marks a remote fallback URL that failed allow-list
	// validation. Treated as fallback unavailable.
	ErrFallbackBlocked = errors.New("fallback url blocked")

	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
