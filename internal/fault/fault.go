// Package fault classifies errors into the kinds callers are expected
// to branch on: validation failures, recoverable conflicts, integrity
// violations, store unavailability, and detected cross-store
// inconsistencies.
package fault

import (
	"errors"
	"fmt"
)

type Kind string

const (
	// Validation: malformed input, rejected before any store access.
	Validation Kind = "validation"
	// Conflict: lost a race against a concurrent writer; retry with
	// fresh state may succeed.
	Conflict Kind = "conflict"
	// Integrity: the request references state that does not permit it;
	// retrying the same request cannot succeed.
	Integrity Kind = "integrity"
	// Unavailable: a store timed out or refused the connection;
	// retryable with backoff.
	Unavailable Kind = "unavailable"
	// Inconsistency: post-hoc detection of a broken cross-store
	// reference; reported, never auto-resolved.
	Inconsistency Kind = "inconsistency"
)

type Error struct {
	kind   Kind
	reason string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.reason + ": " + e.cause.Error()
	}
	return e.reason
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Kind() Kind { return e.kind }

func (e *Error) Reason() string { return e.reason }

// New creates a classified error with a human-readable reason.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, reason: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error. The cause stays reachable through
// errors.Is / errors.As.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{kind: kind, reason: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf returns the kind of the first classified error in err's chain,
// or the empty Kind when none is found.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
