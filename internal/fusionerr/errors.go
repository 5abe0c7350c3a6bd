// Package fusionerr defines the typed error kinds shared across the
// fusion engine's components, per the propagation policy: per-record
// failures never fail a batch, per-upstream failures never fail a tick,
// per-tick failures never crash a loop.
package fusionerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide whether to retry,
// wait, skip a record, bubble up, or no-op.
type Kind int

const (
	// KindTransientUpstream is a network/5xx failure worth retrying.
	KindTransientUpstream Kind = iota
	// KindRateLimited means the caller must wait for token refill.
	KindRateLimited
	// KindBadUpstreamPayload means a single record was malformed; skip it.
	KindBadUpstreamPayload
	// KindDatabase means a store operation failed; bubble up, the
	// periodic loop records and continues next tick.
	KindDatabase
	// KindPolicy means an input invariant was violated (invalid
	// lat/lon, negative radius, ...); return early, no side effects.
	KindPolicy
	// KindProviderDisabled means the caller should short-circuit to a
	// no-op result so callers degrade gracefully.
	KindProviderDisabled
)

func (k Kind) String() string {
	switch k {
	case KindTransientUpstream:
		return "transient_upstream"
	case KindRateLimited:
		return "rate_limited"
	case KindBadUpstreamPayload:
		return "bad_upstream_payload"
	case KindDatabase:
		return "database"
	case KindPolicy:
		return "policy"
	case KindProviderDisabled:
		return "provider_disabled"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so callers can type-switch
// on behavior without parsing strings.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "aggregator.fetch_tick"
	Cause   error
	Message string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error of the given kind.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap builds an *Error of the given kind around a cause.
func Wrap(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// Is reports whether err is a fusionerr.Error of the given kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

// Policy is a convenience constructor for the common invariant-violation
// case (invalid lat/lon, negative radius, ...).
func Policy(op, message string) *Error {
	return New(KindPolicy, op, message)
}

// ProviderDisabled is a convenience constructor for a short-circuited
// no-op provider.
func ProviderDisabled(op string) *Error {
	return New(KindProviderDisabled, op, "provider disabled by configuration")
}
