package conversation

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable error class surfaced to callers.
type Kind string

const (
	KindValidation               Kind = "validation"
	KindNoProviderAvailable      Kind = "no_provider_available"
	KindAllProvidersFailed       Kind = "all_providers_failed"
	KindUnparseableResponse      Kind = "unparseable_response"
	KindInvalidDiscoveryResponse Kind = "invalid_discovery_response"
	KindSessionNotFound          Kind = "session_not_found"
	KindNotFound                 Kind = "not_found"
	KindInvalidPhase             Kind = "invalid_phase"
	KindInternal                 Kind = "internal"
)

// Error is a structured error with a kind and a human-readable detail.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Detail != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrSessionNotFound)
// works for wrapped errors with details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation               = &Error{Kind: KindValidation}
	ErrNoProviderAvailable      = &Error{Kind: KindNoProviderAvailable}
	ErrAllProvidersFailed       = &Error{Kind: KindAllProvidersFailed}
	ErrUnparseableResponse      = &Error{Kind: KindUnparseableResponse}
	ErrInvalidDiscoveryResponse = &Error{Kind: KindInvalidDiscoveryResponse}
	ErrSessionNotFound          = &Error{Kind: KindSessionNotFound}
	ErrNotFound                 = &Error{Kind: KindNotFound}
	ErrInvalidPhase             = &Error{Kind: KindInvalidPhase}
)

// ErrVersionConflict is internal to stores that use optimistic locking.
var ErrVersionConflict = errors.New("session version conflict")

func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// SessionNotFound builds the error for an unknown id.
func SessionNotFound(id string) *Error {
	return Errorf(KindSessionNotFound, "conversation not found: %s", id)
}

// KindOf maps any error to a Kind; unknown errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// DetailOf returns the human-readable part of err.
func DetailOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Detail != "" {
			return e.Detail
		}
		if e.Err != nil {
			return e.Err.Error()
		}
		return string(e.Kind)
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
