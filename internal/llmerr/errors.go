// Package llmerr defines the typed error kinds that flow out of the
// translation pipeline, generalizing the single Retry bool of
// lsilvatti-bakasub's ProviderError into a Kind enum so callers (the batch
// translator, the scheduler) can dispatch on kind directly instead of
// string-matching error messages.
package llmerr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline error per spec.md §7.
type Kind int

const (
	// KindParse: malformed input file or project JSON. No retry.
	KindParse Kind = iota
	// KindTransient: network failure, 5xx, rate-limit 429. Retried with
	// backoff by llm.CompleteWithRetry up to RetryOptions.MaxAttempts.
	KindTransient
	// KindFatal: auth, quota, explicit model refusal. Batch marked failed.
	KindFatal
	// KindMisaligned: response failed alignment validation. Retried with
	// repair instructions up to MaxRetries.
	KindMisaligned
	// KindAborted: user-requested cancellation.
	KindAborted
	// KindInvariant: an editor operation that would corrupt the tree.
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	case KindMisaligned:
		return "misaligned"
	case KindAborted:
		return "aborted"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Error is a typed pipeline error. Provider is the provider or component
// name that raised it; Code is a short machine-readable code (e.g. the
// provider's own error code, "rate_limit", "unknown_scene"); Message is
// the human-readable detail.
type Error struct {
	Kind     Kind
	Provider string
	Code     string
	Message  string
	Wrapped  error
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Retryable reports whether the batch translator should retry at all
// (transient errors via backoff, misalignment via repair instructions).
func (e *Error) Retryable() bool {
	return e.Kind == KindTransient || e.Kind == KindMisaligned
}

// New constructs an Error of the given kind.
func New(kind Kind, provider, message string) *Error {
	return &Error{Kind: kind, Provider: provider, Message: message}
}

// Wrap constructs an Error of the given kind, wrapping an underlying error.
func Wrap(kind Kind, provider string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Provider: provider, Message: err.Error(), Wrapped: err}
}

// WithCode sets the Code field and returns the receiver for chaining.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, and
// returns ok=false otherwise so callers can fall back to treating unknown
// errors as fatal.
func KindOf(err error) (Kind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return KindFatal, false
}
