// Package errs provides error handling for quaestio.
//
// It re-exports github.com/cockroachdb/errors and adds a small set of stable
// error kinds. Every error that leaves the pipeline is an *Error carrying one
// of these kinds; the upstream cause is attached but never returned raw.
package errs

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New      = crdb.New
	Newf     = crdb.Newf
	Wrap     = crdb.Wrap
	Wrapf    = crdb.Wrapf
	WithHint = crdb.WithHint
	Is       = crdb.Is
	As       = crdb.As
)

// Kind is a stable, user-visible error classification
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindProviderTransient Kind = "provider_transient"
	KindProviderFatal     Kind = "provider_fatal"
	KindRetriesExhausted  Kind = "retries_exhausted"
	KindBudgetExceeded    Kind = "budget_exceeded"
	KindCanceled          Kind = "canceled"
	KindInternal          Kind = "internal"
)

// Error is a terminal error with a stable kind
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause == nil {
		return string(e.Kind) + ": " + e.Message
	}
	return string(e.Kind) + ": " + e.Message + ": " + e.cause.Error()
}

// Unwrap returns the attached cause
func (e *Error) Unwrap() error {
	return e.cause
}

// E builds a kinded error with an optional cause. The cause gets a stack
// trace attached if it does not carry one already.
func E(kind Kind, msg string, cause error) *Error {
	if cause != nil {
		cause = crdb.WithStack(cause)
	}
	return &Error{Kind: kind, Message: msg, cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal for foreign errors and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if crdb.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Terminal converts any error into a kinded *Error. Kinded errors pass
// through unchanged so a stable kind set deeper in the stack survives.
func Terminal(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if crdb.As(err, &e) {
		return e
	}
	return E(KindInternal, "unexpected failure", err)
}
