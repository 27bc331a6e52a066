// Package sdkerr defines the error kinds surfaced by the SDK's action flows.
package sdkerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error so callers can branch without inspecting message text.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindValidation is malformed or missing input, always user-correctable.
	KindValidation
	// KindPrecondition means local or remote state does not allow the action.
	KindPrecondition
	// KindSigner is a signer failure that is not a user rejection.
	KindSigner
	// KindUserRejected is a user declining to sign. Not retryable, not a fault.
	KindUserRejected
	// KindTransport is a network or API failure.
	KindTransport
	// KindProtocolTerminal is a backend state that cannot be retried and must be cancelled.
	KindProtocolTerminal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPrecondition:
		return "precondition"
	case KindSigner:
		return "signer"
	case KindUserRejected:
		return "user_rejected"
	case KindTransport:
		return "transport"
	case KindProtocolTerminal:
		return "protocol_terminal"
	default:
		return "unknown"
	}
}

// Error carries the step that failed and the identifiers involved.
type Error struct {
	Kind Kind
	Step string
	IDs  []string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Step)
	if len(e.IDs) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.IDs, ","))
		b.WriteString("]")
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind, step and identifiers.
func New(kind Kind, step string, err error, ids ...string) *Error {
	return &Error{Kind: kind, Step: step, IDs: ids, Err: err}
}

// Validation builds a KindValidation error from a format string.
func Validation(step, format string, args ...interface{}) *Error {
	return New(KindValidation, step, fmt.Errorf(format, args...))
}

// Precondition builds a KindPrecondition error from a format string.
func Precondition(step string, ids []string, format string, args ...interface{}) *Error {
	return New(KindPrecondition, step, fmt.Errorf(format, args...), ids...)
}

// Terminal builds a KindProtocolTerminal error from a format string.
func Terminal(step string, ids []string, format string, args ...interface{}) *Error {
	return New(KindProtocolTerminal, step, fmt.Errorf(format, args...), ids...)
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
