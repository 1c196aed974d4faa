// Package faults defines the error taxonomy shared by the canonical layer,
// the vendor adapters and the external insurance lookup. Callers branch on
// the Kind of a failure, never on vendor-specific error text.
package faults

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindBadRequest marks a malformed canonical request or an invalid
	// vendor/provider tag.
	KindBadRequest
	// KindNotImplemented marks an unregistered vendor, provider, or a
	// capability the resolved adapter does not declare.
	KindNotImplemented
	// KindUpstreamTimeout marks a vendor call that exceeded its bound.
	KindUpstreamTimeout
	// KindUpstreamError marks a vendor error response or a payload that
	// could not be normalized.
	KindUpstreamError
	// KindExtractionFailed marks a batch run that ended in error. The run
	// outcome is already persisted by the tracker when this surfaces.
	KindExtractionFailed
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindNotImplemented:
		return "not_implemented"
	case KindUpstreamTimeout:
		return "upstream_timeout"
	case KindUpstreamError:
		return "upstream_error"
	case KindExtractionFailed:
		return "extraction_failed"
	default:
		return "unknown"
	}
}

// Error carries a Kind, the operation that failed (pkg.method style) and an
// optional wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error without a cause.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error around a cause.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrapf is Wrap with an extra message.
func Wrapf(kind Kind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of err, or KindUnknown when err carries none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

// FromUpstream classifies a transport-level failure from a vendor call.
// Context deadline expiry and net timeouts become KindUpstreamTimeout,
// everything else KindUpstreamError.
func FromUpstream(op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(KindUpstreamTimeout, op, err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return Wrap(KindUpstreamTimeout, op, err)
	}
	return Wrap(KindUpstreamError, op, err)
}
