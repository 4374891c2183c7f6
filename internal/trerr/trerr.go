// Package trerr defines the error kinds the decision core reports to the
// trade lifecycle controller, which alone decides whether a cycle is
// suppressed or halted.
package trerr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindUnknown is the zero kind for errors that did not originate here.
	KindUnknown Kind = iota
	// KindConfigurationInvalid is fatal at setup; the system must not run.
	KindConfigurationInvalid
	// KindDataUnavailable is recoverable; the cycle is skipped with state
	// unchanged.
	KindDataUnavailable
	// KindExecutionRejected is reported to the operator and not retried
	// within the cycle.
	KindExecutionRejected
	// KindHistoryQueryFailed is recoverable; the sizing policy keeps its
	// previous size.
	KindHistoryQueryFailed
)

func (k Kind) String() string {
	switch k {
	case KindConfigurationInvalid:
		return "CONFIGURATION_INVALID"
	case KindDataUnavailable:
		return "DATA_UNAVAILABLE"
	case KindExecutionRejected:
		return "EXECUTION_REJECTED"
	case KindHistoryQueryFailed:
		return "HISTORY_QUERY_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Error carries a kind, the operation that failed, and an optional cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with a formatted message as its cause.
func New(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches a kind and operation to an underlying error.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the kind from an error chain, KindUnknown if absent.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRecoverable reports whether the cycle may continue on later events with
// state intact.
func IsRecoverable(err error) bool {
	switch KindOf(err) {
	case KindDataUnavailable, KindHistoryQueryFailed:
		return true
	}
	return false
}
