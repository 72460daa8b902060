// Package caldirerr defines the error kinds the sync core produces, per
// the error handling design: recover locally where a single-item fix is
// possible, otherwise surface as a structured result rather than an
// untyped error.
package caldirerr

import "fmt"

// Kind classifies an error so callers can decide whether to retry,
// abort a batch, or abort a whole calendar's sync.
type Kind int

const (
	// KindIO covers filesystem read/write/rename failures. The offending
	// operation is aborted; the batch continues.
	KindIO Kind = iota
	// KindParse covers malformed ICS on disk. The file is excluded from
	// the diff and surfaced as a warning; it is never auto-deleted.
	KindParse
	// KindProvider wraps an error kind returned by a provider (see
	// provider.ErrorKind). RateLimited and Network are retried before
	// landing here as a failed operation.
	KindProvider
	// KindAuthRequired aborts the entire calendar's sync; the caller is
	// expected to direct the user to re-run auth.
	KindAuthRequired
	// KindBulkDeleteRefused aborts a push only. Never retried.
	KindBulkDeleteRefused
	// KindProtocol covers an unreadable provider response, a missing
	// binary, or a non-zero exit without JSON. Fatal for that calendar.
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "IoError"
	case KindParse:
		return "ParseError"
	case KindProvider:
		return "ProviderError"
	case KindAuthRequired:
		return "AuthRequired"
	case KindBulkDeleteRefused:
		return "BulkDeleteRefused"
	case KindProtocol:
		return "ProtocolError"
	default:
		return "Unknown"
	}
}

// Error is a typed error carrying a Kind so callers can branch on it with
// errors.As instead of matching on message text.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error carrying err as its cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// IsRetryable reports whether kind is KindProvider, the kind under which
// provider failures are recorded. It does not see the provider's own
// error kind: of those, only RateLimited and Network are retried with
// backoff (see provider.IsRetryable).
func IsRetryable(kind Kind) bool {
	return kind == KindProvider
}
