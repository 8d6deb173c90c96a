package proto

import "github.com/pkg/errors"

// Kind classifies a protocol-layer failure so that callers (chiefly C3,
// internal/netio) can decide a remedy without string matching.
type Kind int

const (
	// KindTruncated means the cursor ran out of bytes mid-field.
	KindTruncated Kind = iota
	// KindInvalidOffset means a fixed-block offset pointed outside the
	// declared variable-block bounds.
	KindInvalidOffset
	// KindInvalidLength means a length-prefixed field exceeded its
	// declared maximum.
	KindInvalidLength
	// KindBadEncoding means a VarInt/VarLong overran its byte budget or a
	// string was not valid UTF-8.
	KindBadEncoding
	// KindMalformed means a declared-zero NBF bit was set, or some other
	// strict forward-compat violation.
	KindMalformed
	// KindSizeExceeded means serialization would exceed a packet's
	// declared maximum size.
	KindSizeExceeded
	// KindUnknownPacket means the leading identifier byte/varint did not
	// match any registered packet type.
	KindUnknownPacket
)

func (k Kind) String() string {
	switch k {
	case KindTruncated:
		return "truncated"
	case KindInvalidOffset:
		return "invalid_offset"
	case KindInvalidLength:
		return "invalid_length"
	case KindBadEncoding:
		return "bad_encoding"
	case KindMalformed:
		return "malformed"
	case KindSizeExceeded:
		return "size_exceeded"
	case KindUnknownPacket:
		return "unknown_packet"
	default:
		return "unknown"
	}
}

// Error is the single error type C1/C2 ever return. It carries a Kind so
// that C3 can classify the failure (see SPEC_FULL.md §7) and a wrapped
// cause for diagnostics.
type Error struct {
	Kind   Kind
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Kind.String() + ": " + e.Detail + ": " + e.cause.Error()
	}
	return e.Kind.String() + ": " + e.Detail
}

func (e *Error) Unwrap() error { return e.cause }

// newErr builds a protocol Error, wrapping cause with call-site context via
// pkg/errors so a Printf("%+v") on it yields a stack trace during
// development without changing the Kind-based control flow callers use.
func newErr(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, cause: errors.New(detail)}
}

func wrapErr(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, cause: errors.Wrap(cause, detail)}
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}
