// Package netio implements the connection state machine (C3): handshake,
// authentication, in-game dispatch, keep-alive, and graceful/hard close
// (§4.3). A Session owns one duplex byte stream, one inbound dispatch
// loop, and one outbound write queue. Session.Run starts a read-loop and a
// write-loop goroutine for the stream; all per-session state is touched
// only by the goroutine that calls Session.Run — mirroring §5's "every
// connection is pinned to one I/O worker for the duration of its session."
//
// Grounded on the teacher's chunkymonkey/player.Player: a per-connection
// struct with mainQueue/rxQueue/txQueue channels, a ping struct tracking
// id/timestamp/timer, and a dedicated goroutine pumping each queue
// (src/chunkymonkey/player/player.go). This keeps that one-owning-task
// shape but replaces the teacher's raw net.Conn + flat field bag with an
// explicit Phase state machine and a bounded outbound channel, per
// SPEC_FULL.md §9's "single owning task per session driving a state enum."
package netio

import "github.com/pkg/errors"

// Kind classifies why a session closed (§7's error taxonomy).
type Kind int

const (
	KindNone Kind = iota
	KindProtocol
	KindAuth
	KindTimeout
	KindState
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindAuth:
		return "auth"
	case KindTimeout:
		return "timeout"
	case KindState:
		return "state"
	case KindTransport:
		return "transport"
	default:
		return "none"
	}
}

// CloseError wraps the reason a session closed with its Kind, so callers
// can decide whether a Disconnect packet is still writable (§7:
// "Transport errors ... Hard close; no Disconnect written").
type CloseError struct {
	Kind   Kind
	Reason string
	cause  error
}

func (e *CloseError) Error() string {
	if e.cause != nil {
		return e.Kind.String() + ": " + e.Reason + ": " + e.cause.Error()
	}
	return e.Kind.String() + ": " + e.Reason
}

func (e *CloseError) Unwrap() error { return e.cause }

func newCloseErr(kind Kind, reason string) *CloseError {
	return &CloseError{Kind: kind, Reason: reason, cause: errors.New(reason)}
}

func wrapCloseErr(kind Kind, reason string, cause error) *CloseError {
	return &CloseError{Kind: kind, Reason: reason, cause: errors.Wrap(cause, reason)}
}
