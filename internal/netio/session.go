package netio

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chunkrealm/coreserver/internal/proto"
	"github.com/chunkrealm/coreserver/internal/stats"
)

// Config carries the deployment-tunable parameters for every session
// (§6: "Keep-alive cadence. Default 1 Hz Ping; 10 s no-Pong timeout; both
// configurable per deployment").
type Config struct {
	ProtocolFingerprint [proto.FingerprintSize]byte
	HandshakeTimeout    time.Duration
	KeepAliveInterval   time.Duration
	KeepAliveTimeout    time.Duration
	CloseGracePeriod    time.Duration
	OutboundQueueSize   int
}

// DefaultConfig returns the spec's default cadence (§6).
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:  10 * time.Second,
		KeepAliveInterval: time.Second,
		KeepAliveTimeout:  10 * time.Second,
		CloseGracePeriod:  2 * time.Second,
		OutboundQueueSize: 256,
	}
}

// Handler processes one in-game packet. It runs on the session's owning
// goroutine (§5: "World-executor tasks are cooperative: each packet
// handler runs to completion within one tick" — the analogous rule here
// for the I/O-pinned session loop).
type Handler func(s *Session, p proto.Packet) error

// Clock abstracts time.Now so tests can control it; production code uses
// realClock.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Session is one client connection, pinned to the goroutine that calls Run
// (§4.3, §5). Conn is any framed duplex byte stream (§6: transport framing
// is out of scope; TCP or QUIC are both valid).
type Session struct {
	Conn   io.ReadWriteCloser
	Cfg    Config
	Auth   AuthClient
	Clock  Clock
	Log    *logrus.Entry
	Stats  *PingStats
	Recorder *stats.Recorder
	Handlers map[int32]Handler

	// World is the name of the world this session is attached to, set by
	// the caller's OnAuthenticated hook. It carries no meaning to netio
	// itself; C3 only stores it so a broadcaster can filter sessions by
	// world membership.
	World string

	// InGameIDs is the set of packet identifiers accepted while InGame
	// (§4.3: "accept all packets whose identifier is enabled for
	// in-game"). A nil set accepts everything registered in Handlers.
	InGameIDs map[int32]bool

	phase        Phase
	identity     PlayerIdentity
	refreshToken string

	outbound chan proto.Packet

	nextPingID       int64
	pingDispatchedAt time.Time
	pingAwaiting     bool
	lastInboundAt    time.Time
}

// New builds a session ready to Run. Callers must set Auth, and register
// any in-game Handlers (the table starts empty), before calling Run.
func New(conn io.ReadWriteCloser, cfg Config) *Session {
	if cfg.OutboundQueueSize <= 0 {
		cfg.OutboundQueueSize = 256
	}
	return &Session{
		Conn:     conn,
		Cfg:      cfg,
		Clock:    realClock{},
		Log:      logrus.WithField("component", "netio"),
		Stats:    &PingStats{},
		Handlers: map[int32]Handler{},
		phase:    Handshaking,
		outbound: make(chan proto.Packet, cfgQueueSize(cfg)),
	}
}

func cfgQueueSize(cfg Config) int {
	if cfg.OutboundQueueSize <= 0 {
		return 256
	}
	return cfg.OutboundQueueSize
}

// Phase returns the session's current lifecycle phase.
func (s *Session) Phase() Phase { return s.phase }

// Identity returns the authenticated player identity (zero value before
// authentication completes).
func (s *Session) Identity() PlayerIdentity { return s.identity }

// Send enqueues a packet for the write pump, preserving per-session FIFO
// order (§5: "writes are flushed in enqueue order"). It blocks only if the
// outbound queue is full, which in practice indicates a stalled peer; a
// production deployment would pair this with a write-side timeout in the
// pump itself (see writeLoop).
func (s *Session) Send(p proto.Packet) {
	s.outbound <- p
}

// now reports the session clock's current time.
func (s *Session) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now()
}
