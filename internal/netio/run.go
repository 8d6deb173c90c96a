package netio

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chunkrealm/coreserver/internal/proto"
)

// OnAuthenticated is invoked once a session transitions to InGame, after
// identity has been populated, so the caller can dispatch the handshake
// tail (§6 step 5: "Server sends UpdateTimeSettings, UpdateTime, and
// initial asset-sync Init packets"). Returning an error aborts the session
// with a State-kind close.
type OnAuthenticated func(s *Session) error

type frameMsg struct {
	id      int32
	payload []byte
	err     error
}

// Run drives the session's full lifecycle (§4.3) until it closes, cancels,
// or the transport fails. It returns the classified reason the session
// ended, or nil if ctx was cancelled cleanly with no protocol event
// involved.
func (s *Session) Run(ctx context.Context, onAuth OnAuthenticated) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inbox := make(chan frameMsg, 32)
	writeErrCh := make(chan error, 1)

	go s.readLoop(ctx, inbox)
	go s.writeLoop(ctx, writeErrCh)

	handshakeDeadline := time.NewTimer(s.Cfg.HandshakeTimeout)
	defer handshakeDeadline.Stop()

	keepAliveTicker := time.NewTicker(durationOrDefault(s.Cfg.KeepAliveInterval, time.Second))
	defer keepAliveTicker.Stop()

	idleTimeout := time.NewTimer(s.Cfg.HandshakeTimeout)
	defer idleTimeout.Stop()

	s.lastInboundAt = s.now()

	for {
		select {
		case <-ctx.Done():
			return s.closeHard(KindNone, "context cancelled")

		case err := <-writeErrCh:
			return s.closeHard(KindTransport, "write failed: "+err.Error())

		case <-handshakeDeadline.C:
			if s.phase == Handshaking {
				return s.closeHard(KindTimeout, "handshake did not complete in time")
			}

		case <-idleTimeout.C:
			if s.phase == InGame {
				s.sendDisconnect(proto.DisconnectTypeDisconnect, "timeout")
				return s.closeGraceful(KindTimeout, "keep-alive timeout")
			}

		case <-keepAliveTicker.C:
			if s.phase == InGame {
				s.dispatchPing()
				s.maybeRefresh(ctx)
			}

		case fm := <-inbox:
			if fm.err != nil {
				return s.closeHard(KindTransport, "read failed: "+fm.err.Error())
			}
			s.lastInboundAt = s.now()
			idleTimeout.Reset(durationOrDefault(s.Cfg.KeepAliveTimeout, 10*time.Second))
			if s.Recorder != nil {
				s.Recorder.RecordReceive(fm.id, len(fm.payload), len(fm.payload))
			}

			if closeErr := s.handleInbound(fm.id, fm.payload, onAuth); closeErr != nil {
				return closeErr
			}
		}
	}
}

func durationOrDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// handleInbound decodes and dispatches one frame according to the current
// phase (§4.3). A non-nil return means the session must close.
func (s *Session) handleInbound(id int32, payload []byte, onAuth OnAuthenticated) error {
	switch s.phase {
	case Closing:
		// §4.3: "Closing: reject new inbound packets."
		return nil

	case Handshaking:
		return s.handleHandshake(id, payload, onAuth)

	case InGame:
		return s.handleInGame(id, payload)

	default:
		return nil
	}
}

func (s *Session) handleHandshake(id int32, payload []byte, onAuth OnAuthenticated) error {
	if id != proto.IDConnect {
		return s.closeHard(KindProtocol, "expected Connect during handshake")
	}
	pkt, err := proto.Decode(id, proto.NewReader(payload))
	if err != nil {
		s.sendDisconnect(proto.DisconnectTypeDisconnect, "malformed connect packet")
		return s.closeGraceful(KindProtocol, "malformed connect packet")
	}
	connect := pkt.(*proto.Connect)

	if connect.Fingerprint != s.Cfg.ProtocolFingerprint {
		s.sendDisconnect(proto.DisconnectTypeCrash, "protocol version mismatch")
		return s.closeGraceful(KindProtocol, "protocol version mismatch")
	}

	s.phase = Authenticating
	identity, err := s.Auth.Verify(context.Background(), connect.IdentityToken)
	if err != nil {
		s.sendDisconnect(proto.DisconnectTypeDisconnect, "authentication")
		return s.closeGraceful(KindAuth, "authentication failed")
	}
	if identity.Username == "" {
		identity.Username = connect.Username
	}
	if identity.UUID == uuid.Nil {
		identity.UUID = connect.UUID
	}
	s.identity = identity
	s.refreshToken = connect.IdentityToken
	s.phase = InGame

	if onAuth != nil {
		if err := onAuth(s); err != nil {
			s.sendDisconnect(proto.DisconnectTypeDisconnect, "session setup failed")
			return s.closeGraceful(KindState, "onAuthenticated hook failed")
		}
	}
	return nil
}

func (s *Session) handleInGame(id int32, payload []byte) error {
	if id == proto.IDDisconnect {
		return s.closeGraceful(KindNone, "peer disconnected")
	}
	if id == proto.IDPong {
		return s.handlePong(payload)
	}
	if s.InGameIDs != nil && !s.InGameIDs[id] {
		s.sendDisconnect(proto.DisconnectTypeDisconnect, "packet not permitted in this phase")
		return s.closeGraceful(KindProtocol, "packet not enabled for in-game")
	}
	handler, ok := s.Handlers[id]
	if !ok {
		s.sendDisconnect(proto.DisconnectTypeDisconnect, "unhandled packet id")
		return s.closeGraceful(KindProtocol, "no handler registered")
	}
	pkt, err := proto.Decode(id, proto.NewReader(payload))
	if err != nil {
		s.sendDisconnect(proto.DisconnectTypeDisconnect, "malformed packet")
		return s.closeGraceful(KindProtocol, "decode failed")
	}
	if err := handler(s, pkt); err != nil {
		// §7: state errors in handler logic are logged; the session
		// continues rather than closing, unless the handler itself signals
		// a protocol-level problem by returning a *CloseError.
		if ce, ok := err.(*CloseError); ok {
			return ce
		}
		s.Log.WithError(err).WithField("packet_id", id).Warn("in-game handler failed")
	}
	return nil
}

func (s *Session) handlePong(payload []byte) error {
	pkt, err := proto.Decode(proto.IDPong, proto.NewReader(payload))
	if err != nil {
		return nil // malformed Pong is not fatal to the session
	}
	pong := pkt.(*proto.Pong)
	if !s.pingAwaiting || int64(pong.ID) != s.nextPingID {
		return nil
	}
	s.pingAwaiting = false
	rtt := s.now().Sub(s.pingDispatchedAt)
	s.Stats.Record(rtt)
	return nil
}

// maybeRefresh calls AuthClient.Refresh when the authenticated identity's
// expiry falls inside the next keep-alive interval (§4.3 [EXPANDED]:
// "AuthClient.Refresh is invoked by the session's keep-alive loop when the
// authenticated identity carries an expiry inside the next keep-alive
// interval"). An ExpiresAt of zero means the identity never expires, so
// there is nothing to refresh.
func (s *Session) maybeRefresh(ctx context.Context) {
	if s.identity.ExpiresAt == 0 {
		return
	}
	horizon := s.now().Add(durationOrDefault(s.Cfg.KeepAliveInterval, time.Second)).Unix()
	if s.identity.ExpiresAt > horizon {
		return
	}
	pair, err := s.Auth.Refresh(ctx, s.refreshToken)
	if err != nil {
		s.Log.WithError(err).Warn("token refresh failed")
		return
	}
	if pair.RefreshToken != "" {
		s.refreshToken = pair.RefreshToken
	}
	s.identity.ExpiresAt = pair.ExpiresAt
}

func (s *Session) dispatchPing() {
	s.nextPingID++
	ping := &proto.Ping{ID: s.nextPingID, Timestamp: uint64(s.now().UnixMilli())}
	s.pingDispatchedAt = s.now()
	s.pingAwaiting = true
	s.Send(ping)
}

// sendDisconnect writes the closing Disconnect frame directly, bypassing
// the outbound channel. It is always the last thing written on a session,
// so there is nothing after it whose ordering the queue would need to
// preserve; writing it synchronously also guarantees it reaches the wire
// even though Run cancels the write pump's context immediately after a
// graceful/hard close decision (§4.3: "Closing: ... flush outbound queue;
// close the stream").
func (s *Session) sendDisconnect(t proto.DisconnectType, reason string) {
	d := proto.NewDisconnect(t, reason)
	w := proto.NewWriter(d.Size())
	if err := d.Serialize(w); err != nil {
		return
	}
	_ = proto.WriteFrame(s.Conn, d.PacketID(), w.Bytes())
}

// closeGraceful implements §4.3's Closing phase: the session has already
// written a final Disconnect (by the caller, just before invoking this);
// this marks the phase and schedules the stream close after
// CloseGracePeriod, giving the peer time to read that Disconnect.
func (s *Session) closeGraceful(kind Kind, reason string) error {
	s.phase = Closing
	time.AfterFunc(s.Cfg.CloseGracePeriod, func() { s.Conn.Close() })
	if kind == KindNone {
		return nil
	}
	return newCloseErr(kind, reason)
}

// closeHard closes the transport immediately with no further writes
// (§7: "Transport errors ... Hard close; no Disconnect written").
func (s *Session) closeHard(kind Kind, reason string) error {
	s.phase = Closing
	s.Conn.Close()
	if kind == KindNone {
		return nil
	}
	return newCloseErr(kind, reason)
}

func (s *Session) readLoop(ctx context.Context, out chan<- frameMsg) {
	for {
		id, payload, err := proto.ReadFrame(s.Conn)
		select {
		case out <- frameMsg{id: id, payload: payload, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *Session) writeLoop(ctx context.Context, errCh chan<- error) {
	for {
		select {
		case <-ctx.Done():
			return
		case pkt := <-s.outbound:
			w := proto.NewWriter(pkt.Size())
			if err := pkt.Serialize(w); err != nil {
				s.Log.WithError(err).WithField("packet_id", pkt.PacketID()).Warn("dropping packet that failed to serialize")
				continue
			}
			if err := proto.WriteFrame(s.Conn, pkt.PacketID(), w.Bytes()); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
				}
				return
			}
			if s.Recorder != nil {
				s.Recorder.RecordSend(pkt.PacketID(), len(w.Bytes()), len(w.Bytes()))
			}
		}
	}
}
