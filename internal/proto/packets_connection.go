package proto

import "github.com/google/uuid"

// Packet identifiers, connection family.
const (
	IDConnect    int32 = 0
	IDDisconnect int32 = 1
	IDPing       int32 = 2
	IDPong       int32 = 3
)

const (
	FingerprintSize  = 64
	MaxUsernameLen   = 16
	MaxIdentityToken = 1024
	MaxReasonLen     = 256 // §7: "a bounded UTF-8 reason string (≤ 256 bytes)"
)

func init() {
	Register(IDConnect, func(r *Reader) (Packet, error) { v := &Connect{}; return v, v.deserialize(r) })
	Register(IDDisconnect, func(r *Reader) (Packet, error) { v := &Disconnect{}; return v, v.deserialize(r) })
	Register(IDPing, func(r *Reader) (Packet, error) { v := &Ping{}; return v, v.deserialize(r) })
	Register(IDPong, func(r *Reader) (Packet, error) { v := &Pong{}; return v, v.deserialize(r) })
}

// Connect (0), client -> server. NBF bit 0 marks Username present, bit 1
// marks IdentityToken present. Fixed block: Fingerprint[64], UUID[16],
// locale hint bytes, then the two variable-field offsets.
type Connect struct {
	Fingerprint   [FingerprintSize]byte
	UUID          uuid.UUID
	LocaleLang    [2]byte // e.g. "en"
	ViewDistance  uint8
	Username      string // optional
	HasUsername   bool
	IdentityToken string // optional
	HasIdentity   bool
}

func (*Connect) PacketID() int32 { return IDConnect }

const connectNBFWidth = 1
const connectFixedWidth = FingerprintSize + 16 + 2 + 1 + 4 + 4 // + two u32 offsets

func (c *Connect) Size() int {
	size := connectNBFWidth + connectFixedWidth
	if c.HasUsername {
		size += VarIntLen(int32(len(c.Username))) + len(c.Username)
	}
	if c.HasIdentity {
		size += VarIntLen(int32(len(c.IdentityToken))) + len(c.IdentityToken)
	}
	return size
}

func (c *Connect) Serialize(w *Writer) error {
	if c.HasUsername {
		if err := checkStringLen(c.Username, MaxUsernameLen); err != nil {
			return err
		}
	}
	if c.HasIdentity {
		if err := checkStringLen(c.IdentityToken, MaxIdentityToken); err != nil {
			return err
		}
	}

	nbf := NewNBF(2)
	if c.HasUsername {
		nbf.Set(0)
	}
	if c.HasIdentity {
		nbf.Set(1)
	}
	WriteNBF(w, nbf, connectNBFWidth)

	w.WriteFixed(c.Fingerprint[:])
	w.WriteUUID(c.UUID)
	w.WriteFixed(c.LocaleLang[:])
	w.WriteU8(c.ViewDistance)

	// Variable offsets are relative to the start of the variable block.
	var offUsername, offIdentity uint32
	varLen := 0
	if c.HasUsername {
		offUsername = uint32(varLen)
		varLen += VarIntLen(int32(len(c.Username))) + len(c.Username)
	}
	if c.HasIdentity {
		offIdentity = uint32(varLen)
		varLen += VarIntLen(int32(len(c.IdentityToken))) + len(c.IdentityToken)
	}
	w.WriteU32(offUsername)
	w.WriteU32(offIdentity)

	if c.HasUsername {
		w.WriteString(c.Username)
	}
	if c.HasIdentity {
		w.WriteString(c.IdentityToken)
	}
	return nil
}

func (c *Connect) deserialize(r *Reader) error {
	nbf, err := ReadNBF(r, connectNBFWidth, 2)
	if err != nil {
		return err
	}
	c.HasUsername = nbf.Has(0)
	c.HasIdentity = nbf.Has(1)

	fp, err := r.ReadFixed(FingerprintSize)
	if err != nil {
		return err
	}
	copy(c.Fingerprint[:], fp)

	if c.UUID, err = r.ReadUUID(); err != nil {
		return err
	}
	locale, err := r.ReadFixed(2)
	if err != nil {
		return err
	}
	copy(c.LocaleLang[:], locale)
	if c.ViewDistance, err = r.ReadU8(); err != nil {
		return err
	}

	offUsername, err := r.ReadU32()
	if err != nil {
		return err
	}
	offIdentity, err := r.ReadU32()
	if err != nil {
		return err
	}

	varBlockStart := r.Pos()
	if c.HasUsername {
		if err := seekVarOffset(r, varBlockStart, offUsername); err != nil {
			return err
		}
		if c.Username, err = r.ReadString(MaxUsernameLen); err != nil {
			return err
		}
	}
	if c.HasIdentity {
		if err := seekVarOffset(r, varBlockStart, offIdentity); err != nil {
			return err
		}
		if c.IdentityToken, err = r.ReadString(MaxIdentityToken); err != nil {
			return err
		}
	}
	return nil
}

// seekVarOffset validates that off lies within the remaining buffer
// (relative to the variable block start) and repositions r there. It is
// used by packets whose optional fields are read in an order that does
// not always match declaration order on the wire (defensive; in this
// catalog fields happen to be declared and laid out in the same order,
// but the offset is still honored rather than assumed).
func seekVarOffset(r *Reader, varBlockStart int, off uint32) error {
	target := varBlockStart + int(off)
	if target < varBlockStart || target > len(r.buf) {
		return newErr(KindInvalidOffset, "offset outside variable block")
	}
	r.pos = target
	return nil
}

// DisconnectType classifies a Disconnect packet (§3).
type DisconnectType uint8

const (
	DisconnectTypeDisconnect DisconnectType = 0
	DisconnectTypeCrash      DisconnectType = 1
)

// Disconnect (1), bidirectional. NBF bit 0 marks Reason present.
type Disconnect struct {
	Type      DisconnectType
	Reason    string
	HasReason bool
}

func (*Disconnect) PacketID() int32 { return IDDisconnect }

const disconnectNBFWidth = 1
const disconnectFixedWidth = 1 + 4 // Type byte + offset

func (d *Disconnect) Size() int {
	size := disconnectNBFWidth + disconnectFixedWidth
	if d.HasReason {
		size += VarIntLen(int32(len(d.Reason))) + len(d.Reason)
	}
	return size
}

func (d *Disconnect) Serialize(w *Writer) error {
	if d.HasReason {
		if err := checkStringLen(d.Reason, MaxReasonLen); err != nil {
			return err
		}
	}
	nbf := NewNBF(1)
	if d.HasReason {
		nbf.Set(0)
	}
	WriteNBF(w, nbf, disconnectNBFWidth)
	w.WriteU8(uint8(d.Type))
	w.WriteU32(0) // reason always starts at offset 0 of the variable block when present
	if d.HasReason {
		w.WriteString(d.Reason)
	}
	return nil
}

func (d *Disconnect) deserialize(r *Reader) error {
	nbf, err := ReadNBF(r, disconnectNBFWidth, 1)
	if err != nil {
		return err
	}
	d.HasReason = nbf.Has(0)

	t, err := r.ReadU8()
	if err != nil {
		return err
	}
	d.Type = DisconnectType(t)

	off, err := r.ReadU32()
	if err != nil {
		return err
	}
	varBlockStart := r.Pos()
	if d.HasReason {
		if err := seekVarOffset(r, varBlockStart, off); err != nil {
			return err
		}
		if d.Reason, err = r.ReadString(MaxReasonLen); err != nil {
			return err
		}
	}
	return nil
}

// NewDisconnect is a convenience constructor matching the common case of
// closing a session with a reason (§7's "every disconnect carries a
// classification ... and a bounded UTF-8 reason string").
func NewDisconnect(t DisconnectType, reason string) *Disconnect {
	return &Disconnect{Type: t, Reason: reason, HasReason: reason != ""}
}

// Ping (2), fixed layout: id, timestamp, three reserved counters.
type Ping struct {
	ID        int64
	Timestamp uint64
	Reserved  [3]int32
}

func (*Ping) PacketID() int32   { return IDPing }
func (*Ping) Size() int         { return 8 + 8 + 4*3 }
func (p *Ping) Serialize(w *Writer) error {
	w.WriteI64(p.ID)
	w.WriteU64(p.Timestamp)
	for _, v := range p.Reserved {
		w.WriteI32(v)
	}
	return nil
}
func (p *Ping) deserialize(r *Reader) (err error) {
	if p.ID, err = r.ReadI64(); err != nil {
		return
	}
	if p.Timestamp, err = r.ReadU64(); err != nil {
		return
	}
	for i := range p.Reserved {
		if p.Reserved[i], err = r.ReadI32(); err != nil {
			return
		}
	}
	return nil
}

// PongType classifies how a Pong was produced (§4.2).
type PongType uint8

const (
	PongTypeRaw    PongType = 0
	PongTypeDirect PongType = 1
	PongTypeTick   PongType = 2
)

// Pong (3), fixed 20 bytes. §9's open question ("Pong's '20 bytes'
// breakdown") is resolved here as: NBF(1) + ID int32(4) + Timestamp
// uint64(8) + PongType(1) + reserved(6) = 20. The NBF bit gates whether
// Timestamp carries a meaningful value; the field itself always occupies
// its fixed slot (mirroring ChangeVelocity/ApplyKnockback's "optional
// field inside a fixed-size packet" shape).
type Pong struct {
	ID            int32
	HasTimestamp  bool
	Timestamp     uint64
	Type          PongType
	reserved      [6]byte
}

func (*Pong) PacketID() int32 { return IDPong }
func (*Pong) Size() int       { return 20 }

func (p *Pong) Serialize(w *Writer) error {
	nbf := NewNBF(1)
	if p.HasTimestamp {
		nbf.Set(0)
	}
	WriteNBF(w, nbf, 1)
	w.WriteI32(p.ID)
	if p.HasTimestamp {
		w.WriteU64(p.Timestamp)
	} else {
		w.WriteU64(0)
	}
	w.WriteU8(uint8(p.Type))
	w.WriteFixed(p.reserved[:])
	return nil
}

func (p *Pong) deserialize(r *Reader) (err error) {
	nbf, err := ReadNBF(r, 1, 1)
	if err != nil {
		return err
	}
	p.HasTimestamp = nbf.Has(0)
	if p.ID, err = r.ReadI32(); err != nil {
		return
	}
	if p.Timestamp, err = r.ReadU64(); err != nil {
		return
	}
	if !p.HasTimestamp {
		p.Timestamp = 0
	}
	t, err := r.ReadU8()
	if err != nil {
		return err
	}
	p.Type = PongType(t)
	reserved, err := r.ReadFixed(6)
	if err != nil {
		return err
	}
	copy(p.reserved[:], reserved)
	return nil
}
