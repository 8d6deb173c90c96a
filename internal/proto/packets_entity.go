package proto

// Packet identifiers, entity family.
const (
	IDSetEntitySeed       int32 = 160
	IDEntityUpdates       int32 = 161
	IDPlayAnimation       int32 = 162
	IDChangeVelocity      int32 = 163
	IDApplyKnockback      int32 = 164
	IDSpawnModelParticles int32 = 165
)

const (
	MaxEntityUpdatesCount = 512
	MaxAnimationIdLen     = 64
	MaxParticleCount      = 128
)

func init() {
	Register(IDSetEntitySeed, func(r *Reader) (Packet, error) { v := &SetEntitySeed{}; return v, v.deserialize(r) })
	Register(IDEntityUpdates, func(r *Reader) (Packet, error) { v := &EntityUpdates{}; return v, v.deserialize(r) })
	Register(IDPlayAnimation, func(r *Reader) (Packet, error) { v := &PlayAnimation{}; return v, v.deserialize(r) })
	Register(IDChangeVelocity, func(r *Reader) (Packet, error) { v := &ChangeVelocity{}; return v, v.deserialize(r) })
	Register(IDApplyKnockback, func(r *Reader) (Packet, error) { v := &ApplyKnockback{}; return v, v.deserialize(r) })
	Register(IDSpawnModelParticles, func(r *Reader) (Packet, error) { v := &SpawnModelParticles{}; return v, v.deserialize(r) })
}

// SetEntitySeed (160), fixed 4-byte seed.
type SetEntitySeed struct {
	Seed int32
}

func (*SetEntitySeed) PacketID() int32            { return IDSetEntitySeed }
func (*SetEntitySeed) Size() int                  { return 4 }
func (s *SetEntitySeed) Serialize(w *Writer) error { w.WriteI32(s.Seed); return nil }
func (s *SetEntitySeed) deserialize(r *Reader) (err error) {
	s.Seed, err = r.ReadI32()
	return
}

// EntityUpdate is one structured position/look update, fixed 24 bytes.
type EntityUpdate struct {
	EntityID  int32
	X, Y, Z   float32
	Yaw, Pitch float32
}

const entityUpdateSize = 4 + 4*3 + 4*2

func (u *EntityUpdate) serialize(w *Writer) {
	w.WriteI32(u.EntityID)
	w.WriteF32(u.X)
	w.WriteF32(u.Y)
	w.WriteF32(u.Z)
	w.WriteF32(u.Yaw)
	w.WriteF32(u.Pitch)
}

func (u *EntityUpdate) deserialize(r *Reader) (err error) {
	if u.EntityID, err = r.ReadI32(); err != nil {
		return
	}
	if u.X, err = r.ReadF32(); err != nil {
		return
	}
	if u.Y, err = r.ReadF32(); err != nil {
		return
	}
	if u.Z, err = r.ReadF32(); err != nil {
		return
	}
	if u.Yaw, err = r.ReadF32(); err != nil {
		return
	}
	u.Pitch, err = r.ReadF32()
	return
}

// EntityUpdates (161). NBF bit 0 marks RemovedIDs present, bit 1 marks
// Updates present. Fixed block holds only the two variable-block offsets;
// each array is VarInt-count-prefixed.
type EntityUpdates struct {
	HasRemoved bool
	RemovedIDs []int32
	HasUpdates bool
	Updates    []EntityUpdate
}

func (*EntityUpdates) PacketID() int32 { return IDEntityUpdates }

const entityUpdatesNBFWidth = 1
const entityUpdatesFixedWidth = 4 + 4

func (e *EntityUpdates) Size() int {
	size := entityUpdatesNBFWidth + entityUpdatesFixedWidth
	if e.HasRemoved {
		size += VarIntLen(int32(len(e.RemovedIDs))) + 4*len(e.RemovedIDs)
	}
	if e.HasUpdates {
		size += VarIntLen(int32(len(e.Updates))) + entityUpdateSize*len(e.Updates)
	}
	return size
}

func (e *EntityUpdates) Serialize(w *Writer) error {
	if e.HasRemoved && len(e.RemovedIDs) > MaxEntityUpdatesCount {
		return newErr(KindSizeExceeded, "too many removed entity ids")
	}
	if e.HasUpdates && len(e.Updates) > MaxEntityUpdatesCount {
		return newErr(KindSizeExceeded, "too many entity updates")
	}

	nbf := NewNBF(2)
	if e.HasRemoved {
		nbf.Set(0)
	}
	if e.HasUpdates {
		nbf.Set(1)
	}
	WriteNBF(w, nbf, entityUpdatesNBFWidth)

	var offRemoved, offUpdates uint32
	varLen := 0
	if e.HasRemoved {
		offRemoved = uint32(varLen)
		varLen += VarIntLen(int32(len(e.RemovedIDs))) + 4*len(e.RemovedIDs)
	}
	if e.HasUpdates {
		offUpdates = uint32(varLen)
		varLen += VarIntLen(int32(len(e.Updates))) + entityUpdateSize*len(e.Updates)
	}
	w.WriteU32(offRemoved)
	w.WriteU32(offUpdates)

	if e.HasRemoved {
		w.WriteVarInt(int32(len(e.RemovedIDs)))
		for _, id := range e.RemovedIDs {
			w.WriteI32(id)
		}
	}
	if e.HasUpdates {
		w.WriteVarInt(int32(len(e.Updates)))
		for i := range e.Updates {
			e.Updates[i].serialize(w)
		}
	}
	return nil
}

func (e *EntityUpdates) deserialize(r *Reader) error {
	nbf, err := ReadNBF(r, entityUpdatesNBFWidth, 2)
	if err != nil {
		return err
	}
	e.HasRemoved = nbf.Has(0)
	e.HasUpdates = nbf.Has(1)

	offRemoved, err := r.ReadU32()
	if err != nil {
		return err
	}
	offUpdates, err := r.ReadU32()
	if err != nil {
		return err
	}
	varBlockStart := r.Pos()

	if e.HasRemoved {
		if err := seekVarOffset(r, varBlockStart, offRemoved); err != nil {
			return err
		}
		n, err := r.ReadVarInt()
		if err != nil {
			return err
		}
		if n < 0 || int(n) > MaxEntityUpdatesCount {
			return newErr(KindInvalidLength, "removed id count exceeds maximum")
		}
		e.RemovedIDs = make([]int32, n)
		for i := range e.RemovedIDs {
			if e.RemovedIDs[i], err = r.ReadI32(); err != nil {
				return err
			}
		}
	}
	if e.HasUpdates {
		if err := seekVarOffset(r, varBlockStart, offUpdates); err != nil {
			return err
		}
		n, err := r.ReadVarInt()
		if err != nil {
			return err
		}
		if n < 0 || int(n) > MaxEntityUpdatesCount {
			return newErr(KindInvalidLength, "update count exceeds maximum")
		}
		e.Updates = make([]EntityUpdate, n)
		for i := range e.Updates {
			if err := e.Updates[i].deserialize(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// PlayAnimation (162). NBF bit 0 marks AnimationID present, bit 1 marks
// ItemAnimationsID present.
type PlayAnimation struct {
	EntityID          int32
	Slot              uint8
	HasAnimationID    bool
	AnimationID       string
	HasItemAnimations bool
	ItemAnimationsID  string
}

func (*PlayAnimation) PacketID() int32 { return IDPlayAnimation }

const playAnimationNBFWidth = 1
const playAnimationFixedWidth = 4 + 1 + 4 + 4

func (p *PlayAnimation) Size() int {
	size := playAnimationNBFWidth + playAnimationFixedWidth
	if p.HasAnimationID {
		size += VarIntLen(int32(len(p.AnimationID))) + len(p.AnimationID)
	}
	if p.HasItemAnimations {
		size += VarIntLen(int32(len(p.ItemAnimationsID))) + len(p.ItemAnimationsID)
	}
	return size
}

func (p *PlayAnimation) Serialize(w *Writer) error {
	if p.HasAnimationID {
		if err := checkStringLen(p.AnimationID, MaxAnimationIdLen); err != nil {
			return err
		}
	}
	if p.HasItemAnimations {
		if err := checkStringLen(p.ItemAnimationsID, MaxAnimationIdLen); err != nil {
			return err
		}
	}
	nbf := NewNBF(2)
	if p.HasAnimationID {
		nbf.Set(0)
	}
	if p.HasItemAnimations {
		nbf.Set(1)
	}
	WriteNBF(w, nbf, playAnimationNBFWidth)
	w.WriteI32(p.EntityID)
	w.WriteU8(p.Slot)

	var offAnim, offItemAnim uint32
	varLen := 0
	if p.HasAnimationID {
		offAnim = uint32(varLen)
		varLen += VarIntLen(int32(len(p.AnimationID))) + len(p.AnimationID)
	}
	if p.HasItemAnimations {
		offItemAnim = uint32(varLen)
		varLen += VarIntLen(int32(len(p.ItemAnimationsID))) + len(p.ItemAnimationsID)
	}
	w.WriteU32(offAnim)
	w.WriteU32(offItemAnim)

	if p.HasAnimationID {
		w.WriteString(p.AnimationID)
	}
	if p.HasItemAnimations {
		w.WriteString(p.ItemAnimationsID)
	}
	return nil
}

func (p *PlayAnimation) deserialize(r *Reader) error {
	nbf, err := ReadNBF(r, playAnimationNBFWidth, 2)
	if err != nil {
		return err
	}
	p.HasAnimationID = nbf.Has(0)
	p.HasItemAnimations = nbf.Has(1)

	if p.EntityID, err = r.ReadI32(); err != nil {
		return err
	}
	if p.Slot, err = r.ReadU8(); err != nil {
		return err
	}
	offAnim, err := r.ReadU32()
	if err != nil {
		return err
	}
	offItemAnim, err := r.ReadU32()
	if err != nil {
		return err
	}
	varBlockStart := r.Pos()
	if p.HasAnimationID {
		if err := seekVarOffset(r, varBlockStart, offAnim); err != nil {
			return err
		}
		if p.AnimationID, err = r.ReadString(MaxAnimationIdLen); err != nil {
			return err
		}
	}
	if p.HasItemAnimations {
		if err := seekVarOffset(r, varBlockStart, offItemAnim); err != nil {
			return err
		}
		if p.ItemAnimationsID, err = r.ReadString(MaxAnimationIdLen); err != nil {
			return err
		}
	}
	return nil
}

// ChangeVelocityType distinguishes setting vs adding a velocity (§4.2).
type ChangeVelocityType uint8

const (
	ChangeVelocitySet ChangeVelocityType = 0
	ChangeVelocityAdd ChangeVelocityType = 1
)

// ChangeVelocity (163), fixed 35 bytes: NBF(1) + EntityID(4) + vx,vy,vz
// float32(12) + Type(1) + hit position float32(12) + reserved(5) = 35.
// The hit position occupies its fixed slot whether or not it is
// meaningful, gated by the NBF bit (§9's "Pong-shaped" resolution applies
// here too).
type ChangeVelocity struct {
	EntityID      int32
	VX, VY, VZ    float32
	Type          ChangeVelocityType
	HasHitPos     bool
	HitX, HitY, HitZ float32
	reserved      [5]byte
}

func (*ChangeVelocity) PacketID() int32 { return IDChangeVelocity }
func (*ChangeVelocity) Size() int       { return 35 }

func (c *ChangeVelocity) Serialize(w *Writer) error {
	nbf := NewNBF(1)
	if c.HasHitPos {
		nbf.Set(0)
	}
	WriteNBF(w, nbf, 1)
	w.WriteI32(c.EntityID)
	w.WriteF32(c.VX)
	w.WriteF32(c.VY)
	w.WriteF32(c.VZ)
	w.WriteU8(uint8(c.Type))
	w.WriteF32(c.HitX)
	w.WriteF32(c.HitY)
	w.WriteF32(c.HitZ)
	w.WriteFixed(c.reserved[:])
	return nil
}

func (c *ChangeVelocity) deserialize(r *Reader) (err error) {
	nbf, err := ReadNBF(r, 1, 1)
	if err != nil {
		return err
	}
	c.HasHitPos = nbf.Has(0)
	if c.EntityID, err = r.ReadI32(); err != nil {
		return
	}
	if c.VX, err = r.ReadF32(); err != nil {
		return
	}
	if c.VY, err = r.ReadF32(); err != nil {
		return
	}
	if c.VZ, err = r.ReadF32(); err != nil {
		return
	}
	t, err := r.ReadU8()
	if err != nil {
		return err
	}
	c.Type = ChangeVelocityType(t)
	if c.HitX, err = r.ReadF32(); err != nil {
		return
	}
	if c.HitY, err = r.ReadF32(); err != nil {
		return
	}
	if c.HitZ, err = r.ReadF32(); err != nil {
		return
	}
	reserved, err := r.ReadFixed(5)
	if err != nil {
		return err
	}
	copy(c.reserved[:], reserved)
	return nil
}

// ApplyKnockback (164), fixed 38 bytes: ChangeVelocity's 35-byte shape
// plus an explicit ChangeType byte and 2 reserved bytes (§4.2: "same
// shape plus an explicit change-type byte").
type ApplyKnockback struct {
	ChangeVelocity
	ExplicitChangeType uint8
	reserved2          [2]byte
}

func (*ApplyKnockback) PacketID() int32 { return IDApplyKnockback }
func (*ApplyKnockback) Size() int       { return 38 }

func (a *ApplyKnockback) Serialize(w *Writer) error {
	if err := a.ChangeVelocity.Serialize(w); err != nil {
		return err
	}
	w.WriteU8(a.ExplicitChangeType)
	w.WriteFixed(a.reserved2[:])
	return nil
}

func (a *ApplyKnockback) deserialize(r *Reader) (err error) {
	if err = a.ChangeVelocity.deserialize(r); err != nil {
		return
	}
	if a.ExplicitChangeType, err = r.ReadU8(); err != nil {
		return
	}
	reserved, err := r.ReadFixed(2)
	if err != nil {
		return err
	}
	copy(a.reserved2[:], reserved)
	return nil
}

// ModelParticle is one entry of a SpawnModelParticles array, fixed 32
// bytes.
type ModelParticle struct {
	ParticleTypeID       int32
	X, Y, Z              float32
	VX, VY, VZ           float32
	Count                int32
}

const modelParticleSize = 4 + 4*3 + 4*3 + 4

func (m *ModelParticle) serialize(w *Writer) {
	w.WriteI32(m.ParticleTypeID)
	w.WriteF32(m.X)
	w.WriteF32(m.Y)
	w.WriteF32(m.Z)
	w.WriteF32(m.VX)
	w.WriteF32(m.VY)
	w.WriteF32(m.VZ)
	w.WriteI32(m.Count)
}

func (m *ModelParticle) deserialize(r *Reader) (err error) {
	if m.ParticleTypeID, err = r.ReadI32(); err != nil {
		return
	}
	if m.X, err = r.ReadF32(); err != nil {
		return
	}
	if m.Y, err = r.ReadF32(); err != nil {
		return
	}
	if m.Z, err = r.ReadF32(); err != nil {
		return
	}
	if m.VX, err = r.ReadF32(); err != nil {
		return
	}
	if m.VY, err = r.ReadF32(); err != nil {
		return
	}
	if m.VZ, err = r.ReadF32(); err != nil {
		return
	}
	m.Count, err = r.ReadI32()
	return
}

// SpawnModelParticles (165). NBF bit 0 marks Particles present.
type SpawnModelParticles struct {
	HasParticles bool
	Particles    []ModelParticle
}

func (*SpawnModelParticles) PacketID() int32 { return IDSpawnModelParticles }

func (s *SpawnModelParticles) Size() int {
	size := 1 + 4 // NBF(1) + offset(4)
	if s.HasParticles {
		size += VarIntLen(int32(len(s.Particles))) + modelParticleSize*len(s.Particles)
	}
	return size
}

func (s *SpawnModelParticles) Serialize(w *Writer) error {
	if s.HasParticles && len(s.Particles) > MaxParticleCount {
		return newErr(KindSizeExceeded, "too many particles")
	}
	nbf := NewNBF(1)
	if s.HasParticles {
		nbf.Set(0)
	}
	WriteNBF(w, nbf, 1)
	w.WriteU32(0)
	if s.HasParticles {
		w.WriteVarInt(int32(len(s.Particles)))
		for i := range s.Particles {
			s.Particles[i].serialize(w)
		}
	}
	return nil
}

func (s *SpawnModelParticles) deserialize(r *Reader) error {
	nbf, err := ReadNBF(r, 1, 1)
	if err != nil {
		return err
	}
	s.HasParticles = nbf.Has(0)
	off, err := r.ReadU32()
	if err != nil {
		return err
	}
	varBlockStart := r.Pos()
	if s.HasParticles {
		if err := seekVarOffset(r, varBlockStart, off); err != nil {
			return err
		}
		n, err := r.ReadVarInt()
		if err != nil {
			return err
		}
		if n < 0 || int(n) > MaxParticleCount {
			return newErr(KindInvalidLength, "particle count exceeds maximum")
		}
		s.Particles = make([]ModelParticle, n)
		for i := range s.Particles {
			if err := s.Particles[i].deserialize(r); err != nil {
				return err
			}
		}
	}
	return nil
}
