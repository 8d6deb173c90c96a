package proto

// Packet identifiers, chunk/block family. spec.md describes the C4
// subsystems that produce these packets (BlockHealth, filler-block
// maintenance, item-container state) but — unlike the connection/entity/
// interaction families — never enumerates their wire identifiers or exact
// layouts ("their wire shape follows the same pattern"). These four
// packets are this implementation's concrete realization, numbered in the
// 200..209 sub-range of the reserved core-packet space.
const (
	IDBlockDamage   int32 = 200
	IDBlockSetState int32 = 201
	IDFillerSync    int32 = 202
	IDContainerState int32 = 203
)

const (
	MaxBlockSetBytes = 16384 // one BlockPhysics nibble array's worth
	MaxFillerOffsets = 256   // a block's oriented bounding box can't exceed this many voxels
	MaxContainerSlots = 64
)

func init() {
	Register(IDBlockDamage, func(r *Reader) (Packet, error) { v := &BlockDamage{}; return v, v.deserialize(r) })
	Register(IDBlockSetState, func(r *Reader) (Packet, error) { v := &BlockSetState{}; return v, v.deserialize(r) })
	Register(IDFillerSync, func(r *Reader) (Packet, error) { v := &FillerSync{}; return v, v.deserialize(r) })
	Register(IDContainerState, func(r *Reader) (Packet, error) { v := &ContainerState{}; return v, v.deserialize(r) })
}

// BlockPos is a voxel position within a world, shared by the chunk
// packet family.
type BlockPos struct {
	X, Y, Z int32
}

func (p *BlockPos) serialize(w *Writer) {
	w.WriteI32(p.X)
	w.WriteI32(p.Y)
	w.WriteI32(p.Z)
}

func (p *BlockPos) deserialize(r *Reader) (err error) {
	if p.X, err = r.ReadI32(); err != nil {
		return
	}
	if p.Y, err = r.ReadI32(); err != nil {
		return
	}
	p.Z, err = r.ReadI32()
	return
}

// BlockDamage (200), fixed 18 bytes: NBF(1) + Position(12) +
// HealthScaled u8(1, health*255 rounded) + FragilitySecondsRemaining
// float32(4, meaningful only when NBF bit 0 is set). Emitted by
// BlockHealth.damage/repair and by FragileBlock eviction.
type BlockDamage struct {
	Position           BlockPos
	HealthScaled       uint8
	HasFragility       bool
	FragilitySeconds   float32
}

func (*BlockDamage) PacketID() int32 { return IDBlockDamage }
func (*BlockDamage) Size() int       { return 18 }

func (b *BlockDamage) Serialize(w *Writer) error {
	nbf := NewNBF(1)
	if b.HasFragility {
		nbf.Set(0)
	}
	WriteNBF(w, nbf, 1)
	b.Position.serialize(w)
	w.WriteU8(b.HealthScaled)
	if b.HasFragility {
		w.WriteF32(b.FragilitySeconds)
	} else {
		w.WriteF32(0)
	}
	return nil
}

func (b *BlockDamage) deserialize(r *Reader) error {
	nbf, err := ReadNBF(r, 1, 1)
	if err != nil {
		return err
	}
	b.HasFragility = nbf.Has(0)
	if err := b.Position.deserialize(r); err != nil {
		return err
	}
	if b.HealthScaled, err = r.ReadU8(); err != nil {
		return err
	}
	b.FragilitySeconds, err = r.ReadF32()
	return err
}

// BlockSetState (201): a bulk per-section block/data dump. Fixed block
// holds the section coordinates; the single required variable field (the
// packed payload) needs no offset since it is always present.
type BlockSetState struct {
	SectionX, SectionY, SectionZ int32
	Payload                      []byte
}

func (*BlockSetState) PacketID() int32 { return IDBlockSetState }

func (b *BlockSetState) Size() int {
	return 12 + VarIntLen(int32(len(b.Payload))) + len(b.Payload)
}

func (b *BlockSetState) Serialize(w *Writer) error {
	if len(b.Payload) > MaxBlockSetBytes {
		return newErr(KindSizeExceeded, "block set payload exceeds maximum")
	}
	w.WriteI32(b.SectionX)
	w.WriteI32(b.SectionY)
	w.WriteI32(b.SectionZ)
	w.WriteVarInt(int32(len(b.Payload)))
	w.WriteFixed(b.Payload)
	return nil
}

func (b *BlockSetState) deserialize(r *Reader) (err error) {
	if b.SectionX, err = r.ReadI32(); err != nil {
		return
	}
	if b.SectionY, err = r.ReadI32(); err != nil {
		return
	}
	if b.SectionZ, err = r.ReadI32(); err != nil {
		return
	}
	n, err := r.ReadVarInt()
	if err != nil {
		return err
	}
	if n < 0 || int(n) > MaxBlockSetBytes {
		return newErr(KindInvalidLength, "block set payload exceeds maximum")
	}
	b.Payload, err = r.ReadFixed(int(n))
	return err
}

// FillerSync (202): emitted by filler-block maintenance on place/break.
type FillerSync struct {
	Origin      BlockPos
	BlockTypeID uint16
	Rotation    uint8
	Removed     bool
	// FillerOffsets indexes into the rotated bounding box's voxel-offset
	// table (computed client-side from BlockTypeID+Rotation), bounding
	// the wire cost of describing a multi-voxel structure to one byte per
	// filler rather than a full position.
	FillerOffsets []uint8
}

func (*FillerSync) PacketID() int32 { return IDFillerSync }

const fillerSyncFixedWidth = 12 + 2 + 1 + 1

func (f *FillerSync) Size() int {
	return fillerSyncFixedWidth + VarIntLen(int32(len(f.FillerOffsets))) + len(f.FillerOffsets)
}

func (f *FillerSync) Serialize(w *Writer) error {
	if len(f.FillerOffsets) > MaxFillerOffsets {
		return newErr(KindSizeExceeded, "too many filler offsets")
	}
	f.Origin.serialize(w)
	w.WriteU16(f.BlockTypeID)
	w.WriteU8(f.Rotation)
	w.WriteBool(f.Removed)
	w.WriteVarInt(int32(len(f.FillerOffsets)))
	for _, off := range f.FillerOffsets {
		w.WriteU8(off)
	}
	return nil
}

func (f *FillerSync) deserialize(r *Reader) error {
	if err := f.Origin.deserialize(r); err != nil {
		return err
	}
	var err error
	if f.BlockTypeID, err = r.ReadU16(); err != nil {
		return err
	}
	if f.Rotation, err = r.ReadU8(); err != nil {
		return err
	}
	if f.Removed, err = r.ReadBool(); err != nil {
		return err
	}
	n, err := r.ReadVarInt()
	if err != nil {
		return err
	}
	if n < 0 || int(n) > MaxFillerOffsets {
		return newErr(KindInvalidLength, "filler offset count exceeds maximum")
	}
	f.FillerOffsets = make([]uint8, n)
	for i := range f.FillerOffsets {
		if f.FillerOffsets[i], err = r.ReadU8(); err != nil {
			return err
		}
	}
	return nil
}

// ContainerSlot is one item stack within a ContainerState packet.
type ContainerSlot struct {
	ItemID int32
	Count  uint8
	Damage uint16
}

const containerSlotSize = 4 + 1 + 2

func (s *ContainerSlot) serialize(w *Writer) {
	w.WriteI32(s.ItemID)
	w.WriteU8(s.Count)
	w.WriteU16(s.Damage)
}

func (s *ContainerSlot) deserialize(r *Reader) (err error) {
	if s.ItemID, err = r.ReadI32(); err != nil {
		return
	}
	if s.Count, err = r.ReadU8(); err != nil {
		return
	}
	s.Damage, err = r.ReadU16()
	return
}

// ContainerState (203): item-container world-position derivation result.
// NBF bit 0 marks Slots present (a pure dirty-flag notification carries
// no slot array).
type ContainerState struct {
	Position BlockPos
	Dirty    bool
	HasSlots bool
	Slots    []ContainerSlot
}

func (*ContainerState) PacketID() int32 { return IDContainerState }

const containerStateFixedWidth = 12 + 1 + 4

func (c *ContainerState) Size() int {
	size := 1 + containerStateFixedWidth
	if c.HasSlots {
		size += VarIntLen(int32(len(c.Slots))) + containerSlotSize*len(c.Slots)
	}
	return size
}

func (c *ContainerState) Serialize(w *Writer) error {
	if c.HasSlots && len(c.Slots) > MaxContainerSlots {
		return newErr(KindSizeExceeded, "too many container slots")
	}
	nbf := NewNBF(1)
	if c.HasSlots {
		nbf.Set(0)
	}
	WriteNBF(w, nbf, 1)
	c.Position.serialize(w)
	w.WriteBool(c.Dirty)
	w.WriteU32(0)
	if c.HasSlots {
		w.WriteVarInt(int32(len(c.Slots)))
		for i := range c.Slots {
			c.Slots[i].serialize(w)
		}
	}
	return nil
}

func (c *ContainerState) deserialize(r *Reader) error {
	nbf, err := ReadNBF(r, 1, 1)
	if err != nil {
		return err
	}
	c.HasSlots = nbf.Has(0)
	if err := c.Position.deserialize(r); err != nil {
		return err
	}
	if c.Dirty, err = r.ReadBool(); err != nil {
		return err
	}
	off, err := r.ReadU32()
	if err != nil {
		return err
	}
	varBlockStart := r.Pos()
	if c.HasSlots {
		if err := seekVarOffset(r, varBlockStart, off); err != nil {
			return err
		}
		n, err := r.ReadVarInt()
		if err != nil {
			return err
		}
		if n < 0 || int(n) > MaxContainerSlots {
			return newErr(KindInvalidLength, "slot count exceeds maximum")
		}
		c.Slots = make([]ContainerSlot, n)
		for i := range c.Slots {
			if err := c.Slots[i].deserialize(r); err != nil {
				return err
			}
		}
	}
	return nil
}
