package proto

// Packet identifiers, interaction family.
const (
	IDSyncInteractionChains  int32 = 290
	IDCancelInteractionChain int32 = 291
	IDPlayInteractionFor     int32 = 292
	IDMountNPC               int32 = 293
	IDDismountNPC            int32 = 294
)

// MaxInteractionDepth and MaxInteractionNodes bound
// SyncInteractionChains' recursive "newForks" array (§9: "Specify explicit
// depth and total-node limits in the layout descriptor and reject beyond
// them — this turns a denial-of-service risk into a deterministic
// protocol error."). The teacher's CODEC advertised no such limit; these
// values are this implementation's resolution of that open question.
const (
	MaxInteractionDepth = 8
	MaxInteractionNodes = 256
	MaxInteractionChains = 32
)

func init() {
	Register(IDSyncInteractionChains, func(r *Reader) (Packet, error) { v := &SyncInteractionChains{}; return v, v.deserialize(r) })
	Register(IDCancelInteractionChain, func(r *Reader) (Packet, error) { v := &CancelInteractionChain{}; return v, v.deserialize(r) })
	Register(IDPlayInteractionFor, func(r *Reader) (Packet, error) { v := &PlayInteractionFor{}; return v, v.deserialize(r) })
	Register(IDMountNPC, func(r *Reader) (Packet, error) { v := &MountNPC{}; return v, v.deserialize(r) })
	Register(IDDismountNPC, func(r *Reader) (Packet, error) { v := &DismountNPC{}; return v, v.deserialize(r) })
}

// InteractionNode is one node of a SyncInteractionChain, recursively
// carrying further forks.
type InteractionNode struct {
	NodeID         uint32
	ActionType     uint8
	TargetEntityID int32
	Forks          []InteractionNode
}

func (n *InteractionNode) size() int {
	size := 4 + 1 + 4 + VarIntLen(int32(len(n.Forks)))
	for i := range n.Forks {
		size += n.Forks[i].size()
	}
	return size
}

func (n *InteractionNode) serialize(w *Writer) {
	w.WriteU32(n.NodeID)
	w.WriteU8(n.ActionType)
	w.WriteI32(n.TargetEntityID)
	w.WriteVarInt(int32(len(n.Forks)))
	for i := range n.Forks {
		n.Forks[i].serialize(w)
	}
}

// deserializeNode reads one node, enforcing depth and a shared total-node
// budget across the whole chain array (not just one chain), so a client
// cannot evade the per-chain limit by splitting work across many
// shallow-looking chains.
func deserializeNode(r *Reader, depth int, budget *int) (InteractionNode, error) {
	var n InteractionNode
	if depth > MaxInteractionDepth {
		return n, newErr(KindMalformed, "interaction chain exceeds max depth")
	}
	if *budget <= 0 {
		return n, newErr(KindMalformed, "interaction chain exceeds max node count")
	}
	*budget--

	var err error
	if n.NodeID, err = r.ReadU32(); err != nil {
		return n, err
	}
	if n.ActionType, err = r.ReadU8(); err != nil {
		return n, err
	}
	if n.TargetEntityID, err = r.ReadI32(); err != nil {
		return n, err
	}
	forkCount, err := r.ReadVarInt()
	if err != nil {
		return n, err
	}
	if forkCount < 0 || int(forkCount) > *budget {
		return n, newErr(KindMalformed, "fork count exceeds remaining node budget")
	}
	if forkCount > 0 {
		n.Forks = make([]InteractionNode, forkCount)
	}
	for i := range n.Forks {
		if n.Forks[i], err = deserializeNode(r, depth+1, budget); err != nil {
			return n, err
		}
	}
	return n, nil
}

// SyncInteractionChains (290): a required (non-optional) array of chains,
// each chain being the root InteractionNode of a recursive fork tree. No
// NBF bits or offsets are needed since the array is the packet's only
// field and is always present.
type SyncInteractionChains struct {
	Chains []InteractionNode
}

func (*SyncInteractionChains) PacketID() int32 { return IDSyncInteractionChains }

func (s *SyncInteractionChains) Size() int {
	size := VarIntLen(int32(len(s.Chains)))
	for i := range s.Chains {
		size += s.Chains[i].size()
	}
	return size
}

func (s *SyncInteractionChains) Serialize(w *Writer) error {
	if len(s.Chains) > MaxInteractionChains {
		return newErr(KindSizeExceeded, "too many interaction chains")
	}
	w.WriteVarInt(int32(len(s.Chains)))
	for i := range s.Chains {
		s.Chains[i].serialize(w)
	}
	return nil
}

func (s *SyncInteractionChains) deserialize(r *Reader) error {
	n, err := r.ReadVarInt()
	if err != nil {
		return err
	}
	if n < 0 || int(n) > MaxInteractionChains {
		return newErr(KindInvalidLength, "chain count exceeds maximum")
	}
	budget := MaxInteractionNodes
	s.Chains = make([]InteractionNode, n)
	for i := range s.Chains {
		if s.Chains[i], err = deserializeNode(r, 0, &budget); err != nil {
			return err
		}
	}
	return nil
}

// CancelInteractionChain (291), fixed 8 bytes.
type CancelInteractionChain struct {
	ChainID  uint32
	EntityID int32
}

func (*CancelInteractionChain) PacketID() int32 { return IDCancelInteractionChain }
func (*CancelInteractionChain) Size() int       { return 8 }
func (c *CancelInteractionChain) Serialize(w *Writer) error {
	w.WriteU32(c.ChainID)
	w.WriteI32(c.EntityID)
	return nil
}
func (c *CancelInteractionChain) deserialize(r *Reader) (err error) {
	if c.ChainID, err = r.ReadU32(); err != nil {
		return
	}
	c.EntityID, err = r.ReadI32()
	return
}

// PlayInteractionFor (292), fixed 9 bytes.
type PlayInteractionFor struct {
	EntityID   int32
	NodeID     uint32
	ActionType uint8
}

func (*PlayInteractionFor) PacketID() int32 { return IDPlayInteractionFor }
func (*PlayInteractionFor) Size() int       { return 9 }
func (p *PlayInteractionFor) Serialize(w *Writer) error {
	w.WriteI32(p.EntityID)
	w.WriteU32(p.NodeID)
	w.WriteU8(p.ActionType)
	return nil
}
func (p *PlayInteractionFor) deserialize(r *Reader) (err error) {
	if p.EntityID, err = r.ReadI32(); err != nil {
		return
	}
	if p.NodeID, err = r.ReadU32(); err != nil {
		return
	}
	p.ActionType, err = r.ReadU8()
	return
}

// MountNPC (293), fixed 8 bytes.
type MountNPC struct {
	RiderEntityID   int32
	VehicleEntityID int32
}

func (*MountNPC) PacketID() int32 { return IDMountNPC }
func (*MountNPC) Size() int       { return 8 }
func (m *MountNPC) Serialize(w *Writer) error {
	w.WriteI32(m.RiderEntityID)
	w.WriteI32(m.VehicleEntityID)
	return nil
}
func (m *MountNPC) deserialize(r *Reader) (err error) {
	if m.RiderEntityID, err = r.ReadI32(); err != nil {
		return
	}
	m.VehicleEntityID, err = r.ReadI32()
	return
}

// DismountNPC (294), zero payload.
type DismountNPC struct{}

func (*DismountNPC) PacketID() int32                { return IDDismountNPC }
func (*DismountNPC) Size() int                      { return 0 }
func (*DismountNPC) Serialize(w *Writer) error      { return nil }
func (*DismountNPC) deserialize(r *Reader) error    { return nil }
