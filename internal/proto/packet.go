package proto

// Packet is satisfied by every concrete packet type in the catalog (C2).
// Dispatch is a tagged variant: one Go type per wire identifier, matched
// by a single type switch / registry lookup at the codec boundary (see
// SPEC_FULL.md §9, "Polymorphic packet dispatch") rather than a vtable.
type Packet interface {
	// PacketID returns the packet's constant wire identifier.
	PacketID() int32
	// Size returns the exact serialized size in bytes.
	Size() int
	// Serialize appends the packet's wire bytes to w. It fails with
	// KindSizeExceeded if the packet's declared maximum would be
	// exceeded.
	Serialize(w *Writer) error
}

// DecodeFunc deserializes a packet body (the identifier has already been
// consumed) from r.
type DecodeFunc func(r *Reader) (Packet, error)

var registry = map[int32]DecodeFunc{}

// Register adds a packet type's decoder to the dispatch table. Called from
// each packet family file's init().
func Register(id int32, fn DecodeFunc) {
	if _, exists := registry[id]; exists {
		panic("proto: duplicate packet id registered")
	}
	registry[id] = fn
}

// Decode looks up id in the dispatch table and deserializes a packet body
// from r.
func Decode(id int32, r *Reader) (Packet, error) {
	fn, ok := registry[id]
	if !ok {
		return nil, newErr(KindUnknownPacket, "unregistered packet id")
	}
	return fn(r)
}

// Validate performs the identical traversal as Decode without handing the
// caller a populated value, satisfying §3's invariant that "validate(buf)
// accepts a buffer iff deserialize(buf) would succeed; it never mutates
// the cursor beyond reporting bytes-consumed." Sharing Decode's code path
// is what guarantees the two operations never drift apart.
func Validate(id int32, buf []byte) (consumed int, err error) {
	r := NewReader(buf)
	_, err = Decode(id, r)
	return r.Pos(), err
}

// RoundTrip serializes v and deserializes the result, the codec-law
// check deserialize(serialize(v)) == v of §8 as one call.
func RoundTrip(v Packet) (Packet, error) {
	w := NewWriter(v.Size())
	if err := v.Serialize(w); err != nil {
		return nil, err
	}
	return Decode(v.PacketID(), NewReader(w.Bytes()))
}
