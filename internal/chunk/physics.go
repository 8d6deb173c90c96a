package chunk

import "sync"

// PhysicsNibbles is a lazily allocated 16384-byte packed array of 4-bit
// values, two per byte, indexed 0..32767 (§3, §4.4.2). The backing array is
// created on the first nonzero Set and released once the nonzero counter
// returns to zero. A sync.RWMutex gives "concurrent lookups from different
// systems while preserving nibble-pair write atomicity" (§4.4.2): Get takes
// RLock, Set takes Lock since a nibble write must read-modify-write the
// shared byte its neighbour nibble also lives in.
type PhysicsNibbles struct {
	mu      sync.RWMutex
	backing []byte // len PhysicsBytes when allocated, nil otherwise
	nonzero int
}

// PhysicsBytes is the backing array size: two 4-bit nibbles per byte across
// SectionVolume voxels.
const PhysicsBytes = SectionVolume / 2

// DecoNibble is the reserved nibble value marking "decoration", exempt from
// some structural checks (§3).
const DecoNibble uint8 = 15

// Get returns the nibble at index, or 0 if the backing array is absent.
func (p *PhysicsNibbles) Get(index int) uint8 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.backing == nil {
		return 0
	}
	b := p.backing[index/2]
	if index%2 == 0 {
		return b & 0x0f
	}
	return b >> 4
}

// Set writes the nibble at index, lazily allocating the backing array on
// a 0->nonzero transition and releasing it on the last nonzero->0
// transition (§4.4.2).
func (p *PhysicsNibbles) Set(index int, value uint8) {
	value &= 0x0f
	p.mu.Lock()
	defer p.mu.Unlock()

	var old uint8
	if p.backing != nil {
		b := p.backing[index/2]
		if index%2 == 0 {
			old = b & 0x0f
		} else {
			old = b >> 4
		}
	}
	if old == value {
		return
	}
	if p.backing == nil {
		if value == 0 {
			return
		}
		p.backing = make([]byte, PhysicsBytes)
	}

	b := p.backing[index/2]
	if index%2 == 0 {
		b = (b &^ 0x0f) | value
	} else {
		b = (b &^ 0xf0) | (value << 4)
	}
	p.backing[index/2] = b

	switch {
	case old == 0 && value != 0:
		p.nonzero++
	case old != 0 && value == 0:
		p.nonzero--
		if p.nonzero == 0 {
			p.backing = nil
		}
	}
}

// MarkDeco is a convenience for Set(index, DecoNibble).
func (p *PhysicsNibbles) MarkDeco(index int) { p.Set(index, DecoNibble) }

// IsDeco reports whether index currently holds the reserved deco value.
func (p *PhysicsNibbles) IsDeco(index int) bool { return p.Get(index) == DecoNibble }

// NonzeroCount returns the number of indices currently holding a nonzero
// value; used by tests asserting the §8 invariant that it always equals
// the count of indices whose value != 0, and that backing is allocated iff
// it is > 0.
func (p *PhysicsNibbles) NonzeroCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.nonzero
}

// Allocated reports whether the backing array currently exists.
func (p *PhysicsNibbles) Allocated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.backing != nil
}
