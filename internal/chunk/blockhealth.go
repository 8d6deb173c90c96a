// Package chunk implements the chunk-attached components (C4): BlockHealth,
// BlockPhysics nibbles, FragileBlock timers, and filler-block structural
// maintenance, one set per chunk section (§3, §4.4). Every section is
// exclusively owned by its world's executor (§5); none of these types take
// their own locks except BlockPhysics, whose single-reader-or-one-writer
// discipline is mandated explicitly by §4.4.2.
//
// The teacher's chunkstore/shardserver layer (src/chunkymonkey/shardserver
// /chunk.go) keeps a flat `blockData []byte` and a `blockExtra
// map[BlockIndex]interface{}` for "private specific data" per block — the
// lazy, sparse-map-for-rare-state-plus-dense-array-for-common-state split
// this package generalizes into named, typed components.
package chunk

import "time"

// SectionVolume is the number of voxels in one 32x32x32 chunk section
// (§3: "Chunk section. A 32x32x32-voxel region").
const SectionVolume = 32 * 32 * 32

// Pos is a block position local to a chunk section, flattened to an index
// via Index. X, Y, Z each range 0..31.
type Pos struct {
	X, Y, Z int
}

// Index flattens a Pos into 0..32767 for the dense BlockPhysics backing
// array; BlockHealth and FragileBlock key on Pos directly since they are
// sparse maps and gain nothing from flattening.
func (p Pos) Index() int {
	return (p.Y*32+p.Z)*32 + p.X
}

// fullHealth is the shared immutable sentinel returned by BlockHealth.Get
// for any position with no stored entry (§3: "a shared immutable
// 'no-damage' sentinel is returned for missing keys"; §9: "Reimplement as
// an immutable value returned by value from get"). Since Get returns a
// plain float32 by value, callers can never mutate the "no entry" case;
// there is nothing to guard.
const fullHealth = float32(1.0)

// healthEntry is one BlockHealth map entry. Entries at exactly 0 or exactly
// 1 are never stored (§4.4.1 invariant); they are represented by absence.
type healthEntry struct {
	health     float32
	lastDamage time.Time
}

// BlockHealth is a chunk section's lazily allocated position -> health map.
// A nil/empty map costs nothing; the zero value is ready to use.
type BlockHealth struct {
	entries map[Pos]healthEntry
}

// Get returns the stored health, or the full-health sentinel if pos has no
// entry (§4.4.1).
func (b *BlockHealth) Get(pos Pos) float32 {
	if b.entries == nil {
		return fullHealth
	}
	e, ok := b.entries[pos]
	if !ok {
		return fullHealth
	}
	return e.health
}

// Damage lowers pos's health by amount, clamped to [0,1]. It reports
// destroyed=true if the resulting health reached zero, in which case the
// entry is removed (§4.4.1: "if new health <= 0, remove entry and signal
// destruction to the caller").
func (b *BlockHealth) Damage(pos Pos, amount float32, now time.Time) (newHealth float32, destroyed bool) {
	cur := b.Get(pos)
	next := cur - amount
	if next <= 0 {
		if b.entries != nil {
			delete(b.entries, pos)
		}
		return 0, true
	}
	if next > 1 {
		next = 1
	}
	b.set(pos, next, now)
	return next, false
}

// Repair raises pos's health by amount, clamped to [0,1]. Reaching or
// exceeding full health removes the entry (absence-is-full-health).
func (b *BlockHealth) Repair(pos Pos, amount float32) (newHealth float32) {
	cur := b.Get(pos)
	next := cur + amount
	if next >= 1 {
		if b.entries != nil {
			delete(b.entries, pos)
		}
		return 1
	}
	b.set(pos, next, time.Time{})
	return next
}

func (b *BlockHealth) set(pos Pos, health float32, lastDamage time.Time) {
	if b.entries == nil {
		b.entries = make(map[Pos]healthEntry)
	}
	e := b.entries[pos]
	e.health = health
	if !lastDamage.IsZero() {
		e.lastDamage = lastDamage
	}
	b.entries[pos] = e
}

// RegenCooldown is the duration an entry must sit undamaged before Tick
// begins regenerating it.
const RegenCooldown = 10 * time.Second

// RegenRatePerSecond is the health fraction restored per second of Tick
// once an entry is past RegenCooldown.
const RegenRatePerSecond = 0.05

// Tick regenerates entries whose last damage is older than RegenCooldown.
// Entries that cross 1.0 are removed and reported in healed, in arbitrary
// order, so the caller can emit a client update for each (§4.4.1: "for each
// entry crossing 1.0, remove it and emit a client update").
func (b *BlockHealth) Tick(dt time.Duration, now time.Time) (healed []Pos) {
	if len(b.entries) == 0 {
		return nil
	}
	for pos, e := range b.entries {
		if now.Sub(e.lastDamage) < RegenCooldown {
			continue
		}
		next := e.health + RegenRatePerSecond*float32(dt.Seconds())
		if next >= 1 {
			delete(b.entries, pos)
			healed = append(healed, pos)
			continue
		}
		e.health = next
		b.entries[pos] = e
	}
	return healed
}

// Len reports the number of damaged (non-full-health) entries, used by
// tests.
func (b *BlockHealth) Len() int { return len(b.entries) }
