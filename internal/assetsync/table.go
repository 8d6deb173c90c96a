// Package assetsync implements the asset-to-packet synchronization engine
// (C6): per-asset-type generators that turn asset registry changes into
// Init/AddOrUpdate/Remove packets, plus the stable string->integer
// IndexedLookupTable the index-keyed payload shape depends on.
package assetsync

import (
	"fmt"
	"sync"
)

// MissingIndexError is returned when a generator is asked to encode an id
// the IndexedLookupTable has never assigned an index to (§4.6: "a contract
// violation — the table must be updated before the generator runs").
type MissingIndexError struct {
	ID string
}

func (e *MissingIndexError) Error() string {
	return fmt.Sprintf("assetsync: missing index for id %q", e.ID)
}

// IndexedLookupTable assigns a stable small-integer index to each asset id
// on first sight and keeps it until Release frees it (§4.6). All access
// goes through a sync.RWMutex: reads (Index, ID, MaxIndex and the fast path
// of EnsureIndex) take the shared read lock and are not lock-free; writes
// (index assignment and Release) take the exclusive lock.
type IndexedLookupTable struct {
	mu      sync.RWMutex
	idToIdx map[string]uint32
	idxToID []string
	free    []uint32
}

// NewIndexedLookupTable returns an empty table.
func NewIndexedLookupTable() *IndexedLookupTable {
	return &IndexedLookupTable{idToIdx: make(map[string]uint32)}
}

// EnsureIndex returns id's index, assigning one if id has not been seen
// before. A released index (see Release) is handed out before a brand new
// one is minted, so a removed-then-re-added id is not guaranteed to keep
// its old index, but the table's footprint does not grow without bound
// under steady churn (§3: "indices are reused only when compatible").
func (t *IndexedLookupTable) EnsureIndex(id string) uint32 {
	t.mu.RLock()
	if idx, ok := t.idToIdx[id]; ok {
		t.mu.RUnlock()
		return idx
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if idx, ok := t.idToIdx[id]; ok {
		return idx
	}

	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
		t.idxToID[idx] = id
	} else {
		idx = uint32(len(t.idxToID))
		t.idxToID = append(t.idxToID, id)
	}
	t.idToIdx[id] = idx
	return idx
}

// Release frees id's index so a later EnsureIndex call can reuse it (§3:
// "indices are reused only when compatible"; §8 scenario 6: "index 2 is
// then free for reuse"). Callers invoke it once a Remove packet referencing
// id's index has already been generated — Release itself does not
// produce a packet, keeping the generators pure functions of (map, ids,
// table) per §4.6. A no-op if id has no assigned index.
func (t *IndexedLookupTable) Release(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx, ok := t.idToIdx[id]
	if !ok {
		return
	}
	delete(t.idToIdx, id)
	t.idxToID[idx] = ""
	t.free = append(t.free, idx)
}

// Index reports id's index without assigning one.
func (t *IndexedLookupTable) Index(id string) (uint32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, ok := t.idToIdx[id]
	return idx, ok
}

// ID reverse-looks-up the id assigned to idx.
func (t *IndexedLookupTable) ID(idx uint32) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(idx) >= len(t.idxToID) {
		return "", false
	}
	return t.idxToID[idx], true
}

// MaxIndex returns the highest index assigned so far (used as the wire
// envelope's MaxIndexHint), or 0 if the table is empty.
func (t *IndexedLookupTable) MaxIndex() uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.idxToID) == 0 {
		return 0
	}
	return uint32(len(t.idxToID) - 1)
}
