package chunk

import "github.com/pkg/errors"

// BoundingBoxFunc computes the set of voxel offsets (relative to an origin
// at (0,0,0)) that a block of the given type and rotation occupies,
// excluding the origin cell itself. The actual per-block-type shapes are
// out of scope (§1: "world generation algorithms" and block-shape data
// live in the external asset/schema system); callers supply this function,
// typically backed by a lookup into that external registry.
type BoundingBoxFunc func(blockType uint16, rotation uint8) []Pos

// ErrOccupied is returned by Place when a cell required by the rotated
// bounding box is already occupied, per §4.4.4's "the entire placement
// fails atomically (rollback all writes)."
var ErrOccupied = errors.New("chunk: filler placement cell occupied")

// ErrNotMultiBlock is returned by Break when the given position is neither
// an origin nor a filler.
var ErrNotMultiBlock = errors.New("chunk: position is not part of a multi-voxel block")

// origin records one placed multi-voxel block's type, rotation, and the
// filler cells it currently owns.
type origin struct {
	blockType uint16
	rotation  uint8
	fillers   []Pos
}

// FillerBlocks maintains the origin<->filler relationship for one chunk
// section (§3 "Filler blocks", §4.4.4). occupied reports whether a cell
// already holds something other than a filler belonging to this structure
// (air/other blocks are the caller's concern via isOccupied); this type
// only tracks the filler bookkeeping itself.
type FillerBlocks struct {
	origins map[Pos]*origin // origin position -> its record
	fillers map[Pos]Pos     // filler position -> owning origin position
}

// IsOrigin reports whether pos currently hosts an origin.
func (f *FillerBlocks) IsOrigin(pos Pos) bool {
	_, ok := f.origins[pos]
	return ok
}

// OriginOf resolves pos to its owning origin, whether pos is the origin
// itself or a filler pointing to one.
func (f *FillerBlocks) OriginOf(pos Pos) (Pos, bool) {
	if _, ok := f.origins[pos]; ok {
		return pos, true
	}
	if o, ok := f.fillers[pos]; ok {
		return o, true
	}
	return Pos{}, false
}

// Place registers an origin at pos with the given block type and rotation,
// writing a filler marker at every cell bbox covers other than pos itself.
// If isOccupied reports any of those cells, no fillers are written at all
// (§4.4.4, §8 scenario 5). isOccupied is supplied by the caller (it must
// consult the section's actual block storage, out of scope here) and
// should return true for any cell that is not free to receive a filler
// marker.
func (f *FillerBlocks) Place(pos Pos, blockType uint16, rotation uint8, bbox BoundingBoxFunc, isOccupied func(Pos) bool) ([]Pos, error) {
	offsets := bbox(blockType, rotation)
	cells := make([]Pos, 0, len(offsets))
	for _, off := range offsets {
		cell := Pos{X: pos.X + off.X, Y: pos.Y + off.Y, Z: pos.Z + off.Z}
		if cell == pos {
			continue
		}
		cells = append(cells, cell)
	}
	for _, cell := range cells {
		if isOccupied(cell) {
			return nil, ErrOccupied
		}
	}

	if f.origins == nil {
		f.origins = make(map[Pos]*origin)
	}
	if f.fillers == nil {
		f.fillers = make(map[Pos]Pos)
	}
	o := &origin{blockType: blockType, rotation: rotation, fillers: cells}
	f.origins[pos] = o
	for _, cell := range cells {
		f.fillers[cell] = pos
	}
	return cells, nil
}

// Break clears every filler belonging to the structure at pos (which may
// itself be the origin or any filler of it) plus the origin entry. It
// returns every cleared cell, including the origin, so the caller can
// reset the underlying block storage (§4.4.4: "clear every filler in the
// rotated bounding box and clear the origin").
func (f *FillerBlocks) Break(pos Pos) ([]Pos, error) {
	originPos, ok := f.OriginOf(pos)
	if !ok {
		return nil, ErrNotMultiBlock
	}
	o := f.origins[originPos]
	cleared := make([]Pos, 0, len(o.fillers)+1)
	for _, cell := range o.fillers {
		delete(f.fillers, cell)
		cleared = append(cleared, cell)
	}
	delete(f.origins, originPos)
	cleared = append(cleared, originPos)
	return cleared, nil
}

// Sweep walks every tracked origin and reports any whose filler set no
// longer matches isFiller's view of the world (§4.4.4: "Chunk
// post-generation sweep ... verify filler consistency; repair on mismatch
// (treat mismatches as corruption to be reported but not crash"). isFiller
// reports whether the caller's block storage currently holds a filler
// marker pointing at originPos for the given cell. Mismatches are repaired
// by re-deriving the filler set from bbox and reported back to the caller
// for logging; Sweep never returns an error.
func (f *FillerBlocks) Sweep(bbox BoundingBoxFunc, isFiller func(cell, originPos Pos) bool) (corrupted []Pos) {
	for originPos, o := range f.origins {
		want := bbox(o.blockType, o.rotation)
		wantCells := make(map[Pos]struct{}, len(want))
		for _, off := range want {
			cell := Pos{X: originPos.X + off.X, Y: originPos.Y + off.Y, Z: originPos.Z + off.Z}
			if cell == originPos {
				continue
			}
			wantCells[cell] = struct{}{}
		}

		mismatched := len(wantCells) != len(o.fillers)
		if !mismatched {
			for cell := range wantCells {
				if !isFiller(cell, originPos) {
					mismatched = true
					break
				}
			}
		}
		if !mismatched {
			continue
		}

		corrupted = append(corrupted, originPos)
		for _, cell := range o.fillers {
			delete(f.fillers, cell)
		}
		rebuilt := make([]Pos, 0, len(wantCells))
		for cell := range wantCells {
			rebuilt = append(rebuilt, cell)
			f.fillers[cell] = originPos
		}
		o.fillers = rebuilt
	}
	return corrupted
}

// OriginCount reports the number of tracked origins, used by tests.
func (f *FillerBlocks) OriginCount() int { return len(f.origins) }

// FillerCount reports the number of tracked filler cells, used by tests.
func (f *FillerBlocks) FillerCount() int { return len(f.fillers) }
