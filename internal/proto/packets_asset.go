package proto

// Packet identifiers, asset-sync family (C6). §4.2 describes a generic
// envelope `UpdateAssets<T>` "one envelope exists per asset type". Go has
// no wire-level generics, so each asset type gets its own packet type and
// identifier, but they share the envelope framing via the generic helpers
// below. Items (index-keyed) and Recipes (string-keyed) are implemented
// as the two representative instantiations named in §4.6's payload-shape
// split; ItemQualities and ItemReticles follow the IndexEntry pattern
// identically and are not separately instantiated here (see DESIGN.md).
const (
	IDUpdateAssetsItems   int32 = 220
	IDUpdateAssetsRecipes int32 = 221
)

const (
	MaxAssetEntries = 4096
	MaxRecipeIDLen  = 64
)

func init() {
	Register(IDUpdateAssetsItems, func(r *Reader) (Packet, error) { v := &UpdateAssetsItems{}; return v, v.deserialize(r) })
	Register(IDUpdateAssetsRecipes, func(r *Reader) (Packet, error) { v := &UpdateAssetsRecipes{}; return v, v.deserialize(r) })
}

// UpdateKind distinguishes the three asset-sync events (§4.6).
type UpdateKind uint8

const (
	UpdateKindInit        UpdateKind = 0
	UpdateKindAddOrUpdate UpdateKind = 1
	UpdateKindRemove      UpdateKind = 2
)

// assetEntry is implemented by every asset-sync payload entry type so the
// generic envelope helpers can frame them uniformly.
type assetEntry interface {
	wireSize() int
	serialize(w *Writer)
}

func encodeEnvelope[T assetEntry](w *Writer, kind UpdateKind, maxIndexHint uint32, entries []T) {
	w.WriteU8(uint8(kind))
	w.WriteU32(maxIndexHint)
	w.WriteVarInt(int32(len(entries)))
	for _, e := range entries {
		e.serialize(w)
	}
}

func envelopeSize[T assetEntry](entries []T) int {
	size := 1 + 4 + VarIntLen(int32(len(entries)))
	for _, e := range entries {
		size += e.wireSize()
	}
	return size
}

func decodeEnvelopeHeader(r *Reader) (kind UpdateKind, maxIndexHint uint32, count int32, err error) {
	k, err := r.ReadU8()
	if err != nil {
		return
	}
	kind = UpdateKind(k)
	if maxIndexHint, err = r.ReadU32(); err != nil {
		return
	}
	count, err = r.ReadVarInt()
	if err != nil {
		return
	}
	if count < 0 || int(count) > MaxAssetEntries {
		err = newErr(KindInvalidLength, "asset entry count exceeds maximum")
	}
	return
}

// IndexEntry is the index-keyed asset payload shape (§4.6): a stable
// small-integer index from an IndexedLookupTable plus type-specific data.
// Used here for Items.
type IndexEntry struct {
	Index    uint32
	MaxStack uint8
	Flags    uint16
}

const indexEntrySize = 4 + 1 + 2

func (e IndexEntry) wireSize() int { return indexEntrySize }
func (e IndexEntry) serialize(w *Writer) {
	w.WriteU32(e.Index)
	w.WriteU8(e.MaxStack)
	w.WriteU16(e.Flags)
}
func decodeIndexEntry(r *Reader) (IndexEntry, error) {
	var e IndexEntry
	var err error
	if e.Index, err = r.ReadU32(); err != nil {
		return e, err
	}
	if e.MaxStack, err = r.ReadU8(); err != nil {
		return e, err
	}
	e.Flags, err = r.ReadU16()
	return e, err
}

// UpdateAssetsItems (220): index-keyed asset sync envelope for the Items
// asset type.
type UpdateAssetsItems struct {
	Kind         UpdateKind
	MaxIndexHint uint32
	Entries      []IndexEntry
}

func (*UpdateAssetsItems) PacketID() int32 { return IDUpdateAssetsItems }
func (u *UpdateAssetsItems) Size() int     { return envelopeSize(u.Entries) }
func (u *UpdateAssetsItems) Serialize(w *Writer) error {
	if len(u.Entries) > MaxAssetEntries {
		return newErr(KindSizeExceeded, "too many asset entries")
	}
	encodeEnvelope(w, u.Kind, u.MaxIndexHint, u.Entries)
	return nil
}
func (u *UpdateAssetsItems) deserialize(r *Reader) error {
	kind, maxIndexHint, count, err := decodeEnvelopeHeader(r)
	if err != nil {
		return err
	}
	u.Kind, u.MaxIndexHint = kind, maxIndexHint
	u.Entries = make([]IndexEntry, count)
	for i := range u.Entries {
		if u.Entries[i], err = decodeIndexEntry(r); err != nil {
			return err
		}
	}
	return nil
}

// RecipeEntry is the string-keyed asset payload shape (§4.6): the id
// string is carried verbatim, used for asset types without a dense index
// such as recipes.
type RecipeEntry struct {
	ID           string
	ResultItemID int32
	ResultCount  uint8
}

func (e RecipeEntry) wireSize() int {
	return VarIntLen(int32(len(e.ID))) + len(e.ID) + 4 + 1
}
func (e RecipeEntry) serialize(w *Writer) {
	w.WriteString(e.ID)
	w.WriteI32(e.ResultItemID)
	w.WriteU8(e.ResultCount)
}
func decodeRecipeEntry(r *Reader) (RecipeEntry, error) {
	var e RecipeEntry
	var err error
	if e.ID, err = r.ReadString(MaxRecipeIDLen); err != nil {
		return e, err
	}
	if e.ResultItemID, err = r.ReadI32(); err != nil {
		return e, err
	}
	e.ResultCount, err = r.ReadU8()
	return e, err
}

// UpdateAssetsRecipes (221): string-keyed asset sync envelope for the
// Recipes asset type.
type UpdateAssetsRecipes struct {
	Kind         UpdateKind
	MaxIndexHint uint32
	Entries      []RecipeEntry
}

func (*UpdateAssetsRecipes) PacketID() int32 { return IDUpdateAssetsRecipes }
func (u *UpdateAssetsRecipes) Size() int     { return envelopeSize(u.Entries) }
func (u *UpdateAssetsRecipes) Serialize(w *Writer) error {
	if len(u.Entries) > MaxAssetEntries {
		return newErr(KindSizeExceeded, "too many asset entries")
	}
	encodeEnvelope(w, u.Kind, u.MaxIndexHint, u.Entries)
	return nil
}
func (u *UpdateAssetsRecipes) deserialize(r *Reader) error {
	kind, maxIndexHint, count, err := decodeEnvelopeHeader(r)
	if err != nil {
		return err
	}
	u.Kind, u.MaxIndexHint = kind, maxIndexHint
	u.Entries = make([]RecipeEntry, count)
	for i := range u.Entries {
		if u.Entries[i], err = decodeRecipeEntry(r); err != nil {
			return err
		}
	}
	return nil
}
