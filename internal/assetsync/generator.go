package assetsync

import (
	"sort"

	"github.com/chunkrealm/coreserver/internal/proto"
)

// ItemAsset is the registry-side record for one item type. Generators read
// these from the current map passed in by the caller; they hold no state
// of their own (§4.6: "pure functions of (current map, affected id set,
// lookup table) — no hidden state").
type ItemAsset struct {
	MaxStack uint8
	Flags    uint16
}

// ItemGenerator realizes the index-keyed generator contract for the Items
// asset type, encoding entries via the shared IndexedLookupTable.
type ItemGenerator struct {
	Table *IndexedLookupTable
}

func (g *ItemGenerator) entries(ids []string, assets map[string]ItemAsset) ([]proto.IndexEntry, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	out := make([]proto.IndexEntry, 0, len(sorted))
	for _, id := range sorted {
		idx, ok := g.Table.Index(id)
		if !ok {
			return nil, &MissingIndexError{ID: id}
		}
		a := assets[id]
		out = append(out, proto.IndexEntry{Index: idx, MaxStack: a.MaxStack, Flags: a.Flags})
	}
	return out, nil
}

// Init builds the full-snapshot packet for a newly joined session, covering
// every id currently in assets.
func (g *ItemGenerator) Init(assets map[string]ItemAsset) (*proto.UpdateAssetsItems, error) {
	ids := make([]string, 0, len(assets))
	for id := range assets {
		ids = append(ids, id)
	}
	entries, err := g.entries(ids, assets)
	if err != nil {
		return nil, err
	}
	return &proto.UpdateAssetsItems{Kind: proto.UpdateKindInit, MaxIndexHint: g.Table.MaxIndex(), Entries: entries}, nil
}

// Update builds an incremental packet for the ids that changed.
func (g *ItemGenerator) Update(changedIDs []string, assets map[string]ItemAsset) (*proto.UpdateAssetsItems, error) {
	entries, err := g.entries(changedIDs, assets)
	if err != nil {
		return nil, err
	}
	return &proto.UpdateAssetsItems{Kind: proto.UpdateKindAddOrUpdate, MaxIndexHint: g.Table.MaxIndex(), Entries: entries}, nil
}

// Remove builds a removal packet for ids that have left the registry. The
// removed ids must still carry an index at the time this runs — Remove
// itself never mutates the table (§4.6: generators are "pure functions of
// (current map, affected id set, lookup table) — no hidden state"); the
// caller releases each id's index via Table.Release only after this
// packet has been generated (the packet already holds the index values),
// freeing it for reuse by a
// later EnsureIndex (§3, §8 scenario 6). The caller's asset map is
// irrelevant here; only the index is sent.
func (g *ItemGenerator) Remove(removedIDs []string) (*proto.UpdateAssetsItems, error) {
	entries := make([]proto.IndexEntry, 0, len(removedIDs))
	sorted := append([]string(nil), removedIDs...)
	sort.Strings(sorted)
	for _, id := range sorted {
		idx, ok := g.Table.Index(id)
		if !ok {
			return nil, &MissingIndexError{ID: id}
		}
		entries = append(entries, proto.IndexEntry{Index: idx})
	}
	return &proto.UpdateAssetsItems{Kind: proto.UpdateKindRemove, MaxIndexHint: g.Table.MaxIndex(), Entries: entries}, nil
}

// RecipeAsset is the registry-side record for one recipe.
type RecipeAsset struct {
	ResultItemID int32
	ResultCount  uint8
}

// RecipeGenerator realizes the string-keyed generator contract: no
// IndexedLookupTable is involved, the id string travels verbatim (§4.6:
// "used for types without a dense index (e.g. recipes)").
type RecipeGenerator struct{}

func (g *RecipeGenerator) entries(ids []string, assets map[string]RecipeAsset) []proto.RecipeEntry {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	out := make([]proto.RecipeEntry, 0, len(sorted))
	for _, id := range sorted {
		a := assets[id]
		out = append(out, proto.RecipeEntry{ID: id, ResultItemID: a.ResultItemID, ResultCount: a.ResultCount})
	}
	return out
}

func (g *RecipeGenerator) Init(assets map[string]RecipeAsset) *proto.UpdateAssetsRecipes {
	ids := make([]string, 0, len(assets))
	for id := range assets {
		ids = append(ids, id)
	}
	return &proto.UpdateAssetsRecipes{Kind: proto.UpdateKindInit, Entries: g.entries(ids, assets)}
}

func (g *RecipeGenerator) Update(changedIDs []string, assets map[string]RecipeAsset) *proto.UpdateAssetsRecipes {
	return &proto.UpdateAssetsRecipes{Kind: proto.UpdateKindAddOrUpdate, Entries: g.entries(changedIDs, assets)}
}

func (g *RecipeGenerator) Remove(removedIDs []string) *proto.UpdateAssetsRecipes {
	sorted := append([]string(nil), removedIDs...)
	sort.Strings(sorted)
	out := make([]proto.RecipeEntry, 0, len(sorted))
	for _, id := range sorted {
		out = append(out, proto.RecipeEntry{ID: id})
	}
	return &proto.UpdateAssetsRecipes{Kind: proto.UpdateKindRemove, Entries: out}
}
