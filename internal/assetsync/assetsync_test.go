package assetsync

import (
	"testing"

	"github.com/chunkrealm/coreserver/internal/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexedLookupTableAssignsStableIndices(t *testing.T) {
	tbl := NewIndexedLookupTable()
	a := tbl.EnsureIndex("torch")
	b := tbl.EnsureIndex("stone")
	again := tbl.EnsureIndex("torch")

	assert.Equal(t, a, again)
	assert.NotEqual(t, a, b)

	idx, ok := tbl.Index("stone")
	require.True(t, ok)
	assert.Equal(t, b, idx)

	id, ok := tbl.ID(a)
	require.True(t, ok)
	assert.Equal(t, "torch", id)

	assert.EqualValues(t, 1, tbl.MaxIndex())
}

func TestIndexedLookupTableReleaseFreesIndexForReuse(t *testing.T) {
	tbl := NewIndexedLookupTable()
	tbl.EnsureIndex("a")
	tbl.EnsureIndex("b")
	c := tbl.EnsureIndex("c")
	assert.EqualValues(t, 2, c)

	tbl.Release("c")
	_, ok := tbl.Index("c")
	assert.False(t, ok)

	reused := tbl.EnsureIndex("d")
	assert.Equal(t, c, reused)

	// Releasing an id with no assigned index is a no-op, not a panic.
	tbl.Release("never-assigned")
}

func TestIndexLookupMissingReturnsFalse(t *testing.T) {
	tbl := NewIndexedLookupTable()
	_, ok := tbl.Index("nonexistent")
	assert.False(t, ok)
	_, ok = tbl.ID(5)
	assert.False(t, ok)
}

func TestItemGeneratorInitUpdateRemove(t *testing.T) {
	tbl := NewIndexedLookupTable()
	tbl.EnsureIndex("torch")
	tbl.EnsureIndex("stone")
	gen := &ItemGenerator{Table: tbl}

	assets := map[string]ItemAsset{
		"torch": {MaxStack: 64, Flags: 1},
		"stone": {MaxStack: 64, Flags: 0},
	}

	init, err := gen.Init(assets)
	require.NoError(t, err)
	assert.Equal(t, proto.UpdateKindInit, init.Kind)
	assert.Len(t, init.Entries, 2)

	upd, err := gen.Update([]string{"torch"}, assets)
	require.NoError(t, err)
	assert.Equal(t, proto.UpdateKindAddOrUpdate, upd.Kind)
	require.Len(t, upd.Entries, 1)
	assert.EqualValues(t, 64, upd.Entries[0].MaxStack)

	rem, err := gen.Remove([]string{"stone"})
	require.NoError(t, err)
	assert.Equal(t, proto.UpdateKindRemove, rem.Kind)
	require.Len(t, rem.Entries, 1)
}

func TestItemGeneratorMissingIndexIsAContractViolation(t *testing.T) {
	tbl := NewIndexedLookupTable()
	gen := &ItemGenerator{Table: tbl}

	_, err := gen.Update([]string{"unregistered"}, map[string]ItemAsset{"unregistered": {}})
	require.Error(t, err)
	var missing *MissingIndexError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "unregistered", missing.ID)
}

func TestRecipeGeneratorIsStringKeyed(t *testing.T) {
	gen := &RecipeGenerator{}
	assets := map[string]RecipeAsset{
		"torch": {ResultItemID: 50, ResultCount: 4},
	}

	init := gen.Init(assets)
	require.Len(t, init.Entries, 1)
	assert.Equal(t, "torch", init.Entries[0].ID)

	rem := gen.Remove([]string{"torch"})
	require.Len(t, rem.Entries, 1)
	assert.Equal(t, proto.UpdateKindRemove, rem.Kind)
}
