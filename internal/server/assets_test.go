package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunkrealm/coreserver/internal/assetsync"
	"github.com/chunkrealm/coreserver/internal/proto"
)

func TestAssetRegistryInitIsEmptyUntilFirstEvent(t *testing.T) {
	reg := newAssetRegistry()
	assert.Empty(t, reg.initPackets())
}

func TestAssetRegistryApplyInitPopulatesSnapshot(t *testing.T) {
	reg := newAssetRegistry()
	p, err := reg.apply(assetsync.Event{AssetType: "items", Kind: assetsync.EventInit, IDs: []string{"stone", "dirt"}})
	require.NoError(t, err)
	assert.Nil(t, p) // Init events are replayed per-joiner, not broadcast

	packets := reg.initPackets()
	require.Len(t, packets, 1)
	items, ok := packets[0].(*proto.UpdateAssetsItems)
	require.True(t, ok)
	assert.Len(t, items.Entries, 2)
}

func TestAssetRegistryUpdateAndRemoveProduceBroadcastPackets(t *testing.T) {
	reg := newAssetRegistry()
	_, err := reg.apply(assetsync.Event{AssetType: "items", Kind: assetsync.EventInit, IDs: []string{"stone"}})
	require.NoError(t, err)

	p, err := reg.apply(assetsync.Event{AssetType: "items", Kind: assetsync.EventAddOrUpdate, IDs: []string{"glass"}})
	require.NoError(t, err)
	update, ok := p.(*proto.UpdateAssetsItems)
	require.True(t, ok)
	assert.Equal(t, proto.UpdateKindAddOrUpdate, update.Kind)

	p, err = reg.apply(assetsync.Event{AssetType: "items", Kind: assetsync.EventRemove, IDs: []string{"stone"}})
	require.NoError(t, err)
	removed, ok := p.(*proto.UpdateAssetsItems)
	require.True(t, ok)
	assert.Equal(t, proto.UpdateKindRemove, removed.Kind)
}

// TestAssetRegistryFreesIndexAfterRemoveForReuse realizes §8 scenario 6:
// registry starts with items {"a","b"} at indices {0,1}; adding "c" assigns
// index 2; removing "c" frees index 2 for a later id to reuse.
func TestAssetRegistryFreesIndexAfterRemoveForReuse(t *testing.T) {
	reg := newAssetRegistry()
	_, err := reg.apply(assetsync.Event{AssetType: "items", Kind: assetsync.EventInit, IDs: []string{"a", "b"}})
	require.NoError(t, err)

	p, err := reg.apply(assetsync.Event{AssetType: "items", Kind: assetsync.EventAddOrUpdate, IDs: []string{"c"}})
	require.NoError(t, err)
	update, ok := p.(*proto.UpdateAssetsItems)
	require.True(t, ok)
	require.Len(t, update.Entries, 1)
	assert.EqualValues(t, 2, update.Entries[0].Index)
	assert.EqualValues(t, 2, update.MaxIndexHint)

	p, err = reg.apply(assetsync.Event{AssetType: "items", Kind: assetsync.EventRemove, IDs: []string{"c"}})
	require.NoError(t, err)
	removed, ok := p.(*proto.UpdateAssetsItems)
	require.True(t, ok)
	require.Len(t, removed.Entries, 1)
	assert.EqualValues(t, 2, removed.Entries[0].Index)

	_, ok = reg.table.Index("c")
	assert.False(t, ok)

	reused := reg.table.EnsureIndex("d")
	assert.EqualValues(t, 2, reused)
}

func TestAssetRegistryIgnoresNonItemAssetTypes(t *testing.T) {
	reg := newAssetRegistry()
	p, err := reg.apply(assetsync.Event{AssetType: "recipes", Kind: assetsync.EventAddOrUpdate, IDs: []string{"plank"}})
	require.NoError(t, err)
	assert.Nil(t, p)
}
