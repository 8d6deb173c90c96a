package chunk

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhysicsNibblesLazyAllocation(t *testing.T) {
	var p PhysicsNibbles
	assert.False(t, p.Allocated())
	assert.Equal(t, uint8(0), p.Get(100))

	p.Set(100, 5)
	assert.True(t, p.Allocated())
	assert.Equal(t, uint8(5), p.Get(100))
	assert.Equal(t, 1, p.NonzeroCount())

	p.Set(100, 0)
	assert.False(t, p.Allocated())
	assert.Equal(t, 0, p.NonzeroCount())
}

func TestPhysicsNibblesNonzeroCounterMatchesSets(t *testing.T) {
	var p PhysicsNibbles
	indices := []int{0, 1, 2, 100, 32767}
	for _, i := range indices {
		p.Set(i, 7)
	}
	require.Equal(t, len(indices), p.NonzeroCount())

	p.Set(indices[0], 0)
	assert.Equal(t, len(indices)-1, p.NonzeroCount())
}

func TestPhysicsNibblesRandomizedInvariant(t *testing.T) {
	var p PhysicsNibbles
	want := map[int]uint8{}
	rnd := rand.New(rand.NewSource(1))

	for i := 0; i < 5000; i++ {
		idx := rnd.Intn(SectionVolume)
		val := uint8(rnd.Intn(16))
		p.Set(idx, val)
		if val == 0 {
			delete(want, idx)
		} else {
			want[idx] = val
		}
	}

	assert.Equal(t, len(want), p.NonzeroCount())
	assert.Equal(t, len(want) > 0, p.Allocated())
	for idx, val := range want {
		assert.Equal(t, val, p.Get(idx))
	}
}

func TestPhysicsNibblesDecoMarker(t *testing.T) {
	var p PhysicsNibbles
	p.MarkDeco(42)
	assert.True(t, p.IsDeco(42))
	assert.Equal(t, DecoNibble, p.Get(42))
}

func TestPhysicsNibblesAdjacentPairIsolation(t *testing.T) {
	var p PhysicsNibbles
	p.Set(10, 3)
	p.Set(11, 9)
	assert.Equal(t, uint8(3), p.Get(10))
	assert.Equal(t, uint8(9), p.Get(11))
	p.Set(10, 0)
	assert.Equal(t, uint8(0), p.Get(10))
	assert.Equal(t, uint8(9), p.Get(11))
}
