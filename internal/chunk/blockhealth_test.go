package chunk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockHealthAbsentKeyIsFullHealth(t *testing.T) {
	var h BlockHealth
	assert.Equal(t, float32(1.0), h.Get(Pos{1, 2, 3}))
	assert.Equal(t, 0, h.Len())
}

func TestBlockHealthDamageRoundTrip(t *testing.T) {
	var h BlockHealth
	t0 := time.Unix(0, 0)
	pos := Pos{1, 2, 3}

	h.Damage(pos, 0.25, t0)
	h.Damage(pos, 0.25, t0)
	h.Damage(pos, 0.25, t0)

	assert.InDelta(t, 0.25, h.Get(pos), 1e-6)
	assert.Equal(t, 1, h.Len())

	h.Repair(pos, 1.0)
	assert.Equal(t, float32(1.0), h.Get(pos))
	assert.Equal(t, 0, h.Len())
}

func TestBlockHealthDamageToZeroDestroysAndRemoves(t *testing.T) {
	var h BlockHealth
	pos := Pos{0, 0, 0}
	newHealth, destroyed := h.Damage(pos, 1.0, time.Unix(0, 0))
	assert.True(t, destroyed)
	assert.Equal(t, float32(0), newHealth)
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, float32(1.0), h.Get(pos))
}

func TestBlockHealthTickRegeneratesAfterCooldown(t *testing.T) {
	var h BlockHealth
	pos := Pos{5, 5, 5}
	t0 := time.Unix(0, 0)
	h.Damage(pos, 0.5, t0)

	// Within cooldown: no regen.
	healed := h.Tick(time.Second, t0.Add(RegenCooldown-time.Second))
	assert.Empty(t, healed)
	assert.InDelta(t, 0.5, h.Get(pos), 1e-6)

	// Past cooldown, long enough to fully regen.
	healed = h.Tick(20*time.Second, t0.Add(RegenCooldown+20*time.Second))
	require.Len(t, healed, 1)
	assert.Equal(t, pos, healed[0])
	assert.Equal(t, float32(1.0), h.Get(pos))
}

func TestBlockHealthNeverStoresBoundaryValues(t *testing.T) {
	var h BlockHealth
	pos := Pos{1, 1, 1}
	h.Damage(pos, 0.1, time.Unix(0, 0))
	h.Repair(pos, 1.0) // back to exactly 1.0
	assert.Equal(t, 0, h.Len(), "entries at exactly 1.0 must be absent from the underlying map")
}
