package chunk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSectionContainerDirtyFlagConsumedOnce(t *testing.T) {
	var s Section
	assert.False(t, s.ConsumeContainerDirty())
	s.MarkContainerDirty()
	assert.True(t, s.ConsumeContainerDirty())
	assert.False(t, s.ConsumeContainerDirty())
}

func TestSectionTickDelegatesToComponents(t *testing.T) {
	var s Section
	pos := Pos{1, 1, 1}
	t0 := time.Unix(0, 0)
	s.Health.Damage(pos, 0.01, t0)
	s.Fragile.Set(pos, 1)

	healed, expired := s.Tick(2*time.Second, t0.Add(2*time.Second))
	assert.Empty(t, healed) // still within regen cooldown
	assert.Len(t, expired, 1)
	assert.Equal(t, pos, expired[0])
}
