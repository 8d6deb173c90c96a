package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chunkrealm/coreserver/internal/chunk"
	"github.com/chunkrealm/coreserver/internal/config"
	"github.com/chunkrealm/coreserver/internal/proto"
	"github.com/chunkrealm/coreserver/internal/worldexec"
)

// This exercises the production call site §1/§6 describe for inbound
// damage ("dispatched to C4/C5 mutators ... via a callback" from the
// out-of-scope CommandDispatcher): Server.ApplyBlockDamage/ApplyBlockRepair
// reaching BlockHealth.Damage/Repair through the real world executor, not
// through a unit test of internal/chunk in isolation.
func TestApplyBlockDamageAndRepairReachBlockHealthThroughTheWorldExecutor(t *testing.T) {
	cfg := &config.EnvConfigStore{
		AdminListenAddress: "127.0.0.1:0",
		Worlds: []config.WorldConfig{
			{Name: "overworld", DayLengthTicks: 24000, NightLengthTicks: 12000, Dilation: 1},
		},
	}
	s := New(cfg, OpenAuth{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := s.worlds["overworld"]
	go w.Run(ctx, 5*time.Millisecond)

	pos := proto.BlockPos{X: 1, Y: 2, Z: 3}
	localPos := chunk.Pos{X: 1, Y: 2, Z: 3}

	s.ApplyBlockDamage("overworld", pos, 0.25)
	require.InDelta(t, 0.75, readHealth(t, w, localPos), 1e-6)

	s.ApplyBlockRepair("overworld", pos, 1.0)
	require.Equal(t, float32(1.0), readHealth(t, w, localPos))

	// An unconfigured world name is a no-op, not a panic.
	s.ApplyBlockDamage("no-such-world", pos, 0.5)
}

// readHealth submits a closure that reads a section's BlockHealth and
// returns the result over a channel, relying on the executor's enqueue
// ordering (§5) to guarantee it observes any damage/repair submitted
// beforehand.
func readHealth(t *testing.T, w *worldexec.World, pos chunk.Pos) float32 {
	t.Helper()
	got := make(chan float32, 1)
	w.Submit(func() {
		got <- w.Section(worldexec.SectionKey{}).Health.Get(pos)
	})
	select {
	case health := <-got:
		return health
	case <-time.After(time.Second):
		t.Fatal("world executor did not process submitted task")
		return 0
	}
}
