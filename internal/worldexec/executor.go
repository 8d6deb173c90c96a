// Package worldexec implements the world-executor half of §5's concurrency
// model: one single goroutine per loaded world owns that world's chunk
// sections and time authority, processing submitted closures strictly in
// enqueue order ("Per-chunk mutation order is the world executor's enqueue
// order"). I/O workers never touch a world's state directly; they submit a
// func() via Submit and, unless the protocol requires a response, do not
// await one (§5: "An I/O worker that needs to mutate a chunk submits a
// closure to the owning world's executor and does not await a result
// unless the protocol requires a response").
//
// Grounded on the teacher's shardserver package, which runs each chunk
// shard's mutations through a dedicated goroutine reading a "reqQueue"-
// style channel of closures (src/chunkymonkey/shardserver/chunk.go and
// sibling files use exactly this "mgr" + closure-dispatch shape, generalized
// here to the spec's per-world ownership boundary).
package worldexec

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chunkrealm/coreserver/internal/chunk"
	"github.com/chunkrealm/coreserver/internal/proto"
	"github.com/chunkrealm/coreserver/internal/worldtime"
)

// SectionKey identifies one chunk section within a world.
type SectionKey struct {
	X, Y, Z int32
}

// Broadcaster delivers a packet to every session currently attached to a
// world (§4.5: "handed to C3 for dispatch to every session attached to
// this world"). The concrete fan-out lives with whatever owns the set of
// live sessions (internal/server); the executor only needs this narrow
// capability.
type Broadcaster interface {
	Broadcast(p proto.Packet)
}

// World is one single-owner world executor (§5). Submit is the only
// thread-safe entry point; everything else must only be touched from
// inside a submitted closure.
type World struct {
	Name string
	Time *worldtime.Time

	broadcaster Broadcaster
	log         *logrus.Entry

	sections map[SectionKey]*chunk.Section

	tasks chan func()
	wg    sync.WaitGroup
}

// New builds a world executor. Run must be called to start processing.
func New(name string, cfg worldtime.Config, broadcaster Broadcaster) *World {
	return &World{
		Name:        name,
		Time:        worldtime.New(cfg),
		broadcaster: broadcaster,
		log:         logrus.WithField("world", name),
		sections:    make(map[SectionKey]*chunk.Section),
		tasks:       make(chan func(), 1024),
	}
}

// Submit enqueues fn to run on the world's owning goroutine. Safe to call
// from any goroutine (§5).
func (w *World) Submit(fn func()) {
	w.tasks <- fn
}

// Section returns (creating if absent) the section at key. Must only be
// called from within a submitted closure.
func (w *World) Section(key SectionKey) *chunk.Section {
	s, ok := w.sections[key]
	if !ok {
		s = &chunk.Section{}
		w.sections[key] = s
	}
	return s
}

// Run drives the executor's task queue and tick loop until ctx is
// cancelled. tickInterval is the world-tick period (e.g. 50ms for a 20Hz
// world, matching the teacher's tick cadence conventions).
func (w *World) Run(ctx context.Context, tickInterval time.Duration) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case fn := <-w.tasks:
			w.runTask(fn)
		case now := <-ticker.C:
			w.tick(tickInterval, now)
		}
	}
}

// drain runs any already-queued tasks once more so a cancelled executor
// does not silently drop work that was submitted just before shutdown;
// cancellation itself is still checked by callers before resubmitting
// (§5: "Pending cross-executor submissions check cancellation on dequeue
// and skip their work cleanly").
func (w *World) drain() {
	for {
		select {
		case fn := <-w.tasks:
			w.runTask(fn)
		default:
			return
		}
	}
}

func (w *World) runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			// §7: errors in C4/C5/C6 handlers "are caught at the
			// world-executor boundary and logged with chunk/world
			// identity; they never crash the executor."
			w.log.WithField("panic", r).Error("world task panicked")
		}
	}()
	fn()
}

func (w *World) tick(dt time.Duration, now time.Time) {
	dtTicks := uint64(1)
	if w.Time.Advance(dtTicks, dt.Seconds()) {
		w.Time.ConsumeBroadcastDue()
		if w.broadcaster != nil {
			w.broadcaster.Broadcast(w.Time.UpdateTimePacket())
		}
	}

	for key, section := range w.sections {
		healed, expired := section.Tick(dt, now)
		if w.broadcaster == nil {
			continue
		}
		for _, pos := range healed {
			w.broadcaster.Broadcast(&proto.BlockDamage{
				Position:     toBlockPos(key, pos),
				HealthScaled: 255,
			})
		}
		for _, pos := range expired {
			w.broadcaster.Broadcast(&proto.BlockDamage{
				Position:     toBlockPos(key, pos),
				HasFragility: true,
				FragilitySeconds: 0,
			})
		}
		if section.ConsumeContainerDirty() {
			w.broadcaster.Broadcast(&proto.ContainerState{
				Position: toBlockPos(key, chunk.Pos{}),
				Dirty:    true,
			})
		}
	}
}

func toBlockPos(key SectionKey, local chunk.Pos) proto.BlockPos {
	return proto.BlockPos{
		X: key.X*32 + int32(local.X),
		Y: key.Y*32 + int32(local.Y),
		Z: key.Z*32 + int32(local.Z),
	}
}

// sectionOf splits a world-space BlockPos into its owning SectionKey and the
// position local to that section (§3: "Chunk section. A 32x32x32-voxel
// region; the unit of component attachment").
func sectionOf(pos proto.BlockPos) (SectionKey, chunk.Pos) {
	key := SectionKey{X: pos.X >> 5, Y: pos.Y >> 5, Z: pos.Z >> 5}
	local := chunk.Pos{
		X: int(pos.X & 31),
		Y: int(pos.Y & 31),
		Z: int(pos.Z & 31),
	}
	return key, local
}

// healthToScaled renders a BlockHealth fraction in [0,1] as BlockDamage's
// wire-level HealthScaled byte (§4.2: "health*255 rounded").
func healthToScaled(health float32) uint8 {
	scaled := health*255 + 0.5
	if scaled < 0 {
		return 0
	}
	if scaled > 255 {
		return 255
	}
	return uint8(scaled)
}

// ApplyBlockDamage is the production entry point for §1's data flow —
// "dispatched to C4/C5 mutators ... or to out-of-scope game logic via a
// callback": the out-of-scope CommandDispatcher/game-logic layer (already-
// authorized, per §6) calls this with a world-space position once it has
// decided a block takes damage. It runs the mutation on the world's own
// goroutine (§5) and broadcasts the resulting BlockDamage so every
// attached session observes the new health, the same way World.tick's
// regeneration path does.
func (w *World) ApplyBlockDamage(pos proto.BlockPos, amount float32, now time.Time) {
	key, local := sectionOf(pos)
	w.Submit(func() {
		newHealth, _ := w.Section(key).Health.Damage(local, amount, now)
		if w.broadcaster != nil {
			w.broadcaster.Broadcast(&proto.BlockDamage{
				Position:     pos,
				HealthScaled: healthToScaled(newHealth),
			})
		}
	})
}

// ApplyBlockRepair is ApplyBlockDamage's counterpart for Section.Health.Repair.
func (w *World) ApplyBlockRepair(pos proto.BlockPos, amount float32) {
	key, local := sectionOf(pos)
	w.Submit(func() {
		newHealth := w.Section(key).Health.Repair(local, amount)
		if w.broadcaster != nil {
			w.broadcaster.Broadcast(&proto.BlockDamage{
				Position:     pos,
				HealthScaled: healthToScaled(newHealth),
			})
		}
	})
}

// MarkContainerDirty flags pos's section as needing its item-container
// spatial index rebuilt (§3: "ItemContainerState dirty flag ... consumed by
// C5"). Out-of-scope game logic (a container placed, filled, or broken via
// the CommandDispatcher boundary, §6) calls this; the next tick's
// ConsumeContainerDirty drains the flag and broadcasts the ContainerState
// notification (§4.2) the way BlockHealth's regeneration path broadcasts
// BlockDamage.
func (w *World) MarkContainerDirty(pos proto.BlockPos) {
	key, _ := sectionOf(pos)
	w.Submit(func() {
		w.Section(key).MarkContainerDirty()
	})
}
