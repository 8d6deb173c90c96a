package worldexec

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunkrealm/coreserver/internal/proto"
	"github.com/chunkrealm/coreserver/internal/worldtime"
)

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []proto.Packet
}

func (r *recordingBroadcaster) Broadcast(p proto.Packet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, p)
}

func (r *recordingBroadcaster) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestSubmittedTasksRunInEnqueueOrder(t *testing.T) {
	bc := &recordingBroadcaster{}
	w := New("test", worldtime.Config{DayLengthTicks: 24000, Dilation: 1}, bc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, 5*time.Millisecond)

	var order []int
	var mu sync.Mutex
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		w.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			if i == 4 {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tasks did not complete")
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestPanickingTaskDoesNotCrashExecutor(t *testing.T) {
	bc := &recordingBroadcaster{}
	w := New("test", worldtime.Config{DayLengthTicks: 24000, Dilation: 1}, bc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, 5*time.Millisecond)

	w.Submit(func() { panic("boom") })

	done := make(chan struct{})
	w.Submit(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("executor stopped processing after a panic")
	}
}

func TestTickBroadcastsUpdateTimeAtOneHz(t *testing.T) {
	bc := &recordingBroadcaster{}
	w := New("test", worldtime.Config{DayLengthTicks: 24000, Dilation: 1}, bc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		return bc.count() > 0
	}, 3*time.Second, 50*time.Millisecond)
}

func (r *recordingBroadcaster) find(match func(proto.Packet) bool) proto.Packet {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.sent {
		if match(p) {
			return p
		}
	}
	return nil
}

func TestApplyBlockDamageBroadcastsBlockDamageWithTheReducedHealth(t *testing.T) {
	bc := &recordingBroadcaster{}
	w := New("test", worldtime.Config{DayLengthTicks: 24000, Dilation: 1}, bc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, 5*time.Millisecond)

	pos := proto.BlockPos{X: 4, Y: 5, Z: 6}
	w.ApplyBlockDamage(pos, 0.25, time.Now())

	require.Eventually(t, func() bool {
		p := bc.find(func(p proto.Packet) bool {
			dmg, ok := p.(*proto.BlockDamage)
			return ok && dmg.Position == pos
		})
		return p != nil && p.(*proto.BlockDamage).HealthScaled == healthToScaled(0.75)
	}, time.Second, 10*time.Millisecond)
}

func TestMarkContainerDirtyBroadcastsContainerStateOnNextTick(t *testing.T) {
	bc := &recordingBroadcaster{}
	w := New("test", worldtime.Config{DayLengthTicks: 24000, Dilation: 1}, bc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, 5*time.Millisecond)

	w.MarkContainerDirty(proto.BlockPos{X: 1, Y: 1, Z: 1})

	require.Eventually(t, func() bool {
		return bc.find(func(p proto.Packet) bool {
			cs, ok := p.(*proto.ContainerState)
			return ok && cs.Dirty
		}) != nil
	}, time.Second, 10*time.Millisecond)
}
