// Package worldtime implements the world time authority (C5): one
// single-owner instance per loaded world, advancing on each world tick and
// broadcasting UpdateTime at 1 Hz of simulated time (§4.5).
//
// The teacher has no analogous subsystem (chunkymonkey ships a single
// global day/night cycle baked into the protocol's time field); this is
// grounded on the world-scoped-service redesign note (SPEC_FULL.md §9,
// "World-scoped singletons ... become per-world services held by the world
// executor") and on the teacher's worldstore.LoadWorldStore, which already
// treats "a world" as the natural unit of a loaded, owned resource.
package worldtime

import (
	"math"

	"github.com/chunkrealm/coreserver/internal/proto"
)

// Config is a world's day/night configuration (§3, §6: "per-world day/night
// lengths" sourced from ConfigStore).
type Config struct {
	DayLengthTicks   uint64
	NightLengthTicks uint64
	Dilation         float32
}

// BroadcastInterval is how much simulated time must pass between UpdateTime
// broadcasts (§4.5: "Every 1 s of simulated time").
const BroadcastInterval = 1.0 // seconds, in world-tick time

// MoonPhaseCount is the number of distinct moon phases (§4.5: "0..7").
const MoonPhaseCount = 8

// Time is one world's time authority. All mutation must run on the world's
// owning executor (§4.5, §5); readers on other executors see the cached
// Snapshot, taken under no lock because the type itself is not meant to be
// shared — callers needing cross-executor reads copy a Snapshot value out
// via their own message-passing, per §5's "no shared mutable state crosses
// executors."
type Time struct {
	cfg Config

	instant  uint64 // ticks since world start
	paused   bool
	sunDir   [3]float32
	sunlight float32
	moon     uint8

	sinceLastBroadcast float64 // seconds of simulated time accrued
}

// New creates a world time authority with the given configuration,
// computing the initial derivatives for instant 0.
func New(cfg Config) *Time {
	t := &Time{cfg: cfg}
	t.recompute()
	return t
}

// Snapshot is the read-mostly cached view exposed to other executors
// (§5: "Readers see eventually consistent values (a single cached snapshot
// updated every tick)").
type Snapshot struct {
	Instant        uint64
	DayFraction    float32
	SunDirection   [3]float32
	SunlightFactor float32
	MoonPhase      uint8
}

// Snapshot returns the current cached derivatives.
func (t *Time) Snapshot() Snapshot {
	return Snapshot{
		Instant:        t.instant,
		DayFraction:    t.DayFraction(),
		SunDirection:   t.sunDir,
		SunlightFactor: t.sunlight,
		MoonPhase:      t.moon,
	}
}

// DayFraction returns d = (instant % day_length) / day_length, per §4.5.
func (t *Time) DayFraction() float32 {
	if t.cfg.DayLengthTicks == 0 {
		return 0
	}
	return float32(t.instant%t.cfg.DayLengthTicks) / float32(t.cfg.DayLengthTicks)
}

// Advance moves the world clock forward by dtTicks * dilation, unless
// paused, and recomputes derivatives (§4.5). It reports whether a 1 Hz
// broadcast is now due; the caller is responsible for actually dispatching
// it via C3 and then calling ConsumeBroadcastDue.
func (t *Time) Advance(dtTicks uint64, tickSeconds float64) (broadcastDue bool) {
	if t.paused {
		return t.sinceLastBroadcast >= BroadcastInterval
	}
	scaled := float64(dtTicks) * float64(t.cfg.Dilation)
	t.instant += uint64(scaled)
	t.recompute()

	t.sinceLastBroadcast += tickSeconds * float64(dtTicks) * float64(t.cfg.Dilation)
	return t.sinceLastBroadcast >= BroadcastInterval
}

// ConsumeBroadcastDue resets the broadcast deadline after the caller has
// dispatched an UpdateTime packet.
func (t *Time) ConsumeBroadcastDue() {
	for t.sinceLastBroadcast >= BroadcastInterval {
		t.sinceLastBroadcast -= BroadcastInterval
	}
}

// SetPaused pauses or resumes tick-driven advancement.
func (t *Time) SetPaused(paused bool) { t.paused = paused }

// SetInstant forces the world clock to an absolute tick value, recomputing
// derivatives immediately and forcing the next Advance to report a
// broadcast due (§4.5: "Mutators ... must run on the world's owning
// executor; they recompute derivatives and force an immediate broadcast").
func (t *Time) SetInstant(instant uint64) {
	t.instant = instant
	t.recompute()
	t.sinceLastBroadcast = BroadcastInterval
}

// SetDayFraction forces the world clock to the tick nearest the given
// fraction of the configured day length, within the current day.
func (t *Time) SetDayFraction(fraction float32) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction >= 1 {
		fraction = 0
	}
	dayStart := (t.instant / maxu64(t.cfg.DayLengthTicks, 1)) * t.cfg.DayLengthTicks
	t.SetInstant(dayStart + uint64(fraction*float32(t.cfg.DayLengthTicks)))
}

func maxu64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// recompute derives sun direction, sunlight factor, and moon phase from the
// current instant, per §4.5's fixed analytic solar model.
func (t *Time) recompute() {
	d := float64(t.DayFraction())

	// A fixed analytic solar model: elevation follows a single sine arc
	// over the day fraction, peaking at noon (d=0.5). Azimuth sweeps a full
	// circle once per day. The formula is fixed here in code; Config
	// carries no solar-model parameters.
	elevation := math.Sin(2 * math.Pi * (d - 0.25))
	azimuth := 2 * math.Pi * d

	sinElev := math.Sqrt(math.Max(0, 1-elevation*elevation))
	t.sunDir = [3]float32{
		float32(math.Cos(azimuth) * sinElev),
		float32(elevation),
		float32(math.Sin(azimuth) * sinElev),
	}

	// Sunlight factor: a piecewise function of elevation, clamped to
	// [0,1] (§4.5). Below the horizon (elevation <= 0) it is 0; above, it
	// scales linearly with elevation up to 1 at the zenith.
	if elevation <= 0 {
		t.sunlight = 0
	} else {
		t.sunlight = float32(elevation)
		if t.sunlight > 1 {
			t.sunlight = 1
		}
	}

	// Moon phase: floor((instant / day_length) % 8) (§4.5).
	if t.cfg.DayLengthTicks == 0 {
		t.moon = 0
	} else {
		dayIndex := t.instant / t.cfg.DayLengthTicks
		t.moon = uint8(dayIndex % MoonPhaseCount)
	}
}

// UpdateTimePacket builds the C2 broadcast packet for the current state.
func (t *Time) UpdateTimePacket() *proto.UpdateTime {
	return &proto.UpdateTime{
		WorldTick:      t.instant,
		DayFraction:    t.DayFraction(),
		SunlightFactor: t.sunlight,
		MoonPhase:      t.moon,
	}
}

// UpdateTimeSettingsPacket builds the C2 packet describing this world's
// day/night configuration, sent once at handshake completion and again on
// config change (§6 step 5).
func (t *Time) UpdateTimeSettingsPacket() *proto.UpdateTimeSettings {
	return &proto.UpdateTimeSettings{
		DayLengthTicks:   t.cfg.DayLengthTicks,
		NightLengthTicks: t.cfg.NightLengthTicks,
		DilationScalar:   t.cfg.Dilation,
	}
}
