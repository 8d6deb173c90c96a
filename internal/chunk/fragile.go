package chunk

import "time"

// FragileBlock is a chunk section's lazily allocated position -> remaining-
// fragility-seconds map (§3, §4.4.3). Entries are evicted when their timer
// reaches zero.
type FragileBlock struct {
	entries map[Pos]float64 // seconds remaining
}

// Set starts or replaces the fragility timer for pos.
func (f *FragileBlock) Set(pos Pos, secondsRemaining float64) {
	if secondsRemaining <= 0 {
		f.clear(pos)
		return
	}
	if f.entries == nil {
		f.entries = make(map[Pos]float64)
	}
	f.entries[pos] = secondsRemaining
}

func (f *FragileBlock) clear(pos Pos) {
	if f.entries != nil {
		delete(f.entries, pos)
	}
}

// Remaining returns the seconds left for pos, or 0 if it carries no timer.
func (f *FragileBlock) Remaining(pos Pos) float64 {
	return f.entries[pos]
}

// Tick decrements every timer by dt; any that reach or cross zero are
// removed and returned in expired so the caller can invoke its destruction
// hook (§4.4.3: "typically producing a block-break effect").
func (f *FragileBlock) Tick(dt time.Duration) (expired []Pos) {
	if len(f.entries) == 0 {
		return nil
	}
	d := dt.Seconds()
	for pos, remaining := range f.entries {
		remaining -= d
		if remaining <= 0 {
			delete(f.entries, pos)
			expired = append(expired, pos)
			continue
		}
		f.entries[pos] = remaining
	}
	return expired
}

// Len reports the number of active fragility timers.
func (f *FragileBlock) Len() int { return len(f.entries) }

// fragileEntryWireSize is the per-entry persisted size: an 8-byte float
// plus the Pos key, matching §6's "serialize includes an 8-byte float per
// entry plus the position key."
const fragileEntryWireSize = 8 + 3*4 // float64 + 3 int32 position components
