package proto

// Packet identifiers, time family.
const (
	IDUpdateTime         int32 = 210
	IDUpdateTimeSettings int32 = 211
)

func init() {
	Register(IDUpdateTime, func(r *Reader) (Packet, error) { v := &UpdateTime{}; return v, v.deserialize(r) })
	Register(IDUpdateTimeSettings, func(r *Reader) (Packet, error) { v := &UpdateTimeSettings{}; return v, v.deserialize(r) })
}

// UpdateTime (210), fixed 17 bytes. Broadcast at 1 Hz by C5 (§4.5).
type UpdateTime struct {
	WorldTick       uint64
	DayFraction     float32
	SunlightFactor  float32
	MoonPhase       uint8
}

func (*UpdateTime) PacketID() int32 { return IDUpdateTime }
func (*UpdateTime) Size() int       { return 17 }

func (u *UpdateTime) Serialize(w *Writer) error {
	w.WriteU64(u.WorldTick)
	w.WriteF32(u.DayFraction)
	w.WriteF32(u.SunlightFactor)
	w.WriteU8(u.MoonPhase)
	return nil
}

func (u *UpdateTime) deserialize(r *Reader) (err error) {
	if u.WorldTick, err = r.ReadU64(); err != nil {
		return
	}
	if u.DayFraction, err = r.ReadF32(); err != nil {
		return
	}
	if u.SunlightFactor, err = r.ReadF32(); err != nil {
		return
	}
	u.MoonPhase, err = r.ReadU8()
	return
}

// UpdateTimeSettings (211), fixed 20 bytes. Sent on config change and once
// at handshake completion (§6 step 5).
type UpdateTimeSettings struct {
	DayLengthTicks   uint64
	NightLengthTicks uint64
	DilationScalar   float32
}

func (*UpdateTimeSettings) PacketID() int32 { return IDUpdateTimeSettings }
func (*UpdateTimeSettings) Size() int       { return 20 }

func (u *UpdateTimeSettings) Serialize(w *Writer) error {
	w.WriteU64(u.DayLengthTicks)
	w.WriteU64(u.NightLengthTicks)
	w.WriteF32(u.DilationScalar)
	return nil
}

func (u *UpdateTimeSettings) deserialize(r *Reader) (err error) {
	if u.DayLengthTicks, err = r.ReadU64(); err != nil {
		return
	}
	if u.NightLengthTicks, err = r.ReadU64(); err != nil {
		return
	}
	u.DilationScalar, err = r.ReadF32()
	return
}
