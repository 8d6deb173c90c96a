package proto

import (
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertRoundTrip exercises the codec-law properties: computed_size(v) ==
// len(serialize(v)), validate(serialize(v)) == Ok(computed_size(v)), and
// deserialize(serialize(v)) == v.
func assertRoundTrip(t *testing.T, v Packet) {
	t.Helper()

	w := NewWriter(v.Size())
	err := v.Serialize(w)
	require.NoError(t, err)
	assert.Equal(t, v.Size(), w.Len(), "computed_size(v) == len(serialize(v))")

	consumed, err := Validate(v.PacketID(), w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, v.Size(), consumed, "validate(serialize(v)) == Ok(computed_size(v))")

	got, err := Decode(v.PacketID(), NewReader(w.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, v, got, "deserialize(serialize(v)) == v")
}

func TestConnectRoundTrip(t *testing.T) {
	c := &Connect{
		UUID:          uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		LocaleLang:    [2]byte{'e', 'n'},
		ViewDistance:  10,
		HasUsername:   true,
		Username:      "steve",
		HasIdentity:   true,
		IdentityToken: "tok",
	}
	for i := range c.Fingerprint {
		c.Fingerprint[i] = 'a'
	}
	assertRoundTrip(t, c)

	bare := &Connect{UUID: uuid.Nil, LocaleLang: [2]byte{'e', 'n'}}
	assertRoundTrip(t, bare)
}

func TestDisconnectRoundTrip(t *testing.T) {
	assertRoundTrip(t, NewDisconnect(DisconnectTypeCrash, "protocol version mismatch"))
	assertRoundTrip(t, &Disconnect{Type: DisconnectTypeDisconnect})
}

func TestPingPongRoundTrip(t *testing.T) {
	assertRoundTrip(t, &Ping{ID: 7, Timestamp: 1000, Reserved: [3]int32{1, 2, 3}})
	assertRoundTrip(t, &Pong{ID: 7, HasTimestamp: true, Timestamp: 1050, Type: PongTypeDirect})
	assertRoundTrip(t, &Pong{ID: 9, Type: PongTypeTick})
}

func TestEntityPacketsRoundTrip(t *testing.T) {
	assertRoundTrip(t, &SetEntitySeed{Seed: 42})
	assertRoundTrip(t, &EntityUpdates{
		HasRemoved: true,
		RemovedIDs: []int32{1, 2, 3},
		HasUpdates: true,
		Updates: []EntityUpdate{
			{EntityID: 1, X: 1.5, Y: 2.5, Z: 3.5, Yaw: 90, Pitch: 0},
		},
	})
	assertRoundTrip(t, &EntityUpdates{})
	assertRoundTrip(t, &PlayAnimation{EntityID: 5, Slot: 1, HasAnimationID: true, AnimationID: "swing"})
	assertRoundTrip(t, &ChangeVelocity{EntityID: 9, VX: 1, VY: 2, VZ: 3, Type: ChangeVelocityAdd, HasHitPos: true, HitX: 4, HitY: 5, HitZ: 6})
	assertRoundTrip(t, &ApplyKnockback{
		ChangeVelocity:     ChangeVelocity{EntityID: 9, Type: ChangeVelocitySet},
		ExplicitChangeType: 2,
	})
	assertRoundTrip(t, &SpawnModelParticles{
		HasParticles: true,
		Particles:    []ModelParticle{{ParticleTypeID: 1, X: 1, Y: 1, Z: 1, Count: 5}},
	})
}

func TestInteractionPacketsRoundTrip(t *testing.T) {
	assertRoundTrip(t, &SyncInteractionChains{
		Chains: []InteractionNode{
			{
				NodeID: 1, ActionType: 1, TargetEntityID: 10,
				Forks: []InteractionNode{
					{NodeID: 2, ActionType: 2, TargetEntityID: 11},
				},
			},
		},
	})
	assertRoundTrip(t, &CancelInteractionChain{ChainID: 3, EntityID: 4})
	assertRoundTrip(t, &PlayInteractionFor{EntityID: 1, NodeID: 2, ActionType: 3})
	assertRoundTrip(t, &MountNPC{RiderEntityID: 1, VehicleEntityID: 2})
	assertRoundTrip(t, &DismountNPC{})
}

func TestInteractionChainDepthLimit(t *testing.T) {
	// Build a chain deeper than MaxInteractionDepth and verify it's
	// rejected rather than stack-overflowing or hanging.
	var leaf InteractionNode
	for i := 0; i < MaxInteractionDepth+4; i++ {
		leaf = InteractionNode{NodeID: uint32(i), Forks: []InteractionNode{leaf}}
	}
	pkt := &SyncInteractionChains{Chains: []InteractionNode{leaf}}
	w := NewWriter(pkt.Size())
	require.NoError(t, pkt.Serialize(w))

	_, err := Decode(IDSyncInteractionChains, NewReader(w.Bytes()))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindMalformed))
}

func TestChunkPacketsRoundTrip(t *testing.T) {
	assertRoundTrip(t, &BlockDamage{Position: BlockPos{X: 1, Y: 2, Z: 3}, HealthScaled: 128, HasFragility: true, FragilitySeconds: 4.5})
	assertRoundTrip(t, &BlockSetState{SectionX: 1, SectionY: 0, SectionZ: -1, Payload: []byte{1, 2, 3, 4}})
	assertRoundTrip(t, &FillerSync{
		Origin: BlockPos{X: 0, Y: 0, Z: 0}, BlockTypeID: 7, Rotation: 1,
		FillerOffsets: []uint8{1, 2, 3},
	})
	assertRoundTrip(t, &ContainerState{
		Position: BlockPos{X: 5, Y: 5, Z: 5}, Dirty: true, HasSlots: true,
		Slots: []ContainerSlot{{ItemID: 1, Count: 4, Damage: 0}},
	})
}

func TestTimePacketsRoundTrip(t *testing.T) {
	assertRoundTrip(t, &UpdateTime{WorldTick: 24000, DayFraction: 0.5, SunlightFactor: 1, MoonPhase: 3})
	assertRoundTrip(t, &UpdateTimeSettings{DayLengthTicks: 24000, NightLengthTicks: 12000, DilationScalar: 1})
}

func TestAssetPacketsRoundTrip(t *testing.T) {
	assertRoundTrip(t, &UpdateAssetsItems{
		Kind: UpdateKindAddOrUpdate, MaxIndexHint: 2,
		Entries: []IndexEntry{{Index: 2, MaxStack: 64, Flags: 0}},
	})
	assertRoundTrip(t, &UpdateAssetsRecipes{
		Kind:    UpdateKindInit,
		Entries: []RecipeEntry{{ID: "torch", ResultItemID: 50, ResultCount: 4}},
	})
}

func TestValidateRejectsTruncated(t *testing.T) {
	p := &Ping{ID: 1, Timestamp: 2}
	w := NewWriter(p.Size())
	require.NoError(t, p.Serialize(w))

	_, err := Validate(IDPing, w.Bytes()[:p.Size()-1])
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTruncated))
}

func TestValidateRejectsBadOffset(t *testing.T) {
	c := &Connect{UUID: uuid.Nil, LocaleLang: [2]byte{'e', 'n'}, HasUsername: true, Username: "x"}
	w := NewWriter(c.Size())
	require.NoError(t, c.Serialize(w))

	// Corrupt the username offset field to point past the end of the
	// variable block.
	buf := append([]byte(nil), w.Bytes()...)
	offPos := connectNBFWidth + connectFixedWidth - 8
	buf[offPos] = 0xff
	buf[offPos+1] = 0xff

	_, err := Validate(IDConnect, buf)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidOffset))
}

func TestValidateRejectsNBFBitsBeyondDeclaredCount(t *testing.T) {
	d := NewDisconnect(DisconnectTypeDisconnect, "")
	w := NewWriter(d.Size())
	require.NoError(t, d.Serialize(w))

	buf := append([]byte(nil), w.Bytes()...)
	buf[0] = 0xff // only bit 0 is declared for Disconnect; the rest must be zero

	_, err := Validate(IDDisconnect, buf)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindMalformed))
}

func TestValidateRejectsOversizedString(t *testing.T) {
	d := &Disconnect{Type: DisconnectTypeDisconnect, HasReason: true, Reason: "ok"}
	w := NewWriter(d.Size())
	require.NoError(t, d.Serialize(w))

	buf := append([]byte(nil), w.Bytes()...)
	// Overwrite the VarInt length prefix of the reason string with a
	// value larger than MaxReasonLen.
	lenPos := disconnectNBFWidth + disconnectFixedWidth
	buf[lenPos] = 0xff
	buf[lenPos+1] = 0x0f

	_, err := Validate(IDDisconnect, buf)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidLength))
}

func TestUnknownPacketID(t *testing.T) {
	_, err := Decode(511, NewReader(nil))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnknownPacket))
}

func TestVarIntOverlong(t *testing.T) {
	buf := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	r := NewReader(buf)
	_, err := r.ReadVarInt()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindBadEncoding))
}

func TestFrameRoundTrip(t *testing.T) {
	p := &Ping{ID: 1, Timestamp: 2}
	w := NewWriter(p.Size())
	require.NoError(t, p.Serialize(w))

	var buf memFrame
	require.NoError(t, WriteFrame(&buf, p.PacketID(), w.Bytes()))

	id, payload, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, IDPing, id)
	assert.Equal(t, w.Bytes(), payload)
}

// memFrame is a minimal io.ReadWriter over an in-memory slice, used only to
// drive WriteFrame/ReadFrame in tests without a net.Conn.
type memFrame struct {
	data []byte
	pos  int
}

func (b *memFrame) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *memFrame) Read(p []byte) (int, error) {
	n := copy(p, b.data[b.pos:])
	b.pos += n
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}
