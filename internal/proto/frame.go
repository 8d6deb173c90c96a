package proto

import (
	"io"
)

// MaxFrameSize bounds a single frame's payload, protecting the reader from
// a hostile or corrupt length prefix before any packet-level validation
// runs.
const MaxFrameSize = 1 << 20 // 1 MiB

// WriteFrame writes a length-prefixed frame: a VarInt total length (id +
// payload), the VarInt packet id, then the payload bytes. Framing itself
// is out of scope per §6 ("assumed length-prefixed"); this is the one
// concrete realization the core ships so C3 has something to drive over a
// net.Conn.
func WriteFrame(w io.Writer, id int32, payload []byte) error {
	idLen := VarIntLen(id)
	total := idLen + len(payload)

	head := NewWriter(VarIntSizeUpperBound + idLen)
	head.WriteVarInt(int32(total))
	head.WriteVarInt(id)

	if _, err := w.Write(head.Bytes()); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

// VarIntSizeUpperBound is the worst-case byte length of a VarInt-encoded
// 32-bit frame length.
const VarIntSizeUpperBound = MaxVarIntBytes

// ReadFrame reads one frame header then its body from r, returning the
// packet id and raw payload bytes (the payload has not yet been run
// through Decode/Validate).
func ReadFrame(r io.Reader) (id int32, payload []byte, err error) {
	var lenBuf [1]byte
	total, err := readVarIntFromReader(r, lenBuf[:])
	if err != nil {
		return 0, nil, err
	}
	if total < 0 || total > MaxFrameSize {
		return 0, nil, newErr(KindSizeExceeded, "frame exceeds maximum size")
	}

	body := make([]byte, total)
	if _, err = io.ReadFull(r, body); err != nil {
		return 0, nil, wrapErr(KindTruncated, "short frame body", err)
	}

	br := NewReader(body)
	id, err = br.ReadVarInt()
	if err != nil {
		return 0, nil, err
	}
	return id, body[br.Pos():], nil
}

func readVarIntFromReader(r io.Reader, scratch []byte) (int32, error) {
	var result int32
	for i := 0; i < MaxVarIntBytes; i++ {
		if _, err := io.ReadFull(r, scratch); err != nil {
			return 0, err
		}
		b := scratch[0]
		result |= int32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return result, nil
		}
	}
	return 0, newErr(KindBadEncoding, "varint too long")
}
