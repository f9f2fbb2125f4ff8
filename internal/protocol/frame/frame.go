package frame

import (
	"encoding/binary"
	"errors"
)

// Frame type IDs. Values outside this set are reserved for future use and are
// passed through to the caller, which decides whether to drop them.
const (
	TypeData    uint8 = 0x00
	TypeControl uint8 = 0x01
)

const (
	// HeaderLen is the fixed per-frame header: one type byte followed by a
	// big-endian uint16 payload length.
	HeaderLen = 3
	// MaxPayload is the largest payload a single frame can carry.
	MaxPayload = 0xFFFF
)

var (
	ErrPayloadTooLarge = errors.New("frame: payload exceeds max frame size")
	ErrPendingOverflow = errors.New("frame: pending bytes exceed decoder limit")
)

// Frame is one complete wire message.
type Frame struct {
	Type    uint8
	Payload []byte
}

// Encode produces the wire bytes for a single frame. The payload must fit in
// one frame; callers with larger Data payloads use EncodeData.
func Encode(frameType uint8, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, ErrPayloadTooLarge
	}
	return appendFrame(make([]byte, 0, HeaderLen+len(payload)), frameType, payload), nil
}

// EncodeData frames an arbitrarily large payload as the minimum number of
// ordered Data frames, each carrying at most MaxPayload bytes. An empty
// payload still produces one empty frame.
func EncodeData(payload []byte) []byte {
	frames := len(payload)/MaxPayload + 1
	out := make([]byte, 0, len(payload)+frames*HeaderLen)
	for {
		n := len(payload)
		if n > MaxPayload {
			n = MaxPayload
		}
		out = appendFrame(out, TypeData, payload[:n])
		payload = payload[n:]
		if len(payload) == 0 {
			return out
		}
	}
}

func appendFrame(dst []byte, frameType uint8, payload []byte) []byte {
	dst = append(dst, frameType)
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(payload)))
	return append(dst, payload...)
}

// DefaultMaxPending bounds the bytes a Decoder retains while waiting for the
// remainder of a frame. One full frame always fits.
const DefaultMaxPending = HeaderLen + MaxPayload

// Decoder accumulates wire bytes delivered at arbitrary boundaries and yields
// complete frames in order. A frame is never yielded until its payload is
// fully buffered.
type Decoder struct {
	buf        []byte
	maxPending int
}

func NewDecoder() *Decoder {
	return NewDecoderLimit(DefaultMaxPending)
}

// NewDecoderLimit bounds retained bytes at maxPending. A limit below one full
// frame rejects frames whose declared payload can never complete within it.
func NewDecoderLimit(maxPending int) *Decoder {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &Decoder{maxPending: maxPending}
}

// Decode appends chunk to the internal buffer and extracts every complete
// frame. Incomplete trailing bytes are retained for the next call. When the
// retained remainder exceeds the decoder limit, the frames extracted so far
// are returned together with ErrPendingOverflow and the buffer is discarded;
// the connection should be treated as faulted.
func (d *Decoder) Decode(chunk []byte) ([]Frame, error) {
	d.buf = append(d.buf, chunk...)

	var frames []Frame
	for len(d.buf) >= HeaderLen {
		length := int(binary.BigEndian.Uint16(d.buf[1:HeaderLen]))
		total := HeaderLen + length
		if len(d.buf) < total {
			break
		}
		payload := make([]byte, length)
		copy(payload, d.buf[HeaderLen:total])
		frames = append(frames, Frame{Type: d.buf[0], Payload: payload})
		d.buf = d.buf[total:]
	}

	if len(d.buf) > d.maxPending {
		d.buf = nil
		return frames, ErrPendingOverflow
	}
	// Compact so extracted frames do not pin the backing array.
	if len(d.buf) > 0 {
		rest := make([]byte, len(d.buf))
		copy(rest, d.buf)
		d.buf = rest
	} else {
		d.buf = nil
	}
	return frames, nil
}

// Pending reports how many buffered bytes await frame completion.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

// Reset discards buffered bytes. Called when the underlying transport is
// replaced, since a partial frame cannot continue across connections.
func (d *Decoder) Reset() {
	d.buf = nil
}
