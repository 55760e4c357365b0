package transport

import (
	"encoding/binary"
	"fmt"
)

// Frame layout.
const (
	// Magic starts every frame.
	Magic uint16 = 0x55AA

	// HeaderSize is the size of the frame header.
	HeaderSize = 8

	// MaxFrameSize is the largest frame the 16-bit length field allows.
	MaxFrameSize = 0xFFFF

	magicSize  = 2
	lengthSize = 4 // magic + total
)

// Frame is one addressed unit of sub-network data.
type Frame struct {
	Address uint16
	Port    uint16
	Payload []byte
}

// EncodeFrame prepends the frame header to payload.
func EncodeFrame(addr, port uint16, payload []byte) ([]byte, error) {
	total := HeaderSize + len(payload)
	if total > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, total)
	}

	buf := make([]byte, HeaderSize, total)
	binary.LittleEndian.PutUint16(buf[0:2], Magic)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(total)) //nolint:gosec // bounded above
	binary.LittleEndian.PutUint16(buf[4:6], addr)
	binary.LittleEndian.PutUint16(buf[6:8], port)
	return append(buf, payload...), nil
}

// Reassembler accumulates channel bytes into frames.
// It is not safe for concurrent use; each Transport owns one.
type Reassembler struct {
	buf []byte
}

// Feed appends newly read bytes and returns a frame once one is complete.
//
// Returns:
//   - Frame, true: a complete frame; the buffer has been cleared
//   - false, nil: more bytes are needed
//   - false, error: ErrInvalidMagic or ErrInvalidLength; the buffer has
//     been discarded
func (r *Reassembler) Feed(data []byte) (Frame, bool, error) {
	r.buf = append(r.buf, data...)

	if len(r.buf) < magicSize {
		return Frame{}, false, nil
	}
	if magic := binary.LittleEndian.Uint16(r.buf[0:2]); magic != Magic {
		r.Reset()
		return Frame{}, false, fmt.Errorf("%w: 0x%04X", ErrInvalidMagic, magic)
	}
	if len(r.buf) < lengthSize {
		return Frame{}, false, nil
	}

	total := int(binary.LittleEndian.Uint16(r.buf[2:4]))
	if total < HeaderSize {
		r.Reset()
		return Frame{}, false, fmt.Errorf("%w: total %d", ErrInvalidLength, total)
	}
	if len(r.buf) < total {
		return Frame{}, false, nil
	}

	f := Frame{
		Address: binary.LittleEndian.Uint16(r.buf[4:6]),
		Port:    binary.LittleEndian.Uint16(r.buf[6:8]),
		Payload: append([]byte(nil), r.buf[HeaderSize:total]...),
	}
	r.Reset()
	return f, true, nil
}

// Buffered returns the number of bytes waiting for a complete frame.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

// Reset discards buffered bytes.
func (r *Reassembler) Reset() {
	r.buf = r.buf[:0]
}
