package network

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Frame layout.
const (
	// Magic starts every client frame.
	Magic uint16 = 0x55AA

	// HeaderSize is magic plus length.
	HeaderSize = 4

	// MaxMessageSize is the largest JSON body the 16-bit length allows.
	MaxMessageSize = 0xFFFF
)

// EncodeMessage frames a JSON body.
func EncodeMessage(body []byte) ([]byte, error) {
	if len(body) == 0 {
		return nil, ErrEmptyMessage
	}
	if len(body) > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(body))
	}

	buf := make([]byte, HeaderSize, HeaderSize+len(body))
	binary.LittleEndian.PutUint16(buf[0:2], Magic)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(body))) //nolint:gosec // bounded above
	return append(buf, body...), nil
}

// ReadMessage reads one framed JSON body from r.
//
// Returns:
//   - []byte: The JSON body
//   - error: io.EOF on a clean close between frames, ErrInvalidMagic or
//     ErrEmptyMessage on a corrupt stream, or the read error
func ReadMessage(r io.Reader) ([]byte, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if magic := binary.LittleEndian.Uint16(hdr[0:2]); magic != Magic {
		return nil, fmt.Errorf("%w: 0x%04X", ErrInvalidMagic, magic)
	}

	n := binary.LittleEndian.Uint16(hdr[2:4])
	if n == 0 {
		return nil, ErrEmptyMessage
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF { //nolint:errorlint // io.ReadFull returns bare io.EOF
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return body, nil
}
