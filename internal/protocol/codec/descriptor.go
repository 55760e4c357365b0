package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/nerrad567/hsb-core/internal/device"
)

// Descriptor bit layout.
const (
	descEPIDMask     = 0x00FF
	descBitsMask     = 0x3F00
	descBitsShift    = 8
	descReadableBit  = 0x4000
	descWritableBit  = 0x8000
	descWordSize     = 2
	minDescriptorLen = 3
)

// Descriptor is one endpoint as carried on the wire.
type Descriptor struct {
	EPID     uint8
	Bits     uint8
	Readable bool
	Writable bool
	Value    uint32
}

// ByteCount returns the number of value bytes that follow the descriptor word.
func (d Descriptor) ByteCount() int {
	return device.ByteCount(d.Bits)
}

// Endpoint converts the descriptor into a model endpoint holding its value.
func (d Descriptor) Endpoint() (*device.Endpoint, error) {
	ep, err := device.NewEndpoint(d.EPID, d.Bits, d.Readable, d.Writable)
	if err != nil {
		return nil, err
	}
	ep.Value = d.Value
	return ep, nil
}

// EndpointValue returns the (epid, value) pair carried by the descriptor.
func (d Descriptor) EndpointValue() device.EndpointValue {
	return device.EndpointValue{EPID: d.EPID, Value: d.Value}
}

// DescriptorFor builds the descriptor that writes value to ep.
func DescriptorFor(ep *device.Endpoint, value uint32) Descriptor {
	return Descriptor{
		EPID:     ep.EPID,
		Bits:     ep.Bits,
		Readable: ep.Readable,
		Writable: ep.Writable,
		Value:    value,
	}
}

func (d Descriptor) word() uint16 {
	w := uint16(d.EPID) | (uint16(d.Bits)<<descBitsShift)&descBitsMask
	if d.Readable {
		w |= descReadableBit
	}
	if d.Writable {
		w |= descWritableBit
	}
	return w
}

// appendDescriptors encodes descriptors onto buf. Values wider than the
// endpoint are truncated to its byte count.
func appendDescriptors(buf []byte, descs []Descriptor) ([]byte, error) {
	for _, d := range descs {
		if !device.ValidWidth(d.Bits) {
			return nil, fmt.Errorf("%w: epid %d bits %d", ErrInvalidEndpoint, d.EPID, d.Bits)
		}
		buf = binary.LittleEndian.AppendUint16(buf, d.word())
		switch d.ByteCount() {
		case 1:
			buf = append(buf, byte(d.Value))
		case 2: //nolint:mnd // value widths
			buf = binary.LittleEndian.AppendUint16(buf, uint16(d.Value)) //nolint:gosec // truncated to endpoint width
		case 4: //nolint:mnd // value widths
			buf = binary.LittleEndian.AppendUint32(buf, d.Value)
		}
	}
	return buf, nil
}

// decodeDescriptors consumes descriptors while at least three bytes remain.
// Any malformed descriptor rejects the whole stream.
func decodeDescriptors(p []byte) ([]Descriptor, error) {
	var out []Descriptor
	for len(p) >= minDescriptorLen {
		w := binary.LittleEndian.Uint16(p)
		d := Descriptor{
			EPID:     uint8(w & descEPIDMask),                  //nolint:gosec // masked
			Bits:     uint8((w & descBitsMask) >> descBitsShift), //nolint:gosec // masked
			Readable: w&descReadableBit != 0,
			Writable: w&descWritableBit != 0,
		}
		p = p[descWordSize:]

		n := d.ByteCount()
		if !device.ValidWidth(d.Bits) {
			return nil, fmt.Errorf("%w: epid %d has %d value bytes", ErrInvalidEndpoint, d.EPID, n)
		}
		if len(p) < n {
			return nil, fmt.Errorf("%w: epid %d needs %d value bytes, %d left", ErrInvalidEndpoint, d.EPID, n, len(p))
		}

		switch n {
		case 1:
			d.Value = uint32(p[0])
		case 2: //nolint:mnd // value widths
			d.Value = uint32(binary.LittleEndian.Uint16(p))
		case 4: //nolint:mnd // value widths
			d.Value = binary.LittleEndian.Uint32(p)
		}
		p = p[n:]
		out = append(out, d)
	}
	return out, nil
}
