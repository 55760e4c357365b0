package device

import (
	"fmt"
	"strings"
)

// Numeric device types reported in a discovery response.
const (
	CodePlug      uint32 = 1
	CodeRemoteCtl uint32 = 2
	CodeRelay     uint32 = 3
	CodeCurtain   uint32 = 4
	CodeSensor    uint32 = 5
)

// IRTypeTV is the only infrared device class.
const IRTypeTV = "tv"

// class decorates the endpoints of one device type.
type class struct {
	typ      Type
	decorate func(ep *Endpoint, index, total int)
}

var onOff = []EnumValue{{Value: 0, Desc: "off"}, {Value: 1, Desc: "on"}}

var classes = map[uint32]class{
	CodePlug: {typ: TypePlug, decorate: func(ep *Endpoint, i, n int) {
		ep.Attrs["name"] = numbered("switch", i, n)
		ep.Enum = onOff
	}},
	CodeRemoteCtl: {typ: TypeRemoteCtl, decorate: func(ep *Endpoint, i, n int) {
		ep.Kind = KindRemoteControl
		ep.Attrs["name"] = numbered("ir", i, n)
	}},
	CodeRelay: {typ: TypeRelay, decorate: func(ep *Endpoint, i, _ int) {
		ep.Attrs["name"] = fmt.Sprintf("relay %d", i+1)
		ep.Enum = onOff
	}},
	CodeCurtain: {typ: TypeCurtain, decorate: func(ep *Endpoint, i, n int) {
		ep.Attrs["name"] = numbered("position", i, n)
		ep.Range = &ValueRange{Min: 0, Max: 100, Unit: "%"} //nolint:mnd // percentage
	}},
	CodeSensor: {typ: TypeSensor, decorate: func(ep *Endpoint, i, _ int) {
		ep.Attrs["name"] = fmt.Sprintf("value %d", i+1)
	}},
}

func numbered(base string, i, n int) string {
	if n == 1 {
		return base
	}
	return fmt.Sprintf("%s %d", base, i+1)
}

// TypeForCode maps a numeric sub-network device type to its Type.
func TypeForCode(code uint32) (Type, bool) {
	c, ok := classes[code]
	return c.typ, ok
}

// NewForType builds a device of the class for a numeric device type.
// Endpoint display names are only filled in when not already set.
//
// Returns:
//   - *Device: decorated device, liveness tracked, not yet registered
//   - error: ErrUnknownType, ErrNoEndpoints or ErrDuplicateEndpoint
func NewForType(code uint32, mac []byte, addr uint16, eps []*Endpoint) (*Device, error) {
	c, ok := classes[code]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, code)
	}
	if len(eps) == 0 {
		return nil, ErrNoEndpoints
	}

	d := New(c.typ, mac, addr)
	d.TrackLiveness = true
	for i, ep := range eps {
		if ep.Attrs == nil {
			ep.Attrs = make(map[string]string)
		}
		name, hasName := ep.Attrs["name"]
		c.decorate(ep, i, len(eps))
		if hasName {
			ep.Attrs["name"] = name
		}
		if err := d.AddEndpoint(ep); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// NewInfrared builds a virtual infrared device. Infrared devices have no
// MAC, no sub-network address and are not liveness tracked.
func NewInfrared(irType string) (*Device, error) {
	if strings.ToLower(irType) != IRTypeTV {
		return nil, fmt.Errorf("%w: ir %q", ErrUnknownType, irType)
	}

	d := New(TypeIR, nil, 0)
	d.Attrs["irtype"] = IRTypeTV

	ep, err := NewEndpoint(0, 8, false, true) //nolint:mnd // one key code byte
	if err != nil {
		return nil, err
	}
	ep.Attrs["name"] = "key"
	ep.Attrs["codec"] = "NEC"
	if err := d.AddEndpoint(ep); err != nil {
		return nil, err
	}
	return d, nil
}
