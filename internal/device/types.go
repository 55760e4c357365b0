package device

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Type classifies a device.
type Type string

// Device types.
const (
	TypePlug      Type = "plug"
	TypeSensor    Type = "sensor"
	TypeRemoteCtl Type = "remote_ctl"
	TypeRelay     Type = "relay"
	TypeCurtain   Type = "curtain"
	TypeIR        Type = "ir"
)

// State is the lifecycle state of a device.
type State string

// Device states. A device moves uninit → online on registration and
// online → offline on liveness timeout or deletion; offline is terminal.
const (
	StateUninit  State = "uninit"
	StateOnline  State = "online"
	StateOffline State = "offline"
)

// Kind distinguishes endpoints that need special handling.
type Kind string

// Endpoint kinds.
const (
	KindNormal        Kind = "normal"
	KindRemoteControl Kind = "remote_control"
)

// EnumValue labels one discrete endpoint value.
type EnumValue struct {
	Value uint32 `json:"val"`
	Desc  string `json:"desc"`
}

// ValueRange describes a numeric endpoint.
type ValueRange struct {
	Min  uint32 `json:"min"`
	Max  uint32 `json:"max"`
	Unit string `json:"unit,omitempty"`
}

// Endpoint is one addressable capability of a device.
type Endpoint struct {
	EPID     uint8
	Bits     uint8
	Readable bool
	Writable bool
	Value    uint32
	Kind     Kind
	Attrs    map[string]string

	// At most one of Enum and Range is set.
	Enum  []EnumValue
	Range *ValueRange
}

// ByteCount returns the number of value bytes carried for a bit width.
func ByteCount(bits uint8) int {
	return (int(bits) + 7) / 8 //nolint:mnd // bits to bytes
}

// ValidWidth reports whether a bit width is representable on the wire.
func ValidWidth(bits uint8) bool {
	switch ByteCount(bits) {
	case 1, 2, 4:
		return true
	default:
		return false
	}
}

// NewEndpoint creates a normal endpoint, rejecting unrepresentable widths.
func NewEndpoint(epid, bits uint8, readable, writable bool) (*Endpoint, error) {
	if !ValidWidth(bits) {
		return nil, fmt.Errorf("%w: epid %d bits %d", ErrInvalidWidth, epid, bits)
	}
	return &Endpoint{
		EPID:     epid,
		Bits:     bits,
		Readable: readable,
		Writable: writable,
		Kind:     KindNormal,
		Attrs:    make(map[string]string),
	}, nil
}

// ByteCount returns the endpoint's value width in bytes.
func (e *Endpoint) ByteCount() int {
	return ByteCount(e.Bits)
}

// Name returns the display name attribute.
func (e *Endpoint) Name() string {
	return e.Attrs["name"]
}

// Device is a node on the sub-network or a virtual device.
type Device struct {
	ID      uint32
	MAC     []byte
	Address uint16
	Type    Type
	State   State

	Attrs    map[string]string
	Channels map[string]string

	// Timers holds the device's timer definitions as submitted by clients.
	// The automation timer engine parses them; the device only stores and
	// serialises them.
	Timers json.RawMessage

	Ticks         int
	TrackLiveness bool

	// Writer is the owning driver. Nil for devices that cannot be written.
	Writer EndpointWriter

	endpoints map[uint8]*Endpoint
}

// New creates an uninitialised device with default attributes.
func New(typ Type, mac []byte, addr uint16) *Device {
	return &Device{
		MAC:       slices.Clone(mac),
		Address:   addr,
		Type:      typ,
		State:     StateUninit,
		Attrs:     map[string]string{"name": "", "location": ""},
		Channels:  make(map[string]string),
		endpoints: make(map[uint8]*Endpoint),
	}
}

// MACString returns the MAC as lowercase colon-separated hex.
func (d *Device) MACString() string {
	return FormatMAC(d.MAC)
}

// FormatMAC renders raw MAC bytes as lowercase colon-separated hex.
func FormatMAC(mac []byte) string {
	if len(mac) == 0 {
		return ""
	}
	parts := make([]string, len(mac))
	for i, b := range mac {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, ":")
}

// AddEndpoint attaches an endpoint. Endpoint ids are unique per device.
func (d *Device) AddEndpoint(ep *Endpoint) error {
	if _, ok := d.endpoints[ep.EPID]; ok {
		return fmt.Errorf("%w: epid %d", ErrDuplicateEndpoint, ep.EPID)
	}
	if ep.Attrs == nil {
		ep.Attrs = make(map[string]string)
	}
	d.endpoints[ep.EPID] = ep
	return nil
}

// Endpoint looks up an endpoint by id.
func (d *Device) Endpoint(epid uint8) (*Endpoint, bool) {
	ep, ok := d.endpoints[epid]
	return ep, ok
}

// Endpoints returns the device's endpoints ordered by epid.
func (d *Device) Endpoints() []*Endpoint {
	eps := make([]*Endpoint, 0, len(d.endpoints))
	for _, ep := range d.endpoints {
		eps = append(eps, ep)
	}
	slices.SortFunc(eps, func(a, b *Endpoint) int {
		return int(a.EPID) - int(b.EPID)
	})
	return eps
}

// EndpointsByKind returns the endpoints of one kind ordered by epid.
func (d *Device) EndpointsByKind(kind Kind) []*Endpoint {
	var out []*Endpoint
	for _, ep := range d.Endpoints() {
		if ep.Kind == kind {
			out = append(out, ep)
		}
	}
	return out
}

// Tick advances the liveness counter and returns the new value.
func (d *Device) Tick() int {
	d.Ticks++
	return d.Ticks
}

// ResetTicks marks the device as recently heard from.
func (d *Device) ResetTicks() {
	d.Ticks = 0
}

// UpdateValues stores values reported by the hardware. Unknown endpoint ids
// are ignored. It returns the number of endpoints whose value changed.
func (d *Device) UpdateValues(vals []EndpointValue) int {
	changed := 0
	for _, v := range vals {
		ep, ok := d.endpoints[v.EPID]
		if !ok {
			continue
		}
		if ep.Value != v.Value {
			changed++
		}
		ep.Value = v.Value
	}
	return changed
}
