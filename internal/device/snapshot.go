package device

import (
	"encoding/json"
	"maps"
	"slices"
)

// EndpointSnapshot is the client-facing form of an endpoint.
type EndpointSnapshot struct {
	EPID     uint8             `json:"epid"`
	Bits     uint8             `json:"bits"`
	Readable bool              `json:"readable"`
	Writable bool              `json:"writable"`
	Kind     Kind              `json:"kind,omitempty"`
	Val      *uint32           `json:"val,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Enum     []EnumValue       `json:"enum,omitempty"`
	Range    *ValueRange       `json:"range,omitempty"`
}

// Snapshot is the client-facing form of a device. It shares nothing with
// the live device and may be handed to other goroutines.
type Snapshot struct {
	ID        uint32             `json:"devid"`
	MAC       string             `json:"mac"`
	Address   uint16             `json:"addr"`
	Type      Type               `json:"type"`
	State     State              `json:"state"`
	Attrs     map[string]string  `json:"attrs"`
	Endpoints []EndpointSnapshot `json:"endpoints"`
	Channels  map[string]string  `json:"channels,omitempty"`
	Timers    json.RawMessage    `json:"timers,omitempty"`
}

// Serialize captures the device for clients. Endpoint values are included
// only for readable endpoints.
func (d *Device) Serialize() Snapshot {
	s := Snapshot{
		ID:        d.ID,
		MAC:       d.MACString(),
		Address:   d.Address,
		Type:      d.Type,
		State:     d.State,
		Attrs:     maps.Clone(d.Attrs),
		Endpoints: make([]EndpointSnapshot, 0, len(d.endpoints)),
	}
	if len(d.Channels) > 0 {
		s.Channels = maps.Clone(d.Channels)
	}
	if len(d.Timers) > 0 {
		s.Timers = slices.Clone(d.Timers)
	}

	for _, ep := range d.Endpoints() {
		es := EndpointSnapshot{
			EPID:     ep.EPID,
			Bits:     ep.Bits,
			Readable: ep.Readable,
			Writable: ep.Writable,
			Enum:     slices.Clone(ep.Enum),
		}
		if ep.Kind != KindNormal {
			es.Kind = ep.Kind
		}
		if ep.Readable {
			v := ep.Value
			es.Val = &v
		}
		if len(ep.Attrs) > 0 {
			es.Attrs = maps.Clone(ep.Attrs)
		}
		if ep.Range != nil {
			r := *ep.Range
			es.Range = &r
		}
		s.Endpoints = append(s.Endpoints, es)
	}
	return s
}

// Record is the persisted identity of a device: what must survive a restart
// so that a rediscovered node gets its devId and user settings back.
type Record struct {
	ID       uint32            `json:"devid"`
	MAC      string            `json:"mac"`
	Type     Type              `json:"type"`
	Attrs    map[string]string `json:"attrs"`
	Channels map[string]string `json:"channels,omitempty"`
	Timers   json.RawMessage   `json:"timers,omitempty"`
}

// Record captures the persisted fields of the device.
func (d *Device) Record() Record {
	return Record{
		ID:       d.ID,
		MAC:      d.MACString(),
		Type:     d.Type,
		Attrs:    maps.Clone(d.Attrs),
		Channels: maps.Clone(d.Channels),
		Timers:   slices.Clone(d.Timers),
	}
}

// Restore applies a persisted record: the devId, saved attributes, channels
// and timers replace whatever the device was created with.
func (d *Device) Restore(r Record) {
	d.ID = r.ID
	if d.Attrs == nil {
		d.Attrs = make(map[string]string)
	}
	maps.Copy(d.Attrs, r.Attrs)
	if len(r.Channels) > 0 {
		d.Channels = maps.Clone(r.Channels)
	}
	if len(r.Timers) > 0 {
		d.Timers = slices.Clone(r.Timers)
	}
}
