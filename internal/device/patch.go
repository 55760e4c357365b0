package device

import (
	"encoding/json"
	"fmt"
	"maps"
)

// EndpointValue is one (epid, value) pair travelling to or from hardware.
type EndpointValue struct {
	EPID  uint8  `json:"epid"`
	Value uint32 `json:"val"`
}

// EndpointWriter sends endpoint values to a device's hardware.
// Drivers implement it; every call maps to one outbound command.
type EndpointWriter interface {
	WriteEndpoints(d *Device, vals []EndpointValue) error
}

// EndpointPatch edits one endpoint. Val is nil when only attributes change.
type EndpointPatch struct {
	EPID  uint8             `json:"epid"`
	Val   *uint32           `json:"val,omitempty"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// Patch is a client edit of a device.
type Patch struct {
	ID        uint32            `json:"devid"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	Endpoints []EndpointPatch   `json:"endpoints,omitempty"`
	Channels  map[string]string `json:"channels,omitempty"`
	Timers    json.RawMessage   `json:"timers,omitempty"`
}

// ApplyPatch merges attribute, channel and timer edits into the device and
// forwards every endpoint value in the patch to the hardware as a single
// batched write. Patches for unknown endpoint ids are skipped.
//
// Returns:
//   - error: ErrNoWriter or the writer's error when values could not be sent
func (d *Device) ApplyPatch(p Patch) error {
	if p.Attrs != nil {
		maps.Copy(d.Attrs, p.Attrs)
	}
	if p.Channels != nil {
		if d.Channels == nil {
			d.Channels = make(map[string]string)
		}
		maps.Copy(d.Channels, p.Channels)
	}
	if p.Timers != nil {
		d.Timers = append(json.RawMessage(nil), p.Timers...)
	}

	var vals []EndpointValue
	for _, ep := range p.Endpoints {
		endpoint, ok := d.endpoints[ep.EPID]
		if !ok {
			continue
		}
		if ep.Attrs != nil {
			maps.Copy(endpoint.Attrs, ep.Attrs)
		}
		if ep.Val != nil {
			vals = append(vals, EndpointValue{EPID: ep.EPID, Value: *ep.Val})
		}
	}

	if len(vals) == 0 {
		return nil
	}
	return d.Write(vals)
}

// Write sends values for known endpoints to the hardware in one batch.
func (d *Device) Write(vals []EndpointValue) error {
	batch := make([]EndpointValue, 0, len(vals))
	for _, v := range vals {
		if _, ok := d.endpoints[v.EPID]; ok {
			batch = append(batch, v)
		}
	}
	if len(batch) == 0 {
		return nil
	}
	if d.Writer == nil {
		return fmt.Errorf("%w: device %d", ErrNoWriter, d.ID)
	}
	return d.Writer.WriteEndpoints(d, batch)
}
