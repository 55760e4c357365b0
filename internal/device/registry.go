package device

import (
	"fmt"
	"slices"
)

// Logger defines the logging interface used by the device package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry holds the registered devices keyed by devId and allocates new
// ids from a monotonic counter.
//
// The Registry is not safe for concurrent use; it belongs to the manager's
// dispatch loop.
type Registry struct {
	devices map[uint32]*Device
	byMAC   map[string]uint32
	nextID  uint32
	logger  Logger
}

// NewRegistry creates an empty registry whose first allocated id is firstID
// (or 1 if firstID is 0).
func NewRegistry(firstID uint32) *Registry {
	if firstID == 0 {
		firstID = 1
	}
	return &Registry{
		devices: make(map[uint32]*Device),
		byMAC:   make(map[string]uint32),
		nextID:  firstID,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// AllocID returns the next unused device id.
func (r *Registry) AllocID() uint32 {
	for {
		id := r.nextID
		r.nextID++
		if id == 0 {
			continue
		}
		if _, taken := r.devices[id]; !taken {
			return id
		}
	}
}

// Reserve makes sure id is never handed out by AllocID.
func (r *Registry) Reserve(id uint32) {
	if id >= r.nextID {
		r.nextID = id + 1
	}
}

// Add registers a device under its id and marks it online.
func (r *Registry) Add(d *Device) error {
	if d.ID == 0 {
		return fmt.Errorf("registering device without id: %w", ErrDeviceNotFound)
	}
	if _, ok := r.devices[d.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDeviceExists, d.ID)
	}
	r.devices[d.ID] = d
	if mac := d.MACString(); mac != "" {
		r.byMAC[mac] = d.ID
	}
	r.Reserve(d.ID)
	d.State = StateOnline
	r.logger.Debug("device registered", "devid", d.ID, "mac", d.MACString(), "type", d.Type)
	return nil
}

// Remove unregisters a device and marks it offline.
func (r *Registry) Remove(id uint32) (*Device, bool) {
	d, ok := r.devices[id]
	if !ok {
		return nil, false
	}
	delete(r.devices, id)
	if mac := d.MACString(); mac != "" && r.byMAC[mac] == id {
		delete(r.byMAC, mac)
	}
	d.State = StateOffline
	r.logger.Debug("device removed", "devid", id)
	return d, true
}

// Get looks up a device by id.
func (r *Registry) Get(id uint32) (*Device, bool) {
	d, ok := r.devices[id]
	return d, ok
}

// ByMAC looks up a registered device by colon-hex MAC.
func (r *Registry) ByMAC(mac string) (*Device, bool) {
	id, ok := r.byMAC[mac]
	if !ok {
		return nil, false
	}
	return r.Get(id)
}

// List returns the registered devices ordered by id.
func (r *Registry) List() []*Device {
	out := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b *Device) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	return len(r.devices)
}
