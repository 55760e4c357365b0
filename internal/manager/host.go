package manager

import (
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/hsb-core/internal/automation"
	"github.com/nerrad567/hsb-core/internal/device"
	"github.com/nerrad567/hsb-core/internal/driver"
	"github.com/nerrad567/hsb-core/internal/transport"
)

// loopHost is the manager as seen by drivers and the automation engines.
// Every method runs on the dispatch loop except Send and Defer, which only
// queue.
type loopHost struct {
	m *Manager
}

var (
	_ driver.Host            = loopHost{}
	_ automation.StateReader = loopHost{}
	_ automation.Actuator    = loopHost{}
	_ automation.Scheduler   = loopHost{}
)

// Register assigns a devId to a newly discovered node. A node whose MAC has
// a persisted record gets its old devId and settings back. A node already
// registered under another address is taken offline first.
func (h loopHost) Register(dev *device.Device) error {
	m := h.m
	mac := dev.MACString()

	if old, ok := m.registry.ByMAC(mac); ok {
		m.logger.Info("node moved", "devid", old.ID, "mac", mac, "from", old.Address, "to", dev.Address)
		m.takeOffline(old)
	}

	rec, err := m.repo.GetByMAC(m.ctx, mac)
	switch {
	case err == nil:
		dev.Restore(*rec)
	case errors.Is(err, device.ErrDeviceNotFound):
		dev.ID = m.registry.AllocID()
	default:
		return fmt.Errorf("looking up record for %s: %w", mac, err)
	}

	if err := m.registry.Add(dev); err != nil {
		return err
	}
	m.deviceCount.Store(int64(m.registry.Len()))
	m.persist(dev)
	m.armTimers(dev)
	m.emit(EventDevicesOnline, dev)
	return nil
}

// Updated announces new endpoint values.
func (h loopHost) Updated(dev *device.Device) {
	h.m.emit(EventDevicesUpdated, dev)
}

// Send queues a frame for its transport.
func (h loopHost) Send(env transport.Envelope) {
	h.m.Push(OutboundFrame{Envelope: env})
}

// EndpointValue reads an endpoint of a registered device.
func (h loopHost) EndpointValue(devID uint32, epid uint8) (uint32, bool) {
	dev, ok := h.m.registry.Get(devID)
	if !ok {
		return 0, false
	}
	ep, ok := dev.Endpoint(epid)
	if !ok {
		return 0, false
	}
	return ep.Value, true
}

// WriteDevice writes values to a registered device in one batch.
func (h loopHost) WriteDevice(devID uint32, vals []device.EndpointValue) error {
	dev, ok := h.m.registry.Get(devID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrDeviceNotFound, devID)
	}
	return dev.Write(vals)
}

// Defer runs fn on the dispatch loop.
func (h loopHost) Defer(fn func()) {
	h.m.Push(Deferred{Fn: fn})
}

// persist saves the device record. Failures are logged; the in-memory
// state stays authoritative.
func (m *Manager) persist(dev *device.Device) {
	rec := dev.Record()
	if err := m.repo.Save(m.ctx, &rec); err != nil {
		m.logger.Error("saving device record failed", "devid", dev.ID, "error", err)
	}
}

func (m *Manager) armTimers(dev *device.Device) {
	if len(dev.Timers) == 0 {
		m.timers.Remove(dev.ID)
		return
	}
	if err := m.timers.Set(dev.ID, dev.Timers, m.now()); err != nil {
		m.logger.Warn("device has invalid timers", "devid", dev.ID, "error", err)
	}
}

// takeOffline unregisters a device, drops its node mapping and timers, and
// announces it offline. The persisted record is kept.
func (m *Manager) takeOffline(dev *device.Device) {
	if _, ok := m.registry.Remove(dev.ID); !ok {
		return
	}
	if d, ok := dev.Writer.(*driver.Driver); ok {
		d.Forget(dev.Address)
	}
	m.timers.Remove(dev.ID)
	m.deviceCount.Store(int64(m.registry.Len()))
	m.offline.Add(1)
	m.emit(EventDevicesOffline, dev)
}

// housekeeping runs once per sweep interval.
func (m *Manager) housekeeping(now time.Time) {
	m.sweeps.Add(1)
	m.sweep()
	if n := m.timers.Check(now); n > 0 {
		m.timersFired.Add(uint64(n))
	}
}

// sweep advances the liveness counter of every tracked device and takes
// devices silent for longer than the limit offline.
func (m *Manager) sweep() {
	for _, dev := range m.registry.List() {
		if !dev.TrackLiveness {
			continue
		}
		if dev.Tick() > m.cfg.LivenessLimit {
			m.logger.Info("device went silent", "devid", dev.ID, "mac", dev.MACString(), "ticks", dev.Ticks)
			m.takeOffline(dev)
		}
	}
}
