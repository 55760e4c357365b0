package driver

import (
	"fmt"

	"github.com/nerrad567/hsb-core/internal/device"
)

// BlasterFinder lists the devices that may carry infrared blasters.
type BlasterFinder interface {
	List() []*device.Device
}

// Infrared writes key presses of virtual infrared devices.
type Infrared struct {
	devices BlasterFinder
	logger  Logger
}

// Ensure Infrared implements device.EndpointWriter.
var _ device.EndpointWriter = (*Infrared)(nil)

// NewInfrared creates the infrared driver. devices is usually the manager's
// registry.
func NewInfrared(devices BlasterFinder) *Infrared {
	return &Infrared{devices: devices, logger: noopLogger{}}
}

// SetLogger sets the logger for the driver.
func (ir *Infrared) SetLogger(logger Logger) {
	ir.logger = logger
}

// Blaster returns the first online device with a remote-control endpoint.
func (ir *Infrared) Blaster() (*device.Device, *device.Endpoint, bool) {
	for _, dev := range ir.devices.List() {
		if dev.State != device.StateOnline {
			continue
		}
		if eps := dev.EndpointsByKind(device.KindRemoteControl); len(eps) > 0 {
			return dev, eps[0], true
		}
	}
	return nil, nil, false
}

// WriteEndpoints resolves the blaster that would emit the key codes and
// drops the write: codes are not translated to blaster commands.
//
// Returns:
//   - error: ErrNoBlaster when no remote-control device is online
func (ir *Infrared) WriteEndpoints(dev *device.Device, vals []device.EndpointValue) error {
	blaster, ep, ok := ir.Blaster()
	if !ok {
		return fmt.Errorf("%w: devid %d", ErrNoBlaster, dev.ID)
	}

	for _, v := range vals {
		ir.logger.Warn("dropping infrared key",
			"devid", dev.ID,
			"irtype", dev.Attrs["irtype"],
			"key", v.Value,
			"blaster", blaster.ID,
			"blaster_epid", ep.EPID,
			"error", ErrIRUnsupported,
		)
	}
	return nil
}
