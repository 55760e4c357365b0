package driver

import "errors"

// Domain errors for the driver package.
var (
	// ErrUnknownNode is returned when addressing a node the driver has not
	// discovered.
	ErrUnknownNode = errors.New("driver: unknown node")

	// ErrForeignDevice is returned when writing to a device owned by another driver.
	ErrForeignDevice = errors.New("driver: device not owned by this driver")

	// ErrIRUnsupported marks infrared writes, which are logged and dropped.
	ErrIRUnsupported = errors.New("driver: infrared codes not supported")

	// ErrNoBlaster is returned when no remote-control capable device is online.
	ErrNoBlaster = errors.New("driver: no infrared blaster online")
)
