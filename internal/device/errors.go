package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID or MAC does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when registering a device ID twice.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidWidth is returned when an endpoint bit width does not map to
	// 1, 2 or 4 value bytes.
	ErrInvalidWidth = errors.New("device: unsupported endpoint width")

	// ErrDuplicateEndpoint is returned when an endpoint id is added twice.
	ErrDuplicateEndpoint = errors.New("device: duplicate endpoint")

	// ErrUnknownType is returned for a device type with no device class.
	ErrUnknownType = errors.New("device: unknown device type")

	// ErrNoEndpoints is returned when a device class is given no endpoints.
	ErrNoEndpoints = errors.New("device: no endpoints")

	// ErrNoWriter is returned when a device has no driver to write through.
	ErrNoWriter = errors.New("device: no writer")
)
