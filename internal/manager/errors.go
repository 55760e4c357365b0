package manager

import "errors"

// Domain errors for the manager package.
var (
	// ErrUnknownCommand is returned when a client command name is not recognised.
	ErrUnknownCommand = errors.New("manager: unknown command")

	// ErrInvalidRequest is returned when a client request cannot be parsed.
	ErrInvalidRequest = errors.New("manager: invalid request")

	// ErrDeviceNotFound is returned when a command names an unregistered devId.
	ErrDeviceNotFound = errors.New("manager: device not found")

	// ErrNotInfrared is returned when del_ir_devices names a physical device.
	ErrNotInfrared = errors.New("manager: not an infrared device")

	// ErrStopped is returned when work is submitted after Stop.
	ErrStopped = errors.New("manager: stopped")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("manager: already started")

	// ErrDuplicateDriver is returned when two drivers claim the same
	// transport and port.
	ErrDuplicateDriver = errors.New("manager: duplicate driver")
)
