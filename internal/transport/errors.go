package transport

import "errors"

// Domain errors for the transport package.
var (
	// ErrInvalidMagic is returned when buffered bytes do not start with the
	// frame magic word. The buffer has been discarded.
	ErrInvalidMagic = errors.New("transport: invalid frame magic")

	// ErrInvalidLength is returned when a frame declares a total length
	// shorter than its header. The buffer has been discarded.
	ErrInvalidLength = errors.New("transport: invalid frame length")

	// ErrFrameTooLarge is returned when a payload does not fit a frame.
	ErrFrameTooLarge = errors.New("transport: frame too large")

	// ErrConnectionFailed is returned when the channel cannot be opened.
	ErrConnectionFailed = errors.New("transport: connection failed")

	// ErrNotConnected is returned when sending without an open channel.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrQueueFull is returned when the outbound queue cannot take a frame.
	ErrQueueFull = errors.New("transport: outbound queue full")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("transport: closed")
)
