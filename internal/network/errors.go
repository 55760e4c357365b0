package network

import "errors"

var (
	// ErrInvalidMagic is returned when a frame does not start with 0x55AA.
	ErrInvalidMagic = errors.New("network: invalid frame magic")

	// ErrMessageTooLarge is returned when a JSON body exceeds MaxMessageSize.
	ErrMessageTooLarge = errors.New("network: message too large")

	// ErrEmptyMessage is returned for a frame with no body.
	ErrEmptyMessage = errors.New("network: empty message")

	// ErrAlreadyRunning is returned when Start is called twice.
	ErrAlreadyRunning = errors.New("network: already running")

	// ErrNoResponse is returned by Probe when no gateway answered.
	ErrNoResponse = errors.New("network: no gateway answered")
)
