package publisher

import "errors"

var (
	// ErrNotRunning is returned when the bridge is used before Start.
	ErrNotRunning = errors.New("publisher: bridge not running")

	// ErrAlreadyRunning is returned when Start is called twice.
	ErrAlreadyRunning = errors.New("publisher: bridge already running")
)
