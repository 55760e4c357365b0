package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, automation.ErrSceneNotFound) {
//	    // handle not found case
//	}
var (
	// ErrSceneNotFound is returned when a scene name does not exist.
	ErrSceneNotFound = errors.New("scene: not found")

	// ErrInvalidScene is returned when scene validation fails.
	ErrInvalidScene = errors.New("scene: invalid")

	// ErrInvalidAction is returned when a scene action is invalid.
	ErrInvalidAction = errors.New("scene: invalid action")

	// ErrInvalidName is returned when a scene name is empty or too long.
	ErrInvalidName = errors.New("scene: invalid name")

	// ErrNoActions is returned when a scene has no actions defined.
	ErrNoActions = errors.New("scene: no actions")

	// ErrInvalidTimer is returned for a timer definition that cannot be armed.
	ErrInvalidTimer = errors.New("timer: invalid")
)
