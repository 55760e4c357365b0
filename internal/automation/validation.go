package automation

import (
	"fmt"
	"strings"
)

// Validation constants.
const (
	maxNameLength  = 100
	maxActions     = 100
	maxDeviceActs  = 64
	maxDelaySecond = 86400 // one day
)

// ValidateScene checks a scene definition.
// Returns an error describing the first validation failure found.
func ValidateScene(s *Scene) error {
	if s == nil {
		return ErrInvalidScene
	}
	if err := ValidateName(s.Name); err != nil {
		return err
	}

	if len(s.Actions) == 0 {
		return ErrNoActions
	}
	if len(s.Actions) > maxActions {
		return fmt.Errorf("%w: exceeds maximum of %d actions", ErrInvalidAction, maxActions)
	}

	for i, action := range s.Actions {
		if err := ValidateAction(action); err != nil {
			return fmt.Errorf("action[%d]: %w", i, err)
		}
	}
	return nil
}

// ValidateName checks if a scene name is valid.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateAction checks one scene action.
func ValidateAction(action Action) error {
	if action.Delay < 0 || action.Delay > maxDelaySecond {
		return fmt.Errorf("%w: delay must be 0-%d seconds", ErrInvalidAction, maxDelaySecond)
	}
	if len(action.Acts) == 0 {
		return fmt.Errorf("%w: no device actions", ErrInvalidAction)
	}
	if len(action.Acts) > maxDeviceActs {
		return fmt.Errorf("%w: exceeds %d device actions", ErrInvalidAction, maxDeviceActs)
	}
	for _, act := range action.Acts {
		if act.DevID == 0 {
			return fmt.Errorf("%w: devid is required", ErrInvalidAction)
		}
	}
	if c := action.Condition; c != nil && c.DevID == 0 {
		return fmt.Errorf("%w: condition devid is required", ErrInvalidAction)
	}
	return nil
}
