package automation

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Scene is a named list of actions entered together.
type Scene struct {
	Name    string   `json:"name"`
	Actions []Action `json:"actions"`
}

// Action is one step of a scene: a set of endpoint writes performed Delay
// seconds after scene entry, if the condition (when present) holds at entry.
type Action struct {
	Delay     int            `json:"delay"`
	Condition *Condition     `json:"condition,omitempty"`
	Acts      []DeviceAction `json:"actions"`
}

// DeviceAction writes one endpoint value.
type DeviceAction struct {
	DevID uint32 `json:"devid"`
	EPID  uint8  `json:"epid"`
	Val   uint32 `json:"val"`
}

// Condition compares an endpoint's current value against Val.
type Condition struct {
	DevID uint32   `json:"devid"`
	EPID  uint8    `json:"epid"`
	Expr  Operator `json:"expr"`
	Val   uint32   `json:"val"`
}

// Operator is a condition comparison.
type Operator string

// Condition operators.
const (
	OpGreater      Operator = "gt"
	OpLess         Operator = "lt"
	OpEqual        Operator = "eq"
	OpGreaterEqual Operator = "ge"
	OpLessEqual    Operator = "le"
)

// Eval applies the operator as "value <op> target".
// Unknown operators never match.
func (op Operator) Eval(value, target uint32) bool {
	switch op {
	case OpGreater:
		return value > target
	case OpLess:
		return value < target
	case OpEqual:
		return value == target
	case OpGreaterEqual:
		return value >= target
	case OpLessEqual:
		return value <= target
	default:
		return false
	}
}

// DelayDuration returns the action delay as a duration.
func (a Action) DelayDuration() time.Duration {
	return time.Duration(a.Delay) * time.Second
}

// actionJSON accepts both the nested and the flat action form.
type actionJSON struct {
	Delay     int            `json:"delay"`
	Condition *Condition     `json:"condition,omitempty"`
	Acts      []DeviceAction `json:"actions"`

	DevID *uint32 `json:"devid"`
	EPID  *uint8  `json:"epid"`
	Val   *uint32 `json:"val"`
}

// UnmarshalJSON decodes an action. A flat action
//
//	{"delay": 0, "devid": 1, "epid": 0, "val": 1, "condition": {...}}
//
// is read as one with a single device action.
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw actionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.Delay = raw.Delay
	a.Condition = raw.Condition
	a.Acts = raw.Acts

	if raw.DevID == nil && raw.EPID == nil && raw.Val == nil {
		return nil
	}
	if raw.DevID == nil || raw.EPID == nil || raw.Val == nil {
		return fmt.Errorf("%w: flat action needs devid, epid and val", ErrInvalidAction)
	}
	a.Acts = append(a.Acts, DeviceAction{DevID: *raw.DevID, EPID: *raw.EPID, Val: *raw.Val})
	return nil
}

// DeepCopy creates an independent copy of the scene.
func (s *Scene) DeepCopy() *Scene {
	if s == nil {
		return nil
	}

	cpy := *s
	if s.Actions != nil {
		cpy.Actions = make([]Action, len(s.Actions))
		for i, action := range s.Actions {
			cpy.Actions[i] = action
			cpy.Actions[i].Acts = slices.Clone(action.Acts)
			if action.Condition != nil {
				cond := *action.Condition
				cpy.Actions[i].Condition = &cond
			}
		}
	}
	return &cpy
}
