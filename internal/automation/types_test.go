package automation

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestOperatorEval(t *testing.T) {
	tests := []struct {
		op     Operator
		value  uint32
		target uint32
		want   bool
	}{
		{OpGreater, 5, 3, true},
		{OpGreater, 5, 10, false},
		{OpGreater, 5, 5, false},
		{OpLess, 2, 3, true},
		{OpLess, 3, 3, false},
		{OpEqual, 7, 7, true},
		{OpEqual, 7, 8, false},
		{OpGreaterEqual, 7, 7, true},
		{OpGreaterEqual, 6, 7, false},
		{OpLessEqual, 7, 7, true},
		{OpLessEqual, 8, 7, false},
		{Operator("ne"), 1, 2, false},
		{Operator(""), 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			if got := tt.op.Eval(tt.value, tt.target); got != tt.want {
				t.Errorf("%d %s %d = %v, want %v", tt.value, tt.op, tt.target, got, tt.want)
			}
		})
	}
}

func TestSceneUnmarshal_NestedForm(t *testing.T) {
	data := `{
		"name": "evening",
		"actions": [
			{"delay": 0, "actions": [{"devid": 1, "epid": 0, "val": 1}, {"devid": 2, "epid": 1, "val": 50}]},
			{"delay": 30, "condition": {"devid": 3, "epid": 0, "expr": "gt", "val": 10},
			 "actions": [{"devid": 1, "epid": 0, "val": 0}]}
		]
	}`

	var s Scene
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if s.Name != "evening" || len(s.Actions) != 2 {
		t.Fatalf("scene = %+v", s)
	}
	if len(s.Actions[0].Acts) != 2 || s.Actions[0].Condition != nil {
		t.Errorf("action[0] = %+v", s.Actions[0])
	}
	a := s.Actions[1]
	if a.Delay != 30 || a.Condition == nil || a.Condition.Expr != OpGreater || a.Condition.Val != 10 {
		t.Errorf("action[1] = %+v", a)
	}
}

func TestSceneUnmarshal_FlatForm(t *testing.T) {
	data := `{"name": "wake", "actions": [{"delay": 5, "devid": 4, "epid": 2, "val": 100,
		"condition": {"devid": 4, "epid": 1, "expr": "lt", "val": 3}}]}`

	var s Scene
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := DeviceAction{DevID: 4, EPID: 2, Val: 100}
	if len(s.Actions) != 1 || len(s.Actions[0].Acts) != 1 || s.Actions[0].Acts[0] != want {
		t.Fatalf("actions = %+v, want one %+v", s.Actions, want)
	}
	if s.Actions[0].Delay != 5 || s.Actions[0].Condition.Expr != OpLess {
		t.Errorf("action = %+v", s.Actions[0])
	}
}

func TestSceneUnmarshal_PartialFlatRejected(t *testing.T) {
	var s Scene
	err := json.Unmarshal([]byte(`{"name": "x", "actions": [{"delay": 0, "devid": 4}]}`), &s)
	if !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Unmarshal() error = %v, want ErrInvalidAction", err)
	}
}

func TestSceneMarshal_NestedForm(t *testing.T) {
	s := Scene{Name: "x", Actions: []Action{{Acts: []DeviceAction{{DevID: 1, EPID: 0, Val: 1}}}}}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"name":"x","actions":[{"delay":0,"actions":[{"devid":1,"epid":0,"val":1}]}]}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestSceneDeepCopy(t *testing.T) {
	orig := &Scene{Name: "x", Actions: []Action{{
		Condition: &Condition{DevID: 1, Expr: OpEqual, Val: 1},
		Acts:      []DeviceAction{{DevID: 2, Val: 1}},
	}}}

	cpy := orig.DeepCopy()
	cpy.Actions[0].Condition.Val = 9
	cpy.Actions[0].Acts[0].Val = 9

	if orig.Actions[0].Condition.Val != 1 || orig.Actions[0].Acts[0].Val != 1 {
		t.Error("DeepCopy shares state with original")
	}
	if (*Scene)(nil).DeepCopy() != nil {
		t.Error("DeepCopy(nil) != nil")
	}
}
