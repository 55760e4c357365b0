package manager

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/nerrad567/hsb-core/internal/device"
)

// CommandKind identifies a client command.
type CommandKind int

// Client commands.
const (
	CmdUnknown CommandKind = iota
	CmdGetDevices
	CmdSetDevices
	CmdDelDevices
	CmdGetScenes
	CmdSetScenes
	CmdDelScene
	CmdEnterScene
	CmdAddIRDevices
	CmdDelIRDevices
	CmdGetASRKey
)

var commandNames = map[string]CommandKind{
	"get_devices":    CmdGetDevices,
	"set_devices":    CmdSetDevices,
	"del_devices":    CmdDelDevices,
	"get_scenes":     CmdGetScenes,
	"set_scenes":     CmdSetScenes,
	"del_scene":      CmdDelScene,
	"del_scenes":     CmdDelScene,
	"enter_scene":    CmdEnterScene,
	"add_ir_devices": CmdAddIRDevices,
	"del_ir_devices": CmdDelIRDevices,
	"get_asrkey":     CmdGetASRKey,
}

// ParseCommandKind maps a wire command name to its kind.
func ParseCommandKind(name string) (CommandKind, bool) {
	k, ok := commandNames[name]
	return k, ok
}

// Request is a client command as received on any client surface.
//
// Devices and Scenes stay raw until the handler for Cmd decodes them, since
// their shape differs per command.
type Request struct {
	Cmd     string          `json:"cmd"`
	Name    string          `json:"name,omitempty"`
	Devices json.RawMessage `json:"devices,omitempty"`
	Scenes  json.RawMessage `json:"scenes,omitempty"`
}

// ParseRequest decodes a JSON client request.
func ParseRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.Cmd == "" {
		return Request{}, fmt.Errorf("%w: missing cmd", ErrInvalidRequest)
	}
	return req, nil
}

// Kind returns the parsed command kind, CmdUnknown if not recognised.
func (r Request) Kind() CommandKind {
	k, _ := ParseCommandKind(r.Cmd)
	return k
}

// Reply answers one request. On the wire it is a flat object:
//
//	{"cmd": "get_devices_reply", "devices": [...]}
//	{"cmd": "set_devices_reply", "err": "..."}
type Reply struct {
	// Origin routes the reply to the publisher and connection that sent the
	// request. It is not serialised.
	Origin string
	Cmd    string
	Err    string
	Data   map[string]any
}

func newReply(origin, cmd string) Reply {
	return Reply{Origin: origin, Cmd: cmd + "_reply", Data: make(map[string]any)}
}

// MarshalJSON flattens Data next to cmd and err.
func (r Reply) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Data)+2) //nolint:mnd // cmd and err
	maps.Copy(out, r.Data)
	out["cmd"] = r.Cmd
	if r.Err != "" {
		out["err"] = r.Err
	}
	return json.Marshal(out)
}

// Event names.
const (
	EventDevicesOnline  = "devices_online"
	EventDevicesOffline = "devices_offline"
	EventDevicesUpdated = "devices_updated"
)

// Event is an unsolicited notification for every client.
type Event struct {
	Name    string            `json:"cmd"`
	Devices []device.Snapshot `json:"devices"`
}

func newEvent(name string, devs ...*device.Device) Event {
	ev := Event{Name: name, Devices: make([]device.Snapshot, 0, len(devs))}
	for _, d := range devs {
		ev.Devices = append(ev.Devices, d.Serialize())
	}
	return ev
}
