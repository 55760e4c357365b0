package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/hsb-core/internal/device"
	"github.com/nerrad567/hsb-core/internal/manager"
)

// execute runs req on the dispatcher. On failure it writes the error
// response and returns false.
func (s *Server) execute(w http.ResponseWriter, r *http.Request, req manager.Request) (manager.Reply, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	reply, err := s.manager.Execute(ctx, req)
	if err != nil {
		s.logger.Warn("command failed",
			"cmd", req.Cmd,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeExecuteError(w, err)
		return manager.Reply{}, false
	}
	if reply.Err != "" {
		status, code := replyStatus(reply.Err)
		writeError(w, status, code, reply.Err)
		return reply, false
	}
	return reply, true
}

// handleCommand accepts a request in the client protocol format and
// returns the reply as the TCP clients would see it. A reply carrying an
// error is still a 200; only requests that never reached a handler fail.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	req, err := manager.ParseRequest(body)
	if err != nil {
		writeExecuteError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	reply, err := s.manager.Execute(ctx, req)
	if err != nil {
		writeExecuteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// handleListDevices returns every registered device.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	reply, ok := s.execute(w, r, manager.Request{Cmd: "get_devices"})
	if !ok {
		return
	}
	devices, _ := reply.Data["devices"].([]device.Snapshot) //nolint:errcheck // nil on mismatch
	if devices == nil {
		devices = []device.Snapshot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}
	reply, ok := s.execute(w, r, manager.Request{Cmd: "get_devices", Devices: deviceRefs(id)})
	if !ok {
		return
	}
	devices, _ := reply.Data["devices"].([]device.Snapshot) //nolint:errcheck // nil on mismatch
	if len(devices) == 0 {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, devices[0])
}

// handleUpdateDevice applies a set_devices patch to one device. The body
// is a patch without devid:
//
//	{"endpoints": [{"epid": 0, "val": 1}], "attrs": {"name": "Lamp"}}
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}

	var patch device.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	patch.ID = id

	raw, err := json.Marshal([]device.Patch{patch})
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	if _, ok := s.execute(w, r, manager.Request{Cmd: "set_devices", Devices: raw}); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devid": id, "status": "accepted"})
}

// handleDeleteDevice takes a device offline.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}
	if _, ok := s.execute(w, r, manager.Request{Cmd: "del_devices", Devices: deviceRefs(id)}); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCreateIRDevices adds virtual infrared devices. The body holds the
// same devices list as add_ir_devices.
func (s *Server) handleCreateIRDevices(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Devices json.RawMessage `json:"devices"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(body.Devices) == 0 {
		writeBadRequest(w, "devices is required")
		return
	}

	reply, ok := s.execute(w, r, manager.Request{Cmd: "add_ir_devices", Devices: body.Devices})
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"devices": reply.Data["devices"]})
}

func (s *Server) handleDeleteIRDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}
	if _, ok := s.execute(w, r, manager.Request{Cmd: "del_ir_devices", Devices: deviceRefs(id)}); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetASRKey(w http.ResponseWriter, r *http.Request) {
	reply, ok := s.execute(w, r, manager.Request{Cmd: "get_asrkey"})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"asrkey": reply.Data["asrkey"]})
}

// deviceIDParam parses the {id} URL parameter as a devId.
func deviceIDParam(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid device id %q", raw))
		return 0, false
	}
	return uint32(id), true
}

// deviceRefs encodes a single-entry devices list.
func deviceRefs(id uint32) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`[{"devid":%d}]`, id))
}
