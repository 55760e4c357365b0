package publisher

import (
	"sync"

	"github.com/nerrad567/hsb-core/internal/device"
	"github.com/nerrad567/hsb-core/internal/manager"
)

// HistoryWriter is the side of the InfluxDB client the recorder needs.
// *influxdb.Client satisfies it.
type HistoryWriter interface {
	WriteEndpoint(devID uint32, mac string, epid uint8, value uint32)
	WritePresence(devID uint32, mac string, online bool)
}

// HistoryRecorder writes endpoint history from device events.
//
// Only changed values are written: the recorder remembers the last value
// of every readable endpoint and skips repeats. A device going online
// writes all of its readable endpoints.
type HistoryRecorder struct {
	writer HistoryWriter

	mu   sync.Mutex
	last map[uint32]map[uint8]uint32
}

// NewHistoryRecorder creates a recorder writing to w.
func NewHistoryRecorder(w HistoryWriter) *HistoryRecorder {
	return &HistoryRecorder{
		writer: w,
		last:   make(map[uint32]map[uint8]uint32),
	}
}

// PublishEvent records presence changes and endpoint values.
func (h *HistoryRecorder) PublishEvent(ev manager.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range ev.Devices {
		d := &ev.Devices[i]
		switch ev.Name {
		case manager.EventDevicesOnline:
			h.writer.WritePresence(d.ID, d.MAC, true)
			delete(h.last, d.ID)
			h.record(d)
		case manager.EventDevicesOffline:
			h.writer.WritePresence(d.ID, d.MAC, false)
			delete(h.last, d.ID)
		case manager.EventDevicesUpdated:
			h.record(d)
		}
	}
}

// PublishReply is a no-op; replies carry no history.
func (h *HistoryRecorder) PublishReply(manager.Reply) {}

func (h *HistoryRecorder) record(d *device.Snapshot) {
	seen, ok := h.last[d.ID]
	if !ok {
		seen = make(map[uint8]uint32)
		h.last[d.ID] = seen
	}

	for _, ep := range d.Endpoints {
		if ep.Val == nil {
			continue
		}
		if prev, ok := seen[ep.EPID]; ok && prev == *ep.Val {
			continue
		}
		seen[ep.EPID] = *ep.Val
		h.writer.WriteEndpoint(d.ID, d.MAC, ep.EPID, *ep.Val)
	}
}
