package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string            `json:"timestamp"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Runtime       RuntimeMetrics    `json:"runtime"`
	WebSocket     WSMetrics         `json:"websocket"`
	Dispatcher    DispatcherMetrics `json:"dispatcher"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int    `json:"connected_clients"`
	EventsSent       uint64 `json:"events_sent"`
}

// DispatcherMetrics mirrors manager.Stats.
type DispatcherMetrics struct {
	Devices         int    `json:"devices"`
	QueueDepth      int    `json:"queue_depth"`
	ItemsProcessed  uint64 `json:"items_processed"`
	ItemsDropped    uint64 `json:"items_dropped"`
	Commands        uint64 `json:"commands"`
	UnknownCommands uint64 `json:"unknown_commands"`
	Events          uint64 `json:"events"`
	Replies         uint64 `json:"replies"`
	Sweeps          uint64 `json:"sweeps"`
	TimersFired     uint64 `json:"timers_fired"`
	WentOffline     uint64 `json:"went_offline"`
}

const bytesPerMB = 1024 * 1024

// handleMetrics returns runtime, hub and dispatcher counters.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	st := s.manager.Stats()
	writeJSON(w, http.StatusOK, SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / bytesPerMB,
			MemoryTotalMB: float64(memStats.TotalAlloc) / bytesPerMB,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
			EventsSent:       s.hub.EventsSent(),
		},
		Dispatcher: DispatcherMetrics{
			Devices:         st.Devices,
			QueueDepth:      st.QueueDepth,
			ItemsProcessed:  st.ItemsProcessed,
			ItemsDropped:    st.ItemsDropped,
			Commands:        st.Commands,
			UnknownCommands: st.UnknownCommands,
			Events:          st.Events,
			Replies:         st.Replies,
			Sweeps:          st.Sweeps,
			TimersFired:     st.TimersFired,
			WentOffline:     st.WentOffline,
		},
	})
}
