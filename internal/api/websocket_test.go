package api

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/hsb-core/internal/device"
	"github.com/nerrad567/hsb-core/internal/manager"
)

// startServer runs srv on a loopback port and returns the WebSocket URL.
func startServer(t *testing.T, srv *Server) string {
	t.Helper()
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck after Start: %v", err)
	}
	return "ws://" + srv.Addr().String() + "/api/v1/ws"
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v (resp: %v)", err, resp)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

// readMessage reads one message with a deadline.
func readMessage(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test
	var msg map[string]any
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read message: %v", err)
	}
	return msg
}

func subscribe(t *testing.T, ws *websocket.Conn, channels ...string) {
	t.Helper()
	err := ws.WriteJSON(map[string]any{
		"type":    WSTypeSubscribe,
		"id":      "sub-1",
		"payload": WSSubscribePayload{Channels: channels},
	})
	if err != nil {
		t.Fatalf("write subscribe: %v", err)
	}
	resp := readMessage(t, ws)
	if resp["type"] != WSTypeResponse || resp["id"] != "sub-1" {
		t.Fatalf("subscribe response = %v", resp)
	}
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocket_EventDelivery(t *testing.T) {
	srv, _ := testServer(t)
	url := startServer(t, srv)

	ws := dialWS(t, url)
	subscribe(t, ws, manager.EventDevicesUpdated)

	srv.Hub().PublishEvent(manager.Event{
		Name:    manager.EventDevicesUpdated,
		Devices: []device.Snapshot{{ID: 1, Type: "plug"}},
	})

	msg := readMessage(t, ws)
	if msg["type"] != WSTypeEvent || msg["event_type"] != manager.EventDevicesUpdated {
		t.Fatalf("message = %v, want devices_updated event", msg)
	}
	payload := msg["payload"].(map[string]any)
	if payload["cmd"] != manager.EventDevicesUpdated {
		t.Errorf("payload cmd = %v", payload["cmd"])
	}
	devs := payload["devices"].([]any)
	if len(devs) != 1 || devs[0].(map[string]any)["devid"].(float64) != 1 {
		t.Errorf("devices = %v", devs)
	}
	if srv.Hub().EventsSent() != 1 {
		t.Errorf("EventsSent = %d, want 1", srv.Hub().EventsSent())
	}
}

func TestWebSocket_Command(t *testing.T) {
	srv, exec := testServer(t)
	exec.handle = func(req manager.Request) (manager.Reply, error) {
		return manager.Reply{Cmd: req.Cmd + "_reply", Data: map[string]any{"asrkey": "abc"}}, nil
	}
	url := startServer(t, srv)
	ws := dialWS(t, url)

	err := ws.WriteJSON(map[string]any{
		"type":    WSTypeCommand,
		"id":      "cmd-1",
		"payload": map[string]any{"cmd": "get_asrkey"},
	})
	if err != nil {
		t.Fatalf("write command: %v", err)
	}

	msg := readMessage(t, ws)
	if msg["type"] != WSTypeResponse || msg["id"] != "cmd-1" {
		t.Fatalf("message = %v", msg)
	}
	payload := msg["payload"].(map[string]any)
	if payload["cmd"] != "get_asrkey_reply" || payload["asrkey"] != "abc" {
		t.Errorf("payload = %v", payload)
	}
}

func TestWebSocket_CommandErrors(t *testing.T) {
	srv, exec := testServer(t)
	exec.handle = func(manager.Request) (manager.Reply, error) {
		return manager.Reply{}, manager.ErrUnknownCommand
	}
	url := startServer(t, srv)
	ws := dialWS(t, url)

	tests := []struct {
		name string
		msg  any
	}{
		{"missing cmd", map[string]any{"type": WSTypeCommand, "id": "1", "payload": map[string]any{}}},
		{"unknown command", map[string]any{"type": WSTypeCommand, "id": "2", "payload": map[string]any{"cmd": "nope"}}},
		{"unknown type", map[string]any{"type": "dance", "id": "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ws.WriteJSON(tt.msg); err != nil {
				t.Fatalf("write: %v", err)
			}
			if msg := readMessage(t, ws); msg["type"] != WSTypeError {
				t.Errorf("message = %v, want error", msg)
			}
		})
	}
}

func TestWebSocket_Ping(t *testing.T) {
	srv, _ := testServer(t)
	ws := dialWS(t, startServer(t, srv))

	if err := ws.WriteJSON(map[string]any{"type": WSTypePing, "id": "p"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readMessage(t, ws); msg["type"] != WSTypePong || msg["id"] != "p" {
		t.Errorf("message = %v, want pong", msg)
	}
}

func TestWebSocket_DisconnectUnregisters(t *testing.T) {
	srv, _ := testServer(t)
	ws := dialWS(t, startServer(t, srv))
	waitForClients(t, srv.Hub(), 1)

	ws.Close()
	waitForClients(t, srv.Hub(), 0)
}

// ─── Hub Tests ─────────────────────────────────────────────────────

func testClient(hub *Hub, channels ...string) *WSClient {
	c := &WSClient{
		hub:           hub,
		send:          make(chan []byte, 4),
		subscriptions: make(map[string]struct{}),
	}
	for _, ch := range channels {
		c.subscriptions[ch] = struct{}{}
	}
	hub.Register(c)
	return c
}

func TestHub_Subscriptions(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger(), &fakeExecutor{})

	online := testClient(hub, manager.EventDevicesOnline)
	all := testClient(hub, WSChannelAll)
	none := testClient(hub)

	hub.PublishEvent(manager.Event{Name: manager.EventDevicesOffline})

	if len(online.send) != 0 {
		t.Error("devices_online subscriber received devices_offline")
	}
	if len(all.send) != 1 {
		t.Errorf("wildcard subscriber got %d messages, want 1", len(all.send))
	}
	if len(none.send) != 0 {
		t.Error("unsubscribed client received an event")
	}

	hub.PublishReply(manager.Reply{Origin: "tcp:1", Cmd: "get_devices_reply"})
	if len(all.send) != 1 {
		t.Error("PublishReply should not reach WebSocket clients")
	}
}

func TestHub_SlowClientDoesNotBlock(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger(), &fakeExecutor{})
	c := testClient(hub, WSChannelAll)

	done := make(chan struct{})
	go func() {
		for range cap(c.send) * 2 {
			hub.PublishEvent(manager.Event{Name: manager.EventDevicesUpdated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PublishEvent blocked on a full client buffer")
	}
	if len(c.send) != cap(c.send) {
		t.Errorf("buffer = %d, want full (%d)", len(c.send), cap(c.send))
	}
}

func TestHub_UnregisterThenBroadcast(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger(), &fakeExecutor{})
	c := testClient(hub, WSChannelAll)

	hub.Unregister(c)
	hub.Unregister(c) // second call must not double-close

	hub.PublishEvent(manager.Event{Name: manager.EventDevicesOnline})
	c.trySend([]byte("late")) // closed channel is absorbed

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", hub.ClientCount())
	}
}

func TestWSMessage_Encoding(t *testing.T) {
	data, err := json.Marshal(WSMessage{Type: WSTypeEvent, EventType: "devices_online"})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["id"]; ok {
		t.Error("empty id should be omitted")
	}
	if m["event_type"] != "devices_online" {
		t.Errorf("event_type = %v", m["event_type"])
	}
}
