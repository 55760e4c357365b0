package network

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/hsb-core/internal/device"
	"github.com/nerrad567/hsb-core/internal/manager"
)

// ─── Mock Dependencies ──────────────────────────────────────────────

type submitted struct {
	origin string
	data   string
}

type mockSubmitter struct {
	mu   sync.Mutex
	got  []submitted
	err  error
	seen chan struct{}
}

func newMockSubmitter() *mockSubmitter {
	return &mockSubmitter{seen: make(chan struct{}, 16)}
}

func (m *mockSubmitter) Submit(origin string, data []byte) error {
	m.mu.Lock()
	m.got = append(m.got, submitted{origin, string(data)})
	err := m.err
	m.mu.Unlock()
	m.seen <- struct{}{}
	return err
}

func (m *mockSubmitter) wait(t *testing.T) submitted {
	t.Helper()
	select {
	case <-m.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Submit")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.got[len(m.got)-1]
}

// ─── Helpers ────────────────────────────────────────────────────────

func startServer(t *testing.T, sink Submitter) *Server {
	t.Helper()
	s := NewServer(Config{Host: "127.0.0.1"}, sink, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s
}

func dial(t *testing.T, s *Server) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn net.Conn, body string) {
	t.Helper()
	frame, err := EncodeMessage([]byte(body))
	if err != nil {
		t.Fatalf("EncodeMessage() error = %v", err)
	}
	if _, err := conn.Write(frame); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
}

func receive(t *testing.T, conn net.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	body, err := ReadMessage(conn)
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("reply %s is not JSON: %v", body, err)
	}
	return out
}

func waitConnections(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Stats().Connections != n {
		if time.Now().After(deadline) {
			t.Fatalf("connections = %d, want %d", s.Stats().Connections, n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// ─── Tests ──────────────────────────────────────────────────────────

func TestServer_SubmitsWithOrigin(t *testing.T) {
	sink := newMockSubmitter()
	s := startServer(t, sink)
	conn := dial(t, s)

	send(t, conn, `{"cmd":"get_devices"}`)
	got := sink.wait(t)

	if got.data != `{"cmd":"get_devices"}` {
		t.Errorf("data = %s", got.data)
	}
	if got.origin != "tcp:1" {
		t.Errorf("origin = %q, want tcp:1", got.origin)
	}
}

func TestServer_ReplyGoesToOrigin(t *testing.T) {
	sink := newMockSubmitter()
	s := startServer(t, sink)
	a := dial(t, s)
	b := dial(t, s)
	waitConnections(t, s, 2)

	send(t, a, `{"cmd":"get_asrkey"}`)
	origin := sink.wait(t).origin

	s.PublishReply(manager.Reply{Origin: origin, Cmd: "get_asrkey_reply", Data: map[string]any{"asrkey": "k"}})
	s.PublishReply(manager.Reply{Origin: "mqtt", Cmd: "ignored_reply"})

	got := receive(t, a)
	if got["cmd"] != "get_asrkey_reply" || got["asrkey"] != "k" {
		t.Errorf("reply = %v", got)
	}

	b.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, err := ReadMessage(b); err == nil {
		t.Error("other connection received the reply")
	}
}

func TestServer_EventsBroadcast(t *testing.T) {
	s := startServer(t, newMockSubmitter())
	a := dial(t, s)
	b := dial(t, s)
	waitConnections(t, s, 2)

	s.PublishEvent(manager.Event{Name: manager.EventDevicesOnline, Devices: []device.Snapshot{{ID: 1}}})

	for _, conn := range []net.Conn{a, b} {
		got := receive(t, conn)
		if got["cmd"] != "devices_online" {
			t.Errorf("event = %v", got)
		}
		if devs, _ := got["devices"].([]any); len(devs) != 1 {
			t.Errorf("devices = %v", got["devices"])
		}
	}
}

func TestServer_RejectedCommandKeepsConnection(t *testing.T) {
	sink := newMockSubmitter()
	sink.err = errors.New("manager: invalid request")
	s := startServer(t, sink)
	conn := dial(t, s)

	send(t, conn, `not json`)
	sink.wait(t)
	send(t, conn, `{"cmd":"get_devices"}`)
	sink.wait(t)

	if st := s.Stats(); st.Received != 2 || st.Rejected != 2 || st.Connections != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestServer_BadMagicClosesConnection(t *testing.T) {
	s := startServer(t, newMockSubmitter())
	conn := dial(t, s)
	waitConnections(t, s, 1)

	conn.Write([]byte{0x00, 0x00, 0x01, 0x00, 'x'})

	waitConnections(t, s, 0)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := conn.Read(make([]byte, 1)); err == nil {
		t.Error("connection still open")
	}
}

func TestServer_StartTwiceAndStop(t *testing.T) {
	s := startServer(t, newMockSubmitter())
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}
	conn := dial(t, s)
	waitConnections(t, s, 1)

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := conn.Read(make([]byte, 1)); err == nil {
		t.Error("client connection survived Stop()")
	}
}

func TestServer_FullOutboxDrops(t *testing.T) {
	s := NewServer(Config{}, newMockSubmitter(), nil)
	c := &clientConn{origin: "tcp:9", out: make(chan []byte, 1), done: make(chan struct{})}
	s.conns[c.origin] = c

	s.PublishEvent(manager.Event{Name: manager.EventDevicesUpdated})
	s.PublishEvent(manager.Event{Name: manager.EventDevicesUpdated})

	if s.Stats().Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", s.Stats().Dropped)
	}
}
