package manager

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/hsb-core/internal/automation"
	"github.com/nerrad567/hsb-core/internal/device"
	"github.com/nerrad567/hsb-core/internal/driver"
	"github.com/nerrad567/hsb-core/internal/protocol/codec"
	"github.com/nerrad567/hsb-core/internal/transport"
)

// ─── Mock Dependencies ──────────────────────────────────────────────

type mockDeviceRepo struct {
	mu      sync.Mutex
	records map[uint32]device.Record
}

func newMockDeviceRepo() *mockDeviceRepo {
	return &mockDeviceRepo{records: make(map[uint32]device.Record)}
}

func (r *mockDeviceRepo) GetByMAC(_ context.Context, mac string) (*device.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if mac != "" && rec.MAC == mac {
			return &rec, nil
		}
	}
	return nil, device.ErrDeviceNotFound
}

func (r *mockDeviceRepo) List(context.Context) ([]device.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]device.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b device.Record) int { return int(a.ID) - int(b.ID) })
	return out, nil
}

func (r *mockDeviceRepo) Save(_ context.Context, rec *device.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = *rec
	return nil
}

func (r *mockDeviceRepo) Delete(_ context.Context, id uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return device.ErrDeviceNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *mockDeviceRepo) MaxID(context.Context) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var maxID uint32
	for id := range r.records {
		maxID = max(maxID, id)
	}
	return maxID, nil
}

type mockSceneRepo struct {
	mu     sync.Mutex
	scenes map[string]automation.Scene
}

func newMockSceneRepo() *mockSceneRepo {
	return &mockSceneRepo{scenes: make(map[string]automation.Scene)}
}

func (r *mockSceneRepo) List(context.Context) ([]automation.Scene, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]automation.Scene, 0, len(r.scenes))
	for _, s := range r.scenes {
		out = append(out, s)
	}
	return out, nil
}

func (r *mockSceneRepo) Save(_ context.Context, s *automation.Scene) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenes[s.Name] = *s.DeepCopy()
	return nil
}

func (r *mockSceneRepo) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scenes[name]; !ok {
		return automation.ErrSceneNotFound
	}
	delete(r.scenes, name)
	return nil
}

type mockTransport struct {
	name string
	sent []transport.Envelope
	sink transport.Sink
}

func (t *mockTransport) Name() string { return t.name }

func (t *mockTransport) SendEnvelope(env transport.Envelope) error {
	t.sent = append(t.sent, env)
	return nil
}

func (t *mockTransport) SetSink(sink transport.Sink) { t.sink = sink }

type mockPublisher struct {
	mu      sync.Mutex
	events  []Event
	replies []Reply
}

func (p *mockPublisher) PublishEvent(ev Event) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *mockPublisher) PublishReply(r Reply) {
	p.mu.Lock()
	p.replies = append(p.replies, r)
	p.mu.Unlock()
}

func (p *mockPublisher) eventsNamed(name string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Event
	for _, ev := range p.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// ─── Helpers ────────────────────────────────────────────────────────

const testTransport = "radio0"

var (
	macA = []byte{0x00, 0x12, 0x4B, 0x00, 0x00, 0x00, 0x00, 0x0A}
	macB = []byte{0x00, 0x12, 0x4B, 0x00, 0x00, 0x00, 0x00, 0x0B}
)

type harness struct {
	m     *Manager
	repo  *mockDeviceRepo
	radio *mockTransport
	pub   *mockPublisher
}

func newHarness(t *testing.T, repo *mockDeviceRepo) *harness {
	t.Helper()
	if repo == nil {
		repo = newMockDeviceRepo()
	}
	m, err := New(Config{ASRKey: "secret"}, Deps{
		Devices: repo,
		Scenes:  newMockSceneRepo(),
		Now:     func() time.Time { return time.Date(2017, 1, 5, 21, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	h := &harness{m: m, repo: repo, radio: &mockTransport{name: testTransport}, pub: &mockPublisher{}}
	m.AddTransport(h.radio)
	if _, err := m.AddDriver(testTransport, 1); err != nil {
		t.Fatalf("AddDriver() error = %v", err)
	}
	m.AddPublisher(h.pub)
	if err := m.load(context.Background()); err != nil {
		t.Fatalf("load() error = %v", err)
	}
	t.Cleanup(m.sceneEngine.Stop)
	return h
}

// drain dispatches queued items until the queue is empty.
func (h *harness) drain() {
	for {
		it, ok := h.m.queue.Pop(0)
		if !ok {
			return
		}
		h.m.dispatch(it)
	}
}

func (h *harness) frame(t *testing.T, addr uint16, msg codec.Message) {
	t.Helper()
	payload, err := codec.Encode(msg)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	h.radio.sink(transport.Envelope{
		Transport: testTransport,
		Address:   addr,
		Port:      1,
		Payload:   payload,
		Direction: transport.Inbound,
	})
	h.drain()
}

func (h *harness) plug(t *testing.T, addr uint16, mac []byte) {
	t.Helper()
	h.frame(t, addr, codec.Message{
		Cmd:        codec.CmdDiscoverResp,
		DeviceType: device.CodePlug,
		MAC:        mac,
		Endpoints:  []codec.Descriptor{{EPID: 0, Bits: 1, Readable: true, Writable: true}},
	})
}

// command submits a request and returns its reply.
func (h *harness) command(t *testing.T, body string) Reply {
	t.Helper()
	if err := h.m.Submit("test", []byte(body)); err != nil {
		t.Fatalf("Submit(%s) error = %v", body, err)
	}
	h.drain()
	if len(h.pub.replies) == 0 {
		t.Fatalf("no reply to %s", body)
	}
	return h.pub.replies[len(h.pub.replies)-1]
}

func decodeSent(t *testing.T, env transport.Envelope) codec.Message {
	t.Helper()
	msg, err := codec.Decode(env.Payload)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return msg
}

// ─── Discovery and identity ─────────────────────────────────────────

func TestDiscovery_RegistersAndAnnounces(t *testing.T) {
	h := newHarness(t, nil)

	h.plug(t, 100, macA)

	dev, ok := h.m.registry.Get(1)
	if !ok {
		t.Fatal("device 1 not registered")
	}
	if dev.State != device.StateOnline || dev.Address != 100 {
		t.Errorf("device = state %s addr %d", dev.State, dev.Address)
	}
	online := h.pub.eventsNamed(EventDevicesOnline)
	if len(online) != 1 || online[0].Devices[0].ID != 1 {
		t.Errorf("online events = %+v", online)
	}
	if _, ok := h.repo.records[1]; !ok {
		t.Error("record not persisted on registration")
	}
	if h.m.Stats().Devices != 1 {
		t.Errorf("Stats().Devices = %d, want 1", h.m.Stats().Devices)
	}
}

func TestDiscovery_Idempotent(t *testing.T) {
	h := newHarness(t, nil)

	h.plug(t, 100, macA)
	h.plug(t, 100, macA)

	if h.m.registry.Len() != 1 {
		t.Errorf("registry has %d devices, want 1", h.m.registry.Len())
	}
	if n := len(h.pub.eventsNamed(EventDevicesOnline)); n != 1 {
		t.Errorf("online events = %d, want 1", n)
	}
}

func TestDiscovery_DevIDStableByMAC(t *testing.T) {
	h := newHarness(t, nil)

	h.plug(t, 100, macA)
	h.plug(t, 101, macB)
	h.command(t, `{"cmd":"del_devices","devices":[{"devid":1}]}`)

	if _, ok := h.m.registry.Get(1); ok {
		t.Fatal("device 1 still registered after delete")
	}

	h.plug(t, 100, macA)
	dev, ok := h.m.registry.ByMAC(device.FormatMAC(macA))
	if !ok || dev.ID != 1 {
		t.Errorf("rediscovered devid = %v, want 1", dev)
	}
}

func TestDiscovery_RestoresAttrsAndSeedsIDs(t *testing.T) {
	repo := newMockDeviceRepo()
	repo.records[5] = device.Record{
		ID: 5, MAC: device.FormatMAC(macA), Type: device.TypePlug,
		Attrs: map[string]string{"name": "lamp"},
	}
	h := newHarness(t, repo)

	h.plug(t, 100, macA)
	h.plug(t, 101, macB)

	a, _ := h.m.registry.ByMAC(device.FormatMAC(macA))
	if a == nil || a.ID != 5 || a.Attrs["name"] != "lamp" {
		t.Errorf("restored device = %+v", a)
	}
	b, _ := h.m.registry.ByMAC(device.FormatMAC(macB))
	if b == nil || b.ID != 6 {
		t.Errorf("new device = %+v, want devid 6", b)
	}
}

func TestDiscovery_NodeMovedAddress(t *testing.T) {
	h := newHarness(t, nil)

	h.plug(t, 100, macA)
	h.plug(t, 200, macA)

	dev, ok := h.m.registry.Get(1)
	if !ok || dev.Address != 200 {
		t.Fatalf("device = %+v, want devid 1 at 200", dev)
	}
	if h.m.registry.Len() != 1 {
		t.Errorf("registry has %d devices, want 1", h.m.registry.Len())
	}
	if n := len(h.pub.eventsNamed(EventDevicesOffline)); n != 1 {
		t.Errorf("offline events = %d, want 1", n)
	}
}

// ─── Liveness ───────────────────────────────────────────────────────

func TestLiveness_OfflineAfterElevenSilentSweeps(t *testing.T) {
	h := newHarness(t, nil)
	h.plug(t, 100, macA)

	for range 10 {
		h.m.sweep()
	}
	h.drain()
	if _, ok := h.m.registry.Get(1); !ok {
		t.Fatal("device offline after 10 sweeps")
	}

	h.m.sweep()
	h.drain()
	if _, ok := h.m.registry.Get(1); ok {
		t.Fatal("device online after 11 sweeps")
	}

	for range 5 {
		h.m.sweep()
	}
	h.drain()
	offline := h.pub.eventsNamed(EventDevicesOffline)
	if len(offline) != 1 {
		t.Fatalf("offline events = %d, want 1", len(offline))
	}
	if offline[0].Devices[0].State != device.StateOffline {
		t.Errorf("offline snapshot state = %s", offline[0].Devices[0].State)
	}
	d := h.m.drivers[driverKey()]
	if d.NodeCount() != 0 {
		t.Errorf("driver still maps %d nodes", d.NodeCount())
	}
}

func TestLiveness_KeepAliveResets(t *testing.T) {
	h := newHarness(t, nil)
	h.plug(t, 100, macA)

	for range 10 {
		h.m.sweep()
	}
	h.frame(t, 100, codec.Message{Cmd: codec.CmdKeepAlive})
	for range 10 {
		h.m.sweep()
	}
	h.drain()

	if _, ok := h.m.registry.Get(1); !ok {
		t.Error("device went offline despite keep-alive")
	}
}

func TestLiveness_InfraredNotTracked(t *testing.T) {
	h := newHarness(t, nil)
	h.command(t, `{"cmd":"add_ir_devices","devices":[{"irtype":"tv"}]}`)

	for range 20 {
		h.m.sweep()
	}
	h.drain()
	if h.m.registry.Len() != 1 {
		t.Error("infrared device swept offline")
	}
}

// ─── Commands ───────────────────────────────────────────────────────

func TestSetDevices_SendsOneSetToNode(t *testing.T) {
	h := newHarness(t, nil)
	h.plug(t, 100, macA)
	h.radio.sent = nil

	reply := h.command(t, `{"cmd":"set_devices","devices":[{"devid":1,"endpoints":[{"epid":0,"val":1}]}]}`)

	if reply.Cmd != "set_devices_reply" || reply.Err != "" {
		t.Errorf("reply = %+v", reply)
	}
	if len(h.radio.sent) != 1 {
		t.Fatalf("sent %d frames, want 1", len(h.radio.sent))
	}
	env := h.radio.sent[0]
	if env.Address != 100 || env.Port != 1 {
		t.Errorf("frame to %d:%d, want node 100 port 1", env.Address, env.Port)
	}
	msg := decodeSent(t, env)
	if msg.Cmd != codec.CmdSet || len(msg.Endpoints) != 1 || msg.Endpoints[0].Value != 1 {
		t.Errorf("sent %+v, want SET epid 0 = 1", msg)
	}
}

func TestSetDevices_Errors(t *testing.T) {
	h := newHarness(t, nil)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"unknown device", `{"cmd":"set_devices","devices":[{"devid":42}]}`, "not found"},
		{"malformed devices", `{"cmd":"set_devices","devices":{"devid":1}}`, "invalid request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := h.command(t, tt.body)
			if !strings.Contains(reply.Err, tt.wantErr) {
				t.Errorf("reply err = %q, want %q", reply.Err, tt.wantErr)
			}
		})
	}
}

func TestSetDevices_PersistsAttrsAndTimers(t *testing.T) {
	h := newHarness(t, nil)
	h.plug(t, 100, macA)
	h.radio.sent = nil

	h.command(t, `{"cmd":"set_devices","devices":[{"devid":1,"attrs":{"name":"lamp"},
		"timers":[{"tmid":0,"type":"oneshot","date":"2017-01-05","time":"21:00:01",
		"action":{"devid":1,"epid":0,"val":1}}]}]}`)

	rec := h.repo.records[1]
	if rec.Attrs["name"] != "lamp" || len(rec.Timers) == 0 {
		t.Errorf("record = %+v", rec)
	}
	if len(h.pub.eventsNamed(EventDevicesUpdated)) != 1 {
		t.Error("attribute edit not announced")
	}

	h.m.housekeeping(time.Date(2017, 1, 5, 21, 0, 2, 0, time.UTC))
	h.drain()
	if len(h.radio.sent) != 1 || decodeSent(t, h.radio.sent[0]).Cmd != codec.CmdSet {
		t.Errorf("timer sent %d frames, want one SET", len(h.radio.sent))
	}
	if h.m.Stats().TimersFired != 1 {
		t.Errorf("TimersFired = %d, want 1", h.m.Stats().TimersFired)
	}
}

func TestGetDevices(t *testing.T) {
	h := newHarness(t, nil)

	reply := h.command(t, `{"cmd":"get_devices"}`)
	data, err := json.Marshal(reply)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"cmd":"get_devices_reply","devices":[]}` {
		t.Errorf("empty reply = %s", data)
	}

	h.plug(t, 100, macA)
	h.plug(t, 101, macB)
	reply = h.command(t, `{"cmd":"get_devices","devices":[{"devid":2}]}`)
	devs, _ := reply.Data["devices"].([]device.Snapshot)
	if len(devs) != 1 || devs[0].ID != 2 {
		t.Errorf("filtered devices = %+v", devs)
	}
}

func TestScenes_Lifecycle(t *testing.T) {
	h := newHarness(t, nil)
	h.plug(t, 100, macA)
	h.radio.sent = nil

	reply := h.command(t, `{"cmd":"set_scenes","scenes":[
		{"name":"on","actions":[{"delay":0,"actions":[{"devid":1,"epid":0,"val":1}]}]},
		{"name":"","actions":[]}]}`)
	if reply.Err == "" {
		t.Error("invalid scene accepted silently")
	}

	reply = h.command(t, `{"cmd":"get_scenes"}`)
	if scenes, _ := reply.Data["scenes"].([]automation.Scene); len(scenes) != 1 {
		t.Errorf("get_scenes = %+v, want 1 scene", reply.Data["scenes"])
	}

	reply = h.command(t, `{"cmd":"enter_scene","name":"on"}`)
	if reply.Err != "" || len(h.radio.sent) != 1 {
		t.Errorf("enter_scene err %q sent %d, want one SET", reply.Err, len(h.radio.sent))
	}

	reply = h.command(t, `{"cmd":"del_scenes","scenes":["on"]}`)
	if reply.Cmd != "del_scenes_reply" || reply.Err != "" {
		t.Errorf("del_scenes reply = %+v", reply)
	}
	reply = h.command(t, `{"cmd":"enter_scene","name":"on"}`)
	if !strings.Contains(reply.Err, "not found") {
		t.Errorf("enter deleted scene err = %q", reply.Err)
	}
}

func TestInfraredDevices(t *testing.T) {
	repo := newMockDeviceRepo()
	h := newHarness(t, repo)

	reply := h.command(t, `{"cmd":"add_ir_devices","devices":[{"irtype":"tv","attrs":{"name":"tv"}}]}`)
	devs, _ := reply.Data["devices"].([]device.Snapshot)
	if reply.Err != "" || len(devs) != 1 || devs[0].Type != device.TypeIR {
		t.Fatalf("add_ir_devices reply = %+v", reply)
	}
	id := devs[0].ID

	reloaded := newHarness(t, repo)
	if dev, ok := reloaded.m.registry.Get(id); !ok || dev.Attrs["name"] != "tv" {
		t.Fatalf("infrared device not recreated from record")
	}

	reply = reloaded.command(t, `{"cmd":"set_devices","devices":[{"devid":1,"endpoints":[{"epid":0,"val":12}]}]}`)
	if !strings.Contains(reply.Err, "no infrared blaster") {
		t.Errorf("key press without blaster err = %q", reply.Err)
	}

	reply = reloaded.command(t, `{"cmd":"del_ir_devices","devices":[{"devid":1}]}`)
	if reply.Err != "" {
		t.Errorf("del_ir_devices err = %q", reply.Err)
	}
	if _, ok := repo.records[id]; ok {
		t.Error("infrared record kept after delete")
	}
}

func TestDelIRDevices_RejectsPhysical(t *testing.T) {
	h := newHarness(t, nil)
	h.plug(t, 100, macA)

	reply := h.command(t, `{"cmd":"del_ir_devices","devices":[{"devid":1}]}`)
	if !strings.Contains(reply.Err, "not an infrared device") {
		t.Errorf("err = %q", reply.Err)
	}
}

func TestGetASRKey(t *testing.T) {
	h := newHarness(t, nil)
	reply := h.command(t, `{"cmd":"get_asrkey"}`)
	if reply.Data["asrkey"] != "secret" {
		t.Errorf("asrkey = %v", reply.Data["asrkey"])
	}
}

func TestUnknownCommandDropped(t *testing.T) {
	h := newHarness(t, nil)

	if err := h.m.Submit("test", []byte(`{"cmd":"reboot"}`)); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	h.drain()

	if len(h.pub.replies) != 0 {
		t.Errorf("replies = %+v, want none", h.pub.replies)
	}
	if h.m.Stats().UnknownCommands != 1 {
		t.Errorf("UnknownCommands = %d, want 1", h.m.Stats().UnknownCommands)
	}
}

func TestSubmit_InvalidJSON(t *testing.T) {
	h := newHarness(t, nil)
	for _, body := range []string{`not json`, `{"name":"x"}`} {
		if err := h.m.Submit("test", []byte(body)); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("Submit(%s) error = %v, want ErrInvalidRequest", body, err)
		}
	}
}

// ─── Routing ────────────────────────────────────────────────────────

func TestInboundWithoutDriverDropped(t *testing.T) {
	h := newHarness(t, nil)

	h.radio.sink(transport.Envelope{Transport: testTransport, Port: 9, Address: 100, Payload: []byte{0x01}})
	h.drain()

	if h.m.Stats().ItemsDropped != 1 {
		t.Errorf("ItemsDropped = %d, want 1", h.m.Stats().ItemsDropped)
	}
}

func TestUpdateFromUnknownNodeProbes(t *testing.T) {
	h := newHarness(t, nil)

	h.frame(t, 77, codec.Message{Cmd: codec.CmdUpdate, Endpoints: []codec.Descriptor{{EPID: 0, Bits: 8, Value: 3}}})

	if len(h.radio.sent) != 1 {
		t.Fatalf("sent %d frames, want 1 probe", len(h.radio.sent))
	}
	if msg := decodeSent(t, h.radio.sent[0]); msg.Cmd != codec.CmdDiscover || h.radio.sent[0].Address != 77 {
		t.Errorf("probe = %+v to %d", msg, h.radio.sent[0].Address)
	}
}

func TestUpdateAnnounced(t *testing.T) {
	h := newHarness(t, nil)
	h.plug(t, 100, macA)

	h.frame(t, 100, codec.Message{Cmd: codec.CmdUpdate, Endpoints: []codec.Descriptor{{EPID: 0, Bits: 1, Readable: true, Value: 1}}})

	updated := h.pub.eventsNamed(EventDevicesUpdated)
	if len(updated) != 1 || *updated[0].Devices[0].Endpoints[0].Val != 1 {
		t.Errorf("updated events = %+v", updated)
	}
}

// ─── Loop ───────────────────────────────────────────────────────────

func TestExecute(t *testing.T) {
	m, err := New(Config{ASRKey: "k", SweepInterval: 10 * time.Millisecond}, Deps{
		Devices: newMockDeviceRepo(),
		Scenes:  newMockSceneRepo(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	pub := &mockPublisher{}
	m.AddPublisher(pub)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer m.Stop()

	reply, err := m.Execute(ctx, Request{Cmd: "get_asrkey"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if reply.Data["asrkey"] != "k" || !strings.HasPrefix(reply.Origin, OriginAPI) {
		t.Errorf("reply = %+v", reply)
	}
	if len(pub.replies) != 0 {
		t.Error("api reply also published")
	}

	if _, err := m.Execute(ctx, Request{Cmd: "reboot"}); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Execute(reboot) error = %v, want ErrUnknownCommand", err)
	}
	if err := m.Start(ctx); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v", err)
	}

	m.Stop()
	if _, err := m.Execute(context.Background(), Request{Cmd: "get_asrkey"}); !errors.Is(err, ErrStopped) {
		t.Errorf("Execute() after Stop error = %v, want ErrStopped", err)
	}
}

func TestDispatch_RecoversPanic(t *testing.T) {
	h := newHarness(t, nil)

	h.m.Push(Deferred{Fn: func() { panic("boom") }})
	ran := false
	h.m.Push(Deferred{Fn: func() { ran = true }})
	h.drain()

	if !ran {
		t.Error("loop stopped after a panicking item")
	}
}

func TestReply_MarshalJSON(t *testing.T) {
	r := newReply("tcp:1", "set_devices")
	r.Err = "manager: device not found: 4"

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"cmd":"set_devices_reply","err":"manager: device not found: 4"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestParseCommandKind(t *testing.T) {
	for name, want := range map[string]CommandKind{
		"get_devices": CmdGetDevices,
		"del_scene":   CmdDelScene,
		"del_scenes":  CmdDelScene,
		"get_asrkey":  CmdGetASRKey,
	} {
		if got, ok := ParseCommandKind(name); !ok || got != want {
			t.Errorf("ParseCommandKind(%q) = %v, %v", name, got, ok)
		}
	}
	if _, ok := ParseCommandKind("GET_DEVICES"); ok {
		t.Error("command names are case sensitive")
	}
}

func driverKey() driver.Key {
	return driver.Key{Transport: testTransport, Port: 1}
}
