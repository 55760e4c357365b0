package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/hsb-core/internal/infrastructure/config"
)

// ─── Mock Dependencies ──────────────────────────────────────────────

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                       { return !t.timeout }
func (t *fakeToken) WaitTimeout(_ time.Duration) bool { return !t.timeout }
func (t *fakeToken) Error() error                     { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeBroker struct {
	mu           sync.Mutex
	connected    bool
	published    []published
	handlers     map[string]pahomqtt.MessageHandler
	subscribes   int
	subErr       error
	pubTimeout   bool
	disconnected bool
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{connected: true, handlers: make(map[string]pahomqtt.MessageHandler)}
}

func (b *fakeBroker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBroker) Connect() pahomqtt.Token { return &fakeToken{} }

func (b *fakeBroker) Disconnect(uint) {
	b.mu.Lock()
	b.connected = false
	b.disconnected = true
	b.mu.Unlock()
}

func (b *fakeBroker) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	body, _ := payload.([]byte)
	b.published = append(b.published, published{topic, qos, retained, body})
	return &fakeToken{timeout: b.pubTimeout}
}

func (b *fakeBroker) Subscribe(topic string, _ byte, cb pahomqtt.MessageHandler) pahomqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribes++
	if b.subErr != nil {
		return &fakeToken{err: b.subErr}
	}
	b.handlers[topic] = cb
	return &fakeToken{}
}

func (b *fakeBroker) Unsubscribe(topics ...string) pahomqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range topics {
		delete(b.handlers, t)
	}
	return &fakeToken{}
}

func (b *fakeBroker) deliver(topic string, payload []byte) {
	b.mu.Lock()
	h := b.handlers[topic]
	b.mu.Unlock()
	h(nil, &fakeMessage{topic: topic, payload: payload})
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

type mockLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

// ─── Helpers ────────────────────────────────────────────────────────

func testClient(t *testing.T) (*Client, *fakeBroker) {
	t.Helper()
	cfg := config.MQTTConfig{QoS: 1}
	cfg.Broker.ClientID = "hsb-test"

	c := newClient(cfg, Topics{Site: "home"})
	b := newFakeBroker()
	c.client = b
	c.connected = true
	return c, b
}

// ─── Tests ──────────────────────────────────────────────────────────

func TestTopics(t *testing.T) {
	topics := Topics{Site: "home"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"status", topics.Status(), "hsb/home/status"},
		{"commands", topics.Commands(), "hsb/home/command"},
		{"replies", topics.Replies(), "hsb/home/reply"},
		{"events", topics.Events(), "hsb/home/event"},
		{"device state", topics.DeviceState(7), "hsb/home/device/7"},
		{"all device states", topics.AllDeviceStates(), "hsb/home/device/+"},
		{"all", topics.All(), "hsb/home/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestBuildStatusPayload(t *testing.T) {
	var p statusPayload
	if err := json.Unmarshal(buildStatusPayload(StatusOffline, "hsb-1", "graceful_shutdown"), &p); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if p.Status != StatusOffline || p.ClientID != "hsb-1" || p.Reason != "graceful_shutdown" {
		t.Errorf("payload = %+v", p)
	}
	if _, err := time.Parse(time.RFC3339, p.Timestamp); err != nil {
		t.Errorf("timestamp %q not RFC3339", p.Timestamp)
	}

	online := string(buildStatusPayload(StatusOnline, "hsb-1", ""))
	if strings.Contains(online, "reason") {
		t.Errorf("online payload carries reason: %s", online)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := config.MQTTConfig{}
	cfg.Broker.Host = "broker.local"
	cfg.Broker.Port = 8883
	cfg.Broker.TLS = true
	cfg.Broker.ClientID = "hsb-1"
	cfg.Auth.Username = "gw"

	opts := buildClientOptions(cfg)
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://broker.local:8883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "hsb-1" || opts.Username != "gw" {
		t.Errorf("ClientID = %q, Username = %q", opts.ClientID, opts.Username)
	}
	if opts.TLSConfig == nil {
		t.Error("TLS not configured")
	}

	configureLWT(opts, Topics{Site: "home"}, "hsb-1")
	if !opts.WillEnabled || opts.WillTopic != "hsb/home/status" || !opts.WillRetained {
		t.Errorf("will = %v %q retained %v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
}

func TestPublish_Validation(t *testing.T) {
	c, _ := testClient(t)

	tests := []struct {
		name    string
		topic   string
		qos     byte
		payload []byte
		want    error
	}{
		{"empty topic", "", 0, nil, ErrInvalidTopic},
		{"bad qos", "t", 3, nil, ErrInvalidQoS},
		{"oversized", "t", 0, make([]byte, maxPayloadSize+1), ErrPublishFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPublish_NotConnected(t *testing.T) {
	c, b := testClient(t)
	b.connected = false

	if err := c.Publish("t", nil, 0, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestPublish_Timeout(t *testing.T) {
	c, b := testClient(t)
	b.pubTimeout = true

	if err := c.Publish("t", []byte("x"), 1, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
}

func TestPublishJSON(t *testing.T) {
	c, b := testClient(t)

	if err := c.PublishJSON("hsb/home/device/1", map[string]int{"devid": 1}, true); err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}
	got := b.published[0]
	if string(got.payload) != `{"devid":1}` || !got.retained || got.qos != 1 {
		t.Errorf("published = %+v", got)
	}

	if err := c.PublishJSON("t", make(chan int), false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("PublishJSON(chan) error = %v, want ErrPublishFailed", err)
	}
}

func TestSubscribe_DeliversAndRecovers(t *testing.T) {
	c, b := testClient(t)
	log := &mockLogger{}
	c.SetLogger(log)

	var got []string
	err := c.Subscribe("hsb/home/command", 1, func(topic string, payload []byte) error {
		switch string(payload) {
		case "boom":
			panic("handler")
		case "bad":
			return errors.New("rejected")
		}
		got = append(got, string(payload))
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !c.HasSubscription("hsb/home/command") || c.SubscriptionCount() != 1 {
		t.Error("subscription not tracked")
	}

	b.deliver("hsb/home/command", []byte("ok"))
	b.deliver("hsb/home/command", []byte("bad"))
	b.deliver("hsb/home/command", []byte("boom"))

	if len(got) != 1 || got[0] != "ok" {
		t.Errorf("handled = %v", got)
	}
	if len(log.warns) != 1 || len(log.errors) != 1 {
		t.Errorf("warns = %v, errors = %v", log.warns, log.errors)
	}
}

func TestSubscribe_FailureNotTracked(t *testing.T) {
	c, b := testClient(t)
	b.subErr = errors.New("denied")

	err := c.Subscribe("hsb/home/command", 1, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe() error = %v, want ErrSubscribeFailed", err)
	}
	if c.SubscriptionCount() != 0 {
		t.Error("failed subscription tracked")
	}
	if err := c.Subscribe("t", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil) error = %v, want ErrSubscribeFailed", err)
	}
}

func TestUnsubscribe(t *testing.T) {
	c, _ := testClient(t)
	c.Subscribe("a", 0, func(string, []byte) error { return nil })

	if err := c.Unsubscribe("a"); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if c.HasSubscription("a") {
		t.Error("subscription still tracked")
	}
	if err := c.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(\"\") error = %v, want ErrInvalidTopic", err)
	}
}

func TestReconnect_RestoresAndAnnounces(t *testing.T) {
	c, b := testClient(t)
	c.Subscribe("a", 0, func(string, []byte) error { return nil })
	c.Subscribe("b", 1, func(string, []byte) error { return nil })

	var lost error
	connects := 0
	c.SetOnDisconnect(func(err error) { lost = err })
	c.SetOnConnect(func() { connects++ })

	c.handleDisconnect(errors.New("eof"))
	if c.IsConnected() || lost == nil {
		t.Fatal("disconnect not recorded")
	}

	before := b.subscribes
	b.published = nil
	c.handleConnect()

	if b.subscribes-before != 2 {
		t.Errorf("restored %d subscriptions, want 2", b.subscribes-before)
	}
	if len(b.published) != 1 || b.published[0].topic != "hsb/home/status" || !b.published[0].retained {
		t.Errorf("published = %+v, want retained status", b.published)
	}
	if !strings.Contains(string(b.published[0].payload), `"online"`) {
		t.Errorf("status payload = %s", b.published[0].payload)
	}
	if connects != 1 || !c.IsConnected() {
		t.Error("connect callback not run")
	}
}

func TestClose_PublishesOffline(t *testing.T) {
	c, b := testClient(t)

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !b.disconnected || c.IsConnected() {
		t.Error("not disconnected")
	}
	if len(b.published) != 1 || !strings.Contains(string(b.published[0].payload), "graceful_shutdown") {
		t.Errorf("published = %+v", b.published)
	}

	var nilClient Client
	if err := nilClient.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v", err)
	}
}
