package publisher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/hsb-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/hsb-core/internal/manager"
)

// OriginMQTT is the origin of commands received over MQTT.
const OriginMQTT = "mqtt"

const outboxSize = 256

// Logger defines the logging interface used by the package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Broker is the side of the MQTT client the bridge needs.
// *mqtt.Client satisfies it.
type Broker interface {
	Topics() mqtt.Topics
	QoS() byte
	PublishJSON(topic string, v any, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Submitter accepts raw JSON commands. *manager.Manager satisfies it.
type Submitter interface {
	Submit(origin string, data []byte) error
}

// outgoing is one queued publish.
type outgoing struct {
	topic    string
	payload  any
	retained bool
}

// MQTTStats holds bridge counters.
type MQTTStats struct {
	Commands  uint64
	Rejected  uint64
	Published uint64
	Failed    uint64
	Dropped   uint64
}

// MQTTBridge connects the manager to the broker.
//
// Inbound, every message on the command topic is submitted with origin
// "mqtt". Outbound, events go to the event topic, replies for origin "mqtt"
// go to the reply topic, and each device in an event gets a retained
// snapshot on its state topic.
type MQTTBridge struct {
	broker Broker
	sink   Submitter
	logger Logger

	out     chan outgoing
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	commands  atomic.Uint64
	rejected  atomic.Uint64
	published atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// NewMQTTBridge creates a bridge. Call Start to subscribe and begin
// publishing.
func NewMQTTBridge(broker Broker, sink Submitter, logger Logger) *MQTTBridge {
	if logger == nil {
		logger = noopLogger{}
	}
	return &MQTTBridge{
		broker: broker,
		sink:   sink,
		logger: logger,
		out:    make(chan outgoing, outboxSize),
	}
}

// Start subscribes to the command topic and starts the publish worker.
func (b *MQTTBridge) Start(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	topic := b.broker.Topics().Commands()
	if err := b.broker.Subscribe(topic, b.broker.QoS(), b.handleCommand); err != nil {
		b.running.Store(false)
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	ctx, b.cancel = context.WithCancel(ctx)
	b.wg.Add(1)
	go b.publishLoop(ctx)

	b.logger.Info("mqtt bridge started", "commands", topic)
	return nil
}

// Stop unsubscribes and waits for the worker to drain.
func (b *MQTTBridge) Stop() error {
	if !b.running.CompareAndSwap(true, false) {
		return nil
	}
	err := b.broker.Unsubscribe(b.broker.Topics().Commands())
	b.cancel()
	b.wg.Wait()
	return err
}

// Stats returns bridge counters.
func (b *MQTTBridge) Stats() MQTTStats {
	return MQTTStats{
		Commands:  b.commands.Load(),
		Rejected:  b.rejected.Load(),
		Published: b.published.Load(),
		Failed:    b.failed.Load(),
		Dropped:   b.dropped.Load(),
	}
}

func (b *MQTTBridge) handleCommand(_ string, payload []byte) error {
	b.commands.Add(1)
	if err := b.sink.Submit(OriginMQTT, payload); err != nil {
		b.rejected.Add(1)
		return err
	}
	return nil
}

// PublishEvent queues the event and the affected device snapshots.
func (b *MQTTBridge) PublishEvent(ev manager.Event) {
	topics := b.broker.Topics()
	b.enqueue(outgoing{topic: topics.Events(), payload: ev})
	for _, d := range ev.Devices {
		b.enqueue(outgoing{topic: topics.DeviceState(d.ID), payload: d, retained: true})
	}
}

// PublishReply queues replies to commands that came in over MQTT.
func (b *MQTTBridge) PublishReply(r manager.Reply) {
	if r.Origin != OriginMQTT {
		return
	}
	b.enqueue(outgoing{topic: b.broker.Topics().Replies(), payload: r})
}

func (b *MQTTBridge) enqueue(msg outgoing) {
	if !b.running.Load() {
		b.dropped.Add(1)
		return
	}
	select {
	case b.out <- msg:
	default:
		b.dropped.Add(1)
		b.logger.Warn("mqtt outbox full, message dropped", "topic", msg.topic)
	}
}

func (b *MQTTBridge) publishLoop(ctx context.Context) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			// Drain the outbox before returning.
			for {
				select {
				case msg := <-b.out:
					b.publish(msg)
				default:
					return
				}
			}
		case msg := <-b.out:
			b.publish(msg)
		}
	}
}

func (b *MQTTBridge) publish(msg outgoing) {
	if err := b.broker.PublishJSON(msg.topic, msg.payload, msg.retained); err != nil {
		b.failed.Add(1)
		b.logger.Warn("mqtt publish failed", "topic", msg.topic, "error", err)
		return
	}
	b.published.Add(1)
}
