package driver

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/nerrad567/hsb-core/internal/device"
	"github.com/nerrad567/hsb-core/internal/protocol/codec"
	"github.com/nerrad567/hsb-core/internal/transport"
)

// BroadcastAddress reaches every node on a port.
const BroadcastAddress uint16 = 0xFFFF

// Key identifies a driver: one per transport and port.
type Key struct {
	Transport string
	Port      uint16
}

// String returns "transport:port".
func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Transport, k.Port)
}

// Host is the side of the manager a driver talks to.
type Host interface {
	// Register adopts a newly discovered device: it assigns the device id,
	// adds it to the registry and announces it. A returned error leaves the
	// node unmapped.
	Register(d *device.Device) error

	// Updated announces changed endpoint values.
	Updated(d *device.Device)

	// Send queues an outbound frame.
	Send(env transport.Envelope)
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Stats holds driver counters.
type Stats struct {
	FramesRx     uint64
	FramesTx     uint64
	DecodeErrors uint64
	Discovered   uint64
	Probes       uint64
}

// Driver is the protocol handler for the nodes on one transport port.
//
// Thread Safety:
//   - Not safe for concurrent use; drivers belong to the dispatch loop.
//   - Stats may be read from any goroutine.
type Driver struct {
	key    Key
	host   Host
	nodes  map[uint16]*device.Device
	tids   codec.TIDCounter
	logger Logger

	framesRx     atomic.Uint64
	framesTx     atomic.Uint64
	decodeErrors atomic.Uint64
	discovered   atomic.Uint64
	probes       atomic.Uint64
}

// Ensure Driver implements device.EndpointWriter.
var _ device.EndpointWriter = (*Driver)(nil)

// New creates a driver for one transport port.
func New(transportName string, port uint16, host Host) *Driver {
	return &Driver{
		key:    Key{Transport: transportName, Port: port},
		host:   host,
		nodes:  make(map[uint16]*device.Device),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the driver.
func (d *Driver) SetLogger(logger Logger) {
	d.logger = logger
}

// Key returns the driver's (transport, port) key.
func (d *Driver) Key() Key {
	return d.key
}

// Start broadcasts a discovery probe so nodes already on the air announce
// themselves.
func (d *Driver) Start() error {
	return d.ProbeAll()
}

// Node returns the device mapped to a node address.
func (d *Driver) Node(addr uint16) (*device.Device, bool) {
	dev, ok := d.nodes[addr]
	return dev, ok
}

// NodeCount returns the number of mapped nodes.
func (d *Driver) NodeCount() int {
	return len(d.nodes)
}

// OnFrame handles one inbound frame payload from addr.
// Malformed payloads and unexpected commands are logged and dropped.
func (d *Driver) OnFrame(addr uint16, payload []byte) {
	d.framesRx.Add(1)

	msg, err := codec.Decode(payload)
	if err != nil {
		d.decodeErrors.Add(1)
		d.logger.Warn("dropping malformed frame", "driver", d.key.String(), "addr", addr, "error", err)
		return
	}

	switch msg.Cmd {
	case codec.CmdDiscoverResp:
		d.handleDiscoverResp(addr, msg)
	case codec.CmdUpdate:
		d.handleUpdate(addr, msg)
	case codec.CmdKeepAlive:
		d.handleKeepAlive(addr)
	case codec.CmdReply:
		d.handleReply(addr, msg)
	default:
		d.logger.Debug("ignoring command", "driver", d.key.String(), "addr", addr, "cmd", msg.Cmd.String())
	}
}

func (d *Driver) handleDiscoverResp(addr uint16, msg codec.Message) {
	if _, known := d.nodes[addr]; known {
		d.logger.Debug("node already discovered", "driver", d.key.String(), "addr", addr)
		return
	}

	eps := make([]*device.Endpoint, 0, len(msg.Endpoints))
	for _, desc := range msg.Endpoints {
		ep, err := desc.Endpoint()
		if err != nil {
			d.logger.Warn("dropping discovery", "driver", d.key.String(), "addr", addr, "error", err)
			return
		}
		eps = append(eps, ep)
	}

	dev, err := device.NewForType(msg.DeviceType, msg.MAC, addr, eps)
	if err != nil {
		if errors.Is(err, device.ErrNoEndpoints) {
			d.logger.Warn("node announced no endpoints",
				"driver", d.key.String(), "addr", addr, "mac", device.FormatMAC(msg.MAC))
			return
		}
		d.logger.Warn("dropping discovery", "driver", d.key.String(), "addr", addr, "error", err)
		return
	}
	dev.Writer = d

	if err := d.host.Register(dev); err != nil {
		d.logger.Error("registering node failed", "driver", d.key.String(), "addr", addr, "error", err)
		return
	}
	d.nodes[addr] = dev
	d.discovered.Add(1)
	d.logger.Info("node discovered",
		"driver", d.key.String(), "addr", addr, "devid", dev.ID, "type", dev.Type, "mac", dev.MACString())
}

func (d *Driver) handleUpdate(addr uint16, msg codec.Message) {
	dev, ok := d.lookupOrProbe(addr)
	if !ok {
		return
	}
	dev.ResetTicks()
	dev.UpdateValues(values(msg.Endpoints))
	d.host.Updated(dev)
}

func (d *Driver) handleKeepAlive(addr uint16) {
	if dev, ok := d.lookupOrProbe(addr); ok {
		dev.ResetTicks()
	}
}

func (d *Driver) handleReply(addr uint16, msg codec.Message) {
	dev, ok := d.lookupOrProbe(addr)
	if !ok {
		return
	}
	dev.ResetTicks()

	if msg.ErrCode != 0 {
		d.logger.Warn("node reported error",
			"driver", d.key.String(), "addr", addr, "cmd", msg.ReplyTo.String(), "code", msg.ErrCode)
		return
	}
	if msg.ReplyTo == codec.CmdGet {
		dev.UpdateValues(values(msg.Endpoints))
		d.host.Updated(dev)
	}
}

// lookupOrProbe returns the device at addr. Unknown nodes are asked to
// announce themselves.
func (d *Driver) lookupOrProbe(addr uint16) (*device.Device, bool) {
	dev, ok := d.nodes[addr]
	if ok {
		return dev, true
	}
	d.logger.Debug("frame from unknown node, probing", "driver", d.key.String(), "addr", addr)
	if err := d.Probe(addr); err != nil {
		d.logger.Error("probe failed", "driver", d.key.String(), "addr", addr, "error", err)
	}
	return nil, false
}

// WriteEndpoints sends every value to the device in a single SET command.
//
// Parameters:
//   - dev: a device discovered by this driver
//   - vals: values for the device's endpoints; unknown epids are skipped
//
// Returns:
//   - error: ErrForeignDevice, or an encoding error
func (d *Driver) WriteEndpoints(dev *device.Device, vals []device.EndpointValue) error {
	if owned, ok := d.nodes[dev.Address]; !ok || owned != dev {
		return fmt.Errorf("%w: devid %d", ErrForeignDevice, dev.ID)
	}

	descs := make([]codec.Descriptor, 0, len(vals))
	for _, v := range vals {
		ep, ok := dev.Endpoint(v.EPID)
		if !ok {
			continue
		}
		descs = append(descs, codec.DescriptorFor(ep, v.Value))
	}
	if len(descs) == 0 {
		return nil
	}

	return d.send(dev.Address, codec.Message{Cmd: codec.CmdSet, TID: d.tids.Next(), Endpoints: descs})
}

// Refresh asks a node for its current endpoint values. The answer arrives
// as a REPLY to GET.
func (d *Driver) Refresh(dev *device.Device) error {
	if _, ok := d.nodes[dev.Address]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, dev.Address)
	}
	return d.send(dev.Address, codec.Message{Cmd: codec.CmdGet, TID: d.tids.Next()})
}

// Probe asks the node at addr to announce itself.
func (d *Driver) Probe(addr uint16) error {
	d.probes.Add(1)
	return d.send(addr, codec.Message{Cmd: codec.CmdDiscover, TID: d.tids.Next()})
}

// ProbeAll broadcasts a discovery probe on the driver's port.
func (d *Driver) ProbeAll() error {
	return d.Probe(BroadcastAddress)
}

// Forget drops the node mapping for addr. The device is expected to have
// been removed from the registry already.
func (d *Driver) Forget(addr uint16) {
	if _, ok := d.nodes[addr]; ok {
		delete(d.nodes, addr)
		d.logger.Debug("node forgotten", "driver", d.key.String(), "addr", addr)
	}
}

func (d *Driver) send(addr uint16, msg codec.Message) error {
	payload, err := codec.Encode(msg)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", msg.Cmd, err)
	}
	d.host.Send(transport.Envelope{
		Transport: d.key.Transport,
		Address:   addr,
		Port:      d.key.Port,
		Payload:   payload,
		Direction: transport.Outbound,
	})
	d.framesTx.Add(1)
	return nil
}

// Stats returns the driver counters.
func (d *Driver) Stats() Stats {
	return Stats{
		FramesRx:     d.framesRx.Load(),
		FramesTx:     d.framesTx.Load(),
		DecodeErrors: d.decodeErrors.Load(),
		Discovered:   d.discovered.Load(),
		Probes:       d.probes.Load(),
	}
}

func values(descs []codec.Descriptor) []device.EndpointValue {
	out := make([]device.EndpointValue, len(descs))
	for i, desc := range descs {
		out[i] = desc.EndpointValue()
	}
	return out
}
