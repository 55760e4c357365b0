package manager

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/hsb-core/internal/automation"
	"github.com/nerrad567/hsb-core/internal/device"
	"github.com/nerrad567/hsb-core/internal/driver"
	"github.com/nerrad567/hsb-core/internal/transport"
)

// Defaults for Config fields left zero.
const (
	DefaultSweepInterval = time.Second
	DefaultLivenessLimit = 10
)

// OriginAPI prefixes the origin of requests made through Execute.
const OriginAPI = "api:"

// Logger defines the logging interface used by the manager.
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

// Transport is the side of a transport the manager needs.
type Transport interface {
	Name() string
	SendEnvelope(env transport.Envelope) error
	SetSink(sink transport.Sink)
}

// Publisher receives events and replies from the dispatch loop. Both
// methods are called on the loop and must not block.
//
// Every publisher sees every reply; a publisher delivers only the replies
// whose Origin it owns.
type Publisher interface {
	PublishEvent(ev Event)
	PublishReply(r Reply)
}

// Config holds manager settings.
type Config struct {
	// SweepInterval is the housekeeping period.
	SweepInterval time.Duration

	// LivenessLimit is the number of silent sweeps a tracked device survives.
	LivenessLimit int

	// TimerGrace is how late a timer may still fire.
	TimerGrace time.Duration

	// ASRKey is returned by get_asrkey.
	ASRKey string
}

// Deps holds the dependencies of the manager.
type Deps struct {
	Devices device.Repository
	Scenes  automation.Repository
	Logger  Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Stats holds manager counters.
type Stats struct {
	ItemsProcessed  uint64
	ItemsDropped    uint64
	Commands        uint64
	UnknownCommands uint64
	Events          uint64
	Replies         uint64
	Sweeps          uint64
	TimersFired     uint64
	WentOffline     uint64
	QueueDepth      int
	Devices         int
}

type handlerFunc func(m *Manager, req Request, reply *Reply) error

// Manager owns the device registry and dispatches every queued item.
//
// Thread Safety:
//   - Push, Submit, Execute, HandleEnvelope, AddPublisher and Stats are safe
//     for concurrent use.
//   - AddTransport and AddDriver must be called before Start.
//   - Everything else runs on the dispatch loop.
type Manager struct {
	cfg    Config
	repo   device.Repository
	logger Logger
	now    func() time.Time

	queue      *Queue
	registry   *device.Registry
	drivers    map[driver.Key]*driver.Driver
	transports map[string]Transport
	ir         *driver.Infrared
	handlers   map[CommandKind]handlerFunc

	scenes      *automation.Registry
	sceneEngine *automation.Engine
	timers      *automation.TimerEngine

	pubMu      sync.RWMutex
	publishers []Publisher

	waitMu  sync.Mutex
	waiters map[string]chan Reply

	ctx      context.Context
	cancel   context.CancelFunc
	started  atomic.Bool
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	processed   atomic.Uint64
	dropped     atomic.Uint64
	commands    atomic.Uint64
	unknown     atomic.Uint64
	events      atomic.Uint64
	replies     atomic.Uint64
	sweeps      atomic.Uint64
	timersFired atomic.Uint64
	offline     atomic.Uint64
	deviceCount atomic.Int64
}

// New creates a manager. It does not touch the repositories until Start.
//
// Parameters:
//   - cfg: Manager settings; zero fields take defaults
//   - deps: Repositories, logger and clock
//
// Returns:
//   - *Manager: Ready for AddTransport, AddDriver and Start
//   - error: If a repository is missing
func New(cfg Config, deps Deps) (*Manager, error) {
	if deps.Devices == nil || deps.Scenes == nil {
		return nil, fmt.Errorf("%w: repositories are required", ErrInvalidRequest)
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.LivenessLimit <= 0 {
		cfg.LivenessLimit = DefaultLivenessLimit
	}
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	m := &Manager{
		cfg:        cfg,
		repo:       deps.Devices,
		logger:     deps.Logger,
		now:        deps.Now,
		queue:      NewQueue(),
		registry:   device.NewRegistry(1),
		drivers:    make(map[driver.Key]*driver.Driver),
		transports: make(map[string]Transport),
		waiters:    make(map[string]chan Reply),
		ctx:        context.Background(),
		done:       make(chan struct{}),
	}
	m.registry.SetLogger(m.logger)
	m.ir = driver.NewInfrared(m.registry)
	m.ir.SetLogger(m.logger)

	host := loopHost{m: m}
	m.scenes = automation.NewRegistry(deps.Scenes)
	m.scenes.SetLogger(m.logger)
	m.sceneEngine = automation.NewEngine(m.scenes, host, host, host, m.logger)
	m.timers = automation.NewTimerEngine(host, cfg.TimerGrace, m.logger)

	m.handlers = map[CommandKind]handlerFunc{
		CmdGetDevices:   (*Manager).handleGetDevices,
		CmdSetDevices:   (*Manager).handleSetDevices,
		CmdDelDevices:   (*Manager).handleDelDevices,
		CmdGetScenes:    (*Manager).handleGetScenes,
		CmdSetScenes:    (*Manager).handleSetScenes,
		CmdDelScene:     (*Manager).handleDelScene,
		CmdEnterScene:   (*Manager).handleEnterScene,
		CmdAddIRDevices: (*Manager).handleAddIRDevices,
		CmdDelIRDevices: (*Manager).handleDelIRDevices,
		CmdGetASRKey:    (*Manager).handleGetASRKey,
	}
	return m, nil
}

// AddTransport attaches a transport: its frames are queued as inbound items
// and outbound frames naming it are written to it.
func (m *Manager) AddTransport(t Transport) {
	m.transports[t.Name()] = t
	t.SetSink(m.HandleEnvelope)
}

// AddDriver creates the driver for one transport port.
func (m *Manager) AddDriver(transportName string, port uint16) (*driver.Driver, error) {
	d := driver.New(transportName, port, loopHost{m: m})
	if _, ok := m.drivers[d.Key()]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateDriver, d.Key())
	}
	d.SetLogger(m.logger)
	m.drivers[d.Key()] = d
	return d, nil
}

// AddPublisher registers a receiver for events and replies.
func (m *Manager) AddPublisher(p Publisher) {
	m.pubMu.Lock()
	m.publishers = append(m.publishers, p)
	m.pubMu.Unlock()
}

// Start loads persisted state, starts the drivers and runs the dispatch
// loop until Stop is called or ctx is cancelled.
//
// Returns:
//   - error: ErrAlreadyStarted, or a repository error while loading
func (m *Manager) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	m.ctx, m.cancel = context.WithCancel(ctx)

	if err := m.load(m.ctx); err != nil {
		return err
	}
	for key, d := range m.drivers {
		if err := d.Start(); err != nil {
			m.logger.Error("starting driver failed", "driver", key.String(), "error", err)
		}
	}

	m.wg.Add(1)
	go m.run()

	go func() {
		select {
		case <-ctx.Done():
			m.Stop()
		case <-m.done:
		}
	}()

	m.logger.Info("manager started",
		"drivers", len(m.drivers),
		"transports", len(m.transports),
		"devices", m.registry.Len(),
		"scenes", m.scenes.Count(),
	)
	return nil
}

// load seeds the id counter, recreates infrared devices and fills the scene
// cache.
func (m *Manager) load(ctx context.Context) error {
	maxID, err := m.repo.MaxID(ctx)
	if err != nil {
		return fmt.Errorf("reading max device id: %w", err)
	}
	m.registry.Reserve(maxID)

	records, err := m.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("listing device records: %w", err)
	}
	for i := range records {
		rec := records[i]
		if rec.Type != device.TypeIR {
			continue
		}
		dev, err := device.NewInfrared(rec.Attrs["irtype"])
		if err != nil {
			m.logger.Warn("skipping infrared record", "devid", rec.ID, "error", err)
			continue
		}
		dev.Restore(rec)
		dev.Writer = m.ir
		if err := m.registry.Add(dev); err != nil {
			m.logger.Warn("skipping infrared record", "devid", rec.ID, "error", err)
			continue
		}
		m.armTimers(dev)
	}
	m.deviceCount.Store(int64(m.registry.Len()))

	if err := m.scenes.RefreshCache(ctx); err != nil {
		return fmt.Errorf("loading scenes: %w", err)
	}
	return nil
}

// Stop ends the dispatch loop and cancels pending scene actions.
// Safe to call multiple times.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		m.queue.Close()
		m.wg.Wait()
		m.sceneEngine.Stop()
		if m.cancel != nil {
			m.cancel()
		}
		m.logger.Info("manager stopped")
	})
}

// Push queues an item for the dispatch loop.
//
// Returns:
//   - bool: false if the manager has stopped and the item was dropped
func (m *Manager) Push(it Item) bool {
	if !m.queue.Push(it) {
		m.dropped.Add(1)
		return false
	}
	return true
}

// HandleEnvelope is the transport sink: it queues a received frame.
func (m *Manager) HandleEnvelope(env transport.Envelope) {
	m.Push(InboundFrame{Envelope: env})
}

// Submit parses a JSON client request and queues it. The reply is published
// with the given origin.
func (m *Manager) Submit(origin string, data []byte) error {
	req, err := ParseRequest(data)
	if err != nil {
		return err
	}
	if !m.Push(ClientCommand{Origin: origin, Request: req}) {
		return ErrStopped
	}
	return nil
}

// Execute runs a client request and waits for its reply.
//
// Returns:
//   - Reply: The reply, whose Err is set if the command failed
//   - error: ErrUnknownCommand, ErrStopped or ctx.Err()
func (m *Manager) Execute(ctx context.Context, req Request) (Reply, error) {
	if req.Kind() == CmdUnknown {
		return Reply{}, fmt.Errorf("%w: %q", ErrUnknownCommand, req.Cmd)
	}

	origin := OriginAPI + uuid.NewString()
	ch := make(chan Reply, 1)
	m.waitMu.Lock()
	m.waiters[origin] = ch
	m.waitMu.Unlock()
	defer func() {
		m.waitMu.Lock()
		delete(m.waiters, origin)
		m.waitMu.Unlock()
	}()

	if !m.Push(ClientCommand{Origin: origin, Request: req}) {
		return Reply{}, ErrStopped
	}

	select {
	case r := <-ch:
		return r, nil
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	case <-m.done:
		return Reply{}, ErrStopped
	}
}

// run is the dispatch loop.
func (m *Manager) run() {
	defer m.wg.Done()

	lastSweep := m.now()
	for {
		wait := m.cfg.SweepInterval - m.now().Sub(lastSweep)
		if it, ok := m.queue.Pop(wait); ok {
			m.dispatch(it)
		} else if m.stopped() {
			return
		}

		if now := m.now(); now.Sub(lastSweep) >= m.cfg.SweepInterval {
			lastSweep = now
			m.housekeeping(now)
		}
	}
}

func (m *Manager) stopped() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

// dispatch routes one item. A panicking handler is logged and the loop
// carries on.
func (m *Manager) dispatch(it Item) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("dispatch panic", "item", fmt.Sprintf("%T", it), "panic", r)
		}
	}()
	m.processed.Add(1)

	switch v := it.(type) {
	case InboundFrame:
		m.routeInbound(v.Envelope)
	case OutboundFrame:
		m.routeOutbound(v.Envelope)
	case ClientCommand:
		m.handleCommand(v)
	case OutboundEvent:
		m.publishEvent(v.Event)
	case OutboundReply:
		m.publishReply(v.Reply)
	case Deferred:
		if v.Fn != nil {
			v.Fn()
		}
	default:
		m.dropped.Add(1)
		m.logger.Error("unknown queue item", "item", fmt.Sprintf("%T", it))
	}
}

func (m *Manager) routeInbound(env transport.Envelope) {
	d, ok := m.drivers[driver.Key{Transport: env.Transport, Port: env.Port}]
	if !ok {
		m.dropped.Add(1)
		m.logger.Debug("no driver for frame", "transport", env.Transport, "port", env.Port, "addr", env.Address)
		return
	}
	d.OnFrame(env.Address, env.Payload)
}

func (m *Manager) routeOutbound(env transport.Envelope) {
	t, ok := m.transports[env.Transport]
	if !ok {
		m.dropped.Add(1)
		m.logger.Warn("no transport for frame", "transport", env.Transport, "addr", env.Address)
		return
	}
	if err := t.SendEnvelope(env); err != nil {
		m.dropped.Add(1)
		m.logger.Warn("sending frame failed", "transport", env.Transport, "addr", env.Address, "error", err)
	}
}

func (m *Manager) handleCommand(c ClientCommand) {
	h, ok := m.handlers[c.Request.Kind()]
	if !ok {
		m.unknown.Add(1)
		m.logger.Warn("unknown command", "cmd", c.Request.Cmd, "origin", c.Origin)
		return
	}
	m.commands.Add(1)

	reply := newReply(c.Origin, c.Request.Cmd)
	if err := h(m, c.Request, &reply); err != nil {
		reply.Err = err.Error()
		m.logger.Warn("command failed", "cmd", c.Request.Cmd, "origin", c.Origin, "error", err)
	}
	m.Push(OutboundReply{Reply: reply})
}

func (m *Manager) publishEvent(ev Event) {
	m.events.Add(1)
	m.pubMu.RLock()
	defer m.pubMu.RUnlock()
	for _, p := range m.publishers {
		p.PublishEvent(ev)
	}
}

func (m *Manager) publishReply(r Reply) {
	m.replies.Add(1)

	m.waitMu.Lock()
	ch, waiting := m.waiters[r.Origin]
	m.waitMu.Unlock()
	if waiting {
		ch <- r
		return
	}

	m.pubMu.RLock()
	defer m.pubMu.RUnlock()
	for _, p := range m.publishers {
		p.PublishReply(r)
	}
}

// emit queues an event about devs.
func (m *Manager) emit(name string, devs ...*device.Device) {
	if len(devs) == 0 {
		return
	}
	m.Push(OutboundEvent{Event: newEvent(name, devs...)})
}

// Stats returns the manager counters.
func (m *Manager) Stats() Stats {
	return Stats{
		ItemsProcessed:  m.processed.Load(),
		ItemsDropped:    m.dropped.Load(),
		Commands:        m.commands.Load(),
		UnknownCommands: m.unknown.Load(),
		Events:          m.events.Load(),
		Replies:         m.replies.Load(),
		Sweeps:          m.sweeps.Load(),
		TimersFired:     m.timersFired.Load(),
		WentOffline:     m.offline.Load(),
		QueueDepth:      m.queue.Len(),
		Devices:         int(m.deviceCount.Load()),
	}
}

// SceneStats returns the scene engine counters.
func (m *Manager) SceneStats() automation.EngineStats {
	return m.sceneEngine.Stats()
}

// DriverStats returns the counters of every driver keyed by "transport:port".
func (m *Manager) DriverStats() map[string]driver.Stats {
	out := make(map[string]driver.Stats, len(m.drivers))
	for key, d := range m.drivers {
		out[key.String()] = d.Stats()
	}
	return out
}
