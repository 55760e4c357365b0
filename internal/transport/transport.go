package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Default timeouts and sizes.
const (
	defaultConnectTimeout    = 10 * time.Second
	defaultReadTimeout       = 30 * time.Second
	defaultWriteTimeout      = 5 * time.Second
	defaultReconnectInterval = 5 * time.Second
	maxReconnectInterval     = 2 * time.Minute
	defaultQueueSize         = 100

	readBufferSize = 512
	backoffFactor  = 1.5
)

// Direction tells which way an envelope travels.
type Direction int

// Envelope directions.
const (
	Inbound Direction = iota
	Outbound
)

// String returns the direction name.
func (d Direction) String() string {
	if d == Outbound {
		return "outbound"
	}
	return "inbound"
}

// Envelope is a frame tagged with the transport it travels on.
type Envelope struct {
	Transport string
	Address   uint16
	Port      uint16
	Payload   []byte
	Direction Direction
}

// Sink receives inbound envelopes. It is called from the receive loop and
// must not block.
type Sink func(Envelope)

// Config holds transport configuration.
type Config struct {
	// Name identifies the transport; it must be unique within the gateway.
	Name string

	// URL is the channel URL (serial://, unix:// or tcp://).
	URL string

	// BaudRate applies to serial channels when the URL carries none.
	// Default: 115200.
	BaudRate int

	// ConnectTimeout bounds each dial. Default: 10 seconds.
	ConnectTimeout time.Duration

	// ReadTimeout is the idle read timeout. Default: 30 seconds.
	ReadTimeout time.Duration

	// WriteTimeout bounds each frame write. Default: 5 seconds.
	WriteTimeout time.Duration

	// ReconnectInterval is the initial delay between reconnection attempts.
	// Default: 5 seconds.
	ReconnectInterval time.Duration

	// QueueSize is the outbound queue capacity. Default: 100.
	QueueSize int

	// Dial replaces URL-based dialing when set.
	Dial DialFunc
}

// Stats holds operational statistics.
type Stats struct {
	FramesTx        uint64
	FramesRx        uint64
	FramesDropped   uint64 // Outbound frames dropped (queue full or no channel)
	FramesDiscarded uint64 // Inbound buffers discarded for bad magic or length
	ErrorsTotal     uint64
	ReconnectsTotal uint64
	LastActivity    time.Time
	Connected       bool
	Reconnecting    bool
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Transport owns one sub-network channel.
//
// Thread Safety:
//   - All exported methods are safe for concurrent use.
//   - The sink is invoked from the receive goroutine.
//
// Auto-Reconnection:
//   - When the channel is lost, the receive loop re-dials with exponential
//     backoff starting at ReconnectInterval up to 2 minutes.
//   - Reconnection stops only when Close() is called.
type Transport struct {
	cfg  Config
	dial DialFunc

	connMu    sync.RWMutex
	conn      Channel
	connected bool

	reconnecting   atomic.Bool
	reconnectCount atomic.Int32

	sink   Sink
	sinkMu sync.RWMutex

	reasm    Reassembler
	outbound chan []byte

	done *closeOnce
	wg   sync.WaitGroup

	logger   Logger
	loggerMu sync.RWMutex

	framesTx        atomic.Uint64
	framesRx        atomic.Uint64
	framesDropped   atomic.Uint64
	framesDiscarded atomic.Uint64
	errorsTotal     atomic.Uint64
	reconnectsTotal atomic.Uint64
	lastActivity    atomic.Int64
}

// New validates cfg and returns an unstarted transport.
func New(cfg Config) (*Transport, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: transport name is required", ErrConnectionFailed)
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}

	dial := cfg.Dial
	if dial == nil {
		ep, err := parseChannelURL(cfg.URL, cfg.BaudRate)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.Name, err)
		}
		dial = func(ctx context.Context) (Channel, error) {
			return ep.open(ctx, cfg.ReadTimeout)
		}
	}

	return &Transport{
		cfg:      cfg,
		dial:     dial,
		outbound: make(chan []byte, cfg.QueueSize),
		done:     newCloseOnce(),
	}, nil
}

// Start opens the channel and starts the receive and write loops.
//
// Parameters:
//   - ctx: Context bounding the initial dial
//
// Returns:
//   - error: ErrConnectionFailed if the channel cannot be opened
func (t *Transport) Start(ctx context.Context) error {
	if t.isClosed() {
		return ErrClosed
	}

	dialCtx, cancel := context.WithTimeout(ctx, t.cfg.ConnectTimeout)
	defer cancel()

	conn, err := t.dial(dialCtx)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnectionFailed, t.cfg.Name, err)
	}

	t.connMu.Lock()
	t.conn = conn
	t.connected = true
	t.connMu.Unlock()
	t.lastActivity.Store(time.Now().Unix())

	t.wg.Add(2) //nolint:mnd // receive + write loops
	go t.receiveLoop()
	go t.writeLoop()

	t.logInfo("transport started", "url", t.cfg.URL)
	return nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return t.cfg.Name
}

// receiveLoop reads channel bytes into the reassembler and delivers
// complete frames to the sink.
func (t *Transport) receiveLoop() {
	defer t.wg.Done()

	buf := make([]byte, readBufferSize)

	for {
		if t.isClosed() {
			return
		}

		n, err := t.read(buf)
		if n > 0 {
			t.lastActivity.Store(time.Now().Unix())
			t.consume(buf[:n])
		}
		if err == nil {
			continue
		}

		if !t.handleReadError(err) {
			continue
		}
		if t.isClosed() {
			return
		}
		if !t.reconnect() {
			return
		}
	}
}

func (t *Transport) read(buf []byte) (int, error) {
	t.connMu.RLock()
	conn := t.conn
	t.connMu.RUnlock()

	if conn == nil {
		return 0, ErrNotConnected
	}
	if d, ok := conn.(deadliner); ok {
		if err := d.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout)); err != nil {
			return 0, fmt.Errorf("set deadline: %w", err)
		}
	}
	return conn.Read(buf)
}

// consume feeds bytes to the reassembler.
func (t *Transport) consume(data []byte) {
	frame, ok, err := t.reasm.Feed(data)
	if err != nil {
		t.framesDiscarded.Add(1)
		t.logDebug("discarding inbound bytes", "error", err)
		return
	}
	if !ok {
		return
	}

	t.framesRx.Add(1)
	t.deliver(Envelope{
		Transport: t.cfg.Name,
		Address:   frame.Address,
		Port:      frame.Port,
		Payload:   frame.Payload,
		Direction: Inbound,
	})
}

// deliver hands an envelope to the sink, recovering sink panics.
func (t *Transport) deliver(env Envelope) {
	t.sinkMu.RLock()
	sink := t.sink
	t.sinkMu.RUnlock()

	if sink == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			t.errorsTotal.Add(1)
			t.logError("sink panic recovered", fmt.Errorf("panic: %v", r))
		}
	}()
	sink(env)
}

// handleReadError processes a read error and returns true if the channel is
// lost.
func (t *Transport) handleReadError(err error) bool {
	if t.isClosed() {
		return true
	}
	if isTimeout(err) {
		return false
	}

	t.logError("read failed", err)
	t.errorsTotal.Add(1)
	t.handleDisconnect()
	return true
}

// handleDisconnect marks the channel lost.
func (t *Transport) handleDisconnect() {
	t.connMu.Lock()
	wasConnected := t.connected
	t.connected = false
	t.connMu.Unlock()

	if wasConnected {
		t.logInfo("channel lost, will attempt reconnection")
	}
}

// reconnect re-opens the channel with exponential backoff.
// Returns true if reconnection succeeded, false if shutdown was signalled.
func (t *Transport) reconnect() bool {
	t.reconnecting.Store(true)
	defer t.reconnecting.Store(false)

	backoff := t.cfg.ReconnectInterval

	for {
		if t.isClosed() {
			return false
		}

		attempt := t.reconnectCount.Add(1)
		t.logInfo("attempting reconnection", "attempt", attempt, "backoff", backoff.String())

		t.closeOldConnection()

		conn, err := t.dialWithTimeout()
		if err != nil {
			backoff = t.handleReconnectFailure(err, backoff)
			if backoff == 0 {
				return false
			}
			continue
		}

		t.finalizeReconnection(conn)
		return true
	}
}

func (t *Transport) closeOldConnection() {
	t.connMu.Lock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.connMu.Unlock()
	t.reasm.Reset()
}

func (t *Transport) dialWithTimeout() (Channel, error) {
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.ConnectTimeout)
	defer cancel()
	return t.dial(ctx)
}

// handleReconnectFailure waits out the backoff.
// Returns the next backoff, or 0 if shutdown was signalled.
func (t *Transport) handleReconnectFailure(err error, backoff time.Duration) time.Duration {
	t.logError("reconnect: dial failed", err)
	t.errorsTotal.Add(1)

	timer := time.NewTimer(backoff)
	defer timer.Stop()

	select {
	case <-t.done.Done():
		return 0
	case <-timer.C:
	}

	next := time.Duration(float64(backoff) * backoffFactor)
	if next > maxReconnectInterval {
		next = maxReconnectInterval
	}
	return next
}

func (t *Transport) finalizeReconnection(conn Channel) {
	t.connMu.Lock()
	if t.isClosed() {
		t.connMu.Unlock()
		conn.Close()
		return
	}
	t.conn = conn
	t.connected = true
	t.connMu.Unlock()

	t.reconnectCount.Store(0)
	t.reconnectsTotal.Add(1)
	t.lastActivity.Store(time.Now().Unix())

	t.logInfo("reconnection successful", "total_reconnects", t.reconnectsTotal.Load())
}

// Send queues a frame for the node at addr on port.
//
// Returns:
//   - error: ErrClosed, ErrNotConnected, ErrFrameTooLarge or ErrQueueFull
func (t *Transport) Send(addr, port uint16, payload []byte) error {
	if t.isClosed() {
		return ErrClosed
	}
	if !t.IsConnected() {
		t.framesDropped.Add(1)
		return ErrNotConnected
	}

	frame, err := EncodeFrame(addr, port, payload)
	if err != nil {
		return err
	}

	select {
	case t.outbound <- frame:
		return nil
	default:
		t.framesDropped.Add(1)
		return ErrQueueFull
	}
}

// SendEnvelope queues an outbound envelope.
func (t *Transport) SendEnvelope(env Envelope) error {
	return t.Send(env.Address, env.Port, env.Payload)
}

// writeLoop drains the outbound queue.
func (t *Transport) writeLoop() {
	defer t.wg.Done()

	for {
		select {
		case <-t.done.Done():
			return
		case frame := <-t.outbound:
			if err := t.write(frame); err != nil {
				t.errorsTotal.Add(1)
				t.logError("write failed", err)
			}
		}
	}
}

func (t *Transport) write(frame []byte) error {
	t.connMu.RLock()
	conn := t.conn
	t.connMu.RUnlock()

	if conn == nil {
		t.framesDropped.Add(1)
		return ErrNotConnected
	}
	if d, ok := conn.(deadliner); ok {
		if err := d.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout)); err != nil {
			return fmt.Errorf("set deadline: %w", err)
		}
	}
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	t.framesTx.Add(1)
	t.lastActivity.Store(time.Now().Unix())
	return nil
}

func (t *Transport) isClosed() bool {
	select {
	case <-t.done.Done():
		return true
	default:
		return false
	}
}

// Close stops the loops and closes the channel. Safe to call multiple times.
func (t *Transport) Close() error {
	t.done.Close()

	t.connMu.Lock()
	t.connected = false
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.connMu.Unlock()

	t.wg.Wait()

	t.logInfo("transport closed")
	return nil
}

// SetSink sets the inbound envelope handler.
func (t *Transport) SetSink(sink Sink) {
	t.sinkMu.Lock()
	t.sink = sink
	t.sinkMu.Unlock()
}

// SetLogger sets the logger for this transport.
func (t *Transport) SetLogger(logger Logger) {
	t.loggerMu.Lock()
	t.logger = logger
	t.loggerMu.Unlock()
}

// IsConnected returns true while the channel is open.
func (t *Transport) IsConnected() bool {
	t.connMu.RLock()
	defer t.connMu.RUnlock()
	return t.connected
}

// Stats returns current operational statistics.
func (t *Transport) Stats() Stats {
	return Stats{
		FramesTx:        t.framesTx.Load(),
		FramesRx:        t.framesRx.Load(),
		FramesDropped:   t.framesDropped.Load(),
		FramesDiscarded: t.framesDiscarded.Load(),
		ErrorsTotal:     t.errorsTotal.Load(),
		ReconnectsTotal: t.reconnectsTotal.Load(),
		LastActivity:    time.Unix(t.lastActivity.Load(), 0),
		Connected:       t.IsConnected(),
		Reconnecting:    t.reconnecting.Load(),
	}
}

// HealthCheck reports ErrNotConnected while the channel is down.
func (t *Transport) HealthCheck(_ context.Context) error {
	if !t.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

func (t *Transport) getLogger() Logger {
	t.loggerMu.RLock()
	defer t.loggerMu.RUnlock()
	return t.logger
}

func (t *Transport) logDebug(msg string, keysAndValues ...any) {
	if logger := t.getLogger(); logger != nil {
		logger.Debug(msg, append([]any{"transport", t.cfg.Name}, keysAndValues...)...)
	}
}

func (t *Transport) logInfo(msg string, keysAndValues ...any) {
	if logger := t.getLogger(); logger != nil {
		logger.Info(msg, append([]any{"transport", t.cfg.Name}, keysAndValues...)...)
	}
}

func (t *Transport) logError(msg string, err error) {
	if logger := t.getLogger(); logger != nil {
		logger.Error(msg, "transport", t.cfg.Name, "error", err)
	}
}
