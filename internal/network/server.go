package network

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/hsb-core/internal/manager"
)

// OriginPrefix prefixes the origin of every TCP connection.
const OriginPrefix = "tcp:"

const (
	// outboxSize is the number of frames buffered per connection.
	outboxSize = 64

	defaultWriteTimeout = 5 * time.Second
)

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

// Submitter accepts raw JSON commands. *manager.Manager satisfies it.
type Submitter interface {
	Submit(origin string, data []byte) error
}

// Config holds the socket settings.
type Config struct {
	Host    string
	TCPPort int
	UDPPort int

	// WriteTimeout bounds each frame write; zero means 5s.
	WriteTimeout time.Duration
}

func (c Config) tcpAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.TCPPort))
}

func (c Config) udpAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.UDPPort))
}

// ServerStats holds TCP server counters.
type ServerStats struct {
	Accepted    uint64
	Connections int
	Received    uint64
	Rejected    uint64
	Sent        uint64
	Dropped     uint64
}

// Server is the framed JSON TCP server. It implements manager.Publisher.
//
// Thread Safety:
//   - PublishEvent and PublishReply never block; a connection whose outbox
//     is full loses the frame.
type Server struct {
	cfg    Config
	sink   Submitter
	logger Logger

	listener net.Listener
	running  atomic.Bool
	nextID   atomic.Uint64
	wg       sync.WaitGroup

	connsMu sync.RWMutex
	conns   map[string]*clientConn

	accepted atomic.Uint64
	received atomic.Uint64
	rejected atomic.Uint64
	sent     atomic.Uint64
	dropped  atomic.Uint64
}

// clientConn is one accepted connection.
type clientConn struct {
	origin string
	conn   net.Conn
	out    chan []byte
	once   sync.Once
	done   chan struct{}
}

func (c *clientConn) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// NewServer creates a server that forwards every command to sink.
func NewServer(cfg Config, sink Submitter, logger Logger) *Server {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Server{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		conns:  make(map[string]*clientConn),
	}
}

// Start listens on the TCP port and begins accepting connections.
func (s *Server) Start(_ context.Context) error {
	if s.running.Load() {
		return ErrAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.cfg.tcpAddr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.tcpAddr(), err)
	}
	s.listener = ln
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("client server listening", "addr", ln.Addr().String())
	return nil
}

// Stop closes the listener and every connection.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.listener.Close()

	s.connsMu.Lock()
	for _, c := range s.conns {
		c.close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return nil
}

// Addr returns the listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stats returns server counters.
func (s *Server) Stats() ServerStats {
	s.connsMu.RLock()
	n := len(s.conns)
	s.connsMu.RUnlock()

	return ServerStats{
		Accepted:    s.accepted.Load(),
		Connections: n,
		Received:    s.received.Load(),
		Rejected:    s.rejected.Load(),
		Sent:        s.sent.Load(),
		Dropped:     s.dropped.Load(),
	}
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}

		c := &clientConn{
			origin: OriginPrefix + strconv.FormatUint(s.nextID.Add(1), 10),
			conn:   conn,
			out:    make(chan []byte, outboxSize),
			done:   make(chan struct{}),
		}
		s.connsMu.Lock()
		s.conns[c.origin] = c
		s.connsMu.Unlock()
		s.accepted.Add(1)

		s.logger.Info("client connected", "origin", c.origin, "remote", conn.RemoteAddr().String())

		s.wg.Add(2)
		go s.readLoop(c)
		go s.writeLoop(c)
	}
}

// readLoop feeds framed commands to the sink. A corrupt frame closes the
// connection since the stream can no longer be resynchronised.
func (s *Server) readLoop(c *clientConn) {
	defer s.wg.Done()
	defer s.drop(c)

	r := bufio.NewReader(c.conn)
	for {
		body, err := ReadMessage(r)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("client read failed", "origin", c.origin, "error", err)
			}
			return
		}
		s.received.Add(1)

		if err := s.sink.Submit(c.origin, body); err != nil {
			s.rejected.Add(1)
			s.logger.Warn("client command rejected", "origin", c.origin, "error", err)
		}
	}
}

func (s *Server) writeLoop(c *clientConn) {
	defer s.wg.Done()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)) //nolint:errcheck // best effort
			if _, err := c.conn.Write(frame); err != nil {
				s.logger.Warn("client write failed", "origin", c.origin, "error", err)
				c.close()
				return
			}
			s.sent.Add(1)
		}
	}
}

func (s *Server) drop(c *clientConn) {
	c.close()
	s.connsMu.Lock()
	delete(s.conns, c.origin)
	s.connsMu.Unlock()
	s.logger.Info("client disconnected", "origin", c.origin)
}

// PublishEvent broadcasts an event to every connection.
func (s *Server) PublishEvent(ev manager.Event) {
	frame, err := s.encode(ev)
	if err != nil {
		s.logger.Error("encoding event failed", "event", ev.Name, "error", err)
		return
	}

	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	for _, c := range s.conns {
		s.enqueue(c, frame)
	}
}

// PublishReply sends a reply to the connection it originated from.
// Replies for other origins and for closed connections are ignored.
func (s *Server) PublishReply(r manager.Reply) {
	if !strings.HasPrefix(r.Origin, OriginPrefix) {
		return
	}

	s.connsMu.RLock()
	c, ok := s.conns[r.Origin]
	s.connsMu.RUnlock()
	if !ok {
		s.logger.Debug("reply for closed connection", "origin", r.Origin, "cmd", r.Cmd)
		return
	}

	frame, err := s.encode(r)
	if err != nil {
		s.logger.Error("encoding reply failed", "cmd", r.Cmd, "error", err)
		return
	}
	s.enqueue(c, frame)
}

func (s *Server) encode(v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return EncodeMessage(body)
}

func (s *Server) enqueue(c *clientConn, frame []byte) {
	select {
	case c.out <- frame:
	default:
		s.dropped.Add(1)
		s.logger.Warn("client outbox full, frame dropped", "origin", c.origin)
	}
}
