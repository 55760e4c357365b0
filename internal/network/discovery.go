package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Discovery datagrams.
const (
	DiscoveryQuestion = "are you hsb?"
	DiscoveryAnswer   = "i am hsb"

	maxDatagram = 1024
)

// Responder answers UDP discovery probes.
type Responder struct {
	cfg    Config
	logger Logger

	conn    net.PacketConn
	running atomic.Bool
	wg      sync.WaitGroup

	answered atomic.Uint64
	ignored  atomic.Uint64
}

// NewResponder creates a responder for the configured UDP port.
func NewResponder(cfg Config, logger Logger) *Responder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Responder{cfg: cfg, logger: logger}
}

// Start binds the UDP socket and begins answering.
func (r *Responder) Start(_ context.Context) error {
	if r.running.Load() {
		return ErrAlreadyRunning
	}

	conn, err := net.ListenPacket("udp", r.cfg.udpAddr())
	if err != nil {
		return fmt.Errorf("listening on udp %s: %w", r.cfg.udpAddr(), err)
	}
	r.conn = conn
	r.running.Store(true)

	r.wg.Add(1)
	go r.serve()

	r.logger.Info("discovery responder listening", "addr", conn.LocalAddr().String())
	return nil
}

// Stop closes the socket.
func (r *Responder) Stop() error {
	if !r.running.CompareAndSwap(true, false) {
		return nil
	}
	r.conn.Close()
	r.wg.Wait()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (r *Responder) Addr() net.Addr {
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

// Answered returns the number of probes answered.
func (r *Responder) Answered() uint64 {
	return r.answered.Load()
}

func (r *Responder) serve() {
	defer r.wg.Done()

	buf := make([]byte, maxDatagram)
	for {
		n, addr, err := r.conn.ReadFrom(buf)
		if err != nil {
			if !r.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			r.logger.Warn("discovery read failed", "error", err)
			continue
		}

		if string(buf[:n]) != DiscoveryQuestion {
			r.ignored.Add(1)
			r.logger.Debug("unknown discovery datagram", "from", addr.String(), "data", string(buf[:n]))
			continue
		}
		if _, err := r.conn.WriteTo([]byte(DiscoveryAnswer), addr); err != nil {
			r.logger.Warn("discovery answer failed", "to", addr.String(), "error", err)
			continue
		}
		r.answered.Add(1)
		r.logger.Debug("discovery answered", "to", addr.String())
	}
}

// Probe sends the discovery question to target and collects the addresses
// of every gateway that answers before timeout. A broadcast target such as
// "255.255.255.255:18000" finds every gateway on the segment.
//
// Returns:
//   - []string: Gateway IPs, in order of arrival, without duplicates
//   - error: ErrNoResponse when nobody answered, or a socket error
func Probe(ctx context.Context, target string, timeout time.Duration) ([]string, error) {
	raddr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", target, err)
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("opening probe socket: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("setting probe deadline: %w", err)
	}

	if _, err := conn.WriteToUDP([]byte(DiscoveryQuestion), raddr); err != nil {
		return nil, fmt.Errorf("sending probe: %w", err)
	}

	var found []string
	seen := make(map[string]bool)
	buf := make([]byte, maxDatagram)
	for {
		if ctx.Err() != nil {
			break
		}
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				break
			}
			return found, fmt.Errorf("reading probe answers: %w", err)
		}
		if string(buf[:n]) != DiscoveryAnswer {
			continue
		}
		ip := from.IP.String()
		if !seen[ip] {
			seen[ip] = true
			found = append(found, ip)
		}
	}

	if len(found) == 0 {
		return nil, ErrNoResponse
	}
	return found, nil
}

// BroadcastTarget returns the limited-broadcast address for port.
func BroadcastTarget(port int) string {
	return net.JoinHostPort("255.255.255.255", strconv.Itoa(port))
}
