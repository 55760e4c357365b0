package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/goburrow/serial"
)

// Serial line defaults.
const (
	defaultBaudRate = 115200
	defaultDataBits = 8
	defaultStopBits = 1
	defaultParity   = "N"
)

// Channel is an open byte stream to the sub-network.
type Channel = io.ReadWriteCloser

// DialFunc opens a channel. Config.Dial overrides the URL-based dialer,
// which tests use to hand in one end of a net.Pipe.
type DialFunc func(ctx context.Context) (Channel, error)

// endpoint is a parsed channel URL.
type endpoint struct {
	scheme  string
	address string
	baud    int
}

// parseChannelURL parses a channel URL.
//
// Supported formats:
//   - "serial:///dev/ttyUSB0?baud=115200"
//   - "unix:///run/hsb/radio.sock"
//   - "tcp://192.168.1.40:4001"
func parseChannelURL(raw string, baud int) (endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return endpoint{}, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "serial":
		if u.Path == "" {
			return endpoint{}, errors.New("serial URL missing device path")
		}
		if b := u.Query().Get("baud"); b != "" {
			n, err := strconv.Atoi(b)
			if err != nil || n <= 0 {
				return endpoint{}, fmt.Errorf("invalid baud rate %q", b)
			}
			baud = n
		}
		if baud == 0 {
			baud = defaultBaudRate
		}
		return endpoint{scheme: "serial", address: u.Path, baud: baud}, nil
	case "unix":
		if u.Path == "" {
			return endpoint{}, errors.New("unix URL missing socket path")
		}
		return endpoint{scheme: "unix", address: u.Path}, nil
	case "tcp":
		if u.Host == "" {
			return endpoint{}, errors.New("tcp URL missing host")
		}
		return endpoint{scheme: "tcp", address: u.Host}, nil
	default:
		return endpoint{}, fmt.Errorf("unsupported scheme: %q", u.Scheme)
	}
}

// open dials the endpoint, bounded by ctx for socket channels.
func (e endpoint) open(ctx context.Context, readTimeout time.Duration) (Channel, error) {
	if e.scheme == "serial" {
		port, err := serial.Open(&serial.Config{
			Address:  e.address,
			BaudRate: e.baud,
			DataBits: defaultDataBits,
			StopBits: defaultStopBits,
			Parity:   defaultParity,
			Timeout:  readTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", e.address, err)
		}
		return port, nil
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, e.scheme, e.address)
	if err != nil {
		return nil, fmt.Errorf("dial %s://%s: %w", e.scheme, e.address, err)
	}
	return conn, nil
}

func (e endpoint) String() string {
	return e.scheme + "://" + e.address
}

// isTimeout reports whether a read error is an idle timeout rather than a
// lost channel.
func isTimeout(err error) bool {
	if errors.Is(err, serial.ErrTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// deadliner is implemented by socket channels.
type deadliner interface {
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}
