package network

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
)

// mDNS service identity.
const (
	ServiceType   = "_hsb._tcp"
	ServiceDomain = "local."
)

// registerFunc matches zeroconf.Register.
type registerFunc func(instance, service, domain string, port int, text []string, ifaces []net.Interface) (*zeroconf.Server, error)

// Advertiser publishes the TCP port over mDNS.
type Advertiser struct {
	instance string
	port     int
	text     []string
	logger   Logger
	register registerFunc

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an advertiser for the gateway's TCP port.
//
// Parameters:
//   - instance: Service instance name, usually the site name
//   - port: The TCP client port
//   - text: TXT records, e.g. "site=home"
func NewAdvertiser(instance string, port int, text []string, logger Logger) *Advertiser {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Advertiser{
		instance: instance,
		port:     port,
		text:     text,
		logger:   logger,
		register: zeroconf.Register,
	}
}

// Start registers the service on all multicast interfaces.
func (a *Advertiser) Start(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		return ErrAlreadyRunning
	}

	server, err := a.register(a.instance, ServiceType, ServiceDomain, a.port, a.text, nil)
	if err != nil {
		return fmt.Errorf("registering mdns service: %w", err)
	}
	a.server = server
	a.logger.Info("mdns service registered", "instance", a.instance, "service", ServiceType, "port", a.port)
	return nil
}

// Stop withdraws the advertisement.
func (a *Advertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
	return nil
}
