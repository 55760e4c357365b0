package network

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

type fakeComponent struct {
	mu       sync.Mutex
	startErr error
	started  bool
	stopped  bool
}

func (f *fakeComponent) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}

func (f *fakeComponent) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func TestService_RunStopsOnCancel(t *testing.T) {
	a, b := &fakeComponent{}, &fakeComponent{}
	svc := NewService(a, nil, b)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if !a.stopped || !b.stopped {
		t.Error("components not stopped")
	}
}

func TestService_StartFailureUnwinds(t *testing.T) {
	a := &fakeComponent{}
	b := &fakeComponent{startErr: errors.New("address in use")}
	c := &fakeComponent{}

	err := NewService(a, b, c).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "address in use") {
		t.Fatalf("Run() error = %v", err)
	}
	if !a.stopped {
		t.Error("started component not stopped")
	}
	if c.started {
		t.Error("component after the failure was started")
	}
}

func TestAdvertiser_RegisterFailure(t *testing.T) {
	a := NewAdvertiser("home", 18002, []string{"site=home"}, nil)

	var gotService string
	var gotPort int
	a.register = func(_, service, _ string, port int, _ []string, _ []net.Interface) (*zeroconf.Server, error) {
		gotService, gotPort = service, port
		return nil, errors.New("no multicast interface")
	}

	if err := a.Start(context.Background()); err == nil {
		t.Fatal("Start() error = nil")
	}
	if gotService != ServiceType || gotPort != 18002 {
		t.Errorf("registered %q on %d", gotService, gotPort)
	}
	if err := a.Stop(); err != nil {
		t.Errorf("Stop() without server error = %v", err)
	}
}
