package driver

import (
	"errors"
	"testing"

	"github.com/nerrad567/hsb-core/internal/device"
)

type staticFinder []*device.Device

func (f staticFinder) List() []*device.Device { return f }

func TestInfrared_WriteResolvesBlaster(t *testing.T) {
	ep, _ := device.NewEndpoint(0, 8, false, true)
	blaster, err := device.NewForType(device.CodeRemoteCtl, testMAC, 5, []*device.Endpoint{ep})
	if err != nil {
		t.Fatalf("NewForType() error = %v", err)
	}
	blaster.ID = 3
	blaster.State = device.StateOnline

	tv, err := device.NewInfrared(device.IRTypeTV)
	if err != nil {
		t.Fatalf("NewInfrared() error = %v", err)
	}

	ir := NewInfrared(staticFinder{blaster})
	got, gotEP, ok := ir.Blaster()
	if !ok || got != blaster || gotEP.EPID != 0 {
		t.Fatalf("Blaster() = %v, %v, %v", got, gotEP, ok)
	}
	if err := ir.WriteEndpoints(tv, []device.EndpointValue{{EPID: 0, Value: 12}}); err != nil {
		t.Errorf("WriteEndpoints() error = %v", err)
	}
}

func TestInfrared_NoBlaster(t *testing.T) {
	plug, _ := device.NewEndpoint(0, 1, true, true)
	dev, _ := device.NewForType(device.CodePlug, testMAC, 5, []*device.Endpoint{plug})
	dev.State = device.StateOnline

	tv, _ := device.NewInfrared(device.IRTypeTV)
	ir := NewInfrared(staticFinder{dev})

	if err := ir.WriteEndpoints(tv, []device.EndpointValue{{EPID: 0, Value: 1}}); !errors.Is(err, ErrNoBlaster) {
		t.Errorf("WriteEndpoints() error = %v, want ErrNoBlaster", err)
	}
}
