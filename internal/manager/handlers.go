package manager

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/nerrad567/hsb-core/internal/automation"
	"github.com/nerrad567/hsb-core/internal/device"
)

// deviceRef names a device in del_* and filtered get_devices requests.
type deviceRef struct {
	ID uint32 `json:"devid"`
}

// irDefinition is one device in an add_ir_devices request.
type irDefinition struct {
	IRType   string            `json:"irtype"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Channels map[string]string `json:"channels,omitempty"`
}

func decodeList[T any](raw json.RawMessage, field string) ([]T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRequest, field, err)
	}
	return out, nil
}

func snapshots(devs []*device.Device) []device.Snapshot {
	out := make([]device.Snapshot, 0, len(devs))
	for _, d := range devs {
		out = append(out, d.Serialize())
	}
	return out
}

// handleGetDevices lists every registered device, or only those named in
// devices.
func (m *Manager) handleGetDevices(req Request, reply *Reply) error {
	refs, err := decodeList[deviceRef](req.Devices, "devices")
	if err != nil {
		return err
	}
	if refs == nil {
		reply.Data["devices"] = snapshots(m.registry.List())
		return nil
	}

	devs := make([]*device.Device, 0, len(refs))
	var errs []error
	for _, ref := range refs {
		dev, ok := m.registry.Get(ref.ID)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %d", ErrDeviceNotFound, ref.ID))
			continue
		}
		devs = append(devs, dev)
	}
	reply.Data["devices"] = snapshots(devs)
	return errors.Join(errs...)
}

// handleSetDevices applies patches. Endpoint values become one write per
// device; attribute, channel and timer edits are persisted.
func (m *Manager) handleSetDevices(req Request, reply *Reply) error {
	patches, err := decodeList[device.Patch](req.Devices, "devices")
	if err != nil {
		return err
	}

	var errs []error
	var edited []*device.Device
	for _, p := range patches {
		dev, ok := m.registry.Get(p.ID)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %d", ErrDeviceNotFound, p.ID))
			continue
		}
		if err := dev.ApplyPatch(p); err != nil {
			errs = append(errs, fmt.Errorf("device %d: %w", p.ID, err))
		}

		if p.Timers != nil {
			if err := m.timers.Set(dev.ID, dev.Timers, m.now()); err != nil {
				errs = append(errs, fmt.Errorf("device %d: %w", p.ID, err))
			}
		}
		if p.Attrs != nil || p.Channels != nil || p.Timers != nil {
			m.persist(dev)
			edited = append(edited, dev)
		}
	}
	m.emit(EventDevicesUpdated, edited...)
	return errors.Join(errs...)
}

// handleDelDevices takes devices offline. Physical device records are kept
// so a returning node gets its devId back; infrared devices are deleted.
func (m *Manager) handleDelDevices(req Request, _ *Reply) error {
	refs, err := decodeList[deviceRef](req.Devices, "devices")
	if err != nil {
		return err
	}

	var errs []error
	for _, ref := range refs {
		dev, ok := m.registry.Get(ref.ID)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %d", ErrDeviceNotFound, ref.ID))
			continue
		}
		if dev.Type == device.TypeIR {
			errs = append(errs, m.deleteInfrared(dev))
			continue
		}
		m.takeOffline(dev)
	}
	return errors.Join(errs...)
}

func (m *Manager) handleGetScenes(_ Request, reply *Reply) error {
	reply.Data["scenes"] = m.scenes.List()
	return nil
}

// handleSetScenes stores every valid scene; invalid ones are reported.
func (m *Manager) handleSetScenes(req Request, _ *Reply) error {
	scenes, err := decodeList[automation.Scene](req.Scenes, "scenes")
	if err != nil {
		return err
	}

	var errs []error
	for i := range scenes {
		if err := m.scenes.Put(m.ctx, &scenes[i]); err != nil {
			errs = append(errs, fmt.Errorf("scene %q: %w", scenes[i].Name, err))
		}
	}
	return errors.Join(errs...)
}

// handleDelScene deletes the scene in name and every scene in scenes, which
// may hold names or {"name": ...} objects.
func (m *Manager) handleDelScene(req Request, _ *Reply) error {
	names, err := sceneNames(req)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: no scene named", ErrInvalidRequest)
	}

	var errs []error
	for _, name := range names {
		if err := m.scenes.Delete(m.ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func sceneNames(req Request) ([]string, error) {
	var names []string
	if req.Name != "" {
		names = append(names, req.Name)
	}
	if len(req.Scenes) == 0 {
		return names, nil
	}

	var plain []string
	if err := json.Unmarshal(req.Scenes, &plain); err == nil {
		return append(names, plain...), nil
	}
	objs, err := decodeList[struct {
		Name string `json:"name"`
	}](req.Scenes, "scenes")
	if err != nil {
		return nil, err
	}
	for _, o := range objs {
		names = append(names, o.Name)
	}
	return names, nil
}

func (m *Manager) handleEnterScene(req Request, _ *Reply) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return fmt.Errorf("%w: missing scene name", ErrInvalidRequest)
	}
	return m.sceneEngine.Enter(name)
}

// handleAddIRDevices creates virtual infrared devices. The created devices
// are returned in the reply.
func (m *Manager) handleAddIRDevices(req Request, reply *Reply) error {
	defs, err := decodeList[irDefinition](req.Devices, "devices")
	if err != nil {
		return err
	}

	var errs []error
	created := make([]*device.Device, 0, len(defs))
	for _, def := range defs {
		dev, err := device.NewInfrared(def.IRType)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		maps.Copy(dev.Attrs, def.Attrs)
		dev.Attrs["irtype"] = device.IRTypeTV
		maps.Copy(dev.Channels, def.Channels)
		dev.ID = m.registry.AllocID()
		dev.Writer = m.ir

		if err := m.registry.Add(dev); err != nil {
			errs = append(errs, err)
			continue
		}
		m.persist(dev)
		created = append(created, dev)
	}
	m.deviceCount.Store(int64(m.registry.Len()))

	reply.Data["devices"] = snapshots(created)
	m.emit(EventDevicesOnline, created...)
	return errors.Join(errs...)
}

func (m *Manager) handleDelIRDevices(req Request, _ *Reply) error {
	refs, err := decodeList[deviceRef](req.Devices, "devices")
	if err != nil {
		return err
	}

	var errs []error
	for _, ref := range refs {
		dev, ok := m.registry.Get(ref.ID)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %d", ErrDeviceNotFound, ref.ID))
			continue
		}
		if dev.Type != device.TypeIR {
			errs = append(errs, fmt.Errorf("%w: %d", ErrNotInfrared, ref.ID))
			continue
		}
		errs = append(errs, m.deleteInfrared(dev))
	}
	return errors.Join(errs...)
}

// deleteInfrared removes an infrared device and its record.
func (m *Manager) deleteInfrared(dev *device.Device) error {
	m.takeOffline(dev)
	if err := m.repo.Delete(m.ctx, dev.ID); err != nil && !errors.Is(err, device.ErrDeviceNotFound) {
		return fmt.Errorf("deleting record %d: %w", dev.ID, err)
	}
	return nil
}

func (m *Manager) handleGetASRKey(_ Request, reply *Reply) error {
	reply.Data["asrkey"] = m.cfg.ASRKey
	return nil
}
