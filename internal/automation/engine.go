package automation

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/hsb-core/internal/device"
)

// StateReader reads current endpoint values for condition checks.
type StateReader interface {
	// EndpointValue returns the value of an endpoint of an online device.
	EndpointValue(devID uint32, epid uint8) (uint32, bool)
}

// Actuator writes endpoint values to a device. Each call is one batched
// write to the device's hardware.
type Actuator interface {
	WriteDevice(devID uint32, vals []device.EndpointValue) error
}

// Scheduler re-enters the dispatch loop. Defer must not block.
type Scheduler interface {
	Defer(fn func())
}

// EngineStats holds scene engine counters.
type EngineStats struct {
	ScenesEntered  uint64
	ActionsRun     uint64
	ActionsSkipped uint64
	ActionsPending int
}

// Engine enters scenes.
//
// Enter, and the deferred executions it schedules, run on the dispatch
// loop. Stop and Stats may be called from any goroutine.
type Engine struct {
	scenes   *Registry
	state    StateReader
	actuator Actuator
	sched    Scheduler
	logger   Logger

	afterFunc func(d time.Duration, f func()) *time.Timer

	pendingMu sync.Mutex
	pending   map[*time.Timer]struct{}

	entered atomic.Uint64
	ran     atomic.Uint64
	skipped atomic.Uint64
}

// NewEngine creates a scene engine.
//
// Parameters:
//   - scenes: Scene registry
//   - state: Endpoint value source for conditions
//   - actuator: Device writer
//   - sched: Dispatch loop re-entry for delayed actions
//   - logger: Logger instance (may be nil)
func NewEngine(scenes *Registry, state StateReader, actuator Actuator, sched Scheduler, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		scenes:    scenes,
		state:     state,
		actuator:  actuator,
		sched:     sched,
		logger:    logger,
		afterFunc: time.AfterFunc,
		pending:   make(map[*time.Timer]struct{}),
	}
}

// Enter runs a scene by name.
//
// Conditions are evaluated once, at entry. Actions whose condition fails
// are skipped. Immediate actions are executed before Enter returns; delayed
// actions are executed on the dispatch loop once their delay has passed.
//
// Returns:
//   - error: ErrSceneNotFound if no scene has that name
func (e *Engine) Enter(name string) error {
	scene, err := e.scenes.Get(name)
	if err != nil {
		return err
	}
	e.entered.Add(1)

	var now []DeviceAction
	for i, action := range scene.Actions {
		if action.Condition != nil && !e.check(action.Condition) {
			e.skipped.Add(1)
			e.logger.Debug("scene action skipped", "scene", name, "action", i)
			continue
		}
		e.ran.Add(1)

		if action.Delay == 0 {
			now = append(now, action.Acts...)
			continue
		}
		e.schedule(name, action.DelayDuration(), slices.Clone(action.Acts))
	}

	e.logger.Info("scene entered", "scene", name, "actions", len(scene.Actions))
	execute(e.actuator, e.logger, now)
	return nil
}

// check evaluates a condition against the current endpoint value.
// A missing device or endpoint fails the condition.
func (e *Engine) check(c *Condition) bool {
	val, ok := e.state.EndpointValue(c.DevID, c.EPID)
	if !ok {
		e.logger.Debug("condition endpoint unavailable", "devid", c.DevID, "epid", c.EPID)
		return false
	}
	return c.Expr.Eval(val, c.Val)
}

func (e *Engine) schedule(scene string, delay time.Duration, acts []DeviceAction) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()

	var t *time.Timer
	t = e.afterFunc(delay, func() {
		e.pendingMu.Lock()
		_, live := e.pending[t]
		delete(e.pending, t)
		e.pendingMu.Unlock()
		if !live {
			return
		}

		e.sched.Defer(func() {
			e.logger.Debug("delayed scene action", "scene", scene, "delay", delay.String())
			execute(e.actuator, e.logger, acts)
		})
	})
	e.pending[t] = struct{}{}
}

// Stop cancels every delayed action that has not yet fired.
func (e *Engine) Stop() {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()

	for t := range e.pending {
		t.Stop()
	}
	clear(e.pending)
}

// Stats returns engine counters.
func (e *Engine) Stats() EngineStats {
	e.pendingMu.Lock()
	pending := len(e.pending)
	e.pendingMu.Unlock()

	return EngineStats{
		ScenesEntered:  e.entered.Load(),
		ActionsRun:     e.ran.Load(),
		ActionsSkipped: e.skipped.Load(),
		ActionsPending: pending,
	}
}

// execute groups device actions by device, preserving first-seen order, and
// issues one write per device. Failures are logged; the remaining devices
// are still written.
func execute(act Actuator, logger Logger, acts []DeviceAction) {
	if len(acts) == 0 {
		return
	}

	var order []uint32
	batches := make(map[uint32][]device.EndpointValue)
	for _, a := range acts {
		if _, seen := batches[a.DevID]; !seen {
			order = append(order, a.DevID)
		}
		batches[a.DevID] = append(batches[a.DevID], device.EndpointValue{EPID: a.EPID, Value: a.Val})
	}

	for _, devID := range order {
		if err := act.WriteDevice(devID, batches[devID]); err != nil {
			logger.Warn("device action failed", "devid", devID, "error", err)
		}
	}
}
