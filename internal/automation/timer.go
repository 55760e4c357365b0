package automation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Timer kinds.
const (
	TimerOneshot = "oneshot"
	TimerDaily   = "daily"
)

// Timer formats and firing window.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"

	// DefaultGrace is how late a timer may be noticed and still fire.
	DefaultGrace = 3 * time.Second
)

// Timer is one scheduled endpoint write attached to a device.
type Timer struct {
	ID     int          `json:"tmid"`
	Kind   string       `json:"type"`
	Date   string       `json:"date,omitempty"`
	Time   string       `json:"time"`
	Action DeviceAction `json:"action"`

	next    time.Time
	expired bool
}

// Next returns the moment the timer is armed for.
func (t *Timer) Next() time.Time {
	return t.next
}

// Expired reports whether the timer has fired or was missed.
func (t *Timer) Expired() bool {
	return t.expired
}

// timerJSON detects missing fields.
type timerJSON struct {
	ID     *int          `json:"tmid"`
	Kind   string        `json:"type"`
	Date   string        `json:"date"`
	Time   string        `json:"time"`
	Action *DeviceAction `json:"action"`
}

// ParseTimers decodes a device's timer list. Invalid timers are rejected
// individually: the valid ones are returned together with an error joining
// every rejection.
func ParseTimers(raw json.RawMessage, now time.Time) ([]*Timer, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTimer, err)
	}

	var (
		timers []*Timer
		errs   []error
	)
	for i, item := range items {
		t, err := parseTimer(item)
		if err != nil {
			errs = append(errs, fmt.Errorf("timer[%d]: %w", i, err))
			continue
		}
		t.arm(now)
		timers = append(timers, t)
	}
	return timers, errors.Join(errs...)
}

func parseTimer(data []byte) (*Timer, error) {
	var raw timerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTimer, err)
	}

	switch {
	case raw.ID == nil:
		return nil, fmt.Errorf("%w: tmid is required", ErrInvalidTimer)
	case raw.Time == "":
		return nil, fmt.Errorf("%w: time is required", ErrInvalidTimer)
	case raw.Action == nil || raw.Action.DevID == 0:
		return nil, fmt.Errorf("%w: action with devid is required", ErrInvalidTimer)
	}
	if _, err := time.Parse(TimeLayout, raw.Time); err != nil {
		return nil, fmt.Errorf("%w: time %q: %w", ErrInvalidTimer, raw.Time, err)
	}

	t := &Timer{ID: *raw.ID, Kind: raw.Kind, Time: raw.Time, Action: *raw.Action}
	switch raw.Kind {
	case TimerOneshot:
		if raw.Date == "" {
			return nil, fmt.Errorf("%w: oneshot timer needs a date", ErrInvalidTimer)
		}
		if _, err := time.Parse(DateLayout, raw.Date); err != nil {
			return nil, fmt.Errorf("%w: date %q: %w", ErrInvalidTimer, raw.Date, err)
		}
		t.Date = raw.Date
	case TimerDaily:
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidTimer, raw.Kind)
	}
	return t, nil
}

// arm computes the firing moment in now's location. A oneshot timer is only
// live on its own date; a daily timer is armed for today's time of day.
func (t *Timer) arm(now time.Time) {
	loc := now.Location()
	clock, _ := time.ParseInLocation(TimeLayout, t.Time, loc)

	if t.Kind == TimerOneshot {
		day, _ := time.ParseInLocation(DateLayout, t.Date, loc)
		t.next = time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, loc)
		t.expired = !sameDay(t.next, now)
		return
	}

	t.next = time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, loc)
	t.expired = false
}

// due reports whether the timer fires at now. Once the firing moment has
// passed the timer is expired, whether or not it fired.
func (t *Timer) due(now time.Time, grace time.Duration) bool {
	if t.expired || now.Before(t.next) {
		return false
	}
	t.expired = true
	return now.Sub(t.next) < grace
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// TimerEngine holds every device's timers and fires them on Check.
//
// Check runs on the dispatch loop; Set and Remove are safe from any goroutine.
type TimerEngine struct {
	mu       sync.Mutex
	timers   map[uint32][]*Timer
	grace    time.Duration
	mday     int
	actuator Actuator
	logger   Logger
}

// NewTimerEngine creates a timer engine. A zero grace uses DefaultGrace.
func NewTimerEngine(actuator Actuator, grace time.Duration, logger Logger) *TimerEngine {
	if grace <= 0 {
		grace = DefaultGrace
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &TimerEngine{
		timers:   make(map[uint32][]*Timer),
		grace:    grace,
		actuator: actuator,
		logger:   logger,
	}
}

// Set replaces a device's timers with the parsed contents of raw.
// Valid timers are installed even when some are rejected; the returned
// error describes the rejections.
func (e *TimerEngine) Set(devID uint32, raw json.RawMessage, now time.Time) error {
	timers, err := ParseTimers(raw, now)
	if err != nil {
		e.logger.Warn("rejected timers", "devid", devID, "error", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mday == 0 {
		e.mday = now.Day()
	}
	if len(timers) == 0 {
		delete(e.timers, devID)
	} else {
		e.timers[devID] = timers
	}
	return err
}

// Remove drops a device's timers.
func (e *TimerEngine) Remove(devID uint32) {
	e.mu.Lock()
	delete(e.timers, devID)
	e.mu.Unlock()
}

// Timers returns a device's timers.
func (e *TimerEngine) Timers(devID uint32) []*Timer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Timer(nil), e.timers[devID]...)
}

// Check fires the timers due at now and re-arms timers when the day of the
// month has changed since the previous check.
//
// Returns:
//   - int: the number of timers fired
func (e *TimerEngine) Check(now time.Time) int {
	e.mu.Lock()

	if e.mday == 0 {
		e.mday = now.Day()
	}
	if now.Day() != e.mday {
		e.mday = now.Day()
		for _, timers := range e.timers {
			for _, t := range timers {
				t.arm(now)
			}
		}
		e.logger.Debug("timers re-armed for new day", "day", e.mday)
	}

	devIDs := make([]uint32, 0, len(e.timers))
	for id := range e.timers {
		devIDs = append(devIDs, id)
	}
	sort.Slice(devIDs, func(i, j int) bool { return devIDs[i] < devIDs[j] })

	var fired []DeviceAction
	for _, id := range devIDs {
		for _, t := range e.timers[id] {
			if t.due(now, e.grace) {
				e.logger.Info("timer fired", "devid", id, "tmid", t.ID, "type", t.Kind)
				fired = append(fired, t.Action)
			}
		}
	}
	e.mu.Unlock()

	execute(e.actuator, e.logger, fired)
	return len(fired)
}
