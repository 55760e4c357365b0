// Package automation provides the scene and timer engines for HSB Core.
//
// Scenes are named lists of actions. Each action carries an optional
// condition on an endpoint value, a delay in seconds from scene entry, and
// the endpoint writes to perform. Timers are attached to devices and fire a
// single endpoint write once (oneshot) or every day (daily).
//
// Architecture:
//
//	┌──────────────────────────────────────────────────────┐
//	│  Engine (engine.go)            TimerEngine (timer.go) │
//	│    │  Enter(name)                │  Check(now)        │
//	│    ▼                             ▼                    │
//	│  Registry ──▶ Repository     per-device timer sets    │
//	│    │                             │                    │
//	│    └──────────┐      ┌───────────┘                    │
//	│               ▼      ▼                                │
//	│         execute: group by device, one write each      │
//	│               │                                       │
//	│               ▼                                       │
//	│         Actuator (manager)                            │
//	└──────────────────────────────────────────────────────┘
//
// Both engines run on the manager's dispatch loop. Delayed scene actions
// wait on time.AfterFunc and re-enter the loop through the Scheduler, so
// device state is never touched from a timer goroutine.
//
// # Usage
//
//	repo := automation.NewSQLiteRepository(db)
//	scenes := automation.NewRegistry(repo)
//	if err := scenes.RefreshCache(ctx); err != nil {
//	    return err
//	}
//	engine := automation.NewEngine(scenes, state, actuator, scheduler, log)
//	err := engine.Enter("evening")
package automation
