// Package manager is the single-threaded dispatcher at the centre of HSB core.
//
// Every piece of work (an inbound frame from a transport, an outbound frame
// from a driver, a client command, an event or reply for publishers, a
// delayed scene action) is pushed onto one unbounded queue and handled by a
// single goroutine. The device registry, drivers and scene/timer engines are
// only ever touched from that goroutine, so none of them need locks.
//
//	mgr, err := manager.New(cfg, deps)
//	mgr.AddTransport(t)
//	mgr.AddDriver("rf0", 1)
//	mgr.AddPublisher(server)
//	mgr.Start(ctx)
//	defer mgr.Stop()
//
// Housekeeping runs whenever a sweep interval has elapsed: devices that have
// not been heard from for more than the liveness limit go offline, and due
// timers fire.
package manager
