// Package device provides the endpoint/device model for HSB Core.
//
// A Device is one node on the sub-network (or a virtual infrared device) and
// owns an ordered set of Endpoints, each an addressable readable/writable
// capability such as a relay channel or a curtain position.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────────────┐
//	│                            device                                    │
//	│                                                                      │
//	│  ┌──────────────────┐   ┌──────────────────┐   ┌──────────────────┐  │
//	│  │     Device       │   │     Registry     │   │    Repository    │  │
//	│  │   (types.go)     │   │  (registry.go)   │──▶│ (repository.go)  │  │
//	│  │ • endpoints      │   │ • devId → Device │   │ • SQLite records │  │
//	│  │ • ApplyPatch     │   │ • MAC index      │   │ • MAC lookup     │  │
//	│  │ • Serialize      │   │ • id allocation  │   │ • max id         │  │
//	│  └──────────────────┘   └──────────────────┘   └──────────────────┘  │
//	└─────────────────────────────────────────────────────────────────────┘
//
// Device classes (classes.go) decorate the endpoints reported in a discovery
// response with display names and value semantics for each numeric device
// type known on the sub-network.
//
// # Ownership
//
// Devices and the Registry are owned by the manager's dispatch loop and are
// not safe for concurrent use. Writes to hardware go through the
// EndpointWriter held by each device (its driver).
package device
