// Package api implements the HTTP REST API and WebSocket event stream.
//
// Every endpoint translates into a client command and runs it through the
// manager's dispatch loop, so HTTP clients see exactly the state the TCP
// clients see:
//
//	GET    /api/v1/devices            get_devices
//	GET    /api/v1/devices/{id}       get_devices (one devid)
//	PATCH  /api/v1/devices/{id}       set_devices
//	DELETE /api/v1/devices/{id}       del_devices
//	POST   /api/v1/ir-devices         add_ir_devices
//	DELETE /api/v1/ir-devices/{id}    del_ir_devices
//	GET    /api/v1/scenes             get_scenes
//	PUT    /api/v1/scenes/{name}      set_scenes
//	DELETE /api/v1/scenes/{name}      del_scene
//	POST   /api/v1/scenes/{name}/enter enter_scene
//	GET    /api/v1/asrkey             get_asrkey
//	POST   /api/v1/command            any command, raw reply
//
// The WebSocket hub at /api/v1/ws is a manager.Publisher: clients subscribe
// to event names (devices_online, devices_offline, devices_updated or "*")
// and may send commands over the same socket.
//
// There is no authentication; the gateway serves a trusted LAN.
package api
