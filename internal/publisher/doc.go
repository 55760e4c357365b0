// Package publisher fans manager events and replies out to the MQTT broker
// and to the InfluxDB history store.
//
// Both types implement manager.Publisher. The manager calls them on its
// dispatch loop, so neither may block: the MQTT bridge hands messages to
// its own goroutine and the history recorder relies on the non-blocking
// InfluxDB write API.
package publisher
