package mqtt

import "fmt"

// TopicPrefix is the root of every HSB topic.
const TopicPrefix = "hsb"

// Topics builds the MQTT topics for one site.
//
// The hierarchy mirrors the client protocol: commands flow in on a single
// topic, replies and events flow out, and per-device snapshots are retained
// so late subscribers see current state.
//
//	topics := mqtt.Topics{Site: "home"}
//	topics.DeviceState(7)
//	// Returns: "hsb/home/device/7"
type Topics struct {
	Site string
}

func (t Topics) base() string {
	return fmt.Sprintf("%s/%s", TopicPrefix, t.Site)
}

// Status is the retained gateway availability topic, also used for the LWT.
func (t Topics) Status() string {
	return t.base() + "/status"
}

// Commands is the topic clients publish JSON commands to.
func (t Topics) Commands() string {
	return t.base() + "/command"
}

// Replies carries replies to commands received over MQTT.
func (t Topics) Replies() string {
	return t.base() + "/reply"
}

// Events carries devices_online, devices_offline and devices_updated.
func (t Topics) Events() string {
	return t.base() + "/event"
}

// DeviceState is the retained snapshot topic for one device.
//
// Example: hsb/home/device/7
func (t Topics) DeviceState(devID uint32) string {
	return fmt.Sprintf("%s/device/%d", t.base(), devID)
}

// AllDeviceStates matches every device snapshot of the site.
func (t Topics) AllDeviceStates() string {
	return t.base() + "/device/+"
}

// All matches every topic of the site.
func (t Topics) All() string {
	return t.base() + "/#"
}
