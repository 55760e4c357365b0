// Package mqtt connects the gateway to an MQTT broker.
//
// The broker is an optional client surface next to the TCP protocol and the
// HTTP API. Commands published to hsb/{site}/command are fed into the device
// manager, replies come back on hsb/{site}/reply, events on hsb/{site}/event,
// and every device keeps a retained snapshot under hsb/{site}/device/{devid}.
//
// The client handles:
//   - auto-reconnect with subscription restore
//   - a retained status topic with a Last Will for crash detection
//   - panic recovery around message handlers
//
// # Usage
//
//	topics := mqtt.Topics{Site: cfg.Site.ID}
//	client, err := mqtt.Connect(cfg.MQTT, topics)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(topics.Commands(), client.QoS(),
//	    func(_ string, payload []byte) error {
//	        return mgr.Submit("mqtt", payload)
//	    })
package mqtt
