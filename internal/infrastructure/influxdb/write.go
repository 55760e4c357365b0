package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementEndpoint = "endpoint"
	MeasurementPresence = "presence"
)

// WriteEndpoint records one endpoint value of a device.
//
// The write is non-blocking; points are batched and sent asynchronously.
//
// Parameters:
//   - devID: Gateway-assigned device id
//   - mac: Device MAC, kept as a tag so history survives id reassignment
//   - epid: Endpoint id within the device
//   - value: The endpoint value
func (c *Client) WriteEndpoint(devID uint32, mac string, epid uint8, value uint32) {
	c.writeEndpoint(devID, mac, epid, value, time.Now())
}

func (c *Client) writeEndpoint(devID uint32, mac string, epid uint8, value uint32, ts time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		MeasurementEndpoint,
		map[string]string{
			"device_id": strconv.FormatUint(uint64(devID), 10),
			"mac":       mac,
			"epid":      strconv.Itoa(int(epid)),
		},
		map[string]interface{}{
			"value": int64(value),
		},
		ts,
	)

	c.writeAPI.WritePoint(point)
}

// WritePresence records a device going online or offline.
func (c *Client) WritePresence(devID uint32, mac string, online bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		MeasurementPresence,
		map[string]string{
			"device_id": strconv.FormatUint(uint64(devID), 10),
			"mac":       mac,
		},
		map[string]interface{}{
			"online": online,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
