// Package influxdb records device history in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. The gateway writes
// one "endpoint" point per changed endpoint value and one "presence" point
// whenever a device goes online or offline. Both are tagged with the device
// id and MAC.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteEndpoint(7, "a0:b1:c2:d3:e4:f5", 0, 1)
//
// # Error Handling
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Batch errors are delivered through SetOnError.
// Connection and health check errors are returned directly.
package influxdb
