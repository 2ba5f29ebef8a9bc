// Package influxdb writes record mutation metrics to InfluxDB v2.
//
// Each committed store mutation becomes one point in the table_mutations
// measurement, tagged by table and op, with the affected row count as the
// rows field. Writes are batched and non-blocking; failures arrive on the
// SetOnError callback.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // metrics off
//	}
//	defer client.Close()
//
//	client.WriteMutation("Buildings", "insert", 1, time.Now())
package influxdb
