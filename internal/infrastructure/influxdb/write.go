package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementMutations holds one point per committed store mutation.
const MeasurementMutations = "table_mutations"

// WriteMutation records that op touched rows rows of table at the given time.
//
//	client.WriteMutation("Buildings", "insert", 3, time.Now())
func (c *Client) WriteMutation(table, op string, rows int64, at time.Time) {
	c.WritePoint(mutationPoint(table, op, rows, at))
}

func mutationPoint(table, op string, rows int64, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementMutations,
		map[string]string{"table": table, "op": op},
		map[string]interface{}{"rows": rows},
		at,
	)
}

// WritePoint writes a pre-built point. Dropped when not connected.
func (c *Client) WritePoint(point *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(point)
}
