//go:build integration

package influxdb

import (
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-records/internal/infrastructure/config"
)

// Requires the dev InfluxDB from docker-compose.yml.
func TestLiveWriteMutation(t *testing.T) {
	cfg := config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "graylogic-dev-token",
		Org:           "graylogic",
		Bucket:        "metrics",
		BatchSize:     10,
		FlushInterval: 1,
	}
	client, err := Connect(cfg)
	if err != nil {
		t.Skipf("InfluxDB not available: %v", err)
	}
	defer client.Close()

	var writeErr error
	client.SetOnError(func(err error) { writeErr = err })

	client.WriteMutation("Buildings", "insert", 1, time.Now())
	client.Flush()

	if writeErr != nil {
		t.Errorf("write error = %v", writeErr)
	}
}
