// Package mqtt publishes record mutation events to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Event publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Topics
//
//	graylogic/records/{table}/{op}   record events (not retained)
//	graylogic/system/status          online/offline status (retained)
//
// The records prefix is configurable via mqtt.topic_prefix.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Event payloads name tables and ids only, never record values
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishEvent(ctx, "Buildings", "insert", payload)
package mqtt
