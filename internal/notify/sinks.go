package notify

import (
	"context"
	"time"
)

// EventPublisher publishes an encoded event for a table and op.
// Satisfied by *mqtt.Client.
type EventPublisher interface {
	PublishEvent(ctx context.Context, table, op string, payload []byte) error
}

// MQTTSink publishes each event to {prefix}/{table}/{op}.
type MQTTSink struct {
	pub    EventPublisher
	encode Encoder
}

// NewMQTTSink returns a sink publishing through pub with the named encoding.
func NewMQTTSink(pub EventPublisher, encoding string) (*MQTTSink, error) {
	enc, err := EncoderFor(encoding)
	if err != nil {
		return nil, err
	}
	return &MQTTSink{pub: pub, encode: enc}, nil
}

// Name implements Sink.
func (*MQTTSink) Name() string { return "mqtt" }

// Deliver implements Sink.
func (s *MQTTSink) Deliver(ctx context.Context, ev Event) error {
	payload, err := s.encode(ev)
	if err != nil {
		return err
	}
	return s.pub.PublishEvent(ctx, ev.Table, string(ev.Op), payload)
}

// MutationWriter records a mutation metric.
// Satisfied by *influxdb.Client.
type MutationWriter interface {
	WriteMutation(table, op string, rows int64, at time.Time)
}

// InfluxSink writes one point per event.
type InfluxSink struct {
	w MutationWriter
}

// NewInfluxSink returns a sink writing through w.
func NewInfluxSink(w MutationWriter) *InfluxSink {
	return &InfluxSink{w: w}
}

// Name implements Sink.
func (*InfluxSink) Name() string { return "influxdb" }

// Deliver implements Sink. Writes are batched by the client and never fail here.
func (s *InfluxSink) Deliver(_ context.Context, ev Event) error {
	s.w.WriteMutation(ev.Table, string(ev.Op), ev.RowsAffected, ev.At)
	return nil
}

// SinkFunc adapts a function to Sink.
type SinkFunc struct {
	SinkName string
	Fn       func(ctx context.Context, ev Event) error
}

// Name implements Sink.
func (f SinkFunc) Name() string { return f.SinkName }

// Deliver implements Sink.
func (f SinkFunc) Deliver(ctx context.Context, ev Event) error { return f.Fn(ctx, ev) }
