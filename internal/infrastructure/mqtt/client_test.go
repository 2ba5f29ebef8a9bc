package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-records/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "graylogic-records-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
		TopicPrefix: "graylogic/records",
	}
}

// fakeToken completes immediately with err.
type fakeToken struct {
	err  error
	done chan struct{}
}

func newToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

// pendingToken never completes.
type pendingToken struct{}

func (pendingToken) Wait() bool                     { return false }
func (pendingToken) WaitTimeout(time.Duration) bool { return false }
func (pendingToken) Done() <-chan struct{}          { return nil }
func (pendingToken) Error() error                   { return nil }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakePaho records publishes instead of talking to a broker.
type fakePaho struct {
	mu           sync.Mutex
	connected    bool
	publishErr   error
	hang         bool
	published    []published
	disconnected bool
}

func (f *fakePaho) IsConnected() bool      { f.mu.Lock(); defer f.mu.Unlock(); return f.connected }
func (f *fakePaho) IsConnectionOpen() bool { return f.IsConnected() }
func (f *fakePaho) Connect() pahomqtt.Token {
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	return newToken(nil)
}

func (f *fakePaho) Disconnect(uint) {
	f.mu.Lock()
	f.connected = false
	f.disconnected = true
	f.mu.Unlock()
}

func (f *fakePaho) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hang {
		return pendingToken{}
	}
	b, _ := payload.([]byte)
	f.published = append(f.published, published{topic, qos, retained, b})
	return newToken(f.publishErr)
}

func (f *fakePaho) Subscribe(string, byte, pahomqtt.MessageHandler) pahomqtt.Token {
	return newToken(nil)
}

func (f *fakePaho) SubscribeMultiple(map[string]byte, pahomqtt.MessageHandler) pahomqtt.Token {
	return newToken(nil)
}

func (f *fakePaho) Unsubscribe(...string) pahomqtt.Token { return newToken(nil) }
func (f *fakePaho) AddRoute(string, pahomqtt.MessageHandler) {}
func (f *fakePaho) OptionsReader() pahomqtt.ClientOptionsReader {
	return pahomqtt.ClientOptionsReader{}
}

func (f *fakePaho) messages() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.published...)
}

func TestPublishEvent(t *testing.T) {
	fake := &fakePaho{connected: true}
	client := newClient(testConfig(), fake)

	if err := client.PublishEvent(context.Background(), "Buildings", "insert", []byte(`{"rows":3}`)); err != nil {
		t.Fatalf("PublishEvent() error = %v", err)
	}

	msgs := fake.messages()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	got := msgs[0]
	if got.topic != "graylogic/records/Buildings/insert" {
		t.Errorf("topic = %q", got.topic)
	}
	if got.qos != 1 || got.retained {
		t.Errorf("qos = %d retained = %v, want 1 false", got.qos, got.retained)
	}
	if string(got.payload) != `{"rows":3}` {
		t.Errorf("payload = %s", got.payload)
	}
}

func TestPublishValidation(t *testing.T) {
	client := newClient(testConfig(), &fakePaho{connected: true})
	ctx := context.Background()

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{"empty topic", "", nil, 0, ErrInvalidTopic},
		{"wildcard topic", "graylogic/records/#", nil, 0, ErrInvalidTopic},
		{"single-level wildcard", "graylogic/+/x", nil, 0, ErrInvalidTopic},
		{"invalid QoS", "a/b", nil, 3, ErrInvalidQoS},
		{"payload too large", "a/b", make([]byte, maxPayloadSize+1), 0, ErrPublishFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := client.Publish(ctx, tt.topic, tt.payload, tt.qos); !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPublishDisconnected(t *testing.T) {
	client := newClient(testConfig(), &fakePaho{connected: false})

	err := client.Publish(context.Background(), "a/b", []byte("x"), 0)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestPublishBrokerError(t *testing.T) {
	fake := &fakePaho{connected: true, publishErr: errors.New("not authorised")}
	client := newClient(testConfig(), fake)

	err := client.Publish(context.Background(), "a/b", []byte("x"), 1)
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
}

func TestPublishContextCancelled(t *testing.T) {
	fake := &fakePaho{connected: true, hang: true}
	client := newClient(testConfig(), fake)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := client.Publish(ctx, "a/b", []byte("x"), 1)
	if !errors.Is(err, ErrPublishFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed wrapping DeadlineExceeded", err)
	}
}

func TestHealthCheck(t *testing.T) {
	client := newClient(testConfig(), &fakePaho{connected: true})

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestCloseAnnouncesOffline(t *testing.T) {
	fake := &fakePaho{connected: true}
	client := newClient(testConfig(), fake)

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close(), want false")
	}

	msgs := fake.messages()
	if len(msgs) != 1 || msgs[0].topic != "graylogic/system/status" || !msgs[0].retained {
		t.Fatalf("status messages = %+v", msgs)
	}
	var status statusPayload
	if err := json.Unmarshal(msgs[0].payload, &status); err != nil {
		t.Fatalf("status payload is not JSON: %v", err)
	}
	if status.Status != statusOffline || status.Reason != "graceful_shutdown" {
		t.Errorf("status = %+v", status)
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() on nil client = true")
	}
}

func TestConnectionCallbacks(t *testing.T) {
	fake := &fakePaho{connected: true}
	client := newClient(testConfig(), fake)

	var connects, disconnects int
	client.SetOnConnect(func() { connects++ })
	client.SetOnDisconnect(func(error) { disconnects++ })

	client.handleDisconnect(errors.New("network down"))
	if client.IsConnected() {
		t.Error("IsConnected() = true after connection lost")
	}

	client.handleConnect()
	if !client.IsConnected() {
		t.Error("IsConnected() = false after reconnect")
	}
	if connects != 1 || disconnects != 1 {
		t.Errorf("callbacks = %d connects, %d disconnects", connects, disconnects)
	}

	msgs := fake.messages()
	if len(msgs) != 1 || !strings.Contains(string(msgs[0].payload), `"status":"online"`) {
		t.Errorf("reconnect did not announce online: %+v", msgs)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Auth.Username = "records"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != cfg.Broker.ClientID {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "records" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS config not applied")
	}
	if !opts.WillEnabled || !opts.WillRetained || opts.WillTopic != "graylogic/system/status" {
		t.Errorf("will = %v %v %q", opts.WillEnabled, opts.WillRetained, opts.WillTopic)
	}
	if !strings.Contains(string(opts.WillPayload), "unexpected_disconnect") {
		t.Errorf("will payload = %s", opts.WillPayload)
	}
}

func TestTopics(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"event", NewTopics("graylogic/records").Event("Buildings", "insert"), "graylogic/records/Buildings/insert"},
		{"custom prefix", NewTopics("site1/db/").Event("T", "delete"), "site1/db/T/delete"},
		{"empty prefix", NewTopics("").Event("T", "update"), "graylogic/records/T/update"},
		{"zero value", Topics{}.Event("T", "update"), "graylogic/records/T/update"},
		{"table wildcard", NewTopics("x").TableEvents("T"), "x/T/+"},
		{"all events", NewTopics("x").AllEvents(), "x/#"},
		{"system status", NewTopics("x").SystemStatus(), "graylogic/system/status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
