package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-records/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-records/internal/notify"
	"github.com/nerrad567/gray-logic-records/internal/sqlexec"
	"github.com/nerrad567/gray-logic-records/internal/store"
)

// eventServer wires a broker between the store and the hub and serves the
// router over a real listener.
func eventServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	broker := notify.NewBroker(64)
	srv, router := testServer(t, func(d *Deps) {
		d.Store = store.New(sqlexec.New(d.DB.(*database.DB)), store.Options{Hook: broker})
		d.Events = broker
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go broker.Run(ctx)
	go srv.hub.Run(ctx)
	sub := broker.Subscribe(wsSendBufferSize)
	go srv.hub.Relay(ctx, sub)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v (resp: %v)", err, resp)
	}
	t.Cleanup(func() { ws.Close() }) //nolint:errcheck // Test cleanup
	return ws
}

func post(t *testing.T, ts *httptest.Server, path, body string) {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST %s status = %d", path, resp.StatusCode)
	}
}

// readUntil reads messages until one matches or the deadline passes.
func readUntil(t *testing.T, ws *websocket.Conn, match func(WSMessage) bool) WSMessage {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(3 * time.Second)) //nolint:errcheck // Test deadline
	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			t.Fatalf("read message: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func TestWebSocketStreamsTableEvents(t *testing.T) {
	srv, ts := eventServer(t)
	post(t, ts, "/api/v1/tables", buildingsTable)

	ws := dial(t, ts)
	if err := ws.WriteJSON(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: []string{"buildings"}},
	}); err != nil {
		t.Fatalf("write subscribe message: %v", err)
	}

	resp := readUntil(t, ws, func(m WSMessage) bool { return m.Type == WSTypeResponse })
	if resp.ID != "sub-1" {
		t.Errorf("response ID = %s, want sub-1", resp.ID)
	}
	if srv.hub.ClientCount() != 1 {
		t.Errorf("hub client count = %d, want 1", srv.hub.ClientCount())
	}

	post(t, ts, "/api/v1/tables/Buildings/records", `{"Name":"Shard","Height":310}`)

	ev := readUntil(t, ws, func(m WSMessage) bool { return m.Type == WSTypeEvent && m.EventType == "insert" })
	payload, ok := ev.Payload.(map[string]any)
	if !ok {
		t.Fatalf("payload = %T, want object", ev.Payload)
	}
	if payload["table"] != "Buildings" || payload["rows_affected"] != float64(1) {
		t.Errorf("payload = %v", payload)
	}
	if ev.ID == "" || ev.ID != payload["id"] {
		t.Errorf("message ID %q does not match event id %v", ev.ID, payload["id"])
	}
}

func TestWebSocketPingAndErrors(t *testing.T) {
	_, ts := eventServer(t)
	ws := dial(t, ts)

	if err := ws.WriteJSON(WSMessage{Type: WSTypePing, ID: "p1"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if pong := readUntil(t, ws, func(m WSMessage) bool { return m.ID == "p1" }); pong.Type != WSTypePong {
		t.Errorf("ping reply type = %s, want pong", pong.Type)
	}

	if err := ws.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if msg := readUntil(t, ws, func(m WSMessage) bool { return m.Type == WSTypeError }); msg.Payload == nil {
		t.Error("error message has no payload")
	}

	if err := ws.WriteJSON(WSMessage{Type: "shout", ID: "x"}); err != nil {
		t.Fatalf("write unknown type: %v", err)
	}
	readUntil(t, ws, func(m WSMessage) bool { return m.Type == WSTypeError && m.ID == "x" })
}

func TestHubSubscriptionFiltering(t *testing.T) {
	srv, _ := testServer(t, nil)
	hub := srv.hub

	rooms := &WSClient{hub: hub, send: make(chan []byte, 4), subscriptions: map[string]struct{}{"rooms": {}}}
	all := &WSClient{hub: hub, send: make(chan []byte, 4), subscriptions: map[string]struct{}{WSChannelAll: {}}}
	none := &WSClient{hub: hub, send: make(chan []byte, 4), subscriptions: map[string]struct{}{}}
	for _, c := range []*WSClient{rooms, all, none} {
		hub.Register(c)
	}

	hub.Broadcast(notify.Event{ID: "e1", Op: store.OpInsert, Table: "Rooms"})
	hub.Broadcast(notify.Event{ID: "e2", Op: store.OpInsert, Table: "Sites"})

	if got := len(rooms.send); got != 1 {
		t.Errorf("rooms client got %d messages, want 1", got)
	}
	if got := len(all.send); got != 2 {
		t.Errorf("wildcard client got %d messages, want 2", got)
	}
	if got := len(none.send); got != 0 {
		t.Errorf("unsubscribed client got %d messages, want 0", got)
	}

	hub.Unregister(rooms)
	hub.Unregister(rooms)
	if hub.ClientCount() != 2 {
		t.Errorf("ClientCount() = %d, want 2", hub.ClientCount())
	}
	hub.Broadcast(notify.Event{ID: "e3", Table: "Rooms"})
}
