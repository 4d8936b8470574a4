package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// logsServer upgrades each connection, confirms the subscription and sends
// the given notifications, then closes the connection.
func logsServer(t *testing.T, conns *atomic.Int64, notifications []LogNotification) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		if conns != nil {
			conns.Add(1)
		}

		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Method != "logsSubscribe" {
			t.Errorf("method = %s, want logsSubscribe", req.Method)
		}
		conn.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": 42})

		for _, n := range notifications {
			msg := map[string]interface{}{
				"jsonrpc": "2.0",
				"method":  "logsNotification",
				"params": map[string]interface{}{
					"subscription": 42,
					"result": map[string]interface{}{
						"context": map[string]interface{}{"slot": n.Slot},
						"value": map[string]interface{}{
							"signature": n.Signature,
							"logs":      n.Logs,
							"err":       n.Err,
						},
					},
				},
			}
			data, _ := json.Marshal(msg)
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testWSConfig() *WSConfig {
	return &WSConfig{
		ReconnectDelay:   50 * time.Millisecond,
		PingInterval:     time.Second,
		ReadTimeout:      time.Second,
		WriteTimeout:     time.Second,
		HandshakeTimeout: time.Second,
	}
}

func TestWSClient_SubscribeAndReceive(t *testing.T) {
	server := logsServer(t, nil, []LogNotification{
		{Signature: "sig1", Slot: 1000, Logs: []string{"Program log: one"}},
	})
	defer server.Close()

	client := NewWSClient(wsURL(server), testWSConfig(), nil)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch, err := client.SubscribeLogs(ctx, LogsFilter{Mentions: []string{"program1"}})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}

	select {
	case notif := <-ch:
		if notif.Signature != "sig1" {
			t.Errorf("signature = %s", notif.Signature)
		}
		if notif.Slot != 1000 {
			t.Errorf("slot = %d", notif.Slot)
		}
		if len(notif.Logs) != 1 {
			t.Errorf("logs = %v", notif.Logs)
		}
	case <-ctx.Done():
		t.Fatal("no notification received")
	}
}

func TestWSClient_ReconnectsAfterDrop(t *testing.T) {
	var conns atomic.Int64
	server := logsServer(t, &conns, []LogNotification{
		{Signature: "sig1", Slot: 1, Logs: []string{"a"}},
	})
	defer server.Close()

	client := NewWSClient(wsURL(server), testWSConfig(), nil)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ch, err := client.SubscribeLogs(ctx, LogsFilter{})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}

	// The server drops the connection after one notification; a second
	// notification arriving proves the client re-dialed and re-subscribed.
	received := 0
	for received < 2 {
		select {
		case <-ch:
			received++
		case <-ctx.Done():
			t.Fatalf("received %d notifications before timeout, want 2", received)
		}
	}

	if conns.Load() < 2 {
		t.Errorf("server saw %d connections, want at least 2", conns.Load())
	}
	if client.Reconnects() < 1 {
		t.Errorf("Reconnects() = %d, want at least 1", client.Reconnects())
	}
}

func TestWSClient_Close(t *testing.T) {
	server := logsServer(t, nil, nil)
	defer server.Close()

	client := NewWSClient(wsURL(server), testWSConfig(), nil)

	ch, err := client.SubscribeLogs(context.Background(), LogsFilter{})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to close without a value")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription channel not closed after Close")
	}

	if _, err := client.SubscribeLogs(context.Background(), LogsFilter{}); err == nil {
		t.Error("SubscribeLogs after Close succeeded")
	}
}
