package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/manash/iconforge/internal/batch"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var m Message
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return m
}

func TestHub_ConnectedThenEvents(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn := dialHub(t, srv)
	defer conn.Close()

	if m := readMessage(t, conn); m.Type != "connected" {
		t.Fatalf("first message type = %q, want connected", m.Type)
	}

	hub.Notify(batch.Event{Type: batch.EventBatchStarted, ProjectID: "p1", Total: 2})
	if m := readMessage(t, conn); m.Type != string(batch.EventBatchStarted) {
		t.Errorf("event type = %q", m.Type)
	}
}

func TestHub_ImmediateDisconnect(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	for range 20 {
		conn := dialHub(t, srv)
		conn.Close()
	}

	deadline := time.Now().Add(5 * time.Second)
	for hub.ClientCount() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := hub.ClientCount(); n != 0 {
		t.Errorf("ClientCount() = %d after disconnects, want 0", n)
	}
	hub.Notify(batch.Event{Type: batch.EventBatchFinished, ProjectID: "p1"})
}
