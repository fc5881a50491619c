package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(&Config{Port: 0, Logger: log.New(io.Discard, "", 0)})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	t.Cleanup(func() {
		if err := s.Stop(); err != nil {
			t.Errorf("Stop() = %v", err)
		}
	})
	return s
}

func TestHealthEndpoint(t *testing.T) {
	s := startTestServer(t)

	resp, err := http.Get(fmt.Sprintf("http://%s/health", s.Addr()))
	if err != nil {
		t.Fatalf("GET /health = %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("health body = %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
}

func TestBroadcastReachesClient(t *testing.T) {
	s := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://%s/ws", s.Addr()), nil)
	if err != nil {
		t.Fatalf("Dial() = %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	data, _ := json.Marshal(StatsData{Contacts: 7, DirtyInteractions: 2, Online: true})
	// Give the read loop a moment to register the client.
	time.Sleep(50 * time.Millisecond)
	s.Broadcast(Message{Type: MessageTypeStats, Data: data})

	_, raw, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read() = %v", err)
	}

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("broadcast is not a Message: %v", err)
	}
	if msg.Type != MessageTypeStats {
		t.Errorf("type = %q, want %q", msg.Type, MessageTypeStats)
	}
	if msg.Timestamp.IsZero() {
		t.Error("broadcast has no timestamp")
	}

	var stats StatsData
	if err := json.Unmarshal(msg.Data, &stats); err != nil {
		t.Fatalf("data is not StatsData: %v", err)
	}
	if stats.Contacts != 7 || stats.DirtyInteractions != 2 || !stats.Online {
		t.Errorf("stats = %+v, want the broadcast values", stats)
	}
}
