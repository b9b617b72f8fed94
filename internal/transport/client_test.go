package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wicara-ai/wicara/internal/protocol"
)

type recordingHandler struct {
	mu       sync.Mutex
	connects int
	events   []protocol.Outbound
}

func (h *recordingHandler) OnConnect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connects++
}

func (h *recordingHandler) OnEvent(event protocol.Outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *recordingHandler) connectCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connects
}

func (h *recordingHandler) eventCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

var testUpgrader = websocket.Upgrader{}

// startServer runs a WebSocket endpoint that hands each accepted
// connection to serve and keeps it open until the test finishes.
func startServer(t *testing.T, serve func(conn *websocket.Conn)) string {
	t.Helper()
	hold := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if serve != nil {
			serve(conn)
		}
		<-hold
	}))
	t.Cleanup(func() {
		close(hold)
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestRunDeliversEvents(t *testing.T) {
	url := startServer(t, func(conn *websocket.Conn) {
		data, err := protocol.EncodeOutbound(protocol.NewErrorEvent("boom"))
		if err != nil {
			t.Error(err)
			return
		}
		conn.WriteMessage(websocket.TextMessage, data)
	})

	handler := &recordingHandler{}
	client, err := NewClient(Config{URL: url, Backoff: 50 * time.Millisecond, MaxRetries: 2}, handler, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	waitFor(t, func() bool { return handler.eventCount() == 1 })
	handler.mu.Lock()
	event := handler.events[0]
	handler.mu.Unlock()
	if _, ok := event.(protocol.ErrorEvent); !ok {
		t.Errorf("expected ErrorEvent, got %T", event)
	}
	if handler.connectCount() != 1 {
		t.Errorf("connect callbacks = %d, want 1", handler.connectCount())
	}
}

func TestRunStopsPromptlyOnCancel(t *testing.T) {
	// The server sends nothing, so the read loop sits in ReadMessage.
	url := startServer(t, nil)

	handler := &recordingHandler{}
	client, err := NewClient(Config{URL: url, Backoff: 50 * time.Millisecond, MaxRetries: 2}, handler, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	waitFor(t, func() bool { return handler.connectCount() == 1 })
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestConnectGivesUpAfterMaxRetries(t *testing.T) {
	handler := &recordingHandler{}
	client, err := NewClient(Config{
		URL:        "ws://127.0.0.1:1/ws", // nothing listens here
		Backoff:    10 * time.Millisecond,
		MaxRetries: 2,
	}, handler, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	if err := client.Run(context.Background()); err == nil {
		t.Fatal("expected a connect error")
	}
	if handler.connectCount() != 0 {
		t.Errorf("connect callbacks = %d, want 0", handler.connectCount())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
