package wsfeed

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/oxarb/flasharb/business/strategy/domain"
	"github.com/oxarb/flasharb/internal/logger"
)

func newTestHub() *Hub {
	return NewHub(logger.New(io.Discard, logger.LevelDebug, "test", nil))
}

func TestHub_EmitWithoutSubscribersIsSafe(t *testing.T) {
	hub := newTestHub()
	hub.Emit(context.Background(), domain.NewEvent("s", domain.SeverityInfo, domain.PriorityNormal, "nobody listening"))
}

func TestHub_DeliversEventsToSubscriber(t *testing.T) {
	hub := newTestHub()
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// The subscriber registers inside ServeHTTP; give it a moment.
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.Lock()
		n := len(hub.clients)
		hub.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	want := domain.NewEvent("weth-usdc", domain.SeveritySuccess, domain.PriorityHigh, "filled")
	hub.Emit(ctx, want)

	msgType, payload, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if msgType != websocket.MessageText {
		t.Errorf("message type = %v, want text", msgType)
	}

	var got domain.Event
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("payload is not an event: %v", err)
	}
	if got.StrategyID != "weth-usdc" || got.Text != "filled" {
		t.Errorf("event = %+v, want strategy weth-usdc text filled", got)
	}
	if got.Severity != domain.SeveritySuccess {
		t.Errorf("severity = %s, want success", got.Severity)
	}
}

func TestHub_HighPriorityEvictsWhenFull(t *testing.T) {
	hub := newTestHub()

	// Register a client directly and fill its queue.
	c := &client{events: make(chan domain.Event, 2), done: make(chan struct{})}
	hub.mu.Lock()
	hub.clients[c] = struct{}{}
	hub.mu.Unlock()

	ctx := context.Background()
	hub.Emit(ctx, domain.NewEvent("s", domain.SeverityInfo, domain.PriorityNormal, "one"))
	hub.Emit(ctx, domain.NewEvent("s", domain.SeverityInfo, domain.PriorityNormal, "two"))

	// A normal event is dropped on overflow.
	hub.Emit(ctx, domain.NewEvent("s", domain.SeverityInfo, domain.PriorityNormal, "dropped"))
	if len(c.events) != 2 {
		t.Fatalf("queue len = %d after dropped event, want 2", len(c.events))
	}

	// A high-priority event evicts the oldest.
	hub.Emit(ctx, domain.NewEvent("s", domain.SeverityError, domain.PriorityHigh, "halted"))

	first := <-c.events
	second := <-c.events
	if first.Text != "two" || second.Text != "halted" {
		t.Errorf("queue = [%s, %s], want [two, halted]", first.Text, second.Text)
	}
}

func TestHub_CloseRejectsNewSubscribers(t *testing.T) {
	hub := newTestHub()
	hub.Close()

	server := httptest.NewServer(hub)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		// Dial may already observe the close.
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if _, _, err := conn.Read(ctx); err == nil {
		t.Error("read succeeded against a closed hub")
	}
}
