package live

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func waitRoomSize(t *testing.T, hub *Hub, room string, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.RoomSize(room) != want {
		if time.Now().After(deadline) {
			t.Fatalf("room %s size = %d, want %d", room, hub.RoomSize(room), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHub_PublishReachesAdminRoom(t *testing.T) {
	hub, _ := startHub(t)

	admin := NewClient(hub, nil, AdminRoom)
	other := NewClient(hub, nil, "lobby")
	hub.Register(admin)
	hub.Register(other)
	waitRoomSize(t, hub, AdminRoom, 1)
	waitRoomSize(t, hub, "lobby", 1)

	hub.Publish(EventPaymentVerified, map[string]int{"payment_id": 11})

	select {
	case raw := <-admin.Send:
		var msg struct {
			Type    string         `json:"type"`
			RoomID  string         `json:"room_id"`
			Payload map[string]int `json:"payload"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Type != EventPaymentVerified || msg.RoomID != AdminRoom || msg.Payload["payment_id"] != 11 {
			t.Errorf("unexpected message: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("admin client did not receive the event")
	}

	select {
	case raw := <-other.Send:
		t.Errorf("lobby client got %s", raw)
	default:
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub, _ := startHub(t)

	c := NewClient(hub, nil, AdminRoom)
	hub.Register(c)
	waitRoomSize(t, hub, AdminRoom, 1)

	hub.Unregister(c)
	waitRoomSize(t, hub, AdminRoom, 0)

	if _, ok := <-c.Send; ok {
		t.Error("Send channel still open after unregister")
	}
}

func TestHub_StopClosesClientsAndRejectsRegister(t *testing.T) {
	hub, cancel := startHub(t)

	c := NewClient(hub, nil, AdminRoom)
	hub.Register(c)
	waitRoomSize(t, hub, AdminRoom, 1)

	cancel()
	select {
	case _, ok := <-c.Send:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("Send not closed after stop")
	}

	if hub.Register(NewClient(hub, nil, AdminRoom)) {
		t.Error("Register succeeded on stopped hub")
	}
}
