package websocket

import (
	"encoding/json"
	"sync"
	"testing"
)

func newClient(userID string) *Client {
	return &Client{UserID: userID, Send: make(chan []byte, 256)}
}

func TestHub_RegisterClient(t *testing.T) {
	hub := NewHub()
	client := newClient("user-1")

	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if !hub.IsOnline("user-1") {
		t.Fatal("expected user-1 to be online")
	}
	if hub.IsOnline("user-2") {
		t.Fatal("did not expect user-2 to be online")
	}
}

func TestHub_UnregisterClient(t *testing.T) {
	hub := NewHub()
	client := newClient("user-1")

	hub.Register(client)
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
	if hub.IsOnline("user-1") {
		t.Fatal("expected user-1 to be offline")
	}

	// Send channel must be closed after unregister.
	if _, open := <-client.Send; open {
		t.Fatal("expected Send channel to be closed")
	}
}

func TestHub_UnregisterTwiceIsSafe(t *testing.T) {
	hub := NewHub()
	client := newClient("user-1")

	hub.Register(client)
	hub.Unregister(client)
	hub.Unregister(client) // must not panic or double-close
}

func TestHub_PushDeliversToUser(t *testing.T) {
	hub := NewHub()
	client := newClient("user-1")
	other := newClient("user-2")
	hub.Register(client)
	hub.Register(other)

	hub.Push("user-1", "appointment_booked", map[string]string{"id": "appt-1"})

	select {
	case raw := <-client.Send:
		var evt Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if evt.Name != "appointment_booked" {
			t.Errorf("expected event appointment_booked, got %s", evt.Name)
		}
	default:
		t.Fatal("expected event on user-1's channel")
	}

	select {
	case <-other.Send:
		t.Fatal("user-2 must not receive user-1's event")
	default:
	}
}

func TestHub_PushToOfflineUserIsNoop(t *testing.T) {
	hub := NewHub()
	// No registered connections at all.
	hub.Push("ghost", "reminder", map[string]string{"id": "x"})
}

func TestHub_PushReachesAllConnectionsOfUser(t *testing.T) {
	hub := NewHub()
	tab1 := newClient("user-1")
	tab2 := newClient("user-1")
	hub.Register(tab1)
	hub.Register(tab2)

	hub.Push("user-1", "dashboard_updated", map[string]int{"total": 3})

	for i, c := range []*Client{tab1, tab2} {
		select {
		case <-c.Send:
		default:
			t.Errorf("connection %d did not receive the event", i)
		}
	}
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub()
	client := &Client{UserID: "user-1", Send: make(chan []byte)} // unbuffered, no reader
	hub.Register(client)

	done := make(chan struct{})
	go func() {
		hub.Push("user-1", "reminder", map[string]string{"id": "x"})
		close(done)
	}()

	select {
	case <-done:
	case <-client.Send:
		t.Fatal("expected push to be dropped, not delivered")
	}
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			client := newClient("user-1")
			hub.Register(client)
			hub.Push("user-1", "ping", nil)
			hub.IsOnline("user-1")
			hub.Unregister(client)
		}(i)
	}
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after churn, got %d", hub.ClientCount())
	}
}
