package events

import (
	"testing"
	"time"
)

func TestHub_PublishSubscribe(t *testing.T) {
	hub := NewHub()

	ch := hub.Subscribe(10, EventACLInstall)

	hub.Publish(Event{
		Type:   EventACLInstall,
		Source: "reconciler",
		Data:   ACLData{Port: "Ethernet1", Name: "sixfence_Ethernet1", Rules: 2},
	})

	select {
	case e := <-ch:
		if e.Type != EventACLInstall {
			t.Errorf("expected EventACLInstall, got %s", e.Type)
		}
		data, ok := e.Data.(ACLData)
		if !ok {
			t.Fatal("expected ACLData payload")
		}
		if data.Port != "Ethernet1" {
			t.Errorf("expected port Ethernet1, got %s", data.Port)
		}
		if e.Timestamp.IsZero() {
			t.Error("expected timestamp to be stamped on publish")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for event")
	}
}

func TestHub_TypeFiltering(t *testing.T) {
	hub := NewHub()

	ch := hub.Subscribe(10, EventACLInstall, EventACLRemove)

	hub.Publish(Event{Type: EventReconcileSkip, Source: "reconciler"})
	hub.Publish(Event{Type: EventACLInstall, Source: "reconciler"})
	hub.Publish(Event{Type: EventTopology, Source: "dispatcher"})
	hub.Publish(Event{Type: EventACLRemove, Source: "reconciler"})

	received := 0
	for {
		select {
		case e := <-ch:
			if e.Type != EventACLInstall && e.Type != EventACLRemove {
				t.Errorf("received unsubscribed type %s", e.Type)
			}
			received++
		case <-time.After(50 * time.Millisecond):
			if received != 2 {
				t.Errorf("expected 2 events, got %d", received)
			}
			return
		}
	}
}

func TestHub_GlobalSubscription(t *testing.T) {
	hub := NewHub()

	ch := hub.Subscribe(10)

	hub.Publish(Event{Type: EventACLInstall, Source: "reconciler"})
	hub.Publish(Event{Type: EventACLSweep, Source: "sweep"})
	hub.Publish(Event{Type: EventTopology, Source: "dispatcher"})

	received := 0
	timeout := time.After(100 * time.Millisecond)
	for received < 3 {
		select {
		case <-ch:
			received++
		case <-timeout:
			t.Fatalf("expected 3 events, got %d", received)
		}
	}
}

func TestHub_DropWhenFull(t *testing.T) {
	hub := NewHub()

	// bufSize 1, never drained beyond the first event
	hub.Subscribe(1, EventACLInstall)

	hub.Publish(Event{Type: EventACLInstall})
	hub.Publish(Event{Type: EventACLInstall})

	published, dropped := hub.Stats()
	if published != 2 {
		t.Errorf("expected 2 published, got %d", published)
	}
	if dropped != 1 {
		t.Errorf("expected 1 dropped, got %d", dropped)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()

	ch := hub.Subscribe(10, EventACLRemove)
	hub.Unsubscribe(ch)

	hub.Publish(Event{Type: EventACLRemove})

	select {
	case <-ch:
		t.Error("received event after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}
