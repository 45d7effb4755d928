package bus

import (
	"testing"
	"time"
)

func TestPublishFanOut(t *testing.T) {
	b := New()
	a := b.Subscribe()
	c := b.Subscribe()

	b.Publish(Event{Type: EventSessionDone, Session: &SessionReport{ProfileID: "p1", Outcome: "success"}})

	for name, ch := range map[string]<-chan Event{"first": a, "second": c} {
		select {
		case ev := <-ch:
			if ev.Type != EventSessionDone {
				t.Errorf("%s subscriber: type = %v", name, ev.Type)
			}
			if ev.Session == nil || ev.Session.ProfileID != "p1" {
				t.Errorf("%s subscriber: session = %+v", name, ev.Session)
			}
			if ev.At.IsZero() {
				t.Errorf("%s subscriber: At not stamped", name)
			}
		default:
			t.Errorf("%s subscriber received nothing", name)
		}
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	b := New()
	b.buf = 1
	ch := b.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(Event{Type: EventAlerts, Alerts: &AlertBatch{Added: i}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if len(ch) != 1 {
		t.Errorf("buffered events = %d, want 1", len(ch))
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	b := New()
	ch := b.Subscribe()
	b.Close()
	b.Publish(Event{Type: EventSchedule})

	if _, ok := <-ch; ok {
		t.Error("channel should be closed with no events")
	}
}
