package realtime

import (
	"testing"
)

func TestNewBroadcaster_DefaultBuffer(t *testing.T) {
	b := NewBroadcaster(0)
	if b == nil {
		t.Fatal("NewBroadcaster returned nil")
	}
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)
	if cap(ch) != DefaultSubscriberBuffer {
		t.Errorf("buffer %d, want %d", cap(ch), DefaultSubscriberBuffer)
	}
}

func TestBroadcaster_PublishDeliversToSubscriber(t *testing.T) {
	b := NewBroadcaster(4)
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish("roster")
	got := <-ch
	if got != "roster" {
		t.Errorf("got topic %q, want %q", got, "roster")
	}
}

func TestBroadcaster_PublishDeliversToMultipleSubscribers(t *testing.T) {
	b := NewBroadcaster(4)
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	defer b.Unsubscribe(ch1)
	defer b.Unsubscribe(ch2)

	b.Publish("summary")
	if got := <-ch1; got != "summary" {
		t.Errorf("ch1 got %q, want summary", got)
	}
	if got := <-ch2; got != "summary" {
		t.Errorf("ch2 got %q, want summary", got)
	}
}

func TestBroadcaster_PublishDropsWhenLagging(t *testing.T) {
	b := NewBroadcaster(1)
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish("round")
	b.Publish("roster")
	if got := <-ch; got != "round" {
		t.Errorf("got %q, want round", got)
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected topic %q after drop", extra)
	default:
	}
}

func TestBroadcaster_LaggedMarksDroppedTopics(t *testing.T) {
	b := NewBroadcaster(1)
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish("notices")
	if b.Lagged(ch) {
		t.Fatal("Lagged true before any drop")
	}
	b.Publish("round")
	<-ch
	if !b.Lagged(ch) {
		t.Fatal("Lagged false after round was dropped")
	}
	if b.Lagged(ch) {
		t.Error("Lagged should clear after being read")
	}

	other := b.Subscribe()
	defer b.Unsubscribe(other)
	b.Publish("roster")
	if b.Lagged(other) {
		t.Error("a subscriber with room should not be marked")
	}
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster(1)
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	_, open := <-ch
	if open {
		t.Error("channel should be closed after Unsubscribe")
	}
	if b.Len() != 0 {
		t.Errorf("Len %d, want 0", b.Len())
	}
	// Second unsubscribe is a no-op.
	b.Unsubscribe(ch)
}
