package events

import (
	"context"
	"testing"
	"time"
)

func TestSubscribeReceivesEmittedValue(t *testing.T) {
	s := NewSubject()
	defer Complete(s)

	got := make(chan string, 1)
	Subscribe(s, "greeting", func(_ context.Context, v string) error {
		got <- v
		return nil
	})

	if err := Emit(s, "greeting", "hello"); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	select {
	case v := <-got:
		if v != "hello" {
			t.Errorf("received %q, want hello", v)
		}
	case <-time.After(time.Second):
		t.Fatal("handler never received the event")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := NewSubject()
	defer Complete(s)

	got := make(chan int, 2)
	sub := Subscribe(s, "tick", func(_ context.Context, v int) error {
		got <- v
		return nil
	})

	if err := Emit(s, "tick", 1); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("first event not delivered")
	}

	sub.Unsubscribe()
	if err := Emit(s, "tick", 2); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	select {
	case v := <-got:
		t.Errorf("received %d after unsubscribe", v)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTypedHandlerIgnoresMismatchedPayload(t *testing.T) {
	s := NewSubject()
	defer Complete(s)

	got := make(chan struct{}, 1)
	Subscribe(s, "mixed", func(_ context.Context, _ int) error {
		got <- struct{}{}
		return nil
	})

	// A string payload must not reach the int-typed handler.
	if err := Emit(s, "mixed", "not-an-int"); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	select {
	case <-got:
		t.Error("int handler invoked for a string payload")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	s := NewSubject()
	Complete(s)
	Complete(s)
	Complete(nil)
}
