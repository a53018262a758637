package events

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestHub_PublishSubscribeUnsubscribe(t *testing.T) {
	h := NewHub()
	a := h.Subscribe()
	b := h.Subscribe()
	if h.Len() != 2 {
		t.Fatalf("Len() = %d; want 2", h.Len())
	}

	h.Publish(New(TypeJobsChanged, nil))
	for i, ch := range []chan Event{a, b} {
		select {
		case e := <-ch:
			if e.Type != TypeJobsChanged || e.Version != 1 || e.At.IsZero() {
				t.Fatalf("subscriber %d got %+v", i, e)
			}
		default:
			t.Fatalf("subscriber %d received nothing", i)
		}
	}

	h.Unsubscribe(a)
	if _, ok := <-a; ok {
		t.Fatalf("unsubscribed channel should be closed")
	}
	// second unsubscribe is a no-op (no double close panic)
	h.Unsubscribe(a)
	if h.Len() != 1 {
		t.Fatalf("Len() = %d; want 1", h.Len())
	}
}

func TestHub_PublishDropsWhenFull(t *testing.T) {
	h := NewHubSize(1)
	ch := h.Subscribe()
	h.Publish(New("first", nil))
	h.Publish(New("second", nil)) // buffer full, dropped

	if e := <-ch; e.Type != "first" {
		t.Fatalf("got %q; want first", e.Type)
	}
	select {
	case e := <-ch:
		t.Fatalf("expected drop, got %q", e.Type)
	default:
	}
}

func TestNewHubSize_Floor(t *testing.T) {
	if h := NewHubSize(0); h.buffer != 1 {
		t.Fatalf("buffer = %d; want 1", h.buffer)
	}
}

func TestEvent_NewAndMarshal(t *testing.T) {
	e := New(TypeSnapshot, map[string]int{"seq": 7})
	line := e.Marshal()
	if strings.Contains(line, "\n") {
		t.Fatalf("marshal should be one line: %q", line)
	}
	var back Event
	if err := json.Unmarshal([]byte(line), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Type != TypeSnapshot || string(back.Data) != `{"seq":7}` {
		t.Fatalf("round trip mismatch: %+v", back)
	}

	// unmarshalable data is dropped, not fatal
	bad := New("bad", make(chan int))
	if bad.Data != nil {
		t.Fatalf("expected nil data for unmarshalable payload")
	}
}
