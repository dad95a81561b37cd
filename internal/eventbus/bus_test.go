package eventbus

import (
	"testing"
	"time"

	"pkt.systems/askd/schema"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	defer cancel()

	exec := schema.CommandExecution{ID: "cmd-1", CommandText: "summarize", AgentName: "Claude Code"}
	bus.OnHistoryEvent(schema.HistoryEvent{Type: schema.HistoryAppended, Execution: exec, Total: 1})

	select {
	case got := <-ch:
		if got.Type != schema.HistoryAppended {
			t.Fatalf("expected append event, got %v", got.Type)
		}
		if got.Execution.ID != exec.ID || got.Total != 1 {
			t.Fatalf("unexpected payload: %+v", got)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for event")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
	bus.OnHistoryEvent(schema.HistoryEvent{Type: schema.HistoryCleared})
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	bus := New(nil)
	bus.depth = 1
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.OnHistoryEvent(schema.HistoryEvent{Type: schema.HistoryAppended})
	done := make(chan struct{})
	go func() {
		bus.OnHistoryEvent(schema.HistoryEvent{Type: schema.HistoryCleared})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("publish blocked on full channel")
	}
	if got := <-ch; got.Type != schema.HistoryAppended {
		t.Fatalf("expected first event kept, got %v", got.Type)
	}
}

func TestNilBusIsSafe(t *testing.T) {
	var bus *Bus
	ch, cancel := bus.Subscribe()
	cancel()
	if ch != nil {
		t.Fatalf("expected nil channel")
	}
	bus.OnHistoryEvent(schema.HistoryEvent{})
}
