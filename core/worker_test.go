package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"pkt.systems/askd/schema"
)

type handlerFunc func(ctx context.Context, fire Fire) (Outcome, error)

func (f handlerFunc) Dispatch(ctx context.Context, fire Fire) (Outcome, error) {
	return f(ctx, fire)
}

func runWorker(t *testing.T, w *Worker) (context.CancelFunc, <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	return cancel, done
}

func TestWorkerDispatchesInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu sync.Mutex
	var seen []string
	processed := make(chan struct{}, 3)
	w := NewWorker(handlerFunc(func(_ context.Context, fire Fire) (Outcome, error) {
		mu.Lock()
		seen = append(seen, fire.Buffer)
		mu.Unlock()
		processed <- struct{}{}
		return Outcome{State: StateRecorded}, nil
	}), 4, nil)

	for _, buf := range []string{"askclaude a", "askcodex b", "askcopilot c"} {
		if err := w.Enqueue(Fire{Buffer: buf}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	cancel, done := runWorker(t, w)
	for i := 0; i < 3; i++ {
		select {
		case <-processed:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for dispatch %d", i)
		}
	}
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 || seen[0] != "askclaude a" || seen[2] != "askcopilot c" {
		t.Fatalf("unexpected dispatch order %q", seen)
	}
}

func TestWorkerQueueFull(t *testing.T) {
	w := NewWorker(handlerFunc(func(context.Context, Fire) (Outcome, error) {
		return Outcome{}, nil
	}), 1, nil)
	if err := w.Enqueue(Fire{Buffer: "one"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := w.Enqueue(Fire{Buffer: "two"}); !errors.Is(err, schema.ErrQueueFull) {
		t.Fatalf("expected queue full, got %v", err)
	}
}

func TestWorkerSurvivesHandlerPanic(t *testing.T) {
	defer goleak.VerifyNone(t)

	processed := make(chan string, 2)
	w := NewWorker(handlerFunc(func(_ context.Context, fire Fire) (Outcome, error) {
		if fire.Buffer == "boom" {
			panic("handler exploded")
		}
		processed <- fire.Buffer
		return Outcome{}, schema.ErrCommandCancelled
	}), 2, nil)

	cancel, done := runWorker(t, w)
	defer func() {
		cancel()
		<-done
	}()
	if err := w.Enqueue(Fire{Buffer: "boom"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := w.Enqueue(Fire{Buffer: "after"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	select {
	case got := <-processed:
		if got != "after" {
			t.Fatalf("unexpected dispatch %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("worker stopped after panic")
	}
}

func TestWorkerCloseDrainsQueue(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu sync.Mutex
	count := 0
	w := NewWorker(handlerFunc(func(context.Context, Fire) (Outcome, error) {
		mu.Lock()
		count++
		mu.Unlock()
		return Outcome{}, nil
	}), 4, nil)
	for i := 0; i < 3; i++ {
		if err := w.Enqueue(Fire{}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	w.Close()
	w.Close()
	if err := w.Enqueue(Fire{}); err == nil {
		t.Fatalf("expected enqueue after close to fail")
	}
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if count != 3 {
		t.Fatalf("expected queued fires drained, got %d", count)
	}
}
