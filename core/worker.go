package core

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"pkt.systems/askd/schema"
	"pkt.systems/pslog"
)

const defaultQueueDepth = 8

var errWorkerClosed = errors.New("worker closed")

// FireHandler processes a committed command.
type FireHandler interface {
	Dispatch(ctx context.Context, fire Fire) (Outcome, error)
}

// Worker runs dispatches one at a time off the key event path.
type Worker struct {
	handler FireHandler
	queue   chan Fire
	log     pslog.Logger

	mu     sync.Mutex
	closed bool
}

// NewWorker constructs a worker with a bounded queue.
func NewWorker(handler FireHandler, depth int, logger pslog.Logger) *Worker {
	if depth <= 0 {
		depth = defaultQueueDepth
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Worker{
		handler: handler,
		queue:   make(chan Fire, depth),
		log:     logger,
	}
}

// Enqueue hands a fire to the worker without blocking.
func (w *Worker) Enqueue(fire Fire) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errWorkerClosed
	}
	select {
	case w.queue <- fire:
		return nil
	default:
		w.log.Warn("worker queue full; dropping command", "trigger", fire.Trigger.Word())
		return schema.ErrQueueFull
	}
}

// Close stops accepting fires. Run returns once the queue is drained.
func (w *Worker) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.queue)
}

// Run processes queued fires until ctx is done or the worker is closed and
// drained.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case fire, ok := <-w.queue:
			if !ok {
				return nil
			}
			w.dispatch(ctx, fire)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, fire Fire) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("worker dispatch panic", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()
	out, err := w.handler.Dispatch(ctx, fire)
	if err != nil {
		switch {
		case errors.Is(err, schema.ErrCommandCancelled), errors.Is(err, schema.ErrEmptyCommand):
			w.log.Debug("worker dispatch ended", "state", out.State, "err", err)
		default:
			w.log.Warn("worker dispatch failed", "state", out.State, "err", err)
		}
	}
}
