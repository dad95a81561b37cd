package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"pkt.systems/askd/schema"
	"pkt.systems/pslog"
)

// HistoryDeps captures optional history collaborators.
type HistoryDeps struct {
	Sink   HistorySink
	Store  HistoryStore
	Logger pslog.Logger
}

// History is the ordered, append-only list of completed commands.
type History struct {
	mu      sync.Mutex
	entries []schema.CommandExecution
	sink    HistorySink
	store   HistoryStore
	log     pslog.Logger
	now     func() time.Time

	saveMu sync.Mutex
}

// NewHistory constructs an empty history.
func NewHistory(deps HistoryDeps) *History {
	return NewHistoryFromPersisted(nil, deps)
}

// NewHistoryFromPersisted seeds the history with previously saved entries.
func NewHistoryFromPersisted(entries []schema.CommandExecution, deps HistoryDeps) *History {
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &History{
		entries: append([]schema.CommandExecution(nil), entries...),
		sink:    deps.Sink,
		store:   deps.Store,
		log:     logger,
		now:     time.Now,
	}
}

// Record creates a new execution record and appends it.
func (h *History) Record(command, result string, agent schema.AgentName, trigger schema.Trigger) schema.CommandExecution {
	return h.record(newCommandID(), command, result, agent, trigger)
}

func (h *History) record(id schema.CommandID, command, result string, agent schema.AgentName, trigger schema.Trigger) schema.CommandExecution {
	exec := schema.CommandExecution{
		ID:          id,
		CommandText: strings.TrimSpace(command),
		ResultText:  result,
		Timestamp:   h.now(),
		AgentName:   agent,
		Trigger:     trigger,
	}
	h.saveMu.Lock()
	total := h.append(exec)
	h.saveMu.Unlock()
	h.emit(schema.HistoryEvent{Type: schema.HistoryAppended, Execution: exec, Total: total})
	return exec
}

// Entries returns a copy of the history in insertion order.
func (h *History) Entries() []schema.CommandExecution {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]schema.CommandExecution(nil), h.entries...)
}

// Len returns the number of recorded executions.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear truncates the history to empty, including the store. The in-memory
// list is emptied even when the store fails.
func (h *History) Clear() error {
	h.saveMu.Lock()
	h.mu.Lock()
	h.entries = nil
	h.mu.Unlock()
	var err error
	if h.store != nil {
		err = h.store.Clear()
	}
	h.saveMu.Unlock()
	if err != nil {
		h.log.Warn("history clear failed", "err", err)
		return err
	}
	h.emit(schema.HistoryEvent{Type: schema.HistoryCleared})
	return nil
}

// append adds exec to the store and adopts what the store now holds, so
// entries written or cleared by other processes are not overwritten.
// Callers hold saveMu.
func (h *History) append(exec schema.CommandExecution) int {
	var stored []schema.CommandExecution
	if h.store != nil {
		var err error
		if stored, err = h.store.Append(exec); err != nil {
			h.log.Warn("history save failed", "err", err)
			stored = nil
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if stored != nil {
		h.entries = append([]schema.CommandExecution(nil), stored...)
	} else {
		h.entries = append(h.entries, exec)
	}
	return len(h.entries)
}

func (h *History) emit(event schema.HistoryEvent) {
	if h.sink == nil {
		return
	}
	h.sink.OnHistoryEvent(event)
}
