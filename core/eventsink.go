package core

import "pkt.systems/askd/schema"

// HistorySink receives history change notifications.
type HistorySink interface {
	OnHistoryEvent(event schema.HistoryEvent)
}

// HistoryStore persists the history. Append returns every entry the store
// holds after the write, which may include entries from other writers.
type HistoryStore interface {
	Append(entry schema.CommandExecution) ([]schema.CommandExecution, error)
	Clear() error
}
