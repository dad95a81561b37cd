package schema

// HistoryEventType describes a change to the command history.
type HistoryEventType string

const (
	// HistoryAppended indicates a new execution was recorded.
	HistoryAppended HistoryEventType = "appended"
	// HistoryCleared indicates the history was truncated to empty.
	HistoryCleared HistoryEventType = "cleared"
)

// HistoryEvent is emitted after every history mutation.
type HistoryEvent struct {
	Type      HistoryEventType
	Execution CommandExecution
	Total     int
}
