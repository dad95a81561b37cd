package askd

import (
	"pkt.systems/askd/core"
	"pkt.systems/askd/schema"
)

type historyFanout struct {
	sinks []core.HistorySink
}

func (f historyFanout) OnHistoryEvent(event schema.HistoryEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnHistoryEvent(event)
	}
}
