package core

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"pkt.systems/askd/schema"
	"pkt.systems/pslog"
)

// EngineConfig configures trigger detection.
type EngineConfig struct {
	Triggers []schema.Trigger
	MaxRunes int
	Logger   pslog.Logger
}

// Fire is the snapshot handed to the dispatcher when an armed command is
// committed.
type Fire struct {
	Buffer  string
	Trigger schema.Trigger
	At      time.Time
	// Commit is the key that committed the command. The focused
	// application received it too.
	Commit KeyCode
}

// EngineState is a copy of the engine's shared state.
type EngineState struct {
	Buffer    string
	Active    bool
	Trigger   schema.Trigger
	Injecting bool
}

// Engine watches keystrokes, keeps the rolling typing buffer, and arms a
// command when a trigger is typed. The buffer, the active command state and
// the injection flag change together under one mutex.
type Engine struct {
	triggers TriggerSet
	log      pslog.Logger
	now      func() time.Time

	mu        sync.Mutex
	buf       *typingBuffer
	active    bool
	trigger   schema.Trigger
	injecting bool
}

// NewEngine constructs a trigger detection engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	triggers := cfg.Triggers
	if len(triggers) == 0 {
		triggers = schema.DefaultTriggers
	}
	set, err := NewTriggerSet(triggers)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Engine{
		triggers: set,
		log:      logger,
		now:      time.Now,
		buf:      newTypingBuffer(cfg.MaxRunes),
	}, nil
}

// Triggers returns the configured triggers in evaluation order.
func (e *Engine) Triggers() []schema.Trigger {
	return e.triggers.Triggers()
}

// OnKeyEvent consumes one key event. The returned forward flag is always
// true: the engine observes input and never filters it. A non-nil Fire means
// a command was committed and must be dispatched asynchronously.
func (e *Engine) OnKeyEvent(ev KeyEvent) (bool, *Fire) {
	if !ev.Down {
		return true, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.injecting {
		return true, nil
	}

	switch {
	case ev.Code.IsCommit():
		if !e.active {
			e.buf.Reset()
			return true, nil
		}
		fire := &Fire{Buffer: e.buf.String(), Trigger: e.trigger, At: e.now(), Commit: ev.Code}
		e.resetLocked()
		e.log.Debug("engine commit", "trigger", fire.Trigger, "buffer_len", utf8.RuneCountInString(fire.Buffer))
		return true, fire
	case ev.Code == KeyBackspace:
		e.buf.DeleteLast()
		if e.active && e.buf.Len() < utf8.RuneCountInString(string(e.trigger)) {
			e.log.Debug("engine disarmed", "trigger", e.trigger, "reason", "backspace")
			e.active = false
			e.trigger = ""
		}
		return true, nil
	case ev.Code == KeyEscape:
		if e.active {
			e.log.Debug("engine disarmed", "trigger", e.trigger, "reason", "escape")
		}
		e.resetLocked()
		return true, nil
	case ev.Code == KeyIgnored:
		return true, nil
	}

	if ev.Text == "" {
		return true, nil
	}
	e.buf.Append(ev.Text)
	if e.active {
		return true, nil
	}
	if trigger, ok := e.triggers.match(e.buf); ok {
		e.active = true
		e.trigger = trigger
		e.buf.KeepLast(utf8.RuneCountInString(string(trigger)))
		e.log.Debug("engine armed", "trigger", trigger)
	}
	return true, nil
}

// BeginInjection marks the start of synthetic input; events are ignored
// until EndInjection.
func (e *Engine) BeginInjection() {
	e.mu.Lock()
	e.injecting = true
	e.mu.Unlock()
}

// EndInjection clears the injection flag and the typing state.
func (e *Engine) EndInjection() {
	e.mu.Lock()
	e.injecting = false
	e.resetLocked()
	e.mu.Unlock()
}

// Reset empties the buffer and disarms any active command.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.resetLocked()
	e.mu.Unlock()
}

// State returns a copy of the shared state.
func (e *Engine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return EngineState{
		Buffer:    e.buf.String(),
		Active:    e.active,
		Trigger:   e.trigger,
		Injecting: e.injecting,
	}
}

func (e *Engine) resetLocked() {
	e.buf.Reset()
	e.active = false
	e.trigger = ""
}
