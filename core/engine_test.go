package core

import (
	"strings"
	"testing"

	"pkt.systems/askd/schema"
)

func newTestEngine(t *testing.T, maxRunes int) *Engine {
	t.Helper()
	engine, err := NewEngine(EngineConfig{Triggers: schema.DefaultTriggers, MaxRunes: maxRunes})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

// typeString feeds one key-down and key-up event per rune and returns every fire.
func typeString(t *testing.T, e *Engine, text string) []*Fire {
	t.Helper()
	var fires []*Fire
	for _, r := range text {
		ev := KeyEvent{Down: true, Code: KeyOther, Text: string(r)}
		if r == '\n' {
			ev = KeyEvent{Down: true, Code: KeyReturn}
		}
		forward, fire := e.OnKeyEvent(ev)
		if !forward {
			t.Fatalf("engine must forward every event")
		}
		if fire != nil {
			fires = append(fires, fire)
		}
		ev.Down = false
		if forward, fire := e.OnKeyEvent(ev); !forward || fire != nil {
			t.Fatalf("key-up must be forwarded and ignored")
		}
	}
	return fires
}

func TestEngineFiresOnEnterAfterTrigger(t *testing.T) {
	e := newTestEngine(t, 0)
	fires := typeString(t, e, "hello askclaude summarize this\n")
	if len(fires) != 1 {
		t.Fatalf("expected one fire, got %d", len(fires))
	}
	if fires[0].Trigger != "askclaude " {
		t.Fatalf("unexpected trigger %q", fires[0].Trigger)
	}
	if fires[0].Buffer != "askclaude summarize this" {
		t.Fatalf("unexpected snapshot %q", fires[0].Buffer)
	}
	if got := splitSnapshot(*fires[0]); got != "summarize this" {
		t.Fatalf("unexpected command %q", got)
	}
	state := e.State()
	if state.Active || state.Trigger != "" || state.Buffer != "" {
		t.Fatalf("expected reset state, got %+v", state)
	}
}

func TestEngineNeverFiresWithoutTrigger(t *testing.T) {
	e := newTestEngine(t, 0)
	inputs := []string{
		"plain text\n",
		"askclaude\n",
		"ask claude please\n",
		"askclaudex \n",
		"\n\n\n",
		"askcopilo t\n",
	}
	for _, input := range inputs {
		if fires := typeString(t, e, input); len(fires) != 0 {
			t.Fatalf("input %q: expected no fire, got %+v", input, fires)
		}
	}
}

func TestEngineDoesNotRearmWhileActive(t *testing.T) {
	e := newTestEngine(t, 0)
	fires := typeString(t, e, "askclaude explain askcodex to me\n")
	if len(fires) != 1 {
		t.Fatalf("expected one fire, got %d", len(fires))
	}
	if fires[0].Trigger != "askclaude " {
		t.Fatalf("expected original trigger kept, got %q", fires[0].Trigger)
	}
	if got := splitSnapshot(*fires[0]); got != "explain askcodex to me" {
		t.Fatalf("unexpected command %q", got)
	}
}

func TestEngineEachTriggerDispatchesOnce(t *testing.T) {
	for _, trigger := range schema.DefaultTriggers {
		e := newTestEngine(t, 0)
		fires := typeString(t, e, string(trigger)+"do the thing\n")
		if len(fires) != 1 || fires[0].Trigger != trigger {
			t.Fatalf("trigger %q: unexpected fires %+v", trigger, fires)
		}
		if got := splitSnapshot(*fires[0]); got != "do the thing" {
			t.Fatalf("trigger %q: unexpected command %q", trigger, got)
		}
	}
}

func TestEngineTruncationKeepsMatchingSuffix(t *testing.T) {
	e := newTestEngine(t, 16)
	typeString(t, e, strings.Repeat("x", 100))
	if got := e.State().Buffer; got != strings.Repeat("x", 16) {
		t.Fatalf("expected 16 most recent runes, got %q", got)
	}
	fires := typeString(t, e, "askcodex hi\n")
	if len(fires) != 1 || fires[0].Trigger != "askcodex " {
		t.Fatalf("expected trigger after truncation, got %+v", fires)
	}
}

func TestEngineLongCommandTruncatesTrigger(t *testing.T) {
	e := newTestEngine(t, 20)
	command := strings.Repeat("y", 30)
	fires := typeString(t, e, "askclaude "+command+"\n")
	if len(fires) != 1 {
		t.Fatalf("expected one fire, got %d", len(fires))
	}
	if got := splitSnapshot(*fires[0]); got != strings.Repeat("y", 20) {
		t.Fatalf("expected truncated command tail, got %q", got)
	}
}

func TestEngineIgnoresEventsWhileInjecting(t *testing.T) {
	e := newTestEngine(t, 0)
	typeString(t, e, "askclaude keep")
	before := e.State()
	e.BeginInjection()
	if fires := typeString(t, e, "askcodex injected\n\x08"); len(fires) != 0 {
		t.Fatalf("expected no fires during injection")
	}
	e.OnKeyEvent(KeyEvent{Down: true, Code: KeyBackspace})
	e.OnKeyEvent(KeyEvent{Down: true, Code: KeyEscape})
	during := e.State()
	if !during.Injecting {
		t.Fatalf("expected injecting flag")
	}
	if during.Buffer != before.Buffer || during.Active != before.Active || during.Trigger != before.Trigger {
		t.Fatalf("state changed during injection: before %+v during %+v", before, during)
	}
	e.EndInjection()
	after := e.State()
	if after.Injecting || after.Active || after.Buffer != "" {
		t.Fatalf("expected cleared state after injection, got %+v", after)
	}
}

func TestEngineBackspaceEditsCommandAndDisarms(t *testing.T) {
	e := newTestEngine(t, 0)
	typeString(t, e, "askclaude helo")
	e.OnKeyEvent(KeyEvent{Down: true, Code: KeyBackspace})
	fires := typeString(t, e, "lo\n")
	if len(fires) != 1 {
		t.Fatalf("expected fire, got %d", len(fires))
	}
	if got := splitSnapshot(*fires[0]); got != "hello" {
		t.Fatalf("expected corrected command, got %q", got)
	}

	typeString(t, e, "askclaude ")
	if !e.State().Active {
		t.Fatalf("expected armed engine")
	}
	e.OnKeyEvent(KeyEvent{Down: true, Code: KeyBackspace})
	if e.State().Active {
		t.Fatalf("expected backspace into trigger to disarm")
	}
	if fires := typeString(t, e, "x\n"); len(fires) != 0 {
		t.Fatalf("expected no fire after disarm")
	}
}

func TestEngineEscapeAbandonsCommand(t *testing.T) {
	e := newTestEngine(t, 0)
	typeString(t, e, "askclaude never mind")
	e.OnKeyEvent(KeyEvent{Down: true, Code: KeyEscape})
	if fires := typeString(t, e, "\n"); len(fires) != 0 {
		t.Fatalf("expected no fire after escape")
	}
}

func TestEngineIgnoredKeysDoNotMutate(t *testing.T) {
	e := newTestEngine(t, 0)
	typeString(t, e, "askcodex a")
	before := e.State()
	e.OnKeyEvent(KeyEvent{Down: true, Code: KeyIgnored, Text: "zz"})
	e.OnKeyEvent(KeyEvent{Down: true, Code: KeyOther})
	if after := e.State(); after != before {
		t.Fatalf("expected unchanged state, before %+v after %+v", before, after)
	}
}
