package core

import (
	"context"

	"pkt.systems/askd/schema"
	"pkt.systems/pslog"
)

// TextAccessor reads and writes the value of whatever UI element currently
// has input focus. Failures wrap schema.ErrAccessUnavailable and are never
// fatal to a dispatch.
type TextAccessor interface {
	ReadFocusedText(ctx context.Context) (string, error)
	WriteFocusedText(ctx context.Context, text string) error
}

// Injector posts synthetic input to the focused application.
type Injector interface {
	TypeRune(ctx context.Context, r rune) error
	PressEnter(ctx context.Context) error
	PressBackspace(ctx context.Context) error
	AppReporter
}

// AppReporter identifies the foreground application (bundle id or window class).
type AppReporter interface {
	FrontmostApp(ctx context.Context) (string, error)
}

// KeystrokeSimulator replaces typed text with synthetic keystrokes.
type KeystrokeSimulator interface {
	// Replace erases the previous erase characters, then types text.
	Replace(ctx context.Context, erase int, text string) error
}

// Agent wraps an external command-line tool.
type Agent interface {
	Name() schema.AgentName
	Trigger() schema.Trigger
	// Execute never fails: errors come back as text starting with schema.ErrorPrefix.
	Execute(ctx context.Context, command, environment, document string) string
	Diagnose(ctx context.Context) schema.DiagnosticResult
}

// AgentResolver maps a trigger to its agent.
type AgentResolver interface {
	Get(trigger schema.Trigger) (Agent, bool)
}

// Suppressor brackets synthetic input so the engine ignores it.
type Suppressor interface {
	BeginInjection()
	EndInjection()
}

// DispatcherDeps captures the collaborators of the dispatcher.
type DispatcherDeps struct {
	Accessor  TextAccessor
	Simulator KeystrokeSimulator
	Agents    AgentResolver
	Confirmer Confirmer
	History   *History
	Apps      AppReporter
	Logger    pslog.Logger
}
