package core

import (
	"context"
	"errors"
	"strings"
	"sync"

	"pkt.systems/askd/schema"
)

type fakeAccessor struct {
	mu        sync.Mutex
	value     string
	readErr   error
	writeErr  error
	writes    []string
	reads     int
	onExecute func(current string) string
}

func (f *fakeAccessor) ReadFocusedText(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return "", f.readErr
	}
	return f.value, nil
}

func (f *fakeAccessor) WriteFocusedText(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, text)
	f.value = text
	return nil
}

type simCall struct {
	erase int
	text  string
}

type fakeSimulator struct {
	mu    sync.Mutex
	calls []simCall
}

func (f *fakeSimulator) Replace(_ context.Context, erase int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, simCall{erase: erase, text: text})
	return nil
}

type fakeAgent struct {
	name     schema.AgentName
	trigger  schema.Trigger
	result   string
	calls    int
	command  string
	document string
	env      string
	before   func()
}

func (a *fakeAgent) Name() schema.AgentName  { return a.name }
func (a *fakeAgent) Trigger() schema.Trigger { return a.trigger }
func (a *fakeAgent) Diagnose(context.Context) schema.DiagnosticResult {
	return schema.DiagnosticResult{Available: true, Path: "/bin/" + strings.ToLower(string(a.name))}
}

func (a *fakeAgent) Execute(_ context.Context, command, environment, document string) string {
	if a.before != nil {
		a.before()
	}
	a.calls++
	a.command = command
	a.document = document
	a.env = environment
	return a.result
}

type fakeResolver map[string]Agent

func (r fakeResolver) Get(trigger schema.Trigger) (Agent, bool) {
	agent, ok := r[trigger.Word()]
	return agent, ok
}

type fakeConfirmer struct {
	answer   bool
	err      error
	requests []ConfirmRequest
}

func (c *fakeConfirmer) Confirm(_ context.Context, req ConfirmRequest) (bool, error) {
	c.requests = append(c.requests, req)
	return c.answer, c.err
}

type recordingSink struct {
	mu     sync.Mutex
	events []schema.HistoryEvent
}

func (s *recordingSink) OnHistoryEvent(event schema.HistoryEvent) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

type memoryStore struct {
	mu      sync.Mutex
	entries []schema.CommandExecution
	appends int
	clears  int
	err     error
}

func (m *memoryStore) Append(entry schema.CommandExecution) ([]schema.CommandExecution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.appends++
	m.entries = append(m.entries, entry)
	return append([]schema.CommandExecution(nil), m.entries...), nil
}

func (m *memoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.clears++
	m.entries = nil
	return nil
}

var errNoFocus = errors.New("no focused element")
