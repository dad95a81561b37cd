package schema

import (
	"strings"
	"time"
)

// AgentName identifies an agent in the user-facing sense ("Claude Code").
type AgentName string

// Trigger is a delimiter-terminated phrase that begins a command capture
// (for example "askclaude ").
type Trigger string

// Word returns the trigger without its trailing delimiter.
func (t Trigger) Word() string {
	s := string(t)
	if s == "" {
		return ""
	}
	r := []rune(s)
	return string(r[:len(r)-1])
}

// Delimiter returns the trailing delimiter rune, or 0 when the trigger is empty.
func (t Trigger) Delimiter() rune {
	r := []rune(string(t))
	if len(r) == 0 {
		return 0
	}
	return r[len(r)-1]
}

// NormalizeTriggerWord lowercases and trims a trigger word for lookup.
func NormalizeTriggerWord(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// CommandID identifies a recorded command execution.
type CommandID string

// CommandExecution is an immutable record of one completed command.
type CommandExecution struct {
	ID          CommandID `json:"id"`
	CommandText string    `json:"command_text"`
	ResultText  string    `json:"result_text"`
	Timestamp   time.Time `json:"timestamp"`
	AgentName   AgentName `json:"agent_name"`
	Trigger     Trigger   `json:"trigger,omitempty"`
}

// DiagnosticResult is the outcome of probing an agent executable.
type DiagnosticResult struct {
	Available bool   `json:"available"`
	Path      string `json:"path,omitempty"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// AgentStatus is derived from a diagnostic probe.
type AgentStatus string

const (
	// AgentAvailable indicates the executable was found and answered a version probe.
	AgentAvailable AgentStatus = "available"
	// AgentUnavailable indicates the executable is missing or failed to run.
	AgentUnavailable AgentStatus = "unavailable"
)

// Status derives the agent status from the diagnostic.
func (d DiagnosticResult) Status() AgentStatus {
	if d.Available && d.Path != "" {
		return AgentAvailable
	}
	return AgentUnavailable
}
