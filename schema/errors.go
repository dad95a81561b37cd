package schema

import "errors"

var (
	// ErrAccessUnavailable indicates the focused text control cannot be read or written.
	ErrAccessUnavailable = errors.New("focused text unavailable")
	// ErrAgentNotFound indicates no agent is registered for a trigger.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrExecutableNotFound indicates an agent executable could not be located.
	ErrExecutableNotFound = errors.New("executable not found")
	// ErrProcessTimeout indicates a child process exceeded its deadline.
	ErrProcessTimeout = errors.New("process timed out")
	// ErrEmptyCommand indicates nothing was typed after the trigger.
	ErrEmptyCommand = errors.New("empty command")
	// ErrCommandCancelled indicates the user declined a confirmation prompt.
	ErrCommandCancelled = errors.New("command cancelled")
	// ErrInvalidTrigger indicates a malformed trigger definition.
	ErrInvalidTrigger = errors.New("invalid trigger")
	// ErrQueueFull indicates the dispatch queue could not accept more work.
	ErrQueueFull = errors.New("dispatch queue full")
)
