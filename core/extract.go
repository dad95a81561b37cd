package core

import (
	"strings"
	"unicode/utf8"

	"pkt.systems/askd/schema"
)

// extraction is the result of locating a command in the typed text.
type extraction struct {
	command  string
	document string
	// prefix is the focused field value before the trigger; written back on
	// the accessor path so the trigger and command disappear.
	prefix   string
	accessor bool
	// erase is how many characters the simulator must delete to remove the
	// trigger and command from the focused application.
	erase int
}

// splitFieldText locates the committed command inside the live field value.
// The snapshot pins the right occurrence when the field holds earlier copies
// of the trigger; otherwise the last trigger occurrence is used.
func splitFieldText(text string, fire Fire) (prefix, command string, ok bool) {
	snapshot := strings.TrimSpace(fire.Buffer)
	idx := -1
	if snapshot != "" && strings.HasPrefix(snapshot, strings.TrimSpace(string(fire.Trigger))) {
		idx = strings.LastIndex(text, snapshot)
	}
	if idx < 0 {
		idx = strings.LastIndex(text, string(fire.Trigger))
	}
	if idx < 0 {
		return "", "", false
	}
	rest := text[idx:]
	switch {
	case strings.HasPrefix(rest, string(fire.Trigger)):
		rest = rest[len(fire.Trigger):]
	default:
		rest = strings.TrimPrefix(rest, fire.Trigger.Word())
	}
	return text[:idx], strings.TrimSpace(rest), true
}

// splitSnapshot extracts the command from the engine's buffer snapshot. The
// snapshot starts at the trigger unless truncation pushed it out, in which
// case the whole snapshot is command text.
func splitSnapshot(fire Fire) string {
	if idx := strings.Index(fire.Buffer, string(fire.Trigger)); idx >= 0 {
		return strings.TrimSpace(fire.Buffer[idx+len(fire.Trigger):])
	}
	return strings.TrimSpace(fire.Buffer)
}

// snapshotErase counts what the user typed from the trigger on, plus the
// newline the commit key inserted unless fields are single-line.
func snapshotErase(fire Fire, singleLine bool) int {
	n := utf8.RuneCountInString(fire.Buffer)
	if fire.Commit.IsCommit() && !singleLine {
		n++
	}
	return n
}

// fieldErase counts everything after prefix in the live value, including the
// newline left by the commit key. CRLF is one character in a text field.
func fieldErase(text, prefix string) int {
	return utf8.RuneCountInString(strings.ReplaceAll(text[len(prefix):], "\r\n", "\n"))
}

func agentNotFoundText(trigger schema.Trigger) string {
	return schema.ErrorPrefix + "agent not found for trigger " + trigger.Word()
}
