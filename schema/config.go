package schema

import "time"

// DefaultBufferMaxRunes bounds the rolling typing buffer.
const DefaultBufferMaxRunes = 1000

// DefaultProcessTimeout bounds a single agent invocation.
const DefaultProcessTimeout = 60 * time.Second

// DefaultDiagnoseTimeout bounds a version probe.
const DefaultDiagnoseTimeout = 10 * time.Second

// Simulator pacing defaults. Target applications drop or reorder characters
// when injected faster than KeyDelay.
const (
	DefaultKeyDelay    = 50 * time.Millisecond
	DefaultSettleDelay = 100 * time.Millisecond
	DefaultSubmitDelay = 200 * time.Millisecond
)

const (
	// ExecutingMarker is written into the field while an agent runs.
	ExecutingMarker = "Executing..."
	// CancelledNotice replaces a declined dangerous command.
	CancelledNotice = "Command cancelled"
	// ErrorPrefix starts every agent or dispatcher error result.
	ErrorPrefix = "Error: "
)

// DefaultTriggers is the built-in trigger vocabulary in evaluation order.
var DefaultTriggers = []Trigger{"askclaude ", "askcopilot ", "askcodex "}

// DefaultDenylist is the set of destructive-intent substrings that require
// confirmation before a command runs.
var DefaultDenylist = []string{
	"delete",
	"remove",
	"rm -rf",
	"drop",
	"truncate",
	"force",
	"production",
	"destroy",
	"wipe",
	"shutdown",
	"reboot",
}

// DefaultAutoSubmitApps lists foreground applications where typed results are
// submitted with Enter (chat-style inputs). macOS bundle identifiers and X11
// window classes are both accepted.
var DefaultAutoSubmitApps = []string{
	"com.tinyspeck.slackmacgap",
	"com.hnc.Discord",
	"ru.keepcoder.Telegram",
	"net.whatsapp.WhatsApp",
	"com.apple.MobileSMS",
	"slack",
	"discord",
	"telegram-desktop",
	"signal",
}
