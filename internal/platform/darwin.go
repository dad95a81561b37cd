//go:build darwin

package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pkt.systems/askd/core"
	"pkt.systems/askd/schema"
)

const osascriptPath = "/usr/bin/osascript"

// focusedElementScript resolves the focused text element of the frontmost
// process, falling back to the first text control of its front window.
const focusedElementScript = `
on focusedText()
	tell application "System Events"
		set frontProc to first application process whose frontmost is true
		set textRoles to {"AXTextArea", "AXTextField", "AXComboBox"}
		try
			set el to value of attribute "AXFocusedUIElement" of frontProc
			if (role of el) is in textRoles then return el
		end try
		repeat with candidate in (entire contents of front window of frontProc)
			try
				if (role of candidate) is in textRoles then return candidate
			end try
		end repeat
	end tell
	error "no focused text element"
end focusedText
`

const readScript = focusedElementScript + `
on run argv
	tell application "System Events" to return value of my focusedText()
end run
`

const writeScript = focusedElementScript + `
on run argv
	set el to my focusedText()
	tell application "System Events" to set value of el to (item 1 of argv)
end run
`

const keystrokeScript = `
on run argv
	tell application "System Events" to keystroke (item 1 of argv)
end run
`

const frontmostScript = `
tell application "System Events" to return bundle identifier of first application process whose frontmost is true
`

const dialogScript = `
on run argv
	display dialog (item 1 of argv) with title "askd" buttons {"Cancel", "Run"} default button "Cancel" cancel button "Cancel" with icon caution
	return button returned of result
end run
`

// osascript runs AppleScript through the osascript helper. Scripts are fed
// on stdin and user text travels as argv so it is never parsed as script.
type osascript struct {
	helper
}

func newOSAScript() osascript {
	return osascript{helper: newHelper(osascriptPath)}
}

func (o osascript) exec(ctx context.Context, script string, args ...string) (string, error) {
	out, _, err := o.call(ctx, script, 0, append([]string{"-"}, args...)...)
	return out, err
}

// AXAccessor reads and writes the focused field through the macOS
// accessibility API.
type AXAccessor struct {
	osa osascript
}

func (a AXAccessor) ReadFocusedText(ctx context.Context) (string, error) {
	out, err := a.osa.exec(ctx, readScript)
	if err != nil {
		return "", fmt.Errorf("%w: %v", schema.ErrAccessUnavailable, err)
	}
	return out, nil
}

func (a AXAccessor) WriteFocusedText(ctx context.Context, text string) error {
	if _, err := a.osa.exec(ctx, writeScript, text); err != nil {
		return fmt.Errorf("%w: %v", schema.ErrAccessUnavailable, err)
	}
	return nil
}

// EventInjector posts synthetic key presses through System Events.
type EventInjector struct {
	osa osascript
}

func (i EventInjector) TypeRune(ctx context.Context, r rune) error {
	if r == '\n' {
		return i.PressEnter(ctx)
	}
	_, err := i.osa.exec(ctx, keystrokeScript, string(r))
	return err
}

func (i EventInjector) PressEnter(ctx context.Context) error {
	_, err := i.osa.exec(ctx, `tell application "System Events" to key code 36`)
	return err
}

func (i EventInjector) PressBackspace(ctx context.Context) error {
	_, err := i.osa.exec(ctx, `tell application "System Events" to key code 51`)
	return err
}

func (i EventInjector) FrontmostApp(ctx context.Context) (string, error) {
	out, err := i.osa.exec(ctx, frontmostScript)
	return strings.TrimSpace(out), err
}

// DialogConfirmer asks with a native dialog.
type DialogConfirmer struct {
	osa osascript
}

func (d DialogConfirmer) Confirm(ctx context.Context, req core.ConfirmRequest) (bool, error) {
	msg := fmt.Sprintf("This command contains %q and may be destructive:\n\n%s\n\nRun it?", req.Matched, req.CommandText)
	out, code, err := d.osa.call(ctx, dialogScript, dialogTimeout, "-", msg)
	if code == 1 {
		// Cancel raises error -128 and exits 1.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "Run", nil
}

// New returns the macOS backends.
func New(opts Options) (Backend, error) {
	osa := newOSAScript()
	b := Backend{
		Accessor: Unavailable{Reason: "accessor disabled"},
		Injector: EventInjector{osa: osa},
		Dialog:   DialogConfirmer{osa: osa},
	}
	if opts.Accessor {
		b.Accessor = AXAccessor{osa: osa}
	}
	return b, nil
}

var errNoEventTap = errors.New("global key capture is not available on macOS without an event tap; use --source stdin")

func newNativeKeySource(Options) (KeySource, error) {
	return nil, errNoEventTap
}
