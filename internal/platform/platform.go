// Package platform binds the daemon to the host OS: where keystrokes come
// from, how the focused text field is read and written, how synthetic input
// is posted, and how confirmation dialogs are shown. External helpers
// (osascript, xdotool, zenity) run through procrun.
package platform

import (
	"context"
	"fmt"
	"io"
	"time"

	"pkt.systems/askd/core"
	"pkt.systems/askd/internal/procrun"
	"pkt.systems/askd/schema"
)

// helperTimeout bounds a single helper invocation.
const helperTimeout = 5 * time.Second

// dialogTimeout bounds a confirmation dialog left unanswered.
const dialogTimeout = 2 * time.Minute

// KeySource delivers key events to handle until ctx is done. handle runs on
// the source's goroutine and must not block.
type KeySource interface {
	Run(ctx context.Context, handle func(core.KeyEvent)) error
}

// Options selects backends.
type Options struct {
	// Source is "auto", "evdev" or "stdin".
	Source string
	// Device is the evdev node; empty means auto-detect.
	Device string
	// Accessor enables the structured focused-text path where supported.
	Accessor bool
}

// Backend is the set of OS integrations.
type Backend struct {
	Accessor core.TextAccessor
	Injector core.Injector
	Dialog   core.Confirmer
}

// Close releases backend connections such as the accessibility bus.
func (b Backend) Close() error {
	if c, ok := b.Accessor.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewKeySource returns the key source named by opts.Source.
func NewKeySource(opts Options) (KeySource, error) {
	switch opts.Source {
	case "stdin":
		return NewStdinSource(nil), nil
	case "", "auto", "evdev":
		return newNativeKeySource(opts)
	default:
		return nil, fmt.Errorf("unsupported key source %q", opts.Source)
	}
}

// Unavailable is a TextAccessor for hosts without structured text access.
type Unavailable struct {
	Reason string
}

func (u Unavailable) ReadFocusedText(context.Context) (string, error) {
	return "", u.err()
}

func (u Unavailable) WriteFocusedText(context.Context, string) error {
	return u.err()
}

func (u Unavailable) err() error {
	if u.Reason == "" {
		return schema.ErrAccessUnavailable
	}
	return fmt.Errorf("%w: %s", schema.ErrAccessUnavailable, u.Reason)
}

type runFunc func(ctx context.Context, req procrun.Request) (procrun.Result, error)

// helper runs a platform helper binary and returns stdout with one trailing
// newline removed.
type helper struct {
	path string
	run  runFunc
}

func newHelper(path string) helper {
	return helper{path: path, run: procrun.Run}
}

func (h helper) call(ctx context.Context, stdin string, timeout time.Duration, args ...string) (string, int, error) {
	if timeout <= 0 {
		timeout = helperTimeout
	}
	res, err := h.run(ctx, procrun.Request{Path: h.path, Args: args, Stdin: stdin, Timeout: timeout})
	if err != nil {
		return "", -1, err
	}
	out := res.Stdout
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
	}
	if res.ExitCode != 0 {
		return out, res.ExitCode, fmt.Errorf("%s exited with status %d: %s", h.path, res.ExitCode, firstLine(res.Stderr))
	}
	return out, 0, nil
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
